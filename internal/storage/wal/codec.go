package wal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

type wirePayload struct {
	Timestamp   int64                 `json:"ts"`
	Epoch       int64                 `json:"epoch"`
	Cells       []domain.Cell         `json:"cells,omitempty"`
	Contributor string                `json:"contributor,omitempty"`
	Archive     *domain.ArchiveRecord `json:"archive,omitempty"`
}

func validOp(op OpType) bool {
	switch op {
	case OpTypePaint, OpTypeClear, OpTypeRotate, OpTypeStamp:
		return true
	}
	return false
}

// encodeEntryFrame returns [len:4][crc:4][type:1][payload].
func encodeEntryFrame(e *Entry) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("wal: entry is nil")
	}
	if !validOp(e.OpType) {
		return nil, ErrInvalidEntryType
	}
	if e.OpType == OpTypePaint && len(e.Cells) == 0 {
		return nil, fmt.Errorf("wal: paint entry without cells")
	}

	payload, err := json.Marshal(wirePayload{
		Timestamp:   e.Timestamp,
		Epoch:       e.Epoch,
		Cells:       e.Cells,
		Contributor: e.Contributor,
		Archive:     e.Archive,
	})
	if err != nil {
		return nil, fmt.Errorf("wal: marshal payload: %w", err)
	}

	body := make([]byte, 0, 1+len(payload))
	body = append(body, byte(e.OpType))
	body = append(body, payload...)

	out := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(4+len(body)))
	binary.BigEndian.PutUint32(out[4:8], crc32.ChecksumIEEE(body))
	copy(out[headerSize:], body)
	return out, nil
}

// decodeEntryFrame decodes [crc:4][type:1][payload]; the length prefix has
// already been consumed.
func decodeEntryFrame(frame []byte) (*Entry, error) {
	if len(frame) < minFrameSize {
		return nil, ErrCorruptedEntry
	}

	wantCRC := binary.BigEndian.Uint32(frame[:4])
	body := frame[4:]
	if crc32.ChecksumIEEE(body) != wantCRC {
		return nil, ErrChecksumMismatch
	}

	op := OpType(body[0])
	if !validOp(op) {
		return nil, ErrInvalidEntryType
	}

	var p wirePayload
	if err := json.Unmarshal(body[1:], &p); err != nil {
		return nil, fmt.Errorf("wal: unmarshal payload: %w", err)
	}

	return &Entry{
		OpType:      op,
		Timestamp:   p.Timestamp,
		Epoch:       p.Epoch,
		Cells:       p.Cells,
		Contributor: p.Contributor,
		Archive:     p.Archive,
	}, nil
}
