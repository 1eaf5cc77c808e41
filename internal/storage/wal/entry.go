package wal

import (
	"errors"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

const (
	// headerSize is the size of the frame header: length (4) + crc (4).
	headerSize = 8

	// minFrameSize is CRC (4) + type (1).
	minFrameSize = 5
)

// Errors for WAL operations.
var (
	ErrCorruptedEntry   = errors.New("wal: corrupted entry")
	ErrChecksumMismatch = errors.New("wal: checksum mismatch")
	ErrInvalidEntryType = errors.New("wal: invalid entry type")
)

// OpType represents the type of operation in the WAL.
type OpType uint8

const (
	OpTypeUnspecified OpType = iota
	OpTypePaint
	OpTypeClear
	OpTypeRotate
	OpTypeStamp
)

func (t OpType) String() string {
	switch t {
	case OpTypePaint:
		return "paint"
	case OpTypeClear:
		return "clear"
	case OpTypeRotate:
		return "rotate"
	case OpTypeStamp:
		return "stamp"
	default:
		return "unspecified"
	}
}

// Entry is one journaled canvas mutation.
type Entry struct {
	OpType    OpType
	Timestamp int64 // Unix milliseconds

	// Epoch is the canvas label the entry applies to. For ROTATE and STAMP
	// it is the new label.
	Epoch int64

	Cells       []domain.Cell
	Contributor string

	// Archive is set on ROTATE entries.
	Archive *domain.ArchiveRecord
}

// NewPaintEntry journals cells applied by one write or batch.
func NewPaintEntry(epoch int64, cells []domain.Cell, contributor string) *Entry {
	return &Entry{
		OpType:      OpTypePaint,
		Timestamp:   time.Now().UnixMilli(),
		Epoch:       epoch,
		Cells:       cells,
		Contributor: contributor,
	}
}

// NewClearEntry journals an in-epoch reset.
func NewClearEntry(epoch int64) *Entry {
	return &Entry{
		OpType:    OpTypeClear,
		Timestamp: time.Now().UnixMilli(),
		Epoch:     epoch,
	}
}

// NewRotateEntry journals an epoch close. rec may be nil when the canvas
// had no label yet.
func NewRotateEntry(next int64, rec *domain.ArchiveRecord) *Entry {
	return &Entry{
		OpType:    OpTypeRotate,
		Timestamp: time.Now().UnixMilli(),
		Epoch:     next,
		Archive:   rec,
	}
}

// NewStampEntry journals a relabel.
func NewStampEntry(epoch int64) *Entry {
	return &Entry{
		OpType:    OpTypeStamp,
		Timestamp: time.Now().UnixMilli(),
		Epoch:     epoch,
	}
}
