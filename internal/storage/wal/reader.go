package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// Reader reads entries across all segments in order. Torn or corrupted
// tails end a segment; reading continues with the next one.
type Reader struct {
	segments []segmentInfo
	segIndex int

	// startSeg/startAt position the first segment opened after Seek.
	startSeg uint64
	startAt  int64

	file   *os.File
	reader *bufio.Reader
}

// NewReader creates a reader over every segment in dir.
func NewReader(dir string) (*Reader, error) {
	segs, err := listSegments(dir)
	if err != nil {
		return nil, err
	}
	return &Reader{segments: segs}, nil
}

// Seek positions the reader at a composite offset.
func (r *Reader) Seek(offset uint64) error {
	segID := offset >> 32

	i := 0
	for i < len(r.segments) && r.segments[i].id < segID {
		i++
	}
	r.closeCurrent()
	r.segIndex = i
	r.startSeg = segID
	r.startAt = int64(uint32(offset))
	return nil
}

// Read returns the next entry, or io.EOF when every segment is consumed.
func (r *Reader) Read() (*Entry, error) {
	for {
		if r.reader == nil {
			if err := r.openNextSegment(); err != nil {
				if errors.Is(err, errInvalidMagic) {
					continue
				}
				return nil, err
			}
		}

		e, err := r.readOneEntry()
		if err == nil {
			return e, nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
			errors.Is(err, ErrCorruptedEntry) || errors.Is(err, ErrChecksumMismatch) ||
			errors.Is(err, ErrInvalidEntryType) {
			r.closeCurrent()
			continue
		}
		return nil, err
	}
}

// ReadAll reads every remaining entry.
func (r *Reader) ReadAll() ([]*Entry, error) {
	var out []*Entry
	for {
		e, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		out = append(out, e)
	}
}

// Close closes any open segment file.
func (r *Reader) Close() error {
	return r.closeCurrent()
}

func (r *Reader) openNextSegment() error {
	r.closeCurrent()

	if r.segIndex >= len(r.segments) {
		return io.EOF
	}
	seg := r.segments[r.segIndex]
	r.segIndex++

	f, err := os.Open(seg.path)
	if err != nil {
		return err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	_, dataLen, err := sealedLength(f, stat.Size())
	if err != nil {
		f.Close()
		return err
	}

	start := int64(MagicBytesSize)
	if seg.id == r.startSeg && r.startAt > start {
		start = r.startAt
	}
	if start > dataLen {
		start = dataLen
	}

	r.file = f
	r.reader = bufio.NewReader(io.NewSectionReader(f, start, dataLen-start))
	return nil
}

func (r *Reader) closeCurrent() error {
	r.reader = nil
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

func (r *Reader) readOneEntry() (*Entry, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.reader, lenBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < minFrameSize {
		return nil, ErrCorruptedEntry
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r.reader, frame); err != nil {
		return nil, err
	}
	return decodeEntryFrame(frame)
}
