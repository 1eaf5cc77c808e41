package service

import (
	"errors"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// Outbound event names.
const (
	EventInitialSnapshot = "initial_snapshot"
	EventEpochInfo       = "epoch_info"
	EventWriteAccepted   = "write_accepted"
	EventBatchAccepted   = "batch_accepted"
	EventCanvasReset     = "canvas_reset"
	EventNewEpoch        = "new_epoch"
	EventWriteRejected   = "write_rejected"
	EventBatchRejected   = "batch_rejected"
	EventError           = "error"
)

// Inbound event names.
const (
	EventWrite            = "write"
	EventWriteBatch       = "write_batch"
	EventRequestEpochInfo = "request_epoch_info"
)

// Event is one message to a session.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Subscriber receives events for one session. Send must not block; it
// returns false when the event could not be queued.
type Subscriber interface {
	ID() string
	Send(ev Event) bool
}

// CanvasView is the canvas as sent to a connecting session.
type CanvasView struct {
	EpochNumber int64         `json:"epoch_number"`
	Cells       []domain.Cell `json:"cells"`
}

// EpochInfo is the payload of epoch_info.
type EpochInfo struct {
	EpochNumber int64     `json:"epoch_number"`
	EpochEnd    time.Time `json:"epoch_end"`
}

// BatchAccepted is the payload of batch_accepted.
type BatchAccepted struct {
	Cells []domain.Cell `json:"cells"`
}

// NewEpoch is the payload of new_epoch. PreviousArchive is empty when the
// closed epoch produced no record.
type NewEpoch struct {
	EpochNumber     int64     `json:"epoch_number"`
	EpochEnd        time.Time `json:"epoch_end"`
	PreviousArchive string    `json:"previous_archive,omitempty"`
}

// Rejection explains why a cell was not applied.
type Rejection struct {
	Index  int    `json:"index"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BatchRejected is the payload of batch_rejected.
type BatchRejected struct {
	Results []Rejection `json:"results"`
}

// ErrorInfo is the payload of error and the code/reason part of a
// write_rejected event.
type ErrorInfo struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// WriteRejected is the payload of write_rejected.
type WriteRejected struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BatchItem is one cell of a batch as received. A non-nil Err rejects the
// cell at its position without applying it, for cells that failed to
// decode.
type BatchItem struct {
	Cell domain.Cell
	Err  error
}

// BatchResult reports the outcome of WriteBatch.
type BatchResult struct {
	Applied  []domain.Cell
	Rejected []Rejection
}

// NewErrorInfo maps err to a code and reason. Errors that are not
// DomainErrors are reported as internal errors without detail.
func NewErrorInfo(err error) ErrorInfo {
	var de *domain.DomainError
	if errors.As(err, &de) {
		reason := de.Message
		if de.Details != "" {
			reason += ": " + de.Details
		}
		return ErrorInfo{Code: de.Code, Reason: reason}
	}
	return ErrorInfo{Code: domain.ErrInternalServer.Code, Reason: domain.ErrInternalServer.Message}
}

// NewRejection builds the batch_rejected entry for the cell at index.
func NewRejection(index int, cell domain.Cell, err error) Rejection {
	info := NewErrorInfo(err)
	return Rejection{
		Index:  index,
		X:      cell.X,
		Y:      cell.Y,
		Color:  cell.Color,
		Code:   info.Code,
		Reason: info.Reason,
	}
}
