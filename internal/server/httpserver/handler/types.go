package handler

import (
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// HealthResponse is the body of GET /health and GET /ready.
type HealthResponse struct {
	Status   string    `json:"status"`
	Version  string    `json:"version"`
	Epoch    int64     `json:"epoch"`
	Sessions int       `json:"sessions"`
	Time     time.Time `json:"time"`
}

// WritePixelRequest is the request body for POST /api/v1/pixels.
type WritePixelRequest struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Color       string `json:"color"`
	Contributor string `json:"contributor,omitempty"`
}

// ArchiveListResponse is the response body for GET /api/v1/archives.
type ArchiveListResponse struct {
	Items []ArchiveItem `json:"items"`
	Total int           `json:"total"`
}

// ArchiveItem is one catalogue entry.
type ArchiveItem struct {
	domain.ArchiveSummary
	Ref string `json:"ref"`
}

// ContributorsResponse is the response body for GET /api/v1/contributors.
type ContributorsResponse struct {
	EpochNumber  int64    `json:"epoch_number"`
	Contributors []string `json:"contributors"`
}

// ResetResponse is the response body for POST /admin/v1/canvas/reset.
type ResetResponse struct {
	CellsRemoved int `json:"cells_removed"`
}

// CheckEpochResponse is the response body for POST /admin/v1/epoch/check.
type CheckEpochResponse struct {
	RolledOver  bool  `json:"rolled_over"`
	EpochNumber int64 `json:"epoch_number"`
}

// SnapshotResponse is the response body for POST /admin/v1/snapshots.
type SnapshotResponse struct {
	EpochNumber int64     `json:"epoch_number"`
	Cells       int       `json:"cells"`
	CompletedAt time.Time `json:"completed_at"`
}
