package wsserver

import (
	"encoding/json"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/core/service"
)

// inbound is a frame sent by a client.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// writeRequest is the payload of write. The cell fields share the object
// and are decoded by domain.DecodeCell, so a bad coordinate becomes a
// write_rejected instead of a malformed frame.
type writeRequest struct {
	Contributor string `json:"contributor,omitempty"`
}

// batchRequest is the payload of write_batch. Cells are decoded one by
// one for the same reason.
type batchRequest struct {
	Cells       []json.RawMessage `json:"cells"`
	Contributor string            `json:"contributor,omitempty"`
}

func (r batchRequest) items() []service.BatchItem {
	items := make([]service.BatchItem, len(r.Cells))
	for i, raw := range r.Cells {
		items[i].Cell, items[i].Err = domain.DecodeCell(raw)
	}
	return items
}

// rejectAll reports every cell of a batch with the same error.
func rejectAll(items []service.BatchItem, err error) service.BatchRejected {
	out := service.BatchRejected{Results: make([]service.Rejection, len(items))}
	for i, it := range items {
		out.Results[i] = service.NewRejection(i, it.Cell, err)
	}
	return out
}
