package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// handleCanvas handles GET /api/v1/canvas. The ETag is a murmur3 hash of
// the canvas payload, so unchanged canvases answer 304.
func (h *Handler) handleCanvas(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.Canvas(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	body, err := json.Marshal(view)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	etag := canvasETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeJSON(w, r, http.StatusOK, json.RawMessage(body))
}

func canvasETag(body []byte) string {
	hi, lo := murmur3.Sum128(body)
	return fmt.Sprintf(`"%016x%016x"`, hi, lo)
}

// handleWritePixel handles POST /api/v1/pixels. The write takes the same
// path as a websocket write and is broadcast to every session.
func (h *Handler) handleWritePixel(w http.ResponseWriter, r *http.Request) {
	var req pixelBody
	if !h.decodeJSON(w, r, &req) {
		return
	}

	// Coordinates and color are checked field by field so a fractional x
	// answers with the cell error, not a bad request.
	raw, err := json.Marshal(req.cellFields)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	cell, err := domain.DecodeCell(raw)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	cell, err = h.coord.Write(r.Context(), nil, cell, req.Contributor)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, cell)
}

// pixelBody is WritePixelRequest with the cell fields left undecoded.
type pixelBody struct {
	cellFields
	Contributor string `json:"contributor,omitempty"`
}

type cellFields struct {
	X     json.RawMessage `json:"x"`
	Y     json.RawMessage `json:"y"`
	Color json.RawMessage `json:"color"`
}
