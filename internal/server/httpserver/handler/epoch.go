package handler

import (
	"net/http"
	"strconv"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// handleEpoch handles GET /api/v1/epoch.
func (h *Handler) handleEpoch(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.coord.Schedule().Boundaries(h.now()))
}

// handleCountdown handles GET /api/v1/epoch/countdown.
func (h *Handler) handleCountdown(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.coord.Schedule().Countdown(h.now()))
}

// handleContributors handles GET /api/v1/contributors.
func (h *Handler) handleContributors(w http.ResponseWriter, r *http.Request) {
	list, err := h.coord.Contributors(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []string{}
	}
	h.writeJSON(w, r, http.StatusOK, ContributorsResponse{
		EpochNumber:  h.coord.ActiveEpoch(),
		Contributors: list,
	})
}

// handleListArchives handles GET /api/v1/archives.
func (h *Handler) handleListArchives(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.archives.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	items := make([]ArchiveItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, ArchiveItem{ArchiveSummary: s, Ref: h.archives.Ref(s.EpochNumber)})
	}
	h.writeJSON(w, r, http.StatusOK, ArchiveListResponse{Items: items, Total: len(items)})
}

// handleGetArchive handles GET /api/v1/archives/{epoch}.
func (h *Handler) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	epoch, err := strconv.ParseInt(r.PathValue("epoch"), 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "epoch must be an integer")
		return
	}
	rec, err := h.archives.Get(r.Context(), epoch)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, rec)
}
