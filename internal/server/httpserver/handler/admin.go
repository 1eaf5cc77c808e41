package handler

import (
	"net/http"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
)

// handleAdminReset handles POST /admin/v1/canvas/reset.
func (h *Handler) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	n, err := h.coord.Reset(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	logger.L(r.Context()).Warn("canvas reset by admin", "cells_removed", n)
	h.writeJSON(w, r, http.StatusOK, ResetResponse{CellsRemoved: n})
}

// handleAdminSnapshot handles POST /admin/v1/snapshots.
func (h *Handler) handleAdminSnapshot(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.Canvas(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if err := h.coord.Persist(r.Context()); err != nil {
		if !domain.IsDomainError(err, "") {
			err = domain.ErrPersistenceFailure.WithCause(err)
		}
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, SnapshotResponse{
		EpochNumber: view.EpochNumber,
		Cells:       len(view.Cells),
		CompletedAt: h.now().UTC(),
	})
}

// handleAdminCheckEpoch handles POST /admin/v1/epoch/check.
func (h *Handler) handleAdminCheckEpoch(w http.ResponseWriter, r *http.Request) {
	rolled, err := h.coord.CheckEpoch(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, CheckEpochResponse{
		RolledOver:  rolled,
		EpochNumber: h.coord.ActiveEpoch(),
	})
}
