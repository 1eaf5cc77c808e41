package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/core/service"
	"github.com/yndnr/pixelsync/internal/infra/buildinfo"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Coordinator is the part of service.Coordinator the API uses.
type Coordinator interface {
	Canvas(ctx context.Context) (service.CanvasView, error)
	Write(ctx context.Context, sub service.Subscriber, cell domain.Cell, contributor string) (domain.Cell, error)
	Contributors(ctx context.Context) ([]string, error)
	Reset(ctx context.Context) (int, error)
	CheckEpoch(ctx context.Context) (bool, error)
	Persist(ctx context.Context) error
	Schedule() domain.Schedule
	ActiveEpoch() int64
	Sessions() int
}

// ArchiveReader reads archive records.
type ArchiveReader interface {
	Get(ctx context.Context, epoch int64) (*domain.ArchiveRecord, error)
	List(ctx context.Context) ([]domain.ArchiveSummary, error)
	Ref(epoch int64) string
}

// Config configures the Handler.
type Config struct {
	Coordinator Coordinator
	Archives    ArchiveReader

	// Now returns the wall clock. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Handler serves the API routes.
type Handler struct {
	coord    Coordinator
	archives ArchiveReader
	now      func() time.Time
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{
		coord:    cfg.Coordinator,
		archives: cfg.Archives,
		now:      cfg.Now,
		logger:   cfg.Logger,
		mux:      http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /api/v1/epoch", h.handleEpoch)
	h.mux.HandleFunc("GET /api/v1/epoch/countdown", h.handleCountdown)
	h.mux.HandleFunc("GET /api/v1/canvas", h.handleCanvas)
	h.mux.HandleFunc("POST /api/v1/pixels", h.handleWritePixel)
	h.mux.HandleFunc("GET /api/v1/archives", h.handleListArchives)
	h.mux.HandleFunc("GET /api/v1/archives/{epoch}", h.handleGetArchive)
	h.mux.HandleFunc("GET /api/v1/contributors", h.handleContributors)

	h.mux.HandleFunc("POST /admin/v1/canvas/reset", h.handleAdminReset)
	h.mux.HandleFunc("POST /admin/v1/snapshots", h.handleAdminSnapshot)
	h.mux.HandleFunc("POST /admin/v1/epoch/check", h.handleAdminCheckEpoch)
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteError(w, getRequestID(r), status, code, message)
}

// WriteError writes an error envelope. Middleware uses it too.
func WriteError(w http.ResponseWriter, requestID string, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message))
}

// getRequestID returns the ID the RequestID middleware put on the response.
func getRequestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		info := service.NewErrorInfo(de)
		h.writeError(w, r, StatusForCode(de.Code), info.Code, info.Reason)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		h.writeError(w, r, http.StatusServiceUnavailable,
			domain.ErrServiceUnavailable.Code, domain.ErrServiceUnavailable.Message)
		return
	}

	h.logger.Error("internal error", "path", r.URL.Path, "error", err)
	h.writeError(w, r, http.StatusInternalServerError,
		domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
}

// StatusForCode maps an error code to its HTTP status. The first three
// digits of the numeric part are the status, so PX-CELL-4001 is 400.
func StatusForCode(code string) int {
	i := strings.LastIndexByte(code, '-')
	if i < 0 || len(code)-i-1 != 4 {
		return http.StatusInternalServerError
	}
	status, err := strconv.Atoi(code[i+1 : i+4])
	if err != nil || status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code,
			domain.ErrBadRequest.Message+": "+err.Error())
		return false
	}
	return true
}

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  buildinfo.Get().Version,
		Epoch:    h.coord.ActiveEpoch(),
		Sessions: h.coord.Sessions(),
		Time:     h.now().UTC(),
	})
}

// handleReady handles GET /ready. The server is ready once the
// coordinator loop answers.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	if _, err := h.coord.Contributors(ctx); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:   "ready",
		Version:  buildinfo.Get().Version,
		Epoch:    h.coord.ActiveEpoch(),
		Sessions: h.coord.Sessions(),
		Time:     h.now().UTC(),
	})
}
