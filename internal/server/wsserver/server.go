package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/core/service"
	"github.com/yndnr/pixelsync/pkg/cmap"
)

// Default settings.
const (
	DefaultReadLimit    = 64 << 10
	DefaultWriteTimeout = 10 * time.Second
	DefaultPongWait     = 60 * time.Second
	DefaultSendBuffer   = 256

	disconnectTimeout = 5 * time.Second
)

// Coordinator is the part of service.Coordinator the endpoint drives.
type Coordinator interface {
	Connect(ctx context.Context, sub service.Subscriber) error
	Disconnect(ctx context.Context, sessionID string) error
	Write(ctx context.Context, sub service.Subscriber, cell domain.Cell, contributor string) (domain.Cell, error)
	WriteBatchItems(ctx context.Context, sub service.Subscriber, items []service.BatchItem, contributor string) (*service.BatchResult, error)
	RequestEpochInfo(ctx context.Context, sub service.Subscriber) (service.EpochInfo, error)
}

// Config configures the websocket endpoint.
type Config struct {
	// ReadLimit caps one inbound frame in bytes.
	ReadLimit int64

	WriteTimeout time.Duration

	// PongWait is how long a silent connection lives. Pings go out at
	// 9/10 of it.
	PongWait time.Duration

	// SendBuffer is the outbound queue length per session.
	SendBuffer int

	// AllowedOrigins lists accepted Origin headers. Empty accepts
	// same-host requests only; "*" accepts any origin.
	AllowedOrigins []string

	// WritesPerSecond and WriteBurst limit cell writes per session; a
	// batch costs one token per cell. Zero disables the limit.
	WritesPerSecond float64
	WriteBurst      int

	// MaxBatch is the coordinator's batch cap. Larger batches skip the
	// limiter and are refused by the coordinator as a whole.
	MaxBatch int

	Logger *slog.Logger
}

// Server upgrades HTTP requests to realtime sessions.
type Server struct {
	cfg      Config
	coord    Coordinator
	upgrader websocket.Upgrader
	clients  *cmap.Map[string, *client]
	logger   *slog.Logger

	closing atomic.Bool
	wg      sync.WaitGroup
}

// New creates the endpoint.
func New(cfg Config, coord Coordinator) *Server {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultReadLimit
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = DefaultPongWait
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = service.DefaultMaxBatch
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		coord:   coord,
		clients: cmap.New[string, *client](),
		logger:  cfg.Logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return s
}

// originChecker returns nil for the same-host default of the upgrader.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// Sessions returns the number of open connections.
func (s *Server) Sessions() int {
	return s.clients.Count()
}

// ServeHTTP upgrades the request and serves the session until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, domain.ErrServiceUnavailable.Message, http.StatusServiceUnavailable)
		return
	}

	session, err := domain.NewSession(remoteHost(r), time.Now())
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		http.Error(w, domain.ErrInternalServer.Message, http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied.
		s.logger.Debug("websocket upgrade failed", "remote", session.RemoteAddr, "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	c := newClient(session, conn, &s.cfg)
	s.clients.Set(c.ID(), c)
	defer s.clients.Delete(c.ID())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(s.cfg.WriteTimeout, s.cfg.PongWait*9/10)
	}()

	// Shutdown may have started between the check above and Set.
	if s.closing.Load() {
		c.close(websocket.CloseGoingAway, closeShutdown)
		<-writerDone
		return
	}

	ctx := r.Context()
	if err := s.coord.Connect(ctx, c); err != nil {
		c.Send(service.Event{Name: service.EventError, Data: service.NewErrorInfo(err)})
		c.close(websocket.CloseTryAgainLater, domain.ErrServiceUnavailable.Message)
		<-writerDone
		return
	}
	c.logger.Info("session connected", "remote", session.RemoteAddr)

	s.readPump(ctx, c)

	c.close(websocket.CloseNormalClosure, "")
	<-writerDone

	dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := s.coord.Disconnect(dctx, c.ID()); err != nil && !errors.Is(err, domain.ErrServiceUnavailable) {
		c.logger.Warn("disconnect failed", "error", err)
	}
	c.logger.Info("session closed", "duration", time.Since(session.ConnectedAt))
}

func (s *Server) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(s.cfg.ReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		if !s.dispatch(ctx, c, data) {
			return
		}
	}
}

// dispatch handles one inbound frame. It returns false when the session
// must end.
func (s *Server) dispatch(ctx context.Context, c *client, data []byte) bool {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reject(c, domain.ErrBadRequest.WithDetails("malformed frame"))
		return true
	}

	var err error
	switch msg.Event {
	case service.EventWrite:
		var req writeRequest
		if uerr := json.Unmarshal(msg.Data, &req); uerr != nil {
			s.reject(c, domain.ErrBadRequest.WithDetails("malformed write"))
			return true
		}
		cell, cerr := domain.DecodeCell(msg.Data)
		if cerr == nil && !c.allow(1) {
			cerr = domain.ErrRateLimited
		}
		if cerr != nil {
			info := service.NewErrorInfo(cerr)
			c.Send(service.Event{Name: service.EventWriteRejected, Data: service.WriteRejected{
				X: cell.X, Y: cell.Y, Color: cell.Color, Code: info.Code, Reason: info.Reason,
			}})
			return true
		}
		_, err = s.coord.Write(ctx, c, cell, req.Contributor)

	case service.EventWriteBatch:
		var req batchRequest
		if uerr := json.Unmarshal(msg.Data, &req); uerr != nil {
			s.reject(c, domain.ErrBadRequest.WithDetails("malformed write_batch"))
			return true
		}
		if len(req.Cells) == 0 {
			return true
		}
		items := req.items()
		if len(items) <= s.cfg.MaxBatch && !c.allow(len(items)) {
			c.Send(service.Event{Name: service.EventBatchRejected, Data: rejectAll(items, domain.ErrRateLimited)})
			return true
		}
		_, err = s.coord.WriteBatchItems(ctx, c, items, req.Contributor)

	case service.EventRequestEpochInfo:
		_, err = s.coord.RequestEpochInfo(ctx, c)

	default:
		s.reject(c, domain.ErrBadRequest.WithDetails("unknown event "+msg.Event))
		return true
	}

	// Cell and batch rejections were already sent by the coordinator.
	if errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func (s *Server) reject(c *client, err error) {
	c.Send(service.Event{Name: service.EventError, Data: service.NewErrorInfo(err)})
}

// Shutdown closes every session with a going-away frame and waits for
// their handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	n := 0
	s.clients.Range(func(_ string, c *client) bool {
		c.close(websocket.CloseGoingAway, closeShutdown)
		n++
		return true
	})
	s.logger.Info("closing websocket sessions", "sessions", n)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
