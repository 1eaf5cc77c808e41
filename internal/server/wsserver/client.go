package wsserver

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/core/service"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
)

// Close reasons sent in the close frame.
const (
	closeSlowConsumer = "send buffer full"
	closeShutdown     = "server shutting down"
)

// client is one websocket session. It implements service.Subscriber.
type client struct {
	session *domain.Session
	conn    *websocket.Conn
	limiter *rate.Limiter
	logger  *slog.Logger

	send chan service.Event
	done chan struct{}

	closeOnce   sync.Once
	closeCode   int
	closeReason string
	dropped     atomic.Bool
}

func newClient(session *domain.Session, conn *websocket.Conn, cfg *Config) *client {
	var limiter *rate.Limiter
	if cfg.WritesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), max(cfg.WriteBurst, 1))
	}
	return &client{
		session: session,
		conn:    conn,
		limiter: limiter,
		logger:  cfg.Logger.With(logger.Session(session.ID)),
		send:    make(chan service.Event, cfg.SendBuffer),
		done:    make(chan struct{}),
	}
}

// ID implements service.Subscriber.
func (c *client) ID() string {
	return c.session.ID
}

// Send queues ev without blocking. A full queue disconnects the session.
func (c *client) Send(ev service.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		if c.dropped.CompareAndSwap(false, true) {
			c.logger.Warn("session too slow, disconnecting", "queued", len(c.send))
		}
		c.close(websocket.ClosePolicyViolation, closeSlowConsumer)
		return false
	}
}

// allow reports whether n cell writes fit the session's rate limit. A
// batch never costs more than a full bucket, since AllowN refuses any n
// above the burst outright.
func (c *client) allow(n int) bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.AllowN(time.Now(), min(n, c.limiter.Burst()))
}

// close stops the writer, which sends a close frame with code and reason
// before closing the connection.
func (c *client) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// writePump writes queued events and keepalive pings. It owns every write
// to the connection except the final close frame race with the reader.
func (c *client) writePump(writeTimeout, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("websocket write failed", "event", ev.Name, "error", err)
				c.close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-c.done:
			if c.closeCode != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
				c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
			}
			return
		}
	}
}
