package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
	apperrors "treasure-hunt/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsConnection is a hub connection backed by a WebSocket. Send only queues;
// a single writer goroutine owns every write on the socket.
type wsConnection struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
	log       *slog.Logger
}

func newWSConnection(conn *websocket.Conn, options Options, log *slog.Logger) *wsConnection {
	id := uuid.NewString()
	conn.SetReadLimit(options.MaxFrameSize)
	var limiter *rate.Limiter
	if options.RelayRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RelayRate), max(options.RelayBurst, 1))
	}
	return &wsConnection{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, options.ConnectionBufferSize),
		done:    make(chan struct{}),
		limiter: limiter,
		log:     log.With("connection_id", id),
	}
}

func (c *wsConnection) ID() string {
	return c.id
}

// Send queues payload. A full queue fails instead of blocking the hub.
func (c *wsConnection) Send(payload []byte) error {
	select {
	case <-c.done:
		return apperrors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return apperrors.ErrConnectionClosed
	default:
		return apperrors.ErrSendBufferFull
	}
}

// Close stops the writer, which then closes the socket. Safe to call twice.
func (c *wsConnection) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *wsConnection) readPump(ctx context.Context, hub Broadcaster) {
	defer hub.Unregister(c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.log.Warn("Relay rate exceeded, discarding client event")
			continue
		}
		hub.Relay(ctx, payload, c)
	}
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Closing socket failed", "error", err)
		}
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "error", err)
				_ = c.Close()
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *wsConnection) write(messageType int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	return c.conn.WriteMessage(messageType, payload)
}

func (c *wsConnection) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Client frame exceeded the size limit")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.log.Debug("Client disconnected")
	default:
		c.log.Debug("Read stopped", "error", err)
	}
}

// serveWS upgrades the request and runs the connection until it ends.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "websocket upgrade required", Code: apperrors.Code(apperrors.ErrInvalidRequest)})
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		s.Log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := newWSConnection(conn, s.options, s.Log)
	s.Hub.Register(c)
	go c.writePump()
	c.readPump(context.WithoutCancel(r.Context()), s.Hub)
}
