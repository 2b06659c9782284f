// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/gosignal/internal/relay"
)

// Client is one signaling peer's WebSocket connection. It implements
// relay.Conn: Send queues a frame for the write pump and never blocks.
type Client struct {
	id      string
	conn    *websocket.Conn
	addr    string
	subject string

	send   chan []byte
	mu     sync.RWMutex
	closed bool

	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	rateLimiter    *rate.Limiter
	rateLimit      RateLimitConfig

	logger *zap.Logger
}

var _ relay.Conn = (*Client)(nil)

// NewClient creates a new Client for conn using the limits in cfg. conn may
// be nil in tests that never start the pumps.
func NewClient(conn *websocket.Conn, addr string, cfg *Config, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		addr:           addr,
		send:           make(chan []byte, cfg.SendBufferSize),
		maxMessageSize: cfg.MaxMessageSize,
		writeWait:      cfg.WebSocket.WriteWait,
		pongWait:       cfg.WebSocket.PongWait,
		pingPeriod:     cfg.WebSocket.PingPeriod,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		logger:         logger.With(zap.String("client_id", id), zap.String("remote_addr", addr)),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Addr returns the remote address the client connected from.
func (c *Client) Addr() string {
	return c.addr
}

// Subject returns the authenticated token subject, or "" when auth is off.
func (c *Client) Subject() string {
	return c.subject
}

// IsOpen reports whether the client still accepts messages.
func (c *Client) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Send queues msg for delivery. A client whose queue is full is closed.
func (c *Client) Send(msg []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		c.mu.RUnlock()
		return nil
	default:
	}
	c.mu.RUnlock()

	c.logger.Warn("send buffer full; closing slow client", zap.Int("buffered", cap(c.send)))
	c.Close()
	return ErrSendBufferFull
}

// Close marks the client closed and tells the write pump to finish. It is
// safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Warn("error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			c.logger.Warn("error setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// logReadError records why the read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", zap.Int64("max_bytes", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.logger.Debug("client disconnected", zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug("client connection closed", zap.Error(err))
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.logger.Warn("unexpected WebSocket close", zap.Error(err))
	default:
		c.logger.Debug("WebSocket read ended", zap.Error(err))
	}
}

// allowMessage verifies the client has not exceeded its rate limit.
func (c *Client) allowMessage() bool {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		c.logger.Warn("rate limit exceeded; discarding message",
			zap.Int("burst", c.rateLimit.Burst),
			zap.Duration("interval", c.rateLimit.RefillInterval))
		return false
	}
	return true
}

// readPump feeds inbound text frames to handler until the connection fails,
// then calls done. Frames are dispatched sequentially, which keeps delivery
// from this client in order.
func (c *Client) readPump(handler relay.Handler, done func(*Client)) {
	defer func() {
		done(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Debug("discarding non-text frame", zap.Int("type", messageType))
			continue
		}

		if !c.allowMessage() {
			continue
		}

		handler.OnMessage(c, payload)
	}
}

// writePump drains the send queue to the socket, one frame per payload, and
// keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		if !ok {
			return c.writeCloseMessage()
		}
		return c.writeTextMessage(message)
	case <-ticker.C:
		return c.writePing()
	}
}

// closeConnection closes the socket, ignoring errors from a connection that is already gone.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("error closing connection", zap.Error(err))
	}
}

// writeCloseMessage sends a close frame to the client
func (c *Client) writeCloseMessage() bool {
	deadline := time.Now().Add(c.writeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("error writing close message", zap.Error(err))
	}
	return false
}

// writeTextMessage writes msg as a single text frame.
func (c *Client) writeTextMessage(msg []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.logger.Warn("error setting write deadline", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing message", zap.Error(err))
		}
		return false
	}
	return true
}

// writePing sends a ping message to keep the connection alive
func (c *Client) writePing() bool {
	deadline := time.Now().Add(c.writeWait)
	if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing ping message", zap.Error(err))
		}
		return false
	}
	return true
}
