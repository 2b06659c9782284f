// Package server coordinates client registration, pump goroutines, and
// connection cleanup for the GoSignal relay via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/gosignal/internal/relay"
)

// Hub binds WebSocket clients to a relay.Handler. It invokes OnConnect before
// a client's pumps start and OnDisconnect once its read loop ends, and it
// tracks every live client so shutdown can close them.
type Hub struct {
	handler relay.Handler
	logger  *zap.Logger

	mutex   sync.Mutex
	clients map[*Client]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewHub creates a Hub that reports client lifecycle events to handler.
func NewHub(handler relay.Handler, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		handler: handler,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Register makes client eligible for broadcasts and launches its pumps. It
// fails with ErrHubClosed once Shutdown has started.
func (h *Hub) Register(client *Client) error {
	h.mutex.Lock()
	if h.closing {
		h.mutex.Unlock()
		return ErrHubClosed
	}
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.wg.Add(2)
	h.mutex.Unlock()

	// Registered before the read pump runs, so the client sees only messages
	// relayed from this point on.
	h.handler.OnConnect(client)
	h.logger.Info("client registered",
		zap.String("client_id", client.ID()),
		zap.String("remote_addr", client.Addr()),
		zap.String("subject", client.Subject()),
		zap.Int("clients", clientCount))

	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump(h.handler, h.unregister)
	}()
	return nil
}

// unregister is called from the client's read pump when its connection ends.
func (h *Hub) unregister(client *Client) {
	h.handler.OnDisconnect(client)
	client.Close()

	h.mutex.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if ok {
		h.logger.Info("client unregistered",
			zap.String("client_id", client.ID()),
			zap.String("remote_addr", client.Addr()),
			zap.Int("clients", clientCount))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// Shutdown stops accepting clients, asks every connected client to close, and
// waits for all pump goroutines to finish. Connections still open when the
// timeout expires are closed forcibly and context.DeadlineExceeded is returned.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.mutex.Lock()
	h.closing = true
	h.mutex.Unlock()

	clients := h.snapshot()
	for _, client := range clients {
		client.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed", zap.Int("closed", len(clients)))
		return nil
	case <-time.After(timeout):
	}

	remaining := h.snapshot()
	for _, client := range remaining {
		if client.conn != nil {
			client.closeConnection()
		}
	}
	h.logger.Warn("hub shutdown timeout reached; forced remaining connections closed",
		zap.Int("remaining", len(remaining)))
	return context.DeadlineExceeded
}
