// Package server defines shared errors and utility helpers that are reused
// across client and hub logic.
package server

import (
	"errors"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

var (
	// ErrClientClosed is returned by Client.Send after the client has closed.
	ErrClientClosed = errors.New("client closed")
	// ErrSendBufferFull is returned by Client.Send when the peer is not
	// draining its queue. The client is closed as a side effect.
	ErrSendBufferFull = errors.New("client send buffer full")
	// ErrHubClosed is returned by Hub.Register once shutdown has begun.
	ErrHubClosed = errors.New("hub is shutting down")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, syscall.EPIPE)
}
