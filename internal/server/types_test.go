package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestIsExpectedCloseError(t *testing.T) {
	closedRead := &net.OpError{Op: "read", Net: "tcp", Err: net.ErrClosed}
	brokenPipe := &net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.EPIPE)}

	assert.True(t, isExpectedCloseError(nil))
	assert.True(t, isExpectedCloseError(closedRead))
	assert.True(t, isExpectedCloseError(websocket.ErrCloseSent))
	assert.True(t, isExpectedCloseError(fmt.Errorf("write frame: %w", websocket.ErrCloseSent)))
	assert.True(t, isExpectedCloseError(brokenPipe))

	assert.False(t, isExpectedCloseError(errors.New("use of closed network connection")),
		"matching is by error identity, not text")
	assert.False(t, isExpectedCloseError(websocket.ErrReadLimit))
}
