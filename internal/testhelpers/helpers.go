// Package testhelpers provides common utilities for testing the GoSignal relay.
//
// It wraps httptest servers and gorilla dialers so tests can open signaling
// sockets, exchange raw frames, and assert on delivery with deadlines.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// CreateTestServer creates a test HTTP server with the given handler and
// closes it when the test finishes.
func CreateTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// WebSocketURL converts an http(s) test server URL into a ws(s) URL for path.
func WebSocketURL(serverURL, path string) string {
	if strings.HasPrefix(serverURL, "https://") {
		return "wss://" + strings.TrimPrefix(serverURL, "https://") + path
	}
	return "ws://" + strings.TrimPrefix(serverURL, "http://") + path
}

// ConnectWebSocket dials url with the given headers. A nil header sends
// TestOrigin.
func ConnectWebSocket(url string, header http.Header) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	if header == nil {
		header = http.Header{}
		header.Set("Origin", TestOrigin)
	}

	conn, resp, err := dialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url and fails the test on error. The connection is closed
// when the test finishes.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, nil)
	require.NoError(t, err, "dial %s", url)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ConnectClients opens n connections to url.
func ConnectClients(t *testing.T, url string, n int) []*websocket.Conn {
	t.Helper()
	conns := make([]*websocket.Conn, n)
	for i := range conns {
		conns[i] = MustConnect(t, url)
	}
	return conns
}

// SendText writes payload as a single text frame.
func SendText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

// ReadText reads the next frame within timeout and returns its payload.
func ReadText(conn *websocket.Conn, timeout time.Duration) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	_, data, err := conn.ReadMessage()
	return string(data), err
}

// ExpectText fails the test unless the next frame is want.
func ExpectText(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	got, err := ReadText(conn, 2*time.Second)
	require.NoError(t, err, "waiting for %q", want)
	require.Equal(t, want, got)
}

// ExpectNoMessage fails the test if any frame arrives within timeout. The
// connection is unusable for reads afterwards because gorilla treats a read
// timeout as permanent.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	got, err := ReadText(conn, timeout)
	if err == nil {
		t.Fatalf("expected no message, got %q", got)
	}
}

// CloseWebSocket sends a normal close frame and closes conn.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// Eventually polls cond until it is true or timeout elapses.
func Eventually(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	require.Eventually(t, cond, timeout, 10*time.Millisecond, msg)
}
