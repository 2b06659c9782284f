package relay

// Conn is one client's live duplex message channel as seen by the relay.
// Pointer implementations are matched by identity; value implementations
// that are not comparable are matched by ID.
type Conn interface {
	// ID returns an identifier that is unique among open connections.
	ID() string
	// IsOpen reports whether the connection can still accept messages.
	IsOpen() bool
	// Send queues msg for delivery. Implementations must not block
	// indefinitely and must preserve the order of successive calls.
	Send(msg []byte) error
}

// Handler is the set of lifecycle callbacks a transport invokes.
type Handler interface {
	OnConnect(c Conn)
	OnMessage(sender Conn, msg []byte)
	OnDisconnect(c Conn)
}

// Filter decides whether recipient should receive a broadcast.
type Filter func(recipient Conn) bool

// ExcludeSender returns a Filter that accepts every connection except sender.
// A nil sender excludes nobody.
func ExcludeSender(sender Conn) Filter {
	if sender == nil {
		return func(Conn) bool { return true }
	}
	id := sender.ID()
	return func(recipient Conn) bool {
		return recipient.ID() != id
	}
}
