// Package relay implements the transport-independent core of the signaling
// relay: a registry of open connections and a broadcaster that forwards each
// inbound payload, unmodified, to every other open connection.
//
// Nothing in this package knows about WebSockets. A transport adapts its own
// connection type to Conn and drives a Handler from its lifecycle events.
package relay
