// Package server implements the WebSocket transport and HTTP surface for the
// GoSignal relay.
//
// The implementation is organized into specialized files for configuration,
// client pumps, hub lifecycle, origin and token checks, routing, and HTTP
// handlers. Message fan-out itself lives in package relay; this package only
// adapts gorilla/websocket connections to it.
package server
