// Package server wires HTTP handlers into a ServeMux for the GoSignal
// relay via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// It sets up handlers for the signaling endpoint, health check, ICE server
// discovery, and the demo page.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.WebSocketHandler)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/ice-servers", ICEServersHandler(s.cfg.ICEServers, s.logger))
	mux.HandleFunc("/", s.TestPageHandler)
	return mux
}
