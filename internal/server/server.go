// Package server implements the HTTP and WebSocket surface of the GoSignal relay.
package server

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/gosignal/internal/relay"
)

// Server owns one relay instance and everything needed to feed it from
// WebSocket connections. Independent Servers share no state.
type Server struct {
	cfg      *Config
	logger   *zap.Logger
	relay    *relay.Relay
	hub      *Hub
	origins  *originPolicy
	verifier *TokenVerifier
	upgrader websocket.Upgrader
}

// New builds a Server from cfg. cfg should already be sanitized; a nil cfg
// uses defaults.
func New(cfg *Config, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := relay.New(relay.NewRegistry(), logger.Named("relay"))
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		relay:    r,
		hub:      NewHub(r, logger.Named("hub")),
		origins:  newOriginPolicy(cfg.AllowedOrigins, logger),
		verifier: NewTokenVerifier(cfg.Auth.JWTSecret),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Relay returns the broadcast relay behind the server.
func (s *Server) Relay() *relay.Relay {
	return s.relay
}

// Hub returns the hub used for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the configuration the server was built with.
func (s *Server) Config() *Config {
	return s.cfg
}

// Shutdown closes every client connection, waiting at most timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.hub.Shutdown(timeout)
}
