package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// iceServerEntry accepts "urls" as either a string or a list, as browsers do
// for RTCIceServer.
type iceServerEntry struct {
	URLs       urlList `json:"urls"`
	Username   string  `json:"username,omitempty"`
	Credential string  `json:"credential,omitempty"`
}

type urlList []string

func (u *urlList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*u = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*u = many
	return nil
}

// ParseICEServers resolves the ICE servers advertised to clients. When
// ServersJSON is set it is used exclusively; otherwise one STUN entry and one
// TURN entry are built from the URL lists.
func ParseICEServers(cfg ICEConfig) ([]webrtc.ICEServer, error) {
	if raw := strings.TrimSpace(cfg.ServersJSON); raw != "" {
		return parseICEServersJSON(raw)
	}

	var servers []webrtc.ICEServer
	if len(cfg.STUNURLs) > 0 {
		server := webrtc.ICEServer{URLs: cfg.STUNURLs}
		if err := validateICEServer(server); err != nil {
			return nil, fmt.Errorf("stun_urls: %w", err)
		}
		servers = append(servers, server)
	}

	if len(cfg.TURNURLs) > 0 {
		server := webrtc.ICEServer{
			URLs:       cfg.TURNURLs,
			Username:   strings.TrimSpace(cfg.TURNUsername),
			Credential: strings.TrimSpace(cfg.TURNCredential),
		}
		if err := validateICEServer(server); err != nil {
			return nil, fmt.Errorf("turn_urls: %w", err)
		}
		servers = append(servers, server)
	}

	return servers, nil
}

func parseICEServersJSON(raw string) ([]webrtc.ICEServer, error) {
	var entries []iceServerEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("servers_json: %w", err)
	}

	servers := make([]webrtc.ICEServer, 0, len(entries))
	for i, entry := range entries {
		server := webrtc.ICEServer{
			URLs:     splitList(entry.URLs),
			Username: strings.TrimSpace(entry.Username),
		}
		if cred := strings.TrimSpace(entry.Credential); cred != "" {
			server.Credential = cred
		}
		if err := validateICEServer(server); err != nil {
			return nil, fmt.Errorf("servers_json[%d]: %w", i, err)
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func validateICEServer(server webrtc.ICEServer) error {
	if len(server.URLs) == 0 {
		return errors.New("missing urls")
	}

	needsCredentials := false
	for _, url := range server.URLs {
		scheme, _, ok := strings.Cut(strings.ToLower(url), ":")
		if !ok {
			return fmt.Errorf("malformed url: %q", url)
		}
		switch scheme {
		case "stun", "stuns":
		case "turn", "turns":
			needsCredentials = true
		default:
			return fmt.Errorf("unsupported url scheme: %q", url)
		}
	}

	if needsCredentials {
		if server.Username == "" {
			return errors.New("turn urls require username")
		}
		if cred, ok := server.Credential.(string); !ok || cred == "" {
			return errors.New("turn urls require credential")
		}
	}
	return nil
}

// iceServersResponse mirrors the RTCConfiguration.iceServers shape so a
// browser can pass it straight to new RTCPeerConnection.
type iceServersResponse struct {
	ICEServers []iceServerEntry `json:"iceServers"`
}

func newICEServersResponse(servers []webrtc.ICEServer) iceServersResponse {
	entries := make([]iceServerEntry, 0, len(servers))
	for _, server := range servers {
		entry := iceServerEntry{URLs: server.URLs, Username: server.Username}
		if cred, ok := server.Credential.(string); ok {
			entry.Credential = cred
		}
		entries = append(entries, entry)
	}
	return iceServersResponse{ICEServers: entries}
}

// ICEServersHandler serves the configured STUN/TURN servers as JSON.
func ICEServersHandler(servers []webrtc.ICEServer, logger *zap.Logger) http.HandlerFunc {
	body := newICEServersResponse(servers)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Warn("error writing ICE server response", zap.Error(err))
		}
	}
}
