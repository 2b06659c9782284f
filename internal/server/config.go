// Package server provides configuration helpers that define runtime defaults,
// validation, and environment overrides for the GoSignal relay.
package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment override, e.g. SIGNAL_ADDR.
const EnvPrefix = "SIGNAL"

const (
	defaultAddr            = ":8080"
	defaultPath            = "/socket"
	defaultMaxMessageSize  = 64 * 1024
	defaultSendBufferSize  = 256
	defaultBurst           = 50
	defaultRefillInterval  = time.Second
	defaultWriteWait       = 10 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `mapstructure:"burst"`
	RefillInterval time.Duration `mapstructure:"refill_interval"`
}

// WebSocketConfig holds keepalive and deadline settings for client connections.
type WebSocketConfig struct {
	WriteWait  time.Duration `mapstructure:"write_wait"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
}

// AuthConfig enables token authentication on the signaling endpoint when
// JWTSecret is non-empty.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ICEConfig describes the STUN/TURN servers advertised to clients. ServersJSON
// takes precedence over the convenience fields.
type ICEConfig struct {
	ServersJSON    string   `mapstructure:"servers_json"`
	STUNURLs       []string `mapstructure:"stun_urls"`
	TURNURLs       []string `mapstructure:"turn_urls"`
	TURNUsername   string   `mapstructure:"turn_username"`
	TURNCredential string   `mapstructure:"turn_credential"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Addr            string          `mapstructure:"addr"`
	Path            string          `mapstructure:"path"`
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
	MaxMessageSize  int64           `mapstructure:"max_message_size"`
	SendBufferSize  int             `mapstructure:"send_buffer_size"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	WebSocket       WebSocketConfig `mapstructure:"websocket"`
	Log             LogConfig       `mapstructure:"log"`
	Auth            AuthConfig      `mapstructure:"auth"`
	ICE             ICEConfig       `mapstructure:"ice"`

	// ICEServers is derived from ICE by Load or Sanitize.
	ICEServers []webrtc.ICEServer `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("path", defaultPath)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("max_message_size", defaultMaxMessageSize)
	v.SetDefault("send_buffer_size", defaultSendBufferSize)
	v.SetDefault("shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("rate_limit.burst", defaultBurst)
	v.SetDefault("rate_limit.refill_interval", defaultRefillInterval)
	v.SetDefault("websocket.write_wait", defaultWriteWait)
	v.SetDefault("websocket.pong_wait", defaultPongWait)
	v.SetDefault("websocket.ping_period", pingPeriodFor(defaultPongWait))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("ice.servers_json", "")
	v.SetDefault("ice.stun_urls", []string{})
	v.SetDefault("ice.turn_urls", []string{})
	v.SetDefault("ice.turn_username", "")
	v.SetDefault("ice.turn_credential", "")
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := Config{
		Addr:            defaultAddr,
		Path:            defaultPath,
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  defaultMaxMessageSize,
		SendBufferSize:  defaultSendBufferSize,
		ShutdownTimeout: defaultShutdownTimeout,
		RateLimit: RateLimitConfig{
			Burst:          defaultBurst,
			RefillInterval: defaultRefillInterval,
		},
		WebSocket: WebSocketConfig{
			WriteWait:  defaultWriteWait,
			PongWait:   defaultPongWait,
			PingPeriod: pingPeriodFor(defaultPongWait),
		},
		Log: LogConfig{Level: "info"},
	}
	return &cfg
}

// Load reads configuration from defaults, the optional YAML file at path, and
// SIGNAL_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Sanitize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize replaces invalid values with defaults, normalises origins and
// resolves the ICE server list. Only an unusable ICE configuration is an error.
func (c *Config) Sanitize() error {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.Path == "" {
		c.Path = defaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}

	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaultBurst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = defaultRefillInterval
	}

	if c.WebSocket.WriteWait <= 0 {
		c.WebSocket.WriteWait = defaultWriteWait
	}
	if c.WebSocket.PongWait <= 0 {
		c.WebSocket.PongWait = defaultPongWait
	}
	// Pings must go out before the peer's read deadline expires.
	if c.WebSocket.PingPeriod <= 0 || c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		c.WebSocket.PingPeriod = pingPeriodFor(c.WebSocket.PongWait)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.AllowedOrigins = splitList(c.AllowedOrigins)
	c.ICE.STUNURLs = splitList(c.ICE.STUNURLs)
	c.ICE.TURNURLs = splitList(c.ICE.TURNURLs)

	servers, err := ParseICEServers(c.ICE)
	if err != nil {
		return fmt.Errorf("ice: %w", err)
	}
	c.ICEServers = servers
	return nil
}

// AuthEnabled reports whether clients must present a token to connect.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.Auth.JWTSecret) != ""
}

var (
	errEmptyOrigins   = errors.New("no allowed origins configured")
	errNoValidOrigins = errors.New("no allowed origin is a valid scheme://host")
)

// Validate reports configurations that would make the relay unreachable.
func (c *Config) Validate() error {
	if len(c.AllowedOrigins) == 0 {
		return errEmptyOrigins
	}
	normalized, allowAll := normalizeOrigins(c.AllowedOrigins, zap.NewNop())
	if !allowAll && len(normalized) == 0 {
		return fmt.Errorf("%w: %v", errNoValidOrigins, c.AllowedOrigins)
	}
	return nil
}

func pingPeriodFor(pongWait time.Duration) time.Duration {
	return pongWait * 9 / 10
}

// splitList flattens comma-separated entries (as produced by environment
// variables) and drops blanks.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}
