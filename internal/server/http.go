package server

import (
	"time"

	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/form"
	"resumeform/internal/observability"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthReporter is implemented by submitters that can report whether the
// analysis endpoint is currently reachable
type HealthReporter interface {
	IsHealthy() bool
	GetStats() map[string]any
}

// Server relays form sessions between browsers and the analysis endpoint
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.ServerTLSConfig

	// API Authentication
	APIKeys map[string]bool

	AllowedOrigins []string
	StaticDir      string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Largest websocket message accepted, which bounds a single upload
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Submitter   form.Submitter
	FormOptions form.Options

	sessions *sessionRegistry
	metrics  *observability.Metrics

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.ServerTLSConfig
	APIKeys        []string
	AllowedOrigins []string
	StaticDir      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ConfigFromApp builds a ServerConfig from the application configuration
func ConfigFromApp(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		// base64 inflates uploads by a third; leave room for the envelope
		MaxRequestSize: cfg.App.MaxFileSize*4/3 + 64*1024,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server. Every websocket session gets its own
// form controller built from formOpts and posting through submitter.
func NewServer(appCfg *config.Config, cfg ServerConfig, submitter form.Submitter, formOpts form.Options, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.Discard()
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Submitter:      submitter,
		FormOptions:    formOpts,
		sessions:       newSessionRegistry(),
		metrics:        &observability.Metrics{},
		Logger:         logger,
	}
}
