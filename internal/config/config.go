package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMEFORM_ENDPOINT_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	Endpoint      EndpointConfig      `mapstructure:"endpoint"`
	Form          FormConfig          `mapstructure:"form"`
	Render        RenderConfig        `mapstructure:"render"`
	Dropzone      DropzoneConfig      `mapstructure:"dropzone"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EndpointConfig describes the analysis endpoint the form posts to
type EndpointConfig struct {
	URL            string               `mapstructure:"url"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	UserAgent      string               `mapstructure:"userAgent"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	TLS            ClientTLSConfig      `mapstructure:"tls"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	RateLimit      ClientRateConfig     `mapstructure:"rateLimit"`
}

// JWTConfig controls bearer tokens attached to each submission
type JWTConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	Subject  string        `mapstructure:"subject"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ClientRateConfig throttles outgoing submissions
type ClientRateConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
}

// FormConfig describes the form's fields and user-facing messages
type FormConfig struct {
	FileField string            `mapstructure:"fileField"`
	Fields    map[string]string `mapstructure:"fields"`
	Messages  MessagesConfig    `mapstructure:"messages"`
}

// MessagesConfig holds the fixed strings shown to the user
type MessagesConfig struct {
	FilePrompt      string `mapstructure:"filePrompt"`
	GenericError    string `mapstructure:"genericError"`
	NetworkError    string `mapstructure:"networkError"`
	SummaryFallback string `mapstructure:"summaryFallback"`
	EmptyList       string `mapstructure:"emptyList"`
	EmptySkills     string `mapstructure:"emptySkills"`
}

// RenderConfig controls result rendering
type RenderConfig struct {
	AnimationSteps    int           `mapstructure:"animationSteps"`
	AnimationInterval time.Duration `mapstructure:"animationInterval"`
	Color             string        `mapstructure:"color"` // auto, always, never
}

// DropzoneConfig controls the watched drop folder
type DropzoneConfig struct {
	Dir           string        `mapstructure:"dir"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
	SubmitOnDrop  bool          `mapstructure:"submitOnDrop"`
}

// ServerConfig holds the UI bridge server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
	StaticDir    string        `mapstructure:"staticDir"`

	// TLS Configuration
	TLS ServerTLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for bridge clients

	// Allowed websocket origins, empty allows any
	AllowedOrigins []string `mapstructure:"allowedOrigins"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// ServerTLSConfig holds TLS configuration for the bridge listener
type ServerTLSConfig struct {
	Mode       string `mapstructure:"mode"` // TLS mode: "disabled", "server"
	CertFile   string `mapstructure:"certFile"`
	KeyFile    string `mapstructure:"keyFile"`
	MinVersion string `mapstructure:"minVersion"`
}

// ClientTLSConfig holds TLS settings used when talking to the endpoint
type ClientTLSConfig struct {
	CAFile   string `mapstructure:"caFile"`   // Extra CA bundle (PEM)
	CertFile string `mapstructure:"certFile"` // Client certificate for mTLS (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Client private key for mTLS (PEM)

	// Certificate content (used when loaded from Vault instead of files)
	CAContent   string `mapstructure:"caContent"`
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`

	MinVersion         string `mapstructure:"minVersion"` // "1.2", "1.3"
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
	ServerName         string `mapstructure:"serverName"`
}

// RateLimitConfig holds bridge rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel          string   `mapstructure:"logLevel"`
	DefaultFormat     string   `mapstructure:"defaultFormat"`
	SupportedFormats  []string `mapstructure:"supportedFormats"`
	MaxFileSize       int64    `mapstructure:"maxFileSize"`
	AllowedExtensions []string `mapstructure:"allowedExtensions"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
// found on the standard search path.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile loads configuration like LoadConfig but reads the given file
// instead of searching when path is not empty.
func LoadConfigFile(path string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumeform/")
		v.AddConfigPath("$HOME/.resumeform")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint url must be an absolute http(s) URL, got %q", c.Endpoint.URL)
	}

	if c.Endpoint.Timeout <= 0 {
		return fmt.Errorf("endpoint timeout must be positive")
	}

	if c.Endpoint.JWT.Enabled && c.Endpoint.JWT.Secret == "" && c.Vault.Secrets.JWTSecret == "" {
		return fmt.Errorf("endpoint JWT secret is required when JWT signing is enabled")
	}

	if c.Endpoint.RateLimit.Enabled && c.Endpoint.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("endpoint rate limit must allow at least one request per minute")
	}

	if cb := c.Endpoint.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failureThreshold must be in (0, 1], got %v", cb.FailureThreshold)
	}

	if c.Form.FileField == "" {
		return fmt.Errorf("form file field name is required")
	}

	if c.Render.AnimationSteps <= 0 {
		return fmt.Errorf("render animationSteps must be positive")
	}

	if c.Render.AnimationInterval < 0 {
		return fmt.Errorf("render animationInterval must not be negative")
	}

	switch c.Render.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid render color mode: %s (must be 'auto', 'always', or 'never')", c.Render.Color)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("app maxFileSize must be positive")
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
