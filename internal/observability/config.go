package observability

import (
	"time"

	"resumeform/internal/config"
)

// ObservabilityConfig holds the resolved observability settings
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	ConsoleOutput   bool

	TracingEnabled bool
	SampleRate     float64

	MetricsEnabled     bool
	CollectionInterval time.Duration

	Prometheus PrometheusConfig
	OTLP       OTLPConfig
}

// OTLPConfig holds OTLP/HTTP exporter settings
type OTLPConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Headers  map[string]string
}

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:        "resumeform",
			ServiceVersion:     version,
			TracingEnabled:     true,
			SampleRate:         1.0,
			MetricsEnabled:     true,
			CollectionInterval: 15 * time.Second,
			Prometheus:         GetPrometheusConfig(nil),
		}
	}

	obs := cfg.Observability

	// Use app version if service version not specified
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	interval := obs.Metrics.CollectionInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	return ObservabilityConfig{
		ServiceName:        obs.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    obs.ServiceInstance,
		Enabled:            obs.Enabled,
		ConsoleOutput:      obs.ConsoleOutput,
		TracingEnabled:     obs.Tracing.Enabled,
		SampleRate:         obs.Tracing.SampleRate,
		MetricsEnabled:     obs.Metrics.Enabled,
		CollectionInterval: interval,
		Prometheus:         GetPrometheusConfig(cfg),
		OTLP: OTLPConfig{
			Enabled:  obs.OTLP.Enabled,
			Endpoint: obs.OTLP.Endpoint,
			Insecure: obs.OTLP.Insecure,
			Headers:  obs.OTLP.Headers,
		},
	}
}
