package config

import (
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the config reads.
const EnvPrefix = "RESUMEFORM"

// User-facing strings shown by the form.
const (
	DefaultFileField       = "resume"
	DefaultFilePrompt      = "Choose a file (PDF, DOCX, or TXT)"
	DefaultGenericError    = "An error occurred during analysis"
	DefaultNetworkError    = "Network error. Please check your connection and try again."
	DefaultSummaryFallback = "Analysis completed"
	DefaultEmptyList       = "No specific items identified"
	DefaultEmptySkills     = "None identified"
)

// DefaultMessages returns the built-in message set.
func DefaultMessages() MessagesConfig {
	return MessagesConfig{
		FilePrompt:      DefaultFilePrompt,
		GenericError:    DefaultGenericError,
		NetworkError:    DefaultNetworkError,
		SummaryFallback: DefaultSummaryFallback,
		EmptyList:       DefaultEmptyList,
		EmptySkills:     DefaultEmptySkills,
	}
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Endpoint
	v.SetDefault("endpoint.url", "http://localhost:5000/analyze")
	v.SetDefault("endpoint.timeout", 120*time.Second) // analysis can be slow
	v.SetDefault("endpoint.apiKey", "")
	v.SetDefault("endpoint.userAgent", "resumeform")

	v.SetDefault("endpoint.jwt.enabled", false)
	v.SetDefault("endpoint.jwt.secret", "")
	v.SetDefault("endpoint.jwt.issuer", "resumeform")
	v.SetDefault("endpoint.jwt.audience", "")
	v.SetDefault("endpoint.jwt.subject", "resumeform-client")
	v.SetDefault("endpoint.jwt.ttl", 5*time.Minute)

	v.SetDefault("endpoint.tls.caFile", "")
	v.SetDefault("endpoint.tls.certFile", "")
	v.SetDefault("endpoint.tls.keyFile", "")
	v.SetDefault("endpoint.tls.minVersion", "1.2")
	v.SetDefault("endpoint.tls.insecureSkipVerify", false)
	v.SetDefault("endpoint.tls.serverName", "")

	v.SetDefault("endpoint.circuitBreaker.enabled", true)
	v.SetDefault("endpoint.circuitBreaker.maxRequests", 3)
	v.SetDefault("endpoint.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("endpoint.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("endpoint.circuitBreaker.minRequests", 3)
	v.SetDefault("endpoint.circuitBreaker.failureThreshold", 0.6)

	v.SetDefault("endpoint.rateLimit.enabled", false)
	v.SetDefault("endpoint.rateLimit.requestsPerMin", 30)
	v.SetDefault("endpoint.rateLimit.burstCapacity", 1)

	// Form
	v.SetDefault("form.fileField", DefaultFileField)
	v.SetDefault("form.fields", map[string]string{})
	v.SetDefault("form.messages.filePrompt", DefaultFilePrompt)
	v.SetDefault("form.messages.genericError", DefaultGenericError)
	v.SetDefault("form.messages.networkError", DefaultNetworkError)
	v.SetDefault("form.messages.summaryFallback", DefaultSummaryFallback)
	v.SetDefault("form.messages.emptyList", DefaultEmptyList)
	v.SetDefault("form.messages.emptySkills", DefaultEmptySkills)

	// Render
	v.SetDefault("render.animationSteps", 50)
	v.SetDefault("render.animationInterval", 20*time.Millisecond)
	v.SetDefault("render.color", "auto")

	// Dropzone
	v.SetDefault("dropzone.dir", "")
	v.SetDefault("dropzone.debounceDelay", 500*time.Millisecond)
	v.SetDefault("dropzone.submitOnDrop", true)

	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.staticDir", "")
	v.SetDefault("server.tls.mode", "disabled") // disabled, server
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.allowedOrigins", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 16*1024*1024) // 16MB, same cap as the endpoint
	v.SetDefault("app.allowedExtensions", []string{"pdf", "docx", "txt"})

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.endpointKey", "")
	v.SetDefault("vault.secrets.jwtSecret", "")
	v.SetDefault("vault.secrets.bridgeKeys", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "resumeform")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
