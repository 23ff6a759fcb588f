package client

import (
	stderrors "errors"
	"fmt"
	"net/url"

	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/types"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards submissions to the analysis endpoint
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*types.EndpointResponse]
}

// NewCircuitBreaker creates a breaker for the endpoint. It returns nil
// when the breaker is disabled; a nil breaker runs calls directly.
func NewCircuitBreaker(endpoint string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.Discard()
	}

	name := "endpoint"
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		name = fmt.Sprintf("endpoint-%s", u.Host)
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*types.EndpointResponse](settings),
	}
}

// Execute runs fn with circuit breaker protection. An open breaker is
// reported as a network error: the request never left the client.
func (cb *CircuitBreaker) Execute(fn func() (*types.EndpointResponse, error)) (*types.EndpointResponse, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}

	resp, err := cb.cb.Execute(fn)
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.NewNetworkError(errors.ErrCodeCircuitOpen,
			fmt.Sprintf("circuit breaker %s is %s", cb.cb.Name(), cb.cb.State()), err)
	}
	return resp, err
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (cb *CircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}
