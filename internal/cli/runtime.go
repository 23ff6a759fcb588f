package cli

import (
	"context"
	"fmt"
	"time"

	"resumeform/internal/client"
	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/form"
	"resumeform/internal/observability"
)

// formRuntime is what every command needs to run a form: the endpoint
// client, telemetry and the controller options
type formRuntime struct {
	om     *observability.ObservabilityManager
	client *client.Client
	opts   form.Options
	logger *errors.Logger
}

func newFormRuntime(cfg *config.Config, logger *errors.Logger) (*formRuntime, error) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	cl, err := client.New(cfg.Endpoint, logger)
	if err != nil {
		_ = om.Shutdown(context.Background())
		return nil, err
	}

	opts := form.OptionsFromConfig(cfg)
	opts.Recorder = om.Metrics()

	return &formRuntime{om: om, client: cl, opts: opts, logger: logger}, nil
}

func (rt *formRuntime) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.om.Shutdown(ctx); err != nil {
		rt.logger.LogError(err, "Failed to shutdown observability")
	}
}
