package observability

import (
	"context"
	"fmt"
	"time"

	"resumeform/internal/form"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the custom instruments. The zero value records nothing.
type Metrics struct {
	// Form metrics
	SubmissionCount    metric.Int64Counter
	SubmissionDuration metric.Float64Histogram
	StaleResponses     metric.Int64Counter
	Renders            metric.Int64Counter
	Drops              metric.Int64Counter

	// Bridge metrics
	BridgeSessions metric.Int64UpDownCounter
	RateLimitHits  metric.Int64Counter
}

var _ form.Recorder = (*Metrics)(nil)

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.SubmissionCount, err = meter.Int64Counter(
		"resumeform_submissions_total",
		metric.WithDescription("Total number of finished form submissions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission count metric: %w", err)
	}

	m.SubmissionDuration, err = meter.Float64Histogram(
		"resumeform_submission_duration_seconds",
		metric.WithDescription("Time from submit to the endpoint's answer"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission duration metric: %w", err)
	}

	m.StaleResponses, err = meter.Int64Counter(
		"resumeform_stale_responses_total",
		metric.WithDescription("Responses discarded because the form was reset"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stale response metric: %w", err)
	}

	m.Renders, err = meter.Int64Counter(
		"resumeform_renders_total",
		metric.WithDescription("Result panels rendered, by score band"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create render metric: %w", err)
	}

	m.Drops, err = meter.Int64Counter(
		"resumeform_drops_total",
		metric.WithDescription("Files dropped on the form"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drop metric: %w", err)
	}

	m.BridgeSessions, err = meter.Int64UpDownCounter(
		"resumeform_bridge_sessions",
		metric.WithDescription("Open bridge websocket sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge session metric: %w", err)
	}

	m.RateLimitHits, err = meter.Int64Counter(
		"resumeform_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// RecordSubmission counts a finished submission and its duration
func (m *Metrics) RecordSubmission(ctx context.Context, outcome form.Outcome, duration time.Duration) {
	if m == nil || m.SubmissionCount == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	m.SubmissionCount.Add(ctx, 1, attrs)
	m.SubmissionDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *Metrics) RecordStaleResponse(ctx context.Context) {
	if m == nil || m.StaleResponses == nil {
		return
	}
	m.StaleResponses.Add(ctx, 1)
}

func (m *Metrics) RecordRender(ctx context.Context, band string) {
	if m == nil || m.Renders == nil {
		return
	}
	m.Renders.Add(ctx, 1, metric.WithAttributes(attribute.String("band", band)))
}

// RecordDrop counts a drop; source is "folder" or "bridge"
func (m *Metrics) RecordDrop(ctx context.Context, source string, accepted bool) {
	if m == nil || m.Drops == nil {
		return
	}
	m.Drops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("accepted", accepted),
	))
}

func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil || m.BridgeSessions == nil {
		return
	}
	m.BridgeSessions.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil || m.BridgeSessions == nil {
		return
	}
	m.BridgeSessions.Add(ctx, -1)
}

// RecordRateLimitHit counts a rejected request; keyType is "ip" or "api_key"
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}
