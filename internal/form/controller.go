package form

import (
	"context"
	"maps"
	"sync"
	"time"

	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/input"
	"resumeform/internal/render"
	"resumeform/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Region is a scroll target on the page
type Region string

const (
	RegionInput   Region = "input"
	RegionResults Region = "results"
	RegionError   Region = "error"
)

// FormView is everything the controller drives. Implementations must be
// safe for concurrent use: the score count-up draws from its own goroutine.
type FormView interface {
	input.DropTargetView
	render.ResultView

	// SetSubmitting disables the trigger and shows the spinner, or the reverse
	SetSubmitting(on bool)
	ShowResults()
	HideResults()
	ShowError(message string)
	HideError()
	// ClearFields empties the non-file inputs
	ClearFields()
	ScrollTo(region Region)
}

// Submitter posts a payload to the analysis endpoint. A non-nil error means
// no response was received.
type Submitter interface {
	Submit(ctx context.Context, payload types.FormPayload) (*types.EndpointResponse, error)
}

// Outcome classifies a finished submission
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeServerError  Outcome = "server_error"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeMalformed    Outcome = "malformed_response"
)

// Recorder receives submission metrics
type Recorder interface {
	RecordSubmission(ctx context.Context, outcome Outcome, duration time.Duration)
	RecordStaleResponse(ctx context.Context)
	RecordRender(ctx context.Context, band string)
}

// Options configures a Controller
type Options struct {
	FileField string
	Fields    map[string]string // defaults restored on reset
	Messages  config.MessagesConfig
	Render    render.Options
	Recorder  Recorder
}

// OptionsFromConfig builds controller options from application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FileField: cfg.Form.FileField,
		Fields:    cfg.Form.Fields,
		Messages:  cfg.Form.Messages,
		Render:    render.OptionsFromConfig(cfg),
	}
}

type submission struct {
	generation uint64
	cancel     context.CancelFunc
	once       sync.Once
}

// release clears the submitting indicator; only the first call has effect
func (s *submission) release(view FormView) {
	s.once.Do(func() {
		view.SetSubmitting(false)
	})
}

// Controller owns one form's lifecycle
type Controller struct {
	mu sync.Mutex

	view       FormView
	submitter  Submitter
	normalizer *input.Normalizer
	renderer   *render.Renderer
	recorder   Recorder
	tracer     trace.Tracer
	logger     *errors.Logger

	fileField string
	defaults  map[string]string
	messages  config.MessagesConfig

	state      State
	generation uint64
	current    *submission
	fields     map[string]string
	lastReport *types.AnalysisReport
	lastError  string
}

// NewController creates a controller in the Idle state
func NewController(view FormView, submitter Submitter, opts Options, logger *errors.Logger) *Controller {
	if logger == nil {
		logger = errors.Discard()
	}
	if opts.FileField == "" {
		opts.FileField = config.DefaultFileField
	}
	messages := opts.Messages
	defaults := config.DefaultMessages()
	if messages.GenericError == "" {
		messages.GenericError = defaults.GenericError
	}
	if messages.NetworkError == "" {
		messages.NetworkError = defaults.NetworkError
	}
	if messages.FilePrompt == "" {
		messages.FilePrompt = defaults.FilePrompt
	}
	opts.Render.Messages = messages

	return &Controller{
		view:       view,
		submitter:  submitter,
		normalizer: input.NewNormalizer(view, messages.FilePrompt, logger),
		renderer:   render.NewRenderer(view, opts.Render, logger),
		recorder:   opts.Recorder,
		tracer:     otel.Tracer("resumeform/form"),
		logger:     logger,
		fileField:  opts.FileField,
		defaults:   maps.Clone(opts.Fields),
		messages:   messages,
		state:      StateIdle,
		fields:     maps.Clone(opts.Fields),
	}
}

// Normalizer returns the input normalizer feeding this form
func (c *Controller) Normalizer() *input.Normalizer {
	return c.normalizer
}

// SelectFile is the picker path: nil clears the selection
func (c *Controller) SelectFile(file *types.SelectedFile) {
	c.mu.Lock()
	c.state, _ = Transition(c.state, EventFileSelected)
	c.mu.Unlock()

	c.normalizer.SetSelectedFile(file)
}

// HandleDrag forwards a drag-and-drop event to the drop target
func (c *Controller) HandleDrag(ev input.DragEvent) input.DragResult {
	res := c.normalizer.HandleDrag(ev)
	if res.Accepted != nil {
		c.mu.Lock()
		c.state, _ = Transition(c.state, EventFileSelected)
		c.mu.Unlock()
	}
	return res
}

// SetField sets a non-file form field
func (c *Controller) SetField(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fields == nil {
		c.fields = make(map[string]string)
	}
	c.fields[name] = value
}

// Fields returns a copy of the current non-file fields
func (c *Controller) Fields() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.fields)
}

// Submit sends the form and blocks until the outcome is shown. It returns
// the state the form ended in. A handled server or transport failure is
// not an error: the form shows it and stays usable. Errors are
// ErrSubmissionInFlight and ErrStaleResponse.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	c.mu.Lock()
	next, err := Transition(c.state, EventSubmit)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("Submit ignored", "state", state.String(), "reason", err.Error())
		return state, err
	}

	c.generation++
	ctx, cancel := context.WithCancel(ctx)
	sub := &submission{generation: c.generation, cancel: cancel}
	c.current = sub
	c.state = next
	c.lastReport = nil
	c.lastError = ""

	c.view.HideResults()
	c.view.HideError()
	c.view.SetSubmitting(true)
	payload := c.payloadLocked()
	c.mu.Unlock()

	defer c.abandon(sub)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "form.submit", trace.WithAttributes(
		attribute.Int64("form.generation", int64(sub.generation)),
		attribute.Bool("form.has_file", payload.File != nil),
	))
	defer span.End()

	start := time.Now()
	c.logger.Debug("Submitting form", "generation", sub.generation, "fields", len(payload.Fields))
	resp, sendErr := c.submitter.Submit(ctx, payload)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if sub.generation != c.generation {
		c.logger.Info("Discarding stale response", "generation", sub.generation, "current", c.generation)
		span.SetAttributes(attribute.Bool("form.stale", true))
		if c.recorder != nil {
			c.recorder.RecordStaleResponse(ctx)
		}
		return c.state, ErrStaleResponse
	}
	c.current = nil

	if sendErr == nil && resp == nil {
		sendErr = errors.NewInternalError(errors.ErrCodeEndpointUnreachable, "submitter returned no response", nil)
	}

	var outcome Outcome
	switch {
	case sendErr != nil:
		outcome = OutcomeNetworkError
		c.logger.LogError(sendErr, "Submission failed without a response", "generation", sub.generation)
		span.RecordError(sendErr)
		c.failLocked(c.messages.NetworkError)

	case resp.OK():
		result, decodeErr := types.DecodeAnalysisResult(resp.Body)
		if decodeErr != nil {
			outcome = OutcomeMalformed
			c.logger.LogError(
				errors.NewServerError(errors.ErrCodeMalformedResponse, "endpoint returned an unreadable result", decodeErr),
				"Rejecting analysis result", "request_id", resp.RequestID)
			c.failLocked(c.messages.GenericError)
			break
		}
		outcome = OutcomeSuccess
		c.succeedLocked(ctx, result)

	default:
		outcome = OutcomeServerError
		message, ok := resp.ErrorMessage()
		if !ok {
			message = c.messages.GenericError
		}
		c.logger.Warn("Endpoint rejected submission",
			"status", resp.StatusCode, "request_id", resp.RequestID, "message", message)
		c.failLocked(message)
	}

	sub.release(c.view)

	span.SetAttributes(attribute.String("form.outcome", string(outcome)))
	if outcome != OutcomeSuccess {
		span.SetStatus(codes.Error, string(outcome))
	}
	if c.recorder != nil {
		c.recorder.RecordSubmission(ctx, outcome, elapsed)
	}
	return c.state, nil
}

// abandon runs on every exit from Submit. It is a no-op once the
// submission was handled or reset; after a panic in the submitter it
// leaves the form showing the generic error with the trigger enabled.
func (c *Controller) abandon(sub *submission) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == sub {
		c.current = nil
		c.failLocked(c.messages.GenericError)
	}
	sub.release(c.view)
}

func (c *Controller) succeedLocked(ctx context.Context, result *types.AnalysisResult) {
	c.state, _ = Transition(c.state, EventSucceeded)

	report := c.renderer.Render(result)
	c.lastReport = &report
	c.view.ShowResults()
	c.view.ScrollTo(RegionResults)

	c.logger.Info("Analysis displayed", "score", report.Score, "band", report.Band)
	if c.recorder != nil {
		c.recorder.RecordRender(ctx, report.Band)
	}
}

func (c *Controller) failLocked(message string) {
	c.state, _ = Transition(c.state, EventFailed)
	c.lastError = message
	c.view.ShowError(message)
	c.view.ScrollTo(RegionError)
}

func (c *Controller) payloadLocked() types.FormPayload {
	return types.FormPayload{
		FileField: c.fileField,
		File:      c.normalizer.Selected(),
		Fields:    maps.Clone(c.fields),
	}
}

// Reset returns the form to pristine: no file, default field values, both
// panels hidden, view at the input region, state Idle. A pending
// submission is cancelled and its response will be discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.state
	c.generation++
	if c.current != nil {
		c.current.cancel()
		c.current.release(c.view)
		c.current = nil
	}

	c.normalizer.Clear()
	c.fields = maps.Clone(c.defaults)
	c.view.ClearFields()

	c.renderer.Clear()
	c.view.HideResults()
	c.view.HideError()
	c.view.ScrollTo(RegionInput)

	c.lastReport = nil
	c.lastError = ""
	c.state, _ = Transition(c.state, EventReset)

	c.logger.Debug("Form reset", "from", from.String(), "generation", c.generation)
}

// State returns the current form state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the submission generation counter
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// LastReport returns the settled contents of the result panel while it is
// shown, nil otherwise
func (c *Controller) LastReport() *types.AnalysisReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReport
}

// LastError returns the message in the error panel while it is shown
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// WaitRender blocks until the score count-up settles
func (c *Controller) WaitRender() {
	c.renderer.Wait()
}

// Close stops the count-up and cancels a pending submission
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.cancel()
	}
	c.renderer.Clear()
}
