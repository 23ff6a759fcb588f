package common

import (
	"context"
	stderrors "errors"

	"resumeform/internal/errors"
	"resumeform/internal/form"
	"resumeform/internal/types"
)

// FormRunner is the part of a form controller a one-shot command drives
type FormRunner interface {
	Submit(ctx context.Context) (form.State, error)
	WaitRender()
	LastReport() *types.AnalysisReport
	LastError() string
}

// RunSubmission submits the form once, waits for the score to settle and
// writes the report through output when an output format is configured.
// A nil output writes to stdout. A form that ends in the error panel
// returns an error carrying the shown message.
func RunSubmission(ctx context.Context, logger *errors.Logger, cmdConfig CommandConfig, runner FormRunner, output *OutputHandler) error {
	if logger == nil {
		logger = errors.Discard()
	}
	if output == nil {
		output = NewOutputHandler(logger)
	}

	state, err := runner.Submit(ctx)
	if err != nil {
		if stderrors.Is(err, form.ErrStaleResponse) {
			logger.Info("Submission was reset before the response arrived")
			return nil
		}
		return err
	}

	switch state {
	case form.StateShowingResults:
		runner.WaitRender()
		report := runner.LastReport()
		if report == nil || cmdConfig.OutputFormat == "" {
			return nil
		}
		return output.HandleOutput(*report, cmdConfig)

	case form.StateShowingError:
		return errors.NewServerError(errors.ErrCodeServerRejected, runner.LastError(), nil)

	default:
		logger.Debug("Submission ended without an outcome panel", "state", state.String())
		return nil
	}
}
