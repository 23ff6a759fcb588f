package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"resumeform/internal/common"
	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/form"
	"resumeform/internal/input"
	"resumeform/internal/observability"
	"resumeform/internal/types"
	"resumeform/internal/view"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a folder and analyze every resume dropped into it",
	Long: `Watch a drop folder. A file copied into the folder is treated like a file
dropped on the form: while it is being written the drop target is
highlighted, and once it settles it becomes the selected file and is
submitted for analysis (disable with --submit=false).

Send SIGHUP to reset the form. The folder defaults to dropzone.dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

type watchOptions struct {
	submit   bool
	debounce time.Duration
}

var watchOpts watchOptions

func init() {
	watchCmd.Flags().BoolVar(&watchOpts.submit, "submit", true, "Submit each dropped file (default from dropzone.submitOnDrop)")
	watchCmd.Flags().DurationVar(&watchOpts.debounce, "debounce", 0, "Quiet period before a drop is accepted (default from dropzone.debounceDelay)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	dir := cfg.Dropzone.Dir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "no drop folder given and dropzone.dir is not set", nil)
	}

	opts := watchOptions{submit: cfg.Dropzone.SubmitOnDrop, debounce: cfg.Dropzone.DebounceDelay}
	if cmd.Flags().Changed("submit") {
		opts.submit = watchOpts.submit
	}
	if cmd.Flags().Changed("debounce") {
		opts.debounce = watchOpts.debounce
	}

	rt, err := newFormRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	resets := make(chan struct{}, 1)
	go func() {
		for range hup {
			select {
			case resets <- struct{}{}:
			default:
			}
		}
	}()

	return watchFolder(cmd.Context(), cfg, logger, rt.client, rt.opts, rt.om.Metrics(), dir, opts, resets, os.Stdout)
}

// watchFolder runs one form fed by the drop folder until ctx is done
func watchFolder(ctx context.Context, cfg *config.Config, logger *errors.Logger, submitter form.Submitter, opts form.Options,
	metrics *observability.Metrics, dir string, wopts watchOptions, resets <-chan struct{}, out io.Writer) error {
	ctrl := form.NewController(view.NewTerminal(out, cfg.Render.Color), submitter, opts, logger)
	defer ctrl.Close()

	drops := make(chan *types.SelectedFile, 1)
	fp := common.NewFileProcessor(logger)
	dz, err := input.NewDropzone(dir, wopts.debounce, ctrl.Normalizer(), fp.Loader(cfg.App.MaxFileSize, cfg.App.AllowedExtensions),
		func(file *types.SelectedFile) {
			metrics.RecordDrop(ctx, "folder", true)
			select {
			case drops <- file:
			default:
				// a submission is being started for an earlier drop
			}
		}, logger)
	if err != nil {
		return err
	}
	if err := dz.Start(); err != nil {
		return err
	}
	defer func() {
		if err := dz.Stop(); err != nil {
			logger.LogError(err, "Failed to stop drop folder watcher")
		}
	}()

	ctrl.Normalizer().Clear()
	_, _ = fmt.Fprintf(out, "Watching %s for resumes (Ctrl+C to stop)\n", dir)

	var submissions sync.WaitGroup
	defer submissions.Wait()

	for {
		select {
		case <-ctx.Done():
			ctrl.Close()
			return nil

		case <-resets:
			logger.Info("Reset requested")
			ctrl.Reset()

		case file := <-drops:
			if !wopts.submit {
				continue
			}
			logger.Info("Submitting dropped file", "file", file.Name)
			submissions.Add(1)
			go func() {
				defer submissions.Done()
				state, err := ctrl.Submit(ctx)
				switch {
				case stderrors.Is(err, form.ErrSubmissionInFlight):
					logger.Info("Previous submission still running, keeping the new file selected")
				case err != nil:
					logger.Debug("Submission discarded", "error", err.Error())
				default:
					logger.Debug("Submission finished", "state", state.String())
				}
			}()
		}
	}
}
