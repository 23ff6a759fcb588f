package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"resumeform/internal/common"
	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/form"
	"resumeform/internal/view"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume-file>",
	Short: "Submit a resume for analysis and show the result",
	Long: `Upload a resume (PDF, DOCX or TXT) to the analysis endpoint and render
the result in the terminal: an animated relevance score with its band,
the summary, strengths, gaps, recommendations and matched/missing skills.

Use --format to also emit the result as json, text or markdown, to stdout
or to the file given with --output. The command exits non-zero when the
endpoint rejects the submission or cannot be reached.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// A report file without a format gets the default one
		if analyzeOpts.output.OutputFormat == "" && analyzeOpts.output.OutputFile != "" {
			analyzeOpts.output.OutputFormat = cfg.App.DefaultFormat
		}
		if analyzeOpts.output.OutputFormat == "" {
			return nil
		}
		return common.ValidateOutputFormat(analyzeOpts.output.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

type analyzeOptions struct {
	output             common.CommandConfig
	jobDescription     string
	jobDescriptionFile string
	fields             []string
	quiet              bool
}

var analyzeOpts analyzeOptions

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.output.OutputFile, "output", "o", "", "Write the report to this file")
	f.StringVar(&analyzeOpts.output.OutputFormat, "format", "", "Report format: json, text, or markdown")
	f.StringVarP(&analyzeOpts.jobDescription, "job-description", "j", "", "Job description to analyze the resume against")
	f.StringVar(&analyzeOpts.jobDescriptionFile, "job-description-file", "", "Read the job description from a file")
	f.StringArrayVar(&analyzeOpts.fields, "field", nil, "Extra form field as name=value (repeatable)")
	f.BoolVarP(&analyzeOpts.quiet, "quiet", "q", false, "Do not draw the result panel")
	analyzeCmd.MarkFlagsMutuallyExclusive("job-description", "job-description-file")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.NewOutputHandler(nil).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	rt, err := newFormRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	err = runAnalysis(cmd.Context(), cfg, logger, rt.client, rt.opts, args[0], analyzeOpts, os.Stdout, os.Stderr)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return nil
}

// runAnalysis fills one form from the command line, submits it and waits
// for the result panel
func runAnalysis(ctx context.Context, cfg *config.Config, logger *errors.Logger, submitter form.Submitter, opts form.Options,
	path string, flags analyzeOptions, stdout, stderr io.Writer) error {
	fp := common.NewFileProcessor(logger)

	file, err := fp.LoadSelectedFile(path, cfg.App.MaxFileSize, cfg.App.AllowedExtensions)
	if err != nil {
		return err
	}

	fields, err := common.ParseFieldAssignments(flags.fields)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), err)
	}

	jobDescription := flags.jobDescription
	if flags.jobDescriptionFile != "" {
		jobDescription, err = fp.ReadFile(flags.jobDescriptionFile)
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(jobDescription) != "" {
		fields[jobDescriptionField] = jobDescription
	}

	// Keep stdout clean for the report when it goes there
	panel := stdout
	switch {
	case flags.quiet:
		panel = io.Discard
	case flags.output.OutputFormat != "" && flags.output.OutputFile == "":
		panel = stderr
	}

	ctrl := form.NewController(view.NewTerminal(panel, cfg.Render.Color), submitter, opts, logger)
	defer ctrl.Close()

	ctrl.SelectFile(file)
	for name, value := range fields {
		ctrl.SetField(name, value)
	}

	logger.Info("Submitting resume",
		"file", file.Name,
		"size", file.Size,
		"fields", len(fields),
		"output_format", flags.output.OutputFormat)

	return common.RunSubmission(ctx, logger, flags.output, ctrl, common.NewOutputHandlerTo(stdout, logger))
}
