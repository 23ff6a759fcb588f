package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumeform/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisReport", &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisReport", &ReportMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisReport, *types.AnalysisReport:
		return "AnalysisReport"
	default:
		return "any"
	}
}

func asReport(data any) (types.AnalysisReport, error) {
	switch r := data.(type) {
	case types.AnalysisReport:
		return r, nil
	case *types.AnalysisReport:
		if r == nil {
			return types.AnalysisReport{}, fmt.Errorf("nil AnalysisReport")
		}
		return *r, nil
	default:
		return types.AnalysisReport{}, fmt.Errorf("expected AnalysisReport, got %T", data)
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ReportTextFormatter handles text formatting for analysis reports
type ReportTextFormatter struct{}

func (rtf *ReportTextFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== RESUME ANALYSIS ===\n\n")
	output.WriteString(fmt.Sprintf("Relevance Score: %d/100 (%s)\n\n", report.Score, report.Band))
	output.WriteString("Summary:\n")
	output.WriteString(report.Summary)
	output.WriteString("\n\n")

	writeTextList(&output, "Strengths", report.Strengths)
	writeTextList(&output, "Gaps", report.Gaps)
	writeTextList(&output, "Recommendations", report.Recommendations)

	output.WriteString("=== SKILLS ===\n")
	output.WriteString(fmt.Sprintf("Matched: %s\n", strings.Join(report.KeySkillsMatched, ", ")))
	output.WriteString(fmt.Sprintf("Missing: %s\n", strings.Join(report.MissingSkills, ", ")))

	return output.String(), nil
}

func writeTextList(output *strings.Builder, title string, items []string) {
	output.WriteString(title + ":\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("  - %s\n", item))
	}
	output.WriteString("\n")
}

func (rtf *ReportTextFormatter) SupportedType() string {
	return "AnalysisReport"
}

// ReportMarkdownFormatter handles markdown formatting for analysis reports
type ReportMarkdownFormatter struct{}

func (rmf *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("# Resume Analysis\n\n")
	output.WriteString(fmt.Sprintf("**Relevance Score:** %d/100 (%s)\n\n", report.Score, report.Band))
	output.WriteString("## Summary\n\n")
	output.WriteString(report.Summary)
	output.WriteString("\n\n")

	writeMarkdownList(&output, "Strengths", report.Strengths)
	writeMarkdownList(&output, "Gaps", report.Gaps)
	writeMarkdownList(&output, "Recommendations", report.Recommendations)

	output.WriteString("## Skills\n\n")
	output.WriteString("**Matched:** ")
	output.WriteString(codeSpans(report.KeySkillsMatched))
	output.WriteString("\n\n")
	output.WriteString("**Missing:** ")
	output.WriteString(codeSpans(report.MissingSkills))
	output.WriteString("\n")

	return output.String(), nil
}

func writeMarkdownList(output *strings.Builder, title string, items []string) {
	output.WriteString(fmt.Sprintf("## %s\n\n", title))
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func codeSpans(items []string) string {
	spans := make([]string, len(items))
	for i, item := range items {
		spans[i] = "`" + strings.ReplaceAll(item, "`", "'") + "`"
	}
	return strings.Join(spans, " ")
}

func (rmf *ReportMarkdownFormatter) SupportedType() string {
	return "AnalysisReport"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
