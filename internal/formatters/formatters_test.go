package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"resumeform/internal/types"
)

func sampleReport() types.AnalysisReport {
	return types.AnalysisReport{
		Score:            73,
		Band:             "medium",
		Summary:          "Solid backend profile",
		Strengths:        []string{"Go", "Distributed systems"},
		Gaps:             []string{"No specific items identified"},
		Recommendations:  []string{"Mention Kubernetes work"},
		KeySkillsMatched: []string{"Go", "SQL"},
		MissingSkills:    []string{"None identified"},
	}
}

func TestFormat_Text(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Relevance Score: 73/100 (medium)",
		"Solid backend profile",
		"  - Distributed systems\n",
		"Gaps:\n  - No specific items identified\n",
		"Matched: Go, SQL\n",
		"Missing: None identified\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestFormat_Markdown(t *testing.T) {
	report := sampleReport()
	out, err := GlobalRegistry.Format(&report, "markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# Resume Analysis",
		"**Relevance Score:** 73/100 (medium)",
		"## Recommendations\n\n- Mention Kubernetes work\n",
		"**Matched:** `Go` `SQL`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q:\n%s", want, out)
		}
	}
}

func TestFormat_JSON(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(), "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded types.AnalysisReport
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Score != 73 || decoded.Band != "medium" {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
}

func TestFormat_Unknown(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleReport(), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := GlobalRegistry.Format("plain string", "text"); err == nil {
		t.Error("expected error for text formatting of a non-report")
	}
}

func TestGetSupportedFormats(t *testing.T) {
	got := strings.Join(GlobalRegistry.GetSupportedFormats(), ",")
	if got != "json,markdown,text" {
		t.Errorf("GetSupportedFormats() = %s", got)
	}
}
