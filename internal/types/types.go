package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SelectedFile is the single file the user chose for upload.
// A new selection replaces it wholesale.
type SelectedFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Content     []byte `json:"-"`
	Path        string `json:"path,omitempty"` // set when the file came from disk
}

// FormPayload is a snapshot of the form taken when a submission starts
type FormPayload struct {
	FileField string            `json:"fileField"`
	File      *SelectedFile     `json:"file,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// AnalysisResult is the endpoint's success body. Every field is optional;
// nil means absent, which is different from an empty list.
type AnalysisResult struct {
	RelevanceScore   *float64 `json:"relevance_score,omitempty"`
	Summary          *string  `json:"summary,omitempty"`
	Strengths        []string `json:"strengths,omitempty"`
	Gaps             []string `json:"gaps,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
	KeySkillsMatched []string `json:"key_skills_matched,omitempty"`
	MissingSkills    []string `json:"missing_skills,omitempty"`
}

// UnmarshalJSON decodes leniently: a field that is null or of the wrong
// type is treated as absent instead of failing the whole body.
// Only a body that is not a JSON object is an error.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("analysis result is not a JSON object: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("analysis result is not a JSON object: null")
	}

	*r = AnalysisResult{
		RelevanceScore:   decodeNumber(raw["relevance_score"]),
		Summary:          decodeString(raw["summary"]),
		Strengths:        decodeStrings(raw["strengths"]),
		Gaps:             decodeStrings(raw["gaps"]),
		Recommendations:  decodeStrings(raw["recommendations"]),
		KeySkillsMatched: decodeStrings(raw["key_skills_matched"]),
		MissingSkills:    decodeStrings(raw["missing_skills"]),
	}
	return nil
}

// DecodeAnalysisResult parses an endpoint success body.
func DecodeAnalysisResult(body []byte) (*AnalysisResult, error) {
	var r AnalysisResult
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// absent reports a missing or null field. Unmarshalling null into a
// value succeeds and leaves it zero, so it is checked first.
func absent(msg json.RawMessage) bool {
	msg = bytes.TrimSpace(msg)
	return len(msg) == 0 || bytes.Equal(msg, []byte("null"))
}

// Numeric strings are not scores.
func decodeNumber(msg json.RawMessage) *float64 {
	if absent(msg) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(msg, &f); err != nil {
		return nil
	}
	return &f
}

func decodeString(msg json.RawMessage) *string {
	if absent(msg) {
		return nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil
	}
	return &s
}

// decodeStrings keeps string items, stringifies scalar items and drops
// null, object and array items.
func decodeStrings(msg json.RawMessage) []string {
	if absent(msg) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		switch item[0] {
		case '"':
			var s string
			if json.Unmarshal(item, &s) == nil {
				out = append(out, s)
			}
		case 't', 'f':
			var b bool
			if json.Unmarshal(item, &b) == nil {
				out = append(out, strconv.FormatBool(b))
			}
		case 'n', '{', '[':
			// null, object, array
		default:
			var n json.Number
			if json.Unmarshal(item, &n) == nil {
				out = append(out, n.String())
			}
		}
	}
	return out
}

// ErrorResponse is the endpoint's failure body
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnalysisReport is what the result panel shows once the score settles,
// placeholders included. Report formatters consume it.
type AnalysisReport struct {
	Score            int      `json:"score"`
	Band             string   `json:"band"`
	Summary          string   `json:"summary"`
	Strengths        []string `json:"strengths"`
	Gaps             []string `json:"gaps"`
	Recommendations  []string `json:"recommendations"`
	KeySkillsMatched []string `json:"keySkillsMatched"`
	MissingSkills    []string `json:"missingSkills"`
}

// EndpointResponse is a response received from the analysis endpoint.
// Any status counts; transport failures never produce one.
type EndpointResponse struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// OK reports a 2xx status
func (r *EndpointResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorMessage returns the body's non-empty "error" string, if any
func (r *EndpointResponse) ErrorMessage() (string, bool) {
	var e ErrorResponse
	if err := json.Unmarshal(r.Body, &e); err != nil {
		return "", false
	}
	if strings.TrimSpace(e.Error) == "" {
		return "", false
	}
	return e.Error, true
}
