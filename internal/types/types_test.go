package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnalysisResultFull(t *testing.T) {
	body := `{
		"relevance_score": 73.4,
		"summary": "Strong backend match",
		"strengths": ["Go", "Kubernetes"],
		"gaps": [],
		"recommendations": ["Add metrics"],
		"key_skills_matched": ["go", "grpc"],
		"missing_skills": ["rust"]
	}`

	r, err := DecodeAnalysisResult([]byte(body))
	require.NoError(t, err)

	require.NotNil(t, r.RelevanceScore)
	assert.InDelta(t, 73.4, *r.RelevanceScore, 1e-9)
	require.NotNil(t, r.Summary)
	assert.Equal(t, "Strong backend match", *r.Summary)
	assert.Equal(t, []string{"Go", "Kubernetes"}, r.Strengths)
	assert.NotNil(t, r.Gaps)
	assert.Empty(t, r.Gaps)
	assert.Equal(t, []string{"Add metrics"}, r.Recommendations)
	assert.Equal(t, []string{"go", "grpc"}, r.KeySkillsMatched)
	assert.Equal(t, []string{"rust"}, r.MissingSkills)
}

func TestDecodeAnalysisResultTolerance(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, r *AnalysisResult)
	}{
		{
			name: "empty object",
			body: `{}`,
			check: func(t *testing.T, r *AnalysisResult) {
				assert.Nil(t, r.RelevanceScore)
				assert.Nil(t, r.Summary)
				assert.Nil(t, r.Strengths)
				assert.Nil(t, r.MissingSkills)
			},
		},
		{
			name: "nulls everywhere",
			body: `{"relevance_score":null,"summary":null,"strengths":null,"key_skills_matched":null}`,
			check: func(t *testing.T, r *AnalysisResult) {
				assert.Nil(t, r.RelevanceScore)
				assert.Nil(t, r.Summary)
				assert.Nil(t, r.Strengths)
				assert.Nil(t, r.KeySkillsMatched)
			},
		},
		{
			name: "null differs from an empty list",
			body: `{"gaps": [], "missing_skills": null, "summary": ""}`,
			check: func(t *testing.T, r *AnalysisResult) {
				require.NotNil(t, r.Gaps)
				assert.Empty(t, r.Gaps)
				assert.Nil(t, r.MissingSkills)
				require.NotNil(t, r.Summary)
				assert.Equal(t, "", *r.Summary)
			},
		},
		{
			name: "wrong types",
			body: `{"relevance_score":"85","summary":42,"strengths":"Go","gaps":{"a":1}}`,
			check: func(t *testing.T, r *AnalysisResult) {
				assert.Nil(t, r.RelevanceScore)
				assert.Nil(t, r.Summary)
				assert.Nil(t, r.Strengths)
				assert.Nil(t, r.Gaps)
			},
		},
		{
			name: "mixed list items",
			body: `{"strengths":["Go", 3, true, null, {"x":1}, ["y"], "SQL"]}`,
			check: func(t *testing.T, r *AnalysisResult) {
				assert.Equal(t, []string{"Go", "3", "true", "SQL"}, r.Strengths)
			},
		},
		{
			name: "out of range score is kept for the renderer to clamp",
			body: `{"relevance_score":150}`,
			check: func(t *testing.T, r *AnalysisResult) {
				require.NotNil(t, r.RelevanceScore)
				assert.Equal(t, 150.0, *r.RelevanceScore)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeAnalysisResult([]byte(tt.body))
			require.NoError(t, err)
			tt.check(t, r)
		})
	}
}

func TestDecodeAnalysisResultRejectsNonObjects(t *testing.T) {
	for _, body := range []string{``, `null`, `[]`, `"ok"`, `<html>`, `42`} {
		t.Run(body, func(t *testing.T) {
			_, err := DecodeAnalysisResult([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestEndpointResponseErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{"error field", `{"error":"bad file type"}`, "bad file type", true},
		{"empty body", ``, "", false},
		{"blank error", `{"error":"  "}`, "", false},
		{"wrong type", `{"error":42}`, "", false},
		{"html page", `<html>502</html>`, "", false},
		{"no error field", `{"detail":"nope"}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &EndpointResponse{StatusCode: 400, Body: []byte(tt.body)}
			got, ok := resp.ErrorMessage()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.False(t, resp.OK())
		})
	}
}
