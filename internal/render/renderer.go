package render

import (
	"strings"
	"time"

	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/types"
)

// ListKind names one of the text lists of the result panel
type ListKind string

const (
	ListStrengths       ListKind = "strengths"
	ListGaps            ListKind = "gaps"
	ListRecommendations ListKind = "recommendations"
)

// TagGroup names one of the skill tag groups
type TagGroup string

const (
	TagsMatched TagGroup = "matched"
	TagsMissing TagGroup = "missing"
)

// Row is one list item. Placeholder rows are shown in italics.
type Row struct {
	Text        string `json:"text"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Tag is one skill tag
type Tag struct {
	Text        string `json:"text"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// ResultView is the result panel of the page
type ResultView interface {
	ClearResults()
	SetScoreBand(band Band)
	SetScore(value int)
	SetSummary(text string)
	SetList(kind ListKind, rows []Row)
	SetTags(group TagGroup, tags []Tag)
}

// ScoreSettler is implemented by views that want to know when the
// count-up reached its final value.
type ScoreSettler interface {
	ScoreSettled(value int, band Band)
}

// Options configures a Renderer
type Options struct {
	Steps    int
	Interval time.Duration
	Messages config.MessagesConfig
	Ticker   TickerFunc
}

// OptionsFromConfig builds renderer options from application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Steps:    cfg.Render.AnimationSteps,
		Interval: cfg.Render.AnimationInterval,
		Messages: cfg.Form.Messages,
	}
}

// Renderer maps an AnalysisResult onto a ResultView
type Renderer struct {
	view     ResultView
	animator *Animator
	messages config.MessagesConfig
	logger   *errors.Logger
}

// NewRenderer creates a renderer drawing into view
func NewRenderer(view ResultView, opts Options, logger *errors.Logger) *Renderer {
	if opts.Steps <= 0 {
		opts.Steps = 50
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Renderer{
		view:     view,
		animator: NewAnimator(opts.Steps, opts.Interval, opts.Ticker),
		messages: withDefaults(opts.Messages),
		logger:   logger,
	}
}

// Render replaces whatever the panel showed with result and starts the
// score count-up. It returns the settled report.
func (r *Renderer) Render(result *types.AnalysisResult) types.AnalysisReport {
	if result == nil {
		result = &types.AnalysisResult{}
	}

	r.animator.Cancel()
	r.view.ClearResults()

	l := buildLayout(result, r.messages)

	r.view.SetScoreBand(l.band)
	r.view.SetScore(0)
	r.view.SetSummary(l.summary)
	r.view.SetList(ListStrengths, l.strengths)
	r.view.SetList(ListGaps, l.gaps)
	r.view.SetList(ListRecommendations, l.recommendations)
	r.view.SetTags(TagsMatched, l.matched)
	r.view.SetTags(TagsMissing, l.missing)

	r.logger.Debug("Rendering analysis result",
		"target_score", l.score,
		"band", l.band,
		"strengths", len(l.strengths),
		"gaps", len(l.gaps),
		"recommendations", len(l.recommendations))

	settler, _ := r.view.(ScoreSettler)
	r.animator.Start(l.score, r.view.SetScore, func(v int) {
		if settler != nil {
			settler.ScoreSettled(v, l.band)
		}
	})

	return l.report()
}

// Clear cancels the count-up and empties the panel
func (r *Renderer) Clear() {
	r.animator.Cancel()
	r.view.ClearResults()
}

// Wait blocks until the current count-up settles or is cancelled
func (r *Renderer) Wait() {
	r.animator.Wait()
}

// Animating reports whether a count-up is in progress
func (r *Renderer) Animating() bool {
	return r.animator.Active()
}

// BuildReport computes the settled panel contents without a view
func BuildReport(result *types.AnalysisResult, messages config.MessagesConfig) types.AnalysisReport {
	if result == nil {
		result = &types.AnalysisResult{}
	}
	return buildLayout(result, withDefaults(messages)).report()
}

type layout struct {
	score           int
	band            Band
	summary         string
	strengths       []Row
	gaps            []Row
	recommendations []Row
	matched         []Tag
	missing         []Tag
}

func buildLayout(result *types.AnalysisResult, m config.MessagesConfig) layout {
	score := TargetScore(result.RelevanceScore)

	summary := m.SummaryFallback
	if result.Summary != nil && strings.TrimSpace(*result.Summary) != "" {
		summary = *result.Summary
	}

	return layout{
		score:           score,
		band:            BandFor(score),
		summary:         summary,
		strengths:       rows(result.Strengths, m.EmptyList),
		gaps:            rows(result.Gaps, m.EmptyList),
		recommendations: rows(result.Recommendations, m.EmptyList),
		matched:         tags(result.KeySkillsMatched, m.EmptySkills),
		missing:         tags(result.MissingSkills, m.EmptySkills),
	}
}

func rows(items []string, placeholder string) []Row {
	if len(items) == 0 {
		return []Row{{Text: placeholder, Placeholder: true}}
	}
	out := make([]Row, len(items))
	for i, item := range items {
		out[i] = Row{Text: item}
	}
	return out
}

func tags(items []string, placeholder string) []Tag {
	if len(items) == 0 {
		return []Tag{{Text: placeholder, Placeholder: true}}
	}
	out := make([]Tag, len(items))
	for i, item := range items {
		out[i] = Tag{Text: item}
	}
	return out
}

func (l layout) report() types.AnalysisReport {
	rowText := func(rs []Row) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Text
		}
		return out
	}
	tagText := func(ts []Tag) []string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = t.Text
		}
		return out
	}
	return types.AnalysisReport{
		Score:            l.score,
		Band:             string(l.band),
		Summary:          l.summary,
		Strengths:        rowText(l.strengths),
		Gaps:             rowText(l.gaps),
		Recommendations:  rowText(l.recommendations),
		KeySkillsMatched: tagText(l.matched),
		MissingSkills:    tagText(l.missing),
	}
}

func withDefaults(m config.MessagesConfig) config.MessagesConfig {
	d := config.DefaultMessages()
	if m.SummaryFallback == "" {
		m.SummaryFallback = d.SummaryFallback
	}
	if m.EmptyList == "" {
		m.EmptyList = d.EmptyList
	}
	if m.EmptySkills == "" {
		m.EmptySkills = d.EmptySkills
	}
	return m
}
