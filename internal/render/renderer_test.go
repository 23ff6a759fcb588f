package render

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"resumeform/internal/config"
	"resumeform/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingView captures everything the renderer draws
type recordingView struct {
	mu      sync.Mutex
	clears  int
	band    Band
	scores  []int
	summary string
	lists   map[ListKind][]Row
	tags    map[TagGroup][]Tag
	settled []int
}

func newRecordingView() *recordingView {
	return &recordingView{lists: map[ListKind][]Row{}, tags: map[TagGroup][]Tag{}}
}

func (v *recordingView) ClearResults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clears++
	v.band = ""
	v.scores = nil
	v.summary = ""
	v.lists = map[ListKind][]Row{}
	v.tags = map[TagGroup][]Tag{}
}

func (v *recordingView) SetScoreBand(b Band) { v.mu.Lock(); v.band = b; v.mu.Unlock() }
func (v *recordingView) SetScore(n int)      { v.mu.Lock(); v.scores = append(v.scores, n); v.mu.Unlock() }
func (v *recordingView) SetSummary(s string) { v.mu.Lock(); v.summary = s; v.mu.Unlock() }

func (v *recordingView) SetList(k ListKind, rows []Row) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lists[k] = append(v.lists[k], rows...)
}

func (v *recordingView) SetTags(g TagGroup, tags []Tag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tags[g] = append(v.tags[g], tags...)
}

func (v *recordingView) ScoreSettled(n int, _ Band) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settled = append(v.settled, n)
}

func (v *recordingView) snapshotScores() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.scores...)
}

// manualTicker hands out channels the test drives tick by tick
type manualTicker struct {
	mu    sync.Mutex
	chans []chan time.Time
}

func (m *manualTicker) ticker(time.Duration) (<-chan time.Time, func()) {
	c := make(chan time.Time)
	m.mu.Lock()
	m.chans = append(m.chans, c)
	m.mu.Unlock()
	return c, func() {}
}

// tick delivers n ticks to the i-th animation
func (m *manualTicker) tick(t *testing.T, i, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.chans) > i
	}, time.Second, time.Millisecond)

	m.mu.Lock()
	c := m.chans[i]
	m.mu.Unlock()
	for range n {
		select {
		case c <- time.Now():
		case <-time.After(time.Second):
			t.Fatalf("animation %d stopped accepting ticks", i)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func newTestRenderer(view ResultView, ticker TickerFunc) *Renderer {
	return NewRenderer(view, Options{
		Steps:    50,
		Interval: 20 * time.Millisecond,
		Messages: config.DefaultMessages(),
		Ticker:   ticker,
	}, nil)
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		raw  float64
		want Band
	}{
		{-10, BandLow},
		{0, BandLow},
		{49, BandLow},
		{50, BandMedium},
		{74, BandMedium},
		{75, BandHigh},
		{100, BandHigh},
		{150, BandHigh},
	}

	for _, tt := range tests {
		got := BandFor(TargetScore(ptr(tt.raw)))
		assert.Equal(t, tt.want, got, "score %v", tt.raw)
	}
}

func TestTargetScore(t *testing.T) {
	assert.Equal(t, 0, TargetScore(nil))
	assert.Equal(t, 0, TargetScore(ptr(-3.0)))
	assert.Equal(t, 100, TargetScore(ptr(150.0)))
	assert.Equal(t, 73, TargetScore(ptr(73.4)))
	assert.Equal(t, 74, TargetScore(ptr(73.5)))
}

func TestAnimationEndsOnTarget(t *testing.T) {
	for _, target := range []float64{0, 1, 73, 100} {
		t.Run(fmt.Sprintf("target_%v", target), func(t *testing.T) {
			view := newRecordingView()
			mt := &manualTicker{}
			r := newTestRenderer(view, mt.ticker)

			r.Render(&types.AnalysisResult{RelevanceScore: ptr(target)})
			mt.tick(t, 0, 50)
			r.Wait()

			scores := view.snapshotScores()
			require.Len(t, scores, 51) // initial zero plus 50 frames
			assert.Equal(t, int(target), scores[len(scores)-1])
			for i := 1; i < len(scores); i++ {
				assert.GreaterOrEqual(t, scores[i], scores[i-1])
			}
			assert.Equal(t, []int{int(target)}, view.settled)
			assert.False(t, r.Animating())
		})
	}
}

func TestAnimationWithRealTicker(t *testing.T) {
	view := newRecordingView()
	r := NewRenderer(view, Options{Steps: 5, Interval: time.Millisecond}, nil)

	r.Render(&types.AnalysisResult{RelevanceScore: ptr(42.0)})
	r.Wait()

	assert.Equal(t, []int{0, 8, 17, 25, 34, 42}, view.snapshotScores())
}

func TestSecondRenderCancelsFirstAnimation(t *testing.T) {
	view := newRecordingView()
	mt := &manualTicker{}
	r := newTestRenderer(view, mt.ticker)

	r.Render(&types.AnalysisResult{RelevanceScore: ptr(90.0)})
	mt.tick(t, 0, 10)

	r.Render(&types.AnalysisResult{RelevanceScore: ptr(40.0)})
	assert.Equal(t, 2, view.clears)
	assert.Equal(t, []int{0}, view.snapshotScores(), "panel cleared before the new count-up")

	mt.tick(t, 1, 50)
	r.Wait()

	scores := view.snapshotScores()
	assert.Len(t, scores, 51)
	assert.Equal(t, 40, scores[len(scores)-1])
	for _, s := range scores {
		assert.LessOrEqual(t, s, 40, "no frame of the cancelled animation leaked")
	}
	assert.Equal(t, []int{40}, view.settled)
}

func TestClearStopsAnimation(t *testing.T) {
	view := newRecordingView()
	mt := &manualTicker{}
	r := newTestRenderer(view, mt.ticker)

	r.Render(&types.AnalysisResult{RelevanceScore: ptr(80.0)})
	mt.tick(t, 0, 3)
	r.Clear()

	assert.False(t, r.Animating())
	assert.Empty(t, view.snapshotScores())
	assert.Empty(t, view.settled)
}

func TestRenderPlaceholders(t *testing.T) {
	view := newRecordingView()
	r := NewRenderer(view, Options{Steps: 1}, nil)

	report := r.Render(&types.AnalysisResult{Gaps: []string{}})
	r.Wait()

	placeholderRow := []Row{{Text: "No specific items identified", Placeholder: true}}
	placeholderTag := []Tag{{Text: "None identified", Placeholder: true}}

	assert.Equal(t, placeholderRow, view.lists[ListStrengths])
	assert.Equal(t, placeholderRow, view.lists[ListGaps])
	assert.Equal(t, placeholderRow, view.lists[ListRecommendations])
	assert.Equal(t, placeholderTag, view.tags[TagsMatched])
	assert.Equal(t, placeholderTag, view.tags[TagsMissing])
	assert.Equal(t, "Analysis completed", view.summary)
	assert.Equal(t, BandLow, view.band)

	assert.Equal(t, 0, report.Score)
	assert.Equal(t, "low", report.Band)
	assert.Equal(t, []string{"No specific items identified"}, report.Gaps)
	assert.Equal(t, []string{"None identified"}, report.MissingSkills)
}

func TestRenderKeepsInputOrder(t *testing.T) {
	view := newRecordingView()
	r := NewRenderer(view, Options{Steps: 1}, nil)

	r.Render(&types.AnalysisResult{
		RelevanceScore:   ptr(61.0),
		Summary:          ptr("Solid"),
		Strengths:        []string{"b", "a", "c"},
		KeySkillsMatched: []string{"go", "sql"},
	})
	r.Wait()

	assert.Equal(t, []Row{{Text: "b"}, {Text: "a"}, {Text: "c"}}, view.lists[ListStrengths])
	assert.Equal(t, []Tag{{Text: "go"}, {Text: "sql"}}, view.tags[TagsMatched])
	assert.Equal(t, "Solid", view.summary)
	assert.Equal(t, BandMedium, view.band)
}

func TestRenderReplacesPreviousContent(t *testing.T) {
	view := newRecordingView()
	r := NewRenderer(view, Options{Steps: 1}, nil)

	r.Render(&types.AnalysisResult{Strengths: []string{"one", "two"}})
	r.Wait()
	r.Render(&types.AnalysisResult{Strengths: []string{"three"}})
	r.Wait()

	assert.Equal(t, []Row{{Text: "three"}}, view.lists[ListStrengths])
}

func TestRenderNilResult(t *testing.T) {
	view := newRecordingView()
	r := NewRenderer(view, Options{Steps: 1}, nil)

	assert.NotPanics(t, func() {
		r.Render(nil)
		r.Wait()
	})
	assert.Equal(t, "Analysis completed", view.summary)
}

func TestBuildReportBlankSummary(t *testing.T) {
	report := BuildReport(&types.AnalysisResult{Summary: ptr("   ")}, config.MessagesConfig{})
	assert.Equal(t, "Analysis completed", report.Summary)
}
