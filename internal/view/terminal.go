package view

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"resumeform/internal/form"
	"resumeform/internal/input"
	"resumeform/internal/render"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	_ form.FormView       = (*Terminal)(nil)
	_ render.ScoreSettler = (*Terminal)(nil)
	_ input.HintView      = (*Terminal)(nil)
)

var bandColors = map[render.Band]lipgloss.Color{
	render.BandLow:    lipgloss.Color("1"),
	render.BandMedium: lipgloss.Color("3"),
	render.BandHigh:   lipgloss.Color("6"),
}

var listTitles = []struct {
	kind  render.ListKind
	title string
}{
	{render.ListStrengths, "Strengths"},
	{render.ListGaps, "Gaps"},
	{render.ListRecommendations, "Recommendations"},
}

var tagTitles = []struct {
	group render.TagGroup
	title string
}{
	{render.TagsMatched, "Matched skills"},
	{render.TagsMissing, "Missing skills"},
}

type styles struct {
	heading     lipgloss.Style
	chosen      lipgloss.Style
	muted       lipgloss.Style
	placeholder lipgloss.Style
	errorLabel  lipgloss.Style
	bands       map[render.Band]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	s := styles{
		heading:     r.NewStyle().Bold(true),
		chosen:      r.NewStyle().Bold(true),
		muted:       r.NewStyle().Faint(true),
		placeholder: r.NewStyle().Faint(true).Italic(true),
		errorLabel:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		bands:       make(map[render.Band]lipgloss.Style, len(bandColors)),
	}
	for band, color := range bandColors {
		s.bands[band] = r.NewStyle().Bold(true).Foreground(color)
	}
	return s
}

// Terminal draws the form on a text stream. The result panel is printed
// once the score settles; on a TTY the score counts up in place and a
// spinner runs while the form is submitting.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	style  styles
	redraw bool

	spinner  spinner.Spinner
	spinning uint64 // id of the live spinner, 0 when stopped
	spinSeq  uint64

	resultsVisible bool
	settled        bool

	score   int
	band    render.Band
	summary string
	lists   map[render.ListKind][]render.Row
	tags    map[render.TagGroup][]render.Tag
}

// NewTerminal creates a terminal view. colorMode is auto, always or never.
func NewTerminal(out io.Writer, colorMode string) *Terminal {
	tty := IsTerminal(out)

	r := lipgloss.NewRenderer(out)
	switch colorMode {
	case "always":
		r.SetColorProfile(termenv.ANSI)
	case "never":
		r.SetColorProfile(termenv.Ascii)
	default:
		if !tty || os.Getenv("NO_COLOR") != "" {
			r.SetColorProfile(termenv.Ascii)
		}
	}

	return &Terminal{
		out:     out,
		style:   newStyles(r),
		redraw:  tty,
		spinner: spinner.Line,
		lists:   make(map[render.ListKind][]render.Row),
		tags:    make(map[render.TagGroup][]render.Tag),
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (t *Terminal) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}

// clearLineLocked wipes the line a redraw left the cursor on
func (t *Terminal) clearLineLocked() {
	t.printf("\r%s", ansi.EraseEntireLine)
}

func (t *Terminal) SetFileLabel(label string, chosen bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinnerLocked()
	if chosen {
		t.printf("File: %s\n", t.style.chosen.Render(label))
		return
	}
	t.printf("File: %s\n", t.style.muted.Render(label))
}

func (t *Terminal) SetFileHint(hint string) {
	if hint == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("      %s\n", t.style.muted.Render(hint))
}

func (t *Terminal) SetDropHighlight(on bool) {
	if !on {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("%s\n", t.style.muted.Render("Receiving file..."))
}

func (t *Terminal) SetSubmitting(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !on {
		t.stopSpinnerLocked()
		return
	}
	if !t.redraw {
		t.printf("Analyzing...\n")
		return
	}
	if t.spinning != 0 {
		return
	}
	t.spinSeq++
	t.spinning = t.spinSeq
	t.printf("%s Analyzing...", t.spinner.Frames[0])
	go t.spin(t.spinSeq)
}

// spin advances the spinner until a newer state replaces it
func (t *Terminal) spin(id uint64) {
	ticker := time.NewTicker(t.spinner.FPS)
	defer ticker.Stop()

	for frame := 1; ; frame++ {
		<-ticker.C
		t.mu.Lock()
		if t.spinning != id {
			t.mu.Unlock()
			return
		}
		t.clearLineLocked()
		t.printf("%s Analyzing...", t.spinner.Frames[frame%len(t.spinner.Frames)])
		t.mu.Unlock()
	}
}

func (t *Terminal) stopSpinnerLocked() {
	if t.spinning == 0 {
		return
	}
	t.spinning = 0
	t.clearLineLocked()
}

func (t *Terminal) ShowResults() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinnerLocked()
	t.resultsVisible = true
	t.printf("\n%s\n", t.style.heading.Render("=== RESUME ANALYSIS ==="))
	if t.settled {
		t.printScoreLocked(true)
		t.printBodyLocked()
	}
}

func (t *Terminal) HideResults() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resultsVisible = false
}

func (t *Terminal) ShowError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinnerLocked()
	t.printf("%s %s\n", t.style.errorLabel.Render("Error:"), message)
}

// HideError is a no-op: printed lines stay on screen
func (t *Terminal) HideError() {}

// ClearFields is a no-op: the terminal has no editable fields
func (t *Terminal) ClearFields() {}

func (t *Terminal) ScrollTo(region form.Region) {
	if region != form.RegionInput {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("\n")
}

func (t *Terminal) ClearResults() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settled = false
	t.score = 0
	t.summary = ""
	clear(t.lists)
	clear(t.tags)
}

func (t *Terminal) SetScoreBand(b render.Band) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.band = b
}

func (t *Terminal) SetScore(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.score = n
	if t.resultsVisible && t.redraw && !t.settled {
		t.printScoreLocked(false)
	}
}

func (t *Terminal) SetSummary(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary = s
}

func (t *Terminal) SetList(kind render.ListKind, rows []render.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lists[kind] = rows
}

func (t *Terminal) SetTags(group render.TagGroup, tags []render.Tag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tags[group] = tags
}

// ScoreSettled prints the rest of the panel once the count-up ends
func (t *Terminal) ScoreSettled(score int, band render.Band) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.score, t.band = score, band
	t.settled = true
	if !t.resultsVisible {
		return
	}
	t.printScoreLocked(true)
	t.printBodyLocked()
}

func (t *Terminal) printScoreLocked(final bool) {
	num := strconv.Itoa(t.score)
	pad := strings.Repeat(" ", max(0, 3-len(num)))
	line := "Relevance Score: " + pad + t.style.bands[t.band].Render(num) + "/100"
	if final {
		line += fmt.Sprintf(" (%s)", t.band)
	}
	switch {
	case t.redraw:
		t.clearLineLocked()
		t.printf("%s", line)
		if final {
			t.printf("\n")
		}
	case final:
		t.printf("%s\n", line)
	}
}

func (t *Terminal) printBodyLocked() {
	t.printf("\n%s\n%s\n", t.style.heading.Render("Summary"), t.summary)

	for _, l := range listTitles {
		t.printf("\n%s\n", t.style.heading.Render(l.title))
		for _, row := range t.lists[l.kind] {
			if row.Placeholder {
				t.printf("  %s\n", t.style.placeholder.Render(row.Text))
				continue
			}
			t.printf("  - %s\n", row.Text)
		}
	}

	t.printf("\n")
	for _, g := range tagTitles {
		tags := t.tags[g.group]
		parts := make([]string, len(tags))
		for i, tag := range tags {
			if tag.Placeholder {
				parts[i] = t.style.placeholder.Render(tag.Text)
				continue
			}
			parts[i] = "[" + tag.Text + "]"
		}
		t.printf("%s: %s\n", t.style.heading.Render(g.title), strings.Join(parts, " "))
	}
}
