package input

import (
	"sync"
	"testing"

	"resumeform/internal/config"
	"resumeform/internal/types"

	"github.com/stretchr/testify/assert"
)

type labelCall struct {
	label  string
	chosen bool
}

type fakeDropView struct {
	mu         sync.Mutex
	labels     []labelCall
	highlights []bool
	hints      []string
}

func (v *fakeDropView) SetFileLabel(label string, chosen bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.labels = append(v.labels, labelCall{label, chosen})
}

func (v *fakeDropView) SetDropHighlight(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.highlights = append(v.highlights, on)
}

func (v *fakeDropView) SetFileHint(hint string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hints = append(v.hints, hint)
}

func (v *fakeDropView) lastLabel() labelCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.labels) == 0 {
		return labelCall{}
	}
	return v.labels[len(v.labels)-1]
}

func (v *fakeDropView) highlightCalls() []bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]bool(nil), v.highlights...)
}

func file(name string) *types.SelectedFile {
	return &types.SelectedFile{Name: name, Size: 10, Content: []byte("plain text")}
}

func TestNormalizer_Pick(t *testing.T) {
	view := &fakeDropView{}
	n := NewNormalizer(view, "", nil)

	n.Pick([]*types.SelectedFile{file("cv.pdf"), file("other.pdf")})
	assert.Equal(t, labelCall{"cv.pdf", true}, view.lastLabel())
	assert.Equal(t, "cv.pdf", n.Selected().Name)

	// cancelled dialog
	n.Pick(nil)
	assert.Equal(t, labelCall{config.DefaultFilePrompt, false}, view.lastLabel())
	assert.Nil(t, n.Selected())
}

func TestNormalizer_CustomPrompt(t *testing.T) {
	view := &fakeDropView{}
	n := NewNormalizer(view, "Drop it here", nil)

	n.SetSelectedFile(nil)
	assert.Equal(t, labelCall{"Drop it here", false}, view.lastLabel())
}

func TestNormalizer_HandleDrag(t *testing.T) {
	tests := []struct {
		name          string
		events        []DragEvent
		wantHighlight bool
		wantSelected  string
	}{
		{
			name:          "enter highlights",
			events:        []DragEvent{{Type: DragEnter}},
			wantHighlight: true,
		},
		{
			name:          "over keeps highlight",
			events:        []DragEvent{{Type: DragEnter}, {Type: DragOver}, {Type: DragOver}},
			wantHighlight: true,
		},
		{
			name:   "leave removes highlight",
			events: []DragEvent{{Type: DragEnter}, {Type: DragLeave}},
		},
		{
			name:         "drop selects first file",
			events:       []DragEvent{{Type: DragEnter}, {Type: Drop, Files: []*types.SelectedFile{file("a.pdf"), file("b.pdf")}}},
			wantSelected: "a.pdf",
		},
		{
			name:   "drop without files only clears highlight",
			events: []DragEvent{{Type: DragEnter}, {Type: Drop}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := &fakeDropView{}
			n := NewNormalizer(view, "", nil)

			for _, ev := range tt.events {
				res := n.HandleDrag(ev)
				assert.True(t, res.PreventDefault)
				assert.True(t, res.StopPropagation)
			}

			assert.Equal(t, tt.wantHighlight, n.Highlighted())
			if tt.wantSelected == "" {
				assert.Nil(t, n.Selected())
			} else {
				assert.Equal(t, tt.wantSelected, n.Selected().Name)
			}
		})
	}
}

func TestNormalizer_DropWithoutFilesKeepsSelection(t *testing.T) {
	view := &fakeDropView{}
	n := NewNormalizer(view, "", nil)

	n.SetSelectedFile(file("cv.txt"))
	res := n.HandleDrag(DragEvent{Type: Drop})

	assert.Nil(t, res.Accepted)
	assert.Equal(t, "cv.txt", n.Selected().Name)
}

func TestNormalizer_HighlightOnlyOnChange(t *testing.T) {
	view := &fakeDropView{}
	n := NewNormalizer(view, "", nil)

	n.HandleDrag(DragEvent{Type: DragEnter})
	n.HandleDrag(DragEvent{Type: DragOver})
	n.HandleDrag(DragEvent{Type: DragOver})
	n.HandleDrag(DragEvent{Type: DragLeave})
	n.HandleDrag(DragEvent{Type: DragLeave})

	assert.Equal(t, []bool{true, false}, view.highlightCalls())
}

func TestNormalizer_UnknownEventIsSuppressed(t *testing.T) {
	n := NewNormalizer(&fakeDropView{}, "", nil)

	res := n.HandleDrag(DragEvent{Type: "dragend"})
	assert.True(t, res.PreventDefault)
	assert.True(t, res.StopPropagation)
	assert.Nil(t, res.Accepted)
}

func TestNormalizer_HintFollowsSelection(t *testing.T) {
	view := &fakeDropView{}
	n := NewNormalizer(view, "", nil)

	n.SetSelectedFile(&types.SelectedFile{Name: "cv.txt", Size: 2048, Content: []byte("one two three")})
	n.Clear()

	assert.Equal(t, []string{"TXT, 3 words, 2.0 KB", ""}, view.hints)
	assert.Equal(t, labelCall{config.DefaultFilePrompt, false}, view.lastLabel())
}
