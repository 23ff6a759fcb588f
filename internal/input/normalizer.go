package input

import (
	"sync"

	"resumeform/internal/config"
	"resumeform/internal/errors"
	"resumeform/internal/types"
)

// DropTargetView is the file area of the form: its label and drop highlight
type DropTargetView interface {
	SetFileLabel(label string, chosen bool)
	SetDropHighlight(on bool)
}

// HintView is implemented by views that show extra details about the
// chosen file
type HintView interface {
	SetFileHint(hint string)
}

// DragEventType is the kind of a drag-and-drop event
type DragEventType string

const (
	DragEnter DragEventType = "dragenter"
	DragOver  DragEventType = "dragover"
	DragLeave DragEventType = "dragleave"
	Drop      DragEventType = "drop"
)

// DragEvent is a drag-and-drop event delivered to the drop target
type DragEvent struct {
	Type  DragEventType
	Files []*types.SelectedFile
}

// DragResult tells the host what to do with the original event.
// Every drag event suppresses the host default and stops propagation,
// otherwise a dropped file would be opened by the host itself.
type DragResult struct {
	PreventDefault  bool
	StopPropagation bool
	Accepted        *types.SelectedFile // set when a drop selected a file
}

// Normalizer turns picker changes and drops into one "file chosen" update
type Normalizer struct {
	mu          sync.Mutex
	view        DropTargetView
	prompt      string
	selected    *types.SelectedFile
	highlighted bool
	logger      *errors.Logger
}

// NewNormalizer creates a normalizer updating view. An empty prompt
// uses the default label.
func NewNormalizer(view DropTargetView, prompt string, logger *errors.Logger) *Normalizer {
	if prompt == "" {
		prompt = config.DefaultFilePrompt
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Normalizer{view: view, prompt: prompt, logger: logger}
}

// SetSelectedFile replaces the selection and updates the label.
// nil clears it and restores the prompt.
func (n *Normalizer) SetSelectedFile(file *types.SelectedFile) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.setLocked(file)
}

func (n *Normalizer) setLocked(file *types.SelectedFile) {
	n.selected = file

	if file == nil {
		n.view.SetFileLabel(n.prompt, false)
		if hv, ok := n.view.(HintView); ok {
			hv.SetFileHint("")
		}
		return
	}

	n.view.SetFileLabel(file.Name, true)
	if hv, ok := n.view.(HintView); ok {
		hv.SetFileHint(Describe(file))
	}
	n.logger.Debug("File selected", "name", file.Name, "size", file.Size)
}

// Pick handles a picker change. The picker reports an empty list when the
// dialog was cancelled, which clears the selection.
func (n *Normalizer) Pick(files []*types.SelectedFile) {
	var first *types.SelectedFile
	if len(files) > 0 {
		first = files[0]
	}
	n.SetSelectedFile(first)
}

// HandleDrag processes one drag-and-drop event
func (n *Normalizer) HandleDrag(ev DragEvent) DragResult {
	res := DragResult{PreventDefault: true, StopPropagation: true}

	n.mu.Lock()
	defer n.mu.Unlock()

	switch ev.Type {
	case DragEnter, DragOver:
		n.highlightLocked(true)
	case DragLeave:
		n.highlightLocked(false)
	case Drop:
		n.highlightLocked(false)
		if len(ev.Files) == 0 || ev.Files[0] == nil {
			n.logger.Debug("Ignoring drop without files")
			return res
		}
		if len(ev.Files) > 1 {
			n.logger.Debug("Multiple files dropped, keeping the first", "count", len(ev.Files))
		}
		n.setLocked(ev.Files[0])
		res.Accepted = ev.Files[0]
	default:
		n.logger.Warn("Unknown drag event", "type", string(ev.Type))
	}
	return res
}

func (n *Normalizer) highlightLocked(on bool) {
	if n.highlighted == on {
		return
	}
	n.highlighted = on
	n.view.SetDropHighlight(on)
}

// Selected returns the current selection, nil when none
func (n *Normalizer) Selected() *types.SelectedFile {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selected
}

// Highlighted reports whether the drop target is highlighted
func (n *Normalizer) Highlighted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.highlighted
}

// Clear drops the selection and the highlight
func (n *Normalizer) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.highlightLocked(false)
	n.setLocked(nil)
}
