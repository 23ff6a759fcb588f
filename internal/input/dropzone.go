package input

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumeform/internal/errors"
	"resumeform/internal/types"
	"resumeform/internal/utils"

	"github.com/fsnotify/fsnotify"
)

// Loader reads a file from disk into a selection
type Loader func(path string) (*types.SelectedFile, error)

// Dropzone turns a watched directory into a drop target. A file appearing
// is a drag entering, further writes are the drag moving over the target,
// the file vanishing before it settles is the drag leaving, and a quiet
// period after the last write is the drop.
type Dropzone struct {
	// lifecycle serializes Start and Stop; mu guards the fields below
	lifecycle sync.Mutex
	mu        sync.Mutex

	dir        string
	normalizer *Normalizer
	load       Loader
	onDrop     func(file *types.SelectedFile)
	logger     *errors.Logger

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	// recreated by every Start
	stopChan   chan struct{}
	settleChan chan struct{}
	doneChan   chan struct{}

	// owned by watchLoop
	pending  map[string]struct{}
	dragging bool

	running bool
}

// NewDropzone creates a drop folder watcher feeding normalizer.
// onDrop, when set, is called with every accepted file.
func NewDropzone(dir string, debounceDelay time.Duration, normalizer *Normalizer, load Loader, onDrop func(*types.SelectedFile), logger *errors.Logger) (*Dropzone, error) {
	if dir == "" {
		return nil, fmt.Errorf("drop directory is required")
	}
	if normalizer == nil || load == nil {
		return nil, fmt.Errorf("normalizer and loader are required")
	}
	if debounceDelay <= 0 {
		debounceDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = errors.Discard()
	}

	return &Dropzone{
		dir:           dir,
		normalizer:    normalizer,
		load:          load,
		onDrop:        onDrop,
		logger:        logger,
		debounceDelay: debounceDelay,
		pending:       make(map[string]struct{}),
	}, nil
}

// Start begins watching the directory. A stopped dropzone can be started
// again.
func (dz *Dropzone) Start() error {
	dz.lifecycle.Lock()
	defer dz.lifecycle.Unlock()
	dz.mu.Lock()
	defer dz.mu.Unlock()

	if dz.running {
		return fmt.Errorf("dropzone is already running")
	}

	info, err := os.Stat(dz.dir)
	if err != nil {
		return fmt.Errorf("cannot access drop directory %s: %w", dz.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("drop path is not a directory: %s", dz.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dz.dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			dz.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch directory %s: %w", dz.dir, err)
	}
	dz.fsWatcher = watcher
	dz.stopChan = make(chan struct{})
	dz.settleChan = make(chan struct{}, 1)
	dz.doneChan = make(chan struct{})
	clear(dz.pending)
	dz.dragging = false

	dz.running = true
	go dz.watchLoop(watcher, dz.stopChan, dz.settleChan, dz.doneChan)

	dz.logger.Info("Dropzone started", "dir", dz.dir, "debounce_delay", dz.debounceDelay)
	return nil
}

// Stop stops watching and waits for the event loop to exit
func (dz *Dropzone) Stop() error {
	dz.lifecycle.Lock()
	defer dz.lifecycle.Unlock()

	dz.mu.Lock()
	if !dz.running {
		dz.mu.Unlock()
		return nil
	}
	dz.running = false
	close(dz.stopChan)
	if dz.debounceTimer != nil {
		dz.debounceTimer.Stop()
	}
	err := dz.fsWatcher.Close()
	done := dz.doneChan
	dz.mu.Unlock()

	<-done

	if err != nil {
		dz.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	dz.logger.Info("Dropzone stopped")
	return nil
}

// IsRunning returns whether the dropzone is watching
func (dz *Dropzone) IsRunning() bool {
	dz.mu.Lock()
	defer dz.mu.Unlock()
	return dz.running
}

// Dir returns the watched directory
func (dz *Dropzone) Dir() string {
	return dz.dir
}

func (dz *Dropzone) watchLoop(watcher *fsnotify.Watcher, stop, settle <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			dz.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			dz.logger.LogError(err, "Dropzone watcher error")

		case <-settle:
			dz.drop()

		case <-stop:
			return
		}
	}
}

func (dz *Dropzone) handleEvent(event fsnotify.Event) {
	if utils.IsHiddenOrTemp(event.Name) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return
		}
		_, known := dz.pending[event.Name]
		dz.pending[event.Name] = struct{}{}
		if !dz.dragging {
			dz.dragging = true
			dz.normalizer.HandleDrag(DragEvent{Type: DragEnter})
		} else if known || event.Op&fsnotify.Write != 0 {
			dz.normalizer.HandleDrag(DragEvent{Type: DragOver})
		}
		dz.scheduleSettle()

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if _, ok := dz.pending[event.Name]; !ok {
			return
		}
		delete(dz.pending, event.Name)
		if len(dz.pending) == 0 && dz.dragging {
			dz.dragging = false
			dz.cancelSettle()
			dz.normalizer.HandleDrag(DragEvent{Type: DragLeave})
		}
	}
}

// drop loads the settled files and delivers them as one drop
func (dz *Dropzone) drop() {
	if !dz.dragging {
		return
	}

	names := make([]string, 0, len(dz.pending))
	for name := range dz.pending {
		names = append(names, name)
	}
	slices.Sort(names)
	clear(dz.pending)
	dz.dragging = false

	files := make([]*types.SelectedFile, 0, len(names))
	for _, name := range names {
		f, err := dz.load(name)
		if err != nil {
			dz.logger.LogError(err, "Skipping dropped file", "file", filepath.Base(name))
			continue
		}
		files = append(files, f)
	}

	res := dz.normalizer.HandleDrag(DragEvent{Type: Drop, Files: files})
	if res.Accepted != nil {
		dz.logger.Info("File dropped", "file", res.Accepted.Name, "candidates", len(names))
		if dz.onDrop != nil {
			dz.onDrop(res.Accepted)
		}
	}
}

func (dz *Dropzone) scheduleSettle() {
	dz.mu.Lock()
	defer dz.mu.Unlock()

	if dz.debounceTimer != nil {
		dz.debounceTimer.Stop()
	}
	settle := dz.settleChan
	dz.debounceTimer = time.AfterFunc(dz.debounceDelay, func() {
		select {
		case settle <- struct{}{}:
		default:
			// already scheduled
		}
	})
}

func (dz *Dropzone) cancelSettle() {
	dz.mu.Lock()
	defer dz.mu.Unlock()

	if dz.debounceTimer != nil {
		dz.debounceTimer.Stop()
	}
	select {
	case <-dz.settleChan:
	default:
	}
}
