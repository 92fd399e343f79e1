package ingest

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/sge/internal/types"
)

// Watcher keeps the engine synchronized with a directory of compiler
// artifacts. Events are debounced so a compile burst producing dozens of
// writes lands as one batch.
type Watcher struct {
	watcher   *fsnotify.Watcher
	sink      Sink
	debouncer *eventDebouncer
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	fileIDs map[string]types.FileID // artifact path -> engine file identity
}

// NewWatcher creates a watcher over an artifact directory. Call Start to
// begin receiving events and Close to release the inotify handle.
func NewWatcher(dir string, debounce time.Duration, sink Sink) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		sink:    sink,
		fileIDs: make(map[string]types.FileID),
	}
	w.debouncer = newEventDebouncer(debounce, w.apply)
	return w, nil
}

// Start launches the event loop.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(ctx)
}

// Close stops the event loop and releases the watcher. Events pending in
// the debouncer at shutdown are dropped; the engine is being torn down
// anyway.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	w.debouncer.stop()
	return err
}

// Track records a table loaded outside the event loop so a later delete of
// its artifact purges the right file.
func (w *Watcher) Track(path string, fileID types.FileID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fileIDs[path] = fileID
}

// Seed loads every artifact already present in dir, tracking each one.
func (w *Watcher) Seed(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isTableArtifact(path) {
			return err
		}
		fileID, err := LoadFile(path, w.sink)
		if err != nil {
			return err
		}
		w.Track(path, fileID)
		count++
		return nil
	})
	return count, err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isTableArtifact(event.Name) {
				continue
			}
			w.debouncer.add(event.Name, event.Op)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// apply processes one debounced batch.
func (w *Watcher) apply(events map[string]fsnotify.Op) {
	for path, op := range events {
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			w.mu.Lock()
			fileID, known := w.fileIDs[path]
			delete(w.fileIDs, path)
			w.mu.Unlock()
			if known {
				w.sink.RemoveFile(fileID)
			}
		case op.Has(fsnotify.Create) || op.Has(fsnotify.Write):
			fileID, err := LoadFile(path, w.sink)
			if err != nil {
				log.Printf("reload failed for %s: %v", path, err)
				continue
			}
			w.Track(path, fileID)
		}
	}
}

func isTableArtifact(path string) bool {
	return strings.HasSuffix(filepath.Base(path), ".symbols.json")
}

// eventDebouncer coalesces a burst of file events into one flush. Only the
// latest operation per path survives the window.
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]fsnotify.Op
	debounce time.Duration
	timer    *time.Timer
	flushFn  func(map[string]fsnotify.Op)
}

func newEventDebouncer(debounce time.Duration, flushFn func(map[string]fsnotify.Op)) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]fsnotify.Op),
		debounce: debounce,
		flushFn:  flushFn,
	}
}

func (d *eventDebouncer) add(path string, op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events[path] = op

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	events := d.events
	d.events = make(map[string]fsnotify.Op)
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}
	d.flushFn(events)
}
