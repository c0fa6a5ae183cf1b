package dataset

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/metromate/metromate-linebot-go/internal/logger"
)

// Reloader is implemented by Store.
type Reloader interface {
	Reload(ctx context.Context) LoadReport
}

// Watcher reloads the dataset when one of its documents changes on disk.
// Bursts of events are coalesced: a reload runs once no event has arrived
// for the debounce period.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	reloader Reloader
	dir      string
	debounce time.Duration
	onReload func(LoadReport)
	log      *logger.Logger

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for dir. onReload may be nil.
func NewWatcher(dir string, r Reloader, debounce time.Duration, onReload func(LoadReport), log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		reloader: r,
		dir:      dir,
		debounce: debounce,
		onReload: onReload,
		log:      log.WithModule("dataset_watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking and idempotent.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	// Watch the directory, not the files: atomic renames replace the inode.
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.running = true
	go w.run(ctx, w.watcher)
	w.log.WithField("dir", w.dir).Info("Watching dataset directory")
	return nil
}

// Stop ends the watch loop and releases the OS watcher. Safe to call
// more than once, and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.watcher == nil {
		w.mu.Unlock()
		return
	}
	running := w.running
	w.running = false
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := fw.Close(); err != nil {
		w.log.WithError(err).Warn("Failed to close dataset watcher")
	}
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.doneCh)

	// Timers created under go1.23+ semantics: Reset drops any stale tick.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.log.WithFields(map[string]any{
				"file": filepath.Base(event.Name),
				"op":   event.Op.String(),
			}).Debug("Dataset file changed")
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Dataset watcher error")
		case <-timer.C:
			report := w.reloader.Reload(ctx)
			if w.onReload != nil {
				w.onReload(report)
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !IsDocument(filepath.Base(event.Name)) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
