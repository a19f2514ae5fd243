package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher rebuilds the blob when one of the local documents changes on
// disk. Rebuilds are debounced and replace the blob whole; a failed rebuild
// keeps the previous blob.
type Watcher struct {
	base     *Base
	rebuild  func(context.Context) (*Blob, error)
	files    map[string]struct{}
	dirs     []string
	debounce time.Duration
	log      zerolog.Logger
	onReload func(*Blob)
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

func WithWatchLogger(l zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = l }
}

// OnReload registers a callback run after every successful rebuild.
func OnReload(fn func(*Blob)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

func NewWatcher(base *Base, documents []string, rebuild func(context.Context) (*Blob, error), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		base:     base,
		rebuild:  rebuild,
		files:    make(map[string]struct{}, len(documents)),
		debounce: 500 * time.Millisecond,
		log:      zerolog.Nop(),
	}
	seen := make(map[string]bool)
	for _, doc := range documents {
		abs, err := filepath.Abs(doc)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", doc, err)
		}
		w.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	// editors replace files by rename, so watch directories, not files
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.log.Info().Strs("dirs", w.dirs).Msg("watching knowledge documents")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("document changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	_, ok := w.files[filepath.Clean(ev.Name)]
	return ok
}

func (w *Watcher) reload(ctx context.Context) {
	blob, err := w.rebuild(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("knowledge rebuild failed, keeping previous blob")
		return
	}
	w.base.Replace(blob)
	w.log.Info().Int("bytes", len(blob.Text)).Msg("knowledge blob reloaded")
	if w.onReload != nil {
		w.onReload(blob)
	}
}
