package taxonomy

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/decksmith/internal/filewatch"
)

// Watcher publishes every valid new version of a taxonomy file into a
// [Holder]. An invalid file is logged and ignored; the last good snapshot
// stays published.
type Watcher struct {
	path     string
	interval time.Duration
	holder   *Holder
	onChange func(old, new *Taxonomy)
	poller   *filewatch.Poller
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is
// [filewatch.DefaultInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOnChange registers a callback invoked after each swap.
func WithOnChange(fn func(old, new *Taxonomy)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// NewWatcher loads path, publishes it into a new holder and starts polling.
// Call [Watcher.Stop] to end polling.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path}
	for _, opt := range opts {
		opt(w)
	}

	data, snap, err := filewatch.Read(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: watcher initial load: %w", err)
	}
	t, err := load(path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("taxonomy: watcher initial load: %w", err)
	}
	w.holder = NewHolder(t)
	w.poller = filewatch.Start("taxonomy watcher", path, w.interval, snap, w.reload)
	return w, nil
}

// Holder returns the holder the watcher publishes into.
func (w *Watcher) Holder() *Holder { return w.holder }

// Stop ends polling and waits for the poll goroutine to exit.
func (w *Watcher) Stop() { w.poller.Stop() }

func (w *Watcher) reload(data []byte) error {
	t, err := load(w.path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	old := w.holder.Swap(t)
	d := Diff(old, t)
	slog.Info("taxonomy watcher: taxonomy reloaded",
		"path", w.path,
		"version", t.Version(),
		"added", d.Added,
		"removed", d.Removed,
		"changed", d.Changed,
	)
	if w.onChange != nil {
		w.onChange(old, t)
	}
	return nil
}
