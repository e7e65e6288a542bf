package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/decksmith/internal/filewatch"
)

// Watcher keeps the latest valid version of a config file and reports each
// change to a callback. An invalid edit is logged and ignored.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config

	poller *filewatch.Poller
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

// NewWatcher loads path and starts polling it. onChange may be nil.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, onChange: onChange}
	for _, opt := range opts {
		opt(w)
	}

	data, snap, err := filewatch.Read(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	if w.current, err = LoadFromReader(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.poller = filewatch.Start("config watcher", path, w.interval, snap, w.reload)
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling and waits for the poll goroutine to return.
func (w *Watcher) Stop() { w.poller.Stop() }

func (w *Watcher) reload(data []byte) error {
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	w.mu.Lock()
	old := w.current
	w.current = cfg
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)
	// Outside the lock so the callback may call Current.
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return nil
}
