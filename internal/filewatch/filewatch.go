// Package filewatch polls a file and hands every changed, loadable version
// to a reload callback. Changes are detected by modification time and
// confirmed by content hash, so touching a file without editing it does not
// trigger a reload.
package filewatch

import (
	"crypto/sha256"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 5 * time.Second

// Snapshot identifies one version of a file.
type Snapshot struct {
	ModTime time.Time
	Sum     [sha256.Size]byte
}

// Read returns the content of path and its snapshot.
func Read(path string) ([]byte, Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Snapshot{}, err
	}
	return data, Snapshot{ModTime: info.ModTime(), Sum: sha256.Sum256(data)}, nil
}

// ReloadFunc parses and publishes new file content. A returned error keeps
// the previous version in place.
type ReloadFunc func(data []byte) error

// Poller runs the polling loop of one file.
type Poller struct {
	name     string
	path     string
	interval time.Duration
	reload   ReloadFunc

	// last is only touched by the poll goroutine.
	last Snapshot

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Start begins polling path. from is the snapshot the caller already loaded;
// name prefixes log messages. A non-positive interval uses
// [DefaultInterval].
func Start(name, path string, interval time.Duration, from Snapshot, reload ReloadFunc) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		name:     name,
		path:     path,
		interval: interval,
		reload:   reload,
		last:     from,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go p.loop()
	return p
}

// Stop ends polling and waits for the loop to return. It is safe to call
// more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	<-p.stopped
}

func (p *Poller) loop() {
	defer close(p.stopped)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-t.C:
			p.check()
		}
	}
}

func (p *Poller) check() {
	info, err := os.Stat(p.path)
	if err != nil {
		slog.Warn(p.name+": cannot stat file", "path", p.path, "err", err)
		return
	}
	if info.ModTime().Equal(p.last.ModTime) {
		return
	}

	data, snap, err := Read(p.path)
	if err != nil {
		slog.Warn(p.name+": cannot read file", "path", p.path, "err", err)
		return
	}
	if snap.Sum == p.last.Sum {
		p.last = snap
		return
	}
	if err := p.reload(data); err != nil {
		// Remember the mtime so a broken file is reported once per edit.
		p.last.ModTime = snap.ModTime
		slog.Warn(p.name+": keeping previous version", "path", p.path, "err", err)
		return
	}
	p.last = snap
}
