package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/decksmith/internal/config"
)

const (
	watcherValidYAML   = "server:\n  log_level: info\n"
	watcherUpdatedYAML = "server:\n  log_level: debug\n"
	watcherInvalidYAML = "server:\n  log_level: bananas\n"
)

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime of %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, watcherValidYAML, time.Now())

	w, err := config.NewWatcher(path, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("log_level = %q, want info", got)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	start := time.Now().Add(-time.Hour)
	writeFile(t, path, watcherValidYAML, start)

	changed := make(chan config.ConfigDiff, 1)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		select {
		case changed <- config.Diff(old, new):
		default:
		}
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, watcherUpdatedYAML, start.Add(time.Minute))

	select {
	case d := <-changed:
		if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
			t.Errorf("diff = %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not invoked within timeout")
	}
	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current log_level = %q, want debug", got)
	}
}

func TestWatcher_InvalidKeepsPrevious(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	start := time.Now().Add(-time.Hour)
	writeFile(t, path, watcherValidYAML, start)

	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(path, func(_, _ *config.Config) { called <- struct{}{} },
		config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, watcherInvalidYAML, start.Add(time.Minute))
	time.Sleep(150 * time.Millisecond)

	select {
	case <-called:
		t.Error("onChange invoked for an invalid file")
	default:
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current log_level = %q, want info", got)
	}
}

func TestWatcher_TouchWithoutChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	start := time.Now().Add(-time.Hour)
	writeFile(t, path, watcherValidYAML, start)

	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(path, func(_, _ *config.Config) { called <- struct{}{} },
		config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, watcherValidYAML, start.Add(time.Minute))
	time.Sleep(150 * time.Millisecond)

	select {
	case <-called:
		t.Error("onChange invoked although content is unchanged")
	default:
	}
}

func TestNewWatcher_InvalidInitial(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, watcherInvalidYAML, time.Now())
	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("NewWatcher: expected error")
	}
}
