package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/decksmith/internal/config"
)

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "log level", yaml: "server:\n  log_level: loud\n", want: "server.log_level"},
		{name: "tls without key", yaml: "server:\n  tls:\n    cert_file: a.pem\n", want: "server.tls"},
		{name: "reload without path", yaml: "taxonomy:\n  reload_interval: 5s\n", want: "requires taxonomy.path"},
		{name: "recognizer mode", yaml: "recognizer:\n  mode: neural\n", want: "recognizer.mode"},
		{name: "hybrid without llm", yaml: "recognizer:\n  mode: hybrid\n", want: "requires providers.llm"},
		{name: "threshold range", yaml: "recognizer:\n  hybrid_threshold: 1.5\n", want: "recognizer.hybrid_threshold"},
		{name: "fallback name", yaml: "providers:\n  llm:\n    name: openai\n  llm_fallbacks:\n    - model: x\n", want: "llm_fallbacks[0].name"},
		{name: "fallback without primary", yaml: "providers:\n  llm_fallbacks:\n    - name: openai\n", want: "requires providers.llm"},
		{name: "asset kind", yaml: "assets:\n  kind: ldap\n", want: "assets.kind"},
		{name: "postgres dsn", yaml: "assets:\n  kind: postgres\n", want: "postgres_dsn"},
		{name: "redis addr", yaml: "assets:\n  kind: redis\n", want: "redis.addr"},
		{name: "breaker", yaml: "assets:\n  breaker:\n    max_failures: -1\n", want: "assets.breaker"},
		{name: "pipeline threshold", yaml: "pipeline:\n  thresholds:\n    deck: 2\n", want: "pipeline.thresholds.deck"},
		{name: "workers", yaml: "pipeline:\n  workers: -2\n", want: "pipeline.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("LoadFromReader: expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\nassets:\n  kind: ldap\npipeline:\n  workers: -1\n"))
	if err == nil {
		t.Fatal("LoadFromReader: expected error")
	}
	for _, want := range []string{"server.log_level", "assets.kind", "pipeline.workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidate_UnknownProviderOnlyWarns(t *testing.T) {
	t.Parallel()

	if _, err := config.LoadFromReader(strings.NewReader("providers:\n  llm:\n    name: my-inhouse-llm\n")); err != nil {
		t.Errorf("LoadFromReader: unexpected error: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "decksmith.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: unexpected error: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.Assets.Redis.Addr != "localhost:6379" {
		t.Errorf("Assets.Redis.Addr = %q", cfg.Assets.Redis.Addr)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "config: open") {
		t.Errorf("Load(missing): got %v", err)
	}
}
