package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/decksmith/internal/pipeline"
)

const catalogYAML = `
field: TEST
assets:
  - name: PROD-01
    kind: producer
  - name: PROD-02
    kind: producer
  - name: INJ-01
    kind: injector
`

// writeConfig writes a catalog and a config pointing at it and returns the
// config path. extra is appended to the config verbatim.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	catalog := filepath.Join(dir, "assets.yaml")
	if err := os.WriteFile(catalog, []byte(catalogYAML), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	cfg := "server:\n  log_level: error\nassets:\n  catalog: " + catalog + "\n" + extra
	path := filepath.Join(dir, "decksmith.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Translate(t *testing.T) {
	cfg := writeConfig(t, "")

	tests := []struct {
		name     string
		command  string
		wantCode int
		want     string
	}{
		{
			name:     "known well",
			command:  "set well PROD-01 rate to 500 bbl/day",
			wantCode: 0,
			want:     "'PROD-01' 'OPEN' 'ORAT' 500 /",
		},
		{
			name:     "unknown well",
			command:  "set well PROD-07 rate to 500 bbl/day",
			wantCode: 2,
			want:     "UNKNOWN_ASSET:PROD-07",
		},
		{
			name:     "missing unit",
			command:  "set well PROD-01 rate to 500",
			wantCode: 2,
			want:     "? ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, "", "--config", cfg, "translate", tt.command)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d\nstdout:\n%s\nstderr:\n%s", code, tt.wantCode, out, errOut)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("stdout does not contain %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestRun_TranslateBatchJSON(t *testing.T) {
	cfg := writeConfig(t, "")
	input := strings.Join([]string{
		"# morning changes",
		"set well PROD-01 rate to 500 bbl/day",
		"",
		"shut in well PROD-02",
		"set well PROD-09 rate to 100 bbl/day",
	}, "\n")

	code, out, errOut := runCLI(t, input, "--config", cfg, "translate", "--file", "-", "--workers", "2", "--json")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2\nstderr:\n%s", code, errOut)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d outcome lines, want 3:\n%s", len(lines), out)
	}
	wantIntents := []string{"set_well_rate", "shut_well", "set_well_rate"}
	wantStates := []pipeline.State{pipeline.StateComplete, pipeline.StateComplete, pipeline.StateFailed}
	for i, line := range lines {
		var got struct {
			State  pipeline.State `json:"state"`
			Intent string         `json:"intent"`
			Text   string         `json:"text"`
		}
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("line %d: unexpected error: %v", i, err)
		}
		if got.State != wantStates[i] || got.Intent != wantIntents[i] {
			t.Errorf("line %d = %s %s, want %s %s", i, got.State, got.Intent, wantStates[i], wantIntents[i])
		}
	}
}

func TestRun_TranslateInteractive(t *testing.T) {
	cfg := writeConfig(t, "")
	input := "set well PROD-01 rate to 500\nbbl/day\n:quit\n"

	code, out, errOut := runCLI(t, input, "--config", cfg, "translate", "--interactive")
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr:\n%s", code, errOut)
	}
	ask := strings.Index(out, "? ")
	deck := strings.Index(out, "'PROD-01' 'OPEN' 'ORAT' 500 /")
	if ask < 0 || deck < ask {
		t.Errorf("expected a clarification followed by the deck:\n%s", out)
	}
}

func TestRun_TranslateUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "nothing to translate", args: []string{"translate"}},
		{name: "command and file", args: []string{"translate", "--file", "-", "shut PROD-01"}},
		{name: "bad log level", args: []string{"--log-level", "loud", "translate", "shut PROD-01"}},
		{name: "missing config", args: []string{"--config", "/nonexistent/decksmith.yaml", "translate", "shut PROD-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, "", tt.args...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.HasPrefix(errOut, "decksmith: ") {
				t.Errorf("stderr = %q", errOut)
			}
		})
	}
}

func TestRun_Check(t *testing.T) {
	cfg := writeConfig(t, "")
	code, out, errOut := runCLI(t, "", "--config", cfg, "check")
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr:\n%s", code, errOut)
	}
	for _, want := range []string{"INTENT", "DECK CHECK", "set_well_rate", "shut_well", "3 assets"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout does not contain %q:\n%s", want, out)
		}
	}
}

func TestRun_CheckMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	tax := filepath.Join(dir, "taxonomy.yaml")
	src := "version: \"x\"\nintents:\n  - id: drill_well\n    keywords: [drill]\n"
	if err := os.WriteFile(tax, []byte(src), 0o644); err != nil {
		t.Fatalf("failed to write taxonomy: %v", err)
	}
	cfg := writeConfig(t, "taxonomy:\n  path: "+tax+"\n")

	code, out, errOut := runCLI(t, "", "--config", cfg, "check")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "MISSING") || !strings.Contains(out, "slot values") || !strings.Contains(errOut, "drill_well") {
		t.Errorf("stdout:\n%s\nstderr:\n%s", out, errOut)
	}
}

func TestRun_FmtDeck(t *testing.T) {
	src := "WELOPEN\n 'PROD-01'   'SHUT' /\n/\n"
	want := "\nWELOPEN\n  'PROD-01' 'SHUT' /\n/\n"

	code, out, errOut := runCLI(t, src, "fmt-deck")
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr:\n%s", code, errOut)
	}
	if out != want {
		t.Errorf("fmt-deck output = %q, want %q", out, want)
	}

	if code, _, _ := runCLI(t, want, "fmt-deck", "--check"); code != 0 {
		t.Errorf("--check on canonical input: exit code = %d", code)
	}
	if code, _, _ := runCLI(t, src, "fmt-deck", "--check"); code != 1 {
		t.Errorf("--check on non-canonical input: exit code = %d", code)
	}
}

func TestRun_FmtDeckSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.inc")
	if err := os.WriteFile(path, []byte("WELOPEN\n 'PROD-01' 'SHUT'\n"), 0o644); err != nil {
		t.Fatalf("failed to write deck: %v", err)
	}
	code, _, errOut := runCLI(t, "", "fmt-deck", path)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, path+":") {
		t.Errorf("stderr does not carry the position: %q", errOut)
	}
}
