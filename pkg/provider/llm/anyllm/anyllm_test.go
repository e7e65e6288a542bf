package anyllm

import (
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/decksmith/pkg/provider/llm"
)

func TestBuildParams(t *testing.T) {
	t.Parallel()

	p := &Provider{name: "anthropic", model: "claude-3-5-haiku-latest"}
	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "Pick one label.",
		Messages:     []llm.Message{{Role: "user", Content: "shut well P1"}},
		Temperature:  0.1,
		MaxTokens:    64,
		JSONOutput:   true,
	})
	if err != nil {
		t.Fatalf("buildParams: unexpected error: %v", err)
	}

	if params.Model != "claude-3-5-haiku-latest" {
		t.Errorf("model = %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(params.Messages))
	}
	sys := params.Messages[0]
	if sys.Role != anyllmlib.RoleSystem || !strings.HasPrefix(sys.ContentString(), "Pick one label.") {
		t.Errorf("first message = %+v", sys)
	}
	if !strings.HasSuffix(sys.ContentString(), llm.JSONInstruction) {
		t.Errorf("system prompt lacks the JSON instruction: %q", sys.ContentString())
	}
	if params.Messages[1].Role != "user" || params.Messages[1].ContentString() != "shut well P1" {
		t.Errorf("second message = %+v", params.Messages[1])
	}
	if params.Temperature == nil || *params.Temperature != 0.1 {
		t.Errorf("temperature = %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 64 {
		t.Errorf("max tokens = %v", params.MaxTokens)
	}
}

func TestBuildParams_Minimal(t *testing.T) {
	t.Parallel()

	p := &Provider{name: "ollama", model: "llama3.2"}
	params, err := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "open INJ-01"}},
	})
	if err != nil {
		t.Fatalf("buildParams: unexpected error: %v", err)
	}
	if params.Temperature != nil || params.MaxTokens != nil {
		t.Errorf("zero temperature and max tokens should be omitted: %+v", params)
	}
	if len(params.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(params.Messages))
	}

	if _, err := p.buildParams(llm.CompletionRequest{}); err == nil {
		t.Error("buildParams: expected error for empty request")
	}
	if _, err := p.buildParams(llm.CompletionRequest{Messages: []llm.Message{{Role: "tool"}}}); err == nil {
		t.Error("buildParams: expected error for unknown role")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, backend, model string
	}{
		{name: "empty backend", backend: "", model: "gpt-4o"},
		{name: "empty model", backend: "openai", model: ""},
		{name: "unsupported backend", backend: "not-a-backend", model: "m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.backend, tt.model); err == nil {
				t.Error("New: expected error")
			}
		})
	}
}
