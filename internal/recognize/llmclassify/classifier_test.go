package llmclassify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/decksmith/internal/recognize"
	"github.com/MrWong99/decksmith/internal/recognize/llmclassify"
	"github.com/MrWong99/decksmith/pkg/provider/llm/mock"
)

var labels = []recognize.Label{
	{ID: "shut_well", Description: "Shut in a well."},
	{ID: "open_well", Description: "Open a shut well."},
}

func TestClassify_PromptCarriesLabels(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: mock.Reply(`{"label": "shut_well", "confidence": 0.9}`),
	}
	c := llmclassify.New(provider, llmclassify.WithTemperature(0.2))

	got, err := c.Classify(context.Background(), "close PROD-03 please", labels)
	if err != nil {
		t.Fatalf("Classify: unexpected error: %v", err)
	}
	if got.Label != "shut_well" || got.Confidence != 0.9 {
		t.Errorf("Classify = %+v", got)
	}

	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 Complete call, got %d", len(calls))
	}
	req := calls[0].Req
	for _, l := range labels {
		if !strings.Contains(req.SystemPrompt, l.ID) || !strings.Contains(req.SystemPrompt, l.Description) {
			t.Errorf("system prompt missing label %q\nprompt:\n%s", l.ID, req.SystemPrompt)
		}
	}
	if req.Temperature != 0.2 || !req.JSONOutput {
		t.Errorf("request = %+v, want temperature 0.2 and JSON output", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "close PROD-03 please" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestClassify_StripsMarkdownFence(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: mock.Reply("```json\n{\"label\": \"open_well\", \"confidence\": 0.75}\n```"),
	}
	got, err := llmclassify.New(provider).Classify(context.Background(), "reopen INJ-01", labels)
	if err != nil {
		t.Fatalf("Classify: unexpected error: %v", err)
	}
	if got.Label != "open_well" || got.Confidence != 0.75 {
		t.Errorf("Classify = %+v", got)
	}
}

func TestClassify_RejectsInvalidResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "label outside set", content: `{"label": "drill_well", "confidence": 0.9}`},
		{name: "confidence above one", content: `{"label": "shut_well", "confidence": 1.5}`},
		{name: "negative confidence", content: `{"label": "shut_well", "confidence": -0.1}`},
		{name: "missing confidence", content: `{"label": "shut_well"}`},
		{name: "prose", content: `I think this is shut_well.`},
		{name: "confidence as string", content: `{"label": "shut_well", "confidence": "high"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			provider := &mock.Provider{CompleteResponse: mock.Reply(tt.content)}
			_, err := llmclassify.New(provider).Classify(context.Background(), "shut PROD-03", labels)
			if !errors.Is(err, llmclassify.ErrInvalidResponse) {
				t.Errorf("Classify: expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}

func TestClassify_ProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("rate limited")
	provider := &mock.Provider{CompleteErr: boom}
	_, err := llmclassify.New(provider).Classify(context.Background(), "shut PROD-03", labels)
	if !errors.Is(err, boom) {
		t.Errorf("Classify: expected wrapped provider error, got %v", err)
	}
}

func TestClassify_NoLabels(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{}
	if _, err := llmclassify.New(provider).Classify(context.Background(), "x", nil); err == nil {
		t.Error("Classify: expected error for empty label set")
	}
	if len(provider.Calls()) != 0 {
		t.Error("provider should not be called without labels")
	}
}
