package observe

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/decksmith/pkg/provider/llm"
	"github.com/MrWong99/decksmith/pkg/provider/llm/mock"
)

func TestInstrumentLLM(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	ok := InstrumentLLM(&mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "shut_well"},
	}, "primary", m)
	broken := InstrumentLLM(&mock.Provider{CompleteErr: errors.New("quota exceeded")}, "backup", m)

	req := llm.CompletionRequest{Messages: []llm.Message{{Role: "user", Content: "shut P1"}}}
	resp, err := ok.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}
	if resp.Content != "shut_well" {
		t.Errorf("Content = %q", resp.Content)
	}
	if _, err := broken.Complete(context.Background(), req); err == nil {
		t.Fatal("Complete: expected error from broken provider")
	}

	rm := collect(t, reader)
	if got := sumFor(t, rm, "decksmith.provider.requests", "status", "ok"); got != 1 {
		t.Errorf("ok requests = %d, want 1", got)
	}
	if got := sumFor(t, rm, "decksmith.provider.requests", "status", "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
	if got := sumFor(t, rm, "decksmith.provider.errors", "provider", "backup"); got != 1 {
		t.Errorf("provider errors = %d, want 1", got)
	}
}

func TestInstrumentLLM_NilMetrics(t *testing.T) {
	t.Parallel()

	p := InstrumentLLM(&mock.Provider{CompleteErr: errors.New("down")}, "primary", nil)
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("Complete: expected error")
	}
}
