// Package mock provides a scripted llm.Provider for tests.
//
//	p := &mock.Provider{
//	    CompleteResponse: mock.Reply(`{"label":"shut_well","confidence":0.9}`),
//	}
//
// CompleteFunc takes precedence over the scripted fields, which makes it the
// place for providers that block until the context ends.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/decksmith/pkg/provider/llm"
)

// Call is one recorded Complete invocation.
type Call struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider records requests and answers them from its scripted fields. A
// zero Provider answers (nil, nil).
type Provider struct {
	CompleteResponse *llm.CompletionResponse
	CompleteErr      error
	CompleteFunc     func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	mu    sync.Mutex
	calls []Call
}

var _ llm.Provider = (*Provider)(nil)

// Reply wraps content in a completion response.
func Reply(content string) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: content}
}

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Ctx: ctx, Req: req})
	p.mu.Unlock()

	switch {
	case p.CompleteFunc != nil:
		return p.CompleteFunc(ctx, req)
	case p.CompleteErr != nil:
		return nil, p.CompleteErr
	}
	return p.CompleteResponse, nil
}

// Calls returns the requests seen so far, oldest first.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}
