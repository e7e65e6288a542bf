// Package llm defines the Provider interface for Large Language Model backends.
//
// decksmith uses a language model for exactly one job: picking an intent
// label from a closed set when the rule-based recognizer is unsure. The
// interface therefore covers single-shot completions only; backends live in
// the openai and anyllm sub-packages and a test double in mock.
//
// Implementors must be safe for concurrent use and must return promptly
// when the supplied context is cancelled.
package llm

import "context"

// Message is a single message in a completion request.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message drives the reply.
	Messages []Message

	// SystemPrompt is an optional instruction sent ahead of Messages.
	SystemPrompt string

	// Temperature controls output randomness. Zero uses the backend default.
	Temperature float64

	// MaxTokens caps the completion length. Zero uses the backend default.
	MaxTokens int

	// JSONOutput asks the backend to reply with a single JSON object.
	// Backends without a native JSON mode add [JSONInstruction] to the
	// system prompt instead.
	JSONOutput bool
}

// JSONInstruction is appended to the system prompt by backends that cannot
// enforce JSON output natively.
const JSONInstruction = "Reply with a single JSON object and nothing else."

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// It returns an error if the request fails or ctx ends first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
