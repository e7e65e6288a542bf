package pipeline

import (
	"fmt"

	"github.com/MrWong99/decksmith/internal/recognize"
	"github.com/MrWong99/decksmith/pkg/deck"
	"github.com/MrWong99/decksmith/pkg/types"
)

// Outcome is the result of one run.
type Outcome struct {
	RunID string `json:"run_id"`

	// State is the terminal state the run ended in.
	State State `json:"state"`

	// Stage is the last stage that ran.
	Stage State `json:"stage"`

	// Path lists every state the run passed through.
	Path []State `json:"path"`

	// Intent is the recognised intent id, if any.
	Intent string `json:"intent,omitempty"`

	// Data is the data of the last stage that ran.
	Data any `json:"data,omitempty"`

	// Errors is set for FAILED and NEEDS_CLARIFICATION runs.
	Errors []string `json:"errors,omitempty"`

	ClarificationPrompt string `json:"clarification_prompt,omitempty"`

	// Resume is passed back to Translate with the user's reply.
	Resume *ConversationState `json:"resume,omitempty"`

	// Deck and Text are set for COMPLETE runs.
	Deck *deck.Deck `json:"-"`
	Text string     `json:"text,omitempty"`

	// Metadata holds each stage's metadata under the stage name plus
	// run-level keys such as internal_errors.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ConversationState is what a clarification needs to resume. It is plain
// data and may be stored between requests.
type ConversationState struct {
	// Stage is the stage that asked for clarification.
	Stage State `json:"stage"`

	// Text is the original command.
	Text string `json:"text"`

	// Intent is set once recognition succeeded.
	Intent string `json:"intent,omitempty"`

	// Candidates are the recognizer's scored intents.
	Candidates []recognize.Candidate `json:"candidates,omitempty"`

	// Entities are the values extracted so far.
	Entities types.Entities `json:"entities,omitempty"`

	// TaxonomyVersion is the version of the snapshot that produced the
	// state.
	TaxonomyVersion string `json:"taxonomy_version,omitempty"`
}

// String summarises the outcome for logs.
func (o Outcome) String() string {
	return fmt.Sprintf("%s %s %v", o.State, o.Intent, o.Errors)
}
