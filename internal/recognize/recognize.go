// Package recognize maps free text onto one intent of a taxonomy snapshot.
//
// [RuleBased] scores intents from trigger patterns and keywords and works
// fully offline. [Hybrid] wraps it and consults a [Classifier] (usually an
// LLM) when the rules are unsure, keeping the rule result whenever the
// classifier is slow, failing, or answers outside the label set.
package recognize

import (
	"context"
	"errors"

	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
)

// Recognizer classifies text against a taxonomy snapshot.
type Recognizer interface {
	Recognize(ctx context.Context, text string, tax *taxonomy.Taxonomy) stage.Result[Intent]
}

// Candidate is one scored intent.
type Candidate struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
}

// Intent is the recognition payload. Definition is the zero value when
// recognition failed.
type Intent struct {
	ID         string
	Definition taxonomy.IntentDefinition

	// Candidates lists every intent with a non-zero score, best first.
	Candidates []Candidate
}

// Label is one entry of the closed label set offered to a [Classifier].
type Label struct {
	ID          string
	Description string
}

// Classification is a classifier answer.
type Classification struct {
	Label      string
	Confidence float64

	// Raw is the unparsed classifier output, kept for metadata.
	Raw string
}

// Classifier picks one label for text. Implementations must honour ctx
// cancellation.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []Label) (Classification, error)
}

// ErrClassifierTimeout is returned when the classifier does not answer
// within the configured timeout.
var ErrClassifierTimeout = errors.New("recognize: classifier timed out")

// ErrUnknownLabel is returned when the classifier answers with a label that
// is not in the taxonomy.
var ErrUnknownLabel = errors.New("recognize: classifier returned unknown label")

// Metadata keys written by recognizers.
const (
	MetaCandidates    = "candidates"
	MetaLLMLabel      = "llm_label"
	MetaLLMConfidence = "llm_confidence"
	MetaLLMError      = "llm_error"
	MetaLLMRaw        = "llm_raw"
	MetaLLMDuration   = "llm_duration"
)

// Values of the stage.MetaRecognizer metadata key.
const (
	PathRuleBased = "rule_based"
	PathLLM       = "llm"
	PathFallback  = "rule_based_fallback"
)

// Labels converts the taxonomy intents into classifier labels.
func Labels(tax *taxonomy.Taxonomy) []Label {
	defs := tax.Intents()
	out := make([]Label, len(defs))
	for i, d := range defs {
		out[i] = Label{ID: d.ID, Description: d.Description}
	}
	return out
}
