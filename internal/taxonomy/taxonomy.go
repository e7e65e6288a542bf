// Package taxonomy holds the intent catalog that drives recognition and
// extraction.
//
// A [Taxonomy] is an immutable snapshot loaded from YAML. Updating the
// catalog means loading a new snapshot and swapping it into a [Holder];
// pipelines that already read the old snapshot keep using it until they
// finish. [Watcher] automates the swap for a file on disk.
package taxonomy

import (
	"regexp"
	"slices"

	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

// SlotSpec declares one value an intent expects from the input text.
type SlotSpec struct {
	// Name identifies the slot within its intent (e.g., "well", "rate").
	Name string `yaml:"name"`

	// Type selects the extractor used to fill the slot.
	Type types.SlotType `yaml:"type"`

	// Required slots must be present for extraction to succeed.
	Required bool `yaml:"required"`

	// UnitHint is the canonical unit quantities are compared in. Defaults to
	// BBL/DAY for rates and PSI for pressures.
	UnitHint units.Unit `yaml:"unit_hint"`

	// Values lists the accepted choices of an enum slot (upper-case).
	Values []string `yaml:"values"`

	// Aliases maps extra spellings to enum values (e.g., "oil" -> "ORAT").
	Aliases map[string]string `yaml:"aliases"`

	// Default fills an optional slot when the text does not mention it.
	Default string `yaml:"default"`

	// Prompt is asked when this slot needs clarification.
	Prompt string `yaml:"prompt"`
}

// IntentDefinition describes one recognisable command.
type IntentDefinition struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`

	// TriggerPatterns are case-insensitive regular expressions. Any match
	// is an exact recognition.
	TriggerPatterns []string `yaml:"trigger_patterns"`

	// Keywords drive partial recognition when no pattern matches.
	Keywords []string `yaml:"keywords"`

	Slots []SlotSpec `yaml:"slots"`

	// ClarificationPrompt is asked when recognition or extraction is unsure
	// and no slot-specific prompt applies.
	ClarificationPrompt string `yaml:"clarification_prompt"`

	patterns []*regexp.Regexp
}

// Matches reports whether any trigger pattern matches text.
func (d IntentDefinition) Matches(text string) bool {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Slot returns the slot called name.
func (d IntentDefinition) Slot(name string) (SlotSpec, bool) {
	for _, s := range d.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotSpec{}, false
}

// SlotsOfType returns the slots of type t in declaration order.
func (d IntentDefinition) SlotsOfType(t types.SlotType) []SlotSpec {
	var out []SlotSpec
	for _, s := range d.Slots {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// Taxonomy is an immutable, ordered intent catalog. It is safe for
// concurrent use. Slices reachable from returned values are shared and must
// be treated as read-only.
type Taxonomy struct {
	version    string
	unitSystem units.System
	intents    []IntentDefinition
	byID       map[string]int
}

// Version returns the catalog version string.
func (t *Taxonomy) Version() string { return t.version }

// UnitSystem returns the unit system generated decks are written in.
func (t *Taxonomy) UnitSystem() units.System { return t.unitSystem }

// Len returns the number of intents.
func (t *Taxonomy) Len() int { return len(t.intents) }

// Intents returns the intents in catalog order.
func (t *Taxonomy) Intents() []IntentDefinition {
	return slices.Clone(t.intents)
}

// Lookup returns the intent with the given id.
func (t *Taxonomy) Lookup(id string) (IntentDefinition, bool) {
	i, ok := t.byID[id]
	if !ok {
		return IntentDefinition{}, false
	}
	return t.intents[i], true
}

// Labels returns the intent ids in catalog order. This is the closed label
// set offered to LLM classifiers.
func (t *Taxonomy) Labels() []string {
	out := make([]string, len(t.intents))
	for i, d := range t.intents {
		out[i] = d.ID
	}
	return out
}

// Index returns the catalog position of id, or -1.
func (t *Taxonomy) Index(id string) int {
	if i, ok := t.byID[id]; ok {
		return i
	}
	return -1
}
