// Package generate renders recognised intents as SCHEDULE deck fragments.
//
// Generation is deterministic and never sees the user's text: a [Template]
// turns the filled slots into one keyword, and the [Registry] picks the most
// specific template whose slots are all present.
package generate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/deck"
	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

// Metadata keys set on generation results.
const (
	MetaTemplate = "template"
	MetaError    = "error"
)

// Section is the deck section every fragment is written to.
const Section = "SCHEDULE"

// RenderFunc builds the keyword for one command. Quantities must be written
// in the units of sys.
type RenderFunc func(ents types.Entities, sys units.System) (*deck.Keyword, error)

// Template maps an intent and a slot combination to a keyword.
type Template struct {
	// Name identifies the template in metadata and logs.
	Name string

	// Intent is the taxonomy intent id.
	Intent string

	// Slots must all be filled for the template to apply.
	Slots []string

	Render RenderFunc
}

func (t Template) applies(ents types.Entities) bool {
	for _, s := range t.Slots {
		if _, ok := ents[s]; !ok {
			return false
		}
	}
	return true
}

// Registry is an immutable set of templates.
type Registry struct {
	byIntent map[string][]Template
}

// NewRegistry validates and indexes templates. Two templates for the same
// intent and slot set are rejected.
func NewRegistry(templates ...Template) (*Registry, error) {
	r := &Registry{byIntent: make(map[string][]Template)}
	var errs []error
	for i, t := range templates {
		switch {
		case t.Intent == "":
			errs = append(errs, fmt.Errorf("generate: templates[%d]: intent is required", i))
			continue
		case t.Render == nil:
			errs = append(errs, fmt.Errorf("generate: templates[%d] (%s): render func is required", i, t.Intent))
			continue
		}
		key := slotKey(t.Slots)
		for _, prev := range r.byIntent[t.Intent] {
			if slotKey(prev.Slots) == key {
				errs = append(errs, fmt.Errorf("generate: templates[%d]: intent %q already has a template for slots [%s]", i, t.Intent, key))
			}
		}
		if t.Name == "" {
			t.Name = t.Intent
		}
		t.Slots = slices.Clone(t.Slots)
		r.byIntent[t.Intent] = append(r.byIntent[t.Intent], t)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func slotKey(slots []string) string {
	s := slices.Clone(slots)
	slices.Sort(s)
	return strings.Join(s, ",")
}

// Intents returns the intent ids that have at least one template, sorted.
func (r *Registry) Intents() []string {
	out := make([]string, 0, len(r.byIntent))
	for id := range r.byIntent {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// CheckCoverage returns the intents of tax that have no template, in
// taxonomy order.
func (r *Registry) CheckCoverage(tax *taxonomy.Taxonomy) []string {
	var missing []string
	for _, def := range tax.Intents() {
		if len(r.byIntent[def.ID]) == 0 {
			missing = append(missing, def.ID)
		}
	}
	return missing
}

// Select returns the applicable template with the most slots. Ties go to the
// template registered first.
func (r *Registry) Select(intent string, ents types.Entities) (Template, bool) {
	var (
		best  Template
		found bool
	)
	for _, t := range r.byIntent[intent] {
		if !t.applies(ents) {
			continue
		}
		if !found || len(t.Slots) > len(best.Slots) {
			best, found = t, true
		}
	}
	return best, found
}

// Generate renders the fragment for intent. The result data is the
// serialized fragment: a SCHEDULE header followed by one keyword.
func (r *Registry) Generate(intent taxonomy.IntentDefinition, ents types.Entities, sys units.System) stage.Result[string] {
	t, ok := r.Select(intent.ID, ents)
	if !ok {
		return stage.Failure("", stage.Metadata{
			MetaError: fmt.Sprintf("no template for intent %q with slots [%s]", intent.ID, strings.Join(ents.Names(), ",")),
		}, stage.CodeNoTemplateForIntent)
	}

	kw, err := t.Render(ents, sys)
	if err != nil {
		slog.Error("generate: render failed", "template", t.Name, "err", err)
		return stage.Failure("", stage.Metadata{
			MetaTemplate: t.Name,
			MetaError:    err.Error(),
		}, stage.CodeSyntaxGenerationFailure)
	}

	frag := &deck.Deck{Sections: []*deck.Section{{Name: Section, Keywords: []*deck.Keyword{kw}}}}
	return stage.Success(deck.Serialize(frag), 1, stage.Metadata{MetaTemplate: t.Name})
}
