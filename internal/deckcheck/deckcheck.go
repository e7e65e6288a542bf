// Package deckcheck verifies generated deck fragments by reading them back.
//
// The checker parses the fragment with the deck parser, decodes the records
// through its own item catalog, and compares the values it reads with the
// values the entities call for.
package deckcheck

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/MrWong99/decksmith/internal/generate"
	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/deck"
	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

// Metadata keys set on validation results.
const (
	MetaDiff     = stage.MetaDiff
	MetaExpected = "expected"
	MetaActual   = "actual"
	MetaError    = "error"
	MetaCheckedBy = "checked_by"
)

// Values of [MetaCheckedBy].
const (
	CheckedByIntent  = "intent"
	CheckedByKeyword = "keyword"
)

// Reading is one value as the deck states it. Quantities are expressed in
// Unit.
type Reading struct {
	Text  string
	Value float64
	Unit  units.Unit
}

// Readings maps slot names, plus the pseudo slots "keyword", "status" and
// "mode", to readings.
type Readings map[string]Reading

var months = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March, "APR": time.April,
	"MAY": time.May, "JUN": time.June, "JUL": time.July, "JLY": time.July,
	"AUG": time.August, "SEP": time.September, "OCT": time.October,
	"NOV": time.November, "DEC": time.December,
}

// Validator checks generated fragments.
type Validator struct {
	margin float64
}

// Option configures a [Validator].
type Option func(*Validator)

// WithTolerance sets the relative and absolute tolerance for quantities.
// The default is 1e-9.
func WithTolerance(v float64) Option {
	return func(c *Validator) {
		if v > 0 {
			c.margin = v
		}
	}
}

// New returns a validator.
func New(opts ...Option) *Validator {
	v := &Validator{margin: 1e-9}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate parses text and compares it with ents. On success the data is
// the parsed fragment.
func (c *Validator) Validate(text string, ents types.Entities, intent taxonomy.IntentDefinition, sys units.System) stage.Result[*deck.Deck] {
	d, err := deck.ParseString(text)
	if err != nil {
		slog.Error("deckcheck: generated text does not parse", "intent", intent.ID, "err", err)
		return stage.Failure[*deck.Deck](nil, stage.Metadata{MetaError: err.Error()}, stage.CodeSyntaxGenerationFailure)
	}

	exp, checkedBy := intentCatalog[intent.ID], CheckedByIntent
	if exp.Keyword == "" {
		if exp, err = keywordExpectation(d, ents, intent); err != nil {
			slog.Warn("deckcheck: fragment cannot be checked", "intent", intent.ID, "err", err)
			return stage.Failure(d, stage.Metadata{MetaError: err.Error()}, stage.CodeDeckValidationFailure)
		}
		checkedBy = CheckedByKeyword
	}

	expected, err := expectedReadings(ents, intent, exp, sys)
	if err != nil {
		return stage.Failure(d, stage.Metadata{MetaError: err.Error()}, stage.CodeDeckValidationFailure)
	}
	actual, err := actualReadings(d, ents, intent, exp, sys)
	if err != nil {
		return stage.Failure(d, stage.Metadata{
			MetaError:    err.Error(),
			MetaExpected: expected,
		}, stage.CodeDeckValidationFailure)
	}

	if diff := cmp.Diff(expected, actual, cmpopts.EquateApprox(c.margin, c.margin)); diff != "" {
		slog.Warn("deckcheck: fragment does not match entities", "intent", intent.ID, "diff", diff)
		return stage.Failure(d, stage.Metadata{
			MetaDiff:     diff,
			MetaExpected: expected,
			MetaActual:   actual,
		}, stage.CodeDeckValidationFailure)
	}
	return stage.Success(d, 1, stage.Metadata{MetaCheckedBy: checkedBy})
}

// Catalogued reports whether intent has its own expectation. Other intents
// are checked through the decoder of the keyword they generate, which
// compares slot values only.
func Catalogued(intent string) bool {
	_, ok := intentCatalog[intent]
	return ok
}

// keywordExpectation derives the expectation for an intent without a
// catalog entry from the fragment's keyword. The keyword must have a decoder
// and at least one slot value must be comparable.
func keywordExpectation(d *deck.Deck, ents types.Entities, intent taxonomy.IntentDefinition) (expectation, error) {
	sec := d.Section(generate.Section)
	if sec == nil || len(sec.Keywords) != 1 {
		return expectation{}, fmt.Errorf("deckcheck: want exactly one keyword in %s", generate.Section)
	}
	name := sec.Keywords[0].Name
	if _, ok := itemCatalog[name]; !ok {
		return expectation{}, fmt.Errorf("deckcheck: no decoder for keyword %s of intent %s", name, intent.ID)
	}
	for _, slot := range intent.Slots {
		if _, ok := ents[slot.Name]; ok {
			return expectation{Keyword: name}, nil
		}
	}
	return expectation{}, fmt.Errorf("deckcheck: intent %s has no slot value to compare", intent.ID)
}

// readingUnit is the unit a quantity slot is compared in.
func readingUnit(slot taxonomy.SlotSpec, sys units.System) (units.Unit, error) {
	if slot.UnitHint != "" {
		return slot.UnitHint, nil
	}
	kind, ok := slot.Type.UnitKind()
	if !ok {
		return "", fmt.Errorf("deckcheck: slot %q is not a quantity", slot.Name)
	}
	return sys.DeckUnit(kind), nil
}

func expectedReadings(ents types.Entities, intent taxonomy.IntentDefinition, exp expectation, sys units.System) (Readings, error) {
	out := Readings{"keyword": {Text: exp.Keyword}}
	if exp.Status != "" {
		out["status"] = Reading{Text: exp.Status}
	}
	if exp.Mode != "" {
		out["mode"] = Reading{Text: exp.Mode}
	}
	for _, slot := range intent.Slots {
		v, ok := ents[slot.Name]
		if !ok {
			continue
		}
		switch slot.Type {
		case types.SlotWellName, types.SlotEnum:
			out[slot.Name] = Reading{Text: strings.ToUpper(v.Text)}
		case types.SlotDate:
			if v.Date == nil {
				return nil, fmt.Errorf("deckcheck: slot %q has no date", slot.Name)
			}
			out[slot.Name] = Reading{Text: v.Date.Time.Format(time.DateOnly)}
		case types.SlotRate, types.SlotPressure:
			n, u, ok := v.Quantity()
			if !ok || u == "" {
				return nil, fmt.Errorf("deckcheck: slot %q has no quantity with a unit", slot.Name)
			}
			want, err := readingUnit(slot, sys)
			if err != nil {
				return nil, err
			}
			conv, err := units.Convert(n, u, want)
			if err != nil {
				return nil, fmt.Errorf("deckcheck: slot %q: %w", slot.Name, err)
			}
			out[slot.Name] = Reading{Value: conv, Unit: want}
		}
	}
	return out, nil
}

func actualReadings(d *deck.Deck, ents types.Entities, intent taxonomy.IntentDefinition, exp expectation, sys units.System) (Readings, error) {
	sec := d.Section(generate.Section)
	if sec == nil || len(sec.Keywords) != 1 {
		return nil, fmt.Errorf("deckcheck: want exactly one keyword in %s", generate.Section)
	}
	kw := sec.Keywords[0]
	out := Readings{"keyword": {Text: kw.Name}}
	v, err := decode(kw)
	if err != nil {
		return nil, err
	}
	if exp.Status != "" {
		out["status"] = Reading{Text: v.text("STATUS")}
	}
	if exp.Mode != "" {
		out["mode"] = Reading{Text: v.text("CMODE")}
	}

	for _, slot := range intent.Slots {
		if _, ok := ents[slot.Name]; !ok {
			continue
		}
		switch slot.Type {
		case types.SlotWellName:
			out[slot.Name] = Reading{Text: v.text("WELL")}
		case types.SlotEnum:
			out[slot.Name] = Reading{Text: v.text("CMODE")}
		case types.SlotDate:
			date, err := readDate(v)
			if err != nil {
				return nil, err
			}
			out[slot.Name] = Reading{Text: date}
		case types.SlotRate, types.SlotPressure:
			r, err := readQuantity(v, slot, sys)
			if err != nil {
				return nil, err
			}
			out[slot.Name] = r
		}
	}
	return out, nil
}

// readQuantity reads the target of the record's control mode.
func readQuantity(v view, slot taxonomy.SlotSpec, sys units.System) (Reading, error) {
	mode := v.text("CMODE")
	tok, ok := v[mode]
	if mode == "" || !ok {
		return Reading{}, fmt.Errorf("deckcheck: no target item for control mode %q", mode)
	}
	n, ok := tok.Float()
	if !ok {
		return Reading{}, fmt.Errorf("deckcheck: item %s is not a number: %q", mode, tok.Text)
	}
	kind, ok := slot.Type.UnitKind()
	if !ok {
		return Reading{}, fmt.Errorf("deckcheck: slot %q is not a quantity", slot.Name)
	}
	want, err := readingUnit(slot, sys)
	if err != nil {
		return Reading{}, err
	}
	conv, err := units.Convert(n, sys.DeckUnit(kind), want)
	if err != nil {
		return Reading{}, fmt.Errorf("deckcheck: item %s: %w", mode, err)
	}
	return Reading{Value: conv, Unit: want}, nil
}

func readDate(v view) (string, error) {
	day, dok := v["DAY"].Float()
	year, yok := v["YEAR"].Float()
	month, mok := months[strings.ToUpper(v.text("MONTH"))]
	if !dok || !yok || !mok {
		return "", fmt.Errorf("deckcheck: malformed DATES record")
	}
	t := time.Date(int(year), month, int(day), 0, 0, 0, 0, time.UTC)
	if t.Day() != int(day) {
		return "", fmt.Errorf("deckcheck: invalid date %v %s %v", day, month, year)
	}
	return t.Format(time.DateOnly), nil
}
