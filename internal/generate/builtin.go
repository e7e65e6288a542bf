package generate

import (
	"fmt"
	"strings"

	"github.com/MrWong99/decksmith/pkg/deck"
	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

// wconprodTarget is the WCONPROD item holding the target of each control
// mode.
var wconprodTarget = map[string]int{
	"ORAT": 4,
	"WRAT": 5,
	"LRAT": 7,
	"RESV": 8,
	"BHP":  9,
}

var monthNames = [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// Builtin returns the registry for the default taxonomy.
func Builtin() *Registry {
	r, err := NewRegistry(
		Template{Name: "wconprod_rate", Intent: "set_well_rate", Slots: []string{"well", "rate", "control"}, Render: renderProducerRate},
		Template{Name: "wconprod_orat", Intent: "set_well_rate", Slots: []string{"well", "rate"}, Render: renderProducerRate},
		Template{Name: "wconprod_bhp", Intent: "set_well_bhp", Slots: []string{"well", "pressure"}, Render: renderProducerBHP},
		Template{Name: "welopen_shut", Intent: "shut_well", Slots: []string{"well"}, Render: renderWelopen("SHUT")},
		Template{Name: "welopen_open", Intent: "open_well", Slots: []string{"well"}, Render: renderWelopen("OPEN")},
		Template{Name: "wconinje_rate", Intent: "set_injection_rate", Slots: []string{"well", "rate"}, Render: renderInjectionRate},
		Template{Name: "dates", Intent: "advance_to_date", Slots: []string{"date"}, Render: renderDates},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func renderProducerRate(ents types.Entities, sys units.System) (*deck.Keyword, error) {
	mode := "ORAT"
	if c, ok := ents["control"]; ok && c.Text != "" {
		mode = strings.ToUpper(c.Text)
	}
	rate, err := deckQuantity(ents, "rate", units.KindRate, sys)
	if err != nil {
		return nil, err
	}
	return controlRecord(ents, mode, rate)
}

func renderProducerBHP(ents types.Entities, sys units.System) (*deck.Keyword, error) {
	p, err := deckQuantity(ents, "pressure", units.KindPressure, sys)
	if err != nil {
		return nil, err
	}
	return controlRecord(ents, "BHP", p)
}

// controlRecord writes a WCONPROD record that opens the well under mode
// with target at the item of that mode.
func controlRecord(ents types.Entities, mode string, target float64) (*deck.Keyword, error) {
	item, ok := wconprodTarget[mode]
	if !ok {
		return nil, fmt.Errorf("generate: unknown WCONPROD control mode %q", mode)
	}
	well, err := wellName(ents)
	if err != nil {
		return nil, err
	}
	toks := []deck.Token{deck.Str(well), deck.Str("OPEN"), deck.Str(mode)}
	if gap := item - 4; gap > 0 {
		toks = append(toks, deck.Defaults(gap))
	}
	toks = append(toks, deck.Num(target))
	return terminated("WCONPROD", toks), nil
}

func renderWelopen(status string) RenderFunc {
	return func(ents types.Entities, _ units.System) (*deck.Keyword, error) {
		well, err := wellName(ents)
		if err != nil {
			return nil, err
		}
		return terminated("WELOPEN", []deck.Token{deck.Str(well), deck.Str(status)}), nil
	}
}

func renderInjectionRate(ents types.Entities, sys units.System) (*deck.Keyword, error) {
	well, err := wellName(ents)
	if err != nil {
		return nil, err
	}
	rate, err := deckQuantity(ents, "rate", units.KindRate, sys)
	if err != nil {
		return nil, err
	}
	return terminated("WCONINJE", []deck.Token{
		deck.Str(well), deck.Str("WATER"), deck.Str("OPEN"), deck.Str("RATE"), deck.Num(rate),
	}), nil
}

func renderDates(ents types.Entities, _ units.System) (*deck.Keyword, error) {
	v := ents["date"]
	if v.Date == nil {
		return nil, fmt.Errorf("generate: slot %q has no date", "date")
	}
	d := v.Date.Time
	return terminated("DATES", []deck.Token{
		deck.Int(d.Day()), deck.Str(monthNames[d.Month()-1]), deck.Int(d.Year()),
	}), nil
}

func terminated(name string, toks []deck.Token) *deck.Keyword {
	return &deck.Keyword{
		Name:       name,
		Records:    []deck.Record{{Tokens: toks}},
		Terminated: true,
	}
}

func wellName(ents types.Entities) (string, error) {
	v, ok := ents["well"]
	if !ok || v.Text == "" {
		return "", fmt.Errorf("generate: slot %q is empty", "well")
	}
	return strings.ToUpper(v.Text), nil
}

// deckQuantity returns slot converted to the deck unit of sys.
func deckQuantity(ents types.Entities, slot string, kind units.Kind, sys units.System) (float64, error) {
	n, u, ok := ents[slot].Quantity()
	if !ok {
		return 0, fmt.Errorf("generate: slot %q has no quantity", slot)
	}
	if u == "" {
		return 0, fmt.Errorf("generate: slot %q has no unit", slot)
	}
	v, err := units.Convert(n, u, sys.DeckUnit(kind))
	if err != nil {
		return 0, fmt.Errorf("generate: slot %q: %w", slot, err)
	}
	return v, nil
}
