package deckcheck

import (
	"fmt"

	"github.com/MrWong99/decksmith/pkg/deck"
)

// itemCatalog names the record items of the keywords the checker reads,
// using the positions of the simulator manual.
var itemCatalog = map[string][]string{
	"WCONPROD": {1: "WELL", 2: "STATUS", 3: "CMODE", 4: "ORAT", 5: "WRAT", 6: "GRAT", 7: "LRAT", 8: "RESV", 9: "BHP", 10: "THP"},
	"WCONINJE": {1: "WELL", 2: "TYPE", 3: "STATUS", 4: "CMODE", 5: "RATE", 6: "RESV", 7: "BHP", 8: "THP"},
	"WELOPEN":  {1: "WELL", 2: "STATUS"},
	"DATES":    {1: "DAY", 2: "MONTH", 3: "YEAR", 4: "TIME"},
}

// expectation is what a correct fragment for an intent must contain besides
// the slot values.
type expectation struct {
	Keyword string
	Status  string
	Mode    string
}

var intentCatalog = map[string]expectation{
	"set_well_rate":      {Keyword: "WCONPROD", Status: "OPEN"},
	"set_well_bhp":       {Keyword: "WCONPROD", Status: "OPEN", Mode: "BHP"},
	"shut_well":          {Keyword: "WELOPEN", Status: "SHUT"},
	"open_well":          {Keyword: "WELOPEN", Status: "OPEN"},
	"set_injection_rate": {Keyword: "WCONINJE", Status: "OPEN", Mode: "RATE"},
	"advance_to_date":    {Keyword: "DATES"},
}

// view is one record decoded by item name. Defaulted items are absent.
type view map[string]deck.Token

func decode(kw *deck.Keyword) (view, error) {
	names, ok := itemCatalog[kw.Name]
	if !ok {
		return nil, fmt.Errorf("deckcheck: keyword %s is not in the item catalog", kw.Name)
	}
	if len(kw.Records) != 1 {
		return nil, fmt.Errorf("deckcheck: keyword %s has %d records, want 1", kw.Name, len(kw.Records))
	}
	rec := kw.Records[0]
	v := make(view, len(names))
	for pos, name := range names {
		if name == "" {
			continue
		}
		if tok, ok := rec.Item(pos); ok {
			v[name] = tok
		}
	}
	return v, nil
}

// text returns the upper-case value of item name, or "".
func (v view) text(name string) string {
	tok, ok := v[name]
	if !ok {
		return ""
	}
	return tok.Value()
}
