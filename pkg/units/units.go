// Package units names the rate and pressure units understood by decksmith and
// converts values between units of the same kind.
package units

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Unit is a canonical unit symbol such as "BBL/DAY" or "PSI".
type Unit string

const (
	BBLPerDay Unit = "BBL/DAY"
	M3PerDay  Unit = "M3/DAY"
	PSI       Unit = "PSI"
	Bar       Unit = "BAR"
	KPa       Unit = "KPA"
	Atm       Unit = "ATM"
)

// Kind groups units that can be converted into one another.
type Kind string

const (
	KindRate     Kind = "rate"
	KindPressure Kind = "pressure"
)

// ErrIncompatible is returned when converting between units of different kinds.
var ErrIncompatible = errors.New("units: incompatible units")

// ErrUnknownUnit is returned for a unit symbol outside the catalog.
var ErrUnknownUnit = errors.New("units: unknown unit")

type unitInfo struct {
	kind Kind
	// factor converts one of this unit into the kind's base unit
	// (BBL/DAY for rates, PSI for pressures).
	factor float64
}

var catalog = map[Unit]unitInfo{
	BBLPerDay: {kind: KindRate, factor: 1},
	M3PerDay:  {kind: KindRate, factor: 6.289810770432105},
	PSI:       {kind: KindPressure, factor: 1},
	Bar:       {kind: KindPressure, factor: 14.503773773020923},
	KPa:       {kind: KindPressure, factor: 0.14503773773020923},
	Atm:       {kind: KindPressure, factor: 14.695948775513449},
}

var aliases = map[string]Unit{
	"bbl/day": BBLPerDay, "bbl/d": BBLPerDay, "bbls/day": BBLPerDay, "bbls/d": BBLPerDay,
	"stb/day": BBLPerDay, "stb/d": BBLPerDay, "bpd": BBLPerDay, "bopd": BBLPerDay,
	"barrels/day": BBLPerDay, "barrels per day": BBLPerDay, "bbl per day": BBLPerDay,
	"m3/day": M3PerDay, "m3/d": M3PerDay, "sm3/day": M3PerDay, "sm3/d": M3PerDay,
	"m^3/day": M3PerDay, "cubic meters per day": M3PerDay,
	"psi": PSI, "psia": PSI,
	"bar": Bar, "bara": Bar, "bars": Bar,
	"kpa": KPa,
	"atm": Atm,
}

// Parse resolves a spelled unit ("bbl/day", "psia", "M3/DAY") to its
// canonical symbol.
func Parse(s string) (Unit, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if u, ok := aliases[key]; ok {
		return u, true
	}
	if _, ok := catalog[Unit(strings.ToUpper(key))]; ok {
		return Unit(strings.ToUpper(key)), true
	}
	return "", false
}

// Aliases returns every accepted spelling, longest first so that regex
// alternations prefer "bbl/day" over "bbl".
func Aliases() []string {
	out := make([]string, 0, len(aliases))
	for a := range aliases {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b string) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	return out
}

// KindOf returns the kind of u.
func KindOf(u Unit) (Kind, bool) {
	info, ok := catalog[u]
	return info.kind, ok
}

// Valid reports whether u is in the catalog.
func (u Unit) Valid() bool {
	_, ok := catalog[u]
	return ok
}

// Convert converts v from one unit to another of the same kind.
func Convert(v float64, from, to Unit) (float64, error) {
	fi, ok := catalog[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}
	ti, ok := catalog[to]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
	if fi.kind != ti.kind {
		return 0, fmt.Errorf("%w: %s (%s) to %s (%s)", ErrIncompatible, from, fi.kind, to, ti.kind)
	}
	if from == to {
		return v, nil
	}
	return v * fi.factor / ti.factor, nil
}

// System is a deck unit system.
type System string

const (
	Field  System = "FIELD"
	Metric System = "METRIC"
)

// Valid reports whether s is a known unit system.
func (s System) Valid() bool {
	return s == Field || s == Metric
}

// DeckUnit returns the unit a deck written in system s uses for kind.
func (s System) DeckUnit(kind Kind) Unit {
	switch {
	case s == Metric && kind == KindRate:
		return M3PerDay
	case s == Metric && kind == KindPressure:
		return Bar
	case kind == KindRate:
		return BBLPerDay
	default:
		return PSI
	}
}
