// Package types defines the slot value types shared by the extraction,
// validation, and generation stages of the translation pipeline.
//
// Quantities keep the unit the user stated. Conversion to a canonical unit
// happens only when a value is validated or written into a deck.
package types

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/MrWong99/decksmith/pkg/units"
)

// SlotType is the type of value a slot expects.
type SlotType string

const (
	SlotWellName SlotType = "well_name"
	SlotRate     SlotType = "rate"
	SlotPressure SlotType = "pressure"
	SlotDate     SlotType = "date"
	SlotEnum     SlotType = "enum"
)

// IsValid reports whether t is a recognised slot type.
func (t SlotType) IsValid() bool {
	switch t {
	case SlotWellName, SlotRate, SlotPressure, SlotDate, SlotEnum:
		return true
	}
	return false
}

// UnitKind returns the unit kind a quantity slot carries. ok is false for
// slot types without units.
func (t SlotType) UnitKind() (units.Kind, bool) {
	switch t {
	case SlotRate:
		return units.KindRate, true
	case SlotPressure:
		return units.KindPressure, true
	}
	return "", false
}

// RateValue is a flow rate as stated. Unit is empty when none was given.
type RateValue struct {
	Value      float64
	Unit       units.Unit
	Confidence float64
}

// In converts the rate to u.
func (r RateValue) In(u units.Unit) (float64, error) {
	return units.Convert(r.Value, r.Unit, u)
}

// PressureValue is a pressure as stated. Unit is empty when none was given.
type PressureValue struct {
	Value      float64
	Unit       units.Unit
	Confidence float64
}

// In converts the pressure to u.
func (p PressureValue) In(u units.Unit) (float64, error) {
	return units.Convert(p.Value, p.Unit, u)
}

// DateValue is a calendar date.
type DateValue struct {
	Time       time.Time
	Confidence float64
}

// Value is one filled slot. Exactly one of Text, Rate, Pressure or Date is
// meaningful, selected by Type.
type Value struct {
	Slot string
	Type SlotType

	// Raw is the text span the value was read from.
	Raw string

	// Text holds well names (upper-cased) and enum choices.
	Text string

	Rate     *RateValue
	Pressure *PressureValue
	Date     *DateValue

	Confidence float64

	// Defaulted is set when the value came from the slot's default rather
	// than from the input text.
	Defaulted bool
}

// Quantity returns the numeric value and stated unit of a rate or pressure.
func (v Value) Quantity() (float64, units.Unit, bool) {
	switch {
	case v.Rate != nil:
		return v.Rate.Value, v.Rate.Unit, true
	case v.Pressure != nil:
		return v.Pressure.Value, v.Pressure.Unit, true
	}
	return 0, "", false
}

// String renders the value for display using the stated unit.
func (v Value) String() string {
	switch v.Type {
	case SlotRate, SlotPressure:
		n, u, ok := v.Quantity()
		if !ok {
			return ""
		}
		s := strconv.FormatFloat(n, 'f', -1, 64)
		if u != "" {
			s += " " + string(u)
		}
		return s
	case SlotDate:
		if v.Date == nil {
			return ""
		}
		return v.Date.Time.Format(time.DateOnly)
	}
	return v.Text
}

// Entities maps slot names to filled values.
type Entities map[string]Value

// Names returns the filled slot names in sorted order.
func (e Entities) Names() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// OfType returns the values of type t ordered by slot name.
func (e Entities) OfType(t SlotType) []Value {
	var out []Value
	for _, name := range e.Names() {
		if v := e[name]; v.Type == t {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a shallow copy of e. Values are copied; the pointed-to
// quantities are shared and must not be mutated.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Summary renders e as "slot=value" pairs for logs and prompts.
func (e Entities) Summary() string {
	s := ""
	for i, name := range e.Names() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%s", name, e[name])
	}
	return s
}
