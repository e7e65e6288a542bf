package extract

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

const months = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

var (
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayMonthRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?[\s-]+(` + months + `)[a-z]*\.?[\s-]+(\d{4})\b`)
	monthDayRe   = regexp.MustCompile(`(?i)\b(` + months + `)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	namedWellRe  = regexp.MustCompile(`(?i)\bwells?\s+([a-z0-9][a-z0-9_-]*)`)
	shapedWellRe = regexp.MustCompile(`(?i)\b[a-z]{1,8}-?\d{1,4}[a-z]?\b`)

	quantityRe *regexp.Regexp
	rejectedRe *regexp.Regexp
	bareUnitRe *regexp.Regexp
)

func init() {
	alts := make([]string, 0, len(units.Aliases()))
	for _, a := range units.Aliases() {
		alts = append(alts, regexp.QuoteMeta(a))
	}
	unitAlt := strings.Join(alts, "|")
	quantityRe = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)(?:\s*(` + unitAlt + `)\b)?`)
	// Signed and exponent numbers are never valid rates or pressures.
	rejectedRe = regexp.MustCompile(`(?i)(?:^|[\s(=:,;])([-+]\d+(?:\.\d+)?(?:e[-+]?\d+)?|\d+(?:\.\d+)?e[-+]?\d+)(?:\s*(` + unitAlt + `)\b)?`)
	bareUnitRe = regexp.MustCompile(`(?i)(?:^|[\s(,;])(` + unitAlt + `)\b`)
}

type span struct{ start, end int }

type foundDate struct {
	raw  string
	date types.DateValue
}

type foundWell struct {
	raw        string
	name       string
	confidence float64
}

type foundQuantity struct {
	raw   string
	value float64
	unit  units.Unit
}

// rejectedQuantity is a number that cannot be a slot value, with the unit
// stated after it, if any.
type rejectedQuantity struct {
	raw  string
	unit units.Unit
}

// findings is everything entity-shaped in a text, in text order per kind.
type findings struct {
	dates      []foundDate
	wells      []foundWell
	quantities []foundQuantity
	rejected   []rejectedQuantity
	bareUnits  []units.Unit

	text string
	used []span
}

func (f *findings) free(s, e int) bool {
	for _, u := range f.used {
		if s < u.end && u.start < e {
			return false
		}
	}
	return true
}

func (f *findings) take(s, e int) {
	f.used = append(f.used, span{s, e})
}

// scan finds dates, well names, quantities and bare units. Earlier kinds
// claim their spans first so that, for example, the digits of a date or of
// PROD-01 are never read as a quantity.
func scan(text string) *findings {
	f := &findings{text: text}
	f.scanDates()
	f.scanNamedWells()
	f.scanRejected()
	f.scanQuantities()
	f.scanBareUnits()
	f.scanShapedWells()
	return f
}

func (f *findings) scanDates() {
	type hit struct {
		start, end int
		d          types.DateValue
	}
	var hits []hit
	for _, m := range isoDateRe.FindAllStringSubmatchIndex(f.text, -1) {
		y, _ := strconv.Atoi(f.text[m[2]:m[3]])
		mo, _ := strconv.Atoi(f.text[m[4]:m[5]])
		d, _ := strconv.Atoi(f.text[m[6]:m[7]])
		if t, ok := makeDate(y, time.Month(mo), d); ok {
			hits = append(hits, hit{m[0], m[1], types.DateValue{Time: t, Confidence: isoDateConfidence}})
		}
	}
	for _, m := range dayMonthRe.FindAllStringSubmatchIndex(f.text, -1) {
		d, _ := strconv.Atoi(f.text[m[2]:m[3]])
		mo := monthOf(f.text[m[4]:m[5]])
		y, _ := strconv.Atoi(f.text[m[6]:m[7]])
		if t, ok := makeDate(y, mo, d); ok {
			hits = append(hits, hit{m[0], m[1], types.DateValue{Time: t, Confidence: textDateConfidence}})
		}
	}
	for _, m := range monthDayRe.FindAllStringSubmatchIndex(f.text, -1) {
		mo := monthOf(f.text[m[2]:m[3]])
		d, _ := strconv.Atoi(f.text[m[4]:m[5]])
		y, _ := strconv.Atoi(f.text[m[6]:m[7]])
		if t, ok := makeDate(y, mo, d); ok {
			hits = append(hits, hit{m[0], m[1], types.DateValue{Time: t, Confidence: textDateConfidence}})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(a.start, b.start) })
	for _, h := range hits {
		if !f.free(h.start, h.end) {
			continue
		}
		f.take(h.start, h.end)
		f.dates = append(f.dates, foundDate{raw: f.text[h.start:h.end], date: h.d})
	}
}

func (f *findings) scanNamedWells() {
	for _, m := range namedWellRe.FindAllStringSubmatchIndex(f.text, -1) {
		s, e := m[2], m[3]
		name := f.text[s:e]
		if !f.free(s, e) || !plausibleWellName(name) {
			continue
		}
		f.take(s, e)
		f.wells = append(f.wells, foundWell{raw: name, name: strings.ToUpper(name), confidence: namedWellConfidence})
	}
}

func (f *findings) scanRejected() {
	for _, m := range rejectedRe.FindAllStringSubmatchIndex(f.text, -1) {
		s, e := m[2], m[1]
		if !f.free(s, e) {
			continue
		}
		if m[4] < 0 && e < len(f.text) && unicode.IsLetter(rune(f.text[e])) {
			continue
		}
		var unit units.Unit
		if m[4] >= 0 {
			unit, _ = units.Parse(f.text[m[4]:m[5]])
		}
		f.take(s, e)
		f.rejected = append(f.rejected, rejectedQuantity{raw: f.text[s:e], unit: unit})
	}
}

func (f *findings) scanQuantities() {
	for _, m := range quantityRe.FindAllStringSubmatchIndex(f.text, -1) {
		s, e := m[0], m[1]
		if s > 0 && isNameByte(f.text[s-1]) {
			continue
		}
		if !f.free(s, e) {
			continue
		}
		var unit units.Unit
		if m[4] >= 0 {
			unit, _ = units.Parse(f.text[m[4]:m[5]])
		} else if e < len(f.text) && unicode.IsLetter(rune(f.text[e])) {
			// "3rd", "12A": not a quantity.
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(f.text[m[2]:m[3]], ",", ""), 64)
		if err != nil {
			continue
		}
		f.take(s, e)
		f.quantities = append(f.quantities, foundQuantity{raw: f.text[s:e], value: v, unit: unit})
	}
}

func (f *findings) scanBareUnits() {
	for _, m := range bareUnitRe.FindAllStringSubmatchIndex(f.text, -1) {
		s, e := m[2], m[3]
		if !f.free(s, e) {
			continue
		}
		if u, ok := units.Parse(f.text[s:e]); ok {
			f.take(s, e)
			f.bareUnits = append(f.bareUnits, u)
		}
	}
}

func (f *findings) scanShapedWells() {
	for _, m := range shapedWellRe.FindAllStringIndex(f.text, -1) {
		s, e := m[0], m[1]
		if !f.free(s, e) {
			continue
		}
		raw := f.text[s:e]
		f.take(s, e)
		f.wells = append(f.wells, foundWell{raw: raw, name: strings.ToUpper(raw), confidence: shapedWellConfidence})
	}
}

// plausibleWellName accepts names with a digit or written in capitals, so
// "well PROD-01" and "well ALPHA" count but "well rate" does not.
func plausibleWellName(s string) bool {
	hasDigit := false
	for _, r := range s {
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	return hasDigit || (len(s) > 1 && s == strings.ToUpper(s))
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' || c == '.' || c == '/' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func makeDate(y int, m time.Month, d int) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != m {
		return time.Time{}, false
	}
	return t, true
}

func monthOf(s string) time.Month {
	i := strings.Index(months, strings.ToLower(s[:3]))
	return time.Month(i/4 + 1)
}
