package deck

import (
	"strconv"
	"strings"
)

// SectionNames lists the section headers recognised by [Parse], in the order
// a simulator expects them.
var SectionNames = []string{
	"RUNSPEC", "GRID", "EDIT", "PROPS", "REGIONS", "SOLUTION", "SUMMARY", "SCHEDULE",
}

// IsSection reports whether name is a section header.
func IsSection(name string) bool {
	for _, s := range SectionNames {
		if s == name {
			return true
		}
	}
	return false
}

// Deck is an ordered list of sections plus any comments after the last node.
type Deck struct {
	Sections []*Section
	Trailing []Comment
}

// Section groups keywords under a header. The preamble before the first
// header is a Section with an empty Name.
type Section struct {
	Name     string
	Comments []Comment
	Keywords []*Keyword
}

// Keyword is a named block of records. Terminated reports whether the
// keyword was closed by a lone slash.
type Keyword struct {
	Name       string
	Comments   []Comment
	Records    []Record
	Terminated bool
}

// Record is one slash-terminated line of items. Tokens never include the
// closing slash.
type Record struct {
	Comments []Comment
	Tokens   []Token
}

// Comment is the body of a "--" comment line.
type Comment struct {
	Text string
}

// Item returns the item at 1-based position pos, expanding default repeat
// markers. The second result is false when the item is defaulted or beyond
// the end of the record.
func (r Record) Item(pos int) (Token, bool) {
	if pos < 1 {
		return Token{}, false
	}
	n := 0
	for _, tok := range r.Tokens {
		rep := tok.Repeat()
		if pos <= n+rep {
			if tok.Type == TokenDefault {
				if _, ok := tok.Float(); ok {
					return tok, true
				}
				return Token{}, false
			}
			return tok, true
		}
		n += rep
	}
	return Token{}, false
}

// Section returns the last section called name, or nil.
func (d *Deck) Section(name string) *Section {
	for i := len(d.Sections) - 1; i >= 0; i-- {
		if d.Sections[i].Name == name {
			return d.Sections[i]
		}
	}
	return nil
}

// Keywords returns every keyword in document order.
func (d *Deck) Keywords() []*Keyword {
	var out []*Keyword
	for _, s := range d.Sections {
		out = append(out, s.Keywords...)
	}
	return out
}

// Merge appends the keywords of fragment to d. Keywords of a section already
// present in d go to the end of the last section with that name; unknown
// sections are appended, except a missing preamble which is inserted first.
// Existing sections never change their relative order.
func (d *Deck) Merge(fragment *Deck) {
	for _, fs := range fragment.Sections {
		if dst := d.Section(fs.Name); dst != nil {
			dst.Keywords = append(dst.Keywords, fs.Keywords...)
			continue
		}
		ns := &Section{
			Name:     fs.Name,
			Comments: fs.Comments,
			Keywords: append([]*Keyword(nil), fs.Keywords...),
		}
		if ns.Name == "" {
			d.Sections = append([]*Section{ns}, d.Sections...)
			continue
		}
		d.Sections = append(d.Sections, ns)
	}
	d.Trailing = append(d.Trailing, fragment.Trailing...)
}

// Str builds a quoted string item.
func Str(s string) Token {
	return Token{Type: TokenString, Text: "'" + strings.ReplaceAll(s, "'", "") + "'"}
}

// Num builds a number item using the shortest exact decimal form.
func Num(v float64) Token {
	return Token{Type: TokenNumber, Text: strconv.FormatFloat(v, 'f', -1, 64)}
}

// Int builds an integer number item.
func Int(v int) Token {
	return Token{Type: TokenNumber, Text: strconv.Itoa(v)}
}

// Defaults builds a marker standing for n defaulted items.
func Defaults(n int) Token {
	return Token{Type: TokenDefault, Text: strconv.Itoa(n) + "*"}
}

// Ident builds a bare word item.
func Ident(s string) Token {
	return Token{Type: TokenWord, Text: s}
}
