// Package deck lexes, parses and serializes ECLIPSE-style keyword decks.
//
// A deck is a positional document: section headers (RUNSPEC, GRID, ...,
// SCHEDULE) group keywords, each keyword carries zero or more records, and
// every record is a run of items closed by a slash. Comments start with "--"
// and run to the end of the line.
//
// [Tokenize] never fails; characters it cannot classify become [TokenUnknown]
// so that [Parse] can report a precise [SyntaxError] position. [Serialize]
// writes a canonical form that [Parse] reads back into an equal AST.
package deck

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TokenType classifies a lexeme.
type TokenType int

const (
	// TokenUnknown is a lexeme the tokenizer could not classify.
	TokenUnknown TokenType = iota
	// TokenWord is a bare identifier such as a keyword name or OPEN.
	TokenWord
	// TokenString is a single-quoted string including its quotes.
	TokenString
	// TokenNumber is an integer or floating-point literal.
	TokenNumber
	// TokenDefault is a default or repeat marker such as 3* or 2*0.5.
	TokenDefault
	// TokenSlash terminates a record or a keyword.
	TokenSlash
	// TokenComment is a "--" comment; Text holds the body without the dashes.
	TokenComment
	// TokenEOF marks the end of input.
	TokenEOF
)

var tokenTypeNames = [...]string{
	TokenUnknown: "UNKNOWN",
	TokenWord:    "WORD",
	TokenString:  "STRING",
	TokenNumber:  "NUMBER",
	TokenDefault: "DEFAULT",
	TokenSlash:   "SLASH",
	TokenComment: "COMMENT",
	TokenEOF:     "EOF",
}

// String returns the upper-case name of the token type.
func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

// Token is a single lexeme with its 1-based source position.
type Token struct {
	Type   TokenType
	Text   string
	Line   int
	Column int
}

// Value returns the token's logical value: strings lose their quotes,
// everything else is returned verbatim.
func (t Token) Value() string {
	if t.Type == TokenString && len(t.Text) >= 2 {
		return t.Text[1 : len(t.Text)-1]
	}
	return t.Text
}

// Float parses a number token. Default tokens carrying a value ("2*0.5")
// yield that value.
func (t Token) Float() (float64, bool) {
	switch t.Type {
	case TokenNumber:
		v, err := strconv.ParseFloat(t.Text, 64)
		return v, err == nil
	case TokenDefault:
		_, val, ok := strings.Cut(t.Text, "*")
		if !ok || val == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(val, 64)
		return v, err == nil
	}
	return 0, false
}

// Repeat returns how many items a default token stands for. Every other
// token counts as one item.
func (t Token) Repeat() int {
	if t.Type != TokenDefault {
		return 1
	}
	n, _, _ := strings.Cut(t.Text, "*")
	v, err := strconv.Atoi(n)
	if err != nil || v < 1 {
		return 1
	}
	return v
}

var (
	defaultRe = regexp.MustCompile(`^[0-9]+\*([-+]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?)?$`)
	numberRe  = regexp.MustCompile(`^[-+]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?$`)
)

// Tokenize splits src into tokens. The returned slice always ends with a
// TokenEOF token. Malformed input never causes an error.
func Tokenize(src string) []Token {
	lx := lexer{src: src, line: 1, col: 1}
	var toks []Token
	for {
		tok := lx.next()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func (lx *lexer) advance(n int) {
	lx.pos += n
	lx.col += n
}

func (lx *lexer) emit(typ TokenType, start, line, col int) Token {
	return Token{Type: typ, Text: lx.src[start:lx.pos], Line: line, Column: col}
}

func (lx *lexer) next() Token {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.pos++
			lx.line++
			lx.col = 1
			continue
		case c == ' ' || c == '\t' || c == '\r':
			lx.advance(1)
			continue
		}

		start, line, col := lx.pos, lx.line, lx.col
		switch {
		case c == '-' && strings.HasPrefix(lx.src[lx.pos:], "--"):
			end := lx.lineEnd()
			body := strings.TrimSpace(lx.src[lx.pos+2 : end])
			lx.advance(end - lx.pos)
			return Token{Type: TokenComment, Text: body, Line: line, Column: col}

		case c == '/':
			lx.advance(1)
			return lx.emit(TokenSlash, start, line, col)

		case c == '\'':
			end := lx.lineEnd()
			closing := strings.IndexByte(lx.src[lx.pos+1:end], '\'')
			if closing < 0 {
				lx.advance(end - lx.pos)
				return lx.emit(TokenUnknown, start, line, col)
			}
			lx.advance(closing + 2)
			return lx.emit(TokenString, start, line, col)

		case isDigit(c) || ((c == '-' || c == '+' || c == '.') && lx.pos+1 < len(lx.src) && (isDigit(lx.src[lx.pos+1]) || lx.src[lx.pos+1] == '.')):
			for lx.pos < len(lx.src) && isNumeric(lx.src[lx.pos]) {
				lx.advance(1)
			}
			text := lx.src[start:lx.pos]
			switch {
			case defaultRe.MatchString(text):
				return lx.emit(TokenDefault, start, line, col)
			case numberRe.MatchString(text):
				return lx.emit(TokenNumber, start, line, col)
			}
			return lx.emit(TokenUnknown, start, line, col)

		case isWordStart(c):
			for lx.pos < len(lx.src) && isWordPart(lx.src[lx.pos]) {
				lx.advance(1)
			}
			return lx.emit(TokenWord, start, line, col)
		}

		_, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		lx.advance(size)
		return lx.emit(TokenUnknown, start, line, col)
	}
	return Token{Type: TokenEOF, Line: lx.line, Column: lx.col}
}

func (lx *lexer) lineEnd() int {
	if i := strings.IndexByte(lx.src[lx.pos:], '\n'); i >= 0 {
		return lx.pos + i
	}
	return len(lx.src)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNumeric(c byte) bool {
	return isDigit(c) || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' || c == '*'
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isWordPart(c byte) bool {
	return isWordStart(c) || isDigit(c) || c == '-' || c == '.' || c == ':'
}
