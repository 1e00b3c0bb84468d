package expression

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/odataql/internal/model"
)

// operatorWords are the word-shaped operators classified as TokenOperator.
var operatorWords = map[string]bool{
	"eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true,
	"and": true, "or": true, "not": true,
	"add": true, "sub": true, "mul": true, "div": true, "mod": true,
	"has": true, "in": true,
}

const punctuation = "(),/:"

var (
	intPattern      = regexp.MustCompile(`^-?[0-9]+$`)
	decimalPattern  = regexp.MustCompile(`^-?[0-9]+\.[0-9]+$`)
	doublePattern   = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?[eE][+-]?[0-9]+$`)
	datePattern     = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	dateTimePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}(:[0-9]{2}(\.[0-9]+)?)?(Z|[+-][0-9]{2}:[0-9]{2})$`)
	timePattern     = regexp.MustCompile(`^[0-9]{2}:[0-9]{2}(:[0-9]{2}(\.[0-9]+)?)?$`)
)

// Lexer splits an expression into tokens on demand.
//
// The cursor is the only mutable state. Every method that fails leaves the
// cursor where it was, so callers can try an alternative production at the
// same position.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// checkpoint saves the lexer cursor so an attempted production can be
// rolled back.
type checkpoint struct {
	lexer *Lexer
	pos   int
}

func (l *Lexer) save() *checkpoint {
	return &checkpoint{lexer: l, pos: l.pos}
}

func (cp *checkpoint) restore() {
	cp.lexer.pos = cp.pos
}

// Pos returns the current byte offset.
func (l *Lexer) Pos() int {
	return l.pos
}

// AtEnd reports whether only whitespace remains.
func (l *Lexer) AtEnd() bool {
	l.skipBlanks()
	return l.pos >= len(l.input)
}

// Next advances past the next token and returns it. At the end of input it
// returns a TokenEOF token.
func (l *Lexer) Next() (Token, error) {
	l.skipBlanks()
	start := l.pos
	if start >= len(l.input) {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	c := l.input[start]
	switch {
	case strings.IndexByte(punctuation, c) >= 0:
		l.pos++
		return Token{Kind: TokenPunctuation, Text: string(c), Pos: start}, nil
	case c == '\'':
		return l.stringLiteral()
	case c == '-':
		if start+1 < len(l.input) && isDigit(l.input[start+1]) {
			return l.Literal()
		}
		l.pos++
		return Token{Kind: TokenOperator, Text: "-", Pos: start}, nil
	case isDigit(c):
		return l.Literal()
	}

	r, _ := utf8.DecodeRuneInString(l.input[start:])
	if !isIdentStart(r) {
		return Token{}, NewLexError(start, "unexpected character %q", r)
	}
	if tok, ok := l.guid(); ok {
		return tok, nil
	}

	tok, err := l.Identifier()
	if err != nil {
		return Token{}, err
	}
	switch {
	case operatorWords[tok.Text]:
		tok.Kind = TokenOperator
	case tok.Text == "true" || tok.Text == "false":
		tok.Kind = TokenLiteral
		tok.Value = tok.Text == "true"
		tok.Type = model.Boolean
	case tok.Text == "null":
		tok.Kind = TokenLiteral
	}
	return tok, nil
}

// Peek returns the next token without advancing.
func (l *Lexer) Peek() (Token, error) {
	cp := l.save()
	defer cp.restore()
	return l.Next()
}

// Identifier consumes an identifier-shaped word regardless of whether it is
// also an operator keyword. It fails without advancing when the next token is
// not identifier-shaped.
func (l *Lexer) Identifier() (Token, error) {
	l.skipBlanks()
	start := l.pos
	if start >= len(l.input) {
		return Token{}, NewLexError(start, "expected identifier, found end of input")
	}

	r, size := utf8.DecodeRuneInString(l.input[start:])
	if !isIdentStart(r) {
		return Token{}, NewLexError(start, "expected identifier, found %q", r)
	}
	end := start + size
	for end < len(l.input) {
		r, size = utf8.DecodeRuneInString(l.input[end:])
		if !isIdentPart(r) {
			break
		}
		end += size
	}

	l.pos = end
	return Token{Kind: TokenIdentifier, Text: norm.NFC.String(l.input[start:end]), Pos: start}, nil
}

// Char consumes the punctuation character c if it is next.
func (l *Lexer) Char(c byte) bool {
	l.skipBlanks()
	if l.pos < len(l.input) && l.input[l.pos] == c {
		l.pos++
		return true
	}
	return false
}

// Keyword consumes the next word if it equals one of words.
func (l *Lexer) Keyword(words ...string) (string, bool) {
	cp := l.save()
	tok, err := l.Identifier()
	if err == nil {
		for _, w := range words {
			if tok.Text == w {
				return w, true
			}
		}
	}
	cp.restore()
	return "", false
}

// Literal consumes a non-keyword literal: string, number, guid, date,
// datetimeoffset or time of day.
func (l *Lexer) Literal() (Token, error) {
	l.skipBlanks()
	start := l.pos
	if start >= len(l.input) {
		return Token{}, NewLexError(start, "expected literal, found end of input")
	}
	if l.input[start] == '\'' {
		return l.stringLiteral()
	}
	if tok, ok := l.guid(); ok {
		return tok, nil
	}

	end := start
	for end < len(l.input) && isLiteralPart(l.input[end]) {
		end++
	}
	if end == start {
		return Token{}, NewLexError(start, "expected literal")
	}

	tok, err := classifyLiteral(l.input[start:end], start)
	if err != nil {
		return Token{}, err
	}
	l.pos = end
	return tok, nil
}

func (l *Lexer) stringLiteral() (Token, error) {
	start := l.pos
	var b strings.Builder
	for i := start + 1; i < len(l.input); i++ {
		c := l.input[i]
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(l.input) && l.input[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		l.pos = i + 1
		return Token{
			Kind:  TokenLiteral,
			Text:  l.input[start:l.pos],
			Pos:   start,
			Value: norm.NFC.String(b.String()),
			Type:  model.String,
		}, nil
	}
	return Token{}, NewLexError(start, "unterminated string literal")
}

func (l *Lexer) guid() (Token, bool) {
	const size = 36
	start := l.pos
	if start+size > len(l.input) {
		return Token{}, false
	}
	text := l.input[start : start+size]
	if text[8] != '-' || text[13] != '-' || text[18] != '-' || text[23] != '-' {
		return Token{}, false
	}
	if start+size < len(l.input) && isIdentPart(rune(l.input[start+size])) {
		return Token{}, false
	}
	id, err := uuid.Parse(text)
	if err != nil {
		return Token{}, false
	}
	l.pos = start + size
	return Token{Kind: TokenLiteral, Text: text, Pos: start, Value: id, Type: model.Guid}, true
}

func (l *Lexer) skipBlanks() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

// classifyLiteral types a run of literal characters.
func classifyLiteral(text string, pos int) (Token, error) {
	tok := Token{Kind: TokenLiteral, Text: text, Pos: pos}

	switch {
	case intPattern.MatchString(text):
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Token{}, NewLexError(pos, "integer literal %s is out of range", text)
		}
		tok.Value = v
		tok.Type = model.Int64
		if v >= -1<<31 && v < 1<<31 {
			tok.Type = model.Int32
		}
	case decimalPattern.MatchString(text):
		d, err := decimal.NewFromString(text)
		if err != nil {
			return Token{}, NewLexError(pos, "malformed decimal literal %s", text)
		}
		tok.Value = d
		tok.Type = model.Decimal
	case doublePattern.MatchString(text):
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, NewLexError(pos, "malformed double literal %s", text)
		}
		tok.Value = f
		tok.Type = model.Double
	case dateTimePattern.MatchString(text):
		t, err := dateparse.ParseStrict(text)
		if err != nil {
			return Token{}, NewLexError(pos, "malformed datetimeoffset literal %s", text)
		}
		tok.Value = t.UTC()
		tok.Type = model.DateTimeOffset
	case datePattern.MatchString(text):
		t, err := dateparse.ParseStrict(text)
		if err != nil {
			return Token{}, NewLexError(pos, "malformed date literal %s", text)
		}
		tok.Value = t.Format("2006-01-02")
		tok.Type = model.Date
	case timePattern.MatchString(text):
		if _, err := time.Parse(timeLayout(text), text); err != nil {
			return Token{}, NewLexError(pos, "malformed time of day literal %s", text)
		}
		tok.Value = text
		tok.Type = model.TimeOfDay
	default:
		return Token{}, NewLexError(pos, "malformed literal %s", text)
	}

	return tok, nil
}

func timeLayout(text string) string {
	switch {
	case len(text) == len("15:04"):
		return "15:04"
	case len(text) == len("15:04:05"):
		return "15:04:05"
	default:
		return "15:04:05." + strings.Repeat("0", len(text)-len("15:04:05."))
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLiteralPart(c byte) bool {
	switch {
	case isDigit(c), c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	return c == ':' || c == '.' || c == '+' || c == '-'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '$'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
