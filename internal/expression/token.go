package expression

import (
	"fmt"

	"github.com/roach88/odataql/internal/model"
)

// TokenKind classifies a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdentifier
	TokenLiteral
	TokenOperator
	TokenPunctuation
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier:
		return "identifier"
	case TokenLiteral:
		return "literal"
	case TokenOperator:
		return "operator"
	case TokenPunctuation:
		return "punctuation"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a lexical unit of an expression. Tokens are immutable.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int

	// Value and Type are set on literal tokens. A null literal has a nil
	// Value and an empty Type.
	Value any
	Type  model.PrimitiveType
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}
