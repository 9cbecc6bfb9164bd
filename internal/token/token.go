package token

import (
	"strconv"
)

// Token represents a syntax atom.
type Token int

// List of tokens.
//
const (
	Invalid Token = iota
	EOF
	Comment
	MultiComment

	// Identifier and literals
	Ident
	Integer

	// Special chars
	Lparen
	Rparen
	Lbrace
	Rbrace
	Dot
	Comma
	Semicolon
	Colon
	Arrow

	// Arithmetic
	Add
	Sub
	Mul
	Div
	Mod

	// Relational
	Eq
	Neq
	Gt
	GtEq
	Lt
	LtEq

	Assign
	Lnot

	keywordBeg
	Class
	Func
	Let
	Return
	If
	Else
	True
	False
	keywordEnd
)

var tokens = [...]string{
	Invalid:      "invalid",
	EOF:          "eof",
	Comment:      "comment",
	MultiComment: "comment",

	Ident:   "ident",
	Integer: "integer",

	Lparen:    "(",
	Rparen:    ")",
	Lbrace:    "{",
	Rbrace:    "}",
	Dot:       ".",
	Comma:     ",",
	Semicolon: ";",
	Colon:     ":",
	Arrow:     "->",

	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Mod: "%",

	Eq:   "==",
	Neq:  "!=",
	Gt:   ">",
	GtEq: ">=",
	Lt:   "<",
	LtEq: "<=",

	Assign: "=",
	Lnot:   "!",

	Class:  "class",
	Func:   "func",
	Let:    "let",
	Return: "return",
	If:     "if",
	Else:   "else",
	True:   "true",
	False:  "false",
}

var keywords map[string]Token

func init() {
	keywords = make(map[string]Token)
	for i := keywordBeg + 1; i < keywordEnd; i++ {
		keywords[tokens[i]] = i
	}
}

// Lookup returns the keyword token for ident, or Ident if it isn't a keyword.
func Lookup(ident string) Token {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return Ident
}

func (tok Token) String() string {
	s := ""
	if 0 <= tok && tok < Token(len(tokens)) {
		s = tokens[tok]
	}
	if s == "" {
		s = "token(" + strconv.Itoa(int(tok)) + ")"
	}
	return s
}

// IsBinaryOp returns true if the token is a binary operator.
func (tok Token) IsBinaryOp() bool {
	switch tok {
	case Add, Sub, Mul, Div, Mod,
		Eq, Neq, Gt, GtEq, Lt, LtEq:
		return true
	}
	return false
}

// IsArithmeticOp returns true for the operators that compute a new integer.
func (tok Token) IsArithmeticOp() bool {
	return tok.OneOf(Add, Sub, Mul, Div, Mod)
}

// IsComparisonOp returns true for the operators that produce a truth value.
func (tok Token) IsComparisonOp() bool {
	return tok.OneOf(Eq, Neq, Gt, GtEq, Lt, LtEq)
}

// IsKeyword returns true if the token is a reserved word.
func (tok Token) IsKeyword() bool {
	return keywordBeg < tok && tok < keywordEnd
}

// OneOf returns true if token one of the IDs match.
func (tok Token) OneOf(ids ...Token) bool {
	for _, id := range ids {
		if tok == id {
			return true
		}
	}
	return false
}

// Is returns true if ID matches.
func (tok Token) Is(other Token) bool {
	return tok == other
}
