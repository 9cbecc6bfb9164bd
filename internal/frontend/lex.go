package frontend

import (
	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/token"
)

type lexer struct {
	src        []byte
	filename   string
	errors     *common.ErrorList
	ch         rune
	chOffset   int
	lineOffset int
	lineCount  int
	readOffset int
}

func (l *lexer) init(src []byte, filename string, errors *common.ErrorList) {
	l.src = src
	l.filename = filename
	l.errors = errors
	l.ch = ' '
	l.chOffset = 0
	l.readOffset = 0
	l.lineOffset = -1 // -1 so column positions for line 1 are calculated correctly
	l.lineCount = 1
	l.next()
}

func (l *lexer) lex() (token.Token, token.Position, string) {
	l.skipWhitespace()

	pos := l.newPos()
	startOffset := l.chOffset
	literal := ""
	tok := token.Invalid

	switch ch1 := l.ch; {
	case isLetter(ch1):
		tok, literal = l.lexIdent()
	case isDigit(ch1):
		tok = l.lexNumber()
	default:
		l.next()

		switch ch1 {
		case -1:
			tok = token.EOF
		case '(':
			tok = token.Lparen
		case ')':
			tok = token.Rparen
		case '{':
			tok = token.Lbrace
		case '}':
			tok = token.Rbrace
		case ',':
			tok = token.Comma
		case ';':
			tok = token.Semicolon
		case ':':
			tok = token.Colon
		case '.':
			tok = token.Dot
		case '+':
			tok = token.Add
		case '-':
			tok = l.lexAlt2('>', token.Arrow, token.Sub)
		case '*':
			tok = token.Mul
		case '/':
			if l.ch == '/' {
				// Single-line comment
				l.next()
				for l.ch != '\n' && l.ch != -1 {
					l.next()
				}
				tok = token.Comment
			} else if l.ch == '*' {
				// Multi-line comment
				l.next()
				nested := 1
				for l.ch != -1 && nested > 0 {
					ch := l.ch
					l.next()
					if ch == '*' && l.ch == '/' {
						nested--
						l.next()
					} else if ch == '/' && l.ch == '*' {
						nested++
						l.next()
					}
				}
				if nested > 0 {
					l.error(pos, "multi-line comment not closed")
				}
				tok = token.MultiComment
			} else {
				tok = token.Div
			}
		case '%':
			tok = token.Mod
		case '=':
			tok = l.lexAltEqual(token.Eq, token.Assign)
		case '!':
			tok = l.lexAltEqual(token.Neq, token.Lnot)
		case '>':
			tok = l.lexAltEqual(token.GtEq, token.Gt)
		case '<':
			tok = l.lexAltEqual(token.LtEq, token.Lt)
		default:
			tok = token.Invalid
		}
	}

	if len(literal) == 0 {
		literal = string(l.src[startOffset:l.chOffset])
	}

	return tok, pos, literal
}

func isLetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch == '_')
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// Only supports ASCII characters for now
//
func (l *lexer) next() {
	if l.ch == '\n' {
		l.lineOffset = l.chOffset
		l.lineCount++
	}
	if l.readOffset < len(l.src) {
		l.chOffset = l.readOffset
		l.readOffset++
		l.ch = rune(l.src[l.chOffset])
	} else {
		l.chOffset = l.readOffset
		l.ch = -1
	}
}

func (l *lexer) newPos() token.Position {
	col := l.chOffset - l.lineOffset
	if col <= 0 {
		col = 1
	}
	return token.Position{Filename: l.filename, Offset: l.chOffset, Line: l.lineCount, Column: col}
}

func (l *lexer) error(pos token.Position, msg string) {
	l.errors.Add(pos, msg)
}

func (l *lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.next()
	}
}

func (l *lexer) lexAlt2(ch0 rune, tok0 token.Token, tok1 token.Token) token.Token {
	if l.ch == ch0 {
		l.next()
		return tok0
	}
	return tok1
}

func (l *lexer) lexAltEqual(tok0 token.Token, tok1 token.Token) token.Token {
	return l.lexAlt2('=', tok0, tok1)
}

func (l *lexer) lexIdent() (token.Token, string) {
	startOffset := l.chOffset

	for isLetter(l.ch) || isDigit(l.ch) {
		l.next()
	}

	lit := string(l.src[startOffset:l.chOffset])
	return token.Lookup(lit), lit
}

func (l *lexer) lexNumber() token.Token {
	for isDigit(l.ch) || l.ch == '_' {
		l.next()
	}
	if isLetter(l.ch) {
		l.error(l.newPos(), "invalid character in integer literal")
		for isLetter(l.ch) || isDigit(l.ch) {
			l.next()
		}
	}
	return token.Integer
}
