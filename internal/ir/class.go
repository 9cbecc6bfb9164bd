package ir

import (
	"bytes"
	"fmt"

	"github.com/derekxu16/dishsoap/internal/token"
)

// ClassDecl declares a record shape with optional type parameters. A field
// type may be a Reference to one of TypeParams or to another class.
type ClassDecl struct {
	Pos        token.Position
	Name       *Ident
	TypeParams []*Ident
	Fields     map[string]Type
}

func NewClassDecl(pos token.Position, name *Ident, typeParams []*Ident, fields map[string]Type) *ClassDecl {
	return &ClassDecl{Pos: pos, Name: name, TypeParams: typeParams, Fields: fields}
}

// TypeParamIndex returns the position of a type parameter, or -1.
func (c *ClassDecl) TypeParamIndex(name string) int {
	for i, param := range c.TypeParams {
		if param.Name == name {
			return i
		}
	}
	return -1
}

func (c *ClassDecl) String() string {
	var buf bytes.Buffer
	buf.WriteString(c.Name.Name)
	if len(c.TypeParams) > 0 {
		buf.WriteString("<")
		for i, param := range c.TypeParams {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(param.Name)
		}
		buf.WriteString(">")
	}
	buf.WriteString(" ")
	buf.WriteString(NewRecordType(c.Fields).String())
	return buf.String()
}

// Color is used to color nodes during dfs when sorting dependencies.
type Color int

// The node colors.
//
// White: node not visited
// Gray: node visit in progress
// Black: node visit finished
const (
	WhiteColor Color = iota
	GrayColor
	BlackColor
)

func (c Color) String() string {
	switch c {
	case WhiteColor:
		return "White"
	case GrayColor:
		return "Gray"
	case BlackColor:
		return "Black"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}
