package ir

import (
	"github.com/derekxu16/dishsoap/internal/token"
)

// Untyped is the phase of a tree produced by the parser.
type Untyped struct{}

// Typed is the phase of a tree produced by the type checker.
type Typed struct {
	T Type
}

// Phase constrains the phase marker every node is parameterized by.
type Phase interface {
	Untyped | Typed
}

// Node interface.
type Node[P Phase] interface {
	node()
	Pos() token.Position
	SetPos(token.Position)
	Phase() P
}

// Decl is the main interface for declaration nodes.
type Decl[P Phase] interface {
	Node[P]
	declNode()
}

// Stmt is the main interface for statement nodes.
type Stmt[P Phase] interface {
	Node[P]
	stmtNode()
}

// Expr is the main interface for expression nodes.
type Expr[P Phase] interface {
	Node[P]
	exprNode()
}

type baseNode[P Phase] struct {
	pos  token.Position
	Info P
}

func (n *baseNode[P]) node() {}

func (n *baseNode[P]) Pos() token.Position {
	return n.pos
}

func (n *baseNode[P]) SetPos(pos token.Position) {
	n.pos = pos
}

func (n *baseNode[P]) Phase() P {
	return n.Info
}

// TypeOf returns the resolved type of a typed node.
func TypeOf(n Node[Typed]) Type {
	return n.Phase().T
}

// Ident is a name in the source.
type Ident struct {
	Pos  token.Position
	Name string
}

func NewIdent(pos token.Position, name string) *Ident {
	return &Ident{Pos: pos, Name: name}
}

func (i *Ident) String() string {
	return i.Name
}

// Declaration nodes.

type baseDecl[P Phase] struct {
	baseNode[P]
}

func (d *baseDecl[P]) declNode() {}

// FuncDecl is a top-level function. Return is the declared type and is
// resolved in the typed phase.
type FuncDecl[P Phase] struct {
	baseDecl[P]
	Name   *Ident
	Params []*Param[P]
	Return Type
	Body   *Block[P]
}

// VarDecl binds the value of Init to the declarator's name.
type VarDecl[P Phase] struct {
	baseDecl[P]
	Decl *VarDeclarator[P]
	Init Expr[P]
}

func (d *VarDecl[P]) stmtNode() {}

// VarDeclarator is a name with its declared type.
type VarDeclarator[P Phase] struct {
	baseNode[P]
	Name *Ident
	Type Type
}

type Param[P Phase] struct {
	baseNode[P]
	Decl *VarDeclarator[P]
}

// SourceFile is the root of a tree.
type SourceFile[P Phase] struct {
	baseNode[P]
	Filename string
	Decls    []Decl[P]
	Classes  []*ClassDecl
}

// Statement nodes.

type baseStmt[P Phase] struct {
	baseNode[P]
}

func (s *baseStmt[P]) stmtNode() {}

type ReturnStmt[P Phase] struct {
	baseStmt[P]
	X Expr[P]
}

// Block is a list of statements optionally followed by an expression that
// produces the value of the block.
type Block[P Phase] struct {
	baseNode[P]
	Stmts []Stmt[P]
	Final Expr[P]
}

// Expression nodes.

type baseExpr[P Phase] struct {
	baseNode[P]
}

func (e *baseExpr[P]) exprNode() {}

type UnitLit[P Phase] struct {
	baseExpr[P]
}

type BoolLit[P Phase] struct {
	baseExpr[P]
	Value bool
}

type IntLit[P Phase] struct {
	baseExpr[P]
	Value int64
}

// ObjectLit instantiates a class. TypeArgs are resolved in the typed phase.
type ObjectLit[P Phase] struct {
	baseExpr[P]
	Class    *Ident
	TypeArgs []Type
	Fields   map[string]Expr[P]
}

type VarRef[P Phase] struct {
	baseExpr[P]
	Name *Ident
}

type FuncCall[P Phase] struct {
	baseExpr[P]
	Name *Ident
	Args []Expr[P]
}

type IfExpr[P Phase] struct {
	baseExpr[P]
	Cond Expr[P]
	Then *Block[P]
	Else *Block[P]
}

type PrefixExpr[P Phase] struct {
	baseExpr[P]
	Op token.Token
	X  Expr[P]
}

type BinaryExpr[P Phase] struct {
	baseExpr[P]
	Left  Expr[P]
	Op    token.Token
	Right Expr[P]
}

type FieldAccess[P Phase] struct {
	baseExpr[P]
	X     Expr[P]
	Field *Ident
}

func NewSourceFile[P Phase](info P, filename string, decls []Decl[P], classes []*ClassDecl) *SourceFile[P] {
	file := &SourceFile[P]{Filename: filename, Decls: decls, Classes: classes}
	file.Info = info
	return file
}

func NewFuncDecl[P Phase](info P, name *Ident, params []*Param[P], ret Type, body *Block[P]) *FuncDecl[P] {
	decl := &FuncDecl[P]{Name: name, Params: params, Return: ret, Body: body}
	decl.Info = info
	return decl
}

func NewVarDecl[P Phase](info P, declarator *VarDeclarator[P], init Expr[P]) *VarDecl[P] {
	decl := &VarDecl[P]{Decl: declarator, Init: init}
	decl.Info = info
	return decl
}

func NewVarDeclarator[P Phase](info P, name *Ident, t Type) *VarDeclarator[P] {
	decl := &VarDeclarator[P]{Name: name, Type: t}
	decl.Info = info
	return decl
}

func NewParam[P Phase](info P, declarator *VarDeclarator[P]) *Param[P] {
	param := &Param[P]{Decl: declarator}
	param.Info = info
	return param
}

func NewReturnStmt[P Phase](info P, x Expr[P]) *ReturnStmt[P] {
	stmt := &ReturnStmt[P]{X: x}
	stmt.Info = info
	return stmt
}

func NewBlock[P Phase](info P, stmts []Stmt[P], final Expr[P]) *Block[P] {
	block := &Block[P]{Stmts: stmts, Final: final}
	block.Info = info
	return block
}

func NewUnitLit[P Phase](info P) *UnitLit[P] {
	lit := &UnitLit[P]{}
	lit.Info = info
	return lit
}

func NewBoolLit[P Phase](info P, value bool) *BoolLit[P] {
	lit := &BoolLit[P]{Value: value}
	lit.Info = info
	return lit
}

func NewIntLit[P Phase](info P, value int64) *IntLit[P] {
	lit := &IntLit[P]{Value: value}
	lit.Info = info
	return lit
}

func NewObjectLit[P Phase](info P, class *Ident, typeArgs []Type, fields map[string]Expr[P]) *ObjectLit[P] {
	lit := &ObjectLit[P]{Class: class, TypeArgs: typeArgs, Fields: fields}
	lit.Info = info
	return lit
}

func NewVarRef[P Phase](info P, name *Ident) *VarRef[P] {
	ref := &VarRef[P]{Name: name}
	ref.Info = info
	return ref
}

func NewFuncCall[P Phase](info P, name *Ident, args []Expr[P]) *FuncCall[P] {
	call := &FuncCall[P]{Name: name, Args: args}
	call.Info = info
	return call
}

func NewIfExpr[P Phase](info P, cond Expr[P], then *Block[P], els *Block[P]) *IfExpr[P] {
	expr := &IfExpr[P]{Cond: cond, Then: then, Else: els}
	expr.Info = info
	return expr
}

func NewPrefixExpr[P Phase](info P, op token.Token, x Expr[P]) *PrefixExpr[P] {
	expr := &PrefixExpr[P]{Op: op, X: x}
	expr.Info = info
	return expr
}

func NewBinaryExpr[P Phase](info P, left Expr[P], op token.Token, right Expr[P]) *BinaryExpr[P] {
	expr := &BinaryExpr[P]{Left: left, Op: op, Right: right}
	expr.Info = info
	return expr
}

func NewFieldAccess[P Phase](info P, x Expr[P], field *Ident) *FieldAccess[P] {
	expr := &FieldAccess[P]{X: x, Field: field}
	expr.Info = info
	return expr
}

// LowestPrec is the initial precedence used in parsing.
const LowestPrec int = 100

// BinaryPrec returns the precedence for a binary operation.
func BinaryPrec(op token.Token) int {
	switch op {
	case token.Mul, token.Div, token.Mod:
		return 5
	case token.Add, token.Sub:
		return 6
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		return 9
	case token.Eq, token.Neq:
		return 10
	default:
		panic("Unhandled binary op " + op.String())
	}
}
