package ir

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Transformer rebuilds a tree in phase A as a new tree in phase B. The
// children of a node are transformed first and passed to the hook of the
// node, which returns the new node. Every hook must be implemented.
type Transformer[A, B Phase] interface {
	ProcessSourceFile(file *SourceFile[A], decls []Decl[B]) (*SourceFile[B], error)

	// Decls
	ProcessFuncDecl(decl *FuncDecl[A], params []*Param[B], body *Block[B]) (*FuncDecl[B], error)
	ProcessVarDecl(decl *VarDecl[A], declarator *VarDeclarator[B], init Expr[B]) (*VarDecl[B], error)
	ProcessVarDeclarator(decl *VarDeclarator[A]) (*VarDeclarator[B], error)
	ProcessParam(param *Param[A], declarator *VarDeclarator[B]) (*Param[B], error)

	// Stmts
	ProcessReturnStmt(stmt *ReturnStmt[A], x Expr[B]) (*ReturnStmt[B], error)
	ProcessBlock(block *Block[A], stmts []Stmt[B], final Expr[B]) (*Block[B], error)

	// Exprs
	ProcessUnitLit(expr *UnitLit[A]) (*UnitLit[B], error)
	ProcessBoolLit(expr *BoolLit[A]) (*BoolLit[B], error)
	ProcessIntLit(expr *IntLit[A]) (*IntLit[B], error)
	ProcessObjectLit(expr *ObjectLit[A], fields map[string]Expr[B]) (*ObjectLit[B], error)
	ProcessVarRef(expr *VarRef[A]) (*VarRef[B], error)
	ProcessFuncCall(expr *FuncCall[A], args []Expr[B]) (*FuncCall[B], error)
	ProcessIfExpr(expr *IfExpr[A], cond Expr[B], then *Block[B], els *Block[B]) (*IfExpr[B], error)
	ProcessPrefixExpr(expr *PrefixExpr[A], x Expr[B]) (*PrefixExpr[B], error)
	ProcessBinaryExpr(expr *BinaryExpr[A], left Expr[B], right Expr[B]) (*BinaryExpr[B], error)
	ProcessFieldAccess(expr *FieldAccess[A], x Expr[B]) (*FieldAccess[B], error)
}

// FuncDeclHooks can be implemented by a Transformer to run code right before
// the children of a function are transformed and right after the function
// is rebuilt.
type FuncDeclHooks[A, B Phase] interface {
	BeforeFuncDecl(decl *FuncDecl[A]) error
	AfterFuncDecl(decl *FuncDecl[B]) error
}

// VarDeclHooks is the VarDecl counterpart of FuncDeclHooks.
type VarDeclHooks[A, B Phase] interface {
	BeforeVarDecl(decl *VarDecl[A]) error
	AfterVarDecl(decl *VarDecl[B]) error
}

// Transform rebuilds file bottom-up. The first error aborts the traversal.
func Transform[A, B Phase](t Transformer[A, B], file *SourceFile[A]) (*SourceFile[B], error) {
	var decls []Decl[B]
	for _, decl := range file.Decls {
		res, err := TransformDecl(t, decl)
		if err != nil {
			return nil, err
		}
		decls = append(decls, res)
	}
	res, err := t.ProcessSourceFile(file, decls)
	if err != nil {
		return nil, err
	}
	res.SetPos(file.Pos())
	return res, nil
}

// TransformDecl transforms a declaration.
func TransformDecl[A, B Phase](t Transformer[A, B], decl Decl[A]) (Decl[B], error) {
	switch d := decl.(type) {
	case *FuncDecl[A]:
		res, err := transformFuncDecl(t, d)
		if err != nil {
			return nil, err
		}
		return res, nil
	case *VarDecl[A]:
		res, err := transformVarDecl(t, d)
		if err != nil {
			return nil, err
		}
		return res, nil
	default:
		panic(fmt.Sprintf("Unhandled decl %T", decl))
	}
}

// TransformStmt transforms a statement.
func TransformStmt[A, B Phase](t Transformer[A, B], stmt Stmt[A]) (Stmt[B], error) {
	switch s := stmt.(type) {
	case *VarDecl[A]:
		res, err := transformVarDecl(t, s)
		if err != nil {
			return nil, err
		}
		return res, nil
	case *ReturnStmt[A]:
		x, err := TransformExpr(t, s.X)
		if err != nil {
			return nil, err
		}
		res, err := t.ProcessReturnStmt(s, x)
		if err != nil {
			return nil, err
		}
		res.SetPos(s.Pos())
		return res, nil
	default:
		panic(fmt.Sprintf("Unhandled stmt %T", stmt))
	}
}

// TransformExpr transforms an expression.
func TransformExpr[A, B Phase](t Transformer[A, B], expr Expr[A]) (Expr[B], error) {
	res, err := transformExpr(t, expr)
	if err != nil {
		return nil, err
	}
	res.SetPos(expr.Pos())
	return res, nil
}

func transformExpr[A, B Phase](t Transformer[A, B], expr Expr[A]) (Expr[B], error) {
	switch e := expr.(type) {
	case *UnitLit[A]:
		return t.ProcessUnitLit(e)
	case *BoolLit[A]:
		return t.ProcessBoolLit(e)
	case *IntLit[A]:
		return t.ProcessIntLit(e)
	case *VarRef[A]:
		return t.ProcessVarRef(e)
	case *ObjectLit[A]:
		fields := make(map[string]Expr[B], len(e.Fields))
		for _, name := range sortedFieldNames(e.Fields) {
			field, err := TransformExpr(t, e.Fields[name])
			if err != nil {
				return nil, err
			}
			fields[name] = field
		}
		return t.ProcessObjectLit(e, fields)
	case *FuncCall[A]:
		var args []Expr[B]
		for _, arg := range e.Args {
			res, err := TransformExpr(t, arg)
			if err != nil {
				return nil, err
			}
			args = append(args, res)
		}
		return t.ProcessFuncCall(e, args)
	case *IfExpr[A]:
		cond, err := TransformExpr(t, e.Cond)
		if err != nil {
			return nil, err
		}
		then, err := transformBlock(t, e.Then)
		if err != nil {
			return nil, err
		}
		els, err := transformBlock(t, e.Else)
		if err != nil {
			return nil, err
		}
		return t.ProcessIfExpr(e, cond, then, els)
	case *PrefixExpr[A]:
		x, err := TransformExpr(t, e.X)
		if err != nil {
			return nil, err
		}
		return t.ProcessPrefixExpr(e, x)
	case *BinaryExpr[A]:
		left, err := TransformExpr(t, e.Left)
		if err != nil {
			return nil, err
		}
		right, err := TransformExpr(t, e.Right)
		if err != nil {
			return nil, err
		}
		return t.ProcessBinaryExpr(e, left, right)
	case *FieldAccess[A]:
		x, err := TransformExpr(t, e.X)
		if err != nil {
			return nil, err
		}
		return t.ProcessFieldAccess(e, x)
	default:
		panic(fmt.Sprintf("Unhandled expr %T", expr))
	}
}

func transformFuncDecl[A, B Phase](t Transformer[A, B], decl *FuncDecl[A]) (*FuncDecl[B], error) {
	hooks, hasHooks := t.(FuncDeclHooks[A, B])
	if hasHooks {
		if err := hooks.BeforeFuncDecl(decl); err != nil {
			return nil, err
		}
	}

	var params []*Param[B]
	for _, param := range decl.Params {
		declarator, err := transformVarDeclarator(t, param.Decl)
		if err != nil {
			return nil, err
		}
		res, err := t.ProcessParam(param, declarator)
		if err != nil {
			return nil, err
		}
		res.SetPos(param.Pos())
		params = append(params, res)
	}

	body, err := transformBlock(t, decl.Body)
	if err != nil {
		return nil, err
	}

	res, err := t.ProcessFuncDecl(decl, params, body)
	if err != nil {
		return nil, err
	}
	res.SetPos(decl.Pos())

	if hasHooks {
		if err := hooks.AfterFuncDecl(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func transformVarDecl[A, B Phase](t Transformer[A, B], decl *VarDecl[A]) (*VarDecl[B], error) {
	hooks, hasHooks := t.(VarDeclHooks[A, B])
	if hasHooks {
		if err := hooks.BeforeVarDecl(decl); err != nil {
			return nil, err
		}
	}

	declarator, err := transformVarDeclarator(t, decl.Decl)
	if err != nil {
		return nil, err
	}
	init, err := TransformExpr(t, decl.Init)
	if err != nil {
		return nil, err
	}

	res, err := t.ProcessVarDecl(decl, declarator, init)
	if err != nil {
		return nil, err
	}
	res.SetPos(decl.Pos())

	if hasHooks {
		if err := hooks.AfterVarDecl(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func transformVarDeclarator[A, B Phase](t Transformer[A, B], decl *VarDeclarator[A]) (*VarDeclarator[B], error) {
	res, err := t.ProcessVarDeclarator(decl)
	if err != nil {
		return nil, err
	}
	res.SetPos(decl.Pos())
	return res, nil
}

func transformBlock[A, B Phase](t Transformer[A, B], block *Block[A]) (*Block[B], error) {
	var stmts []Stmt[B]
	for _, stmt := range block.Stmts {
		res, err := TransformStmt(t, stmt)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, res)
	}

	var final Expr[B]
	if block.Final != nil {
		res, err := TransformExpr(t, block.Final)
		if err != nil {
			return nil, err
		}
		final = res
	}

	res, err := t.ProcessBlock(block, stmts, final)
	if err != nil {
		return nil, err
	}
	res.SetPos(block.Pos())
	return res, nil
}

// Visitor walks a tree top-down. A hook returns true to stop the walk from
// descending into the children of the node, typically because the hook
// visited them itself.
type Visitor[P Phase] interface {
	VisitSourceFile(file *SourceFile[P]) bool

	// Decls
	VisitFuncDecl(decl *FuncDecl[P]) bool
	VisitVarDecl(decl *VarDecl[P]) bool
	VisitVarDeclarator(decl *VarDeclarator[P]) bool
	VisitParam(param *Param[P]) bool

	// Stmts
	VisitReturnStmt(stmt *ReturnStmt[P]) bool
	VisitBlock(block *Block[P]) bool

	// Exprs
	VisitUnitLit(expr *UnitLit[P]) bool
	VisitBoolLit(expr *BoolLit[P]) bool
	VisitIntLit(expr *IntLit[P]) bool
	VisitObjectLit(expr *ObjectLit[P]) bool
	VisitVarRef(expr *VarRef[P]) bool
	VisitFuncCall(expr *FuncCall[P]) bool
	VisitIfExpr(expr *IfExpr[P]) bool
	VisitPrefixExpr(expr *PrefixExpr[P]) bool
	VisitBinaryExpr(expr *BinaryExpr[P]) bool
	VisitFieldAccess(expr *FieldAccess[P]) bool
}

// BaseVisitor provides default implementations for Visitor functions.
type BaseVisitor[P Phase] struct{}

func (v *BaseVisitor[P]) VisitSourceFile(file *SourceFile[P]) bool       { return false }
func (v *BaseVisitor[P]) VisitFuncDecl(decl *FuncDecl[P]) bool           { return false }
func (v *BaseVisitor[P]) VisitVarDecl(decl *VarDecl[P]) bool             { return false }
func (v *BaseVisitor[P]) VisitVarDeclarator(decl *VarDeclarator[P]) bool { return false }
func (v *BaseVisitor[P]) VisitParam(param *Param[P]) bool                { return false }
func (v *BaseVisitor[P]) VisitReturnStmt(stmt *ReturnStmt[P]) bool       { return false }
func (v *BaseVisitor[P]) VisitBlock(block *Block[P]) bool                { return false }
func (v *BaseVisitor[P]) VisitUnitLit(expr *UnitLit[P]) bool             { return false }
func (v *BaseVisitor[P]) VisitBoolLit(expr *BoolLit[P]) bool             { return false }
func (v *BaseVisitor[P]) VisitIntLit(expr *IntLit[P]) bool               { return false }
func (v *BaseVisitor[P]) VisitObjectLit(expr *ObjectLit[P]) bool         { return false }
func (v *BaseVisitor[P]) VisitVarRef(expr *VarRef[P]) bool               { return false }
func (v *BaseVisitor[P]) VisitFuncCall(expr *FuncCall[P]) bool           { return false }
func (v *BaseVisitor[P]) VisitIfExpr(expr *IfExpr[P]) bool               { return false }
func (v *BaseVisitor[P]) VisitPrefixExpr(expr *PrefixExpr[P]) bool       { return false }
func (v *BaseVisitor[P]) VisitBinaryExpr(expr *BinaryExpr[P]) bool       { return false }
func (v *BaseVisitor[P]) VisitFieldAccess(expr *FieldAccess[P]) bool     { return false }

// Walk calls the hook of node and then, unless the hook stopped it, walks
// the children of node in source order.
func Walk[P Phase](v Visitor[P], node Node[P]) {
	switch n := node.(type) {
	case *SourceFile[P]:
		if v.VisitSourceFile(n) {
			return
		}
		for _, decl := range n.Decls {
			Walk[P](v, decl)
		}
	case *FuncDecl[P]:
		if v.VisitFuncDecl(n) {
			return
		}
		for _, param := range n.Params {
			Walk[P](v, param)
		}
		Walk[P](v, n.Body)
	case *VarDecl[P]:
		if v.VisitVarDecl(n) {
			return
		}
		Walk[P](v, n.Decl)
		Walk[P](v, n.Init)
	case *VarDeclarator[P]:
		v.VisitVarDeclarator(n)
	case *Param[P]:
		if v.VisitParam(n) {
			return
		}
		Walk[P](v, n.Decl)
	case *ReturnStmt[P]:
		if v.VisitReturnStmt(n) {
			return
		}
		Walk[P](v, n.X)
	case *Block[P]:
		if v.VisitBlock(n) {
			return
		}
		for _, stmt := range n.Stmts {
			Walk[P](v, stmt)
		}
		if n.Final != nil {
			Walk[P](v, n.Final)
		}
	case *UnitLit[P]:
		v.VisitUnitLit(n)
	case *BoolLit[P]:
		v.VisitBoolLit(n)
	case *IntLit[P]:
		v.VisitIntLit(n)
	case *VarRef[P]:
		v.VisitVarRef(n)
	case *ObjectLit[P]:
		if v.VisitObjectLit(n) {
			return
		}
		for _, name := range sortedFieldNames(n.Fields) {
			Walk[P](v, n.Fields[name])
		}
	case *FuncCall[P]:
		if v.VisitFuncCall(n) {
			return
		}
		for _, arg := range n.Args {
			Walk[P](v, arg)
		}
	case *IfExpr[P]:
		if v.VisitIfExpr(n) {
			return
		}
		Walk[P](v, n.Cond)
		Walk[P](v, n.Then)
		Walk[P](v, n.Else)
	case *PrefixExpr[P]:
		if v.VisitPrefixExpr(n) {
			return
		}
		Walk[P](v, n.X)
	case *BinaryExpr[P]:
		if v.VisitBinaryExpr(n) {
			return
		}
		Walk[P](v, n.Left)
		Walk[P](v, n.Right)
	case *FieldAccess[P]:
		if v.VisitFieldAccess(n) {
			return
		}
		Walk[P](v, n.X)
	default:
		panic(fmt.Sprintf("Unhandled node %T", node))
	}
}

func sortedFieldNames[P Phase](fields map[string]Expr[P]) []string {
	names := maps.Keys(fields)
	slices.Sort(names)
	return names
}
