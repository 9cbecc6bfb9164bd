package ir

import (
	"bytes"
	"fmt"
)

// Print returns an indented dump of the tree. Typed nodes include their type.
func Print[P Phase](file *SourceFile[P]) string {
	p := &treePrinter[P]{}
	Walk[P](p, file)
	return p.buffer.String()
}

type treePrinter[P Phase] struct {
	BaseVisitor[P]
	buffer bytes.Buffer
	level  int
}

func inc[P Phase](p *treePrinter[P]) *treePrinter[P] {
	p.level++
	return p
}

func dec[P Phase](p *treePrinter[P]) {
	p.level--
}

func (p *treePrinter[P]) printf(n Node[P], msg string, args ...interface{}) {
	for i := 0; i < p.level; i++ {
		p.buffer.WriteString("  ")
	}
	p.buffer.WriteString(fmt.Sprintf(msg, args...))
	if typed, ok := any(n.Phase()).(Typed); ok && typed.T != nil {
		p.buffer.WriteString(" : ")
		p.buffer.WriteString(typed.T.String())
	}
	p.buffer.WriteByte('\n')
}

func (p *treePrinter[P]) children(nodes ...Node[P]) bool {
	defer dec(inc(p))
	for _, n := range nodes {
		Walk[P](p, n)
	}
	return true
}

func (p *treePrinter[P]) VisitSourceFile(file *SourceFile[P]) bool {
	p.printf(file, "[file %s]", file.Filename)
	defer dec(inc(p))
	for _, class := range file.Classes {
		for i := 0; i < p.level; i++ {
			p.buffer.WriteString("  ")
		}
		p.buffer.WriteString(fmt.Sprintf("[class %s]\n", class))
	}
	for _, decl := range file.Decls {
		Walk[P](p, decl)
	}
	return true
}

func (p *treePrinter[P]) VisitFuncDecl(decl *FuncDecl[P]) bool {
	p.printf(decl, "[func %s -> %s]", decl.Name, decl.Return)
	var nodes []Node[P]
	for _, param := range decl.Params {
		nodes = append(nodes, param)
	}
	nodes = append(nodes, decl.Body)
	return p.children(nodes...)
}

func (p *treePrinter[P]) VisitVarDecl(decl *VarDecl[P]) bool {
	p.printf(decl, "[let]")
	return p.children(decl.Decl, decl.Init)
}

func (p *treePrinter[P]) VisitVarDeclarator(decl *VarDeclarator[P]) bool {
	p.printf(decl, "[decl %s %s]", decl.Name, decl.Type)
	return true
}

func (p *treePrinter[P]) VisitParam(param *Param[P]) bool {
	p.printf(param, "[param %s %s]", param.Decl.Name, param.Decl.Type)
	return true
}

func (p *treePrinter[P]) VisitReturnStmt(stmt *ReturnStmt[P]) bool {
	p.printf(stmt, "[return]")
	return p.children(stmt.X)
}

func (p *treePrinter[P]) VisitBlock(block *Block[P]) bool {
	p.printf(block, "[block]")
	var nodes []Node[P]
	for _, stmt := range block.Stmts {
		nodes = append(nodes, stmt)
	}
	if block.Final != nil {
		nodes = append(nodes, block.Final)
	}
	return p.children(nodes...)
}

func (p *treePrinter[P]) VisitUnitLit(expr *UnitLit[P]) bool {
	p.printf(expr, "[()]")
	return true
}

func (p *treePrinter[P]) VisitBoolLit(expr *BoolLit[P]) bool {
	p.printf(expr, "[%t]", expr.Value)
	return true
}

func (p *treePrinter[P]) VisitIntLit(expr *IntLit[P]) bool {
	p.printf(expr, "[%d]", expr.Value)
	return true
}

func (p *treePrinter[P]) VisitObjectLit(expr *ObjectLit[P]) bool {
	p.printf(expr, "[object %s]", NewReferenceType(expr.Class.Name, expr.TypeArgs...))
	defer dec(inc(p))
	for _, name := range sortedFieldNames(expr.Fields) {
		p.printf(expr.Fields[name], "[field %s]", name)
		p.children(expr.Fields[name])
	}
	return true
}

func (p *treePrinter[P]) VisitVarRef(expr *VarRef[P]) bool {
	p.printf(expr, "[ident %s]", expr.Name)
	return true
}

func (p *treePrinter[P]) VisitFuncCall(expr *FuncCall[P]) bool {
	p.printf(expr, "[call %s]", expr.Name)
	var nodes []Node[P]
	for _, arg := range expr.Args {
		nodes = append(nodes, arg)
	}
	return p.children(nodes...)
}

func (p *treePrinter[P]) VisitIfExpr(expr *IfExpr[P]) bool {
	p.printf(expr, "[if]")
	return p.children(expr.Cond, expr.Then, expr.Else)
}

func (p *treePrinter[P]) VisitPrefixExpr(expr *PrefixExpr[P]) bool {
	p.printf(expr, "[prefix %s]", expr.Op)
	return p.children(expr.X)
}

func (p *treePrinter[P]) VisitBinaryExpr(expr *BinaryExpr[P]) bool {
	p.printf(expr, "[binary %s]", expr.Op)
	return p.children(expr.Left, expr.Right)
}

func (p *treePrinter[P]) VisitFieldAccess(expr *FieldAccess[P]) bool {
	p.printf(expr, "[dot %s]", expr.Field)
	return p.children(expr.X)
}
