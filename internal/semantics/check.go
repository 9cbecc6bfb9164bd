package semantics

import (
	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
	"github.com/derekxu16/dishsoap/internal/token"
)

// Check builds the typed tree of file. The first error aborts the check.
func Check(file *ir.SourceFile[ir.Untyped], prelude *ir.Prelude) (*ir.SourceFile[ir.Typed], error) {
	c, err := newChecker(file, prelude)
	if err != nil {
		return nil, err
	}
	return ir.Transform[ir.Untyped, ir.Typed](c, file)
}

type checker struct {
	prelude  *ir.Prelude
	env      *EnvironmentStack
	resolver *Resolver

	// Return type of the function being checked
	ret ir.Type
}

var (
	_ ir.Transformer[ir.Untyped, ir.Typed]   = (*checker)(nil)
	_ ir.FuncDeclHooks[ir.Untyped, ir.Typed] = (*checker)(nil)
	_ ir.VarDeclHooks[ir.Untyped, ir.Typed]  = (*checker)(nil)
)

func typed(t ir.Type) ir.Typed {
	return ir.Typed{T: t}
}

// newChecker seeds the outermost scope with the prelude and the signature of
// every top-level function, so calls may precede declarations.
func newChecker(file *ir.SourceFile[ir.Untyped], prelude *ir.Prelude) (*checker, error) {
	c := &checker{
		prelude:  prelude,
		resolver: NewResolver(file.Classes),
	}

	seed := make(Environment)
	for _, name := range prelude.Names() {
		t, _ := prelude.Lookup(name)
		seed.Insert(name, t)
	}

	for _, decl := range file.Decls {
		fun, ok := decl.(*ir.FuncDecl[ir.Untyped])
		if !ok {
			continue
		}
		if _, exists := seed.Lookup(fun.Name.Name); exists {
			return nil, c.errorf(fun.Name.Pos, common.TypeMismatch, "redeclaration of %s", fun.Name.Name)
		}
		sig, err := c.funcSignature(fun)
		if err != nil {
			return nil, err
		}
		seed.Insert(fun.Name.Name, sig)
	}

	c.env = NewEnvironmentStack(seed)
	return c, nil
}

func (c *checker) errorf(pos token.Position, kind common.ErrorKind, format string, args ...interface{}) error {
	return common.NewErrorAt(pos, kind, format, args...)
}

// resolve resolves t and attaches pos to resolver errors that lack one.
func (c *checker) resolve(pos token.Position, t ir.Type) (ir.Type, error) {
	res, err := c.resolver.ResolveType(t)
	if err != nil {
		if cerr, ok := err.(*common.Error); ok && !cerr.Pos.IsValid() {
			cerr.Pos = pos
		}
		return nil, err
	}
	return res, nil
}

func (c *checker) funcSignature(decl *ir.FuncDecl[ir.Untyped]) (*ir.FuncType, error) {
	var params []ir.Type
	for _, param := range decl.Params {
		t, err := c.resolve(param.Pos(), param.Decl.Type)
		if err != nil {
			return nil, err
		}
		if ir.IsUnitType(t) {
			return nil, c.errorf(param.Pos(), common.TypeMismatch, "parameter %s cannot have type %s", param.Decl.Name, t)
		}
		params = append(params, t)
	}
	ret, err := c.resolve(decl.Pos(), decl.Return)
	if err != nil {
		return nil, err
	}
	return ir.NewFuncType(params, ret), nil
}

func (c *checker) mismatch(pos token.Position, what string, expected ir.Type, actual ir.Type) error {
	return c.errorf(pos, common.TypeMismatch, "%s: expected %s, got %s", what, expected, actual)
}

func (c *checker) ProcessSourceFile(file *ir.SourceFile[ir.Untyped], decls []ir.Decl[ir.Typed]) (*ir.SourceFile[ir.Typed], error) {
	return ir.NewSourceFile(typed(ir.TBuiltinUnit), file.Filename, decls, file.Classes), nil
}

func (c *checker) BeforeFuncDecl(decl *ir.FuncDecl[ir.Untyped]) error {
	sig, err := c.funcSignature(decl)
	if err != nil {
		return err
	}
	scope := c.env.EnterScope()
	scope.Insert(decl.Name.Name, sig)
	for i, param := range decl.Params {
		scope.Insert(param.Decl.Name.Name, sig.Params[i])
	}
	c.ret = sig.Return
	return nil
}

func (c *checker) AfterFuncDecl(decl *ir.FuncDecl[ir.Typed]) error {
	c.env.ExitScope()
	c.env.Top().Insert(decl.Name.Name, ir.TypeOf(decl))
	c.ret = nil
	return nil
}

func (c *checker) ProcessFuncDecl(decl *ir.FuncDecl[ir.Untyped], params []*ir.Param[ir.Typed], body *ir.Block[ir.Typed]) (*ir.FuncDecl[ir.Typed], error) {
	var paramTypes []ir.Type
	for _, param := range params {
		paramTypes = append(paramTypes, ir.TypeOf(param))
	}

	switch {
	case diverges(body):
	case body.Final != nil:
		if t := ir.TypeOf(body.Final); !t.Equals(c.ret) {
			return nil, c.mismatch(body.Final.Pos(), "result of "+decl.Name.Name, c.ret, t)
		}
	case !ir.IsUnitType(c.ret):
		return nil, c.errorf(decl.Body.Pos(), common.TypeMismatch, "missing result of type %s in %s", c.ret, decl.Name)
	}

	sig := ir.NewFuncType(paramTypes, c.ret)
	return ir.NewFuncDecl(typed(sig), decl.Name, params, c.ret, body), nil
}

func (c *checker) BeforeVarDecl(decl *ir.VarDecl[ir.Untyped]) error {
	return nil
}

func (c *checker) AfterVarDecl(decl *ir.VarDecl[ir.Typed]) error {
	c.env.Top().Insert(decl.Decl.Name.Name, decl.Decl.Type)
	return nil
}

func (c *checker) ProcessVarDecl(decl *ir.VarDecl[ir.Untyped], declarator *ir.VarDeclarator[ir.Typed], init ir.Expr[ir.Typed]) (*ir.VarDecl[ir.Typed], error) {
	if t := ir.TypeOf(init); !t.Equals(declarator.Type) {
		return nil, c.mismatch(init.Pos(), "initializer of "+declarator.Name.Name, declarator.Type, t)
	}
	return ir.NewVarDecl(typed(declarator.Type), declarator, init), nil
}

func (c *checker) ProcessVarDeclarator(decl *ir.VarDeclarator[ir.Untyped]) (*ir.VarDeclarator[ir.Typed], error) {
	t, err := c.resolve(decl.Pos(), decl.Type)
	if err != nil {
		return nil, err
	}
	return ir.NewVarDeclarator(typed(t), decl.Name, t), nil
}

func (c *checker) ProcessParam(param *ir.Param[ir.Untyped], declarator *ir.VarDeclarator[ir.Typed]) (*ir.Param[ir.Typed], error) {
	c.env.Top().Insert(declarator.Name.Name, declarator.Type)
	return ir.NewParam(typed(declarator.Type), declarator), nil
}

func (c *checker) ProcessReturnStmt(stmt *ir.ReturnStmt[ir.Untyped], x ir.Expr[ir.Typed]) (*ir.ReturnStmt[ir.Typed], error) {
	if c.ret == nil {
		return nil, c.errorf(stmt.Pos(), common.TypeMismatch, "return outside function")
	}
	if t := ir.TypeOf(x); !t.Equals(c.ret) {
		return nil, c.mismatch(x.Pos(), "return value", c.ret, t)
	}
	return ir.NewReturnStmt(typed(ir.TypeOf(x)), x), nil
}

func (c *checker) ProcessBlock(block *ir.Block[ir.Untyped], stmts []ir.Stmt[ir.Typed], final ir.Expr[ir.Typed]) (*ir.Block[ir.Typed], error) {
	t := ir.TBuiltinUnit
	if final != nil {
		t = ir.TypeOf(final)
	}
	return ir.NewBlock(typed(t), stmts, final), nil
}

// diverges returns true if every path through block returns from the
// function: it ends with a return, or its result is an if whose branches
// both diverge.
func diverges(block *ir.Block[ir.Typed]) bool {
	if expr, ok := block.Final.(*ir.IfExpr[ir.Typed]); ok {
		return diverges(expr.Then) && diverges(expr.Else)
	}
	if block.Final != nil || len(block.Stmts) == 0 {
		return false
	}
	_, ok := block.Stmts[len(block.Stmts)-1].(*ir.ReturnStmt[ir.Typed])
	return ok
}
