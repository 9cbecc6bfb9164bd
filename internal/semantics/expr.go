package semantics

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
	"github.com/derekxu16/dishsoap/internal/token"
)

func (c *checker) ProcessUnitLit(expr *ir.UnitLit[ir.Untyped]) (*ir.UnitLit[ir.Typed], error) {
	return ir.NewUnitLit(typed(ir.TBuiltinUnit)), nil
}

func (c *checker) ProcessBoolLit(expr *ir.BoolLit[ir.Untyped]) (*ir.BoolLit[ir.Typed], error) {
	return ir.NewBoolLit(typed(ir.TBuiltinBool), expr.Value), nil
}

func (c *checker) ProcessIntLit(expr *ir.IntLit[ir.Untyped]) (*ir.IntLit[ir.Typed], error) {
	return ir.NewIntLit(typed(ir.TBuiltinInt64), expr.Value), nil
}

func (c *checker) ProcessObjectLit(expr *ir.ObjectLit[ir.Untyped], fields map[string]ir.Expr[ir.Typed]) (*ir.ObjectLit[ir.Typed], error) {
	var typeArgs []ir.Type
	for _, arg := range expr.TypeArgs {
		t, err := c.resolve(expr.Pos(), arg)
		if err != nil {
			return nil, err
		}
		typeArgs = append(typeArgs, t)
	}

	t, err := c.resolve(expr.Pos(), ir.NewReferenceType(expr.Class.Name, typeArgs...))
	if err != nil {
		return nil, err
	}
	record := t.(*ir.RecordType)

	names := maps.Keys(fields)
	slices.Sort(names)
	for _, name := range names {
		ft, ok := record.Fields[name]
		if !ok {
			return nil, c.errorf(fields[name].Pos(), common.UnknownField, "class %s has no field %s", expr.Class, name)
		}
		if t := ir.TypeOf(fields[name]); !t.Equals(ft) {
			return nil, c.mismatch(fields[name].Pos(), "field "+name, ft, t)
		}
	}
	for _, name := range record.FieldNames() {
		if _, ok := fields[name]; !ok {
			return nil, c.errorf(expr.Pos(), common.TypeMismatch, "missing field %s in %s literal", name, expr.Class)
		}
	}

	return ir.NewObjectLit(typed(record), expr.Class, typeArgs, fields), nil
}

func (c *checker) ProcessVarRef(expr *ir.VarRef[ir.Untyped]) (*ir.VarRef[ir.Typed], error) {
	t, ok := c.env.Top().Lookup(expr.Name.Name)
	if !ok {
		return nil, c.errorf(expr.Pos(), common.UnknownIdentifier, "%s is not declared", expr.Name)
	}
	return ir.NewVarRef(typed(t), expr.Name), nil
}

func (c *checker) ProcessFuncCall(expr *ir.FuncCall[ir.Untyped], args []ir.Expr[ir.Typed]) (*ir.FuncCall[ir.Typed], error) {
	t, ok := c.env.Top().Lookup(expr.Name.Name)
	if !ok {
		return nil, c.errorf(expr.Pos(), common.UnknownIdentifier, "%s is not declared", expr.Name)
	}
	sig, ok := t.(*ir.FuncType)
	if !ok {
		return nil, c.errorf(expr.Pos(), common.TypeMismatch, "%s of type %s is not a function", expr.Name, t)
	}
	if len(args) != len(sig.Params) {
		return nil, c.errorf(expr.Pos(), common.ArityMismatch, "%s expects %d arguments, got %d", expr.Name, len(sig.Params), len(args))
	}
	for i, arg := range args {
		if t := ir.TypeOf(arg); !t.Equals(sig.Params[i]) {
			return nil, c.mismatch(arg.Pos(), "argument to "+expr.Name.Name, sig.Params[i], t)
		}
	}
	return ir.NewFuncCall(typed(sig.Return), expr.Name, args), nil
}

// ProcessIfExpr gives the if the type shared by the results of both
// branches. A branch that returns from the function takes the type of the
// other branch.
func (c *checker) ProcessIfExpr(expr *ir.IfExpr[ir.Untyped], cond ir.Expr[ir.Typed], then *ir.Block[ir.Typed], els *ir.Block[ir.Typed]) (*ir.IfExpr[ir.Typed], error) {
	if t := ir.TypeOf(cond); !t.Equals(ir.TBuiltinBool) {
		return nil, c.mismatch(cond.Pos(), "condition", ir.TBuiltinBool, t)
	}

	var t ir.Type
	switch {
	case diverges(then):
		t = ir.TypeOf(els)
	case diverges(els):
		t = ir.TypeOf(then)
	default:
		t = ir.TypeOf(then)
		if t2 := ir.TypeOf(els); !t.Equals(t2) {
			return nil, c.mismatch(els.Pos(), "else branch", t, t2)
		}
	}

	return ir.NewIfExpr(typed(t), cond, then, els), nil
}

func (c *checker) ProcessPrefixExpr(expr *ir.PrefixExpr[ir.Untyped], x ir.Expr[ir.Typed]) (*ir.PrefixExpr[ir.Typed], error) {
	var expected ir.Type
	switch expr.Op {
	case token.Lnot:
		expected = ir.TBuiltinBool
	case token.Sub:
		expected = ir.TBuiltinInt64
	default:
		return nil, c.errorf(expr.Pos(), common.TypeMismatch, "invalid prefix operator %s", expr.Op)
	}
	if t := ir.TypeOf(x); !t.Equals(expected) {
		return nil, c.mismatch(x.Pos(), "operand of "+expr.Op.String(), expected, t)
	}
	return ir.NewPrefixExpr(typed(expected), expr.Op, x), nil
}

func (c *checker) ProcessBinaryExpr(expr *ir.BinaryExpr[ir.Untyped], left ir.Expr[ir.Typed], right ir.Expr[ir.Typed]) (*ir.BinaryExpr[ir.Typed], error) {
	ltype := ir.TypeOf(left)
	rtype := ir.TypeOf(right)
	if !ltype.Equals(rtype) {
		return nil, c.mismatch(right.Pos(), "right operand of "+expr.Op.String(), ltype, rtype)
	}

	var t ir.Type
	switch {
	case expr.Op.OneOf(token.Eq, token.Neq):
		switch ltype.Kind() {
		case ir.TBool, ir.TInt64, ir.TRecord:
		default:
			return nil, c.errorf(expr.Pos(), common.TypeMismatch, "operator %s is not defined on %s", expr.Op, ltype)
		}
		t = ir.TBuiltinBool
	case expr.Op.IsComparisonOp():
		if !ltype.Equals(ir.TBuiltinInt64) {
			return nil, c.mismatch(left.Pos(), "operand of "+expr.Op.String(), ir.TBuiltinInt64, ltype)
		}
		t = ir.TBuiltinBool
	case expr.Op.IsArithmeticOp():
		if !ltype.Equals(ir.TBuiltinInt64) {
			return nil, c.mismatch(left.Pos(), "operand of "+expr.Op.String(), ir.TBuiltinInt64, ltype)
		}
		t = ltype
	default:
		return nil, c.errorf(expr.Pos(), common.TypeMismatch, "invalid binary operator %s", expr.Op)
	}

	return ir.NewBinaryExpr(typed(t), left, expr.Op, right), nil
}

func (c *checker) ProcessFieldAccess(expr *ir.FieldAccess[ir.Untyped], x ir.Expr[ir.Typed]) (*ir.FieldAccess[ir.Typed], error) {
	record, ok := ir.TypeOf(x).(*ir.RecordType)
	if !ok {
		return nil, c.errorf(expr.Pos(), common.TypeMismatch, "type %s has no fields", ir.TypeOf(x))
	}
	ft, ok := record.Fields[expr.Field.Name]
	if !ok {
		return nil, c.errorf(expr.Field.Pos, common.UnknownField, "type %s has no field %s", record, expr.Field)
	}
	return ir.NewFieldAccess(typed(ft), x, expr.Field), nil
}
