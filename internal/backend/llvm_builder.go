package backend

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
	"github.com/derekxu16/dishsoap/internal/token"
)

// Output is a lowered program.
type Output struct {
	Module *llvm.Module

	// Symbol name of the entry function, empty if none was requested.
	Entry string
}

func (o *Output) String() string {
	return o.Module.String()
}

type varSlot struct {
	slot value.Value
	elem types.Type
}

type llvmCodeBuilder struct {
	ir.BaseVisitor[ir.Typed]

	mod     *llvm.Module
	prelude *ir.Prelude
	funcs   map[string]*llvm.Func
	runtime map[string]*llvm.Func

	// State of the function being built
	fun   *llvm.Func
	entry *llvm.Block
	block *llvm.Block
	vars  map[string]varSlot
	names map[string]int

	// Result of the last expression built, nil for Unit
	value value.Value
}

// BuildModule lowers a checked file. Inconsistencies in the typed tree abort
// the build with an InternalLoweringError.
func BuildModule(file *ir.SourceFile[ir.Typed], prelude *ir.Prelude, config *common.BuildConfig) (out *Output, err error) {
	cb := newBuilder(prelude)
	defer cb.dispose()

	defer func() {
		if r := recover(); r != nil {
			cerr, ok := r.(*common.Error)
			if !ok {
				panic(r)
			}
			out = nil
			err = cerr
		}
	}()

	if err := validateEntry(file, config); err != nil {
		return nil, err
	}

	cb.declareRuntime()
	cb.buildPrelude()
	cb.declareFuncs(file)
	ir.Walk[ir.Typed](cb, file)

	out = &Output{Module: cb.mod}
	if len(config.Entry) > 0 {
		out.Entry = mangle(config.Entry)
	}
	return out, nil
}

func newBuilder(prelude *ir.Prelude) *llvmCodeBuilder {
	cb := &llvmCodeBuilder{}
	cb.mod = llvm.NewModule()
	cb.prelude = prelude
	cb.funcs = make(map[string]*llvm.Func)
	cb.runtime = make(map[string]*llvm.Func)
	return cb
}

// dispose is the release half of newBuilder. llir holds no native handles,
// so releasing drops every reference the builder keeps into the module,
// including after a build that panicked midway.
func (cb *llvmCodeBuilder) dispose() {
	cb.mod = nil
	cb.funcs = nil
	cb.runtime = nil
	cb.fun = nil
	cb.entry = nil
	cb.block = nil
	cb.vars = nil
	cb.names = nil
	cb.value = nil
}

func validateEntry(file *ir.SourceFile[ir.Typed], config *common.BuildConfig) error {
	if len(config.Entry) == 0 {
		return nil
	}
	for _, decl := range file.Decls {
		fun, ok := decl.(*ir.FuncDecl[ir.Typed])
		if !ok || fun.Name.Name != config.Entry {
			continue
		}
		if len(fun.Params) > 0 {
			return common.NewErrorAt(fun.Pos(), common.ArityMismatch, "entry function %s cannot have parameters", fun.Name)
		}
		return nil
	}
	return common.NewErrorAt(token.Position{Filename: file.Filename}, common.UnknownIdentifier, "no entry function %s", config.Entry)
}

func (cb *llvmCodeBuilder) declareRuntime() {
	cb.runtime[runtimeMalloc] = cb.mod.NewFunc(runtimeMalloc, i8Ptr, llvm.NewParam("size", types.I64))
	cb.runtime[runtimeFree] = cb.mod.NewFunc(runtimeFree, types.Void, llvm.NewParam("ptr", i8Ptr))
	cb.runtime[runtimeMemcpy] = cb.mod.NewFunc(runtimeMemcpy, i8Ptr,
		llvm.NewParam("dst", i8Ptr), llvm.NewParam("src", i8Ptr), llvm.NewParam("size", types.I64))
}

func (cb *llvmCodeBuilder) declareFuncs(file *ir.SourceFile[ir.Typed]) {
	for _, decl := range file.Decls {
		fun, ok := decl.(*ir.FuncDecl[ir.Typed])
		if !ok {
			panic(internalError("unexpected top-level %T", decl))
		}
		sig := ir.TypeOf(fun).(*ir.FuncType)
		var params []*llvm.Param
		for i, param := range fun.Params {
			params = append(params, llvm.NewParam(param.Decl.Name.Name, llvmType(sig.Params[i])))
		}
		cb.funcs[fun.Name.Name] = cb.mod.NewFunc(mangle(fun.Name.Name), llvmType(sig.Return), params...)
	}
}

func (cb *llvmCodeBuilder) lookupFunc(name string) *llvm.Func {
	if fun, ok := cb.funcs[name]; ok {
		return fun
	}
	panic(internalError("function %s was not declared", name))
}

// beginFunc resets the per-function state and positions the cursor at the
// entry block of fun.
func (cb *llvmCodeBuilder) beginFunc(fun *llvm.Func) {
	cb.fun = fun
	cb.vars = make(map[string]varSlot)
	cb.names = make(map[string]int)
	for _, param := range fun.Params {
		cb.names[param.Name()]++
	}
	cb.entry = cb.newBlock("entry")
	cb.block = cb.entry
}

// localName makes name unique among the locals and blocks of the current
// function. Source names never contain a dot.
func (cb *llvmCodeBuilder) localName(name string) string {
	n := cb.names[name]
	cb.names[name]++
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, n)
}

func (cb *llvmCodeBuilder) newBlock(label string) *llvm.Block {
	return cb.fun.NewBlock(cb.localName(label))
}

// declareVar allocates the stack slot of a variable in the entry block so it
// dominates every use.
func (cb *llvmCodeBuilder) declareVar(name string, t ir.Type) (varSlot, bool) {
	if ir.IsUnitType(t) {
		delete(cb.vars, name)
		return varSlot{}, false
	}
	elem := llvmType(t)
	alloca := cb.entry.NewAlloca(elem)
	alloca.SetName(cb.localName(name))
	slot := varSlot{slot: alloca, elem: elem}
	cb.vars[name] = slot
	return slot, true
}

func (cb *llvmCodeBuilder) terminated() bool {
	return cb.block.Term != nil
}

func (cb *llvmCodeBuilder) VisitFuncDecl(decl *ir.FuncDecl[ir.Typed]) bool {
	fun := cb.lookupFunc(decl.Name.Name)
	cb.beginFunc(fun)

	for i, param := range decl.Params {
		slot, ok := cb.declareVar(param.Decl.Name.Name, param.Decl.Type)
		if ok {
			cb.block.NewStore(fun.Params[i], slot.slot)
		}
	}

	result := cb.buildBlock(decl.Body)

	if !cb.terminated() {
		if ir.IsUnitType(decl.Return) {
			cb.block.NewRet(nil)
		} else if result != nil {
			cb.block.NewRet(result)
		} else {
			cb.block.NewUnreachable()
		}
	}

	cb.fun = nil
	return true
}

func (cb *llvmCodeBuilder) VisitVarDecl(decl *ir.VarDecl[ir.Typed]) bool {
	init := cb.buildExpr(decl.Init)
	if slot, ok := cb.declareVar(decl.Decl.Name.Name, decl.Decl.Type); ok {
		cb.block.NewStore(init, slot.slot)
	}
	return true
}

func (cb *llvmCodeBuilder) VisitReturnStmt(stmt *ir.ReturnStmt[ir.Typed]) bool {
	x := cb.buildExpr(stmt.X)
	if ir.IsUnitType(ir.TypeOf(stmt.X)) {
		cb.block.NewRet(nil)
	} else {
		cb.block.NewRet(x)
	}
	// Code after a return goes into an unreachable block.
	cb.block = cb.newBlock("dead")
	return true
}

func (cb *llvmCodeBuilder) VisitBlock(block *ir.Block[ir.Typed]) bool {
	cb.value = cb.buildBlock(block)
	return true
}

// buildBlock emits the statements of block and returns the value of its
// final expression, nil if the block has no final or it is Unit.
func (cb *llvmCodeBuilder) buildBlock(block *ir.Block[ir.Typed]) value.Value {
	for _, stmt := range block.Stmts {
		ir.Walk[ir.Typed](cb, stmt)
	}
	if block.Final == nil {
		return nil
	}
	return cb.buildExpr(block.Final)
}

// buildExpr walks expr and returns its value, nil for Unit.
func (cb *llvmCodeBuilder) buildExpr(expr ir.Expr[ir.Typed]) value.Value {
	cb.value = nil
	ir.Walk[ir.Typed](cb, expr)
	res := cb.value
	cb.value = nil
	if ir.IsUnitType(ir.TypeOf(expr)) {
		return nil
	}
	if res == nil {
		panic(internalError("expression of type %s produced no value", ir.TypeOf(expr)))
	}
	return res
}

func (cb *llvmCodeBuilder) VisitUnitLit(expr *ir.UnitLit[ir.Typed]) bool {
	cb.value = nil
	return true
}

func (cb *llvmCodeBuilder) VisitBoolLit(expr *ir.BoolLit[ir.Typed]) bool {
	cb.value = constant.NewBool(expr.Value)
	return true
}

func (cb *llvmCodeBuilder) VisitIntLit(expr *ir.IntLit[ir.Typed]) bool {
	cb.value = i64(expr.Value)
	return true
}

func (cb *llvmCodeBuilder) VisitVarRef(expr *ir.VarRef[ir.Typed]) bool {
	if ir.IsUnitType(ir.TypeOf(expr)) {
		cb.value = nil
		return true
	}
	slot, ok := cb.vars[expr.Name.Name]
	if !ok {
		if fun, isFunc := cb.funcs[expr.Name.Name]; isFunc {
			cb.value = fun
			return true
		}
		panic(internalError("variable %s has no storage", expr.Name))
	}
	cb.value = cb.block.NewLoad(slot.elem, slot.slot)
	return true
}

func (cb *llvmCodeBuilder) VisitFuncCall(expr *ir.FuncCall[ir.Typed]) bool {
	fun := cb.lookupFunc(expr.Name.Name)
	if len(expr.Args) != len(fun.Params) {
		panic(internalError("%s called with %d arguments, expects %d", expr.Name, len(expr.Args), len(fun.Params)))
	}
	var args []value.Value
	for _, arg := range expr.Args {
		args = append(args, cb.buildExpr(arg))
	}
	call := cb.block.NewCall(fun, args...)
	if ir.IsUnitType(ir.TypeOf(expr)) {
		cb.value = nil
	} else {
		cb.value = call
	}
	return true
}

func (cb *llvmCodeBuilder) VisitObjectLit(expr *ir.ObjectLit[ir.Typed]) bool {
	record, ok := ir.TypeOf(expr).(*ir.RecordType)
	if !ok {
		panic(internalError("object literal of non-record type %s", ir.TypeOf(expr)))
	}
	st := llvmStructType(record)
	ptrType := types.NewPointer(st)

	mem := cb.block.NewCall(cb.runtime[runtimeMalloc], llvmSizeOf(st))
	obj := cb.block.NewBitCast(mem, ptrType)

	for idx, name := range record.FieldNames() {
		field, ok := expr.Fields[name]
		if !ok {
			panic(internalError("object literal is missing field %s", name))
		}
		val := cb.buildExpr(field)
		if val == nil {
			val = constant.NewZeroInitializer(st.Fields[idx])
		}
		addr := cb.block.NewGetElementPtr(st, obj, i32(0), i32(int64(idx)))
		cb.block.NewStore(val, addr)
	}

	cb.value = obj
	return true
}

func (cb *llvmCodeBuilder) VisitFieldAccess(expr *ir.FieldAccess[ir.Typed]) bool {
	record, ok := ir.TypeOf(expr.X).(*ir.RecordType)
	if !ok {
		panic(internalError("field access on non-record type %s", ir.TypeOf(expr.X)))
	}
	idx := record.FieldIndex(expr.Field.Name)
	if idx < 0 {
		panic(internalError("type %s has no field %s", record, expr.Field))
	}

	obj := cb.buildExpr(expr.X)
	if ir.IsUnitType(ir.TypeOf(expr)) {
		cb.value = nil
		return true
	}

	st := llvmStructType(record)
	addr := cb.block.NewGetElementPtr(st, obj, i32(0), i32(int64(idx)))
	cb.value = cb.block.NewLoad(st.Fields[idx], addr)
	return true
}

func (cb *llvmCodeBuilder) VisitIfExpr(expr *ir.IfExpr[ir.Typed]) bool {
	t := ir.TypeOf(expr)

	var result value.Value
	var elem types.Type
	if !ir.IsUnitType(t) {
		elem = llvmType(t)
		alloca := cb.entry.NewAlloca(elem)
		alloca.SetName(cb.localName("if.result"))
		result = alloca
	}

	cond := cb.buildExpr(expr.Cond)

	thenBlock := cb.newBlock("if.then")
	elseBlock := cb.newBlock("if.else")
	endBlock := cb.newBlock("if.end")
	cb.block.NewCondBr(cond, thenBlock, elseBlock)

	cb.buildBranch(expr.Then, thenBlock, endBlock, result)
	cb.buildBranch(expr.Else, elseBlock, endBlock, result)

	cb.block = endBlock
	if result != nil {
		cb.value = cb.block.NewLoad(elem, result)
	} else {
		cb.value = nil
	}
	return true
}

func (cb *llvmCodeBuilder) buildBranch(branch *ir.Block[ir.Typed], block *llvm.Block, end *llvm.Block, result value.Value) {
	cb.block = block
	val := cb.buildBlock(branch)
	if cb.terminated() {
		return
	}
	if result != nil && val != nil {
		cb.block.NewStore(val, result)
	}
	cb.block.NewBr(end)
}

func (cb *llvmCodeBuilder) VisitPrefixExpr(expr *ir.PrefixExpr[ir.Typed]) bool {
	x := cb.buildExpr(expr.X)
	switch expr.Op {
	case token.Sub:
		cb.value = cb.block.NewSub(i64(0), x)
	case token.Lnot:
		cb.value = cb.block.NewXor(x, constant.True)
	default:
		panic(internalError("unhandled prefix operator %s", expr.Op))
	}
	return true
}

func (cb *llvmCodeBuilder) VisitBinaryExpr(expr *ir.BinaryExpr[ir.Typed]) bool {
	left := cb.buildExpr(expr.Left)
	right := cb.buildExpr(expr.Right)

	switch {
	case expr.Op.IsArithmeticOp():
		cb.value = cb.createMathOp(expr.Op, left, right)
	case expr.Op.IsComparisonOp():
		cb.value = cb.block.NewICmp(intPredicate(expr.Op), left, right)
	default:
		panic(internalError("unhandled binary operator %s", expr.Op))
	}
	return true
}

func (cb *llvmCodeBuilder) createMathOp(op token.Token, left value.Value, right value.Value) value.Value {
	switch op {
	case token.Add:
		return cb.block.NewAdd(left, right)
	case token.Sub:
		return cb.block.NewSub(left, right)
	case token.Mul:
		return cb.block.NewMul(left, right)
	case token.Div:
		return cb.block.NewSDiv(left, right)
	case token.Mod:
		return cb.block.NewSRem(left, right)
	}
	panic(internalError("unhandled arithmetic operator %s", op))
}

func intPredicate(op token.Token) enum.IPred {
	switch op {
	case token.Eq:
		return enum.IPredEQ
	case token.Neq:
		return enum.IPredNE
	case token.Gt:
		return enum.IPredSGT
	case token.GtEq:
		return enum.IPredSGE
	case token.Lt:
		return enum.IPredSLT
	case token.LtEq:
		return enum.IPredSLE
	}
	panic(internalError("unhandled comparison operator %s", op))
}
