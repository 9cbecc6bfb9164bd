package backend

import (
	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/derekxu16/dishsoap/internal/ir"
)

type preludeBody func(cb *llvmCodeBuilder, fun *llvm.Func)

// Bodies of the memory primitives. Addresses are pointers converted to i64.
var preludeBodies = map[string]preludeBody{
	ir.PreludeAlloc: func(cb *llvmCodeBuilder, fun *llvm.Func) {
		mem := cb.block.NewCall(cb.runtime[runtimeMalloc], fun.Params[0])
		cb.block.NewRet(cb.block.NewPtrToInt(mem, types.I64))
	},
	ir.PreludeFree: func(cb *llvmCodeBuilder, fun *llvm.Func) {
		ptr := cb.block.NewIntToPtr(fun.Params[0], i8Ptr)
		cb.block.NewCall(cb.runtime[runtimeFree], ptr)
		cb.block.NewRet(nil)
	},
	ir.PreludeCopy: func(cb *llvmCodeBuilder, fun *llvm.Func) {
		dst := cb.block.NewIntToPtr(fun.Params[0], i8Ptr)
		src := cb.block.NewIntToPtr(fun.Params[1], i8Ptr)
		cb.block.NewCall(cb.runtime[runtimeMemcpy], dst, src, fun.Params[2])
		cb.block.NewRet(nil)
	},
	ir.PreludeLoad: func(cb *llvmCodeBuilder, fun *llvm.Func) {
		ptr := cb.block.NewIntToPtr(fun.Params[0], types.NewPointer(types.I64))
		cb.block.NewRet(cb.block.NewLoad(types.I64, ptr))
	},
	ir.PreludeStore: func(cb *llvmCodeBuilder, fun *llvm.Func) {
		ptr := cb.block.NewIntToPtr(fun.Params[0], types.NewPointer(types.I64))
		cb.block.NewStore(fun.Params[1], ptr)
		cb.block.NewRet(nil)
	},
}

var preludeParamNames = map[string][]string{
	ir.PreludeAlloc: {"size"},
	ir.PreludeFree:  {"addr"},
	ir.PreludeCopy:  {"dst", "src", "size"},
	ir.PreludeLoad:  {"addr"},
	ir.PreludeStore: {"addr", "val"},
}

// buildPrelude emits an internal definition for every function of the
// prelude. The lowered signature must agree with the body.
func (cb *llvmCodeBuilder) buildPrelude() {
	for _, name := range cb.prelude.Names() {
		body, ok := preludeBodies[name]
		if !ok {
			panic(internalError("prelude function %s has no lowering", name))
		}
		sig, _ := cb.prelude.Lookup(name)
		names := preludeParamNames[name]
		if len(names) != len(sig.Params) {
			panic(internalError("prelude function %s has signature %s", name, sig))
		}

		var params []*llvm.Param
		for i, param := range sig.Params {
			if !param.Equals(ir.TBuiltinInt64) {
				panic(internalError("prelude function %s has signature %s", name, sig))
			}
			params = append(params, llvm.NewParam(names[i], types.I64))
		}
		fun := cb.mod.NewFunc(name, llvmType(sig.Return), params...)
		fun.Linkage = enum.LinkageInternal

		cb.beginFunc(fun)
		body(cb, fun)
		if !fun.Sig.RetType.Equal(retTypeOf(fun)) {
			panic(internalError("prelude function %s has signature %s", name, sig))
		}
		cb.funcs[name] = fun
	}
	cb.fun = nil
}

// retTypeOf returns the type returned by the last block of fun.
func retTypeOf(fun *llvm.Func) types.Type {
	block := fun.Blocks[len(fun.Blocks)-1]
	ret, ok := block.Term.(*llvm.TermRet)
	if !ok || ret.X == nil {
		return types.Void
	}
	return ret.X.Type()
}
