package backend

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
)

// Names of the C runtime functions the generated code calls.
const (
	runtimeMalloc = "malloc"
	runtimeFree   = "free"
	runtimeMemcpy = "memcpy"
)

func internalError(format string, args ...interface{}) *common.Error {
	return common.NewError(common.InternalLoweringError, format, args...)
}

func llvmBasicType(kind ir.TypeKind) types.Type {
	switch kind {
	case ir.TUnit:
		return types.Void
	case ir.TBool:
		return types.I1
	case ir.TInt64:
		return types.I64
	default:
		panic(internalError("unhandled basic type %s", kind))
	}
}

// llvmType lowers t. Records are heap allocated and passed by pointer.
func llvmType(t ir.Type) types.Type {
	switch t := t.(type) {
	case *ir.BasicType:
		return llvmBasicType(t.Kind())
	case *ir.RecordType:
		return types.NewPointer(llvmStructType(t))
	case *ir.FuncType:
		return llvmFuncType(t)
	default:
		panic(internalError("type %s cannot be lowered", t))
	}
}

// llvmStructType lays out the fields of t in FieldNames order. Unit fields
// take no space.
func llvmStructType(t *ir.RecordType) *types.StructType {
	var fieldTypes []types.Type
	for _, name := range t.FieldNames() {
		fieldTypes = append(fieldTypes, llvmElemType(t.Fields[name]))
	}
	return types.NewStruct(fieldTypes...)
}

func llvmElemType(t ir.Type) types.Type {
	if ir.IsUnitType(t) {
		return types.NewStruct()
	}
	return llvmType(t)
}

func llvmFuncType(t *ir.FuncType) *types.FuncType {
	var params []types.Type
	for _, param := range t.Params {
		params = append(params, llvmType(param))
	}
	return types.NewFunc(llvmType(t.Return), params...)
}

// llvmSizeOf is the usual constant expression for the allocation size of
// elem: the address of element 1 of a null array.
func llvmSizeOf(elem types.Type) constant.Constant {
	null := constant.NewNull(types.NewPointer(elem))
	gep := constant.NewGetElementPtr(elem, null, constant.NewInt(types.I32, 1))
	return constant.NewPtrToInt(gep, types.I64)
}

func i32(v int64) *constant.Int {
	return constant.NewInt(types.I32, v)
}

func i64(v int64) *constant.Int {
	return constant.NewInt(types.I64, v)
}

var i8Ptr = types.NewPointer(types.I8)

// mangle returns the symbol name of a user function. Names that collide
// with the runtime get a prefix.
func mangle(name string) string {
	switch name {
	case runtimeMalloc, runtimeFree, runtimeMemcpy:
		return fmt.Sprintf("ds.%s", name)
	}
	return name
}
