package ir

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Names of the memory primitives available to every program.
const (
	PreludeAlloc = "mem_alloc"
	PreludeFree  = "mem_free"
	PreludeCopy  = "mem_copy"
	PreludeLoad  = "mem_load"
	PreludeStore = "mem_store"
)

// Prelude is an immutable table of function signatures that are in scope
// without being declared.
type Prelude struct {
	funcs map[string]*FuncType
}

func NewPrelude(funcs map[string]*FuncType) *Prelude {
	return &Prelude{funcs: maps.Clone(funcs)}
}

// DefaultPrelude returns the memory primitives. Addresses are opaque I64 values.
func DefaultPrelude() *Prelude {
	i64 := TBuiltinInt64
	return NewPrelude(map[string]*FuncType{
		PreludeAlloc: NewFuncType([]Type{i64}, i64),
		PreludeFree:  NewFuncType([]Type{i64}, TBuiltinUnit),
		PreludeCopy:  NewFuncType([]Type{i64, i64, i64}, TBuiltinUnit),
		PreludeLoad:  NewFuncType([]Type{i64}, i64),
		PreludeStore: NewFuncType([]Type{i64, i64}, TBuiltinUnit),
	})
}

func (p *Prelude) Lookup(name string) (*FuncType, bool) {
	t, ok := p.funcs[name]
	return t, ok
}

// Names returns the function names in sorted order.
func (p *Prelude) Names() []string {
	names := maps.Keys(p.funcs)
	slices.Sort(names)
	return names
}
