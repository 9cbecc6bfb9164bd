package vm

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// DefaultMaxDepth bounds the call depth of a run.
const DefaultMaxDepth = 10000

// RuntimeError is a fault raised while executing a module.
type RuntimeError struct {
	Frame string
	Msg   string
}

func (e *RuntimeError) Error() string {
	if len(e.Frame) > 0 {
		return fmt.Sprintf("%s: %s", e.Frame, e.Msg)
	}
	return e.Msg
}

// VM executes the functions of an LLVM module. The C runtime functions the
// code generator relies on are provided by the machine itself.
type VM struct {
	mod      *llvm.Module
	funcs    map[string]*llvm.Func
	mem      *memory
	frames   []*frame
	MaxDepth int
}

// NewMachine creates a machine for mod.
func NewMachine(mod *llvm.Module) *VM {
	m := &VM{mod: mod, funcs: make(map[string]*llvm.Func), MaxDepth: DefaultMaxDepth}
	for _, fun := range mod.Funcs {
		m.funcs[fun.Name()] = fun
	}
	m.reset()
	return m
}

// Run calls the function entry of mod without arguments.
func Run(mod *llvm.Module, entry string) (Value, error) {
	return NewMachine(mod).Call(entry)
}

func (m *VM) reset() {
	m.mem = newMemory()
	m.frames = nil
}

// Call runs the function name with args. Memory is fresh for every call.
func (m *VM) Call(name string, args ...Value) (res Value, err error) {
	fun, ok := m.funcs[name]
	if !ok {
		return Value{}, &RuntimeError{Msg: fmt.Sprintf("no function %s", name)}
	}
	if len(args) != len(fun.Params) {
		return Value{}, &RuntimeError{Msg: fmt.Sprintf("%s expects %d arguments, got %d", name, len(fun.Params), len(args))}
	}

	m.reset()
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(*RuntimeError)
			if !ok {
				panic(r)
			}
			res = Value{}
			err = rerr
		}
		m.frames = nil
	}()

	return m.call(fun, args), nil
}

func (m *VM) panicf(format string, args ...interface{}) {
	rerr := &RuntimeError{Msg: fmt.Sprintf(format, args...)}
	if n := len(m.frames); n > 0 {
		rerr.Frame = m.frames[n-1].String()
	}
	panic(rerr)
}

func (m *VM) must(err error) {
	if err != nil {
		m.panicf("%s", err)
	}
}

func (m *VM) call(fun *llvm.Func, args []Value) Value {
	if len(fun.Blocks) == 0 {
		return m.callRuntime(fun, args)
	}
	if len(m.frames) >= m.MaxDepth {
		m.panicf("call depth exceeds %d", m.MaxDepth)
	}

	fr := newFrame(fun, args)
	m.frames = append(m.frames, fr)
	defer func() {
		m.frames = m.frames[:len(m.frames)-1]
	}()

	for {
		for _, inst := range fr.block.Insts {
			m.exec(fr, inst)
		}

		switch term := fr.block.Term.(type) {
		case *llvm.TermRet:
			if term.X == nil {
				return Value{}
			}
			return m.eval(fr, term.X)
		case *llvm.TermBr:
			fr.block = m.target(term.Target)
		case *llvm.TermCondBr:
			if m.eval(fr, term.Cond).Bool() {
				fr.block = m.target(term.TargetTrue)
			} else {
				fr.block = m.target(term.TargetFalse)
			}
		case *llvm.TermUnreachable:
			m.panicf("reached unreachable code")
		case nil:
			m.panicf("block has no terminator")
		default:
			m.panicf("unsupported terminator %T", term)
		}
	}
}

func (m *VM) target(v value.Value) *llvm.Block {
	block, err := blockOf(v)
	m.must(err)
	return block
}

func (m *VM) callRuntime(fun *llvm.Func, args []Value) Value {
	switch fun.Name() {
	case "malloc":
		return Value{P: m.mem.alloc(args[0].I, true)}
	case "free":
		m.must(m.mem.free(args[0].P))
		return Value{}
	case "memcpy":
		m.must(m.mem.copy(args[0].P, args[1].P, args[2].I))
		return args[0]
	}
	m.panicf("call to undefined function %s", fun.Name())
	return Value{}
}

func (m *VM) exec(fr *frame, inst llvm.Instruction) {
	switch inst := inst.(type) {
	case *llvm.InstAlloca:
		fr.set(inst, Value{P: m.mem.alloc(sizeOf(inst.ElemType), false)})
	case *llvm.InstLoad:
		v, err := m.mem.load(m.eval(fr, inst.Src).P)
		m.must(err)
		fr.set(inst, v)
	case *llvm.InstStore:
		m.must(m.mem.store(m.eval(fr, inst.Dst).P, m.eval(fr, inst.Src)))
	case *llvm.InstGetElementPtr:
		src := m.eval(fr, inst.Src).P
		m.must(m.mem.check(src))
		var indices []int64
		for _, idx := range inst.Indices {
			indices = append(indices, m.eval(fr, idx).I)
		}
		fr.set(inst, Value{P: src.offset(indices)})
	case *llvm.InstBitCast:
		fr.set(inst, m.eval(fr, inst.From))
	case *llvm.InstPtrToInt:
		addr, err := m.mem.addrOf(m.eval(fr, inst.From).P)
		m.must(err)
		fr.set(inst, Value{I: addr})
	case *llvm.InstIntToPtr:
		p, err := m.mem.pointerTo(m.eval(fr, inst.From).I)
		m.must(err)
		fr.set(inst, Value{P: p})
	case *llvm.InstCall:
		callee, ok := inst.Callee.(*llvm.Func)
		if !ok {
			m.panicf("indirect call through %s", inst.Callee.Ident())
		}
		var args []Value
		for _, arg := range inst.Args {
			args = append(args, m.eval(fr, arg))
		}
		fr.set(inst, m.call(callee, args))
	case *llvm.InstAdd:
		fr.set(inst, Value{I: m.eval(fr, inst.X).I + m.eval(fr, inst.Y).I})
	case *llvm.InstSub:
		fr.set(inst, Value{I: m.eval(fr, inst.X).I - m.eval(fr, inst.Y).I})
	case *llvm.InstMul:
		fr.set(inst, Value{I: m.eval(fr, inst.X).I * m.eval(fr, inst.Y).I})
	case *llvm.InstSDiv:
		x, y := m.eval(fr, inst.X).I, m.eval(fr, inst.Y).I
		if y == 0 {
			m.panicf("integer division by zero")
		}
		fr.set(inst, Value{I: x / y})
	case *llvm.InstSRem:
		x, y := m.eval(fr, inst.X).I, m.eval(fr, inst.Y).I
		if y == 0 {
			m.panicf("integer division by zero")
		}
		fr.set(inst, Value{I: x % y})
	case *llvm.InstXor:
		fr.set(inst, Value{I: m.eval(fr, inst.X).I ^ m.eval(fr, inst.Y).I})
	case *llvm.InstICmp:
		fr.set(inst, boolValue(m.compare(inst.Pred, m.eval(fr, inst.X), m.eval(fr, inst.Y))))
	default:
		m.panicf("unsupported instruction %T", inst)
	}
}

func boolValue(b bool) Value {
	if b {
		return Value{I: 1}
	}
	return Value{I: 0}
}

func (m *VM) compare(pred enum.IPred, x Value, y Value) bool {
	if x.P != nil || y.P != nil {
		same := x.P != nil && y.P != nil && x.P.obj == y.P.obj && pathKey(x.P.path) == pathKey(y.P.path)
		switch pred {
		case enum.IPredEQ:
			return same
		case enum.IPredNE:
			return !same
		}
		m.panicf("ordered comparison of pointers")
	}
	switch pred {
	case enum.IPredEQ:
		return x.I == y.I
	case enum.IPredNE:
		return x.I != y.I
	case enum.IPredSGT:
		return x.I > y.I
	case enum.IPredSGE:
		return x.I >= y.I
	case enum.IPredSLT:
		return x.I < y.I
	case enum.IPredSLE:
		return x.I <= y.I
	}
	m.panicf("unsupported predicate %s", pred)
	return false
}

func (m *VM) eval(fr *frame, v value.Value) Value {
	switch v := v.(type) {
	case *constant.Int:
		if v.Typ.BitSize == 1 {
			return boolValue(v.X.Sign() != 0)
		}
		return Value{I: v.X.Int64()}
	case *constant.Null:
		return Value{}
	case *constant.ZeroInitializer:
		return Value{}
	case *constant.ExprPtrToInt:
		return Value{I: m.constAddr(v.From)}
	}
	res, ok := fr.values[v]
	if !ok {
		m.panicf("use of undefined value %s", v.Ident())
	}
	return res
}

// constAddr folds the address of a constant pointer expression. Only
// offsets from null are supported, which is how sizes are computed.
func (m *VM) constAddr(c constant.Constant) int64 {
	switch c := c.(type) {
	case *constant.Null:
		return 0
	case *constant.ExprGetElementPtr:
		base := m.constAddr(c.Src)
		if len(c.Indices) != 1 {
			m.panicf("unsupported constant address %s", c.Ident())
		}
		idx, ok := c.Indices[0].(*constant.Int)
		if !ok {
			m.panicf("unsupported constant index %s", c.Indices[0].Ident())
		}
		return base + idx.X.Int64()*sizeOf(c.ElemType)
	}
	m.panicf("unsupported constant address %s", c.Ident())
	return 0
}
