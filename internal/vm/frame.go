package vm

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// frame holds the registers of one function activation.
type frame struct {
	fun    *llvm.Func
	block  *llvm.Block
	values map[value.Value]Value
}

func newFrame(fun *llvm.Func, args []Value) *frame {
	fr := &frame{fun: fun, values: make(map[value.Value]Value)}
	for i, param := range fun.Params {
		fr.values[param] = args[i]
	}
	if len(fun.Blocks) > 0 {
		fr.block = fun.Blocks[0]
	}
	return fr
}

func (fr *frame) set(v value.Value, res Value) {
	fr.values[v] = res
}

func (fr *frame) String() string {
	if fr.block == nil {
		return fr.fun.Name()
	}
	return fmt.Sprintf("%s:%s", fr.fun.Name(), fr.block.Name())
}

// blockOf returns the block a branch target refers to.
func blockOf(target value.Value) (*llvm.Block, error) {
	block, ok := target.(*llvm.Block)
	if !ok {
		return nil, fmt.Errorf("branch target %s is not a block", target.Ident())
	}
	return block, nil
}
