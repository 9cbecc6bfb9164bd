package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir/types"
	"golang.org/x/exp/slices"
)

// Value is a register value. Integers of every width live in I. Pointers
// live in P, nil being the null pointer.
type Value struct {
	I int64
	P *Pointer
}

func (v Value) String() string {
	if v.P != nil {
		return v.P.String()
	}
	return strconv.FormatInt(v.I, 10)
}

// Bool returns the value as a truth value.
func (v Value) Bool() bool {
	return v.I&1 != 0
}

// Pointer addresses a cell of an object. The path is the list of indices
// from the start of the object, the first being the element index.
type Pointer struct {
	obj  *object
	path []int64
}

func (p *Pointer) String() string {
	return fmt.Sprintf("%s+%s", p.obj, pathKey(p.path))
}

func (p *Pointer) offset(indices []int64) *Pointer {
	path := slices.Clone(p.path)
	if len(indices) > 0 {
		path[len(path)-1] += indices[0]
		path = append(path, indices[1:]...)
	}
	return &Pointer{obj: p.obj, path: path}
}

// wordSize is the number of bytes covered by one top-level element of an
// object that is addressed as raw memory.
const wordSize = 8

type object struct {
	id    int
	base  int64
	size  int64
	heap  bool
	freed bool
	cells map[string]Value
}

func (o *object) String() string {
	kind := "stack"
	if o.heap {
		kind = "heap"
	}
	return fmt.Sprintf("%s#%d", kind, o.id)
}

func pathKey(path []int64) string {
	var sb strings.Builder
	for i, idx := range path {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatInt(idx, 10))
	}
	return sb.String()
}

// memory tracks every object created by a run. Objects get disjoint address
// ranges so pointers can round trip through integers.
type memory struct {
	objects  []*object
	nextAddr int64
}

const baseAddr = 0x1000

func newMemory() *memory {
	return &memory{nextAddr: baseAddr}
}

func (m *memory) alloc(size int64, heap bool) *Pointer {
	obj := &object{
		id:    len(m.objects),
		base:  m.nextAddr,
		size:  size,
		heap:  heap,
		cells: make(map[string]Value),
	}
	m.objects = append(m.objects, obj)

	// Leave a gap so one past the end of an object never hits the next.
	span := (size + wordSize - 1) / wordSize * wordSize
	m.nextAddr += span + wordSize

	return &Pointer{obj: obj, path: []int64{0}}
}

func (m *memory) free(p *Pointer) error {
	switch {
	case p == nil:
		return nil
	case !p.obj.heap:
		return fmt.Errorf("free of %s which is not heap memory", p.obj)
	case p.obj.freed:
		return fmt.Errorf("double free of %s", p.obj)
	case pathKey(p.path) != "0":
		return fmt.Errorf("free of interior pointer %s", p)
	}
	p.obj.freed = true
	return nil
}

func (m *memory) check(p *Pointer) error {
	if p == nil {
		return fmt.Errorf("null pointer dereference")
	}
	if p.obj.freed {
		return fmt.Errorf("use of %s after free", p.obj)
	}
	return nil
}

func (m *memory) load(p *Pointer) (Value, error) {
	if err := m.check(p); err != nil {
		return Value{}, err
	}
	v, ok := p.obj.cells[pathKey(p.path)]
	if !ok {
		return Value{}, fmt.Errorf("load of uninitialized memory at %s", p)
	}
	return v, nil
}

func (m *memory) store(p *Pointer, v Value) error {
	if err := m.check(p); err != nil {
		return err
	}
	p.obj.cells[pathKey(p.path)] = v
	return nil
}

// addrOf converts a pointer to an integer. Only pointers to top-level
// elements have an address.
func (m *memory) addrOf(p *Pointer) (int64, error) {
	if p == nil {
		return 0, nil
	}
	if len(p.path) != 1 {
		return 0, fmt.Errorf("pointer %s into an aggregate has no address", p)
	}
	return p.obj.base + p.path[0]*wordSize, nil
}

// pointerTo converts an integer back to a pointer into the object whose
// range contains addr.
func (m *memory) pointerTo(addr int64) (*Pointer, error) {
	if addr == 0 {
		return nil, nil
	}
	i, found := slices.BinarySearchFunc(m.objects, addr, func(obj *object, addr int64) int {
		switch {
		case obj.base < addr:
			return -1
		case obj.base > addr:
			return 1
		}
		return 0
	})
	if !found {
		i--
	}
	if i < 0 {
		return nil, fmt.Errorf("address %#x is not mapped", addr)
	}
	obj := m.objects[i]
	off := addr - obj.base
	if off >= obj.size && !(off == 0 && obj.size == 0) {
		return nil, fmt.Errorf("address %#x is outside %s", addr, obj)
	}
	if off%wordSize != 0 {
		return nil, fmt.Errorf("address %#x is not aligned", addr)
	}
	return &Pointer{obj: obj, path: []int64{off / wordSize}}, nil
}

// copy copies size bytes of cells from src to dst.
func (m *memory) copy(dst *Pointer, src *Pointer, size int64) error {
	if size == 0 {
		return nil
	}
	if err := m.check(dst); err != nil {
		return err
	}
	if err := m.check(src); err != nil {
		return err
	}
	if len(dst.path) != 1 || len(src.path) != 1 {
		return fmt.Errorf("copy between aggregates is not supported")
	}
	words := (size + wordSize - 1) / wordSize
	for _, p := range []*Pointer{dst, src} {
		if (p.path[0]+words)*wordSize > p.obj.size {
			return fmt.Errorf("copy of %d bytes overruns %s", size, p.obj)
		}
	}

	srcFirst, dstFirst := src.path[0], dst.path[0]
	copied := make(map[string]Value)
	for key, v := range src.obj.cells {
		head, rest, _ := strings.Cut(key, ".")
		idx, err := strconv.ParseInt(head, 10, 64)
		if err != nil || idx < srcFirst || idx >= srcFirst+words {
			continue
		}
		newKey := strconv.FormatInt(idx-srcFirst+dstFirst, 10)
		if len(rest) > 0 {
			newKey += "." + rest
		}
		copied[newKey] = v
	}
	for key, v := range copied {
		dst.obj.cells[key] = v
	}
	return nil
}

// sizeOf returns the allocation size of t. Every scalar takes a word so
// raw memory stays word addressable.
func sizeOf(t types.Type) int64 {
	switch t := t.(type) {
	case *types.IntType, *types.PointerType:
		return wordSize
	case *types.StructType:
		var size int64
		for _, field := range t.Fields {
			size += sizeOf(field)
		}
		return size
	case *types.ArrayType:
		return int64(t.Len) * sizeOf(t.ElemType)
	case *types.VoidType:
		return 0
	}
	return wordSize
}
