package semantics

import (
	"golang.org/x/exp/slices"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
)

// Resolver turns class references into concrete record types. A converter
// is built on demand for each class and kept in a table, after the
// converters of every class it depends on.
type Resolver struct {
	classes    map[string]*ir.ClassDecl
	converters map[string]*converter
	colors     map[string]ir.Color
	builds     int
}

// converter instantiates one class declaration.
type converter struct {
	class *ir.ClassDecl
	deps  []string
}

func NewResolver(classes []*ir.ClassDecl) *Resolver {
	r := &Resolver{
		classes:    make(map[string]*ir.ClassDecl),
		converters: make(map[string]*converter),
		colors:     make(map[string]ir.Color),
	}
	for _, class := range classes {
		r.classes[class.Name.Name] = class
	}
	return r
}

// Resolve instantiates the class named by ref with its type arguments.
func (r *Resolver) Resolve(ref *ir.ReferenceType) (*ir.RecordType, error) {
	conv, err := r.converter(ref.Name)
	if err != nil {
		return nil, err
	}
	return conv.convert(r, ref)
}

// ResolveType replaces every Reference in t with the record it names.
func (r *Resolver) ResolveType(t ir.Type) (ir.Type, error) {
	if !ir.ContainsReference(t) {
		return t, nil
	}
	switch t := t.(type) {
	case *ir.ReferenceType:
		return r.Resolve(t)
	case *ir.RecordType:
		return mapRecord(t, r.ResolveType)
	case *ir.FuncType:
		return mapFunc(t, r.ResolveType)
	}
	return t, nil
}

func (r *Resolver) converter(name string) (*converter, error) {
	if conv, ok := r.converters[name]; ok {
		return conv, nil
	}

	class, ok := r.classes[name]
	if !ok {
		return nil, common.NewError(common.UnknownClass, "class %s is not declared", name)
	}

	if r.colors[name] == ir.GrayColor {
		return nil, common.NewErrorAt(class.Pos, common.CyclicClass, "class %s refers to itself", name)
	}

	r.colors[name] = ir.GrayColor
	deps := classDeps(class)
	for _, dep := range deps {
		if _, err := r.converter(dep); err != nil {
			if cerr, ok := err.(*common.Error); ok && !cerr.Pos.IsValid() {
				cerr.Pos = class.Pos
			}
			return nil, err
		}
	}
	r.colors[name] = ir.BlackColor

	conv := &converter{class: class, deps: deps}
	r.converters[name] = conv
	r.builds++
	return conv, nil
}

func (c *converter) convert(r *Resolver, ref *ir.ReferenceType) (*ir.RecordType, error) {
	if len(ref.Args) != len(c.class.TypeParams) {
		return nil, common.NewError(common.ArityMismatch, "class %s expects %d type arguments, got %d",
			c.class.Name.Name, len(c.class.TypeParams), len(ref.Args))
	}

	fields := make(map[string]ir.Type, len(c.class.Fields))
	for name, t := range c.class.Fields {
		res, err := c.substitute(r, t, ref.Args)
		if err != nil {
			return nil, err
		}
		fields[name] = res
	}
	return ir.NewRecordType(fields), nil
}

func (c *converter) substitute(r *Resolver, t ir.Type, args []ir.Type) (ir.Type, error) {
	subst := func(t ir.Type) (ir.Type, error) {
		return c.substitute(r, t, args)
	}

	switch t := t.(type) {
	case *ir.ReferenceType:
		if idx := c.class.TypeParamIndex(t.Name); idx >= 0 {
			if len(t.Args) > 0 {
				return nil, common.NewErrorAt(c.class.Pos, common.ArityMismatch,
					"type parameter %s of class %s takes no type arguments", t.Name, c.class.Name.Name)
			}
			return r.ResolveType(args[idx])
		}
		var refArgs []ir.Type
		for _, arg := range t.Args {
			res, err := subst(arg)
			if err != nil {
				return nil, err
			}
			refArgs = append(refArgs, res)
		}
		return r.Resolve(ir.NewReferenceType(t.Name, refArgs...))
	case *ir.RecordType:
		return mapRecord(t, subst)
	case *ir.FuncType:
		return mapFunc(t, subst)
	}
	return t, nil
}

// classDeps returns the names of the classes referenced by the fields of
// class, sorted and without duplicates.
func classDeps(class *ir.ClassDecl) []string {
	var deps []string
	var visit func(t ir.Type)
	visit = func(t ir.Type) {
		switch t := t.(type) {
		case *ir.ReferenceType:
			if class.TypeParamIndex(t.Name) < 0 {
				deps = append(deps, t.Name)
			}
			for _, arg := range t.Args {
				visit(arg)
			}
		case *ir.RecordType:
			for _, ft := range t.Fields {
				visit(ft)
			}
		case *ir.FuncType:
			for _, param := range t.Params {
				visit(param)
			}
			visit(t.Return)
		}
	}
	for _, t := range class.Fields {
		visit(t)
	}
	slices.Sort(deps)
	return slices.Compact(deps)
}

func mapRecord(t *ir.RecordType, fn func(ir.Type) (ir.Type, error)) (ir.Type, error) {
	fields := make(map[string]ir.Type, len(t.Fields))
	for name, ft := range t.Fields {
		res, err := fn(ft)
		if err != nil {
			return nil, err
		}
		fields[name] = res
	}
	return ir.NewRecordType(fields), nil
}

func mapFunc(t *ir.FuncType, fn func(ir.Type) (ir.Type, error)) (ir.Type, error) {
	var params []ir.Type
	for _, param := range t.Params {
		res, err := fn(param)
		if err != nil {
			return nil, err
		}
		params = append(params, res)
	}
	ret, err := fn(t.Return)
	if err != nil {
		return nil, err
	}
	return ir.NewFuncType(params, ret), nil
}
