package semantics

import (
	"errors"
	"testing"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/frontend"
	"github.com/derekxu16/dishsoap/internal/ir"
)

func parseClasses(t *testing.T, src string) []*ir.ClassDecl {
	t.Helper()
	file, err := frontend.ParseFile("classes.ds", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return file.Classes
}

func TestResolve(t *testing.T) {
	classes := parseClasses(t, `
class Box<T> { value: T }
class Pair<A, B> { first: A, second: B }
class Point { x: I64, y: I64 }
class Line { from: Point, to: Point }
class Nested<T> { inner: Box<T>, flag: Bool }
class Swap<A, B> { pair: Pair<B, A> }
`)

	tests := []struct {
		ref      *ir.ReferenceType
		expected string
	}{
		{ir.NewReferenceType("Point"), "{x: I64, y: I64}"},
		{ir.NewReferenceType("Line"), "{from: {x: I64, y: I64}, to: {x: I64, y: I64}}"},
		{ir.NewReferenceType("Box", ir.TBuiltinBool), "{value: Bool}"},
		{ir.NewReferenceType("Box", ir.NewReferenceType("Point")), "{value: {x: I64, y: I64}}"},
		{ir.NewReferenceType("Box", ir.NewReferenceType("Box", ir.TBuiltinInt64)), "{value: {value: I64}}"},
		{ir.NewReferenceType("Pair", ir.TBuiltinInt64, ir.TBuiltinUnit), "{first: I64, second: Unit}"},
		{ir.NewReferenceType("Nested", ir.TBuiltinInt64), "{flag: Bool, inner: {value: I64}}"},
		{ir.NewReferenceType("Swap", ir.TBuiltinInt64, ir.TBuiltinBool), "{pair: {first: Bool, second: I64}}"},
	}

	r := NewResolver(classes)
	for _, test := range tests {
		rec, err := r.Resolve(test.ref)
		if err != nil {
			t.Errorf("%s: %s", test.ref, err)
			continue
		}
		if got := rec.String(); got != test.expected {
			t.Errorf("%s: expected %s, got %s", test.ref, test.expected, got)
		}
		if ir.ContainsReference(rec) {
			t.Errorf("%s: result still has references", test.ref)
		}
	}
}

func TestResolveMemoized(t *testing.T) {
	classes := parseClasses(t, `
class A { b: B, c: C }
class B { c: C }
class C { v: I64 }
`)
	r := NewResolver(classes)
	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(ir.NewReferenceType("A")); err != nil {
			t.Fatal(err)
		}
		if _, err := r.Resolve(ir.NewReferenceType("C")); err != nil {
			t.Fatal(err)
		}
	}
	if r.builds != 3 {
		t.Errorf("expected each class to be built once, got %d builds", r.builds)
	}
	if deps := r.converters["A"].deps; len(deps) != 2 || deps[0] != "B" || deps[1] != "C" {
		t.Errorf("unexpected dependencies of A: %v", deps)
	}
}

func TestResolveEquality(t *testing.T) {
	classes := parseClasses(t, `
class P { x: I64, y: I64 }
class Q { y: I64, x: I64 }
class R { x: I64, y: Bool }
`)
	r := NewResolver(classes)
	resolve := func(name string) *ir.RecordType {
		rec, err := r.Resolve(ir.NewReferenceType(name))
		if err != nil {
			t.Fatal(err)
		}
		return rec
	}
	if !resolve("P").Equals(resolve("Q")) {
		t.Error("expected structurally equal classes to resolve to equal records")
	}
	if resolve("P").Equals(resolve("R")) {
		t.Error("expected records with different field types to differ")
	}
}

func TestResolveType(t *testing.T) {
	r := NewResolver(parseClasses(t, "class Box<T> { value: T }"))

	fun := ir.NewFuncType([]ir.Type{ir.NewReferenceType("Box", ir.TBuiltinInt64)}, ir.TBuiltinBool)
	res, err := r.ResolveType(fun)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.String(); got != "({value: I64}) -> Bool" {
		t.Errorf("unexpected type %s", got)
	}

	if res, _ := r.ResolveType(ir.TBuiltinInt64); res != ir.TBuiltinInt64 {
		t.Error("expected types without references to be returned unchanged")
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ref  *ir.ReferenceType
		kind common.ErrorKind
	}{
		{"Unknown", "class A { v: I64 }", ir.NewReferenceType("B"), common.UnknownClass},
		{"UnknownDependency", "class A { b: B }", ir.NewReferenceType("A"), common.UnknownClass},
		{"UnknownArg", "class Box<T> { v: T }", ir.NewReferenceType("Box", ir.NewReferenceType("Nope")), common.UnknownClass},
		{"SelfCycle", "class A { a: A }", ir.NewReferenceType("A"), common.CyclicClass},
		{"MutualCycle", "class A { b: B } class B { c: C } class C { a: A }", ir.NewReferenceType("A"), common.CyclicClass},
		{"CycleThroughArgs", "class Box<T> { v: T } class A { b: Box<A> }", ir.NewReferenceType("A"), common.CyclicClass},
		{"TooFewArgs", "class Pair<A, B> { a: A, b: B }", ir.NewReferenceType("Pair", ir.TBuiltinInt64), common.ArityMismatch},
		{"TooManyArgs", "class P { x: I64 }", ir.NewReferenceType("P", ir.TBuiltinInt64), common.ArityMismatch},
		{"InnerArity", "class Box<T> { v: T } class A { b: Box }", ir.NewReferenceType("A"), common.ArityMismatch},
		{"ParamWithArgs", "class Box<T> { v: T<I64> }", ir.NewReferenceType("Box", ir.TBuiltinInt64), common.ArityMismatch},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			r := NewResolver(parseClasses(t, test.src))
			_, err := r.Resolve(test.ref)
			if !errors.Is(err, test.kind) {
				t.Errorf("expected %s, got %v", test.kind, err)
			}
		})
	}
}
