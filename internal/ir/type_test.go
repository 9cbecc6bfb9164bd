package ir

import (
	"testing"

	"github.com/derekxu16/dishsoap/internal/token"
)

func TestTypeEquals(t *testing.T) {
	point := NewRecordType(map[string]Type{"x": TBuiltinInt64, "y": TBuiltinInt64})
	samePoint := NewRecordType(map[string]Type{"y": TBuiltinInt64, "x": TBuiltinInt64})
	flagPoint := NewRecordType(map[string]Type{"x": TBuiltinInt64, "y": TBuiltinBool})
	line := NewRecordType(map[string]Type{"a": point, "b": samePoint})

	tests := []struct {
		a, b     Type
		expected bool
	}{
		{TBuiltinUnit, TBuiltinUnit, true},
		{TBuiltinUnit, NewBasicType(TUnit), true},
		{TBuiltinBool, TBuiltinInt64, false},
		{point, samePoint, true},
		{point, flagPoint, false},
		{point, NewRecordType(map[string]Type{"x": TBuiltinInt64}), false},
		{point, NewRecordType(map[string]Type{"x": TBuiltinInt64, "z": TBuiltinInt64}), false},
		{line, NewRecordType(map[string]Type{"a": samePoint, "b": point}), true},
		{NewRecordType(nil), NewRecordType(map[string]Type{}), true},
		{point, TBuiltinInt64, false},
		{NewFuncType([]Type{point}, TBuiltinBool), NewFuncType([]Type{samePoint}, TBuiltinBool), true},
		{NewFuncType([]Type{point}, TBuiltinBool), NewFuncType([]Type{point}, TBuiltinUnit), false},
		{NewFuncType(nil, TBuiltinBool), NewFuncType([]Type{TBuiltinInt64}, TBuiltinBool), false},
		{NewReferenceType("Box", TBuiltinInt64), NewReferenceType("Box", TBuiltinInt64), true},
		{NewReferenceType("Box", TBuiltinInt64), NewReferenceType("Box", TBuiltinBool), false},
		{NewReferenceType("Box"), NewReferenceType("Crate"), false},
	}

	for _, test := range tests {
		if got := test.a.Equals(test.b); got != test.expected {
			t.Errorf("%s == %s: expected %t, got %t", test.a, test.b, test.expected, got)
		}
		if got := test.b.Equals(test.a); got != test.expected {
			t.Errorf("%s == %s: expected %t, got %t", test.b, test.a, test.expected, got)
		}
	}
}

func TestTypeString(t *testing.T) {
	inner := NewRecordType(map[string]Type{"c": TBuiltinInt64})
	tests := []struct {
		t        Type
		expected string
	}{
		{TBuiltinUnit, "Unit"},
		{TBuiltinBool, "Bool"},
		{TBuiltinInt64, "I64"},
		{NewRecordType(nil), "{}"},
		{NewRecordType(map[string]Type{"b": inner, "a": TBuiltinBool}), "{a: Bool, b: {c: I64}}"},
		{NewFuncType(nil, TBuiltinUnit), "() -> Unit"},
		{NewFuncType([]Type{TBuiltinInt64, TBuiltinBool}, inner), "(I64, Bool) -> {c: I64}"},
		{NewReferenceType("T"), "T"},
		{NewReferenceType("Pair", TBuiltinInt64, NewReferenceType("Box", TBuiltinBool)), "Pair<I64, Box<Bool>>"},
	}

	for _, test := range tests {
		if got := test.t.String(); got != test.expected {
			t.Errorf("expected %s, got %s", test.expected, got)
		}
	}
}

func TestRecordLayout(t *testing.T) {
	rec := NewRecordType(map[string]Type{"d": TBuiltinInt64, "b": TBuiltinBool, "a": TBuiltinUnit})

	names := rec.FieldNames()
	for i, expected := range []string{"a", "b", "d"} {
		if names[i] != expected {
			t.Errorf("field %d: expected %s, got %s", i, expected, names[i])
		}
		if idx := rec.FieldIndex(expected); idx != i {
			t.Errorf("%s: expected index %d, got %d", expected, i, idx)
		}
	}
	if idx := rec.FieldIndex("c"); idx != -1 {
		t.Errorf("expected missing field to have index -1, got %d", idx)
	}
}

func TestContainsReference(t *testing.T) {
	ref := NewReferenceType("T")
	tests := []struct {
		t        Type
		expected bool
	}{
		{TBuiltinInt64, false},
		{ref, true},
		{NewRecordType(map[string]Type{"a": TBuiltinBool}), false},
		{NewRecordType(map[string]Type{"a": NewRecordType(map[string]Type{"b": ref})}), true},
		{NewFuncType([]Type{ref}, TBuiltinUnit), true},
		{NewFuncType(nil, ref), true},
		{NewFuncType([]Type{TBuiltinBool}, TBuiltinUnit), false},
	}

	for _, test := range tests {
		if got := ContainsReference(test.t); got != test.expected {
			t.Errorf("%s: expected %t, got %t", test.t, test.expected, got)
		}
	}
}

func TestPrelude(t *testing.T) {
	prelude := DefaultPrelude()

	names := prelude.Names()
	expected := []string{PreludeAlloc, PreludeCopy, PreludeFree, PreludeLoad, PreludeStore}
	if len(names) != len(expected) {
		t.Fatalf("expected %d functions, got %d", len(expected), len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("name %d: expected %s, got %s", i, name, names[i])
		}
	}

	copyType, ok := prelude.Lookup(PreludeCopy)
	if !ok || copyType.String() != "(I64, I64, I64) -> Unit" {
		t.Errorf("unexpected %s signature %v", PreludeCopy, copyType)
	}
	if _, ok := prelude.Lookup("main"); ok {
		t.Error("main should not be in the prelude")
	}

	funcs := map[string]*FuncType{"f": NewFuncType(nil, TBuiltinUnit)}
	custom := NewPrelude(funcs)
	delete(funcs, "f")
	if _, ok := custom.Lookup("f"); !ok {
		t.Error("prelude should not share its table")
	}
}

func TestClassDecl(t *testing.T) {
	pos := func(col int) token.Position {
		return token.Position{Filename: "pair.ds", Line: 1, Column: col}
	}
	class := NewClassDecl(
		pos(1),
		NewIdent(pos(7), "Pair"),
		[]*Ident{NewIdent(pos(12), "A"), NewIdent(pos(15), "B")},
		map[string]Type{"second": NewReferenceType("B"), "first": NewReferenceType("A")},
	)

	if got := class.String(); got != "Pair<A, B> {first: A, second: B}" {
		t.Errorf("unexpected class %s", got)
	}
	if class.TypeParamIndex("B") != 1 || class.TypeParamIndex("C") != -1 {
		t.Error("unexpected type parameter index")
	}
}
