package ir

import (
	"bytes"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TypeKind identifies the base type.
type TypeKind int

// Type kinds.
const (
	TUnit TypeKind = iota
	TBool
	TInt64
	TRecord
	TFunc
	TReference
)

var types = [...]string{
	TUnit:      "Unit",
	TBool:      "Bool",
	TInt64:     "I64",
	TRecord:    "Record",
	TFunc:      "Func",
	TReference: "Reference",
}

func (id TypeKind) String() string {
	s := ""
	if 0 <= id && id < TypeKind(len(types)) {
		s = types[id]
	} else {
		s = "unknown"
	}
	return s
}

// Built-in types.
var (
	TBuiltinUnit  = Type(NewBasicType(TUnit))
	TBuiltinBool  = Type(NewBasicType(TBool))
	TBuiltinInt64 = Type(NewBasicType(TInt64))
)

// Type interface is implemented by all types and is the main representation of types in the compiler.
type Type interface {
	Kind() TypeKind
	String() string
	// Equals is structural and symmetric.
	Equals(Type) bool
}

type baseType struct {
	kind TypeKind
}

func (t *baseType) Kind() TypeKind {
	return t.kind
}

type BasicType struct {
	baseType
}

func (t *BasicType) String() string {
	return t.kind.String()
}

func (t *BasicType) Equals(other Type) bool {
	if t2, ok := other.(*BasicType); ok {
		return t.kind == t2.kind
	}
	return false
}

// RecordType is a structural type. Two records are equal if they have the same
// field names and pairwise equal field types.
type RecordType struct {
	baseType
	Fields map[string]Type
}

// FieldNames returns the field names in layout order.
func (t *RecordType) FieldNames() []string {
	names := maps.Keys(t.Fields)
	slices.Sort(names)
	return names
}

// FieldIndex returns the layout position of a field, or -1.
func (t *RecordType) FieldIndex(fieldName string) int {
	if _, ok := t.Fields[fieldName]; !ok {
		return -1
	}
	idx, _ := slices.BinarySearch(t.FieldNames(), fieldName)
	return idx
}

func (t *RecordType) String() string {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, name := range t.FieldNames() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(fmt.Sprintf("%s: %s", name, t.Fields[name]))
	}
	buf.WriteString("}")
	return buf.String()
}

func (t *RecordType) Equals(other Type) bool {
	t2, ok := other.(*RecordType)
	if !ok || len(t.Fields) != len(t2.Fields) {
		return false
	}
	for name, ft := range t.Fields {
		ft2, ok := t2.Fields[name]
		if !ok || !ft.Equals(ft2) {
			return false
		}
	}
	return true
}

type FuncType struct {
	baseType
	Params []Type
	Return Type
}

func (t *FuncType) String() string {
	var buf bytes.Buffer
	buf.WriteString("(")
	for i, param := range t.Params {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(param.String())
	}
	buf.WriteString(") -> ")
	buf.WriteString(t.Return.String())
	return buf.String()
}

func (t *FuncType) Equals(other Type) bool {
	t2, ok := other.(*FuncType)
	if !ok || len(t.Params) != len(t2.Params) {
		return false
	}
	for i, param := range t.Params {
		if !param.Equals(t2.Params[i]) {
			return false
		}
	}
	return t.Return.Equals(t2.Return)
}

// ReferenceType names a class or a type parameter. It only exists before
// type checking.
type ReferenceType struct {
	baseType
	Name string
	Args []Type
}

func (t *ReferenceType) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	var buf bytes.Buffer
	buf.WriteString(t.Name)
	buf.WriteString("<")
	for i, arg := range t.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(arg.String())
	}
	buf.WriteString(">")
	return buf.String()
}

func (t *ReferenceType) Equals(other Type) bool {
	t2, ok := other.(*ReferenceType)
	if !ok || t.Name != t2.Name || len(t.Args) != len(t2.Args) {
		return false
	}
	for i, arg := range t.Args {
		if !arg.Equals(t2.Args[i]) {
			return false
		}
	}
	return true
}

func NewBasicType(kind TypeKind) *BasicType {
	t := &BasicType{}
	t.kind = kind
	return t
}

func NewRecordType(fields map[string]Type) *RecordType {
	t := &RecordType{Fields: fields}
	t.kind = TRecord
	return t
}

func NewFuncType(params []Type, ret Type) *FuncType {
	t := &FuncType{Params: params, Return: ret}
	t.kind = TFunc
	return t
}

func NewReferenceType(name string, args ...Type) *ReferenceType {
	t := &ReferenceType{Name: name, Args: args}
	t.kind = TReference
	return t
}

// IsUnitType returns true if t is Unit.
func IsUnitType(t Type) bool {
	return t.Kind() == TUnit
}

// ContainsReference returns true if a Reference appears anywhere in t.
func ContainsReference(t Type) bool {
	switch t := t.(type) {
	case *ReferenceType:
		return true
	case *RecordType:
		for _, ft := range t.Fields {
			if ContainsReference(ft) {
				return true
			}
		}
	case *FuncType:
		for _, param := range t.Params {
			if ContainsReference(param) {
				return true
			}
		}
		return ContainsReference(t.Return)
	}
	return false
}
