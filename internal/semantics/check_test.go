package semantics

import (
	"errors"
	"testing"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/frontend"
	"github.com/derekxu16/dishsoap/internal/ir"
)

func check(t *testing.T, src string) (*ir.SourceFile[ir.Typed], error) {
	t.Helper()
	file, err := frontend.ParseFile("check.ds", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return Check(file, ir.DefaultPrelude())
}

func findFunc(file *ir.SourceFile[ir.Typed], name string) *ir.FuncDecl[ir.Typed] {
	for _, decl := range file.Decls {
		if fun, ok := decl.(*ir.FuncDecl[ir.Typed]); ok && fun.Name.Name == name {
			return fun
		}
	}
	return nil
}

func TestCheck(t *testing.T) {
	src := `
class Box<T> { value: T }
class Pair<A, B> { first: A, second: Box<B> }

func main() -> I64 {
	let p: Pair<Bool, I64> = Pair<Bool, I64> { first: true, second: Box<I64> { value: twice(21) } };
	if (p.first) { p.second.value } else { fact(3) }
}

func twice(x: I64) -> I64 { x * 2 }

func fact(n: I64) -> I64 {
	if (n <= 1) { 1 } else { n * fact(n - 1) }
}

func abs(n: I64) -> I64 {
	if (n < 0) { return -n; } else { n }
}

func pick(x: Bool) -> I64 {
	if (x) { return 1; } else { return 2; }
}

func nested(a: Bool, b: Bool) -> I64 {
	if (a) { if (b) { return 1; } else { return 2; } } else { 3 }
}

func early(n: I64) -> I64 {
	let m: I64 = abs(n);
	return m;
}

func same(a: Box<I64>, b: Box<I64>) -> Bool {
	a == b != (a.value == b.value)
}

func store(v: I64) {
	mem_store(mem_alloc(8), v)
}

func nothing() { }
`
	file, err := check(t, src)
	if err != nil {
		t.Fatal(err)
	}

	if !ir.IsUnitType(ir.TypeOf(file)) {
		t.Errorf("expected file of type Unit, got %s", ir.TypeOf(file))
	}

	signatures := []struct {
		name     string
		expected string
	}{
		{"main", "() -> I64"},
		{"twice", "(I64) -> I64"},
		{"fact", "(I64) -> I64"},
		{"abs", "(I64) -> I64"},
		{"pick", "(Bool) -> I64"},
		{"nested", "(Bool, Bool) -> I64"},
		{"early", "(I64) -> I64"},
		{"same", "({value: I64}, {value: I64}) -> Bool"},
		{"store", "(I64) -> Unit"},
		{"nothing", "() -> Unit"},
	}
	for _, sig := range signatures {
		fun := findFunc(file, sig.name)
		if fun == nil {
			t.Errorf("%s is missing", sig.name)
			continue
		}
		if got := ir.TypeOf(fun).String(); got != sig.expected {
			t.Errorf("%s: expected %s, got %s", sig.name, sig.expected, got)
		}
	}

	main := findFunc(file, "main")
	let := main.Body.Stmts[0].(*ir.VarDecl[ir.Typed])
	if got := let.Decl.Type.String(); got != "{first: Bool, second: {value: I64}}" {
		t.Errorf("unexpected declared type %s", got)
	}
	if !ir.TypeOf(let.Init).Equals(let.Decl.Type) {
		t.Errorf("initializer type %s differs from declared type", ir.TypeOf(let.Init))
	}
	if ir.ContainsReference(let.Decl.Type) {
		t.Error("declared type still has references")
	}

	ifExpr := main.Body.Final.(*ir.IfExpr[ir.Typed])
	if !ir.TypeOf(ifExpr).Equals(ir.TBuiltinInt64) {
		t.Errorf("expected if of type I64, got %s", ir.TypeOf(ifExpr))
	}
	access := ifExpr.Then.Final.(*ir.FieldAccess[ir.Typed])
	if got := ir.TypeOf(access.X).String(); got != "{value: I64}" {
		t.Errorf("unexpected type of field access operand %s", got)
	}

	abs := findFunc(file, "abs")
	if got := ir.TypeOf(abs.Body.Final); !got.Equals(ir.TBuiltinInt64) {
		t.Errorf("expected diverging if to take the type of the else branch, got %s", got)
	}
	if got := ir.TypeOf(abs.Body.Final.(*ir.IfExpr[ir.Typed]).Then); !ir.IsUnitType(got) {
		t.Errorf("expected diverging branch of type Unit, got %s", got)
	}

	nested := findFunc(file, "nested")
	if got := ir.TypeOf(nested.Body.Final); !got.Equals(ir.TBuiltinInt64) {
		t.Errorf("expected if with a diverging inner if to take the type of the else branch, got %s", got)
	}
}

func TestCheckShadowing(t *testing.T) {
	src := `
func main() -> Bool {
	let x: I64 = 1;
	let x: Bool = x == 1;
	x
}
`
	file, err := check(t, src)
	if err != nil {
		t.Fatal(err)
	}
	main := findFunc(file, "main")
	if !ir.TypeOf(main.Body.Final).Equals(ir.TBuiltinBool) {
		t.Errorf("expected rebound x to be Bool, got %s", ir.TypeOf(main.Body.Final))
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind common.ErrorKind
	}{
		{"UnknownIdentifier", "func main() -> I64 { x }", common.UnknownIdentifier},
		{"UnknownFunction", "func main() -> I64 { g() }", common.UnknownIdentifier},
		{"SelfReference", "func main() -> I64 { let x: I64 = x; x }", common.UnknownIdentifier},
		{"LocalLeak", "func f() -> I64 { let h: I64 = 1; h }\nfunc main() -> I64 { h }", common.UnknownIdentifier},
		{"ParamLeak", "func f(p: I64) -> I64 { p }\nfunc main() -> I64 { p }", common.UnknownIdentifier},
		{"NotAFunction", "func main(x: I64) -> I64 { x() }", common.TypeMismatch},
		{"Arity", "func f(a: I64) -> I64 { a }\nfunc main() -> I64 { f(1, 2) }", common.ArityMismatch},
		{"PreludeArity", "func main() -> I64 { mem_alloc() }", common.ArityMismatch},
		{"ArgumentType", "func f(a: I64) -> I64 { a }\nfunc main() -> I64 { f(true) }", common.TypeMismatch},
		{"ResultType", "func main() -> I64 { true }", common.TypeMismatch},
		{"MissingResult", "func main() -> I64 { let x: I64 = 1; }", common.TypeMismatch},
		{"ReturnType", "func main() -> I64 { return true; }", common.TypeMismatch},
		{"PartialReturn", "func f(x: Bool) -> I64 { if (x) { return 1; } else { } }", common.TypeMismatch},
		{"NestedPartialReturn", "func f(x: Bool) -> I64 { if (x) { if (x) { return 1; } else { } } else { 2 } }", common.TypeMismatch},
		{"UnitResult", "func main() { 1 }", common.TypeMismatch},
		{"VarInit", "func main() -> I64 { let x: Bool = 1; 0 }", common.TypeMismatch},
		{"IfCondition", "func main() -> I64 { if (1) { 1 } else { 2 } }", common.TypeMismatch},
		{"IfBranches", "func main() -> I64 { if (true) { 1 } else { false } }", common.TypeMismatch},
		{"UnitParam", "func f(u: Unit) { }", common.TypeMismatch},
		{"PreludeRedeclaration", "func mem_alloc(n: I64) -> I64 { n }", common.TypeMismatch},
		{"UnknownClass", "func main() -> I64 { let p: Nope = 1; 0 }", common.UnknownClass},
		{"UnknownClassInSignature", "func f(p: Nope) { }", common.UnknownClass},
		{"UnknownClassLiteral", "func main() -> I64 { let x: I64 = Nope {}.x; x }", common.UnknownClass},
		{"CyclicClass", "class A { a: A }\nfunc f(a: A) { }", common.CyclicClass},
		{"MissingTypeArgs", "class Box<T> { v: T }\nfunc main() -> I64 { let b: Box = Box { v: 1 }; 0 }", common.ArityMismatch},
		{"ExtraTypeArgs", "class P { x: I64 }\nfunc main() -> I64 { P<I64> { x: 1 }.x }", common.ArityMismatch},
		{"ExtraField", "class P { x: I64 }\nfunc main() -> I64 { P { x: 1, y: 2 }.x }", common.UnknownField},
		{"MissingField", "class P { x: I64, y: I64 }\nfunc main() -> I64 { P { x: 1 }.x }", common.TypeMismatch},
		{"FieldType", "class P { x: I64 }\nfunc main() -> I64 { P { x: true }.x }", common.TypeMismatch},
		{"GenericFieldType", "class Box<T> { v: T }\nfunc main() -> I64 { Box<I64> { v: false }.v }", common.TypeMismatch},
		{"FieldAccessUnknown", "class P { x: I64 }\nfunc main() -> I64 { P { x: 1 }.y }", common.UnknownField},
		{"FieldAccessNonRecord", "func main(n: I64) -> I64 { n.x }", common.TypeMismatch},
		{"ArithmeticOnBool", "func main() -> Bool { true + false }", common.TypeMismatch},
		{"CompareBools", "func main() -> Bool { true < false }", common.TypeMismatch},
		{"MixedOperands", "func main() -> Bool { 1 == true }", common.TypeMismatch},
		{"EqualUnits", "func main() -> Bool { () == () }", common.TypeMismatch},
		{"NegateBool", "func main() -> Bool { -true }", common.TypeMismatch},
		{"NotInt", "func main() -> I64 { !1 }", common.TypeMismatch},
		{"ComparisonResult", "func main() -> I64 { 1 < 2 }", common.TypeMismatch},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			file, err := check(t, test.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if file != nil {
				t.Error("expected no typed tree on error")
			}
			if !errors.Is(err, test.kind) {
				t.Errorf("expected %s, got %v", test.kind, err)
			}
		})
	}
}

func TestCheckErrorPosition(t *testing.T) {
	_, err := check(t, "func main() -> I64 {\n\tlet x: I64 = 1;\n\ty\n}")
	var cerr *common.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *common.Error, got %v", err)
	}
	if cerr.Pos.Line != 3 || cerr.Pos.Filename != "check.ds" {
		t.Errorf("expected error at check.ds:3, got %s", cerr.Pos)
	}
}
