package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/llir/llvm/asm"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
	"github.com/derekxu16/dishsoap/internal/vm"
)

func runConfig() *common.BuildConfig {
	config := common.NewBuildConfig()
	config.Run = true
	return config
}

func TestPrograms(t *testing.T) {
	filenames, err := filepath.Glob(filepath.Join("testdata", "*", "*.ds"))
	if err != nil {
		t.Fatal(err)
	}
	if len(filenames) == 0 {
		t.Fatal("no test programs")
	}

	for _, filename := range filenames {
		filename := filename
		t.Run(strings.TrimSuffix(filename[len("testdata/"):], ".ds"), func(t *testing.T) {
			src, err := os.ReadFile(filename)
			if err != nil {
				t.Fatal(err)
			}
			exps, err := ParseExpectations(src)
			if err != nil {
				t.Fatal(err)
			}
			if len(exps) == 0 {
				t.Fatal("program has no expectations")
			}

			config := common.NewBuildConfig()
			config.Entry = ""
			for _, exp := range exps {
				if !exp.Error {
					config.Run = true
					config.Entry = common.DefaultEntry
				}
			}

			res, err := Compile(filename, src, config)
			for _, reason := range Verify(exps, res, err) {
				t.Error(reason)
			}
		})
	}
}

func TestCompileSnippets(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		result string
	}{
		{"Not", "func main() -> Bool { !true }", "false"},
		{"DoubleNot", "func main() -> Bool { !!true }", "true"},
		{"Negate", "func main() -> I64 { -4 }", "-4"},
		{"Precedence", "func main() -> I64 { 2 + 2 * 2 }", "6"},
		{"Parens", "func main() -> I64 { (2 + 2) * 2 }", "8"},
		{"LeftAssoc", "func main() -> I64 { 10 - 3 - 2 }", "5"},
		{"If", "func main() -> I64 { if (1 > 2) { 3 } else { 4 } }", "4"},
		{"Comparison", "func main() -> Bool { 3 <= 3 }", "true"},
		{"BoolEquality", "func main() -> Bool { (1 < 2) == true }", "true"},
		{"UnitMain", "func main() { }", "()"},
		{"ForwardCall", "func main() -> I64 { twice(21) } func twice(x: I64) -> I64 { x * 2 }", "42"},
		{"Shadowing", "func main() -> I64 { let x: I64 = 1; let x: I64 = x + 1; x }", "2"},
		{"RecordIdentity", "class P { x: I64 } func main() -> Bool { let p: P = P { x: 1 }; let q: P = p; p == q }", "true"},
		{"RecordDistinct", "class P { x: I64 } func main() -> Bool { P { x: 1 } == P { x: 1 } }", "false"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			res, err := Compile("snippet.ds", []byte(test.src), runConfig())
			if err != nil {
				t.Fatalf("compile: %s", err)
			}
			if got := res.FormatValue(); got != test.result {
				t.Errorf("expected %s, got %s", test.result, got)
			}
		})
	}
}

func TestFieldOrderPermutations(t *testing.T) {
	literals := []string{
		"R { a: true, b: I { c: 123 }, d: 7 }",
		"R { a: true, d: 7, b: I { c: 123 } }",
		"R { b: I { c: 123 }, a: true, d: 7 }",
		"R { b: I { c: 123 }, d: 7, a: true }",
		"R { d: 7, a: true, b: I { c: 123 } }",
		"R { d: 7, b: I { c: 123 }, a: true }",
	}
	for _, class := range []string{"class R { a: Bool, b: I, d: I64 }", "class R { d: I64, b: I, a: Bool }"} {
		for _, lit := range literals {
			src := "class I { c: I64 } " + class + " func main() -> I64 { let x: R = " + lit + "; if (x.a) { x.b.c + x.d } else { 0 } }"
			res, err := Compile("perm.ds", []byte(src), runConfig())
			if err != nil {
				t.Fatalf("%s: %s", lit, err)
			}
			if got := res.FormatValue(); got != "130" {
				t.Errorf("%s: expected 130, got %s", lit, got)
			}
		}
	}
}

func TestEntryValidation(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, err := Compile("entry.ds", []byte("func start() -> I64 { 1 }"), runConfig())
		if !errors.Is(err, common.UnknownIdentifier) {
			t.Errorf("expected unknown identifier, got %v", err)
		}
	})
	t.Run("Params", func(t *testing.T) {
		_, err := Compile("entry.ds", []byte("func main(x: I64) -> I64 { x }"), runConfig())
		if !errors.Is(err, common.ArityMismatch) {
			t.Errorf("expected arity mismatch, got %v", err)
		}
	})
	t.Run("Custom", func(t *testing.T) {
		config := runConfig()
		config.Entry = "start"
		res, err := Compile("entry.ds", []byte("func start() -> I64 { 1 }"), config)
		if err != nil {
			t.Fatal(err)
		}
		if res.Output.Entry != "start" || res.FormatValue() != "1" {
			t.Errorf("unexpected result %s from %s", res.FormatValue(), res.Output.Entry)
		}
	})
	t.Run("None", func(t *testing.T) {
		config := common.NewBuildConfig()
		config.Entry = ""
		res, err := Compile("entry.ds", []byte("func f() -> I64 { 1 }"), config)
		if err != nil {
			t.Fatal(err)
		}
		if res.Value != nil || len(res.Output.Entry) > 0 {
			t.Error("expected no entry")
		}
	})
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"DivisionByZero", "func main() -> I64 { 1 / (1 - 1) }", "division by zero"},
		{"UseAfterFree", "func main() -> I64 { let a: I64 = mem_alloc(8); let u: Unit = mem_store(a, 1); let v: Unit = mem_free(a); mem_load(a) }", "after free"},
		{"DoubleFree", "func main() { let a: I64 = mem_alloc(8); let u: Unit = mem_free(a); mem_free(a) }", "double free"},
		{"Recursion", "func main() -> I64 { main() }", "call depth"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			_, err := Compile("runtime.ds", []byte(test.src), runConfig())
			var rerr *vm.RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected runtime error, got %v", err)
			}
			if !strings.Contains(rerr.Msg, test.msg) {
				t.Errorf("expected %q in %q", test.msg, rerr.Msg)
			}
		})
	}
}

func TestIRRoundTrip(t *testing.T) {
	filenames := []string{"fib.ds", "update_state.ds", "prelude.ds", "unit_field.ds", "early_return.ds"}
	for _, name := range filenames {
		name := name
		t.Run(name, func(t *testing.T) {
			res, err := CompileFile(filepath.Join("testdata", "run", name), runConfig())
			if err != nil {
				t.Fatal(err)
			}
			mod, err := asm.ParseString(name+".ll", res.Output.String())
			if err != nil {
				t.Fatalf("generated IR does not parse: %s", err)
			}
			val, err := vm.Run(mod, res.Output.Entry)
			if err != nil {
				t.Fatal(err)
			}
			if val.I != res.Value.I {
				t.Errorf("expected %s after round trip, got %s", res.Value, val)
			}
		})
	}
}

func writeFile(t *testing.T, dir string, name string, src string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	if err := os.WriteFile(filename, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()
	var filenames []string
	for i, src := range []string{
		"func main() -> I64 { 1 }",
		"func main() -> I64 { 2 }",
		"func main() -> I64 { 3 }",
	} {
		filenames = append(filenames, writeFile(t, dir, string(rune('a'+i))+".ds", src))
	}

	results, err := CompileFiles(context.Background(), filenames, runConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i, res := range results {
		if res.Filename != filenames[i] {
			t.Errorf("result %d is for %s", i, res.Filename)
		}
		if res.Value == nil || res.Value.I != int64(i+1) {
			t.Errorf("result %d: unexpected value %s", i, res.FormatValue())
		}
	}

	bad := writeFile(t, dir, "bad.ds", "func main() -> I64 { nope }")
	_, err = CompileFiles(context.Background(), append(filenames, bad), runConfig())
	if !errors.Is(err, common.UnknownIdentifier) {
		t.Errorf("expected unknown identifier, got %v", err)
	}

	worse := writeFile(t, dir, "worse.ds", "func main() -> I64 {\n\ttrue\n}")
	syntax := writeFile(t, dir, "syntax.ds", "func main() -> I64 { 1 + }")
	_, err = CompileFiles(context.Background(), []string{worse, filenames[0], bad, syntax}, runConfig())
	var list *common.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("expected merged error list, got %v", err)
	}
	var got []string
	for _, e := range list.Errors {
		got = append(got, filepath.Base(e.Pos.Filename)+": "+e.Kind.String())
	}
	expected := "[bad.ds: unknown identifier syntax.ds: syntax error worse.ds: type mismatch]"
	if fmt.Sprint(got) != expected {
		t.Errorf("expected errors %s, got %s", expected, got)
	}

	_, err = CompileFiles(context.Background(), []string{filepath.Join(dir, "missing.txt")}, runConfig())
	if err == nil {
		t.Error("expected error for file without extension")
	}
}

func TestEmit(t *testing.T) {
	res, err := Compile("emit.ds", []byte("func main() -> I64 { 7 }"), common.NewBuildConfig())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Emit(res, common.NewBuildConfig(), &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "define i64 @main()") {
		t.Errorf("missing main in:\n%s", buf.String())
	}
	if !strings.HasPrefix(ir.Print(res.Typed), "[file emit.ds] : Unit\n  [func main -> I64] : () -> I64\n") {
		t.Errorf("unexpected typed tree:\n%s", ir.Print(res.Typed))
	}

	config := common.NewBuildConfig()
	config.Output = filepath.Join(t.TempDir(), "out.ll")
	if err := Emit(res, config, &buf); err != nil {
		t.Fatal(err)
	}
	text, err := os.ReadFile(config.Output)
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != res.Output.String() {
		t.Error("output file differs from module")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	filename := writeFile(t, dir, "watch.ds", "func main() -> I64 { 1 }")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	values := make(chan string, 64)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{filename}, runConfig(), func(name string, res *Result, err error) {
			val := ""
			if err != nil {
				val = err.Error()
			} else {
				val = res.FormatValue()
			}
			select {
			case values <- val:
			default:
			}
		})
	}()

	// A rewrite may be seen half done, so intermediate results are skipped.
	expect := func(want string) {
		for {
			select {
			case got := <-values:
				if got == want {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %s", want)
			}
		}
	}

	expect("1")
	writeFile(t, dir, "watch.ds", "func main() -> I64 { 2 }")
	expect("2")

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
