package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, src string) string {
		filename := filepath.Join(dir, name)
		if err := os.WriteFile(filename, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		return filename
	}
	good := write("good.ds", "func main() -> I64 { 1 + 2 }")
	other := write("other.ds", "func main() -> Bool { true }")
	bad := write("bad.ds", "func main() -> I64 { nope }")
	worse := write("worse.ds", "func main() -> I64 { false }")

	tests := []struct {
		name   string
		args   []string
		code   int
		output []string
	}{
		{"NoInputFiles", nil, 1, []string{"no input files"}},
		{"OutputWithManyFiles", []string{"-o", filepath.Join(dir, "out.ll"), good, other}, 1, nil},
		{"BadFlag", []string{"-nope", good}, 2, nil},
		{"Run", []string{"-run", good, other}, 0, []string{": 3\n", ": true\n"}},
		{"DumpIR", []string{"-dump-ir", good}, 0, []string{"define i64 @main()"}},
		{"DumpAST", []string{"-dump-ast", good}, 0, []string{"[binary +] : I64"}},
		{"CompileErrors", []string{bad, good, worse}, 1, []string{"unknown identifier", "type mismatch"}},
		{"MissingFile", []string{filepath.Join(dir, "missing.ds")}, 1, []string{"failed to find file"}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := run(context.Background(), test.args, &buf); code != test.code {
				t.Errorf("expected exit status %d, got %d\n%s", test.code, code, buf.String())
			}
			for _, out := range test.output {
				if !strings.Contains(buf.String(), out) {
					t.Errorf("expected %q in output:\n%s", out, buf.String())
				}
			}
		})
	}
}
