package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/derekxu16/dishsoap/internal/backend"
	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/frontend"
	"github.com/derekxu16/dishsoap/internal/ir"
	"github.com/derekxu16/dishsoap/internal/semantics"
	"github.com/derekxu16/dishsoap/internal/vm"
)

// Phase timings of one compilation.
type Timings struct {
	Parse time.Duration
	Check time.Duration
	Build time.Duration
	Run   time.Duration
}

// Result of compiling one file.
type Result struct {
	Filename string
	Typed    *ir.SourceFile[ir.Typed]
	Output   *backend.Output
	Timings  Timings

	// Value returned by the entry function when the build config asks for a
	// run.
	Value     *vm.Value
	EntryType ir.Type
}

// FormatValue renders the value returned by the entry function according to
// its type.
func (r *Result) FormatValue() string {
	if r.Value == nil {
		return ""
	}
	switch {
	case r.EntryType == nil:
		return r.Value.String()
	case ir.IsUnitType(r.EntryType):
		return "()"
	case r.EntryType.Equals(ir.TBuiltinBool):
		if r.Value.Bool() {
			return "true"
		}
		return "false"
	}
	return r.Value.String()
}

// CompileFile loads filename from disk and compiles it.
func CompileFile(filename string, config *common.BuildConfig) (*Result, error) {
	start := time.Now()
	file, err := frontend.Load(filename)
	if err != nil {
		return nil, err
	}
	parse := time.Since(start)
	res, err := compile(file, config)
	if res != nil {
		res.Timings.Parse = parse
	}
	return res, err
}

// Compile parses src and compiles it.
func Compile(filename string, src []byte, config *common.BuildConfig) (*Result, error) {
	start := time.Now()
	file, err := frontend.ParseFile(filename, src)
	if err != nil {
		return nil, err
	}
	parse := time.Since(start)
	res, err := compile(file, config)
	if res != nil {
		res.Timings.Parse = parse
	}
	return res, err
}

func compile(file *ir.SourceFile[ir.Untyped], config *common.BuildConfig) (*Result, error) {
	res := &Result{Filename: file.Filename}
	prelude := ir.DefaultPrelude()

	start := time.Now()
	typed, err := semantics.Check(file, prelude)
	if err != nil {
		return nil, err
	}
	res.Typed = typed
	res.Timings.Check = time.Since(start)

	for _, decl := range typed.Decls {
		if fun, ok := decl.(*ir.FuncDecl[ir.Typed]); ok && fun.Name.Name == config.Entry {
			res.EntryType = fun.Return
		}
	}

	start = time.Now()
	out, err := backend.BuildModule(typed, prelude, config)
	if err != nil {
		return nil, err
	}
	res.Output = out
	res.Timings.Build = time.Since(start)

	if config.Run {
		if len(out.Entry) == 0 {
			return nil, fmt.Errorf("%s: no entry function to run", file.Filename)
		}
		start = time.Now()
		val, err := vm.Run(out.Module, out.Entry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Filename, err)
		}
		res.Value = &val
		res.Timings.Run = time.Since(start)
	}

	return res, nil
}

// CompileFiles compiles every file concurrently. Results are in the order of
// filenames. Compile errors of all files are merged into one
// common.ErrorList sorted by position. Any other error, such as a missing
// file or a runtime fault, cancels the compilations that have not started
// and is returned as is.
func CompileFiles(ctx context.Context, filenames []string, config *common.BuildConfig) ([]*Result, error) {
	results := make([]*Result, len(filenames))
	errs := make([]error, len(filenames))
	g, gctx := errgroup.WithContext(ctx)

	for i, filename := range filenames {
		i, filename := i, filename

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := CompileFile(filename, config)
			if err != nil && !isCompileError(err) {
				return err
			}
			results[i], errs[i] = res, err
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var list common.ErrorList
	for _, err := range errs {
		if err != nil {
			list.AddGeneric(err)
		}
	}
	list.Sort()
	if err := list.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func isCompileError(err error) bool {
	var list *common.ErrorList
	if errors.As(err, &list) {
		return true
	}
	_, ok := common.KindOf(err)
	return ok
}

// Emit writes the IR of res to config.Output, or to w when no output file
// is set.
func Emit(res *Result, config *common.BuildConfig, w io.Writer) error {
	text := res.Output.String()
	if len(config.Output) == 0 {
		_, err := io.WriteString(w, text)
		return err
	}
	return os.WriteFile(config.Output, []byte(text), 0o644)
}
