package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/driver"
	"github.com/derekxu16/dishsoap/internal/ir"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("dishc: ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// run executes the compiler with args and returns the exit status.
func run(ctx context.Context, args []string, w io.Writer) int {
	config := common.NewBuildConfig()

	flags := flag.NewFlagSet("dishc", flag.ContinueOnError)
	flags.SetOutput(w)
	flags.Usage = func() {
		fmt.Fprintf(w, "Usage of dishc: [options] file...\n")
		flags.PrintDefaults()
	}

	flags.BoolVar(&config.Verbose, "verbose", false, "Print compilation info")
	flags.BoolVar(&config.DumpAST, "dump-ast", false, "Print the typed syntax tree")
	flags.BoolVar(&config.DumpIR, "dump-ir", false, "Print LLVM IR")
	flags.StringVar(&config.Output, "o", "", "Write LLVM IR to `file`")
	flags.StringVar(&config.Entry, "entry", common.DefaultEntry, "Name of the entry function")
	flags.BoolVar(&config.Run, "run", false, "Run the entry function and print its result")
	flags.BoolVar(&config.Watch, "watch", false, "Recompile files when they change")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	filenames := flags.Args()
	if len(filenames) == 0 {
		fmt.Fprintf(w, "%s: no input files\n", common.BoldRed("error"))
		return 1
	}
	if len(config.Output) > 0 && len(filenames) > 1 {
		log.Print("-o requires a single input file")
		return 1
	}

	if config.Watch {
		err := driver.Watch(ctx, filenames, config, func(filename string, res *driver.Result, err error) {
			report(w, res, err, config)
		})
		if err != nil {
			log.Print(err)
			return 1
		}
		return 0
	}

	results, err := driver.CompileFiles(ctx, filenames, config)
	if err != nil {
		printErrors(w, err)
		return 1
	}
	for _, res := range results {
		if !report(w, res, nil, config) {
			return 1
		}
	}
	return 0
}

// printErrors prints every error of a list on its own line.
func printErrors(w io.Writer, err error) {
	var list *common.ErrorList
	if !errors.As(err, &list) {
		fmt.Fprintln(w, common.FormatError(err))
		return
	}
	for _, e := range list.Errors {
		fmt.Fprintln(w, common.FormatError(e))
	}
}

// report prints the outcome of one compilation and returns false on error.
func report(w io.Writer, res *driver.Result, err error, config *common.BuildConfig) bool {
	if err != nil {
		printErrors(w, err)
		return false
	}

	if config.Verbose {
		t := res.Timings
		log.Printf("%s: parse %s, check %s, build %s, run %s", res.Filename, t.Parse, t.Check, t.Build, t.Run)
	}

	if config.DumpAST {
		fmt.Fprint(w, ir.Print(res.Typed))
	}

	if config.DumpIR || len(config.Output) > 0 {
		if err := driver.Emit(res, config, w); err != nil {
			fmt.Fprintln(w, common.FormatError(err))
			return false
		}
	}

	if res.Value != nil {
		fmt.Fprintf(w, "%s: %s\n", common.BoldGreen(res.Filename), res.FormatValue())
	}
	return true
}
