package driver

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/derekxu16/dishsoap/internal/common"
)

// ReportFunc receives the outcome of every compilation done by Watch.
type ReportFunc func(filename string, res *Result, err error)

// Watch compiles every file once and then again each time it is written,
// until ctx is done. The directories of the files are watched since editors
// often replace a file instead of writing it.
func Watch(ctx context.Context, filenames []string, config *common.BuildConfig, report ReportFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]string)
	dirs := make(map[string]bool)
	for _, filename := range filenames {
		abs, err := filepath.Abs(filename)
		if err != nil {
			return err
		}
		watched[abs] = filename
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}
	}

	for _, filename := range filenames {
		res, err := CompileFile(filename, config)
		report(filename, res, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			filename, ok := watched[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			res, err := CompileFile(filename, config)
			report(filename, res, err)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
