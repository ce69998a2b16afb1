// Package collect implements the File Collector: it drives one test
// file's top-level evaluation and every suite factory it declares through
// an Engine Session, producing a fully populated *collector.File.
package collect

import (
	"fmt"
	"log/slog"

	"github.com/jtarchie/kurtex/collector"
	"github.com/jtarchie/kurtex/engine"
	"github.com/jtarchie/kurtex/loader"
	"github.com/jtarchie/kurtex/ops"
)

// Options configures how a file's registration surface is installed and
// how many Engine Sessions back a run.
type Options struct {
	// Globals installs test/describe/it/suite/hooks as JS globals. When
	// false, test files must `require("kurtex")` (or the ESM-lowered
	// equivalent) to reach the same functions.
	Globals bool
	// Parallel gives every file its own fresh Engine Session, run on its
	// own goroutine. When false, one Session is created and reused
	// sequentially across every file handed to Run.
	Parallel bool
}

// Result pairs a collected file with the Engine Session that collected
// it. The Runner must invoke that file's task and hook callbacks through
// this same Session — a Callback's goja.Callable is only valid for the
// lifetime of the Session that produced it — and Close it once the
// Runner is done with the file.
type Result struct {
	File    *collector.File
	Session *engine.Session
}

// Collector owns the module Loader every Engine Session resolves
// specifiers through, and produces one Result per source file.
type Collector struct {
	loader  *loader.Loader
	logger  *slog.Logger
	options Options
}

// New returns a Collector backed by ld. logger is passed to every Engine
// Session it creates.
func New(ld *loader.Loader, logger *slog.Logger, options Options) *Collector {
	return &Collector{loader: ld, logger: logger, options: options}
}

// Run collects every file in paths, in order, and returns one Result per
// path. In parallel mode each file's collection runs on its own
// goroutine with its own Engine Session; in sequential mode one Session
// is created and reused across all of them. The caller must run (or
// skip) every Result and then close its Session exactly once — in
// sequential mode every Result shares the same Session, so Close only
// the first one actually tears it down; Session.Close is idempotent
// enough for that (stops timers, nothing else to release twice).
func (c *Collector) Run(paths []string) ([]*Result, error) {
	if c.options.Parallel {
		return c.runParallel(paths)
	}

	return c.runSequential(paths)
}

func (c *Collector) runSequential(paths []string) ([]*Result, error) {
	sess := engine.New(c.loader, c.logger)

	results := make([]*Result, 0, len(paths))

	for _, path := range paths {
		file, err := c.collectOne(sess, path)
		if err != nil {
			return nil, err
		}

		results = append(results, &Result{File: file, Session: sess})
	}

	return results, nil
}

func (c *Collector) runParallel(paths []string) ([]*Result, error) {
	type outcome struct {
		index int
		res   *Result
		err   error
	}

	outcomes := make(chan outcome, len(paths))

	for i, path := range paths {
		go func(i int, path string) {
			sess := engine.New(c.loader, c.logger)

			file, err := c.collectOne(sess, path)
			outcomes <- outcome{index: i, res: &Result{File: file, Session: sess}, err: err}
		}(i, path)
	}

	results := make([]*Result, len(paths))

	var firstErr error

	for range paths {
		o := <-outcomes
		if o.err != nil && firstErr == nil {
			firstErr = o.err
		}

		results[o.index] = o.res
	}

	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

// CloseAll closes every distinct Session referenced by results, exactly
// once each — safe to call after sequential collection, where every
// Result shares one Session, or after parallel collection, where each
// has its own.
func CloseAll(results []*Result) {
	seen := map[*engine.Session]bool{}

	for _, r := range results {
		if r.Session == nil || seen[r.Session] {
			continue
		}

		seen[r.Session] = true

		r.Session.Close()
	}
}

// collectOne runs the File Collector algorithm against a single file
// using sess: reset the Collector Context, load the file (its top-level
// code registers suites/tasks as a side effect), then invoke every
// registered suite's factory in turn, collecting each into a Node.
func (c *Collector) collectOne(sess *engine.Session, path string) (*collector.File, error) {
	file := collector.NewFile(path)
	ctx := collector.NewContext()

	engine.StatePut(sess, ctx)

	opsHost := ops.New(sess.VM(), ctx)

	if c.options.Globals {
		if err := ops.InstallGlobals(sess.VM(), opsHost); err != nil {
			return nil, fmt.Errorf("could not install globals for %q: %w", path, err)
		}
	} else {
		sess.RegisterNativeModule(ops.NativeModuleName, ops.NativeModule(opsHost))
	}

	specifier, err := loader.PathToSpecifier(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %q: %w", path, err)
	}

	if _, err := sess.Load(specifier, ""); err != nil {
		file.Error = err

		return file, nil
	}

	for i := 0; i < ctx.ManagerCount(); i++ {
		manager := ctx.ManagerAt(i)

		ctx.SetCurrent(manager)

		if manager.HasFactory() {
			if _, err := sess.Call(manager.Factory().Raw()); err != nil && file.Error == nil {
				file.Error = fmt.Errorf("suite %q: %w", manager.Identifier(), err)
			}
		}

		node := manager.Collect()
		file.Nodes = append(file.Nodes, node)

		if node.Mode == collector.ModeOnly {
			ctx.SetOnlyMode(true)
		}
	}

	file.Collected = true

	return file, nil
}
