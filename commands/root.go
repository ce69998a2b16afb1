package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jtarchie/kurtex/collect"
	"github.com/jtarchie/kurtex/collector"
	"github.com/jtarchie/kurtex/config"
	"github.com/jtarchie/kurtex/discover"
	"github.com/jtarchie/kurtex/graph"
	"github.com/jtarchie/kurtex/loader"
	"github.com/jtarchie/kurtex/mode"
	"github.com/jtarchie/kurtex/report"
	"github.com/jtarchie/kurtex/runner"
	"github.com/jtarchie/kurtex/watch"
)

var (
	ErrNoTestFiles = errors.New("no test files found")
	ErrRunFailed   = errors.New("test run failed")
)

// Root is kurtex's one and only command: there are no subcommands, only
// flags, matching a test runner's usual invocation as `kurtex [flags]
// [files...]`.
type Root struct {
	Files []string `arg:"" help:"Test files or glob patterns to run (default: discover from config/root)" optional:""`

	Config  string   `help:"Path to a kurtex.config.{ts,js,json} file (default: searched for from the working directory)"`
	Root    string   `help:"Root directory to discover test files from" type:"existingdir"`
	Include []string `help:"Glob include patterns (comma-separated)" sep:","`
	Exclude []string `help:"Glob exclude patterns (comma-separated)" sep:","`

	Globals  bool          `default:"true" help:"Install test/describe/it/suite and hooks as JS globals"`
	Parallel bool          `help:"Give every test file its own Engine Session, run concurrently"`
	Watch    bool          `help:"Re-collect and re-run affected files on source change"`
	Debounce time.Duration `default:"1500ms" help:"Watch-mode debounce window"`
}

// Run resolves config and the file set, then collects, mode-resolves,
// and runs once — or, in watch mode, keeps doing so as the Watcher
// reports affected roots.
func (r *Root) Run(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.WithGroup("kurtex.run")

	cfg, err := r.resolveConfig(logger)
	if err != nil {
		return err
	}

	paths, err := r.resolveFiles(cfg)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		return fmt.Errorf("%w: %s", ErrNoTestFiles, cfg.Root)
	}

	store := loader.NewStore()
	ld := loader.New(store)
	reporter := report.NewConsoleReporter(os.Stdout)

	summary, results, err := runOnce(ld, logger, cfg, paths, reporter)
	if err != nil {
		return err
	}

	if !cfg.Watch {
		collect.CloseAll(results)

		if !summary.Ok() {
			return ErrRunFailed
		}

		return nil
	}

	return r.watchLoop(ld, logger, cfg, paths, store, reporter, results)
}

// runOnce collects paths, resolves run-wide .only semantics across the
// whole batch, and runs every file, returning the aggregate summary.
func runOnce(
	ld *loader.Loader,
	logger *slog.Logger,
	cfg *config.Config,
	paths []string,
	reporter report.Reporter,
) (report.Summary, []*collect.Result, error) {
	coll := collect.New(ld, logger, collect.Options{Globals: cfg.Globals, Parallel: cfg.Parallel})

	results, err := coll.Run(paths)
	if err != nil {
		return report.Summary{}, nil, fmt.Errorf("could not collect test files: %w", err)
	}

	files := make([]*collector.File, 0, len(results))
	for _, res := range results {
		files = append(files, res.File)
	}

	mode.Resolve(files)

	summary := runner.New(reporter).Run(results)

	return summary, results, nil
}

func (r *Root) resolveConfig(logger *slog.Logger) (*config.Config, error) {
	path := r.Config

	if path == "" {
		if found, err := config.Find("."); err == nil {
			path = found
		}
	}

	var cfg *config.Config

	if path != "" {
		loaded, err := config.Load(path, logger)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	} else {
		root, err := filepath.Abs(".")
		if err != nil {
			return nil, fmt.Errorf("could not resolve working directory: %w", err)
		}

		cfg = &config.Config{Root: root, Globals: true}
	}

	if r.Root != "" {
		cfg.Root = r.Root
	}

	if len(r.Include) > 0 {
		cfg.Include = r.Include
	}

	if len(r.Exclude) > 0 {
		cfg.Exclude = r.Exclude
	}

	// CLI flags always take precedence over the config file for the
	// run-mode toggles.
	cfg.Globals = r.Globals
	cfg.Parallel = r.Parallel
	cfg.Watch = r.Watch

	if r.Debounce > 0 {
		cfg.SetDebounce(r.Debounce)
	}

	return cfg, nil
}

func (r *Root) resolveFiles(cfg *config.Config) ([]string, error) {
	if len(r.Files) > 0 {
		return r.Files, nil
	}

	return discover.Files(cfg.Root, cfg.Include, cfg.Exclude)
}

func (r *Root) watchLoop(
	ld *loader.Loader,
	logger *slog.Logger,
	cfg *config.Config,
	paths []string,
	store *loader.Store,
	reporter report.Reporter,
	results []*collect.Result,
) error {
	rootSpecs := specifiersOf(paths)
	moduleGraph := graph.Build(store, ld, rootSpecs)
	resolver := watch.NewResolver(moduleGraph)

	watcher, err := watch.New(cfg.Debounce.Duration())
	if err != nil {
		return fmt.Errorf("could not start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(cfg.Root); err != nil {
		return fmt.Errorf("could not watch %q: %w", cfg.Root, err)
	}

	collect.CloseAll(results)

	logger.Info("watch.started", "root", cfg.Root, "files", len(paths))

	for event := range watcher.Events() {
		affectedSpecs := resolver.ChangedRoots(event.Paths)

		affected := pathsFromSpecifiers(affectedSpecs)
		if len(affected) == 0 {
			affected = paths
		}

		logger.Info("watch.rerun", "id", event.ID, "files", len(affected))

		_, newResults, err := runOnce(ld, logger, cfg, affected, reporter)
		if err != nil {
			logger.Error("watch.rerun.failed", "id", event.ID, "err", err)

			continue
		}

		collect.CloseAll(newResults)

		moduleGraph = graph.Build(store, ld, rootSpecs)
		resolver = watch.NewResolver(moduleGraph)
	}

	return nil
}

func specifiersOf(paths []string) []string {
	out := make([]string, 0, len(paths))

	for _, path := range paths {
		spec, err := loader.PathToSpecifier(path)
		if err != nil {
			continue
		}

		out = append(out, spec)
	}

	return out
}

func pathsFromSpecifiers(specifiers []string) []string {
	out := make([]string, 0, len(specifiers))

	for _, spec := range specifiers {
		path, err := loader.SpecifierToPath(spec)
		if err != nil {
			continue
		}

		out = append(out, path)
	}

	return out
}
