// Package report defines the Reporter boundary the Runner emits events
// through, plus a no-op and a console-colored implementation.
package report

import (
	"time"

	"github.com/jtarchie/kurtex/collector"
)

// Summary aggregates one run's outcome across every collected file.
type Summary struct {
	Files     int
	FilesFail int

	Passed  int
	Failed  int
	Skipped int
	Todo    int

	Duration time.Duration
}

// Ok reports whether the run should be considered successful: no file
// failed to collect, and no task failed.
func (s Summary) Ok() bool {
	return s.FilesFail == 0 && s.Failed == 0
}

// Reporter receives every event the Runner emits while walking a run's
// collected files. The Runner walks files one at a time, so events
// arrive sequentially.
type Reporter interface {
	// RunStart fires once, before any file is run.
	RunStart(fileCount int)
	// FileStart fires before a file's tree is walked.
	FileStart(path string)
	// FileEnd fires once a file's tree (and any collection error) has
	// been fully processed.
	FileEnd(path string, file *collector.File)
	// SuiteStart fires before a node's tasks (and BeforeAll hook) run.
	SuiteStart(path string, node *collector.Node)
	// SuiteEnd fires after a node's tasks and AfterAll hook have run.
	SuiteEnd(path string, node *collector.Node)
	// TaskStart fires before a single task's BeforeEach/body/AfterEach
	// sequence runs.
	TaskStart(path string, node *collector.Node, task *collector.Task)
	// TaskEnd fires after a task's outcome (Status/Error) is final.
	TaskEnd(path string, node *collector.Node, task *collector.Task)
	// HookError fires whenever a BeforeAll or AfterAll hook errors, which
	// escalates its node to Failed independent of any task outcome.
	HookError(path string, node *collector.Node, kind collector.HookKind, err error)
	// RunEnd fires once, after every file has been processed.
	RunEnd(summary Summary)
}

// NullReporter discards every event. The Runner falls back to it when
// given a nil Reporter; tests use it when they only need the Runner's
// return value.
type NullReporter struct{}

func (NullReporter) RunStart(int)                                               {}
func (NullReporter) FileStart(string)                                           {}
func (NullReporter) FileEnd(string, *collector.File)                            {}
func (NullReporter) SuiteStart(string, *collector.Node)                         {}
func (NullReporter) SuiteEnd(string, *collector.Node)                           {}
func (NullReporter) TaskStart(string, *collector.Node, *collector.Task)         {}
func (NullReporter) TaskEnd(string, *collector.Node, *collector.Task)           {}
func (NullReporter) HookError(string, *collector.Node, collector.HookKind, error) {}
func (NullReporter) RunEnd(Summary)                                             {}

var _ Reporter = NullReporter{}
