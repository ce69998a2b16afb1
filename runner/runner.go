// Package runner walks each collected, mode-resolved file's tree and
// executes it: BeforeAll, then every task wrapped in BeforeEach/AfterEach,
// then AfterAll, escalating BeforeAll/AfterAll failures to their
// enclosing node and BeforeEach/AfterEach failures to their task; the
// file itself is not marked failed. Emits Reporter events as it
// goes and returns an aggregate report.Summary.
package runner

import (
	"fmt"
	"time"

	"github.com/jtarchie/kurtex/collect"
	"github.com/jtarchie/kurtex/collector"
	"github.com/jtarchie/kurtex/engine"
	"github.com/jtarchie/kurtex/report"
)

// Runner executes collected files against a Reporter.
type Runner struct {
	reporter report.Reporter
}

// New returns a Runner that emits events to reporter.
func New(reporter report.Reporter) *Runner {
	if reporter == nil {
		reporter = report.NullReporter{}
	}

	return &Runner{reporter: reporter}
}

// Run executes every result's file in order and returns the aggregate
// summary. Does not mode-resolve or close sessions — callers run
// mode.Resolve first and collect.CloseAll after.
func (r *Runner) Run(results []*collect.Result) report.Summary {
	start := time.Now()

	summary := report.Summary{Files: len(results)}

	r.reporter.RunStart(len(results))

	for _, res := range results {
		r.runFile(res, &summary)
	}

	summary.Duration = time.Since(start)
	r.reporter.RunEnd(summary)

	return summary
}

func (r *Runner) runFile(res *collect.Result, summary *report.Summary) {
	file := res.File
	path := file.Path

	r.reporter.FileStart(path)
	defer r.reporter.FileEnd(path, file)

	if file.Error != nil {
		summary.FilesFail++

		return
	}

	for _, node := range file.Nodes {
		r.runNode(res.Session, path, node, summary)
	}
}

func (r *Runner) runNode(sess *engine.Session, path string, node *collector.Node, summary *report.Summary) {
	r.reporter.SuiteStart(path, node)
	defer r.reporter.SuiteEnd(path, node)

	if node.Mode != collector.ModeRun {
		node.Status = collector.CustomStatus(node.Mode)

		r.tallySkippedNode(node, summary)

		return
	}

	if err := r.runHooks(sess, node.Hooks.Get(collector.HookBeforeAll)); err != nil {
		node.Status = collector.StatusFail
		node.Error = err
		r.reporter.HookError(path, node, collector.HookBeforeAll, err)
		r.tallyAbortedNode(path, node, summary)

		return
	}

	for _, task := range node.Tasks {
		r.runTask(sess, path, node, task, summary)
	}

	if err := r.runHooks(sess, node.Hooks.Get(collector.HookAfterAll)); err != nil {
		node.Status = collector.StatusFail
		node.Error = err
		r.reporter.HookError(path, node, collector.HookAfterAll, err)
	}
}

func (r *Runner) runTask(sess *engine.Session, path string, node *collector.Node, task *collector.Task, summary *report.Summary) {
	if task.Mode != collector.ModeRun {
		r.tallySkippedTask(task, summary)

		return
	}

	r.reporter.TaskStart(path, node, task)

	if err := r.runHooks(sess, node.Hooks.Get(collector.HookBeforeEach)); err != nil {
		task.Status = collector.StatusFail
		task.Error = fmt.Errorf("beforeEach: %w", err)
		summary.Failed++
		r.reporter.TaskEnd(path, node, task)

		return
	}

	if _, err := sess.Call(task.Callback.Raw()); err != nil {
		task.Status = collector.StatusFail
		task.Error = err
		summary.Failed++
	} else {
		task.Status = collector.StatusPass
		summary.Passed++
	}

	if err := r.runHooks(sess, node.Hooks.Get(collector.HookAfterEach)); err != nil {
		if task.Error == nil {
			task.Status = collector.StatusFail
			summary.Passed--
			summary.Failed++
		}

		task.Error = fmt.Errorf("afterEach: %w", err)
	}

	r.reporter.TaskEnd(path, node, task)
}

func (r *Runner) runHooks(sess *engine.Session, hooks []collector.Callback) error {
	for _, hook := range hooks {
		if hook.IsZero() {
			continue
		}

		if _, err := sess.Call(hook.Raw()); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) tallySkippedNode(node *collector.Node, summary *report.Summary) {
	for _, task := range node.Tasks {
		r.tallySkippedTask(task, summary)
	}
}

func (r *Runner) tallyAbortedNode(path string, node *collector.Node, summary *report.Summary) {
	for _, task := range node.Tasks {
		if task.Mode != collector.ModeRun {
			r.tallySkippedTask(task, summary)

			continue
		}

		task.Status = collector.StatusFail
		task.Error = node.Error
		summary.Failed++

		r.reporter.TaskStart(path, node, task)
		r.reporter.TaskEnd(path, node, task)
	}
}

func (r *Runner) tallySkippedTask(task *collector.Task, summary *report.Summary) {
	switch task.Status.Custom {
	case collector.ModeTodo:
		summary.Todo++
	default:
		summary.Skipped++
	}
}
