package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/jtarchie/kurtex/collector"
)

// ConsoleReporter prints a vitest-style running transcript: a line per
// file, an indented line per task, and a colored pass/fail/skip summary
// at the end.
type ConsoleReporter struct {
	out   io.Writer
	depth map[string]int

	pass *color.Color
	fail *color.Color
	skip *color.Color
	dim  *color.Color
}

// NewConsoleReporter returns a ConsoleReporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:   out,
		depth: map[string]int{},
		pass:  color.New(color.FgGreen),
		fail:  color.New(color.FgRed, color.Bold),
		skip:  color.New(color.FgYellow),
		dim:   color.New(color.FgHiBlack),
	}
}

func (c *ConsoleReporter) RunStart(fileCount int) {
	c.dim.Fprintf(c.out, "collecting %d file(s)\n", fileCount)
}

func (c *ConsoleReporter) FileStart(path string) {
	fmt.Fprintln(c.out, path)
}

func (c *ConsoleReporter) FileEnd(path string, file *collector.File) {
	if file.Error != nil {
		c.fail.Fprintf(c.out, "  %s failed to collect: %v\n", path, file.Error)
	}
}

func (c *ConsoleReporter) SuiteStart(_ string, node *collector.Node) {
	if !node.Identifier.IsFileRoot {
		c.dim.Fprintf(c.out, "  %s\n", node.Identifier.Name)
	}
}

func (c *ConsoleReporter) SuiteEnd(_ string, _ *collector.Node) {}

func (c *ConsoleReporter) TaskStart(_ string, _ *collector.Node, _ *collector.Task) {}

func (c *ConsoleReporter) TaskEnd(_ string, _ *collector.Node, task *collector.Task) {
	indent := "    "

	switch {
	case task.Status.Failed:
		c.fail.Fprintf(c.out, "%s✗ %s\n", indent, task.Name)

		if task.Error != nil {
			c.dim.Fprintf(c.out, "%s  %s\n", indent, strings.ReplaceAll(task.Error.Error(), "\n", "\n"+indent+"  "))
		}
	case task.Status.Custom == collector.ModeSkip:
		c.skip.Fprintf(c.out, "%s○ %s (skipped)\n", indent, task.Name)
	case task.Status.Custom == collector.ModeTodo:
		c.skip.Fprintf(c.out, "%s○ %s (todo)\n", indent, task.Name)
	default:
		c.pass.Fprintf(c.out, "%s✓ %s\n", indent, task.Name)
	}
}

func (c *ConsoleReporter) HookError(path string, node *collector.Node, kind collector.HookKind, err error) {
	c.fail.Fprintf(c.out, "  %s %s(%s) failed: %v\n", path, kind, node.Identifier, err)
}

func (c *ConsoleReporter) RunEnd(summary Summary) {
	fmt.Fprintln(c.out)

	if summary.Ok() {
		c.pass.Fprintf(c.out, "%d passed", summary.Passed)
	} else {
		c.fail.Fprintf(c.out, "%d failed", summary.Failed)
	}

	fmt.Fprintf(c.out, ", %d skipped, %d todo, %d file(s) (%d failed to collect) in %s\n",
		summary.Skipped, summary.Todo, summary.Files, summary.FilesFail, summary.Duration)
}

var _ Reporter = (*ConsoleReporter)(nil)
