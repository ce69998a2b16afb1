package runner_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/kurtex/collect"
	"github.com/jtarchie/kurtex/collector"
	"github.com/jtarchie/kurtex/loader"
	"github.com/jtarchie/kurtex/mode"
	"github.com/jtarchie/kurtex/report"
	"github.com/jtarchie/kurtex/runner"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func collectAndRun(t *testing.T, options collect.Options, paths ...string) report.Summary {
	t.Helper()

	coll := collect.New(loader.New(nil), slog.Default(), options)

	results, err := coll.Run(paths)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { collect.CloseAll(results) })

	files := make([]*collector.File, 0, len(results))
	for _, r := range results {
		files = append(files, r.File)
	}

	mode.Resolve(files)

	return runner.New(report.NullReporter{}).Run(results)
}

func TestRunnerPassesAndFails(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "math.test.js", `
		test("passes", function() {});
		test("fails", function() { throw new Error("boom"); });
		test.skip("skipped", function() {});
		test.todo("someday");
	`)

	summary := collectAndRun(t, collect.Options{Globals: true}, path)

	assert.Expect(summary.Passed).To(Equal(1))
	assert.Expect(summary.Failed).To(Equal(1))
	assert.Expect(summary.Skipped).To(Equal(1))
	assert.Expect(summary.Todo).To(Equal(1))
	assert.Expect(summary.Ok()).To(BeFalse())
}

func TestRunnerHooksRunInOrder(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "hooks.test.js", `
		let log = [];
		globalThis.__log = log;

		beforeAll(function() { log.push("beforeAll"); });
		afterAll(function() { log.push("afterAll"); });
		beforeEach(function() { log.push("beforeEach"); });
		afterEach(function() { log.push("afterEach"); });

		test("one", function() { log.push("one"); });
		test("two", function() {
			log.push("two");
			if (log.join(",") !== "beforeAll,beforeEach,one,afterEach,beforeEach,two") {
				throw new Error("hooks out of order: " + log.join(","));
			}
		});
	`)

	summary := collectAndRun(t, collect.Options{Globals: true}, path)
	assert.Expect(summary.Ok()).To(BeTrue())
	assert.Expect(summary.Passed).To(Equal(2))
}

type spyReporter struct {
	report.NullReporter

	suiteStarts []string
	suiteEnds   []string
}

func (s *spyReporter) SuiteStart(path string, node *collector.Node) {
	s.suiteStarts = append(s.suiteStarts, node.Identifier.Name)
}

func (s *spyReporter) SuiteEnd(path string, node *collector.Node) {
	s.suiteEnds = append(s.suiteEnds, node.Identifier.Name)
}

func TestRunnerSkippedSuiteGetsCustomStatusAndReporterEvents(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "skip.test.js", `
		describe.skip("a skipped block", function() {
			test("never runs", function() {});
		});
	`)

	coll := collect.New(loader.New(nil), slog.Default(), collect.Options{Globals: true})

	results, err := coll.Run([]string{path})
	assert.Expect(err).NotTo(HaveOccurred())

	t.Cleanup(func() { collect.CloseAll(results) })

	files := make([]*collector.File, 0, len(results))
	for _, r := range results {
		files = append(files, r.File)
	}

	mode.Resolve(files)

	reporter := &spyReporter{}
	summary := runner.New(reporter).Run(results)

	assert.Expect(summary.Skipped).To(Equal(1))

	node := files[0].Nodes[0]
	assert.Expect(node.Status).To(Equal(collector.CustomStatus(collector.ModeSkip)))
	assert.Expect(reporter.suiteStarts).To(ContainElement("a skipped block"))
	assert.Expect(reporter.suiteEnds).To(ContainElement("a skipped block"))
}

func TestRunnerBeforeAllFailureAbortsNode(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "abort.test.js", `
		beforeAll(function() { throw new Error("setup failed"); });
		test("never runs", function() {});
	`)

	summary := collectAndRun(t, collect.Options{Globals: true}, path)
	assert.Expect(summary.Ok()).To(BeFalse())
	assert.Expect(summary.Failed).To(Equal(1))
}
