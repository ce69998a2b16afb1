package commands_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/kurtex/commands"
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

func TestRootRunPassingFile(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "ok.test.js", `test("passes", function() {});`)

	root := &commands.Root{
		Files:   []string{path},
		Root:    dir,
		Globals: true,
	}

	err := root.Run(slog.Default())
	assert.Expect(err).NotTo(HaveOccurred())
}

func TestRootRunFailingFileReturnsErrRunFailed(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "bad.test.js", `test("fails", function() { throw new Error("boom"); });`)

	root := &commands.Root{
		Files:   []string{path},
		Root:    dir,
		Globals: true,
	}

	err := root.Run(slog.Default())
	assert.Expect(err).To(MatchError(commands.ErrRunFailed))
}

func TestRootRunDiscoversFromRoot(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	writeFile(t, dir, "discovered.test.js", `test("passes", function() {});`)

	root := &commands.Root{
		Root:    dir,
		Globals: true,
	}

	err := root.Run(slog.Default())
	assert.Expect(err).NotTo(HaveOccurred())
}

func TestRootRunNoTestFiles(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()

	root := &commands.Root{
		Root:    dir,
		Globals: true,
	}

	err := root.Run(slog.Default())
	assert.Expect(err).To(MatchError(commands.ErrNoTestFiles))
}
