package graph_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/kurtex/graph"
	"github.com/jtarchie/kurtex/loader"
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

// Layout: root.test.js -> lib/a.js -> lib/b.js
func TestAffectedRootsWalksTransitiveImporters(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	bPath := writeFile(t, dir, "lib/b.js", `module.exports = {};`)
	writeFile(t, dir, "lib/a.js", `require("./b");`)
	rootPath := writeFile(t, dir, "root.test.js", `require("./lib/a");`)

	store := loader.NewStore()
	ld := loader.New(store)

	rootSpec, err := loader.PathToSpecifier(rootPath)
	assert.Expect(err).NotTo(HaveOccurred())

	_, err = ld.Load(rootSpec, loader.ContentJavaScript)
	assert.Expect(err).NotTo(HaveOccurred())

	aSpec, err := ld.Resolve("./lib/a", rootSpec)
	assert.Expect(err).NotTo(HaveOccurred())

	_, err = ld.Load(aSpec, loader.ContentJavaScript)
	assert.Expect(err).NotTo(HaveOccurred())

	bSpec, err := ld.Resolve("./b", aSpec)
	assert.Expect(err).NotTo(HaveOccurred())

	_, err = ld.Load(bSpec, loader.ContentJavaScript)
	assert.Expect(err).NotTo(HaveOccurred())

	expectedBSpec, err := loader.PathToSpecifier(bPath)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(bSpec).To(Equal(expectedBSpec))

	g := graph.Build(store, ld, []string{rootSpec})

	assert.Expect(g.IsRoot(rootSpec)).To(BeTrue())
	assert.Expect(g.IsRoot(aSpec)).To(BeFalse())

	affected := g.AffectedRoots([]string{bSpec})
	assert.Expect(affected).To(ConsistOf(rootSpec))

	assert.Expect(g.Imports(aSpec)).To(ConsistOf(bSpec))
	assert.Expect(g.Predecessors(bSpec)).To(ConsistOf(aSpec))
}

func TestAffectedRootsUnrelatedChangeIsEmpty(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dir := t.TempDir()
	rootPath := writeFile(t, dir, "root.test.js", `module.exports = {};`)
	otherPath := writeFile(t, dir, "unrelated.js", `module.exports = {};`)

	store := loader.NewStore()
	ld := loader.New(store)

	rootSpec, err := loader.PathToSpecifier(rootPath)
	assert.Expect(err).NotTo(HaveOccurred())

	_, err = ld.Load(rootSpec, loader.ContentJavaScript)
	assert.Expect(err).NotTo(HaveOccurred())

	otherSpec, err := loader.PathToSpecifier(otherPath)
	assert.Expect(err).NotTo(HaveOccurred())

	g := graph.Build(store, ld, []string{rootSpec})

	affected := g.AffectedRoots([]string{otherSpec})
	assert.Expect(affected).To(BeEmpty())
}
