// Package graph builds the Module Graph: a directed graph of which
// modules import which, plus its reverse (who imports me), so the
// Watcher can turn "this file changed" into "these root test files need
// re-collecting" without re-walking every file on every change.
package graph

import (
	"github.com/samber/lo"

	"github.com/jtarchie/kurtex/loader"
)

// Graph is an immutable snapshot of a Store's import relationships at
// build time. Rebuild it (Build again) after a File Collector pass picks
// up new or changed imports.
type Graph struct {
	// forward maps a specifier to the specifiers it directly imports.
	forward map[string][]string
	// reverse maps a specifier to the specifiers that directly import it
	// — its predecessors.
	reverse map[string][]string
	roots   map[string]bool
}

// Build resolves every recorded import in store against ld and indexes
// both directions. roots are the run's test file specifiers — Graph
// tracks them so ChangedRoots can tell a root from a helper module.
func Build(store *loader.Store, ld *loader.Loader, roots []string) *Graph {
	g := &Graph{
		forward: map[string][]string{},
		reverse: map[string][]string{},
		roots:   map[string]bool{},
	}

	for _, root := range roots {
		g.roots[root] = true
	}

	for _, rec := range store.All() {
		resolved := lo.FilterMap(rec.Imports, func(imp string, _ int) (string, bool) {
			dep, err := ld.Resolve(imp, rec.Specifier)

			return dep, err == nil
		})

		g.forward[rec.Specifier] = resolved

		for _, dep := range resolved {
			g.reverse[dep] = append(g.reverse[dep], rec.Specifier)
		}
	}

	return g
}

// IsRoot reports whether specifier is one of the run's root test files.
func (g *Graph) IsRoot(specifier string) bool { return g.roots[specifier] }

// Predecessors returns the specifiers that directly import specifier.
func (g *Graph) Predecessors(specifier string) []string { return g.reverse[specifier] }

// Imports returns the specifiers specifier directly imports.
func (g *Graph) Imports(specifier string) []string { return g.forward[specifier] }

// AffectedRoots walks the reverse-adjacency map from every specifier in
// changed, breadth-first, and returns every root reachable that way —
// a changed file's own root (if it is one) plus every root whose import
// chain transitively reaches a changed file. Visits each node at most
// once, so cost is O(reachable predecessors), not O(all files).
func (g *Graph) AffectedRoots(changed []string) []string {
	visited := make(map[string]bool, len(changed))
	affected := map[string]bool{}

	queue := append([]string{}, changed...)

	for len(queue) > 0 {
		specifier := queue[0]
		queue = queue[1:]

		if visited[specifier] {
			continue
		}

		visited[specifier] = true

		if g.roots[specifier] {
			affected[specifier] = true
		}

		queue = append(queue, g.reverse[specifier]...)
	}

	return lo.Keys(affected)
}
