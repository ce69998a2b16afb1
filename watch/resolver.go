package watch

import (
	"github.com/jtarchie/kurtex/graph"
	"github.com/jtarchie/kurtex/loader"
)

// Resolver turns a batch of changed filesystem paths into the root test
// file paths that transitively import them (or that are themselves
// among the changed paths), using a Module Graph snapshot.
type Resolver struct {
	graph *graph.Graph
}

// NewResolver returns a Resolver backed by g.
func NewResolver(g *graph.Graph) *Resolver {
	return &Resolver{graph: g}
}

// ChangedRoots returns every root test file specifier affected by
// paths, deduplicated. Unresolvable paths (outside the run's watched
// module set) are skipped.
func (r *Resolver) ChangedRoots(paths []string) []string {
	specifiers := make([]string, 0, len(paths))

	for _, path := range paths {
		spec, err := loader.PathToSpecifier(path)
		if err != nil {
			continue
		}

		specifiers = append(specifiers, spec)
	}

	return r.graph.AffectedRoots(specifiers)
}
