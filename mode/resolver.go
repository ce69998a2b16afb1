// Package mode implements the Mode Resolver: the pure rewrite pass that
// turns each collected file's declared suite/task modes into the modes
// the Runner actually honors, applying vitest's "only" semantics — if
// anything anywhere in the run declared .only, everything else is
// skipped except what .only selected.
package mode

import "github.com/jtarchie/kurtex/collector"

// Resolve rewrites the Mode (and matching Status) of every node and task
// across files in place. A no-op unless at least one node or task
// anywhere in files declared Only.
func Resolve(files []*collector.File) {
	if !anyOnly(files) {
		return
	}

	for _, file := range files {
		resolveFile(file)
	}
}

// ResolveConcurrent behaves like Resolve but rewrites each file on its
// own goroutine. Safe because files share no mutable state beyond the
// read-only global-only decision computed once up front.
func ResolveConcurrent(files []*collector.File) {
	if !anyOnly(files) {
		return
	}

	done := make(chan struct{}, len(files))

	for _, file := range files {
		go func(file *collector.File) {
			resolveFile(file)
			done <- struct{}{}
		}(file)
	}

	for range files {
		<-done
	}
}

func resolveFile(file *collector.File) {
	for _, node := range file.Nodes {
		resolveNode(node)
	}
}

func resolveNode(node *collector.Node) {
	scopedOnly := hasOnlyTask(node)

	switch node.Mode {
	case collector.ModeRun:
		if !scopedOnly {
			node.Mode = collector.ModeSkip
			node.Status = collector.CustomStatus(collector.ModeSkip)
		}
	case collector.ModeOnly:
		node.Mode = collector.ModeRun
		node.Status = collector.StatusPass
	}

	if !scopedOnly {
		return
	}

	for _, task := range node.Tasks {
		switch task.Mode {
		case collector.ModeRun:
			task.Mode = collector.ModeSkip
			task.Status = collector.CustomStatus(collector.ModeSkip)
		case collector.ModeOnly:
			task.Mode = collector.ModeRun
			task.Status = collector.StatusPass
		}
	}
}

func hasOnlyTask(node *collector.Node) bool {
	for _, task := range node.Tasks {
		if task.Mode == collector.ModeOnly {
			return true
		}
	}

	return false
}

func anyOnly(files []*collector.File) bool {
	for _, file := range files {
		for _, node := range file.Nodes {
			if node.Mode == collector.ModeOnly {
				return true
			}

			if hasOnlyTask(node) {
				return true
			}
		}
	}

	return false
}
