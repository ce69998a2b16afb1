package collector

import "errors"

// ErrContextMissing is returned by a registration op when no suite
// manager is current (should not happen in practice — the file-root
// manager is always current immediately after Reset).
var ErrContextMissing = errors.New("no current suite manager")

// Context is the per-session, single-threaded state every registration
// op mutates: an ordered list of suite managers, a pointer to the
// manager whose factory is currently executing, and a run-wide
// only_mode flag. Reset at the start of each file's evaluation.
type Context struct {
	fileRoot *SuiteManager
	managers []*SuiteManager
	current  *SuiteManager
	onlyMode bool
}

// NewContext returns a freshly reset context.
func NewContext() *Context {
	ctx := &Context{}
	ctx.Reset()

	return ctx
}

// Reset drops user suites, returns the file-root manager to its empty
// state, and clears only_mode. Called by the File Collector before
// every file's evaluation.
func (c *Context) Reset() {
	c.fileRoot = NewFileRootManager()
	c.managers = []*SuiteManager{c.fileRoot}
	c.current = c.fileRoot
	c.onlyMode = false
}

// Register appends a new suite manager to the context's list.
// Called by op_register_suite during either the file's top-level
// evaluation or another suite's factory execution — registration only
// allocates the manager and records its factory for later; "current"
// stays with whichever manager's body is textually executing, so
// sibling test()/hook() calls after a nested suite() call still attach
// to the right manager. The File Collector invokes each manager's
// factory — including ones appended here while an earlier factory in
// the same list is still running — in a second pass, in order.
func (c *Context) Register(manager *SuiteManager) {
	c.managers = append(c.managers, manager)
}

// SetCurrent points "the suite whose factory is currently running" at
// manager. Used by the File Collector around each factory invocation —
// never mutated directly by ops.
func (c *Context) SetCurrent(manager *SuiteManager) {
	c.current = manager
}

// Current returns the suite manager ops should mutate.
func (c *Context) Current() (*SuiteManager, error) {
	if c.current == nil {
		return nil, ErrContextMissing
	}

	return c.current, nil
}

// FileRoot returns the implicit file-root manager.
func (c *Context) FileRoot() *SuiteManager { return c.fileRoot }

// AcquireAll returns the file-root manager plus every user suite
// registered so far, in creation order. Takes a snapshot: managers
// registered by a factory invoked after this call (nested describe()
// calls) are not included — the File Collector uses ManagerCount/
// ManagerAt instead, which see the list grow as factories run.
func (c *Context) AcquireAll() []*SuiteManager {
	out := make([]*SuiteManager, len(c.managers))
	copy(out, c.managers)

	return out
}

// ManagerCount returns how many suite managers are registered right now.
// The File Collector re-checks this every loop iteration so a suite()
// call nested inside a factory it is currently running gets its own
// factory invoked later in the same pass.
func (c *Context) ManagerCount() int { return len(c.managers) }

// ManagerAt returns the manager registered at index i (0 is always the
// file-root manager).
func (c *Context) ManagerAt(i int) *SuiteManager { return c.managers[i] }

// OnlyMode reports whether SetOnlyMode(true) has been called since the
// last Reset. The File Collector calls it for each collected node whose
// mode is Only; a task declared Only does not set it.
func (c *Context) OnlyMode() bool { return c.onlyMode }

// SetOnlyMode is called by the File Collector when a just-collected
// node's mode is Only. SetOnlyMode(false) is a no-op: the flag only
// accumulates, and only Reset clears it.
func (c *Context) SetOnlyMode(v bool) {
	if v {
		c.onlyMode = true
	}
}
