// Package collector reifies what a test file registers through the
// registration ops into an in-memory tree of files, suites, and tasks.
package collector

import (
	"fmt"

	"github.com/dop251/goja"
)

// Mode is the run mode a suite or task was declared with, and the mode
// it is resolved to after the mode resolver's rewrite pass.
type Mode string

const (
	ModeRun  Mode = "run"
	ModeSkip Mode = "skip"
	ModeOnly Mode = "only"
	ModeTodo Mode = "todo"
)

// ErrInvalidMode is returned when a registration op receives an
// unrecognized mode string.
var ErrInvalidMode = fmt.Errorf("invalid mode")

// ParseMode converts a JS-facing mode string into a Mode, defaulting to
// ModeRun for the empty string (the omitted-argument case).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRun:
		return ModeRun, nil
	case ModeSkip, ModeOnly, ModeTodo:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidMode)
	}
}

// Status is the outcome of running a node or task.
type Status struct {
	// Custom holds the mode a Skip/Todo/Only status was derived from.
	// Empty when the status is Pass or Fail.
	Custom Mode
	Failed bool
}

// StatusPass is the zero-value status: ran, no error.
var StatusPass = Status{}

// StatusFail marks a node or task that errored.
var StatusFail = Status{Failed: true}

// CustomStatus builds a non-run status carrying the originating mode
// (e.g. Skip, Todo, or a suite-level Only that was never selected).
func CustomStatus(mode Mode) Status {
	return Status{Custom: mode}
}

func (s Status) String() string {
	switch {
	case s.Failed:
		return "fail"
	case s.Custom != "":
		return string(s.Custom)
	default:
		return "pass"
	}
}

// Identifier names a suite: either the implicit file root, or a
// user-declared suite name.
type Identifier struct {
	IsFileRoot bool
	Name       string
}

// FileRootIdentifier is the identifier every CollectorFile's first node
// carries.
var FileRootIdentifier = Identifier{IsFileRoot: true}

func (id Identifier) String() string {
	if id.IsFileRoot {
		return "$$file"
	}

	return id.Name
}

// Callback is a retained reference to a JS function, tied to the
// lifetime of the Engine Session that produced it. Callbacks may not be
// invoked after their owning session is torn down.
type Callback struct {
	fn goja.Callable
}

// NewCallback wraps a goja function value as a retained callback. ok is
// false if value is not callable.
func NewCallback(value goja.Value) (Callback, bool) {
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return Callback{}, false
	}

	return Callback{fn: fn}, true
}

// IsZero reports whether the callback holds no function (e.g. a hook
// slot that was never registered).
func (c Callback) IsZero() bool {
	return c.fn == nil
}

// Invoke calls the retained function with no arguments, without driving
// an event loop. Suitable for synchronous hooks/tasks only; the File
// Collector and Runner call Raw through an Engine Session instead so
// async factories and tests are awaited correctly.
func (c Callback) Invoke() (goja.Value, error) {
	return c.fn(goja.Undefined())
}

// Raw returns the underlying callable, for a caller (the File Collector,
// the Runner) that needs to invoke it through an Engine Session's
// promise-draining Call instead of Invoke.
func (c Callback) Raw() goja.Callable {
	return c.fn
}

// HookKind identifies one of the four lifecycle hook points.
type HookKind string

const (
	HookBeforeAll  HookKind = "beforeAll"
	HookAfterAll   HookKind = "afterAll"
	HookBeforeEach HookKind = "beforeEach"
	HookAfterEach  HookKind = "afterEach"
)

// ParseHookKind converts a JS-facing hook name into a HookKind.
func ParseHookKind(s string) (HookKind, error) {
	switch HookKind(s) {
	case HookBeforeAll, HookAfterAll, HookBeforeEach, HookAfterEach:
		return HookKind(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidMode)
	}
}

// HookTable holds the ordered callbacks registered for each lifecycle
// hook kind. Order within a kind is registration order.
type HookTable struct {
	hooks map[HookKind][]Callback
}

// NewHookTable returns an empty table with all four kinds initialized.
func NewHookTable() *HookTable {
	return &HookTable{
		hooks: map[HookKind][]Callback{
			HookBeforeAll:  nil,
			HookAfterAll:   nil,
			HookBeforeEach: nil,
			HookAfterEach:  nil,
		},
	}
}

// Add appends a callback to the given hook kind's list.
func (t *HookTable) Add(kind HookKind, cb Callback) {
	t.hooks[kind] = append(t.hooks[kind], cb)
}

// Get returns the ordered callbacks for a hook kind.
func (t *HookTable) Get(kind HookKind) []Callback {
	return t.hooks[kind]
}

// Task is a single test unit: a name, a resolved mode, a status, and a
// retained callback. Created during suite-factory execution; invoked at
// most once by the Runner.
type Task struct {
	Name     string
	Mode     Mode
	Status   Status
	Error    error
	Callback Callback
}

// Node is a suite: either the implicit file root or a user-declared
// suite. Frozen by its Suite Manager at collect time; immutable in
// structure thereafter (Status/Error still mutate as the Runner walks
// it).
type Node struct {
	Identifier Identifier
	Mode       Mode
	Tasks      []*Task
	Status     Status
	Error      error
	Hooks      *HookTable
}

// File is one CollectorFile: the per-test-file unit the File Collector
// produces. Created before evaluation, finalized once harvesting
// completes.
type File struct {
	Path      string
	Collected bool
	Error     error
	Nodes     []*Node
}

// NewFile returns an empty, uncollected file rooted at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// RunnableNodeCount returns how many of the file's nodes still have
// mode Run after mode resolution; the Runner skips files with zero.
func (f *File) RunnableNodeCount() int {
	count := 0

	for _, node := range f.Nodes {
		if node.Mode == ModeRun {
			count++
		}
	}

	return count
}
