package collector

import "errors"

// ErrRegistrationAfterCollect is returned when a task or hook is
// registered on a suite manager that has already been collected.
var ErrRegistrationAfterCollect = errors.New("registration after collect")

// ErrResetNotFileRoot is returned when Reset is called on a manager
// other than the implicit file-root manager.
var ErrResetNotFileRoot = errors.New("reset is only permitted on the file-root manager")

// SuiteManager collects tasks and hook callbacks for a single suite. On
// a single Collect call it freezes its pending contents into a *Node.
// Only the file-root manager may be Reset.
type SuiteManager struct {
	identifier Identifier
	mode       Mode
	factory    Callback // zero for the file-root manager
	isFileRoot bool

	tasks     []*Task
	hooks     *HookTable
	collected bool
}

// NewFileRootManager returns the implicit suite manager every
// CollectorFile owns, with no factory (its contents come from the
// file's top-level evaluation, not a suite() call).
func NewFileRootManager() *SuiteManager {
	return &SuiteManager{
		identifier: FileRootIdentifier,
		mode:       ModeRun,
		isFileRoot: true,
		hooks:      NewHookTable(),
	}
}

// NewSuiteManager returns a manager for a user-declared suite() call.
func NewSuiteManager(identifier Identifier, mode Mode, factory Callback) *SuiteManager {
	return &SuiteManager{
		identifier: identifier,
		mode:       mode,
		factory:    factory,
		hooks:      NewHookTable(),
	}
}

// Identifier returns the suite's identifier.
func (m *SuiteManager) Identifier() Identifier { return m.identifier }

// Mode returns the suite's declared mode.
func (m *SuiteManager) Mode() Mode { return m.mode }

// HasFactory reports whether the manager owns a factory callback to
// invoke (false for the file-root manager).
func (m *SuiteManager) HasFactory() bool { return !m.isFileRoot && !m.factory.IsZero() }

// Factory returns the suite's factory callback.
func (m *SuiteManager) Factory() Callback { return m.factory }

// IsFileRoot reports whether this is the implicit file-root manager.
func (m *SuiteManager) IsFileRoot() bool { return m.isFileRoot }

// RegisterTask appends a task to the pending list.
func (m *SuiteManager) RegisterTask(name string, cb Callback, mode Mode) error {
	if m.collected {
		return ErrRegistrationAfterCollect
	}

	m.tasks = append(m.tasks, &Task{
		Name:     name,
		Mode:     mode,
		Status:   CustomStatus(mode),
		Callback: cb,
	})

	return nil
}

// RegisterHook appends a callback to the pending hook table.
func (m *SuiteManager) RegisterHook(kind HookKind, cb Callback) error {
	if m.collected {
		return ErrRegistrationAfterCollect
	}

	m.hooks.Add(kind, cb)

	return nil
}

// Collect atomically moves the pending lists into a new Node, marks the
// manager collected, and returns the node.
func (m *SuiteManager) Collect() *Node {
	node := &Node{
		Identifier: m.identifier,
		Mode:       m.mode,
		Tasks:      m.tasks,
		Status:     StatusPass,
		Hooks:      m.hooks,
	}

	m.collected = true
	m.tasks = nil

	return node
}

// Collected reports whether Collect has already run.
func (m *SuiteManager) Collected() bool { return m.collected }

// Reset restores an empty pending state. Only legal on the file-root
// manager.
func (m *SuiteManager) Reset() error {
	if !m.isFileRoot {
		return ErrResetNotFileRoot
	}

	m.tasks = nil
	m.hooks = NewHookTable()
	m.collected = false

	return nil
}
