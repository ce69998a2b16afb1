// Package ops binds the three registration primitives — register a task,
// register a suite, register a lifetime hook — onto a goja.Runtime, and
// layers the vitest-style test/describe globals (with .only/.skip/.todo
// and .each) on top of them. Every op mutates a *collector.Context
// supplied at install time; the ops package never runs a factory or task
// body itself, that is the File Collector's and the Runner's job.
package ops

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/jtarchie/kurtex/collector"
)

var (
	ErrCallbackNotFunction = errors.New("callback must be a function")
)

// Ops binds registration primitives against one Collector Context.
type Ops struct {
	vm  *goja.Runtime
	ctx *collector.Context
}

// New returns an Ops bound to vm and ctx. InstallGlobals (or
// NativeModule) still needs to be used to expose it to JS code.
func New(vm *goja.Runtime, ctx *collector.Context) *Ops {
	return &Ops{vm: vm, ctx: ctx}
}

// RegisterTask is op_register_task: appends a task to whichever suite
// manager is current.
func (o *Ops) RegisterTask(name string, cb goja.Value, mode string) error {
	manager, err := o.ctx.Current()
	if err != nil {
		return err
	}

	parsedMode, err := collector.ParseMode(mode)
	if err != nil {
		return err
	}

	callback, err := optionalCallback(cb, parsedMode)
	if err != nil {
		return fmt.Errorf("test %q: %w", name, err)
	}

	return manager.RegisterTask(name, callback, parsedMode)
}

// RegisterSuite is op_register_suite: allocates a new suite manager and
// records its factory. The factory is not invoked here — the File
// Collector invokes it in a later pass.
func (o *Ops) RegisterSuite(name string, factory goja.Value, mode string) error {
	parsedMode, err := collector.ParseMode(mode)
	if err != nil {
		return err
	}

	callback, err := optionalCallback(factory, parsedMode)
	if err != nil {
		return fmt.Errorf("suite %q: %w", name, err)
	}

	manager := collector.NewSuiteManager(collector.Identifier{Name: name}, parsedMode, callback)
	o.ctx.Register(manager)

	return nil
}

// RegisterHook is op_register_lifetime_hook: appends a callback to the
// current suite manager's hook table for the given kind.
func (o *Ops) RegisterHook(kind string, cb goja.Value) error {
	manager, err := o.ctx.Current()
	if err != nil {
		return err
	}

	parsedKind, err := collector.ParseHookKind(kind)
	if err != nil {
		return err
	}

	callback, ok := collector.NewCallback(cb)
	if !ok {
		return fmt.Errorf("%s: %w", kind, ErrCallbackNotFunction)
	}

	return manager.RegisterHook(parsedKind, callback)
}

// optionalCallback accepts an undefined/null callback for any mode except
// ModeRun — test.todo("name") and test.skip("name") are legal with no
// body, matching the table-driven test frameworks this mirrors.
func optionalCallback(value goja.Value, mode collector.Mode) (collector.Callback, error) {
	if goja.IsUndefined(value) || goja.IsNull(value) {
		if mode == collector.ModeRun {
			return collector.Callback{}, ErrCallbackNotFunction
		}

		return collector.Callback{}, nil
	}

	callback, ok := collector.NewCallback(value)
	if !ok {
		return collector.Callback{}, ErrCallbackNotFunction
	}

	return callback, nil
}
