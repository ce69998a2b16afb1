package ops

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/jtarchie/kurtex/collector"
)

var hookKinds = []collector.HookKind{
	collector.HookBeforeAll, collector.HookAfterAll,
	collector.HookBeforeEach, collector.HookAfterEach,
}

// InstallGlobals binds the JS-facing test/describe surface (and the it/
// suite aliases, lifecycle hooks, and .only/.skip/.todo/.each variants)
// onto vm, all routed through o.
func InstallGlobals(vm *goja.Runtime, o *Ops) error {
	testFn := o.buildTaskFamily()
	if err := vm.Set("test", testFn); err != nil {
		return fmt.Errorf("could not install test: %w", err)
	}

	if err := vm.Set("it", testFn); err != nil {
		return fmt.Errorf("could not install it: %w", err)
	}

	suiteFn := o.buildSuiteFamily()
	if err := vm.Set("describe", suiteFn); err != nil {
		return fmt.Errorf("could not install describe: %w", err)
	}

	if err := vm.Set("suite", suiteFn); err != nil {
		return fmt.Errorf("could not install suite: %w", err)
	}

	for _, kind := range hookKinds {
		kind := kind

		hook := func(cb goja.Value) error {
			return o.RegisterHook(string(kind), cb)
		}

		if err := vm.Set(string(kind), hook); err != nil {
			return fmt.Errorf("could not install %s: %w", kind, err)
		}
	}

	return nil
}

// buildTaskFamily returns the test()/it() callable plus its .only, .skip,
// .todo, and .each properties.
func (o *Ops) buildTaskFamily() *goja.Object {
	obj := o.mustFunctionObject(o.taskFunc(collector.ModeRun))
	o.attachMode(obj, "only", o.taskFunc(collector.ModeOnly))
	o.attachMode(obj, "skip", o.taskFunc(collector.ModeSkip))
	o.attachMode(obj, "todo", o.taskFunc(collector.ModeTodo))
	o.attachEach(obj, collector.ModeRun)

	return obj
}

// buildSuiteFamily returns the describe()/suite() callable plus its
// .only, .skip, .todo, and .each properties.
func (o *Ops) buildSuiteFamily() *goja.Object {
	obj := o.mustFunctionObject(o.suiteFunc(collector.ModeRun))
	o.attachMode(obj, "only", o.suiteFunc(collector.ModeOnly))
	o.attachMode(obj, "skip", o.suiteFunc(collector.ModeSkip))
	o.attachMode(obj, "todo", o.suiteFunc(collector.ModeTodo))

	return obj
}

func (o *Ops) taskFunc(mode collector.Mode) func(string, goja.Value) error {
	return func(name string, cb goja.Value) error {
		return o.RegisterTask(name, cb, string(mode))
	}
}

func (o *Ops) suiteFunc(mode collector.Mode) func(string, goja.Value) error {
	return func(name string, factory goja.Value) error {
		return o.RegisterSuite(name, factory, string(mode))
	}
}

func (o *Ops) mustFunctionObject(fn any) *goja.Object {
	obj, ok := o.vm.ToValue(fn).(*goja.Object)
	if !ok {
		panic("ops: bound function did not produce a goja.Object")
	}

	return obj
}

func (o *Ops) attachMode(obj *goja.Object, prop string, fn any) {
	_ = obj.Set(prop, o.vm.ToValue(fn))
}

// attachEach installs name.each(table)(name, fn), registering one task
// per row of table. Rows that are arrays are spread as positional
// arguments to fn; any other row is passed as a single argument. name in
// the template may reference row values with %-style verbs
// (fmt.Sprintf semantics) or the literal placeholder $index.
func (o *Ops) attachEach(obj *goja.Object, mode collector.Mode) {
	each := func(table goja.Value) goja.Value {
		rows := o.explodeRows(table)

		runner := func(nameTemplate string, cb goja.Value) error {
			fn, ok := goja.AssertFunction(cb)
			if !ok {
				return fmt.Errorf("%w", ErrCallbackNotFunction)
			}

			for i, args := range rows {
				name := formatEachName(nameTemplate, i, args)

				wrapped := o.vm.ToValue(func() (goja.Value, error) {
					return fn(goja.Undefined(), args...)
				})

				if err := o.RegisterTask(name, wrapped, string(mode)); err != nil {
					return err
				}
			}

			return nil
		}

		return o.vm.ToValue(runner)
	}

	o.attachMode(obj, "each", each)
}

// explodeRows reads table (expected to be a JS array) and returns, for
// each element, the goja.Values to pass as positional arguments: an
// array element is spread, anything else becomes a single argument.
func (o *Ops) explodeRows(table goja.Value) [][]goja.Value {
	obj, ok := table.(*goja.Object)
	if !ok {
		return nil
	}

	length := int(obj.Get("length").ToInteger())
	rows := make([][]goja.Value, 0, length)

	for i := 0; i < length; i++ {
		row := obj.Get(strconv.Itoa(i))
		rows = append(rows, rowArgs(row))
	}

	return rows
}

func rowArgs(row goja.Value) []goja.Value {
	obj, ok := row.(*goja.Object)
	if ok && obj.ClassName() == "Array" {
		length := int(obj.Get("length").ToInteger())
		args := make([]goja.Value, length)

		for i := 0; i < length; i++ {
			args[i] = obj.Get(strconv.Itoa(i))
		}

		return args
	}

	return []goja.Value{row}
}

func formatEachName(template string, index int, args []goja.Value) string {
	name := strings.ReplaceAll(template, "$index", strconv.Itoa(index))

	if !strings.Contains(name, "%") {
		return name
	}

	exported := make([]any, len(args))
	for i, arg := range args {
		exported[i] = arg.Export()
	}

	return fmt.Sprintf(name, exported...)
}
