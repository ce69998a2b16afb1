package ops

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// NativeModuleName is the specifier test files use to import the
// registration surface when globals are disabled:
// const { test, describe } = require("kurtex").
const NativeModuleName = "kurtex"

// NativeModule returns a require.ModuleLoader that populates
// module.exports with the same test/describe/it/suite/hook family
// InstallGlobals binds as globals, for --globals=false runs.
func NativeModule(o *Ops) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)

		testFn := o.buildTaskFamily()
		_ = exports.Set("test", testFn)
		_ = exports.Set("it", testFn)

		suiteFn := o.buildSuiteFamily()
		_ = exports.Set("describe", suiteFn)
		_ = exports.Set("suite", suiteFn)

		for _, kind := range hookKinds {
			kind := kind

			hook := func(cb goja.Value) error {
				return o.RegisterHook(string(kind), cb)
			}

			_ = exports.Set(string(kind), hook)
		}
	}
}
