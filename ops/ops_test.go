package ops_test

import (
	"testing"

	"github.com/dop251/goja"
	. "github.com/onsi/gomega"

	"github.com/jtarchie/kurtex/collector"
	"github.com/jtarchie/kurtex/ops"
)

func TestRegisterTaskAttachesToCurrent(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	vm := goja.New()
	ctx := collector.NewContext()
	o := ops.New(vm, ctx)

	fnVal, err := vm.RunString(`(function() {})`)
	assert.Expect(err).NotTo(HaveOccurred())

	err = o.RegisterTask("adds numbers", fnVal, "")
	assert.Expect(err).NotTo(HaveOccurred())

	node := ctx.FileRoot().Collect()
	assert.Expect(node.Tasks).To(HaveLen(1))
	assert.Expect(node.Tasks[0].Name).To(Equal("adds numbers"))
	assert.Expect(node.Tasks[0].Mode).To(Equal(collector.ModeRun))
}

func TestRegisterTaskOnlyParsesModeWithoutTouchingOnlyMode(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	vm := goja.New()
	ctx := collector.NewContext()
	o := ops.New(vm, ctx)

	fnVal, err := vm.RunString(`(function() {})`)
	assert.Expect(err).NotTo(HaveOccurred())

	err = o.RegisterTask("important", fnVal, "only")
	assert.Expect(err).NotTo(HaveOccurred())

	node := ctx.FileRoot().Collect()
	assert.Expect(node.Tasks[0].Mode).To(Equal(collector.ModeOnly))

	// Registration never flips only_mode itself — that is the File
	// Collector's job, driven off the collected node's mode.
	assert.Expect(ctx.OnlyMode()).To(BeFalse())
}

func TestRegisterTaskTodoAllowsNoCallback(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	vm := goja.New()
	ctx := collector.NewContext()
	o := ops.New(vm, ctx)

	err := o.RegisterTask("later", goja.Undefined(), "todo")
	assert.Expect(err).NotTo(HaveOccurred())

	err = o.RegisterTask("runnable but empty", goja.Undefined(), "")
	assert.Expect(err).To(HaveOccurred())
}

func TestRegisterSuiteAllocatesManager(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	vm := goja.New()
	ctx := collector.NewContext()
	o := ops.New(vm, ctx)

	factoryVal, err := vm.RunString(`(function() {})`)
	assert.Expect(err).NotTo(HaveOccurred())

	err = o.RegisterSuite("a block of tests", factoryVal, "")
	assert.Expect(err).NotTo(HaveOccurred())

	assert.Expect(ctx.ManagerCount()).To(Equal(2))
	assert.Expect(ctx.ManagerAt(1).Identifier().Name).To(Equal("a block of tests"))
}

func TestRegisterHookRequiresFunction(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	vm := goja.New()
	ctx := collector.NewContext()
	o := ops.New(vm, ctx)

	err := o.RegisterHook("beforeEach", vm.ToValue("not a function"))
	assert.Expect(err).To(HaveOccurred())

	fnVal, err := vm.RunString(`(function() {})`)
	assert.Expect(err).NotTo(HaveOccurred())

	err = o.RegisterHook("beforeEach", fnVal)
	assert.Expect(err).NotTo(HaveOccurred())

	node := ctx.FileRoot().Collect()
	assert.Expect(node.Hooks.Get(collector.HookBeforeEach)).To(HaveLen(1))
}

func TestInstallGlobalsVitestStyleAPI(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	vm := goja.New()
	ctx := collector.NewContext()
	o := ops.New(vm, ctx)

	err := ops.InstallGlobals(vm, o)
	assert.Expect(err).NotTo(HaveOccurred())

	_, err = vm.RunString(`
		describe("a suite", function() {
			test("one", function() {});
			test.only("two", function() {});
			it.skip("three", function() {});
			beforeEach(function() {});
		});

		test.each([[1, 2], [3, 4]])("adds %d and %d", function(a, b) {});
	`)
	assert.Expect(err).NotTo(HaveOccurred())

	assert.Expect(ctx.ManagerCount()).To(Equal(2))

	suiteManager := ctx.ManagerAt(1)
	assert.Expect(suiteManager.HasFactory()).To(BeTrue())
}

func TestNativeModuleExportsSameSurface(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	vm := goja.New()
	ctx := collector.NewContext()
	o := ops.New(vm, ctx)

	moduleObj := vm.NewObject()
	exportsObj := vm.NewObject()
	_ = moduleObj.Set("exports", exportsObj)

	ops.NativeModule(o)(vm, moduleObj)

	testFn := exportsObj.Get("test")
	assert.Expect(testFn).NotTo(BeNil())
	assert.Expect(goja.IsUndefined(testFn)).To(BeFalse())

	describeFn := exportsObj.Get("describe")
	assert.Expect(goja.IsUndefined(describeFn)).To(BeFalse())

	hookFn := exportsObj.Get("beforeAll")
	assert.Expect(goja.IsUndefined(hookFn)).To(BeFalse())
}
