package collector_test

import (
	"errors"
	"testing"

	"github.com/dop251/goja"
	. "github.com/onsi/gomega"

	"github.com/jtarchie/kurtex/collector"
)

func callback(t *testing.T) collector.Callback {
	t.Helper()

	vm := goja.New()

	fnVal, err := vm.RunString(`(function() {})`)
	if err != nil {
		t.Fatal(err)
	}

	cb, ok := collector.NewCallback(fnVal)
	if !ok {
		t.Fatal("expected callable")
	}

	return cb
}

func TestSuiteManagerFileRoot(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	manager := collector.NewFileRootManager()
	assert.Expect(manager.IsFileRoot()).To(BeTrue())
	assert.Expect(manager.HasFactory()).To(BeFalse())

	err := manager.RegisterTask("does a thing", callback(t), collector.ModeRun)
	assert.Expect(err).NotTo(HaveOccurred())

	node := manager.Collect()
	assert.Expect(node.Tasks).To(HaveLen(1))
	assert.Expect(node.Identifier).To(Equal(collector.FileRootIdentifier))
	assert.Expect(manager.Collected()).To(BeTrue())

	err = manager.RegisterTask("too late", callback(t), collector.ModeRun)
	assert.Expect(errors.Is(err, collector.ErrRegistrationAfterCollect)).To(BeTrue())

	err = manager.Reset()
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(manager.Collected()).To(BeFalse())
}

func TestSuiteManagerUserSuite(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	factory := callback(t)
	manager := collector.NewSuiteManager(collector.Identifier{Name: "a suite"}, collector.ModeOnly, factory)

	assert.Expect(manager.IsFileRoot()).To(BeFalse())
	assert.Expect(manager.HasFactory()).To(BeTrue())
	assert.Expect(manager.Mode()).To(Equal(collector.ModeOnly))

	err := manager.Reset()
	assert.Expect(errors.Is(err, collector.ErrResetNotFileRoot)).To(BeTrue())

	err = manager.RegisterHook(collector.HookBeforeAll, callback(t))
	assert.Expect(err).NotTo(HaveOccurred())

	node := manager.Collect()
	assert.Expect(node.Hooks.Get(collector.HookBeforeAll)).To(HaveLen(1))
	assert.Expect(node.Mode).To(Equal(collector.ModeOnly))
}
