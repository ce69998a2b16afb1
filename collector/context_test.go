package collector_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/kurtex/collector"
)

func TestContextResetAndCurrent(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	ctx := collector.NewContext()

	current, err := ctx.Current()
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(current).To(Equal(ctx.FileRoot()))
	assert.Expect(ctx.ManagerCount()).To(Equal(1))
	assert.Expect(ctx.OnlyMode()).To(BeFalse())
}

func TestContextRegisterGrowsLiveList(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	ctx := collector.NewContext()

	nested := collector.NewSuiteManager(collector.Identifier{Name: "nested"}, collector.ModeRun, callback(t))
	ctx.Register(nested)

	assert.Expect(ctx.ManagerCount()).To(Equal(2))
	assert.Expect(ctx.ManagerAt(1)).To(Equal(nested))

	// Register does not steal "current" from whatever the collector set it to.
	current, err := ctx.Current()
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(current).To(Equal(ctx.FileRoot()))

	ctx.SetCurrent(nested)
	current, err = ctx.Current()
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(current).To(Equal(nested))
}

func TestContextOnlyModeIsStickyUnion(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	ctx := collector.NewContext()
	ctx.SetOnlyMode(true)
	ctx.SetOnlyMode(false)

	assert.Expect(ctx.OnlyMode()).To(BeTrue())
}

func TestContextAcquireAllIsSnapshot(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	ctx := collector.NewContext()

	snapshot := ctx.AcquireAll()
	assert.Expect(snapshot).To(HaveLen(1))

	ctx.Register(collector.NewSuiteManager(collector.Identifier{Name: "late"}, collector.ModeRun, callback(t)))

	assert.Expect(snapshot).To(HaveLen(1))
	assert.Expect(ctx.ManagerCount()).To(Equal(2))
}

func TestContextMissingCurrent(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	ctx := &collector.Context{}

	_, err := ctx.Current()
	assert.Expect(errors.Is(err, collector.ErrContextMissing)).To(BeTrue())
}
