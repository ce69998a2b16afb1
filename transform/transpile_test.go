package transform_test

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/kurtex/transform"
)

func TestTranspileTypeScript(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	code, err := transform.Transpile(strings.TrimSpace(`
		interface Point { x: number; y: number }

		export function add(a: Point, b: Point): Point {
			return { x: a.x + b.x, y: a.y + b.y };
		}
	`), "points.ts")

	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(code).To(ContainSubstring("module.exports"))
	assert.Expect(code).NotTo(ContainSubstring("interface"))
}

func TestTranspileSyntaxError(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	_, err := transform.Transpile("const a: = ;;;", "broken.ts")
	assert.Expect(err).To(HaveOccurred())
}

func TestTranspileESMToCommonJS(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	code, err := transform.Transpile(`export default function greet() { return "hi"; }`, "greet.js")
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(code).To(ContainSubstring("module.exports"))
}
