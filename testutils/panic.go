package testutils

import (
	"fmt"
	"testing"

	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

// AssertPanics calls f and asserts that it panics with a value whose text
// contains expectedMsg.
func AssertPanics(t *testing.T, expectedMsg string, f func()) {
	t.Helper()
	var recovered any

	func() {
		defer func() { recovered = recover() }()
		f()
	}()

	assert.Assert(t, recovered != nil, "expected panic, but didn't")
	assert.Assert(t, is.Contains(fmt.Sprint(recovered), expectedMsg))
}
