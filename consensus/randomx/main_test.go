package randomx

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package's tests if any goroutine started during
// them is still running when they finish.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
