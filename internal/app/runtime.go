package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// testModeEnv makes the binaries return before opening connections so
// packages that import them can be tested in isolation.
const testModeEnv = "NEXTFACTORY_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether binaries should skip starting servers, the
// simulator and queue connections. The environment is read once.
func InTestMode() bool {
	if on := testMode.Load(); on != nil {
		return *on
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment and returns the new flag.
func RefreshTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	testMode.Store(&on)
	return on
}
