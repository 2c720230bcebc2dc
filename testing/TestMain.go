// Package testing switches the binaries into test mode. Import it for its
// side effect from _test.go files whose package wires real services.
package testing

import "os"

const testModeEnv = "NEXTFACTORY_TEST_MODE"

func init() {
	if os.Getenv(testModeEnv) == "" {
		_ = os.Setenv(testModeEnv, "1")
	}
}
