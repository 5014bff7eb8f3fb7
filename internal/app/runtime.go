package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// FIXCO_TEST_MODE=1 keeps the entrypoints from dialing Postgres, Redis and
// Gotenberg, so the binaries can be exercised in CI without backing services.
const testModeEnv = "FIXCO_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether startup side effects should be skipped. The
// environment is read once and cached.
func InTestMode() bool {
	testModeOnce.Do(readTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the environment, for tests that toggle the flag.
func RefreshTestMode() {
	readTestMode()
}
