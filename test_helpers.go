package svcctl

import (
	"sync"
	"testing"
)

// scmAvailability caches the result of probing the local service control
// manager so repeated gates do not redial the endpoint.
var (
	scmOnce      sync.Once
	scmAvailable bool
	scmProbeErr  error
)

// RequireNotShort skips the test if running in short mode.
// Use this for integration tests that take longer to run.
func RequireNotShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// RequireSCM skips the test unless the local service control manager
// endpoint is reachable. Use this for integration tests that talk to the
// real authority; on other platforms or in restricted environments the
// probe fails and the test is skipped.
func RequireSCM(t *testing.T) {
	t.Helper()
	scmOnce.Do(func() {
		conn, err := Connect(SCManagerConnect)
		if err != nil {
			scmProbeErr = err
			return
		}
		scmAvailable = true
		_ = conn.Close()
	})
	if !scmAvailable {
		t.Skipf("service control manager not reachable, skipping test: %v", scmProbeErr)
	}
}
