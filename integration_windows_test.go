//go:build windows

package svcctl_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/axondata/go-svcctl"
)

// TestIntegrationEnumerate lists Win32 services on the local authority.
func TestIntegrationEnumerate(t *testing.T) {
	svcctl.RequireNotShort(t)
	svcctl.RequireSCM(t)

	conn, err := svcctl.Connect(svcctl.SCManagerConnect | svcctl.SCManagerEnumerateService)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	entries, err := conn.EnumerateServices(svcctl.Win32Services, svcctl.AllServices)
	if err != nil {
		t.Fatalf("failed to enumerate: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no services enumerated")
	}

	for _, e := range entries {
		if e.Name == "" {
			t.Errorf("entry with empty name: %+v", e)
		}
		if e.Status.State < svcctl.Stopped || e.Status.State > svcctl.Paused {
			t.Errorf("%s: state %v out of range", e.Name, e.Status.State)
		}
	}
}

// TestIntegrationQueryWellKnown queries a service present on every
// installation.
func TestIntegrationQueryWellKnown(t *testing.T) {
	svcctl.RequireNotShort(t)
	svcctl.RequireSCM(t)

	conn, err := svcctl.Connect(svcctl.SCManagerConnect)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	svc, err := conn.OpenService("EventLog", svcctl.ServiceQueryStatus|svcctl.ServiceQueryConfig)
	if err != nil {
		t.Fatalf("failed to open EventLog: %v", err)
	}
	defer svc.Close()

	status, err := svc.QueryStatus()
	if err != nil {
		t.Fatalf("failed to query status: %v", err)
	}
	if status.ServiceType&svcctl.Win32Services == 0 {
		t.Errorf("ServiceType = %v, want a Win32 type", status.ServiceType)
	}

	config, err := svc.QueryConfig()
	if err != nil {
		t.Fatalf("failed to query config: %v", err)
	}
	if config.BinaryPath == "" {
		t.Error("config has empty binary path")
	}
	if config.DisplayName == "" {
		t.Error("config has empty display name")
	}
}

// TestIntegrationNameRoundTrip resolves a display name and back.
func TestIntegrationNameRoundTrip(t *testing.T) {
	svcctl.RequireNotShort(t)
	svcctl.RequireSCM(t)

	conn, err := svcctl.Connect(svcctl.SCManagerConnect)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	display, err := conn.DisplayNameFromServiceName("EventLog")
	if err != nil {
		t.Fatalf("failed to resolve display name: %v", err)
	}
	if display == "" {
		t.Fatal("empty display name")
	}

	name, err := conn.ServiceNameFromDisplayName(display)
	if err != nil {
		t.Fatalf("failed to resolve key name: %v", err)
	}
	// Key names are case-insensitive on the authority side.
	if !strings.EqualFold(name, "EventLog") {
		t.Errorf("round trip = %q, want EventLog", name)
	}
}

// TestIntegrationOpenMissing verifies the does-not-exist code crosses the
// real wire verbatim.
func TestIntegrationOpenMissing(t *testing.T) {
	svcctl.RequireNotShort(t)
	svcctl.RequireSCM(t)

	conn, err := svcctl.Connect(svcctl.SCManagerConnect)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	_, err = conn.OpenService("svcctl-test-no-such-service", svcctl.ServiceQueryStatus)
	if !errors.Is(err, svcctl.ErrServiceDoesNotExist) {
		t.Errorf("OpenService = %v, want ErrServiceDoesNotExist", err)
	}
}

// TestIntegrationWatchSnapshot exercises a short watch against the real
// endpoint.
func TestIntegrationWatchSnapshot(t *testing.T) {
	svcctl.RequireNotShort(t)
	svcctl.RequireSCM(t)

	conn, err := svcctl.Connect(svcctl.SCManagerConnect)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	svc, err := conn.OpenService("EventLog", svcctl.ServiceQueryStatus)
	if err != nil {
		t.Fatalf("failed to open EventLog: %v", err)
	}
	defer svc.Close()

	events, cleanup, err := svc.Watch(context.Background(), svcctl.WithInterval(100*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to start watch: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Err != nil {
			t.Errorf("initial event error: %v", ev.Err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for initial event")
	}

	if err := cleanup(); err != nil {
		t.Errorf("cleanup failed: %v", err)
	}
}
