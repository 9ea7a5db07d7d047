// Package svcctl provides a native Go client for the Windows service
// control manager without cgo and without shelling out to sc.exe.
//
// The core functionality centers around the Connection and Service types.
// A Connection is an open handle to the service control manager; Service
// handles are opened or created through it:
//
//	conn, err := svcctl.Connect(svcctl.SCManagerConnect | svcctl.SCManagerEnumerateService)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	svc, err := conn.OpenService("wuauserv", svcctl.ServiceQueryStatus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	status, err := svc.QueryStatus()
//	fmt.Printf("Service state: %v\n", status.State)
//
// Every handle is released exactly once: Close issues a single release
// even when it fails, and a second Close returns ErrClosed. Services
// opened through a Connection stay usable after the Connection is closed;
// the underlying transport shuts down when the last handle over it goes.
//
// Failures reported by the service control manager are returned verbatim
// as Errno values wrapped in an OpError, so callers can branch on
// authority error codes:
//
//	_, err = conn.OpenService("no-such-service", svcctl.ServiceQueryStatus)
//	if errors.Is(err, svcctl.ErrServiceDoesNotExist) {
//	    // not installed
//	}
//
// # Batch for Bulk Operations
//
// The Batch type is provided as a convenience for applications that need
// to query or control multiple services concurrently. It's particularly
// useful for:
//
//   - Fleet health dashboards
//   - Deployment tooling that cycles groups of services
//   - Testing frameworks that manage multiple services
//
// If your application already has its own concurrency framework or only
// touches single services, you may not need the Batch. It's designed to
// be optional - the Connection and Service types provide all core
// functionality.
//
//	batch := svcctl.NewBatch(svcctl.WithConcurrency(5))
//	statuses, err := batch.Query(ctx, conn, "wuauserv", "spooler", "bits")
//
// # Watching Status Changes
//
// The service control manager offers no push notification on this
// surface, so Watch polls a service's status and emits an event on every
// change. WaitFor builds on Watch to block until a service reaches one of
// a set of states:
//
//	events, cleanup, err := svc.Watch(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
//	for ev := range events {
//	    if ev.Err != nil {
//	        log.Printf("watch: %v", ev.Err)
//	        continue
//	    }
//	    log.Printf("state: %v", ev.Status.State)
//	}
//
// # Transports
//
// On Windows the package dials the authority's named pipe and speaks the
// svcctl RPC interface directly. On other platforms Connect returns
// ErrUnsupported unless a Transport is injected with WithTransport; tests
// use the in-memory MockSCM transport, which implements the full wire
// contract including buffer negotiation.
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - Zero external process spawning (no exec of sc.exe)
//   - Direct communication with the service control manager's RPC endpoint
//   - Strict response decoding (unknown enum values are errors, not guesses)
//   - Authority error codes preserved verbatim for errors.Is
//   - Type safety (distinct types for access masks, states, and controls)
//
// The Batch is included because managing Windows hosts usually involves
// coordinating several services, and having a tested, concurrent
// implementation prevents users from reimplementing the same patterns.
// However, it remains optional - all its functionality can be replicated
// using Connection and Service instances directly.
package svcctl
