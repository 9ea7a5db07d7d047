package svcctl

import "context"

// WaitFor blocks until the service reaches one of the specified states or
// ctx is cancelled, and returns the status that satisfied the wait. If
// states is empty, WaitFor returns on the next watch event, which is the
// current status.
//
// Example:
//
//	// Wait for the service to finish stopping
//	status, err := svc.WaitFor(ctx, svcctl.Stopped)
//
//	// Wait for either outcome of a start
//	status, err := svc.WaitFor(ctx, svcctl.Running, svcctl.Stopped)
func (s *Service) WaitFor(ctx context.Context, states ...ServiceState) (ServiceStatus, error) {
	// If states is empty, wait for the next event
	if len(states) == 0 {
		events, cleanup, err := s.Watch(ctx)
		if err != nil {
			return ServiceStatus{}, err
		}
		defer func() { _ = cleanup() }()

		select {
		case event, ok := <-events:
			if !ok {
				return ServiceStatus{}, ctx.Err()
			}
			if event.Err != nil {
				return ServiceStatus{}, event.Err
			}
			return event.Status, nil
		case <-ctx.Done():
			return ServiceStatus{}, ctx.Err()
		}
	}

	// First check current state
	status, err := s.QueryStatus()
	if err != nil {
		return ServiceStatus{}, err
	}
	for _, target := range states {
		if status.State == target {
			return status, nil
		}
	}

	// Watch for changes
	events, cleanup, err := s.Watch(ctx)
	if err != nil {
		return ServiceStatus{}, err
	}
	defer func() { _ = cleanup() }()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return ServiceStatus{}, ctx.Err()
			}
			if event.Err != nil {
				return ServiceStatus{}, event.Err
			}
			for _, target := range states {
				if event.Status.State == target {
					return event.Status, nil
				}
			}
		case <-ctx.Done():
			return ServiceStatus{}, ctx.Err()
		}
	}
}
