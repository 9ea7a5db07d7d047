package svcctl

import (
	"context"
	"errors"
	"time"

	"vawter.tech/stopper"
)

// WatchEvent represents a status change event from watching a service
type WatchEvent struct {
	Status ServiceStatus
	Err    error
}

// WatchCleanupFunc stops a watch and waits for its poll goroutine to exit
type WatchCleanupFunc func() error

// watchConfig holds the tunables of a single watch
type watchConfig struct {
	interval time.Duration
}

// WatchOption configures a Watch
type WatchOption func(*watchConfig)

// WithInterval sets the polling interval between status queries
func WithInterval(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.interval = d
	}
}

// Watch polls the service status and emits an event whenever the decoded
// status changes. The status at the time Watch is called is delivered as
// the first event. The returned cleanup function stops the poll goroutine
// and closes the channel; cancelling ctx does the same. The watch issues
// its queries on s's handle, so close the service only after stopping the
// watch.
//
// The service control manager offers no change notification on this
// surface, so a watch is interval polling, not a push subscription.
func (s *Service) Watch(ctx context.Context, opts ...WatchOption) (<-chan WatchEvent, WatchCleanupFunc, error) {
	cfg := watchConfig{interval: DefaultWatchInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.interval <= 0 {
		cfg.interval = DefaultWatchInterval
	}

	// A watch on a released handle fails fast instead of emitting an
	// error stream.
	first, err := s.QueryStatus()
	if err != nil && errors.Is(err, ErrClosed) {
		return nil, nil, err
	}

	ch := make(chan WatchEvent, 10)

	// Create stopper context for managing goroutine lifecycle
	sctx := stopper.WithContext(ctx)

	sctx.Defer(func() {
		close(ch)
	})

	// Create cleanup function using stopper
	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond) // Graceful stop with 100ms grace period
		return sctx.Wait()
	}

	sctx.Go(func(sctx *stopper.Context) error {
		ticker := time.NewTicker(cfg.interval)
		sctx.Defer(ticker.Stop)

		send := func(ev WatchEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-sctx.Stopping():
				return false
			}
		}

		var last ServiceStatus
		seen := false

		// Deliver the snapshot taken when the watch started.
		if err != nil {
			if !send(WatchEvent{Err: err}) {
				return nil
			}
		} else {
			last, seen = first, true
			if !send(WatchEvent{Status: first}) {
				return nil
			}
		}

		for {
			select {
			case <-sctx.Stopping():
				return nil

			case <-ticker.C:
				status, qerr := s.QueryStatus()
				if qerr != nil {
					if !send(WatchEvent{Err: qerr}) {
						return nil
					}
					if errors.Is(qerr, ErrClosed) {
						// The handle is gone; nothing left to poll.
						return nil
					}
					continue
				}
				if !seen || status != last {
					last, seen = status, true
					if !send(WatchEvent{Status: status}) {
						return nil
					}
				}
			}
		}
	})

	return ch, cleanup, nil
}
