package svcctl

import (
	"context"
	"sync"
)

// Batch handles operations on multiple services concurrently. It
// provides bulk operations with configurable concurrency over a shared
// Connection. Each worker opens and closes its own service handle, so
// no handle is ever touched from more than one goroutine.
type Batch struct {
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
}

// BatchOption configures a Batch
type BatchOption func(*Batch)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		b.Concurrency = n
	}
}

// NewBatch creates a new Batch with default settings
func NewBatch(opts ...BatchOption) *Batch {
	b := &Batch{
		Concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.Concurrency < 1 {
		b.Concurrency = 1
	}

	return b
}

func (b *Batch) execute(ctx context.Context, conn *Connection, access AccessRights, names []string, op func(*Service) error) error {
	if len(names) == 0 {
		return nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, b.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for _, name := range names {

		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			// Acquire semaphore slot
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			svc, err := conn.OpenService(name, access)
			if err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
				return
			}

			if err := op(svc); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}

			if err := svc.Close(); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(name)
	}

	// Wait for all goroutines to complete
	wg.Wait()

	return merr.Err()
}

// Start starts the specified services
func (b *Batch) Start(ctx context.Context, conn *Connection, names ...string) error {
	return b.execute(ctx, conn, ServiceStart, names, func(s *Service) error {
		return s.Start()
	})
}

// Stop sends the stop control to the specified services
func (b *Batch) Stop(ctx context.Context, conn *Connection, names ...string) error {
	return b.execute(ctx, conn, ServiceStop, names, func(s *Service) error {
		_, err := s.Stop()
		return err
	})
}

// Query retrieves the status of the specified services. The returned
// map holds an entry for every name that could be queried; failures for
// the remaining names are aggregated into the returned error.
func (b *Batch) Query(ctx context.Context, conn *Connection, names ...string) (map[string]ServiceStatus, error) {
	if len(names) == 0 {
		return make(map[string]ServiceStatus), nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, b.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]ServiceStatus)
	merr := &MultiError{}

	for _, name := range names {

		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			// Acquire semaphore slot
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			svc, err := conn.OpenService(name, ServiceQueryStatus)
			if err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
				return
			}

			status, err := svc.QueryStatus()
			if err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
				_ = svc.Close()
				return
			}

			mu.Lock()
			results[name] = status
			mu.Unlock()

			if err := svc.Close(); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(name)
	}

	// Wait for all goroutines to complete
	wg.Wait()

	return results, merr.Err()
}
