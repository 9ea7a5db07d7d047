package svcctl

import "sync/atomic"

// Transport carries one operation of the svcctl interface to the
// authority and returns the response stub. Call blocks until the
// authority responds; the core applies no retries and no timeouts, so
// callers needing bounds wrap operations in their own mechanism.
//
// *dcerpc.Client implements Transport over a named pipe. Tests supply an
// in-memory implementation such as MockSCM.
type Transport interface {
	// Call issues the operation identified by opnum with the given
	// request stub and returns the response stub
	Call(opnum uint16, stub []byte) ([]byte, error)
	// Close shuts the transport down
	Close() error
}

// sharedConn shares one Transport between the manager handle and every
// service handle opened through it, closing the transport when the last
// handle is released. This keeps handle lifetimes independent: a Service
// stays usable after its Connection is closed.
type sharedConn struct {
	t    Transport
	refs atomic.Int32
}

func newSharedConn(t Transport) *sharedConn {
	sc := &sharedConn{t: t}
	sc.refs.Store(1)
	return sc
}

func (s *sharedConn) acquire() {
	s.refs.Add(1)
}

// release drops one reference and closes the transport once none remain.
func (s *sharedConn) release() error {
	if s.refs.Add(-1) == 0 {
		return s.t.Close()
	}
	return nil
}

func (s *sharedConn) call(opnum uint16, stub []byte) ([]byte, error) {
	return s.t.Call(opnum, stub)
}
