package svcctl

// handle owns one authority-issued context handle. It is constructed only
// from a successful open or create reply; no valid zero handle exists. A
// handle is owned by exactly one Connection or Service and is not safe
// for concurrent use: a release racing an in-flight call is undefined, so
// serialization is the owner's responsibility.
type handle struct {
	raw    [handleSize]byte
	conn   *sharedConn
	closed bool
}

func newHandle(raw [handleSize]byte, conn *sharedConn) *handle {
	return &handle{raw: raw, conn: conn}
}

// call issues one operation through the shared transport, refusing a
// handle that was already released.
func (h *handle) call(opnum uint16, stub []byte) ([]byte, error) {
	if h.closed {
		return nil, ErrClosed
	}
	return h.conn.call(opnum, stub)
}

// close releases the handle with the authority and drops its transport
// reference. Exactly one release call is ever issued per handle: the
// handle is marked closed before the call, nothing retries a failed
// release, and a second close returns ErrClosed without reaching the
// authority.
func (h *handle) close() error {
	if h.closed {
		return ErrClosed
	}
	h.closed = true

	var w stubWriter
	w.writeHandle(h.raw)
	resp, err := h.conn.call(opCloseServiceHandle, w.bytes())
	relErr := h.conn.release()
	if err != nil {
		return err
	}

	r := newStubReader(resp)
	r.handle() // the in/out handle comes back zeroed
	code := r.uint32()
	switch {
	case r.err != nil:
		return r.err
	case code != 0:
		return Errno(code)
	}
	return relErr
}
