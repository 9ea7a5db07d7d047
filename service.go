package svcctl

// Service is an open handle to one registered service together with its
// decoded key name. Each operation borrows the raw handle for exactly one
// native call; ownership stays with the Service until Close. Like a
// Connection, a Service is not safe for concurrent use without external
// synchronization.
type Service struct {
	name string
	h    *handle
}

// Name returns the key name the service was opened or created with
func (s *Service) Name() string {
	return s.name
}

// Start asks the authority to start the service, passing the given launch
// arguments to its entry point.
func (s *Service) Start(args ...string) error {
	argv := make([][]uint16, len(args))
	for i, arg := range args {
		enc, err := encodeWide("launch arguments", arg)
		if err != nil {
			return &OpError{Op: "start", Name: s.name, Err: err}
		}
		argv[i] = enc
	}

	var w stubWriter
	w.writeHandle(s.h.raw)
	w.writeUint32(uint32(len(argv)))
	if len(argv) == 0 {
		w.writeUint32(0) // null argument vector
	} else {
		// The vector is a conformant array of string pointers: the
		// referent IDs come first, the string bodies follow in order.
		w.writeUint32(w.newReferent())
		w.writeUint32(uint32(len(argv)))
		for range argv {
			w.writeUint32(w.newReferent())
		}
		for _, arg := range argv {
			w.writeWideString(arg)
		}
	}

	resp, err := s.h.call(opStartService, w.bytes())
	return s.retcodeOnly("start", resp, err)
}

// Control delivers a control code to the service and returns the status
// the service reported right after handling it.
func (s *Service) Control(control ServiceControl) (ServiceStatus, error) {
	var w stubWriter
	w.writeHandle(s.h.raw)
	w.writeUint32(uint32(control))
	resp, err := s.h.call(opControlService, w.bytes())
	return s.statusReply("control", resp, err)
}

// Stop requests the service to stop and returns its reported status. The
// stop completes asynchronously; use WaitFor to observe the Stopped state.
func (s *Service) Stop() (ServiceStatus, error) {
	return s.Control(ControlStop)
}

// QueryStatus returns a fresh status snapshot for the service.
func (s *Service) QueryStatus() (ServiceStatus, error) {
	var w stubWriter
	w.writeHandle(s.h.raw)
	resp, err := s.h.call(opQueryServiceStatus, w.bytes())
	return s.statusReply("status", resp, err)
}

// QueryConfig returns the service's persistent configuration. The reply
// buffer is negotiated with the authority: a zero-size probe learns the
// required size and the call repeats with exactly that size.
func (s *Service) QueryConfig() (ServiceConfig, error) {
	var bufSize uint32
	for {
		var w stubWriter
		w.writeHandle(s.h.raw)
		w.writeUint32(bufSize)

		resp, err := s.h.call(opQueryServiceConfig, w.bytes())
		if err != nil {
			return ServiceConfig{}, &OpError{Op: "config", Name: s.name, Err: err}
		}

		r := newStubReader(resp)
		rc := readConfig(r)
		bytesNeeded := r.uint32()
		code := r.uint32()
		if r.err != nil {
			return ServiceConfig{}, &OpError{Op: "config", Name: s.name, Err: r.err}
		}

		switch Errno(code) {
		case 0:
			cfg, err := rc.decode()
			if err != nil {
				return ServiceConfig{}, &OpError{Op: "config", Name: s.name, Err: err}
			}
			return cfg, nil
		case ErrInsufficientBuffer:
			if bytesNeeded <= bufSize || bytesNeeded > maxNegotiatedBuffer {
				return ServiceConfig{}, &OpError{Op: "config", Name: s.name, Err: Errno(code)}
			}
			bufSize = bytesNeeded
		default:
			return ServiceConfig{}, &OpError{Op: "config", Name: s.name, Err: Errno(code)}
		}
	}
}

// Delete asks the authority to remove the service. The service is marked
// for deletion and disappears once it has stopped and every open handle
// to it is closed; the handle itself stays valid until Close.
func (s *Service) Delete() error {
	var w stubWriter
	w.writeHandle(s.h.raw)
	resp, err := s.h.call(opDeleteService, w.bytes())
	return s.retcodeOnly("delete", resp, err)
}

// Close releases the service handle. Exactly one release is issued; a
// second Close returns ErrClosed.
func (s *Service) Close() error {
	if err := s.h.close(); err != nil {
		return &OpError{Op: "close", Name: s.name, Err: err}
	}
	return nil
}

// retcodeOnly finishes an operation whose response carries only the
// return code.
func (s *Service) retcodeOnly(op string, resp []byte, err error) error {
	if err != nil {
		return &OpError{Op: op, Name: s.name, Err: err}
	}
	r := newStubReader(resp)
	code := r.uint32()
	switch {
	case r.err != nil:
		return &OpError{Op: op, Name: s.name, Err: r.err}
	case code != 0:
		return &OpError{Op: op, Name: s.name, Err: Errno(code)}
	}
	return nil
}

// statusReply finishes an operation whose response is a SERVICE_STATUS
// record followed by the return code. The record is decoded only when the
// call succeeded; a failed call zeroes it.
func (s *Service) statusReply(op string, resp []byte, err error) (ServiceStatus, error) {
	if err != nil {
		return ServiceStatus{}, &OpError{Op: op, Name: s.name, Err: err}
	}
	r := newStubReader(resp)
	rawStatus := r.bytes(statusSize)
	code := r.uint32()
	switch {
	case r.err != nil:
		return ServiceStatus{}, &OpError{Op: op, Name: s.name, Err: r.err}
	case code != 0:
		return ServiceStatus{}, &OpError{Op: op, Name: s.name, Err: Errno(code)}
	}

	status, err := decodeStatus(rawStatus)
	if err != nil {
		return ServiceStatus{}, &OpError{Op: op, Name: s.name, Err: err}
	}
	return status, nil
}
