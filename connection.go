package svcctl

import (
	"errors"
	"time"
)

// Connection is an open handle to the service control manager. It is
// stateless beyond the handle: every operation is one fresh authority
// round trip. A Connection is not safe for concurrent use without
// external synchronization; independent Connections may be used from
// independent goroutines freely.
type Connection struct {
	// Machine is the target machine name, empty for the local machine
	Machine string
	// Database is the service database name, empty for the active
	// database (ServicesActiveDatabase)
	Database string
	// DialTimeout bounds the named pipe dial, not the calls made on it
	DialTimeout time.Duration

	transport Transport
	h         *handle
}

// Option configures a Connection before it dials
type Option func(*Connection)

// WithDatabase selects the service database to open. The default is the
// active database.
func WithDatabase(name string) Option {
	return func(c *Connection) {
		c.Database = name
	}
}

// WithDialTimeout sets the timeout for the named pipe dial
func WithDialTimeout(d time.Duration) Option {
	return func(c *Connection) {
		c.DialTimeout = d
	}
}

// WithTransport connects over t instead of dialing the authority's named
// pipe. The Connection takes ownership of t: it is closed when the last
// handle issued over it is released, or before Connect returns an error.
func WithTransport(t Transport) Option {
	return func(c *Connection) {
		c.transport = t
	}
}

// Connect opens the local service control manager with the requested
// access rights.
func Connect(access AccessRights, opts ...Option) (*Connection, error) {
	return connect("", access, opts)
}

// ConnectRemote opens the service control manager on another machine.
// The machine name is required; use Connect for the local machine.
func ConnectRemote(machine string, access AccessRights, opts ...Option) (*Connection, error) {
	if machine == "" {
		return nil, &OpError{Op: "connect", Err: errors.New("empty machine name")}
	}
	return connect(machine, access, opts)
}

func connect(machine string, access AccessRights, opts []Option) (*Connection, error) {
	c := &Connection{
		Machine:     machine,
		DialTimeout: DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	machineW, err := encodeWideOptional("machine name", c.Machine)
	var databaseW []uint16
	if err == nil {
		databaseW, err = encodeWideOptional("database name", c.Database)
	}
	if err != nil {
		// Connect owns an injected transport even when it never dials.
		if c.transport != nil {
			_ = c.transport.Close()
		}
		return nil, &OpError{Op: "connect", Name: c.Machine, Err: err}
	}

	t := c.transport
	if t == nil {
		t, err = dialSCM(c.Machine, c.DialTimeout)
		if err != nil {
			return nil, &OpError{Op: "connect", Name: c.Machine, Err: err}
		}
	}

	var w stubWriter
	w.writeUniqueWideString(machineW)
	w.writeUniqueWideString(databaseW)
	w.writeUint32(uint32(access))

	resp, err := t.Call(opOpenSCManager, w.bytes())
	if err != nil {
		_ = t.Close()
		return nil, &OpError{Op: "connect", Name: c.Machine, Err: err}
	}

	r := newStubReader(resp)
	raw := r.handle()
	code := r.uint32()
	switch {
	case r.err != nil:
		err = r.err
	case code != 0:
		err = Errno(code)
	}
	if err != nil {
		_ = t.Close()
		return nil, &OpError{Op: "connect", Name: c.Machine, Err: err}
	}

	c.h = newHandle(raw, newSharedConn(t))
	return c, nil
}

// CreateService registers a new service from info and returns an open
// handle to it with the requested access rights. The load-ordering-group
// and tag-id creation parameters are not used. info's password is encoded
// for this single call and not retained.
func (c *Connection) CreateService(info ServiceInfo, access AccessRights) (*Service, error) {
	raw, err := info.raw()
	if err != nil {
		return nil, &OpError{Op: "create", Name: info.Name, Err: err}
	}

	depBytes := wideToBytes(raw.deps)
	pwBytes := wideToBytes(raw.password)

	var w stubWriter
	w.writeHandle(c.h.raw)
	w.writeWideString(raw.name)
	w.writeUniqueWideString(raw.displayName)
	w.writeUint32(uint32(access))
	w.writeUint32(uint32(info.ServiceType))
	w.writeUint32(uint32(info.StartType))
	w.writeUint32(uint32(info.ErrorControl))
	w.writeWideString(raw.binaryPath)
	w.writeUniqueWideString(nil) // load order group: not used
	w.writeUniqueUint32(nil)     // tag id: not used
	w.writeUniqueBytes(depBytes)
	w.writeUint32(uint32(len(depBytes)))
	w.writeUniqueWideString(raw.startName)
	w.writeUniqueBytes(pwBytes)
	w.writeUint32(uint32(len(pwBytes)))

	resp, err := c.h.call(opCreateService, w.bytes())
	if err != nil {
		return nil, &OpError{Op: "create", Name: info.Name, Err: err}
	}

	r := newStubReader(resp)
	r.uniqueUint32() // tag id, unused
	svcRaw := r.handle()
	code := r.uint32()
	switch {
	case r.err != nil:
		return nil, &OpError{Op: "create", Name: info.Name, Err: r.err}
	case code != 0:
		return nil, &OpError{Op: "create", Name: info.Name, Err: Errno(code)}
	}

	c.h.conn.acquire()
	return &Service{name: info.Name, h: newHandle(svcRaw, c.h.conn)}, nil
}

// OpenService opens an existing service by key name with the requested
// access rights.
func (c *Connection) OpenService(name string, access AccessRights) (*Service, error) {
	nameW, err := encodeWide("service name", name)
	if err != nil {
		return nil, &OpError{Op: "open", Name: name, Err: err}
	}

	var w stubWriter
	w.writeHandle(c.h.raw)
	w.writeWideString(nameW)
	w.writeUint32(uint32(access))

	resp, err := c.h.call(opOpenService, w.bytes())
	if err != nil {
		return nil, &OpError{Op: "open", Name: name, Err: err}
	}

	r := newStubReader(resp)
	svcRaw := r.handle()
	code := r.uint32()
	switch {
	case r.err != nil:
		return nil, &OpError{Op: "open", Name: name, Err: r.err}
	case code != 0:
		return nil, &OpError{Op: "open", Name: name, Err: Errno(code)}
	}

	c.h.conn.acquire()
	return &Service{name: name, h: newHandle(svcRaw, c.h.conn)}, nil
}

// EnumerateServices lists the registered services matching the type and
// run-state filters. The reply buffer is negotiated with the authority:
// the first call asks for the required size and the call is repeated with
// that size, so no fixed ceiling caps the result. Decoding short-circuits
// on the first malformed record; either every entry decodes or the
// operation fails.
func (c *Connection) EnumerateServices(types ServiceType, state ActiveState) ([]ServiceEntry, error) {
	var bufSize uint32
	for {
		var w stubWriter
		w.writeHandle(c.h.raw)
		w.writeUint32(uint32(types))
		w.writeUint32(uint32(state))
		w.writeUint32(bufSize)
		resume := uint32(0)
		w.writeUniqueUint32(&resume)

		resp, err := c.h.call(opEnumServicesStatus, w.bytes())
		if err != nil {
			return nil, &OpError{Op: "enumerate", Err: err}
		}

		r := newStubReader(resp)
		buf := r.conformantBytes()
		bytesNeeded := r.uint32()
		count := r.uint32()
		r.uniqueUint32() // resume index, unused
		code := r.uint32()
		if r.err != nil {
			return nil, &OpError{Op: "enumerate", Err: r.err}
		}

		switch Errno(code) {
		case 0:
			entries, err := decodeEntries(buf, count)
			if err != nil {
				return nil, &OpError{Op: "enumerate", Err: err}
			}
			return entries, nil
		case ErrMoreData:
			// Grow to the authority-reported need and retry. A need that
			// does not grow would loop forever, so it fails instead.
			if bytesNeeded <= bufSize || bytesNeeded > maxNegotiatedBuffer {
				return nil, &OpError{Op: "enumerate", Err: Errno(code)}
			}
			bufSize = bytesNeeded
		default:
			return nil, &OpError{Op: "enumerate", Err: Errno(code)}
		}
	}
}

// ServiceNameFromDisplayName resolves a display name to the service key
// name. The reply buffer is fixed at the authority's documented maximum
// name length; it is a hard ceiling, not a negotiable size.
func (c *Connection) ServiceNameFromDisplayName(displayName string) (string, error) {
	return c.lookupName(opGetServiceKeyName, "key-name", "display name", displayName)
}

// DisplayNameFromServiceName resolves a service key name to its display
// name, with the same fixed ceiling as ServiceNameFromDisplayName.
func (c *Connection) DisplayNameFromServiceName(name string) (string, error) {
	return c.lookupName(opGetServiceDisplayName, "display-name", "service name", name)
}

func (c *Connection) lookupName(opnum uint16, op, field, name string) (string, error) {
	nameW, err := encodeWide(field, name)
	if err != nil {
		return "", &OpError{Op: op, Name: name, Err: err}
	}

	var w stubWriter
	w.writeHandle(c.h.raw)
	w.writeWideString(nameW)
	w.writeUint32(MaxServiceNameLen + 1) // ceiling in characters, terminator included

	resp, err := c.h.call(opnum, w.bytes())
	if err != nil {
		return "", &OpError{Op: op, Name: name, Err: err}
	}

	r := newStubReader(resp)
	result := r.wideString()
	r.uint32() // returned length, implied by the string
	code := r.uint32()
	switch {
	case r.err != nil:
		return "", &OpError{Op: op, Name: name, Err: r.err}
	case code != 0:
		return "", &OpError{Op: op, Name: name, Err: Errno(code)}
	}
	return decodeWide(result), nil
}

// Close releases the manager handle. Exactly one release is issued even
// if it fails; a second Close returns ErrClosed. Services opened through
// this connection stay usable: the underlying transport shuts down only
// after the last handle over it is closed.
func (c *Connection) Close() error {
	if err := c.h.close(); err != nil {
		return &OpError{Op: "close", Name: c.Machine, Err: err}
	}
	return nil
}
