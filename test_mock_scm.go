package svcctl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf16"
)

// MockService is one registered service inside a MockSCM.
type MockService struct {
	// Name is the service key name
	Name string
	// DisplayName is the human-readable label
	DisplayName string
	// Status is the current status snapshot reported by queries
	Status ServiceStatus
	// Config is the persistent configuration reported by QueryConfig;
	// its DisplayName field is ignored in favor of DisplayName above
	Config ServiceConfig
	// Password is the account password received at creation, kept so
	// tests can assert it crossed the wire
	Password string
	// Deleted marks the service for removal; it disappears from the
	// table once the last handle to it is closed
	Deleted bool
	// StartArgs holds the launch arguments of the most recent start
	StartArgs []string
}

// MockSCM is an in-memory service control authority implementing
// Transport. It lets tests exercise the full client stack without a
// native service control manager: request stubs are parsed with the same
// codec the client marshals with, dispatched against a small service
// table, and answered with byte-exact reply stubs, including the
// two-phase buffer negotiation of enumeration and configuration queries.
//
// Names are case-insensitive and services enumerate in registration
// order. All methods are safe for concurrent use.
type MockSCM struct {
	mu sync.Mutex

	services   []*MockService
	handles    map[[handleSize]byte]*mockHandle
	nextHandle uint32

	calls           int
	closes          int
	transportCloses int
	closed          bool
	nextErr         error
}

// mockHandle is the authority-side state of one issued handle. svc is nil
// for a manager handle.
type mockHandle struct {
	access AccessRights
	svc    *MockService
}

var errMockClosed = errors.New("svcctl: mock authority transport closed")

// NewMockSCM creates an empty mock authority.
func NewMockSCM() *MockSCM {
	return &MockSCM{handles: map[[handleSize]byte]*mockHandle{}}
}

// AddService registers a service fixture and returns it for further
// adjustment before any connection is made. An empty displayName defaults
// to the key name, and a zero config service type defaults to the status
// service type.
func (m *MockSCM) AddService(name, displayName string, status ServiceStatus, config ServiceConfig) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()

	if displayName == "" {
		displayName = name
	}
	if config.ServiceType == 0 {
		config.ServiceType = status.ServiceType
	}
	svc := &MockService{Name: name, DisplayName: displayName, Status: status, Config: config}
	m.services = append(m.services, svc)
	return svc
}

// SetStatus replaces the status snapshot of a registered service and
// reports whether the service exists. It is safe to call while watches
// are polling.
func (m *MockSCM) SetStatus(name string, status ServiceStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc := m.findService(name)
	if svc == nil {
		return false
	}
	svc.Status = status
	return true
}

// Service returns the registered service with the given key name, nil
// when there is none.
func (m *MockSCM) Service(name string) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findService(name)
}

// OpenHandles returns the number of handles issued and not yet closed.
func (m *MockSCM) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// HandleCloses returns how many close-handle operations succeeded.
func (m *MockSCM) HandleCloses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// TransportCloses returns how many times the transport itself was closed.
func (m *MockSCM) TransportCloses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transportCloses
}

// Calls returns how many operations reached the transport, including
// failed ones.
func (m *MockSCM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FailNext makes the next Call return err instead of dispatching, mimicking
// a transport-level failure. It is consumed by a single call.
func (m *MockSCM) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErr = err
}

// Close implements Transport. Calls made after Close fail, which catches
// handle lifetime bugs where an operation outlives the last release.
func (m *MockSCM) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transportCloses++
	m.closed = true
	return nil
}

// Call implements Transport by dispatching one operation against the
// service table. A malformed request stub fails the call with a Go error
// rather than a return code, since it indicates a marshaling bug.
func (m *MockSCM) Call(opnum uint16, stub []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.closed {
		return nil, errMockClosed
	}
	if err := m.nextErr; err != nil {
		m.nextErr = nil
		return nil, err
	}

	r := newStubReader(stub)
	var w stubWriter
	switch opnum {
	case opCloseServiceHandle:
		m.closeHandle(r, &w)
	case opControlService:
		m.controlService(r, &w)
	case opDeleteService:
		m.deleteService(r, &w)
	case opQueryServiceStatus:
		m.queryServiceStatus(r, &w)
	case opCreateService:
		m.createService(r, &w)
	case opEnumServicesStatus:
		m.enumServices(r, &w)
	case opOpenSCManager:
		m.openSCManager(r, &w)
	case opOpenService:
		m.openService(r, &w)
	case opQueryServiceConfig:
		m.queryServiceConfig(r, &w)
	case opStartService:
		m.startService(r, &w)
	case opGetServiceDisplayName:
		m.getDisplayName(r, &w)
	case opGetServiceKeyName:
		m.getKeyName(r, &w)
	default:
		return nil, fmt.Errorf("svcctl: mock authority: opnum %d not implemented", opnum)
	}
	if r.err != nil {
		return nil, fmt.Errorf("svcctl: mock authority: malformed request for opnum %d: %w", opnum, r.err)
	}
	return w.bytes(), nil
}

// findService looks a service up by key name, case-insensitively.
func (m *MockSCM) findService(name string) *MockService {
	for _, svc := range m.services {
		if strings.EqualFold(svc.Name, name) {
			return svc
		}
	}
	return nil
}

// findByDisplay looks a service up by display name, case-insensitively.
func (m *MockSCM) findByDisplay(display string) *MockService {
	for _, svc := range m.services {
		if strings.EqualFold(svc.DisplayName, display) {
			return svc
		}
	}
	return nil
}

// allocHandle issues a fresh context handle for h. Handles are never
// reissued, so a stale handle value stays invalid after close.
func (m *MockSCM) allocHandle(h *mockHandle) [handleSize]byte {
	m.nextHandle++
	var raw [handleSize]byte
	binary.LittleEndian.PutUint32(raw[4:], m.nextHandle)
	m.handles[raw] = h
	return raw
}

// managerFor resolves a manager handle and enforces the access right the
// operation requires; need 0 accepts any manager handle.
func (m *MockSCM) managerFor(raw [handleSize]byte, need AccessRights) (*mockHandle, Errno) {
	h := m.handles[raw]
	if h == nil || h.svc != nil {
		return nil, ErrInvalidHandle
	}
	if need != 0 && h.access&need == 0 {
		return nil, ErrAccessDenied
	}
	return h, 0
}

// serviceFor resolves a service handle the same way.
func (m *MockSCM) serviceFor(raw [handleSize]byte, need AccessRights) (*MockService, Errno) {
	h := m.handles[raw]
	if h == nil || h.svc == nil {
		return nil, ErrInvalidHandle
	}
	if need != 0 && h.access&need == 0 {
		return nil, ErrAccessDenied
	}
	return h.svc, 0
}

func (m *MockSCM) hasHandle(svc *MockService) bool {
	for _, h := range m.handles {
		if h.svc == svc {
			return true
		}
	}
	return false
}

func (m *MockSCM) removeService(svc *MockService) {
	for i, s := range m.services {
		if s == svc {
			m.services = append(m.services[:i], m.services[i+1:]...)
			return
		}
	}
}

func (m *MockSCM) closeHandle(r *stubReader, w *stubWriter) {
	raw := r.handle()
	if r.err != nil {
		return
	}

	var zero [handleSize]byte
	h, ok := m.handles[raw]
	if !ok {
		w.writeHandle(zero)
		w.writeUint32(uint32(ErrInvalidHandle))
		return
	}
	delete(m.handles, raw)
	m.closes++

	// A marked service disappears once its last handle is gone.
	if h.svc != nil && h.svc.Deleted && !m.hasHandle(h.svc) {
		m.removeService(h.svc)
	}

	w.writeHandle(zero)
	w.writeUint32(0)
}

func (m *MockSCM) openSCManager(r *stubReader, w *stubWriter) {
	r.uniqueWideString() // machine name, any accepted
	database := decodeWide(r.uniqueWideString())
	access := AccessRights(r.uint32())
	if r.err != nil {
		return
	}

	var code Errno
	switch {
	case database == "" || strings.EqualFold(database, ServicesActiveDatabase):
	case strings.EqualFold(database, ServicesFailedDatabase):
		code = ErrDatabaseDoesNotExist
	default:
		code = ErrInvalidName
	}
	if code != 0 {
		w.writeHandle([handleSize]byte{})
		w.writeUint32(uint32(code))
		return
	}

	w.writeHandle(m.allocHandle(&mockHandle{access: access}))
	w.writeUint32(0)
}

func (m *MockSCM) openService(r *stubReader, w *stubWriter) {
	raw := r.handle()
	name := decodeWide(r.wideString())
	access := AccessRights(r.uint32())
	if r.err != nil {
		return
	}

	_, code := m.managerFor(raw, 0)
	var svc *MockService
	if code == 0 {
		if len(name) > MaxServiceNameLen {
			code = ErrInvalidName
		} else if svc = m.findService(name); svc == nil {
			code = ErrServiceDoesNotExist
		}
	}
	if code != 0 {
		w.writeHandle([handleSize]byte{})
		w.writeUint32(uint32(code))
		return
	}

	w.writeHandle(m.allocHandle(&mockHandle{access: access, svc: svc}))
	w.writeUint32(0)
}

func (m *MockSCM) createService(r *stubReader, w *stubWriter) {
	raw := r.handle()
	name := decodeWide(r.wideString())
	display := decodeWide(r.uniqueWideString())
	access := AccessRights(r.uint32())
	serviceType := ServiceType(r.uint32())
	startType := StartType(r.uint32())
	errorControl := ErrorControl(r.uint32())
	binaryPath := decodeWide(r.wideString())
	r.uniqueWideString() // load order group
	r.uniqueUint32()     // tag id
	var depBytes []byte
	if r.uint32() != 0 {
		depBytes = r.conformantBytes()
	}
	r.uint32() // dependency block size
	startName := decodeWide(r.uniqueWideString())
	var pwBytes []byte
	if r.uint32() != 0 {
		pwBytes = r.conformantBytes()
	}
	r.uint32() // password size
	if r.err != nil {
		return
	}

	fail := func(code Errno) {
		w.writeUniqueUint32(nil)
		w.writeHandle([handleSize]byte{})
		w.writeUint32(uint32(code))
	}

	if _, code := m.managerFor(raw, SCManagerCreateService); code != 0 {
		fail(code)
		return
	}
	if len(name) > MaxServiceNameLen {
		fail(ErrInvalidName)
		return
	}
	if existing := m.findService(name); existing != nil {
		if existing.Deleted {
			fail(ErrServiceMarkedForDelete)
		} else {
			fail(ErrServiceExists)
		}
		return
	}
	if display == "" {
		display = name
	}
	if other := m.findByDisplay(display); other != nil {
		fail(ErrDuplicateServiceName)
		return
	}
	if startName == "" {
		startName = "LocalSystem"
	}

	svc := &MockService{
		Name:        name,
		DisplayName: display,
		Status:      ServiceStatus{ServiceType: serviceType, State: Stopped},
		Config: ServiceConfig{
			ServiceType:  serviceType,
			StartType:    startType,
			ErrorControl: errorControl,
			BinaryPath:   binaryPath,
			Dependencies: splitWideBlock(bytesToWide(depBytes)),
			StartName:    startName,
		},
		Password: decodeWide(bytesToWide(pwBytes)),
	}
	m.services = append(m.services, svc)

	w.writeUniqueUint32(nil) // tag id, never assigned
	w.writeHandle(m.allocHandle(&mockHandle{access: access, svc: svc}))
	w.writeUint32(0)
}

func (m *MockSCM) enumServices(r *stubReader, w *stubWriter) {
	raw := r.handle()
	types := ServiceType(r.uint32())
	state := ActiveState(r.uint32())
	bufSize := r.uint32()
	r.uniqueUint32() // resume index
	if r.err != nil {
		return
	}

	reply := func(buf []byte, need, count uint32, code Errno) {
		w.writeConformantBytes(buf)
		w.writeUint32(need)
		w.writeUint32(count)
		resume := uint32(0)
		w.writeUniqueUint32(&resume)
		w.writeUint32(uint32(code))
	}

	if _, code := m.managerFor(raw, SCManagerEnumerateService); code != 0 {
		reply(nil, 0, 0, code)
		return
	}

	var matched []*MockService
	for _, svc := range m.services {
		if svc.Status.ServiceType&types != 0 && matchesActive(svc.Status.State, state) {
			matched = append(matched, svc)
		}
	}

	buf := buildEnumBuffer(matched)
	if bufSize < uint32(len(buf)) {
		reply(nil, uint32(len(buf)), 0, ErrMoreData)
		return
	}
	reply(buf, 0, uint32(len(matched)), 0)
}

func (m *MockSCM) queryServiceStatus(r *stubReader, w *stubWriter) {
	raw := r.handle()
	if r.err != nil {
		return
	}

	svc, code := m.serviceFor(raw, ServiceQueryStatus)
	if code != 0 {
		replyStatus(w, ServiceStatus{}, code)
		return
	}
	replyStatus(w, svc.Status, 0)
}

func (m *MockSCM) controlService(r *stubReader, w *stubWriter) {
	raw := r.handle()
	control := ServiceControl(r.uint32())
	if r.err != nil {
		return
	}

	svc, code := m.serviceFor(raw, controlRight(control))
	if code == 0 {
		switch {
		case control != ControlStop && control != ControlInterrogate:
			code = ErrInvalidServiceControl
		case svc.Status.State == Stopped:
			code = ErrServiceNotActive
		case control == ControlStop && svc.Status.Accepts&AcceptStop == 0:
			code = ErrServiceCannotAcceptControl
		}
	}
	if code != 0 {
		replyStatus(w, ServiceStatus{}, code)
		return
	}

	if control == ControlStop {
		svc.Status = ServiceStatus{ServiceType: svc.Status.ServiceType, State: Stopped}
	}
	replyStatus(w, svc.Status, 0)
}

func (m *MockSCM) startService(r *stubReader, w *stubWriter) {
	raw := r.handle()
	argc := r.uint32()
	args := readArgv(r, argc)
	if r.err != nil {
		return
	}

	svc, code := m.serviceFor(raw, ServiceStart)
	if code == 0 {
		switch {
		case svc.Deleted:
			code = ErrServiceMarkedForDelete
		case svc.Config.StartType == Disabled:
			code = ErrServiceDisabled
		case svc.Status.State != Stopped:
			code = ErrServiceAlreadyRunning
		}
	}
	if code != 0 {
		w.writeUint32(uint32(code))
		return
	}

	svc.StartArgs = args
	svc.Status = ServiceStatus{
		ServiceType: svc.Status.ServiceType,
		State:       Running,
		Accepts:     AcceptStop,
	}
	w.writeUint32(0)
}

func (m *MockSCM) deleteService(r *stubReader, w *stubWriter) {
	raw := r.handle()
	if r.err != nil {
		return
	}

	svc, code := m.serviceFor(raw, Delete)
	if code == 0 && svc.Deleted {
		code = ErrServiceMarkedForDelete
	}
	if code != 0 {
		w.writeUint32(uint32(code))
		return
	}

	svc.Deleted = true
	w.writeUint32(0)
}

func (m *MockSCM) queryServiceConfig(r *stubReader, w *stubWriter) {
	raw := r.handle()
	bufSize := r.uint32()
	if r.err != nil {
		return
	}

	// A failed query still carries the fixed part of the record, zeroed.
	failed := func(need uint32, code Errno) {
		for i := 0; i < 9; i++ {
			w.writeUint32(0)
		}
		w.writeUint32(need)
		w.writeUint32(uint32(code))
	}

	svc, code := m.serviceFor(raw, ServiceQueryConfig)
	if code != 0 {
		failed(0, code)
		return
	}

	var body stubWriter
	writeConfigBody(&body, svc)
	need := uint32(len(body.bytes()))
	if bufSize < need {
		failed(need, ErrInsufficientBuffer)
		return
	}

	w.writeBytes(body.bytes())
	w.writeUint32(need)
	w.writeUint32(0)
}

func (m *MockSCM) getDisplayName(r *stubReader, w *stubWriter) {
	raw := r.handle()
	name := decodeWide(r.wideString())
	cch := r.uint32()
	if r.err != nil {
		return
	}

	_, code := m.managerFor(raw, 0)
	var units []uint16
	if code == 0 {
		if svc := m.findService(name); svc != nil {
			units = mustWide(svc.DisplayName)
		} else {
			code = ErrServiceDoesNotExist
		}
	}
	replyName(w, units, cch, code)
}

func (m *MockSCM) getKeyName(r *stubReader, w *stubWriter) {
	raw := r.handle()
	display := decodeWide(r.wideString())
	cch := r.uint32()
	if r.err != nil {
		return
	}

	_, code := m.managerFor(raw, 0)
	var units []uint16
	if code == 0 {
		if svc := m.findByDisplay(display); svc != nil {
			units = mustWide(svc.Name)
		} else {
			code = ErrNotFound
		}
	}
	replyName(w, units, cch, code)
}

// controlRight maps a control code to the access right it requires.
func controlRight(c ServiceControl) AccessRights {
	switch c {
	case ControlStop:
		return ServiceStop
	case ControlInterrogate:
		return ServiceInterrogate
	default:
		return 0
	}
}

// matchesActive reports whether a run state passes an enumeration state
// filter. Stopped is the only inactive state; everything else counts as
// active.
func matchesActive(st ServiceState, filter ActiveState) bool {
	if st == Stopped {
		return filter&InactiveServices != 0
	}
	return filter&ActiveServices != 0
}

// statusWords flattens a status snapshot into its seven wire DWORDs.
func statusWords(st ServiceStatus) [7]uint32 {
	return [7]uint32{
		uint32(st.ServiceType),
		uint32(st.State),
		uint32(st.Accepts),
		st.Win32ExitCode,
		st.ServiceExitCode,
		st.CheckPoint,
		uint32(st.WaitHint / time.Millisecond),
	}
}

// replyStatus writes a status record followed by the return code. The
// record is zeroed when the operation failed.
func replyStatus(w *stubWriter, st ServiceStatus, code Errno) {
	for _, v := range statusWords(st) {
		w.writeUint32(v)
	}
	w.writeUint32(uint32(code))
}

// replyName finishes a name lookup: the resolved string, its length in
// characters excluding the terminator, and the return code. A name that
// would not fit the caller's buffer yields only the required length.
func replyName(w *stubWriter, units []uint16, cch uint32, code Errno) {
	if code != 0 {
		w.writeWideString([]uint16{0})
		w.writeUint32(0)
		w.writeUint32(uint32(code))
		return
	}
	needed := uint32(len(units) - 1)
	if cch < uint32(len(units)) {
		w.writeWideString([]uint16{0})
		w.writeUint32(needed)
		w.writeUint32(uint32(ErrInsufficientBuffer))
		return
	}
	w.writeWideString(units)
	w.writeUint32(needed)
	w.writeUint32(uint32(code))
}

// buildEnumBuffer lays out an enumeration reply buffer: the fixed-size
// records first, then the string pool they point into with
// buffer-relative offsets.
func buildEnumBuffer(matched []*MockService) []byte {
	records := make([]byte, len(matched)*entrySize)
	var pool []byte

	for i, svc := range matched {
		rec := records[i*entrySize:]

		nameOff := len(records) + len(pool)
		pool = append(pool, wideToBytes(mustWide(svc.Name))...)
		displayOff := len(records) + len(pool)
		pool = append(pool, wideToBytes(mustWide(svc.DisplayName))...)

		binary.LittleEndian.PutUint32(rec[offsetEntryName:], uint32(nameOff))
		binary.LittleEndian.PutUint32(rec[offsetEntryDisplayName:], uint32(displayOff))
		for j, v := range statusWords(svc.Status) {
			binary.LittleEndian.PutUint32(rec[offsetEntryStatus+4*j:], v)
		}
	}
	return append(records, pool...)
}

// readArgv reads the argument vector of a start request: a unique pointer
// to a conformant array of string pointers with the string bodies
// deferred in order.
func readArgv(r *stubReader, argc uint32) []string {
	if r.uint32() == 0 {
		return nil
	}
	count := r.uint32()
	if count != argc || count > 4096 {
		r.fail()
		return nil
	}
	refs := make([]uint32, count)
	for i := range refs {
		refs[i] = r.uint32()
	}
	args := make([]string, 0, count)
	for _, ref := range refs {
		if ref == 0 {
			args = append(args, "")
			continue
		}
		args = append(args, decodeWide(r.wideString()))
	}
	return args
}

// mustWide encodes fixture text as a null-terminated UTF-16 buffer.
// Fixture data contains no nul bytes, so encoding cannot fail.
func mustWide(s string) []uint16 {
	return append(utf16.Encode([]rune(s)), 0)
}

// writeConfigBody marshals a configuration record: the fixed header with
// a referent ID per present string field, then the string bodies deferred
// in field order.
func writeConfigBody(w *stubWriter, svc *MockService) {
	cfg := svc.Config

	binaryPath := mustWide(cfg.BinaryPath)
	var group []uint16
	if cfg.LoadOrderGroup != "" {
		group = mustWide(cfg.LoadOrderGroup)
	}
	var deps []uint16
	if len(cfg.Dependencies) > 0 {
		for _, dep := range cfg.Dependencies {
			deps = append(deps, mustWide(dep)...)
		}
		deps = append(deps, 0)
	}
	startName := mustWide(cfg.StartName)
	display := mustWide(svc.DisplayName)

	w.writeUint32(uint32(cfg.ServiceType))
	w.writeUint32(uint32(cfg.StartType))
	w.writeUint32(uint32(cfg.ErrorControl))
	w.writeUint32(w.newReferent()) // binary path
	if group == nil {
		w.writeUint32(0)
	} else {
		w.writeUint32(w.newReferent())
	}
	w.writeUint32(cfg.TagID)
	if deps == nil {
		w.writeUint32(0)
	} else {
		w.writeUint32(w.newReferent())
	}
	w.writeUint32(w.newReferent()) // start name
	w.writeUint32(w.newReferent()) // display name

	w.writeWideString(binaryPath)
	if group != nil {
		w.writeWideString(group)
	}
	if deps != nil {
		w.writeWideString(deps)
	}
	w.writeWideString(startName)
	w.writeWideString(display)
}
