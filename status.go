package svcctl

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ErrServiceSpecificError is the Win32ExitCode value meaning the service
// reported its own exit code in ServiceExitCode.
const ErrServiceSpecificError Errno = 1066

// ServiceStatus is a decoded status snapshot. Every query produces a
// fresh, independent snapshot; nothing updates one in place.
type ServiceStatus struct {
	// ServiceType classifies the service process or driver
	ServiceType ServiceType
	// State is the current run state
	State ServiceState
	// Accepts is the set of controls the service currently accepts
	Accepts ServiceAccept
	// Win32ExitCode is the error reported when the service started or
	// stopped, 0 when none. The value 1066 means the service supplied its
	// own code in ServiceExitCode.
	Win32ExitCode uint32
	// ServiceExitCode is the service-specific exit code, meaningful only
	// when Win32ExitCode is 1066
	ServiceExitCode uint32
	// CheckPoint increments while the service works through a pending
	// state transition
	CheckPoint uint32
	// WaitHint is how long the service asks callers to wait before
	// re-checking a pending transition
	WaitHint time.Duration
}

// ServiceEntry describes one registered service as reported by
// EnumerateServices. Name is the authority's canonical key; DisplayName
// is the human-readable label.
type ServiceEntry struct {
	// Name is the service key name
	Name string
	// DisplayName is the service display name
	DisplayName string
	// Status is the run-state snapshot taken during enumeration
	Status ServiceStatus
}

// decodeStatus decodes a SERVICE_STATUS record.
// The format is seven little-endian DWORDs:
//
//	bytes 0-3:   service type
//	bytes 4-7:   current state
//	bytes 8-11:  controls accepted
//	bytes 12-15: win32 exit code
//	bytes 16-19: service-specific exit code
//	bytes 20-23: check point
//	bytes 24-27: wait hint (milliseconds)
//
// The three enumerated fields are validated against the known symbolic
// values; an unrecognized value is a decode error naming the field. An
// unknown run state is more dangerous to coerce than to reject.
func decodeStatus(data []byte) (ServiceStatus, error) {
	if len(data) != statusSize {
		return ServiceStatus{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecode, statusSize, len(data))
	}

	typ := binary.LittleEndian.Uint32(data[offsetServiceType:])
	state := binary.LittleEndian.Uint32(data[offsetCurrentState:])
	accepts := binary.LittleEndian.Uint32(data[offsetControlsAccepted:])

	if err := validateServiceType(typ); err != nil {
		return ServiceStatus{}, err
	}
	if err := validateState(state); err != nil {
		return ServiceStatus{}, err
	}
	if err := validateAccepts(accepts); err != nil {
		return ServiceStatus{}, err
	}

	return ServiceStatus{
		ServiceType:     ServiceType(typ),
		State:           ServiceState(state),
		Accepts:         ServiceAccept(accepts),
		Win32ExitCode:   binary.LittleEndian.Uint32(data[offsetWin32ExitCode:]),
		ServiceExitCode: binary.LittleEndian.Uint32(data[offsetServiceExitCode:]),
		CheckPoint:      binary.LittleEndian.Uint32(data[offsetCheckPoint:]),
		WaitHint:        time.Duration(binary.LittleEndian.Uint32(data[offsetWaitHint:])) * time.Millisecond,
	}, nil
}

// validateServiceType rejects values carrying bits outside the known
// service type set. Zero is allowed: it is the empty set, not an unknown
// value.
func validateServiceType(v uint32) error {
	if v&^uint32(knownServiceTypeMask) != 0 {
		return &DecodeError{Field: "service type", Value: v}
	}
	return nil
}

// validateState rejects run states outside the Stopped..Paused range.
func validateState(v uint32) error {
	if v < uint32(Stopped) || v > uint32(Paused) {
		return &DecodeError{Field: "current state", Value: v}
	}
	return nil
}

// validateAccepts rejects values carrying bits outside the known
// controls-accepted set.
func validateAccepts(v uint32) error {
	if v&^uint32(knownAcceptMask) != 0 {
		return &DecodeError{Field: "controls accepted", Value: v}
	}
	return nil
}

// decodeEntry decodes the ENUM_SERVICE_STATUSW record at byte offset off
// within an enumeration reply buffer. The record is two buffer-relative
// string offsets followed by an embedded SERVICE_STATUS; the strings
// propagate through the wide-string codec, the status through
// decodeStatus, and the first failure wins.
func decodeEntry(buf []byte, off int) (ServiceEntry, error) {
	if off < 0 || off+entrySize > len(buf) {
		return ServiceEntry{}, fmt.Errorf("%w: entry at offset %d overruns %d-byte buffer", ErrDecode, off, len(buf))
	}

	nameOff := binary.LittleEndian.Uint32(buf[off+offsetEntryName:])
	displayOff := binary.LittleEndian.Uint32(buf[off+offsetEntryDisplayName:])

	name, err := wideAt(buf, nameOff, "service name")
	if err != nil {
		return ServiceEntry{}, err
	}
	display, err := wideAt(buf, displayOff, "display name")
	if err != nil {
		return ServiceEntry{}, err
	}
	status, err := decodeStatus(buf[off+offsetEntryStatus : off+offsetEntryStatus+statusSize])
	if err != nil {
		return ServiceEntry{}, err
	}

	return ServiceEntry{Name: name, DisplayName: display, Status: status}, nil
}

// decodeEntries decodes count consecutive records from the front of an
// enumeration reply buffer. The authority packs the fixed-size records
// first and the string pool after them, so the records occupy offsets
// [0, count*entrySize).
func decodeEntries(buf []byte, count uint32) ([]ServiceEntry, error) {
	if uint64(count)*entrySize > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: %d entries overrun %d-byte buffer", ErrDecode, count, len(buf))
	}
	entries := make([]ServiceEntry, 0, count)
	for i := 0; i < int(count); i++ {
		e, err := decodeEntry(buf, i*entrySize)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// wideAt decodes the null-terminated UTF-16 string at byte offset off in
// buf. An offset outside the buffer, or a string with no terminator
// before the buffer ends, is a decode failure naming field; these are the
// truncation edge cases of the enumeration reply.
func wideAt(buf []byte, off uint32, field string) (string, error) {
	if uint64(off) >= uint64(len(buf)) {
		return "", &DecodeError{Field: field, Value: off}
	}
	var units []uint16
	for i := int(off); ; i += 2 {
		if i+2 > len(buf) {
			return "", &DecodeError{Field: field, Value: off}
		}
		u := binary.LittleEndian.Uint16(buf[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return decodeWide(append(units, 0)), nil
}
