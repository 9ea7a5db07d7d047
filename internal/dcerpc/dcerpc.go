// Package dcerpc implements the minimal connection-oriented DCE/RPC
// client needed to reach MSRPC endpoints over a stream transport: bind
// negotiation with the NDR transfer syntax, request/response framing with
// fragmentation, and fault mapping. Authentication, alter-context, and
// non-little-endian data representations are not implemented.
package dcerpc

import (
	"errors"
	"fmt"
)

// PDU layout constants.
// Reference: https://pubs.opengroup.org/onlinepubs/9629399/chap12.htm
const (
	verMajor = 5
	verMinor = 0

	ptypeRequest  = 0
	ptypeResponse = 2
	ptypeFault    = 3
	ptypeBind     = 11
	ptypeBindAck  = 12
	ptypeBindNak  = 13

	flagFirstFrag = 0x01
	flagLastFrag  = 0x02

	// drepLE selects little-endian integers, ASCII characters, and IEEE
	// floats in the four-byte data representation field
	drepLE = 0x10

	// headerSize is the common PDU header: version, type, flags, data
	// representation, fragment length, auth length, call id
	headerSize = 16

	// requestHdrSize and responseHdrSize cover the common header plus the
	// alloc hint, context id, and opnum / cancel count fields
	requestHdrSize  = 24
	responseHdrSize = 24

	// defaultMaxXmit is the fragment size offered at bind time
	defaultMaxXmit = 4280
)

// Errors returned by the client
var (
	// ErrRejected indicates the server refused the interface binding
	ErrRejected = errors.New("dcerpc: bind rejected")

	// ErrNotBound indicates Call was issued before a successful Bind
	ErrNotBound = errors.New("dcerpc: interface not bound")
)

// Syntax identifies an RPC interface or transfer syntax: a UUID in wire
// byte order plus its version.
type Syntax struct {
	UUID  [16]byte
	Major uint16
	Minor uint16
}

// NDR32 is the transfer syntax offered at bind time
// (8a885d04-1ceb-11c9-9fe8-08002b104860 v2.0).
var NDR32 = Syntax{
	UUID: [16]byte{
		0x04, 0x5d, 0x88, 0x8a, 0xeb, 0x1c, 0xc9, 0x11,
		0x9f, 0xe8, 0x08, 0x00, 0x2b, 0x10, 0x48, 0x60,
	},
	Major: 2,
}

// FaultError is the status of a fault PDU received in place of a
// response. The status is a server-side failure of the call machinery,
// not an application return code.
type FaultError uint32

// Error returns a formatted error message
func (e FaultError) Error() string {
	return fmt.Sprintf("dcerpc: fault 0x%08x", uint32(e))
}
