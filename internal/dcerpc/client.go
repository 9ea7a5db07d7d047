package dcerpc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

// Client speaks connection-oriented DCE/RPC over one stream connection.
// Calls are serialized with an internal mutex because fragments of
// concurrent calls must not interleave on the stream; callers wanting
// parallel calls open parallel connections.
type Client struct {
	conn net.Conn

	mu      sync.Mutex
	callID  uint32
	maxXmit uint16
	bound   bool
}

// NewClient wraps an established stream connection. Bind the target
// interface before issuing calls.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, maxXmit: defaultMaxXmit}
}

// Bind negotiates the given interface with the NDR32 transfer syntax and
// adopts the server's fragment size limit.
func (c *Client) Bind(iface Syntax) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callID++
	body := make([]byte, 0, 72)
	body = binary.LittleEndian.AppendUint16(body, defaultMaxXmit)
	body = binary.LittleEndian.AppendUint16(body, defaultMaxXmit)
	body = binary.LittleEndian.AppendUint32(body, 0) // new association group
	body = append(body, 1, 0, 0, 0)                  // one presentation context
	body = binary.LittleEndian.AppendUint16(body, 0) // context id 0
	body = append(body, 1, 0)                        // one transfer syntax
	body = appendSyntax(body, iface)
	body = appendSyntax(body, NDR32)

	if err := c.writePDU(ptypeBind, c.callID, body); err != nil {
		return err
	}

	frag, err := c.readPDU()
	if err != nil {
		return err
	}
	switch frag[2] {
	case ptypeBindAck:
	case ptypeBindNak:
		return ErrRejected
	default:
		return fmt.Errorf("dcerpc: pdu type %d in reply to bind", frag[2])
	}

	// bind_ack: max xmit, max recv, assoc group, secondary address
	// (length-prefixed, padded to 4), then the per-context results
	ack := frag[headerSize:]
	if len(ack) < 10 {
		return fmt.Errorf("dcerpc: short bind_ack (%d bytes)", len(ack))
	}
	maxXmit := binary.LittleEndian.Uint16(ack)
	addrLen := binary.LittleEndian.Uint16(ack[8:])
	off := (10 + int(addrLen) + 3) &^ 3
	if len(ack) < off+8 {
		return fmt.Errorf("dcerpc: short bind_ack (%d bytes)", len(ack))
	}
	if ack[off] < 1 {
		return fmt.Errorf("%w: no results", ErrRejected)
	}
	result := binary.LittleEndian.Uint16(ack[off+4:])
	reason := binary.LittleEndian.Uint16(ack[off+6:])
	if result != 0 {
		return fmt.Errorf("%w: result %d reason %d", ErrRejected, result, reason)
	}

	if maxXmit > requestHdrSize {
		c.maxXmit = maxXmit
	}
	c.bound = true
	return nil
}

// Call issues one operation and returns the reassembled response stub.
// The request is fragmented to the negotiated size when necessary; a
// fault PDU surfaces as a FaultError.
func (c *Client) Call(opnum uint16, stub []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound {
		return nil, ErrNotBound
	}
	c.callID++
	id := c.callID

	max := int(c.maxXmit) - requestHdrSize
	for off := 0; ; {
		n := len(stub) - off
		if n > max {
			n = max
		}
		last := off+n == len(stub)

		body := make([]byte, 0, 8+n)
		body = binary.LittleEndian.AppendUint32(body, uint32(len(stub)-off)) // alloc hint
		body = binary.LittleEndian.AppendUint16(body, 0)                     // context id
		body = binary.LittleEndian.AppendUint16(body, opnum)
		body = append(body, stub[off:off+n]...)

		flags := byte(0)
		if off == 0 {
			flags |= flagFirstFrag
		}
		if last {
			flags |= flagLastFrag
		}
		if err := c.writeRawPDU(ptypeRequest, flags, id, body); err != nil {
			return nil, err
		}
		off += n
		if last {
			break
		}
	}

	var out []byte
	for {
		frag, err := c.readPDU()
		if err != nil {
			return nil, err
		}
		if got := binary.LittleEndian.Uint32(frag[12:]); got != id {
			return nil, fmt.Errorf("dcerpc: call id %d in reply to %d", got, id)
		}

		switch frag[2] {
		case ptypeResponse:
		case ptypeFault:
			if len(frag) >= responseHdrSize+4 {
				return nil, FaultError(binary.LittleEndian.Uint32(frag[responseHdrSize:]))
			}
			return nil, FaultError(0)
		default:
			return nil, fmt.Errorf("dcerpc: pdu type %d in reply to request", frag[2])
		}

		if len(frag) < responseHdrSize {
			return nil, fmt.Errorf("dcerpc: short response (%d bytes)", len(frag))
		}
		// an auth trailer, if present, sits at the tail inside the
		// fragment length: auth length bytes plus the 8-byte sec header
		end := len(frag)
		if authLen := int(binary.LittleEndian.Uint16(frag[10:])); authLen > 0 {
			end -= authLen + 8
			if end < responseHdrSize {
				return nil, fmt.Errorf("dcerpc: auth trailer overruns response")
			}
		}
		out = append(out, frag[responseHdrSize:end]...)
		if frag[3]&flagLastFrag != 0 {
			return out, nil
		}
	}
}

// Close shuts the connection down.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) writePDU(ptype byte, callID uint32, body []byte) error {
	return c.writeRawPDU(ptype, flagFirstFrag|flagLastFrag, callID, body)
}

func (c *Client) writeRawPDU(ptype, flags byte, callID uint32, body []byte) error {
	pdu := make([]byte, headerSize, headerSize+len(body))
	pdu[0] = verMajor
	pdu[1] = verMinor
	pdu[2] = ptype
	pdu[3] = flags
	pdu[4] = drepLE
	binary.LittleEndian.PutUint16(pdu[8:], uint16(headerSize+len(body)))
	binary.LittleEndian.PutUint32(pdu[12:], callID)
	pdu = append(pdu, body...)
	_, err := c.conn.Write(pdu)
	return err
}

// readPDU reads one complete fragment, header included.
func (c *Client) readPDU() ([]byte, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(c.conn, hdr); err != nil {
		return nil, err
	}
	if hdr[0] != verMajor || hdr[1] != verMinor {
		return nil, fmt.Errorf("dcerpc: protocol version %d.%d", hdr[0], hdr[1])
	}
	fragLen := binary.LittleEndian.Uint16(hdr[8:])
	if fragLen < headerSize {
		return nil, fmt.Errorf("dcerpc: fragment length %d below header size", fragLen)
	}
	frag := make([]byte, fragLen)
	copy(frag, hdr)
	if _, err := io.ReadFull(c.conn, frag[headerSize:]); err != nil {
		return nil, err
	}
	return frag, nil
}

func appendSyntax(b []byte, s Syntax) []byte {
	b = append(b, s.UUID[:]...)
	b = binary.LittleEndian.AppendUint16(b, s.Major)
	b = binary.LittleEndian.AppendUint16(b, s.Minor)
	return b
}
