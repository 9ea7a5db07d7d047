package svcctl

import (
	"encoding/binary"
	"fmt"
)

// Request and response stubs use the NDR transfer syntax: little-endian
// DWORDs, unique pointers encoded as a nonzero referent ID (or four zero
// bytes for null), strings as conformant-varying arrays of UTF-16 code
// units, and 4-byte alignment between fields.
//
// Reference: https://pubs.opengroup.org/onlinepubs/9629399/chap14.htm

var errTruncated = fmt.Errorf("%w: truncated stub", ErrDecode)

// wideToBytes converts UTF-16 code units to their little-endian wire
// bytes. nil stays nil so optional buffers keep marshaling as null
// pointers.
func wideToBytes(s []uint16) []byte {
	if s == nil {
		return nil
	}
	b := make([]byte, 0, len(s)*2)
	for _, u := range s {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return b
}

// bytesToWide converts little-endian wire bytes back to UTF-16 code
// units, the inverse of wideToBytes. A trailing odd byte is dropped.
func bytesToWide(b []byte) []uint16 {
	s := make([]uint16, len(b)/2)
	for i := range s {
		s[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return s
}

// stubWriter assembles an NDR request stub.
type stubWriter struct {
	buf []byte
	ref uint32
}

// newReferent returns the next unique pointer referent ID.
func (w *stubWriter) newReferent() uint32 {
	w.ref += 4
	return 0x20000 + w.ref
}

func (w *stubWriter) align(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *stubWriter) writeUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *stubWriter) writeHandle(h [handleSize]byte) {
	w.buf = append(w.buf, h[:]...)
}

// writeWideString writes a conformant-varying UTF-16 string. The buffer
// must already carry its null terminator; maxCount and actualCount both
// count it, matching how the native marshaler encodes [in, string] params.
func (w *stubWriter) writeWideString(s []uint16) {
	n := uint32(len(s))
	w.writeUint32(n) // maxCount
	w.writeUint32(0) // offset
	w.writeUint32(n) // actualCount
	for _, u := range s {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, u)
	}
	w.align(4)
}

// writeUniqueWideString writes a unique pointer to a wide string, or a
// null pointer when s is nil.
func (w *stubWriter) writeUniqueWideString(s []uint16) {
	if s == nil {
		w.writeUint32(0)
		return
	}
	w.writeUint32(w.newReferent())
	w.writeWideString(s)
}

// writeUniqueUint32 writes a unique pointer to a DWORD, or a null pointer
// when v is nil.
func (w *stubWriter) writeUniqueUint32(v *uint32) {
	if v == nil {
		w.writeUint32(0)
		return
	}
	w.writeUint32(w.newReferent())
	w.writeUint32(*v)
}

// writeUniqueBytes writes a unique pointer to a conformant byte array, or
// a null pointer when b is nil.
func (w *stubWriter) writeUniqueBytes(b []byte) {
	if b == nil {
		w.writeUint32(0)
		return
	}
	w.writeUint32(w.newReferent())
	w.writeUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
	w.align(4)
}

// writeBytes appends raw bytes with no length prefix.
func (w *stubWriter) writeBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// writeConformantBytes writes a conformant byte array without a referent,
// the form reply buffers take.
func (w *stubWriter) writeConformantBytes(b []byte) {
	w.writeUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
	w.align(4)
}

func (w *stubWriter) bytes() []byte {
	return w.buf
}

// stubReader parses an NDR response stub. The first malformed field sticks
// as the reader's error; every later read returns zero values, so call
// sites check err once after the final field.
type stubReader struct {
	b   []byte
	off int
	err error
}

func newStubReader(b []byte) *stubReader {
	return &stubReader{b: b}
}

func (r *stubReader) fail() {
	if r.err == nil {
		r.err = errTruncated
	}
}

func (r *stubReader) align(n int) {
	if pad := r.off % n; pad != 0 {
		r.skip(n - pad)
	}
}

func (r *stubReader) skip(n int) {
	if r.err != nil {
		return
	}
	if r.off+n > len(r.b) {
		r.fail()
		return
	}
	r.off += n
}

func (r *stubReader) uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.b) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *stubReader) handle() [handleSize]byte {
	var h [handleSize]byte
	if r.err != nil {
		return h
	}
	if r.off+handleSize > len(r.b) {
		r.fail()
		return h
	}
	copy(h[:], r.b[r.off:])
	r.off += handleSize
	return h
}

func (r *stubReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.fail()
		return nil
	}
	b := r.b[r.off : r.off+n]
	r.off += n
	return b
}

// wideString reads a conformant-varying UTF-16 string, terminator
// included, and leaves the reader aligned for the next field.
func (r *stubReader) wideString() []uint16 {
	maxCount := r.uint32()
	offset := r.uint32()
	actual := r.uint32()
	if r.err != nil {
		return nil
	}
	if offset != 0 || actual > maxCount || actual > uint32(len(r.b)) {
		r.fail()
		return nil
	}
	raw := r.bytes(int(actual) * 2)
	if raw == nil {
		return nil
	}
	s := make([]uint16, actual)
	for i := range s {
		s[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	r.align(4)
	return s
}

// uniqueWideString reads a unique pointer to a wide string; a null
// referent yields nil.
func (r *stubReader) uniqueWideString() []uint16 {
	if r.uint32() == 0 {
		return nil
	}
	return r.wideString()
}

// conformantBytes reads a conformant byte array and leaves the reader
// aligned for the next field.
func (r *stubReader) conformantBytes() []byte {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if n > maxNegotiatedBuffer {
		r.fail()
		return nil
	}
	b := r.bytes(int(n))
	r.align(4)
	return b
}

// uniqueUint32 reads a unique pointer to a DWORD; a null referent yields
// zero.
func (r *stubReader) uniqueUint32() uint32 {
	if r.uint32() == 0 {
		return 0
	}
	return r.uint32()
}
