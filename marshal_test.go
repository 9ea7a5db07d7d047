package svcctl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestWriteWideString(t *testing.T) {
	var w stubWriter
	w.writeWideString([]uint16{'a', 'b', 0})

	// maxCount, offset, actualCount, then UTF-16LE data padded to a
	// 4-byte boundary.
	want := []byte{
		3, 0, 0, 0,
		0, 0, 0, 0,
		3, 0, 0, 0,
		'a', 0, 'b', 0, 0, 0, 0, 0,
	}
	if !bytes.Equal(w.bytes(), want) {
		t.Errorf("writeWideString() = % x, want % x", w.bytes(), want)
	}

	r := newStubReader(w.bytes())
	got := r.wideString()
	if r.err != nil {
		t.Fatalf("wideString(): %v", r.err)
	}
	if decodeWide(got) != "ab" {
		t.Errorf("read back %q, want %q", decodeWide(got), "ab")
	}
	if r.off != len(w.bytes()) {
		t.Errorf("reader offset = %d, want %d", r.off, len(w.bytes()))
	}
}

func TestWriteUniquePointers(t *testing.T) {
	var w stubWriter
	w.writeUniqueWideString(nil)
	w.writeUniqueUint32(nil)
	w.writeUniqueBytes(nil)
	if !bytes.Equal(w.bytes(), make([]byte, 12)) {
		t.Errorf("null pointers = % x, want twelve zero bytes", w.bytes())
	}

	var w2 stubWriter
	v := uint32(7)
	w2.writeUniqueUint32(&v)
	w2.writeUniqueWideString([]uint16{'x', 0})

	r := newStubReader(w2.bytes())
	if got := r.uniqueUint32(); got != 7 {
		t.Errorf("uniqueUint32() = %d, want 7", got)
	}
	if got := decodeWide(r.uniqueWideString()); got != "x" {
		t.Errorf("uniqueWideString() = %q, want %q", got, "x")
	}
	if r.err != nil {
		t.Fatal(r.err)
	}
}

func TestReferentIDsUnique(t *testing.T) {
	var w stubWriter
	a := w.newReferent()
	b := w.newReferent()
	if a == 0 || b == 0 {
		t.Error("referent IDs must be nonzero")
	}
	if a == b {
		t.Errorf("referent IDs not unique: %#x", a)
	}
}

func TestStubReaderTruncation(t *testing.T) {
	r := newStubReader([]byte{1, 2})
	if got := r.uint32(); got != 0 {
		t.Errorf("uint32() on short buffer = %d, want 0", got)
	}
	if !errors.Is(r.err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode in chain", r.err)
	}

	// The error sticks: later reads stay zero without panicking.
	if got := r.handle(); got != ([handleSize]byte{}) {
		t.Error("handle() after error should be zero")
	}
	if got := r.bytes(4); got != nil {
		t.Error("bytes() after error should be nil")
	}
}

func TestStubReaderWideStringValidation(t *testing.T) {
	tests := []struct {
		name               string
		max, offset, actCt uint32
	}{
		{name: "nonzero offset", max: 2, offset: 1, actCt: 2},
		{name: "actual beyond max", max: 1, offset: 0, actCt: 2},
		{name: "actual beyond buffer", max: 0xFFFF, offset: 0, actCt: 0xFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b []byte
			b = binary.LittleEndian.AppendUint32(b, tt.max)
			b = binary.LittleEndian.AppendUint32(b, tt.offset)
			b = binary.LittleEndian.AppendUint32(b, tt.actCt)
			b = append(b, 'a', 0, 0, 0)

			r := newStubReader(b)
			if got := r.wideString(); got != nil {
				t.Errorf("wideString() = %v, want nil", got)
			}
			if !errors.Is(r.err, ErrDecode) {
				t.Errorf("err = %v, want ErrDecode in chain", r.err)
			}
		})
	}
}

func TestConformantBytes(t *testing.T) {
	var w stubWriter
	w.writeConformantBytes([]byte{1, 2, 3})
	w.writeUint32(0xAABBCCDD)

	r := newStubReader(w.bytes())
	if got := r.conformantBytes(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("conformantBytes() = %v, want [1 2 3]", got)
	}
	// Alignment consumed, next field reads cleanly.
	if got := r.uint32(); got != 0xAABBCCDD {
		t.Errorf("trailing uint32 = %#x, want 0xAABBCCDD", got)
	}
	if r.err != nil {
		t.Fatal(r.err)
	}
}

func TestConformantBytesOversized(t *testing.T) {
	var b []byte
	b = binary.LittleEndian.AppendUint32(b, maxNegotiatedBuffer+1)

	r := newStubReader(b)
	if got := r.conformantBytes(); got != nil {
		t.Error("oversized count should not yield data")
	}
	if !errors.Is(r.err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode in chain", r.err)
	}
}

func TestWideToBytes(t *testing.T) {
	if wideToBytes(nil) != nil {
		t.Error("wideToBytes(nil) should stay nil")
	}
	b := wideToBytes([]uint16{0x0102, 0x0304})
	if !bytes.Equal(b, []byte{0x02, 0x01, 0x04, 0x03}) {
		t.Errorf("wideToBytes() = % x", b)
	}
	back := bytesToWide(b)
	if len(back) != 2 || back[0] != 0x0102 || back[1] != 0x0304 {
		t.Errorf("bytesToWide() = %v", back)
	}
}
