package svcctl

import (
	"strings"
	"unicode/utf16"
)

// encodeWide converts s into a null-terminated UTF-16 buffer. It fails if
// s contains an embedded nul character, since the target encoding is
// null-terminated and the authority would silently truncate the string at
// the embedded nul. field names the input in the returned error.
func encodeWide(field, s string) ([]uint16, error) {
	if strings.ContainsRune(s, 0) {
		return nil, &NulByteError{Field: field}
	}
	return append(utf16.Encode([]rune(s)), 0), nil
}

// encodeWideOptional is encodeWide with empty input mapped to nil. A nil
// buffer marshals as a null pointer, which selects the authority default
// for the parameter.
func encodeWideOptional(field, s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	return encodeWide(field, s)
}

// decodeWide converts a null-terminated UTF-16 buffer back to a string.
// Decoding never fails: code units that do not form valid UTF-16 are
// replaced with the Unicode replacement character.
func decodeWide(buf []uint16) string {
	for i, u := range buf {
		if u == 0 {
			buf = buf[:i]
			break
		}
	}
	return string(utf16.Decode(buf))
}

// wideBlock encodes items as a block of null-terminated strings followed
// by a second terminating nul, the layout the authority uses for
// dependency lists. An empty list returns nil, which marshals as a null
// pointer.
func wideBlock(field string, items []string) ([]uint16, error) {
	if len(items) == 0 {
		return nil, nil
	}
	var block []uint16
	for _, item := range items {
		w, err := encodeWide(field, item)
		if err != nil {
			return nil, err
		}
		block = append(block, w...)
	}
	return append(block, 0), nil
}

// splitWideBlock splits a double-null-terminated block back into its
// member strings. The inverse of wideBlock, used when decoding dependency
// lists from configuration records.
func splitWideBlock(buf []uint16) []string {
	var items []string
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] != 0 {
			continue
		}
		if i == start {
			break
		}
		items = append(items, string(utf16.Decode(buf[start:i])))
		start = i + 1
	}
	return items
}
