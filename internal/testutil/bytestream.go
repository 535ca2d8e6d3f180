package testutil

import "encoding/binary"

// ByteStream derives deterministic values from fuzz input.
//
// Values are taken from the input front to back. Once it is exhausted every
// value is zero, so the same input always drives the same sequence of file
// operations.
type ByteStream struct {
	bytes []byte
	pos   int
}

// NewByteStream creates a stream over the given bytes.
func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{bytes: b}
}

// HasMore reports whether unread bytes remain.
func (s *ByteStream) HasMore() bool {
	return s.pos < len(s.bytes)
}

// NextByte returns the next byte, or 0 if exhausted.
func (s *ByteStream) NextByte() byte {
	if s.pos >= len(s.bytes) {
		return 0
	}

	v := s.bytes[s.pos]
	s.pos++

	return v
}

// NextBytes returns n bytes of payload, zero padded once exhausted.
func (s *ByteStream) NextBytes(n int) []byte {
	out := make([]byte, max(n, 0))
	for i := range out {
		out[i] = s.NextByte()
	}

	return out
}

// NextInt returns an int in [0, maxVal) derived from the next byte.
func (s *ByteStream) NextInt(maxVal int) int {
	if maxVal <= 0 {
		return 0
	}

	return int(s.NextByte()) % maxVal
}

// NextBool returns a boolean derived from the next byte.
func (s *ByteStream) NextBool() bool {
	return s.NextByte()&1 == 1
}

// NextOffset returns a file offset in [0, limit], taken from the next two
// bytes. Offsets past the end of a file are as interesting as offsets inside
// it, so callers usually pass a limit somewhat larger than the file.
func (s *ByteStream) NextOffset(limit uint64) uint64 {
	if limit == 0 {
		return 0
	}

	v := uint64(binary.LittleEndian.Uint16(s.NextBytes(2)))

	return v % (limit + 1)
}

// NextPattern returns a non-empty search pattern of at most maxLen bytes
// drawn from a small alphabet, so that matches are frequent.
func (s *ByteStream) NextPattern(maxLen int) []byte {
	if maxLen <= 0 {
		return nil
	}

	out := s.NextBytes(1 + s.NextInt(maxLen))
	for i := range out {
		out[i] = 'a' + out[i]%3
	}

	return out
}
