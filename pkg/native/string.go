package native

import (
	"unicode/utf8"
)

const (
	// MaxStringLength is the byte capacity of an inline native string,
	// excluding the terminator.
	MaxStringLength = 1023

	// StringSize is the size of an inline string slot: length prefix plus data.
	StringSize = 4 + MaxStringLength + 1
)

// EncodeString returns the length-prefixed form of s: a little-endian int32
// byte length, the UTF-8 bytes, and one NUL that the length does not count.
func EncodeString(s string) []byte {
	b := make([]byte, 4+len(s)+1)
	le.PutUint32(b, uint32(len(s)))
	copy(b[4:], s)
	return b
}

// DecodeString reads a length-prefixed string. Decoding stops at the
// declared length, not at the first NUL.
func DecodeString(b []byte) (string, error) {
	if len(b) < 4 {
		return "", Corrupt("string prefix needs 4 bytes, have %d", len(b))
	}
	n := int32(le.Uint32(b))
	if n < 0 || int64(n) > int64(len(b)-4) {
		return "", Corrupt("string length %d exceeds %d available bytes", n, len(b)-4)
	}
	return string(b[4 : 4+n]), nil
}

// PutString writes s into an inline string slot of StringSize bytes.
func PutString(slot []byte, s string) error {
	if len(s) > MaxStringLength {
		return Errorf(PhaseEncode, ErrStringTooLong, "%d bytes, capacity %d", len(s), MaxStringLength)
	}
	clear(slot[:StringSize])
	le.PutUint32(slot, uint32(len(s)))
	copy(slot[4:], s)
	return nil
}

// Decoder converts raw native string bytes to Go strings. Bytes that are
// not valid UTF-8 go through Fallback when it is set.
type Decoder struct {
	Fallback func([]byte) (string, error)
}

// GetString reads an inline string slot.
func (d Decoder) GetString(slot []byte) (string, error) {
	n := le.Uint32(slot)
	if n > MaxStringLength {
		return "", Corrupt("inline string length %d exceeds capacity %d", n, MaxStringLength)
	}
	raw := slot[4 : 4+n]
	if !utf8.Valid(raw) && d.Fallback != nil {
		return d.Fallback(raw)
	}
	return string(raw), nil
}
