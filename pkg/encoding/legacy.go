// Package encoding decodes native names that were not written as UTF-8.
// Older exporters store node and material names in a legacy code page; the
// transcoder only calls into here when the raw bytes fail UTF-8 validation.
package encoding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Charset names accepted by Lookup.
const (
	CharsetNone        = ""
	CharsetWindows1252 = "windows-1252"
	CharsetLatin1      = "iso-8859-1"
	CharsetEUCKR       = "euc-kr"
	CharsetShiftJIS    = "shift-jis"
)

// Lookup returns the legacy encoding registered under name.
// CharsetNone yields a nil encoding.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CharsetNone:
		return nil, nil
	case CharsetWindows1252, "cp1252":
		return charmap.Windows1252, nil
	case CharsetLatin1, "latin1":
		return charmap.ISO8859_1, nil
	case CharsetEUCKR, "cp949":
		return korean.EUCKR, nil
	case CharsetShiftJIS, "sjis":
		return japanese.ShiftJIS, nil
	default:
		return nil, fmt.Errorf("unknown legacy charset %q", name)
	}
}

// Fallback returns a decode function for bytes that are not valid UTF-8,
// or nil when name is CharsetNone.
func Fallback(name string) (func([]byte) (string, error), error) {
	enc, err := Lookup(name)
	if err != nil || enc == nil {
		return nil, err
	}
	return func(data []byte) (string, error) {
		return Decode(enc, data)
	}, nil
}

// Decode converts legacy-encoded bytes to a UTF-8 string.
func Decode(enc encoding.Encoding, data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decoding legacy text: %w", err)
	}
	return string(result), nil
}

// Encode converts a UTF-8 string to the legacy encoding.
func Encode(enc encoding.Encoding, s string) ([]byte, error) {
	result, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding legacy text: %w", err)
	}
	return result, nil
}
