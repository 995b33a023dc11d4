package native

import (
	"errors"
	"fmt"
	"strings"
)

// Transcoding error kinds. Every *Error matches exactly one of these with errors.Is.
var (
	ErrAllocation          = errors.New("native allocation failed")
	ErrCorruptInput        = errors.New("corrupt native input")
	ErrInvalidFree         = errors.New("free of unknown native pointer")
	ErrDoubleFree          = errors.New("native handle already released")
	ErrForeignAllocator    = errors.New("native handle belongs to another heap")
	ErrStringTooLong       = errors.New("string exceeds native string capacity")
	ErrMalformedBlobStream = errors.New("malformed export blob stream")
	ErrInvalidScene        = errors.New("invalid scene")
	ErrUnsupported         = errors.New("unsupported native value")
)

// Phase indicates where in transcoding the error occurred.
type Phase string

const (
	PhaseEncode Phase = "encode" // managed to native
	PhaseDecode Phase = "decode" // native to managed
	PhaseFree   Phase = "free"   // native release
	PhaseAlloc  Phase = "alloc"  // heap allocation
	PhaseStream Phase = "stream" // export blob stream
)

// Error is the structured error returned by transcoding operations.
type Error struct {
	Phase  Phase
	Kind   error
	Path   []string
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Errorf builds an *Error of the given phase and kind.
func Errorf(phase Phase, kind error, format string, args ...any) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Phase: phase, Kind: kind, Detail: detail}
}

// Corrupt reports inconsistent native data found while decoding.
func Corrupt(format string, args ...any) *Error {
	return Errorf(PhaseDecode, ErrCorruptInput, format, args...)
}

// AtPath prefixes the field path of err with segment. Errors that are not
// *Error are wrapped as the cause of a new one.
func AtPath(err error, segment string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		e.Path = append([]string{segment}, e.Path...)
		return err
	}
	return &Error{Phase: PhaseDecode, Kind: ErrCorruptInput, Path: []string{segment}, Cause: err}
}

// Index formats an indexed path segment such as "meshes[3]".
func Index(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}
