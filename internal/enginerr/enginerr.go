// Package enginerr defines the single result-error type shared by every
// component boundary in the engine, normalizing the mix of error styles a
// hand-ported C++ service would otherwise leak into Go.
package enginerr

import "fmt"

// Kind classifies an Error for transport-layer mapping (HTTP status, wire
// error_code) without string-matching messages.
type Kind string

const (
	InvalidArgument Kind = "INVALID_ARGUMENT"
	NotFound        Kind = "NOT_FOUND"
	Io              Kind = "IO"
	Internal        Kind = "INTERNAL"
	Cancelled       Kind = "CANCELLED"
)

// Error is the one result-error type used at every component boundary
// (Store, Compiler, Renderer, Engine front-end). Context carries the
// offending entity (clip id, media path, ...) so user-visible messages can
// name it without re-deriving it from Message.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Kind, e.Message, e.Context)
}

func New(kind Kind, message string, kv ...string) *Error {
	ctx := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		ctx[kv[i]] = kv[i+1]
	}
	return &Error{Kind: kind, Message: message, Context: ctx}
}

func Invalid(message string, kv ...string) *Error { return New(InvalidArgument, message, kv...) }
func NotFoundf(message string, kv ...string) *Error { return New(NotFound, message, kv...) }
func IoErr(message string, kv ...string) *Error    { return New(Io, message, kv...) }
func Internalf(message string, kv ...string) *Error { return New(Internal, message, kv...) }
func Cancelledf(message string, kv ...string) *Error { return New(Cancelled, message, kv...) }

// KindOf extracts the Kind from any error, defaulting to Internal for
// errors that did not originate from this package (e.g. raw I/O errors
// bubbling up from os.Open).
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Internal
}
