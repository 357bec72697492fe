// Package errs defines the error values shared by every irstream package.
//
// Failures are reported as sentinel errors wrapped with additional context, so callers
// classify them with errors.Is:
//
//	rec, err := dec.Next(q)
//	switch {
//	case errors.Is(err, io.EOF):
//	    // clean end of stream
//	case errors.Is(err, errs.ErrStreamExhausted):
//	    // truncated stream
//	case errors.Is(err, errs.ErrDecode):
//	    var decErr *errs.DecodeError
//	    errors.As(err, &decErr) // decErr.Code carries the codec's numeric code
//	}
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamExhausted is returned when the byte source ran dry while a record was
	// still incomplete.
	ErrStreamExhausted = errors.New("byte source exhausted before the record was complete")

	// ErrMalformedMetadata is returned when the preamble is missing a required field
	// or cannot be parsed.
	ErrMalformedMetadata = errors.New("malformed stream metadata")

	// ErrUnsupportedEncoding is returned when the stream declares an encoding that is
	// not implemented.
	ErrUnsupportedEncoding = errors.New("unsupported stream encoding")

	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("decode error")

	// ErrQueryConfiguration is returned when a query references an attribute that the
	// stream schema does not declare.
	ErrQueryConfiguration = errors.New("invalid query configuration")

	// ErrInvalidArgument is returned for invalid call parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoMetadata is returned when records are requested before the preamble was decoded.
	ErrNoMetadata = errors.New("stream metadata has not been decoded")

	// ErrSchemaMismatch is returned when decoded attributes disagree with the schema
	// declared in the metadata.
	ErrSchemaMismatch = errors.New("decoded attributes do not match the declared schema")

	// ErrInvalidCompression is returned for unknown compression types.
	ErrInvalidCompression = errors.New("invalid compression type")
)

// DecodeError carries the numeric code reported by a codec for a fatal decode failure.
type DecodeError struct {
	Code int
	Op   string
}

// NewDecodeError creates a DecodeError for the given operation and codec code.
func NewDecodeError(op string, code int) *DecodeError {
	return &DecodeError{Code: code, Op: op}
}

func (e *DecodeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("decode error: code %d", e.Code)
	}

	return fmt.Sprintf("%s: decode error: code %d", e.Op, e.Code)
}

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
