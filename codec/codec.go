// Package codec defines the contract between the decode driver and an IR codec.
//
// The driver never interprets IR bytes itself. It hands the codec a view of the unread
// bytes and reacts only to the Status of the result:
//
//   - StatusSuccess: Consumed bytes form one complete unit; the driver commits them.
//   - StatusIncomplete: the view ends mid-unit; the driver pulls more bytes and retries.
//   - StatusEOF: the stream's end-of-stream marker was found.
//   - StatusError: the bytes are corrupt; Code carries the codec's numeric error code.
//
// Codecs must be pure functions of the view: a StatusIncomplete attempt must not leave
// state behind, because the same bytes are presented again after the next pull.
package codec

import (
	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/format"
)

// Status classifies the outcome of one decode attempt.
type Status uint8

const (
	StatusSuccess    Status = iota // StatusSuccess means a complete unit was decoded.
	StatusIncomplete               // StatusIncomplete means more bytes are required.
	StatusEOF                      // StatusEOF means the end-of-stream marker was decoded.
	StatusError                    // StatusError means the bytes cannot be decoded.
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusIncomplete:
		return "Incomplete"
	case StatusEOF:
		return "EOF"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// RecordResult is the outcome of RecordCodec.DecodeNext.
//
// Fields other than Status and Code are only meaningful for StatusSuccess.
type RecordResult struct {
	Status Status
	Code   int

	// Consumed is the number of bytes the record occupies, timestamp delta included.
	Consumed int
	// TimestampDelta is the offset from the previous record's timestamp.
	TimestampDelta int64
	// TimestampDeltaSize is the number of trailing bytes of the record that encode
	// the timestamp delta.
	TimestampDeltaSize int
	// Message is the reconstructed log message.
	Message string
	// Logtype is the message template with variables replaced by placeholders.
	Logtype string
	// Attributes holds one value per declared attribute, in schema order.
	Attributes []attr.Value
}

// EncodingResult is the outcome of PreambleCodec.DecodeEncodingType.
type EncodingResult struct {
	Status   Status
	Code     int
	Consumed int
	Encoding format.EncodingType
}

// PreambleResult is the outcome of PreambleCodec.DecodePreamble.
type PreambleResult struct {
	Status   Status
	Code     int
	Consumed int
	// MetadataType identifies how Metadata is serialized.
	MetadataType byte
	// Metadata aliases the view; callers must copy or parse it before the next pull.
	Metadata []byte
}

// RecordCodec decodes one record from the front of a byte view.
type RecordCodec interface {
	// DecodeNext decodes the record at the start of view. numAttributes is the number of
	// attributes declared by the stream schema.
	DecodeNext(view []byte, numAttributes int) RecordResult
}

// PreambleCodec decodes the stream-level header.
type PreambleCodec interface {
	// DecodeEncodingType decodes the magic number that opens the stream.
	DecodeEncodingType(view []byte) EncodingResult
	// DecodePreamble decodes the metadata section that follows the magic number.
	DecodePreamble(view []byte) PreambleResult
}

// Codec is implemented by codecs handling both the preamble and records.
type Codec interface {
	RecordCodec
	PreambleCodec
}
