package fourbyte

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/endian"
	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/internal/pool"
	"github.com/arloliu/irstream/metadata"
)

var errEncoderClosed = errors.New("encoder is closed")

// Encoder writes a four-byte encoded IR stream.
//
// The preamble is written by NewEncoder; every Encode call appends one record and Close
// appends the end-of-stream marker. Timestamps are stored as deltas from the previous
// record, starting at the metadata reference timestamp.
//
// Note: an Encoder is NOT thread-safe.
type Encoder struct {
	w      io.Writer
	meta   *metadata.Metadata
	engine endian.EndianEngine
	prevTs int64
	closed bool
}

// NewEncoder writes the magic number and the preamble of meta to w.
//
// Parameters:
//   - w: Destination of the stream
//   - meta: Stream metadata; must use the four-byte encoding
//
// Returns:
//   - *Encoder: Encoder positioned after the preamble
//   - error: errs.ErrInvalidArgument for nil metadata or an oversized preamble, or the
//     write error of w
func NewEncoder(w io.Writer, meta *metadata.Metadata) (*Encoder, error) {
	if w == nil || meta == nil {
		return nil, fmt.Errorf("%w: encoder requires a writer and metadata", errs.ErrInvalidArgument)
	}
	if !meta.IsFourByteEncoding() {
		return nil, fmt.Errorf("%w: %s variable encoding", errs.ErrUnsupportedEncoding, meta.Encoding())
	}

	bb := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(bb)

	var err error
	bb.B, err = AppendPreamble(bb.B, meta)
	if err != nil {
		return nil, err
	}
	if _, err := bb.WriteTo(w); err != nil {
		return nil, fmt.Errorf("write preamble: %w", err)
	}

	return &Encoder{
		w:      w,
		meta:   meta,
		engine: endian.GetIREngine(),
		prevTs: meta.ReferenceTimestamp(),
	}, nil
}

// Encode appends one record.
//
// attrs must hold one value per declared attribute in schema order; passing no values
// for a schema with attributes writes all of them as null.
func (e *Encoder) Encode(timestamp int64, message string, attrs ...attr.Value) error {
	if e.closed {
		return errEncoderClosed
	}

	schema := e.meta.Schema()
	if len(attrs) == 0 && len(schema) > 0 {
		attrs = make([]attr.Value, len(schema))
	}
	if !attr.Validate(schema, attrs) {
		return fmt.Errorf("%w: %d attribute values do not match the schema", errs.ErrSchemaMismatch, len(attrs))
	}

	bb := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(bb)

	var err error
	bb.B, err = AppendRecord(bb.B, timestamp-e.prevTs, message, attrs)
	if err != nil {
		return err
	}
	if _, err := bb.WriteTo(e.w); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	e.prevTs = timestamp

	return nil
}

// Close writes the end-of-stream marker. It does not close the underlying writer.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if _, err := e.w.Write([]byte{TagEOF}); err != nil {
		return fmt.Errorf("write end of stream: %w", err)
	}

	return nil
}

// AppendPreamble appends the magic number and the JSON preamble of meta to dst.
func AppendPreamble(dst []byte, meta *metadata.Metadata) ([]byte, error) {
	data, err := meta.EncodeJSON()
	if err != nil {
		return dst, fmt.Errorf("encode metadata: %w", err)
	}
	if len(data) > MaxMetadataLength {
		return dst, fmt.Errorf("%w: metadata of %d bytes exceeds %d", errs.ErrInvalidArgument, len(data), MaxMetadataLength)
	}

	engine := endian.GetIREngine()
	dst = append(dst, MagicFourByte[:]...)
	dst = append(dst, TagMetadataJSON)
	if len(data) <= math.MaxUint8 {
		dst = append(dst, TagMetadataLenUByte, byte(len(data)))
	} else {
		dst = append(dst, TagMetadataLenUShort)
		dst = engine.AppendUint16(dst, uint16(len(data))) //nolint:gosec
	}

	return append(dst, data...), nil
}

// AppendRecord appends one encoded record to dst.
//
// Parameters:
//   - dst: Destination buffer
//   - delta: Timestamp offset from the previous record
//   - message: Log message; variables are extracted automatically
//   - attrs: One value per declared attribute, in schema order
func AppendRecord(dst []byte, delta int64, message string, attrs []attr.Value) ([]byte, error) {
	engine := endian.GetIREngine()

	var err error
	for _, v := range attrs {
		if dst, err = appendAttribute(dst, engine, v); err != nil {
			return dst, err
		}
	}

	logtype := make([]byte, 0, len(message))
	pos := 0
	for pos < len(message) {
		begin, end := nextVariable(message, pos)
		logtype = appendEscapedConstant(logtype, message[pos:begin])
		if begin == end {
			break
		}

		token := message[begin:end]
		if v, ok := encodeInteger(token); ok {
			dst = append(dst, TagVarFourByte)
			dst = engine.AppendUint32(dst, v)
			logtype = append(logtype, PlaceholderInteger)
		} else if v, ok := encodeFloat(token); ok {
			dst = append(dst, TagVarFourByte)
			dst = engine.AppendUint32(dst, v)
			logtype = append(logtype, PlaceholderFloat)
		} else {
			if dst, err = appendString(dst, engine, TagVarStrLenUByte, token); err != nil {
				return dst, err
			}
			logtype = append(logtype, PlaceholderDictionary)
		}
		pos = end
	}

	if dst, err = appendString(dst, engine, TagLogtypeStrLenUByte, string(logtype)); err != nil {
		return dst, err
	}

	return appendTimestampDelta(dst, engine, delta), nil
}

func appendEscapedConstant(logtype []byte, constant string) []byte {
	for i := 0; i < len(constant); i++ {
		c := constant[i]
		if isPlaceholder(c) || c == PlaceholderEscape {
			logtype = append(logtype, PlaceholderEscape)
		}
		logtype = append(logtype, c)
	}

	return logtype
}

// appendString appends a length-prefixed string; baseTag is the u8 tag of the family,
// the u16 and i32 tags follow it.
func appendString(dst []byte, engine endian.EndianEngine, baseTag byte, s string) ([]byte, error) {
	switch n := len(s); {
	case n <= math.MaxUint8:
		dst = append(dst, baseTag, byte(n))
	case n <= math.MaxUint16:
		dst = append(dst, baseTag+1)
		dst = engine.AppendUint16(dst, uint16(n)) //nolint:gosec
	case n <= math.MaxInt32:
		dst = append(dst, baseTag+2)
		dst = engine.AppendUint32(dst, uint32(n)) //nolint:gosec
	default:
		return dst, fmt.Errorf("%w: string of %d bytes is too long", errs.ErrInvalidArgument, n)
	}

	return append(dst, s...), nil
}

func appendAttribute(dst []byte, engine endian.EndianEngine, v attr.Value) ([]byte, error) {
	if s, ok := v.Str(); ok {
		return appendString(dst, engine, TagAttrStrLenUByte, s)
	}
	if n, ok := v.Int(); ok {
		dst = append(dst, TagAttrInt)
		return engine.AppendUint64(dst, uint64(n)), nil //nolint:gosec
	}

	return append(dst, TagAttrNull), nil
}

func appendTimestampDelta(dst []byte, engine endian.EndianEngine, delta int64) []byte {
	switch {
	case delta >= math.MinInt8 && delta <= math.MaxInt8:
		return append(dst, TagTimestampDeltaByte, byte(int8(delta))) //nolint:gosec
	case delta >= math.MinInt16 && delta <= math.MaxInt16:
		dst = append(dst, TagTimestampDeltaShort)
		return engine.AppendUint16(dst, uint16(int16(delta))) //nolint:gosec
	case delta >= math.MinInt32 && delta <= math.MaxInt32:
		dst = append(dst, TagTimestampDeltaInt)
		return engine.AppendUint32(dst, uint32(int32(delta))) //nolint:gosec
	default:
		dst = append(dst, TagTimestampDeltaLong)
		return engine.AppendUint64(dst, uint64(delta)) //nolint:gosec
	}
}
