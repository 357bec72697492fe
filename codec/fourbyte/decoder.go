package fourbyte

import (
	"strings"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/codec"
	"github.com/arloliu/irstream/format"
)

// Codec decodes four-byte encoded IR streams.
//
// Codec is stateless and safe for concurrent use; all methods are pure functions of
// the view they receive.
type Codec struct{}

var _ codec.Codec = Codec{}

// New returns a four-byte IR codec.
func New() Codec {
	return Codec{}
}

// DecodeEncodingType decodes the magic number at the start of view.
func (Codec) DecodeEncodingType(view []byte) codec.EncodingResult {
	if len(view) < MagicNumberLength {
		return codec.EncodingResult{Status: codec.StatusIncomplete, Code: CodeIncomplete}
	}

	var magic [MagicNumberLength]byte
	copy(magic[:], view)

	switch magic {
	case MagicFourByte:
		return codec.EncodingResult{Consumed: MagicNumberLength, Encoding: format.EncodingFourByte}
	case MagicEightByte:
		return codec.EncodingResult{Consumed: MagicNumberLength, Encoding: format.EncodingEightByte}
	default:
		return codec.EncodingResult{Status: codec.StatusError, Code: CodeCorrupted}
	}
}

// DecodePreamble decodes the metadata section following the magic number.
func (Codec) DecodePreamble(view []byte) codec.PreambleResult {
	r := newByteReader(view)

	metadataType, ok := r.readByte()
	if !ok {
		return codec.PreambleResult{Status: codec.StatusIncomplete, Code: CodeIncomplete}
	}
	if metadataType != TagMetadataJSON {
		return codec.PreambleResult{Status: codec.StatusError, Code: CodeUnsupportedMetadata}
	}

	lengthTag, ok := r.readByte()
	if !ok {
		return codec.PreambleResult{Status: codec.StatusIncomplete, Code: CodeIncomplete}
	}

	var length int
	switch lengthTag {
	case TagMetadataLenUByte:
		length, ok, _ = r.readLength(1)
	case TagMetadataLenUShort:
		length, ok, _ = r.readLength(2)
	default:
		return codec.PreambleResult{Status: codec.StatusError, Code: CodeCorrupted}
	}
	if !ok {
		return codec.PreambleResult{Status: codec.StatusIncomplete, Code: CodeIncomplete}
	}

	metadata, ok := r.readBytes(length)
	if !ok {
		return codec.PreambleResult{Status: codec.StatusIncomplete, Code: CodeIncomplete}
	}

	return codec.PreambleResult{
		Consumed:     r.pos,
		MetadataType: metadataType,
		Metadata:     metadata,
	}
}

// DecodeNext decodes the record at the start of view.
func (Codec) DecodeNext(view []byte, numAttributes int) codec.RecordResult {
	r := newByteReader(view)

	first, ok := r.peekByte()
	if !ok {
		return incomplete()
	}
	if first == TagEOF {
		return codec.RecordResult{Status: codec.StatusEOF, Code: CodeEOF, Consumed: 1}
	}

	var attrs []attr.Value
	if numAttributes > 0 {
		attrs = make([]attr.Value, numAttributes)
		for i := range attrs {
			v, res, ok := decodeAttribute(&r)
			if !ok {
				return res
			}
			attrs[i] = v
		}
	}

	var (
		dictVars    []string
		encodedVars []uint32
		logtype     string
		hasLogtype  bool
	)
	for !hasLogtype {
		tag, ok := r.readByte()
		if !ok {
			return incomplete()
		}

		switch tag {
		case TagVarFourByte:
			v, ok := r.readUint32()
			if !ok {
				return incomplete()
			}
			encodedVars = append(encodedVars, v)
		case TagVarStrLenUByte, TagVarStrLenUShort, TagVarStrLenInt:
			s, ok, valid := r.readString(lengthWidth(tag - TagVarStrLenUByte))
			if !valid {
				return failure(CodeCorrupted)
			}
			if !ok {
				return incomplete()
			}
			dictVars = append(dictVars, s)
		case TagLogtypeStrLenUByte, TagLogtypeStrLenUShort, TagLogtypeStrLenInt:
			s, ok, valid := r.readString(lengthWidth(tag - TagLogtypeStrLenUByte))
			if !valid {
				return failure(CodeCorrupted)
			}
			if !ok {
				return incomplete()
			}
			logtype, hasLogtype = s, true
		default:
			return failure(CodeCorrupted)
		}
	}

	deltaStart := r.pos
	delta, ok, valid := decodeTimestampDelta(&r)
	if !valid {
		return failure(CodeCorrupted)
	}
	if !ok {
		return incomplete()
	}

	message, ok := reconstructMessage(logtype, dictVars, encodedVars)
	if !ok {
		return failure(CodeDecodeError)
	}

	return codec.RecordResult{
		Status:             codec.StatusSuccess,
		Consumed:           r.pos,
		TimestampDelta:     delta,
		TimestampDeltaSize: r.pos - deltaStart,
		Message:            message,
		Logtype:            logtype,
		Attributes:         attrs,
	}
}

func incomplete() codec.RecordResult {
	return codec.RecordResult{Status: codec.StatusIncomplete, Code: CodeIncomplete}
}

func failure(code int) codec.RecordResult {
	return codec.RecordResult{Status: codec.StatusError, Code: code}
}

// lengthWidth maps a tag offset (0, 1, 2) within a length-tag family to the byte width
// of the length field.
func lengthWidth(offset byte) int {
	switch offset {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 4
	}
}

func decodeAttribute(r *byteReader) (attr.Value, codec.RecordResult, bool) {
	tag, ok := r.readByte()
	if !ok {
		return attr.Value{}, incomplete(), false
	}

	switch tag {
	case TagAttrNull:
		return attr.Null(), codec.RecordResult{}, true
	case TagAttrStrLenUByte, TagAttrStrLenUShort, TagAttrStrLenInt:
		s, ok, valid := r.readString(lengthWidth(tag - TagAttrStrLenUByte))
		if !valid {
			return attr.Value{}, failure(CodeCorrupted), false
		}
		if !ok {
			return attr.Value{}, incomplete(), false
		}

		return attr.String(s), codec.RecordResult{}, true
	case TagAttrInt:
		v, ok := r.readUint64()
		if !ok {
			return attr.Value{}, incomplete(), false
		}

		return attr.Int(int64(v)), codec.RecordResult{}, true //nolint:gosec
	default:
		return attr.Value{}, failure(CodeCorrupted), false
	}
}

func decodeTimestampDelta(r *byteReader) (delta int64, ok bool, valid bool) {
	tag, ok := r.readByte()
	if !ok {
		return 0, false, true
	}

	switch tag {
	case TagTimestampDeltaByte:
		b, ok := r.readByte()
		return int64(int8(b)), ok, true //nolint:gosec
	case TagTimestampDeltaShort:
		v, ok := r.readUint16()
		return int64(int16(v)), ok, true //nolint:gosec
	case TagTimestampDeltaInt:
		v, ok := r.readUint32()
		return int64(int32(v)), ok, true //nolint:gosec
	case TagTimestampDeltaLong:
		v, ok := r.readUint64()
		return int64(v), ok, true //nolint:gosec
	default:
		return 0, true, false
	}
}

// reconstructMessage replaces the placeholders of logtype with the decoded variables.
//
// ok is false when the placeholders and variables disagree in number or an encoded
// float is invalid.
func reconstructMessage(logtype string, dictVars []string, encodedVars []uint32) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(logtype) + 8*(len(dictVars)+len(encodedVars)))

	dictIdx, encodedIdx := 0, 0
	for i := 0; i < len(logtype); i++ {
		c := logtype[i]
		switch c {
		case PlaceholderInteger, PlaceholderFloat:
			if encodedIdx >= len(encodedVars) {
				return "", false
			}
			v := encodedVars[encodedIdx]
			encodedIdx++

			if c == PlaceholderInteger {
				sb.WriteString(decodeInteger(v))
				continue
			}
			f, ok := decodeFloat(v)
			if !ok {
				return "", false
			}
			sb.WriteString(f)
		case PlaceholderDictionary:
			if dictIdx >= len(dictVars) {
				return "", false
			}
			sb.WriteString(dictVars[dictIdx])
			dictIdx++
		case PlaceholderEscape:
			i++
			if i >= len(logtype) {
				return "", false
			}
			sb.WriteByte(logtype[i])
		default:
			sb.WriteByte(c)
		}
	}

	if dictIdx != len(dictVars) || encodedIdx != len(encodedVars) {
		return "", false
	}

	return sb.String(), true
}
