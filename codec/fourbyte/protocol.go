// Package fourbyte implements the four-byte variable encoding of the IR stream format.
//
// # Stream Layout
//
// All multi-byte integers are big-endian.
//
//	+---------------+--------------------------------------------+-----------+-----+
//	| Magic (4B)    | Preamble                                   | Record... | EOF |
//	+---------------+--------------------------------------------+-----------+-----+
//	                | 0x01 | 0x11 len:u8 or 0x12 len:u16 | JSON  |
//
// # Record Layout
//
//	+------------------------+----------------------+----------------+------------------+
//	| Attributes (schema)    | Variables (0..n)     | Logtype        | Timestamp delta  |
//	+------------------------+----------------------+----------------+------------------+
//
// Attributes appear once per declared schema entry, in order:
//
//	0x50                    null
//	0x51 len:u8  bytes      string
//	0x52 len:u16 bytes      string
//	0x53 len:i32 bytes      string
//	0x54 value:i64          integer
//
// Variables are either dictionary variables (0x11/0x12/0x13 followed by an u8/u16/i32
// length and the raw text) or four-byte encoded variables (0x18 followed by 4 bytes).
// The logtype (0x21/0x22/0x23 followed by an u8/u16/i32 length) is the message template
// with each variable replaced by a placeholder byte. The record ends with the timestamp
// delta from the previous record: 0x31 i8, 0x32 i16, 0x33 i32 or 0x34 i64.
//
// A single 0x00 byte at a record boundary marks the end of the stream.
package fourbyte

// MagicNumberLength is the length of the stream magic number.
const MagicNumberLength = 4

var (
	// MagicFourByte opens a stream using the four-byte variable encoding.
	MagicFourByte = [MagicNumberLength]byte{0xFD, 0x2F, 0xB5, 0x29}
	// MagicEightByte opens a stream using the eight-byte variable encoding.
	MagicEightByte = [MagicNumberLength]byte{0xFD, 0x2F, 0xB5, 0x30}
)

// Tag bytes of the stream.
const (
	TagEOF byte = 0x00

	TagMetadataJSON      byte = 0x01
	TagMetadataLenUByte  byte = 0x11
	TagMetadataLenUShort byte = 0x12

	TagVarStrLenUByte  byte = 0x11
	TagVarStrLenUShort byte = 0x12
	TagVarStrLenInt    byte = 0x13
	TagVarFourByte     byte = 0x18

	TagLogtypeStrLenUByte  byte = 0x21
	TagLogtypeStrLenUShort byte = 0x22
	TagLogtypeStrLenInt    byte = 0x23

	TagTimestampDeltaByte  byte = 0x31
	TagTimestampDeltaShort byte = 0x32
	TagTimestampDeltaInt   byte = 0x33
	TagTimestampDeltaLong  byte = 0x34

	TagAttrNull         byte = 0x50
	TagAttrStrLenUByte  byte = 0x51
	TagAttrStrLenUShort byte = 0x52
	TagAttrStrLenInt    byte = 0x53
	TagAttrInt          byte = 0x54
)

// MaxMetadataLength is the largest JSON metadata section a preamble can carry.
const MaxMetadataLength = 1<<16 - 1

// Placeholder bytes of a logtype.
const (
	PlaceholderInteger    byte = 0x11
	PlaceholderDictionary byte = 0x12
	PlaceholderFloat      byte = 0x13
	PlaceholderEscape     byte = '\\'
)

// Error codes reported through codec results.
const (
	CodeSuccess             = 0
	CodeDecodeError         = 1
	CodeEOF                 = 2
	CodeCorrupted           = 3
	CodeIncomplete          = 4
	CodeUnsupportedMetadata = 5
)

func isPlaceholder(c byte) bool {
	return c == PlaceholderInteger || c == PlaceholderDictionary || c == PlaceholderFloat
}
