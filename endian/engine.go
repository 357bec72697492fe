// Package endian provides the byte order engine used by the IR codec.
//
// EndianEngine combines binary.ByteOrder and binary.AppendByteOrder so a codec can both
// read fixed-width integers from a view and append them to an output buffer through one
// value:
//
//	engine := endian.GetBigEndianEngine()
//	buf = engine.AppendUint32(buf, uint32(encodedVar))
//	v := engine.Uint32(view[1:5])
//
// IR streams are always big-endian; the little-endian engine exists for callers that
// embed the codec in other framings.
//
// All functions are safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// GetIREngine returns the engine used by the IR wire format.
func GetIREngine() EndianEngine {
	return GetBigEndianEngine()
}
