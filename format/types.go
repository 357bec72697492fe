// Package format defines the enumerations shared by the IR codec, the stream reader and the CLI.
package format

import (
	"fmt"
	"strings"
)

type (
	EncodingType    uint8
	CompressionType uint8
)

const (
	EncodingFourByte  EncodingType = 0x4 // EncodingFourByte represents the four-byte IR variable encoding.
	EncodingEightByte EncodingType = 0x8 // EncodingEightByte represents the eight-byte IR variable encoding.

	CompressionNone CompressionType = 0x1 // CompressionNone represents an uncompressed stream.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard frames.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 stream framing.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 frames.
	CompressionAuto CompressionType = 0xF // CompressionAuto detects the framing from the first bytes.
)

func (e EncodingType) String() string {
	switch e {
	case EncodingFourByte:
		return "FourByte"
	case EncodingEightByte:
		return "EightByte"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionAuto:
		return "Auto"
	default:
		return "Unknown"
	}
}

// ParseCompressionType parses a case-insensitive compression name as used on the command line.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	case "auto":
		return CompressionAuto, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}
