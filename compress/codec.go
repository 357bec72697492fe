package compress

import (
	"fmt"
	"io"

	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/format"
)

// Decompressor wraps a compressed byte source into a decompressing reader.
type Decompressor interface {
	// NewReader returns a reader yielding the decompressed bytes of r.
	//
	// Closing the returned reader releases pooled resources; it does not close r.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Compressor wraps a byte sink into a compressing writer.
type Compressor interface {
	// NewWriter returns a writer compressing into w.
	//
	// Close flushes the final frame; it does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

// Codec combines both directions of one compression algorithm.
type Codec interface {
	Compressor
	Decompressor

	// Type returns the compression algorithm.
	Type() format.CompressionType
}

// CreateCodec returns the codec of the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, or LZ4)
//
// Returns:
//   - Codec: Codec for the specified type
//   - error: errs.ErrInvalidCompression for CompressionAuto or unknown types
func CreateCodec(compressionType format.CompressionType) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCodec(), nil
	case format.CompressionZstd:
		return NewZstdCodec(), nil
	case format.CompressionS2:
		return NewS2Codec(), nil
	case format.CompressionLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCompression, compressionType)
	}
}

// NewWriter returns a writer compressing into w with the given algorithm.
func NewWriter(compressionType format.CompressionType, w io.Writer) (io.WriteCloser, error) {
	codec, err := CreateCodec(compressionType)
	if err != nil {
		return nil, err
	}

	return codec.NewWriter(w)
}
