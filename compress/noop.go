package compress

import (
	"io"

	"github.com/arloliu/irstream/format"
)

// NoOpCodec passes bytes through unchanged.
//
// This codec is useful for:
//   - Streams stored without compression
//   - Tests and benchmarks measuring decoding without decompression overhead
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// NewNoOpCodec creates a pass-through codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Type returns format.CompressionNone.
func (NoOpCodec) Type() format.CompressionType { return format.CompressionNone }

// NewReader returns r; Close does not close r.
func (NoOpCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// NewWriter returns w; Close does not close w.
func (NoOpCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{Writer: w}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
