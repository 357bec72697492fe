package compress

import (
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/irstream/format"
)

// S2Codec decodes and encodes S2 stream framing. The reader also accepts Snappy
// framed streams.
type S2Codec struct{}

var _ Codec = S2Codec{}

// NewS2Codec creates an S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

// Type returns format.CompressionS2.
func (S2Codec) Type() format.CompressionType { return format.CompressionS2 }

// NewReader returns a reader decompressing r.
func (S2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}

// NewWriter returns a writer compressing into w.
func (S2Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w), nil
}
