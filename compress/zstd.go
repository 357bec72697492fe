package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/arloliu/irstream/format"
)

// zstdDecoderPool pools zstd decoders; a decoder is reset to each new stream and
// operates without allocations after warmup.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1), // synchronous stream decoding
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// zstdEncoderPool pools zstd encoders.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderCRC(false),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return encoder
	},
}

// ZstdCodec decodes and encodes Zstandard frames.
//
// Zstandard gives the best ratio of the supported algorithms and is the usual framing
// of IR streams.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec creates a Zstandard codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

// Type returns format.CompressionZstd.
func (ZstdCodec) Type() format.CompressionType { return format.CompressionZstd }

// NewReader returns a reader decompressing r with a pooled decoder.
func (ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	if err := decoder.Reset(r); err != nil {
		zstdDecoderPool.Put(decoder)
		return nil, fmt.Errorf("zstd: %w", err)
	}

	return &zstdReader{decoder: decoder}, nil
}

// NewWriter returns a writer compressing into w with a pooled encoder.
func (ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	encoder, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	encoder.Reset(w)

	return &zstdWriter{encoder: encoder}, nil
}

type zstdReader struct {
	decoder *zstd.Decoder
}

func (z *zstdReader) Read(p []byte) (int, error) {
	if z.decoder == nil {
		return 0, io.ErrClosedPipe
	}

	return z.decoder.Read(p)
}

// Close returns the decoder to the pool. The decoder must not be closed itself, which
// would make it unusable.
func (z *zstdReader) Close() error {
	if z.decoder == nil {
		return nil
	}
	_ = z.decoder.Reset(nil)
	zstdDecoderPool.Put(z.decoder)
	z.decoder = nil

	return nil
}

type zstdWriter struct {
	encoder *zstd.Encoder
}

func (z *zstdWriter) Write(p []byte) (int, error) {
	if z.encoder == nil {
		return 0, io.ErrClosedPipe
	}

	return z.encoder.Write(p)
}

func (z *zstdWriter) Close() error {
	if z.encoder == nil {
		return nil
	}
	err := z.encoder.Close()
	zstdEncoderPool.Put(z.encoder)
	z.encoder = nil

	return err
}
