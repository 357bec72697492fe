package compress

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/arloliu/irstream/format"
)

// Frame magic numbers used by Detect.
var (
	zstdMagic   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic    = []byte{0x04, 0x22, 0x4D, 0x18}
	s2Magic     = []byte{0xFF, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}
	snappyMagic = []byte{0xFF, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
)

// DetectLength is the number of leading bytes Detect needs to recognize every framing.
const DetectLength = 10

// Detect identifies the compression framing from the first bytes of a stream.
//
// Uncompressed IR streams, and anything not recognized, report CompressionNone.
func Detect(peek []byte) format.CompressionType {
	switch {
	case bytes.HasPrefix(peek, zstdMagic):
		return format.CompressionZstd
	case bytes.HasPrefix(peek, lz4Magic):
		return format.CompressionLZ4
	case bytes.HasPrefix(peek, s2Magic), bytes.HasPrefix(peek, snappyMagic):
		return format.CompressionS2
	default:
		return format.CompressionNone
	}
}

// Stats tracks the byte volume flowing through a Reader.
type Stats struct {
	Type              format.CompressionType
	CompressedBytes   int64
	DecompressedBytes int64
}

// Ratio returns the compressed size relative to the decompressed size, or 0 before any
// bytes were decompressed.
func (s Stats) Ratio() float64 {
	if s.DecompressedBytes == 0 {
		return 0
	}

	return float64(s.CompressedBytes) / float64(s.DecompressedBytes)
}

// SpaceSavings returns the fraction of space saved by compression (0.0 to 1.0).
func (s Stats) SpaceSavings() float64 {
	if s.DecompressedBytes == 0 {
		return 0
	}

	return 1.0 - s.Ratio()
}

// Reader decompresses a byte source and counts the bytes on both sides.
//
// Reader is not safe for concurrent use.
type Reader struct {
	src   *countingReader
	inner io.ReadCloser
	stats Stats
}

var _ io.ReadCloser = (*Reader)(nil)

// NewReader wraps r in a decompressing Reader.
//
// With format.CompressionAuto the framing is detected from the first bytes of r. The
// detection reads ahead through a buffered reader, so r should not be read elsewhere
// afterwards.
func NewReader(compressionType format.CompressionType, r io.Reader) (*Reader, error) {
	src := &countingReader{r: r}

	var source io.Reader = src
	if compressionType == format.CompressionAuto {
		br := bufio.NewReader(src)
		peek, err := br.Peek(DetectLength)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
		compressionType = Detect(peek)
		source = br
	}

	codec, err := CreateCodec(compressionType)
	if err != nil {
		return nil, err
	}

	inner, err := codec.NewReader(source)
	if err != nil {
		return nil, err
	}

	return &Reader{
		src:   src,
		inner: inner,
		stats: Stats{Type: compressionType},
	}, nil
}

// Read reads decompressed bytes.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	r.stats.DecompressedBytes += int64(n)

	return n, err
}

// Type returns the compression algorithm in use, after detection.
func (r *Reader) Type() format.CompressionType {
	return r.stats.Type
}

// Stats returns the byte counters.
//
// CompressedBytes counts bytes pulled from the source, which may run ahead of the
// decompressed output by the size of internal buffers.
func (r *Reader) Stats() Stats {
	s := r.stats
	s.CompressedBytes = r.src.n

	return s
}

// Close releases the decompressor. It does not close the underlying source.
func (r *Reader) Close() error {
	return r.inner.Close()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}
