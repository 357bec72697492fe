package compress

import (
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/irstream/format"
)

// lz4ReaderPool pools frame readers; a reader keeps its block buffers across Reset.
var lz4ReaderPool = sync.Pool{
	New: func() any {
		return lz4.NewReader(nil)
	},
}

// LZ4Codec decodes and encodes LZ4 frames.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

// NewLZ4Codec creates an LZ4 codec.
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{}
}

// Type returns format.CompressionLZ4.
func (LZ4Codec) Type() format.CompressionType { return format.CompressionLZ4 }

// NewReader returns a reader decompressing r with a pooled frame reader.
func (LZ4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, _ := lz4ReaderPool.Get().(*lz4.Reader)
	zr.Reset(r)

	return &lz4Reader{reader: zr}, nil
}

// NewWriter returns a writer compressing into w.
func (LZ4Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

type lz4Reader struct {
	reader *lz4.Reader
}

func (l *lz4Reader) Read(p []byte) (int, error) {
	if l.reader == nil {
		return 0, io.ErrClosedPipe
	}

	return l.reader.Read(p)
}

func (l *lz4Reader) Close() error {
	if l.reader == nil {
		return nil
	}
	l.reader.Reset(nil)
	lz4ReaderPool.Put(l.reader)
	l.reader = nil

	return nil
}
