// Package irstream reads CLP IR log streams.
//
// An IR stream is a compact encoding of log events: a preamble carrying JSON metadata
// (reference timestamp, timezone, optional attribute schema) followed by records that
// store a logtype, its variables, the timestamp delta to the previous record and one
// value per declared attribute. Streams are usually stored Zstandard compressed.
//
// # Basic Usage
//
// Reading every record:
//
//	f, _ := os.Open("app.clp.zst")
//	r, err := irstream.NewReader(f)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	for rec, err := range r.All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(rec.RawMessage())
//	}
//
// Searching a time range with a wildcard:
//
//	q, _ := query.New(
//	    query.WithTimeRange(from, to),
//	    query.WithWildcards(query.NewWildcardQuery("*ERROR*", false)),
//	)
//	for rec, err := range r.Search(q) {
//	    ...
//	}
//
// # Package Structure
//
// This package wires the stream decompression, the decode driver and the four-byte IR
// codec together. For finer control use the decoder package directly.
package irstream

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arloliu/irstream/codec/fourbyte"
	"github.com/arloliu/irstream/compress"
	"github.com/arloliu/irstream/decoder"
	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/format"
	"github.com/arloliu/irstream/internal/options"
	"github.com/arloliu/irstream/metadata"
	"github.com/arloliu/irstream/metrics"
	"github.com/arloliu/irstream/query"
	"github.com/arloliu/irstream/record"
)

// ErrClosed is returned by operations on a closed Reader.
var ErrClosed = errors.New("irstream: reader closed")

// Reader decodes an IR stream from a possibly compressed byte source.
//
// The preamble is read lazily by the first call that needs the metadata. Reader
// methods may be called from several goroutines but calls are serialized.
type Reader struct {
	mu           sync.Mutex
	source       io.Reader
	decompressor *compress.Reader
	dec          *decoder.Decoder
	logger       *zap.Logger
	registerer   prometheus.Registerer
	collector    *metrics.Collector
	closed       bool
}

// NewReader creates a Reader over source.
//
// Parameters:
//   - source: Byte source of the stream; closed by Reader.Close when it is an io.Closer
//   - opts: Optional configuration (WithCompression, WithBufferCapacity,
//     WithAllowIncompleteStream, WithCacheEncoded, WithCodec, WithLogger, WithMetrics)
//
// Returns:
//   - *Reader: Reader positioned before the preamble
//   - error: errs.ErrInvalidArgument for a nil source or invalid option, or the error
//     of detecting the compression from the first bytes
func NewReader(source io.Reader, opts ...ReaderOption) (*Reader, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil source", errs.ErrInvalidArgument)
	}

	cfg := &readerConfig{
		compression:    format.CompressionAuto,
		bufferCapacity: DefaultBufferCapacity,
		codec:          fourbyte.New(),
		logger:         zap.NewNop(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	r := &Reader{source: source, logger: cfg.logger}

	stream := source
	if cfg.compression != format.CompressionNone {
		decompressor, err := compress.NewReader(cfg.compression, source)
		if err != nil {
			return nil, fmt.Errorf("open decompressor: %w", err)
		}
		r.decompressor = decompressor
		stream = decompressor
		cfg.logger.Debug("opened stream", zap.Stringer("compression", decompressor.Type()))
	}

	dec, err := decoder.New(stream, cfg.codec,
		decoder.WithBufferCapacity(cfg.bufferCapacity),
		decoder.WithAllowIncompleteStream(cfg.allowIncomplete),
		decoder.WithCacheEncoded(cfg.cacheEncoded),
		decoder.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, multierr.Append(err, r.closeDecompressor())
	}
	r.dec = dec

	if cfg.registerer != nil {
		collector := metrics.NewCollector(r.Stats, cfg.metricLabels)
		if err := cfg.registerer.Register(collector); err != nil {
			return nil, multierr.Append(fmt.Errorf("register metrics: %w", err), r.closeDecompressor())
		}
		r.registerer = cfg.registerer
		r.collector = collector
	}

	return r, nil
}

// ReadPreamble decodes the stream preamble if it was not decoded yet and returns the
// metadata.
func (r *Reader) ReadPreamble() (*metadata.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readPreamble()
}

// Metadata returns the stream metadata, nil before the preamble was read.
func (r *Reader) Metadata() *metadata.Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.dec.Metadata()
}

// Next returns the next record of the stream, or io.EOF at its end.
func (r *Reader) Next() (*record.Record, error) {
	return r.NextMatch(nil)
}

// NextMatch returns the next record accepted by q, or io.EOF at the end of the stream
// or of q's search window. A nil q accepts every record.
func (r *Reader) NextMatch(q *query.Query) (*record.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.readPreamble(); err != nil {
		return nil, err
	}

	return r.dec.Next(q)
}

// Search returns an iterator over the records accepted by q.
//
// The query is validated against the stream schema before the first record is
// decoded. Iteration stops after the first error, which is yielded with a nil record;
// the end of the stream or of the search window ends it without an error.
//
// Example:
//
//	for rec, err := range r.Search(q) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(rec.Index(), rec.Message())
//	}
func (r *Reader) Search(q *query.Query) iter.Seq2[*record.Record, error] {
	return func(yield func(*record.Record, error) bool) {
		meta, err := r.ReadPreamble()
		if err != nil {
			yield(nil, err)
			return
		}
		if q != nil {
			if err := q.Validate(meta); err != nil {
				yield(nil, err)
				return
			}
		}

		for {
			rec, err := r.NextMatch(q)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// All returns an iterator over the remaining records of the stream.
func (r *Reader) All() iter.Seq2[*record.Record, error] {
	return r.Search(nil)
}

// Stats returns the reader activity. It is safe to call concurrently with iteration.
func (r *Reader) Stats() metrics.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := metrics.Snapshot{Decoder: r.dec.Stats()}
	if r.decompressor != nil {
		snap.Compression = r.decompressor.Stats()
	} else {
		snap.Compression = compress.Stats{
			Type:              format.CompressionNone,
			CompressedBytes:   snap.Decoder.Buffer.BytesRead,
			DecompressedBytes: snap.Decoder.Buffer.BytesRead,
		}
	}

	return snap
}

// Close releases the decompressor, unregisters the metrics collector and closes the
// source when it is an io.Closer. Reads after Close return ErrClosed; closing twice is
// a no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.collector != nil {
		r.registerer.Unregister(r.collector)
	}
	stats := r.dec.Stats()
	r.logger.Debug("closing stream",
		zap.Uint64("records_decoded", stats.RecordsDecoded),
		zap.Uint64("records_returned", stats.RecordsReturned),
		zap.Int64("bytes_read", stats.Buffer.BytesRead),
	)

	err := r.closeDecompressor()
	if closer, ok := r.source.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}

	return err
}

func (r *Reader) readPreamble() (*metadata.Metadata, error) {
	if r.closed {
		return nil, ErrClosed
	}

	return r.dec.DecodePreamble()
}

func (r *Reader) closeDecompressor() error {
	if r.decompressor == nil {
		return nil
	}

	return r.decompressor.Close()
}
