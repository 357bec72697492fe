// Package decoder implements the pull/retry decode loop of an IR stream.
//
// A Decoder repeatedly offers the unread bytes of its buffer to a codec. When the codec
// reports that the bytes end mid-record, the decoder pulls more input and tries again
// from the same position; when the codec succeeds, the consumed bytes are committed and
// a record is produced. A query, if given, filters the records and may end the scan
// early once records move past its time window.
//
// Example:
//
//	dec, err := decoder.New(src, fourbyte.New())
//	if err != nil {
//	    return err
//	}
//	if _, err := dec.DecodePreamble(); err != nil {
//	    return err
//	}
//	for {
//	    rec, err := dec.Next(q)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(rec.RawMessage())
//	}
//
// Note: a Decoder is NOT thread-safe. It serves exactly one stream.
package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/buffer"
	"github.com/arloliu/irstream/codec"
	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/metadata"
	"github.com/arloliu/irstream/query"
	"github.com/arloliu/irstream/record"
)

// Stats is a snapshot of decoder activity.
type Stats struct {
	RecordsDecoded  uint64 // records decoded from the stream
	RecordsReturned uint64 // records returned to the caller
	RecordsSkipped  uint64 // records rejected by a query
	EarlyExits      uint64 // scans ended by a query's search window
	Buffer          buffer.Stats
}

// Decoder drives a codec over a growing buffer.
type Decoder struct {
	buf      *buffer.DecodeBuffer
	records  codec.RecordCodec
	preamble codec.PreambleCodec

	meta      *metadata.Metadata
	timestamp int64
	nextIndex uint64
	terminal  error

	capacity        int
	allowIncomplete bool
	cacheEncoded    bool
	logger          *zap.Logger

	stats Stats
}

// New creates a decoder reading source with codec c.
//
// Parameters:
//   - source: Byte source of the (already decompressed) IR stream
//   - c: Codec decoding the preamble and the records
//   - opts: Optional configuration
//
// Returns:
//   - *Decoder: Decoder positioned before the preamble
//   - error: errs.ErrInvalidArgument for a nil source, nil codec or invalid option
func New(source io.Reader, c codec.Codec, opts ...Option) (*Decoder, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil codec", errs.ErrInvalidArgument)
	}

	d := &Decoder{
		records:  c,
		preamble: c,
		capacity: buffer.DefaultCapacity,
		logger:   zap.NewNop(),
	}
	if err := applyOptions(d, opts...); err != nil {
		return nil, err
	}

	buf, err := buffer.New(source, d.capacity)
	if err != nil {
		return nil, err
	}
	d.buf = buf

	return d, nil
}

// Metadata returns the decoded metadata, nil before DecodePreamble succeeded.
func (d *Decoder) Metadata() *metadata.Metadata { return d.meta }

// Timestamp returns the timestamp of the last decoded record, or the reference
// timestamp when no record was decoded yet.
func (d *Decoder) Timestamp() int64 { return d.timestamp }

// NextIndex returns the index the next decoded record will receive.
func (d *Decoder) NextIndex() uint64 { return d.nextIndex }

// Stats returns a snapshot of the decoder and buffer activity.
func (d *Decoder) Stats() Stats {
	s := d.stats
	s.Buffer = d.buf.Stats()

	return s
}

// DecodePreamble decodes the encoding type and the metadata of the stream.
//
// It must be called once before Next; later calls return the decoded metadata.
//
// Returns:
//   - *metadata.Metadata: Decoded metadata
//   - error: errs.ErrStreamExhausted if the stream ends inside the preamble,
//     *errs.DecodeError for corrupt bytes, errs.ErrMalformedMetadata or
//     errs.ErrUnsupportedEncoding from the metadata itself
func (d *Decoder) DecodePreamble() (*metadata.Metadata, error) {
	if d.meta != nil {
		return d.meta, nil
	}
	if d.terminal != nil {
		return nil, d.terminal
	}

	var enc codec.EncodingResult
	status, err := d.attempt(func(view []byte) codec.Status {
		enc = d.preamble.DecodeEncodingType(view)
		return enc.Status
	})
	if err := d.checkPreambleStatus("decode encoding type", status, enc.Code, err); err != nil {
		return nil, err
	}
	if err := d.buf.Commit(enc.Consumed); err != nil {
		return nil, d.fail(err)
	}

	var (
		pre  codec.PreambleResult
		meta *metadata.Metadata
		perr error
	)
	status, err = d.attempt(func(view []byte) codec.Status {
		pre = d.preamble.DecodePreamble(view)
		if pre.Status == codec.StatusSuccess {
			// parse before commit; the metadata bytes alias the view
			meta, perr = metadata.Parse(pre.Metadata, enc.Encoding)
		}

		return pre.Status
	})
	if err := d.checkPreambleStatus("decode preamble", status, pre.Code, err); err != nil {
		return nil, err
	}
	if perr != nil {
		return nil, d.fail(perr)
	}
	if err := d.buf.Commit(pre.Consumed); err != nil {
		return nil, d.fail(err)
	}

	d.meta = meta
	d.timestamp = meta.ReferenceTimestamp()
	d.logger.Debug("decoded stream preamble",
		zap.Stringer("encoding", enc.Encoding),
		zap.Int64("reference_timestamp", meta.ReferenceTimestamp()),
		zap.String("timezone", meta.TimezoneID()),
		zap.Int("attributes", meta.NumAttributes()),
	)

	return meta, nil
}

// Next decodes records until one is accepted by q, or returns the first record when q
// is nil.
//
// Every decoded record consumes an index, whether q accepts it or not. When a record
// lies beyond q's search window the scan ends with io.EOF; that end is not sticky and
// a later call continues after the record that ended the scan.
//
// Returns:
//   - *record.Record: Accepted record
//   - error: io.EOF at the end of the stream (or of the scan), errs.ErrStreamExhausted
//     for a truncated stream, errs.ErrNoMetadata before DecodePreamble,
//     *errs.DecodeError for corrupt bytes, errs.ErrQueryConfiguration for a query
//     naming an undeclared attribute
func (d *Decoder) Next(q *query.Query) (*record.Record, error) {
	if d.terminal != nil {
		return nil, d.terminal
	}
	if d.meta == nil {
		return nil, errs.ErrNoMetadata
	}

	numAttributes := d.meta.NumAttributes()
	for {
		var (
			res     codec.RecordResult
			encoded []byte
		)
		status, err := d.attempt(func(view []byte) codec.Status {
			res = d.records.DecodeNext(view, numAttributes)
			if res.Status == codec.StatusSuccess && d.cacheEncoded {
				encoded = bytes.Clone(view[:res.Consumed])
			}

			return res.Status
		})
		if err != nil {
			return nil, d.fail(err)
		}

		switch status {
		case codec.StatusIncomplete:
			return nil, d.fail(d.truncated())
		case codec.StatusEOF:
			_ = d.buf.Commit(res.Consumed)
			return nil, d.fail(io.EOF)
		case codec.StatusError:
			return nil, d.fail(errs.NewDecodeError("decode record", res.Code))
		}

		if err := d.buf.Commit(res.Consumed); err != nil {
			return nil, d.fail(err)
		}
		d.timestamp += res.TimestampDelta
		index := d.nextIndex
		d.nextIndex++
		d.stats.RecordsDecoded++

		if !d.validAttributes(res.Attributes) {
			return nil, d.fail(fmt.Errorf("%w: record %d carries %d attributes", errs.ErrSchemaMismatch, index, len(res.Attributes)))
		}

		opts := []record.Option{record.WithAttributes(res.Attributes), record.WithLogtype(res.Logtype)}
		if encoded != nil {
			opts = append(opts, record.WithEncoded(encoded, res.TimestampDeltaSize))
		}
		rec, err := record.New(d.meta, res.Message, d.timestamp, index, opts...)
		if err != nil {
			return nil, d.fail(err)
		}

		if q == nil {
			d.stats.RecordsReturned++
			return rec, nil
		}

		if q.ExceedsSearchWindow(rec.Timestamp()) {
			d.stats.EarlyExits++
			d.logger.Debug("record beyond search window, ending scan",
				zap.Uint64("index", index),
				zap.Int64("timestamp", rec.Timestamp()),
				zap.Int64("window_end", q.SearchWindowEnd()),
			)

			return nil, io.EOF
		}

		ok, err := q.Matches(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			d.stats.RecordsReturned++
			return rec, nil
		}
		d.stats.RecordsSkipped++
	}
}

// attempt runs decode against the unread bytes and pulls more input for as long as it
// reports StatusIncomplete. It returns StatusIncomplete only when the source is
// exhausted.
func (d *Decoder) attempt(decode func(view []byte) codec.Status) (codec.Status, error) {
	for {
		status := decode(d.buf.Unconsumed())
		if status != codec.StatusIncomplete {
			return status, nil
		}

		n, err := d.buf.Pull()
		if err != nil {
			return status, err
		}
		if n == 0 {
			return codec.StatusIncomplete, nil
		}
	}
}

func (d *Decoder) checkPreambleStatus(op string, status codec.Status, code int, err error) error {
	if err != nil {
		return d.fail(err)
	}

	switch status {
	case codec.StatusSuccess:
		return nil
	case codec.StatusIncomplete:
		return d.fail(fmt.Errorf("%s: %w", op, errs.ErrStreamExhausted))
	default:
		return d.fail(errs.NewDecodeError(op, code))
	}
}

func (d *Decoder) truncated() error {
	d.logger.Debug("stream ended inside a record",
		zap.Int("unread_bytes", d.buf.Buffered()),
		zap.Uint64("next_index", d.nextIndex),
		zap.Bool("allow_incomplete", d.allowIncomplete),
	)
	if d.allowIncomplete {
		return io.EOF
	}

	return errs.ErrStreamExhausted
}

func (d *Decoder) validAttributes(values []attr.Value) bool {
	if len(values) != d.meta.NumAttributes() {
		return false
	}
	for i, v := range values {
		if !v.Matches(d.meta.AttributeAt(i).Type) {
			return false
		}
	}

	return true
}

// fail records err as the terminal state of the decoder.
func (d *Decoder) fail(err error) error {
	d.terminal = err
	if !errors.Is(err, io.EOF) {
		d.logger.Warn("stream decoding stopped", zap.Error(err))
	}

	return err
}
