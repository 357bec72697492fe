// Package record defines the decoded log record shared by the decoder, the query engine
// and callers.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/internal/hash"
	"github.com/arloliu/irstream/internal/options"
	"github.com/arloliu/irstream/metadata"
)

// TimestampLayout formats record timestamps with millisecond precision and a numeric
// UTC offset.
const TimestampLayout = "2006-01-02 15:04:05.000-07:00"

// Record is one decoded log event.
//
// A Record is immutable once returned by the decoder. It references the metadata of its
// stream by pointer; a nil metadata means the record was restored from its serialized
// form and its attributes carry their own names.
type Record struct {
	message   string
	timestamp int64
	index     uint64
	logtype   string

	meta  *metadata.Metadata
	attrs []attr.Value
	names []string // attribute names when meta is nil

	encoded            []byte
	timestampDeltaSize int

	formattedTimestamp string // cached from the serialized form
}

// Option configures optional fields of a Record.
type Option = options.Option[*Record]

// WithAttributes sets one attribute value per declared attribute, in schema order.
func WithAttributes(values []attr.Value) Option {
	return options.NoError(func(r *Record) {
		r.attrs = values
	})
}

// WithLogtype sets the message template the record was decoded from.
func WithLogtype(logtype string) Option {
	return options.NoError(func(r *Record) {
		r.logtype = logtype
	})
}

// WithEncoded caches the encoded bytes the record was decoded from.
//
// timestampDeltaSize is the number of trailing bytes of encoded that hold the timestamp
// delta.
func WithEncoded(encoded []byte, timestampDeltaSize int) Option {
	return options.New(func(r *Record) error {
		if timestampDeltaSize < 0 || timestampDeltaSize > len(encoded) {
			return fmt.Errorf("timestamp delta size %d out of range for %d encoded bytes", timestampDeltaSize, len(encoded))
		}
		r.encoded = encoded
		r.timestampDeltaSize = timestampDeltaSize

		return nil
	})
}

// New creates a record.
//
// Parameters:
//   - meta: Metadata of the stream the record belongs to, or nil
//   - message: Reconstructed log message
//   - timestamp: Absolute timestamp in epoch milliseconds
//   - index: Zero-based position of the record in its stream
//   - opts: Optional fields
func New(meta *metadata.Metadata, message string, timestamp int64, index uint64, opts ...Option) (*Record, error) {
	r := &Record{
		meta:      meta,
		message:   message,
		timestamp: timestamp,
		index:     index,
	}
	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	return r, nil
}

// Message returns the reconstructed log message.
func (r *Record) Message() string { return r.message }

// Timestamp returns the absolute timestamp in epoch milliseconds.
func (r *Record) Timestamp() int64 { return r.timestamp }

// Time returns the timestamp as a time.Time in the stream timezone.
func (r *Record) Time() time.Time {
	return time.UnixMilli(r.timestamp).In(r.location())
}

// Index returns the zero-based position of the record in its stream.
func (r *Record) Index() uint64 { return r.index }

// Metadata returns the stream metadata, nil for restored records.
func (r *Record) Metadata() *metadata.Metadata { return r.meta }

// Logtype returns the message template, empty when unknown.
func (r *Record) Logtype() string { return r.logtype }

// LogtypeID returns a stable 64-bit identifier of the logtype.
func (r *Record) LogtypeID() uint64 { return hash.ID(r.logtype) }

// NumAttributes returns the number of attribute slots of the record.
func (r *Record) NumAttributes() int { return len(r.attrs) }

// AttributeAt returns the attribute value at schema position i.
func (r *Record) AttributeAt(i int) attr.Value { return r.attrs[i] }

// Attribute returns the value of the named attribute.
//
// ok is false when the attribute is not declared; a declared attribute the record did
// not set returns a null value and ok=true.
func (r *Record) Attribute(name string) (attr.Value, bool) {
	idx, ok := r.attributeIndex(name)
	if !ok || idx >= len(r.attrs) {
		return attr.Value{}, false
	}

	return r.attrs[idx], true
}

// AttributeNames returns the attribute names in schema order.
func (r *Record) AttributeNames() []string {
	if r.meta == nil {
		return append([]string(nil), r.names...)
	}

	names := make([]string, r.meta.NumAttributes())
	for i := range names {
		names[i] = r.meta.AttributeAt(i).Name
	}

	return names
}

// Attributes returns the attributes keyed by name.
func (r *Record) Attributes() map[string]attr.Value {
	names := r.AttributeNames()
	out := make(map[string]attr.Value, len(names))
	for i, name := range names {
		if i < len(r.attrs) {
			out[name] = r.attrs[i]
		}
	}

	return out
}

// Encoded returns the cached encoded bytes, nil when caching was disabled.
func (r *Record) Encoded() []byte { return r.encoded }

// TimestampDeltaSize returns the number of trailing encoded bytes holding the timestamp
// delta.
func (r *Record) TimestampDeltaSize() int { return r.timestampDeltaSize }

// FormattedTimestamp returns the timestamp formatted in the stream timezone.
func (r *Record) FormattedTimestamp() string {
	if r.meta == nil && r.formattedTimestamp != "" {
		return r.formattedTimestamp
	}

	return r.FormattedTimestampIn(r.location())
}

// FormattedTimestampIn returns the timestamp formatted in loc.
func (r *Record) FormattedTimestampIn(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	return time.UnixMilli(r.timestamp).In(loc).Format(TimestampLayout)
}

// RawMessage returns the formatted timestamp followed by the message, as the log line
// was originally written.
func (r *Record) RawMessage() string {
	return r.FormattedTimestamp() + r.message
}

// RawMessageIn is RawMessage with the timestamp formatted in loc.
func (r *Record) RawMessageIn(loc *time.Location) string {
	return r.FormattedTimestampIn(loc) + r.message
}

func (r *Record) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Record{index: %d, timestamp: %d, message: %q", r.index, r.timestamp, r.message)
	for i, name := range r.AttributeNames() {
		if i < len(r.attrs) {
			fmt.Fprintf(&sb, ", %s: %s", name, r.attrs[i])
		}
	}
	sb.WriteByte('}')

	return sb.String()
}

func (r *Record) location() *time.Location {
	if r.meta == nil {
		return time.UTC
	}

	return r.meta.Location()
}

func (r *Record) attributeIndex(name string) (int, bool) {
	if r.meta != nil {
		return r.meta.AttributeIndex(name)
	}
	for i, n := range r.names {
		if n == name {
			return i, true
		}
	}

	return 0, false
}
