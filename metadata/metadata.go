// Package metadata holds the stream-level metadata decoded from an IR preamble.
//
// A Metadata value is created exactly once per stream and is immutable afterwards. Every
// record decoded from the stream keeps a pointer to it, so it lives as long as the
// longest-living record or reader that references it. A nil *Metadata on a record means
// "no metadata" (for example a record restored from its serialized form), which is
// distinct from a Metadata whose optional fields are empty.
package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/buger/jsonparser"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/format"
	"github.com/arloliu/irstream/internal/options"
)

// JSON keys of the metadata object.
const (
	KeyVersion                = "VERSION"
	KeyReferenceTimestamp     = "REFERENCE_TIMESTAMP"
	KeyTimestampPattern       = "TIMESTAMP_PATTERN"
	KeyTimestampPatternSyntax = "TIMESTAMP_PATTERN_SYNTAX"
	KeyTimezoneID             = "TZ_ID"
	KeyAndroidBuildVersion    = "ANDROID_BUILD_VERSION"
	KeyAttributeTable         = "ATTRIBUTE_TABLE"
	KeyAttributeName          = "name"
	KeyAttributeType          = "type"

	// CurrentVersion is written by the encoder.
	CurrentVersion = "0.0.1"
)

// Metadata is the decoded preamble of one stream.
type Metadata struct {
	encoding               format.EncodingType
	version                string
	refTimestamp           int64
	timestampFormat        string
	timestampPatternSyntax string
	timezoneID             string
	androidBuildVersion    string
	hasAndroidBuildVersion bool
	schema                 []attr.Info
	attrIndex              map[string]int
	location               *time.Location
}

// Option configures optional Metadata fields in New.
type Option = options.Option[*Metadata]

// WithAttributes declares the attribute schema, in order.
func WithAttributes(schema ...attr.Info) Option {
	return options.New(func(m *Metadata) error {
		return m.setSchema(schema)
	})
}

// WithAndroidBuildVersion records the Android build version of the producer.
func WithAndroidBuildVersion(version string) Option {
	return options.NoError(func(m *Metadata) {
		m.androidBuildVersion = version
		m.hasAndroidBuildVersion = true
	})
}

// WithTimestampPatternSyntax records the syntax the timestamp pattern is written in.
func WithTimestampPatternSyntax(syntax string) Option {
	return options.NoError(func(m *Metadata) {
		m.timestampPatternSyntax = syntax
	})
}

// New creates four-byte encoding metadata from explicit fields.
//
// Parameters:
//   - refTimestamp: Reference timestamp (epoch milliseconds) seeding the first record's timestamp
//   - timestampFormat: Timestamp format used when the stream was produced
//   - timezoneID: IANA timezone identifier
//   - opts: Optional fields (attributes, Android build version, pattern syntax)
//
// Returns:
//   - *Metadata: Immutable metadata
//   - error: errs.ErrInvalidArgument if the attribute schema is invalid
func New(refTimestamp int64, timestampFormat, timezoneID string, opts ...Option) (*Metadata, error) {
	m := &Metadata{
		encoding:        format.EncodingFourByte,
		version:         CurrentVersion,
		refTimestamp:    refTimestamp,
		timestampFormat: timestampFormat,
		timezoneID:      timezoneID,
	}

	if err := options.Apply(m, opts...); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidArgument, err)
	}
	m.location = loadLocation(timezoneID)

	return m, nil
}

// Parse decodes the JSON metadata section of a preamble.
//
// Parameters:
//   - data: JSON metadata bytes
//   - encoding: Variable encoding declared by the stream's magic number
//
// Returns:
//   - *Metadata: Immutable metadata
//   - error: errs.ErrUnsupportedEncoding for eight-byte streams, errs.ErrMalformedMetadata
//     when a required field is missing or invalid
func Parse(data []byte, encoding format.EncodingType) (*Metadata, error) {
	if encoding != format.EncodingFourByte {
		return nil, fmt.Errorf("%w: %s variable encoding", errs.ErrUnsupportedEncoding, encoding)
	}

	m := &Metadata{encoding: encoding}

	refTimestamp, err := requiredString(data, KeyReferenceTimestamp)
	if err != nil {
		return nil, err
	}
	m.refTimestamp, err = strconv.ParseInt(refTimestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", errs.ErrMalformedMetadata, KeyReferenceTimestamp, refTimestamp)
	}

	if m.timestampFormat, err = requiredString(data, KeyTimestampPattern); err != nil {
		return nil, err
	}
	if m.timezoneID, err = requiredString(data, KeyTimezoneID); err != nil {
		return nil, err
	}

	m.version, _ = optionalString(data, KeyVersion)
	m.timestampPatternSyntax, _ = optionalString(data, KeyTimestampPatternSyntax)
	m.androidBuildVersion, m.hasAndroidBuildVersion = optionalString(data, KeyAndroidBuildVersion)

	schema, err := parseAttributeTable(data)
	if err != nil {
		return nil, err
	}
	if err := m.setSchema(schema); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMalformedMetadata, err)
	}

	m.location = loadLocation(m.timezoneID)

	return m, nil
}

// EncodeJSON serializes the metadata to the JSON form stored in a preamble.
func (m *Metadata) EncodeJSON() ([]byte, error) {
	obj := map[string]any{
		KeyVersion:            m.version,
		KeyReferenceTimestamp: strconv.FormatInt(m.refTimestamp, 10),
		KeyTimestampPattern:   m.timestampFormat,
		KeyTimezoneID:         m.timezoneID,
	}
	if m.timestampPatternSyntax != "" {
		obj[KeyTimestampPatternSyntax] = m.timestampPatternSyntax
	}
	if m.hasAndroidBuildVersion {
		obj[KeyAndroidBuildVersion] = m.androidBuildVersion
	}
	if len(m.schema) > 0 {
		table := make([]map[string]string, 0, len(m.schema))
		for _, info := range m.schema {
			table = append(table, map[string]string{
				KeyAttributeName: info.Name,
				KeyAttributeType: info.Type.String(),
			})
		}
		obj[KeyAttributeTable] = table
	}

	return json.Marshal(obj)
}

// Encoding returns the variable encoding of the stream.
func (m *Metadata) Encoding() format.EncodingType { return m.encoding }

// IsFourByteEncoding reports whether the stream uses the four-byte variable encoding.
func (m *Metadata) IsFourByteEncoding() bool { return m.encoding == format.EncodingFourByte }

// Version returns the protocol version string, empty if the preamble did not carry one.
func (m *Metadata) Version() string { return m.version }

// ReferenceTimestamp returns the timestamp (epoch milliseconds) the first delta applies to.
func (m *Metadata) ReferenceTimestamp() int64 { return m.refTimestamp }

// TimestampFormat returns the timestamp pattern of the producer.
func (m *Metadata) TimestampFormat() string { return m.timestampFormat }

// TimestampPatternSyntax returns the syntax of the timestamp pattern, if declared.
func (m *Metadata) TimestampPatternSyntax() string { return m.timestampPatternSyntax }

// TimezoneID returns the IANA timezone identifier of the stream.
func (m *Metadata) TimezoneID() string { return m.timezoneID }

// Location returns the resolved timezone, UTC when the identifier is unknown.
func (m *Metadata) Location() *time.Location { return m.location }

// AndroidBuildVersion returns the Android build version and whether one was declared.
func (m *Metadata) AndroidBuildVersion() (string, bool) {
	return m.androidBuildVersion, m.hasAndroidBuildVersion
}

// IsAndroidLog reports whether the stream was produced on Android.
func (m *Metadata) IsAndroidLog() bool { return m.hasAndroidBuildVersion }

// NumAttributes returns the number of declared attributes.
func (m *Metadata) NumAttributes() int { return len(m.schema) }

// Schema returns a copy of the declared attribute schema.
func (m *Metadata) Schema() []attr.Info {
	return append([]attr.Info(nil), m.schema...)
}

// AttributeAt returns the declared attribute at position i.
func (m *Metadata) AttributeAt(i int) attr.Info { return m.schema[i] }

// AttributeIndex returns the schema position of the named attribute.
func (m *Metadata) AttributeIndex(name string) (int, bool) {
	idx, ok := m.attrIndex[name]
	return idx, ok
}

func (m *Metadata) setSchema(schema []attr.Info) error {
	index := make(map[string]int, len(schema))
	for i, info := range schema {
		if info.Name == "" {
			return fmt.Errorf("attribute %d has an empty name", i)
		}
		if info.Type != attr.TypeString && info.Type != attr.TypeInt {
			return fmt.Errorf("attribute %q has unsupported type %d", info.Name, info.Type)
		}
		if _, dup := index[info.Name]; dup {
			return fmt.Errorf("duplicate attribute %q", info.Name)
		}
		index[info.Name] = i
	}

	m.schema = append([]attr.Info(nil), schema...)
	m.attrIndex = index

	return nil
}

func requiredString(data []byte, key string) (string, error) {
	value, dataType, _, err := jsonparser.Get(data, key)
	if err != nil || dataType != jsonparser.String {
		return "", fmt.Errorf("%w: valid %s cannot be found", errs.ErrMalformedMetadata, key)
	}

	s, err := jsonparser.ParseString(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrMalformedMetadata, key, err)
	}

	return s, nil
}

func optionalString(data []byte, key string) (string, bool) {
	s, err := requiredString(data, key)
	if err != nil {
		return "", false
	}

	return s, true
}

func parseAttributeTable(data []byte) ([]attr.Info, error) {
	table, dataType, _, err := jsonparser.Get(data, KeyAttributeTable)
	if err != nil {
		if err == jsonparser.KeyPathNotFoundError { //nolint:errorlint
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %s: %w", errs.ErrMalformedMetadata, KeyAttributeTable, err)
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("%w: %s must be an array", errs.ErrMalformedMetadata, KeyAttributeTable)
	}

	var (
		schema  []attr.Info
		itemErr error
	)
	_, err = jsonparser.ArrayEach(table, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if itemErr != nil {
			return
		}
		if dataType != jsonparser.Object {
			itemErr = fmt.Errorf("%w: attribute entries must be objects", errs.ErrMalformedMetadata)
			return
		}

		name, err := requiredString(value, KeyAttributeName)
		if err != nil {
			itemErr = err
			return
		}
		typeName, err := requiredString(value, KeyAttributeType)
		if err != nil {
			itemErr = err
			return
		}
		typ, err := attr.ParseType(typeName)
		if err != nil {
			itemErr = fmt.Errorf("%w: %w", errs.ErrMalformedMetadata, err)
			return
		}

		schema = append(schema, attr.Info{Name: name, Type: typ})
	})
	if itemErr != nil {
		return nil, itemErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrMalformedMetadata, KeyAttributeTable, err)
	}

	return schema, nil
}

func loadLocation(timezoneID string) *time.Location {
	loc, err := time.LoadLocation(timezoneID)
	if err != nil {
		return time.UTC
	}

	return loc
}
