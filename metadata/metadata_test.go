package metadata

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/format"
)

const validJSON = `{
	"VERSION": "0.0.1",
	"REFERENCE_TIMESTAMP": "1700000000000",
	"TIMESTAMP_PATTERN": "%Y-%m-%d %H:%M:%S,%3",
	"TIMESTAMP_PATTERN_SYNTAX": "",
	"TZ_ID": "America/New_York",
	"ANDROID_BUILD_VERSION": "14",
	"ATTRIBUTE_TABLE": [
		{"name": "level", "type": "str"},
		{"name": "pid", "type": "int"}
	]
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(validJSON), format.EncodingFourByte)
	require.NoError(t, err)

	require.True(t, m.IsFourByteEncoding())
	require.Equal(t, "0.0.1", m.Version())
	require.Equal(t, int64(1700000000000), m.ReferenceTimestamp())
	require.Equal(t, "%Y-%m-%d %H:%M:%S,%3", m.TimestampFormat())
	require.Equal(t, "America/New_York", m.TimezoneID())
	require.True(t, m.IsAndroidLog())

	build, ok := m.AndroidBuildVersion()
	require.True(t, ok)
	require.Equal(t, "14", build)

	require.Equal(t, 2, m.NumAttributes())
	require.Equal(t, []attr.Info{
		{Name: "level", Type: attr.TypeString},
		{Name: "pid", Type: attr.TypeInt},
	}, m.Schema())

	idx, ok := m.AttributeIndex("pid")
	require.True(t, ok)
	require.Equal(t, 1, idx)
	_, ok = m.AttributeIndex("missing")
	require.False(t, ok)
}

func TestParse_OptionalFieldsAbsent(t *testing.T) {
	data := `{"REFERENCE_TIMESTAMP":"0","TIMESTAMP_PATTERN":"","TZ_ID":"UTC"}`
	m, err := Parse([]byte(data), format.EncodingFourByte)
	require.NoError(t, err)

	require.False(t, m.IsAndroidLog())
	require.Equal(t, 0, m.NumAttributes())
	require.Empty(t, m.Version())
	require.Equal(t, time.UTC, m.Location())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		encoding format.EncodingType
		want     error
	}{
		{
			name:     "eight byte encoding",
			data:     validJSON,
			encoding: format.EncodingEightByte,
			want:     errs.ErrUnsupportedEncoding,
		},
		{
			name:     "missing reference timestamp",
			data:     `{"TIMESTAMP_PATTERN":"","TZ_ID":"UTC"}`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
		{
			name:     "numeric reference timestamp",
			data:     `{"REFERENCE_TIMESTAMP":10,"TIMESTAMP_PATTERN":"","TZ_ID":"UTC"}`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
		{
			name:     "non numeric reference timestamp",
			data:     `{"REFERENCE_TIMESTAMP":"ten","TIMESTAMP_PATTERN":"","TZ_ID":"UTC"}`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
		{
			name:     "missing timezone",
			data:     `{"REFERENCE_TIMESTAMP":"0","TIMESTAMP_PATTERN":""}`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
		{
			name:     "not json",
			data:     `not json`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
		{
			name: "unknown attribute type",
			data: `{"REFERENCE_TIMESTAMP":"0","TIMESTAMP_PATTERN":"","TZ_ID":"UTC",
				"ATTRIBUTE_TABLE":[{"name":"a","type":"float"}]}`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
		{
			name: "duplicate attribute",
			data: `{"REFERENCE_TIMESTAMP":"0","TIMESTAMP_PATTERN":"","TZ_ID":"UTC",
				"ATTRIBUTE_TABLE":[{"name":"a","type":"str"},{"name":"a","type":"int"}]}`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
		{
			name: "attribute table not an array",
			data: `{"REFERENCE_TIMESTAMP":"0","TIMESTAMP_PATTERN":"","TZ_ID":"UTC",
				"ATTRIBUTE_TABLE":{"name":"a"}}`,
			encoding: format.EncodingFourByte,
			want:     errs.ErrMalformedMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.data), tt.encoding)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, m)
		})
	}
}

func TestNew_EncodeJSONRoundTrip(t *testing.T) {
	m, err := New(1234, "%H:%M:%S", "Asia/Taipei",
		WithAttributes(attr.Info{Name: "level", Type: attr.TypeString}, attr.Info{Name: "tid", Type: attr.TypeInt}),
		WithAndroidBuildVersion("13"),
	)
	require.NoError(t, err)

	data, err := m.EncodeJSON()
	require.NoError(t, err)

	parsed, err := Parse(data, format.EncodingFourByte)
	require.NoError(t, err)
	require.Equal(t, m.ReferenceTimestamp(), parsed.ReferenceTimestamp())
	require.Equal(t, m.TimestampFormat(), parsed.TimestampFormat())
	require.Equal(t, m.TimezoneID(), parsed.TimezoneID())
	require.Equal(t, m.Schema(), parsed.Schema())
	require.Equal(t, CurrentVersion, parsed.Version())
	require.True(t, parsed.IsAndroidLog())
	require.Equal(t, "Asia/Taipei", parsed.Location().String())
}

func TestNew_InvalidSchema(t *testing.T) {
	_, err := New(0, "", "UTC", WithAttributes(attr.Info{Name: "", Type: attr.TypeInt}))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = New(0, "", "UTC", WithAttributes(
		attr.Info{Name: "a", Type: attr.TypeInt},
		attr.Info{Name: "a", Type: attr.TypeString},
	))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestLocation_UnknownFallsBackToUTC(t *testing.T) {
	m, err := New(0, "", "Not/AZone")
	require.NoError(t, err)
	require.Equal(t, time.UTC, m.Location())
}

func TestSchema_ReturnsCopy(t *testing.T) {
	m, err := New(0, "", "UTC", WithAttributes(attr.Info{Name: "a", Type: attr.TypeInt}))
	require.NoError(t, err)

	schema := m.Schema()
	schema[0].Name = "mutated"
	require.Equal(t, "a", m.AttributeAt(0).Name)
}
