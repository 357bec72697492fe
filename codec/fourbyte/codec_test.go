package fourbyte

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/codec"
	"github.com/arloliu/irstream/format"
	"github.com/arloliu/irstream/metadata"
)

func testMetadata(t *testing.T, schema ...attr.Info) *metadata.Metadata {
	t.Helper()

	m, err := metadata.New(1_000, "%Y-%m-%d %H:%M:%S", "UTC", metadata.WithAttributes(schema...))
	require.NoError(t, err)

	return m
}

func TestDecodeEncodingType(t *testing.T) {
	c := New()

	res := c.DecodeEncodingType(MagicFourByte[:2])
	require.Equal(t, codec.StatusIncomplete, res.Status)

	res = c.DecodeEncodingType(append(MagicFourByte[:], 0x01))
	require.Equal(t, codec.StatusSuccess, res.Status)
	require.Equal(t, MagicNumberLength, res.Consumed)
	require.Equal(t, format.EncodingFourByte, res.Encoding)

	res = c.DecodeEncodingType(MagicEightByte[:])
	require.Equal(t, codec.StatusSuccess, res.Status)
	require.Equal(t, format.EncodingEightByte, res.Encoding)

	res = c.DecodeEncodingType([]byte{1, 2, 3, 4})
	require.Equal(t, codec.StatusError, res.Status)
	require.Equal(t, CodeCorrupted, res.Code)
}

func TestDecodePreamble(t *testing.T) {
	meta := testMetadata(t, attr.Info{Name: "level", Type: attr.TypeString})
	stream, err := AppendPreamble(nil, meta)
	require.NoError(t, err)

	c := New()
	enc := c.DecodeEncodingType(stream)
	require.Equal(t, codec.StatusSuccess, enc.Status)

	body := stream[enc.Consumed:]
	for i := range len(body) {
		res := c.DecodePreamble(body[:i])
		require.Equal(t, codec.StatusIncomplete, res.Status, "prefix %d", i)
	}

	res := c.DecodePreamble(body)
	require.Equal(t, codec.StatusSuccess, res.Status)
	require.Equal(t, len(body), res.Consumed)
	require.Equal(t, TagMetadataJSON, res.MetadataType)

	parsed, err := metadata.Parse(res.Metadata, enc.Encoding)
	require.NoError(t, err)
	require.Equal(t, meta.Schema(), parsed.Schema())
}

func TestDecodePreamble_LongMetadata(t *testing.T) {
	schema := make([]attr.Info, 0, 40)
	for i := range 40 {
		schema = append(schema, attr.Info{Name: "attribute_" + string(rune('a'+i%26)) + string(rune('a'+i/26)), Type: attr.TypeInt})
	}
	stream, err := AppendPreamble(nil, testMetadata(t, schema...))
	require.NoError(t, err)
	require.Equal(t, TagMetadataLenUShort, stream[MagicNumberLength+1])

	res := New().DecodePreamble(stream[MagicNumberLength:])
	require.Equal(t, codec.StatusSuccess, res.Status)
}

func TestDecodePreamble_Errors(t *testing.T) {
	c := New()

	res := c.DecodePreamble([]byte{0x7F, TagMetadataLenUByte, 0})
	require.Equal(t, codec.StatusError, res.Status)
	require.Equal(t, CodeUnsupportedMetadata, res.Code)

	res = c.DecodePreamble([]byte{TagMetadataJSON, 0x13, 0})
	require.Equal(t, codec.StatusError, res.Status)
	require.Equal(t, CodeCorrupted, res.Code)
}

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		message string
		delta   int64
		attrs   []attr.Value
	}{
		{"empty", "", 0, nil},
		{"constant only", " INFO service started\n", 1, nil},
		{"integer var", " took 42 ms", -5, nil},
		{"float var", " ratio=0.75 load=-1.5", 300, nil},
		{"dictionary var", " user=alice host=node-03.local", 70_000, nil},
		{"placeholder bytes in text", " raw\x11\x12\x13\\ bytes 7", 2_147_483_648, nil},
		{"negative large delta", " x", math.MinInt64, nil},
		{"leading zero int", " code 007", 1, nil},
		{"with attributes", " hello 1", 1, []attr.Value{attr.String("INFO"), attr.Null(), attr.Int(-9)}},
		{"long string attribute", " y", 1, []attr.Value{attr.String(string(bytes.Repeat([]byte("a"), 300))), attr.Int(1), attr.Null()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := AppendRecord(nil, tt.delta, tt.message, tt.attrs)
			require.NoError(t, err)

			res := New().DecodeNext(data, len(tt.attrs))
			require.Equal(t, codec.StatusSuccess, res.Status)
			require.Equal(t, len(data), res.Consumed)
			require.Equal(t, tt.message, res.Message)
			require.Equal(t, tt.delta, res.TimestampDelta)
			require.Positive(t, res.TimestampDeltaSize)
			require.Equal(t, tt.attrs, res.Attributes)
		})
	}
}

func TestDecodeNext_TimestampDeltaSize(t *testing.T) {
	sizes := map[int64]int{
		0:             2,
		-128:          2,
		200:           3,
		-40_000:       5,
		1 << 40:       9,
		math.MaxInt64: 9,
	}

	for delta, size := range sizes {
		data, err := AppendRecord(nil, delta, " m", nil)
		require.NoError(t, err)

		res := New().DecodeNext(data, 0)
		require.Equal(t, codec.StatusSuccess, res.Status)
		require.Equal(t, size, res.TimestampDeltaSize, "delta %d", delta)
		require.Equal(t, data[len(data)-size:], data[res.Consumed-res.TimestampDeltaSize:res.Consumed])
	}
}

func TestDecodeNext_EveryPrefixIsIncomplete(t *testing.T) {
	attrs := []attr.Value{attr.String("WARN"), attr.Int(12)}
	data, err := AppendRecord(nil, 1234, " disk 91.5% full on sda1 after 3 retries", attrs)
	require.NoError(t, err)

	c := New()
	for i := range len(data) {
		res := c.DecodeNext(data[:i], len(attrs))
		require.Equal(t, codec.StatusIncomplete, res.Status, "prefix %d", i)
	}
	require.Equal(t, codec.StatusSuccess, c.DecodeNext(data, len(attrs)).Status)
}

func TestDecodeNext_EOF(t *testing.T) {
	res := New().DecodeNext([]byte{TagEOF, 0xAA}, 2)
	require.Equal(t, codec.StatusEOF, res.Status)
	require.Equal(t, 1, res.Consumed)
}

func TestDecodeNext_Corrupted(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		attrs int
		code  int
	}{
		{"unknown record tag", []byte{0x7E}, 0, CodeCorrupted},
		{"unknown attribute tag", []byte{0x11, 0x00}, 1, CodeCorrupted},
		{"unknown timestamp tag", []byte{TagLogtypeStrLenUByte, 0, 0x3F}, 0, CodeCorrupted},
		{"negative length", []byte{TagLogtypeStrLenInt, 0xFF, 0xFF, 0xFF, 0xFF}, 0, CodeCorrupted},
		{"missing variable", []byte{TagLogtypeStrLenUByte, 1, PlaceholderDictionary, TagTimestampDeltaByte, 0}, 0, CodeDecodeError},
		{"unused variable", []byte{TagVarStrLenUByte, 1, 'x', TagLogtypeStrLenUByte, 0, TagTimestampDeltaByte, 0}, 0, CodeDecodeError},
		{"dangling escape", []byte{TagLogtypeStrLenUByte, 1, PlaceholderEscape, TagTimestampDeltaByte, 0}, 0, CodeDecodeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New().DecodeNext(tt.data, tt.attrs)
			require.Equal(t, codec.StatusError, res.Status)
			require.Equal(t, tt.code, res.Code)
		})
	}
}

func TestEncoder_Stream(t *testing.T) {
	meta := testMetadata(t, attr.Info{Name: "level", Type: attr.TypeString})

	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, meta)
	require.NoError(t, err)

	require.NoError(t, enc.Encode(1_100, " first", attr.String("INFO")))
	require.NoError(t, enc.Encode(1_050, " second"))
	require.Error(t, enc.Encode(1_200, " bad", attr.Int(1)))
	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())
	require.Error(t, enc.Encode(1_300, " late"))

	stream := buf.Bytes()
	c := New()

	enc0 := c.DecodeEncodingType(stream)
	require.Equal(t, codec.StatusSuccess, enc0.Status)
	stream = stream[enc0.Consumed:]
	pre := c.DecodePreamble(stream)
	require.Equal(t, codec.StatusSuccess, pre.Status)
	stream = stream[pre.Consumed:]

	first := c.DecodeNext(stream, 1)
	require.Equal(t, codec.StatusSuccess, first.Status)
	require.Equal(t, " first", first.Message)
	require.Equal(t, int64(100), first.TimestampDelta)
	require.Equal(t, []attr.Value{attr.String("INFO")}, first.Attributes)
	stream = stream[first.Consumed:]

	second := c.DecodeNext(stream, 1)
	require.Equal(t, codec.StatusSuccess, second.Status)
	require.Equal(t, int64(-50), second.TimestampDelta)
	require.True(t, second.Attributes[0].IsNull())
	stream = stream[second.Consumed:]

	require.Equal(t, codec.StatusEOF, c.DecodeNext(stream, 1).Status)
}
