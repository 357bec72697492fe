package compress

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/format"
)

// getAllCodecs returns every codec for table-driven tests.
func getAllCodecs() []struct {
	name  string
	codec Codec
} {
	return []struct {
		name  string
		codec Codec
	}{
		{"NoOp", NewNoOpCodec()},
		{"Zstd", NewZstdCodec()},
		{"S2", NewS2Codec()},
		{"LZ4", NewLZ4Codec()},
	}
}

func testPayload() []byte {
	var sb strings.Builder
	for i := range 2000 {
		fmt.Fprintf(&sb, "INFO request %d served in %d ms by worker-%d\n", i, i%97, i%8)
	}

	return []byte(sb.String())
}

func compressAll(t *testing.T, codec Codec, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func decompressAll(t *testing.T, codec Codec, data []byte) []byte {
	t.Helper()

	r, err := codec.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	out, err := io.ReadAll(r)
	require.NoError(t, err)

	return out
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"empty":   {},
		"single":  {0x42},
		"payload": testPayload(),
	}

	for _, c := range getAllCodecs() {
		for name, input := range inputs {
			t.Run(c.name+"/"+name, func(t *testing.T) {
				compressed := compressAll(t, c.codec, input)
				require.True(t, bytes.Equal(input, decompressAll(t, c.codec, compressed)))
			})
		}
	}
}

func TestAllCodecs_Compresses(t *testing.T) {
	payload := testPayload()
	for _, c := range getAllCodecs() {
		if c.codec.Type() == format.CompressionNone {
			continue
		}
		t.Run(c.name, func(t *testing.T) {
			compressed := compressAll(t, c.codec, payload)
			require.Less(t, len(compressed), len(payload))
		})
	}
}

func TestAllCodecs_InvalidData(t *testing.T) {
	garbage := bytes.Repeat([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 64)
	for _, c := range getAllCodecs() {
		if c.codec.Type() == format.CompressionNone {
			continue
		}
		t.Run(c.name, func(t *testing.T) {
			r, err := c.codec.NewReader(bytes.NewReader(garbage))
			if err != nil {
				return
			}
			defer r.Close()

			_, err = io.ReadAll(r)
			require.Error(t, err)
		})
	}
}

func TestAllCodecs_ConcurrentUsage(t *testing.T) {
	payload := testPayload()
	for _, c := range getAllCodecs() {
		t.Run(c.name, func(t *testing.T) {
			compressed := compressAll(t, c.codec, payload)

			var wg sync.WaitGroup
			results := make([][]byte, 8)
			for i := range results {
				wg.Add(1)
				go func() {
					defer wg.Done()
					r, err := c.codec.NewReader(bytes.NewReader(compressed))
					if err != nil {
						return
					}
					defer r.Close()
					results[i], _ = io.ReadAll(r)
				}()
			}
			wg.Wait()

			for _, got := range results {
				require.Equal(t, payload, got)
			}
		})
	}
}

func TestClosedReaderAndWriter(t *testing.T) {
	for _, c := range getAllCodecs() {
		if c.codec.Type() == format.CompressionNone || c.codec.Type() == format.CompressionS2 {
			continue
		}
		t.Run(c.name, func(t *testing.T) {
			compressed := compressAll(t, c.codec, []byte("hello"))
			r, err := c.codec.NewReader(bytes.NewReader(compressed))
			require.NoError(t, err)
			require.NoError(t, r.Close())
			require.NoError(t, r.Close())

			_, err = r.Read(make([]byte, 4))
			require.ErrorIs(t, err, io.ErrClosedPipe)
		})
	}
}

func TestCreateCodec(t *testing.T) {
	for _, c := range getAllCodecs() {
		got, err := CreateCodec(c.codec.Type())
		require.NoError(t, err)
		require.Equal(t, c.codec.Type(), got.Type())
	}

	_, err := CreateCodec(format.CompressionAuto)
	require.ErrorIs(t, err, errs.ErrInvalidCompression)

	_, err = CreateCodec(format.CompressionType(0x7))
	require.ErrorIs(t, err, errs.ErrInvalidCompression)

	_, err = NewWriter(format.CompressionAuto, io.Discard)
	require.ErrorIs(t, err, errs.ErrInvalidCompression)
}

func TestDetect(t *testing.T) {
	payload := testPayload()
	for _, c := range getAllCodecs() {
		t.Run(c.name, func(t *testing.T) {
			compressed := compressAll(t, c.codec, payload)
			require.Equal(t, c.codec.Type(), Detect(compressed))
		})
	}

	t.Run("IR magic", func(t *testing.T) {
		require.Equal(t, format.CompressionNone, Detect([]byte{0xFD, 0x2F, 0xB5, 0x29, 0x01}))
	})
	t.Run("short", func(t *testing.T) {
		require.Equal(t, format.CompressionNone, Detect([]byte{0x28, 0xB5}))
		require.Equal(t, format.CompressionNone, Detect(nil))
	})
	t.Run("snappy", func(t *testing.T) {
		require.Equal(t, format.CompressionS2, Detect(append([]byte{}, snappyMagic...)))
	})
}

func TestNewReader_Auto(t *testing.T) {
	payload := testPayload()
	for _, c := range getAllCodecs() {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(c.codec.Type(), &buf)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			compressedLen := buf.Len()

			r, err := NewReader(format.CompressionAuto, &buf)
			require.NoError(t, err)
			defer r.Close()
			require.Equal(t, c.codec.Type(), r.Type())

			out, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, payload, out)

			stats := r.Stats()
			require.Equal(t, c.codec.Type(), stats.Type)
			require.Equal(t, int64(len(payload)), stats.DecompressedBytes)
			require.Equal(t, int64(compressedLen), stats.CompressedBytes)
			if c.codec.Type() != format.CompressionNone {
				require.Less(t, stats.Ratio(), 1.0)
				require.Greater(t, stats.SpaceSavings(), 0.0)
			}
		})
	}
}

func TestNewReader_AutoShortSource(t *testing.T) {
	r, err := NewReader(format.CompressionAuto, bytes.NewReader([]byte{0x01, 0x02}))
	require.NoError(t, err)
	require.Equal(t, format.CompressionNone, r.Type())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, out)
	require.NoError(t, r.Close())
}

func TestNewReader_Explicit(t *testing.T) {
	compressed := compressAll(t, NewZstdCodec(), []byte("explicit"))

	r, err := NewReader(format.CompressionZstd, bytes.NewReader(compressed))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "explicit", string(out))
	require.NoError(t, r.Close())

	_, err = NewReader(format.CompressionType(0), bytes.NewReader(compressed))
	require.ErrorIs(t, err, errs.ErrInvalidCompression)
}

func TestStats_Empty(t *testing.T) {
	var s Stats
	require.Zero(t, s.Ratio())
	require.Zero(t, s.SpaceSavings())
}
