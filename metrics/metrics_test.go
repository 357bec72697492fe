package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/irstream/buffer"
	"github.com/arloliu/irstream/compress"
	"github.com/arloliu/irstream/decoder"
	"github.com/arloliu/irstream/format"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Decoder: decoder.Stats{
			RecordsDecoded:  10,
			RecordsReturned: 7,
			RecordsSkipped:  3,
			EarlyExits:      1,
			Buffer: buffer.Stats{
				BytesRead:   4096,
				Pulls:       4,
				Growths:     2,
				Compactions: 1,
			},
		},
		Compression: compress.Stats{
			Type:              format.CompressionZstd,
			CompressedBytes:   1024,
			DecompressedBytes: 4096,
		},
	}
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}

	return nil
}

func TestCollector_Gather(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(sampleSnapshot, nil)))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 9)

	tests := []struct {
		name string
		want float64
	}{
		{"irstream_records_decoded_total", 10},
		{"irstream_records_returned_total", 7},
		{"irstream_records_skipped_total", 3},
		{"irstream_query_early_exits_total", 1},
		{"irstream_buffer_bytes_read_total", 4096},
		{"irstream_buffer_pulls_total", 4},
		{"irstream_buffer_growths_total", 2},
		{"irstream_buffer_compactions_total", 1},
		{"irstream_source_compressed_bytes_total", 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := findFamily(mfs, tt.name)
			require.NotNil(t, mf)
			require.Equal(t, dto.MetricType_COUNTER, mf.GetType())
			require.Len(t, mf.GetMetric(), 1)
			require.Equal(t, tt.want, mf.GetMetric()[0].GetCounter().GetValue())
		})
	}

	compressed := findFamily(mfs, "irstream_source_compressed_bytes_total").GetMetric()[0]
	require.Len(t, compressed.GetLabel(), 1)
	require.Equal(t, "compression", compressed.GetLabel()[0].GetName())
	require.Equal(t, "Zstd", compressed.GetLabel()[0].GetValue())
}

func TestCollector_ReadsSourceOnEveryScrape(t *testing.T) {
	var decoded uint64
	source := func() Snapshot {
		decoded += 5
		return Snapshot{Decoder: decoder.Stats{RecordsDecoded: decoded}}
	}

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(source, nil)))

	for _, want := range []float64{5, 10} {
		mfs, err := reg.Gather()
		require.NoError(t, err)
		got := findFamily(mfs, "irstream_records_decoded_total").GetMetric()[0].GetCounter().GetValue()
		require.Equal(t, want, got)
	}
}

func TestCollector_ConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(sampleSnapshot, prometheus.Labels{"stream": "a"})))
	require.NoError(t, reg.Register(NewCollector(sampleSnapshot, prometheus.Labels{"stream": "b"})))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, findFamily(mfs, "irstream_records_returned_total").GetMetric(), 2)

	// Same const labels twice collide.
	err = reg.Register(NewCollector(sampleSnapshot, prometheus.Labels{"stream": "a"}))
	require.Error(t, err)
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(sampleSnapshot, nil)))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))

	out := buf.String()
	require.Contains(t, out, "# TYPE irstream_records_decoded_total counter")
	require.Contains(t, out, "irstream_records_decoded_total 10")
	require.Contains(t, out, `irstream_source_compressed_bytes_total{compression="Zstd"} 1024`)
}
