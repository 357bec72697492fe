// Package metrics exposes stream reader activity as Prometheus metrics.
//
// The collector keeps no counters of its own. Every scrape reads a Snapshot from its
// Source and reports the values as const metrics.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/multierr"

	"github.com/arloliu/irstream/compress"
	"github.com/arloliu/irstream/decoder"
)

const namespace = "irstream"

// Snapshot is the activity of one stream reader at a point in time.
type Snapshot struct {
	Decoder     decoder.Stats
	Compression compress.Stats
}

// Source returns the current Snapshot. It is called once per scrape and must be safe
// to call concurrently with the reader it observes.
type Source func() Snapshot

// Collector reports the activity of one stream reader.
type Collector struct {
	source            Source
	recordsDecoded    *prometheus.Desc
	recordsReturned   *prometheus.Desc
	recordsSkipped    *prometheus.Desc
	earlyExits        *prometheus.Desc
	bufferBytes       *prometheus.Desc
	bufferPulls       *prometheus.Desc
	bufferGrowths     *prometheus.Desc
	bufferCompactions *prometheus.Desc
	compressedBytes   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector reading from source.
//
// constLabels are attached to every metric; use them to tell apart several readers
// registered with the same registry.
func NewCollector(source Source, constLabels prometheus.Labels) *Collector {
	desc := func(subsystem, name, help string, variableLabels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help, variableLabels, constLabels)
	}

	return &Collector{
		source:            source,
		recordsDecoded:    desc("records", "decoded_total", "Number of records decoded from the stream"),
		recordsReturned:   desc("records", "returned_total", "Number of records returned to the caller"),
		recordsSkipped:    desc("records", "skipped_total", "Number of records rejected by a query"),
		earlyExits:        desc("query", "early_exits_total", "Number of scans ended by a query search window"),
		bufferBytes:       desc("buffer", "bytes_read_total", "Number of decompressed bytes read into the decode buffer"),
		bufferPulls:       desc("buffer", "pulls_total", "Number of reads from the byte source that returned data"),
		bufferGrowths:     desc("buffer", "growths_total", "Number of decode buffer capacity doublings"),
		bufferCompactions: desc("buffer", "compactions_total", "Number of decode buffer compactions"),
		compressedBytes:   desc("source", "compressed_bytes_total", "Number of bytes read from the underlying source", "compression"),
	}
}

// Describe returns all descriptions of the collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.recordsDecoded
	ch <- c.recordsReturned
	ch <- c.recordsSkipped
	ch <- c.earlyExits
	ch <- c.bufferBytes
	ch <- c.bufferPulls
	ch <- c.bufferGrowths
	ch <- c.bufferCompactions
	ch <- c.compressedBytes
}

// Collect returns the current state of all metrics of the collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source()
	counter := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, v, labels...)
	}

	counter(c.recordsDecoded, float64(snap.Decoder.RecordsDecoded))
	counter(c.recordsReturned, float64(snap.Decoder.RecordsReturned))
	counter(c.recordsSkipped, float64(snap.Decoder.RecordsSkipped))
	counter(c.earlyExits, float64(snap.Decoder.EarlyExits))
	counter(c.bufferBytes, float64(snap.Decoder.Buffer.BytesRead))
	counter(c.bufferPulls, float64(snap.Decoder.Buffer.Pulls))
	counter(c.bufferGrowths, float64(snap.Decoder.Buffer.Growths))
	counter(c.bufferCompactions, float64(snap.Decoder.Buffer.Compactions))
	counter(c.compressedBytes, float64(snap.Compression.CompressedBytes), snap.Compression.Type.String())
}

// WriteText gathers g and writes every metric family in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var errs error
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
