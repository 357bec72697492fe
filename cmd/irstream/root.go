package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arloliu/irstream"
	"github.com/arloliu/irstream/format"
	"github.com/arloliu/irstream/metrics"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel     string
	compression  string
	bufferSize   int
	printMetrics bool
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "irstream",
		Short:         "Decode, search and produce CLP IR log streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindOptions(newViper(), root, true, []opt{
		newOpt(&g.logLevel, "log-level", "warn", "log level: debug, info, warn or error"),
		newOpt(&g.compression, "compression", "auto", "stream framing: auto, none, zstd, s2 or lz4"),
		newOpt(&g.bufferSize, "buffer-size", irstream.DefaultBufferCapacity, "initial decode buffer size in bytes"),
		newOpt(&g.printMetrics, "print-metrics", false, "print reader metrics to stderr when done"),
	})

	root.AddCommand(
		newDecodeCommand(g),
		newSearchCommand(g),
		newStatsCommand(g),
		newEncodeCommand(g),
	)

	return root
}

// session is an open input stream with its logger and metrics registry.
type session struct {
	reader   *irstream.Reader
	logger   *zap.Logger
	registry *prometheus.Registry
	stderr   io.Writer
}

// openSession opens path ("-" for stdin) for reading with the global flags applied.
func (g *globalFlags) openSession(cmd *cobra.Command, path string, opts ...irstream.ReaderOption) (*session, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), g.logLevel)
	if err != nil {
		return nil, err
	}

	compression, err := format.ParseCompressionType(g.compression)
	if err != nil {
		return nil, err
	}

	var source io.Reader
	if path == "-" {
		source = io.NopCloser(cmd.InOrStdin())
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		source = f
	}

	s := &session{logger: logger, stderr: cmd.ErrOrStderr()}
	opts = append(opts,
		irstream.WithCompression(compression),
		irstream.WithBufferCapacity(g.bufferSize),
		irstream.WithLogger(logger.With(zap.String("input", path))),
	)
	if g.printMetrics {
		s.registry = prometheus.NewRegistry()
		opts = append(opts, irstream.WithMetrics(s.registry, prometheus.Labels{"input": filepath.Base(path)}))
	}

	reader, err := irstream.NewReader(source, opts...)
	if err != nil {
		if c, ok := source.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}

		return nil, err
	}
	s.reader = reader

	return s, nil
}

// close prints the metrics when requested and closes the reader.
func (s *session) close() error {
	var err error
	if s.registry != nil {
		err = metrics.WriteText(s.stderr, s.registry)
	}
	err = multierr.Append(err, s.reader.Close())
	_ = s.logger.Sync()

	return err
}

// interrupted reports whether ctx was cancelled.
func (s *session) interrupted(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		s.logger.Info("interrupted", zap.Error(err))
		return true
	}

	return false
}

func writef(w io.Writer, layout string, args ...any) error {
	_, err := fmt.Fprintf(w, layout, args...)
	return err
}
