package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/codec/fourbyte"
	"github.com/arloliu/irstream/compress"
	"github.com/arloliu/irstream/format"
	"github.com/arloliu/irstream/metadata"
)

const (
	// timestampPattern is the CLP pattern recorded for encoded streams.
	timestampPattern = "%Y-%m-%d %H:%M:%S.%3"

	levelAttribute = "level"
)

var logLevels = map[string]struct{}{
	"TRACE": {}, "DEBUG": {}, "INFO": {}, "WARN": {}, "WARNING": {}, "ERROR": {}, "FATAL": {},
}

type encodeFlags struct {
	output         string
	compression    string
	timezone       string
	levelAttribute bool
}

func newEncodeCommand(g *globalFlags) *cobra.Command {
	ef := &encodeFlags{}

	cmd := &cobra.Command{
		Use:   "encode FILE",
		Short: "Encode text log lines into an IR stream",
		Long: `Encode text log lines into an IR stream.

Every input line is "<timestamp> <message>", where the timestamp is Unix
milliseconds or an RFC 3339 time. The message keeps the separating space.
Lines without a parsable timestamp continue the previous record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), g.logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return ef.run(cmd, args[0], logger)
		},
	}

	bindOptions(newViper(), cmd, false, []opt{
		newOpt(&ef.output, "out", "-", "output file, - for stdout"),
		newOpt(&ef.compression, "out-compression", "zstd", "output framing: none, zstd, s2 or lz4"),
		newOpt(&ef.timezone, "tz", "UTC", "timezone recorded in the stream metadata"),
		newOpt(&ef.levelAttribute, "level-attribute", false, "record the leading log level word as the \"level\" attribute"),
	})

	return cmd
}

type pendingEvent struct {
	ts  int64
	msg strings.Builder
}

func (ef *encodeFlags) run(cmd *cobra.Command, path string, logger *zap.Logger) (err error) {
	compression, err := format.ParseCompressionType(ef.compression)
	if err != nil {
		return err
	}
	if compression == format.CompressionAuto {
		return errors.New("--out-compression must name an algorithm")
	}

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var out io.Writer = cmd.OutOrStdout()
	if ef.output != "-" {
		f, err := os.Create(ef.output)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, f.Close())
		}()
		out = f
	}

	var opts []metadata.Option
	if ef.levelAttribute {
		opts = append(opts, metadata.WithAttributes(attr.Info{Name: levelAttribute, Type: attr.TypeString}))
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var (
		w       io.WriteCloser
		enc     *fourbyte.Encoder
		pending *pendingEvent
		count   int
	)
	flush := func() error {
		if pending == nil {
			return nil
		}
		msg := pending.msg.String()
		count++
		if !ef.levelAttribute {
			return enc.Encode(pending.ts, msg)
		}

		return enc.Encode(pending.ts, msg, levelOf(msg))
	}

	for scanner.Scan() {
		line := scanner.Text()
		head, rest, _ := strings.Cut(line, " ")
		ts, tsErr := parseTimestamp(head, 0)
		if head == "" || tsErr != nil {
			if pending == nil {
				logger.Warn("skipping line without timestamp", zap.String("line", line))
				continue
			}
			pending.msg.WriteString("\n")
			pending.msg.WriteString(line)

			continue
		}

		if enc == nil {
			meta, err := metadata.New(ts, timestampPattern, ef.timezone, opts...)
			if err != nil {
				return err
			}
			if w, err = compress.NewWriter(compression, out); err != nil {
				return err
			}
			if enc, err = fourbyte.NewEncoder(w, meta); err != nil {
				return err
			}
		}
		if err := flush(); err != nil {
			return err
		}

		pending = &pendingEvent{ts: ts}
		pending.msg.WriteString(" ")
		pending.msg.WriteString(rest)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if enc == nil {
		return errors.New("input contains no timestamped lines")
	}

	if err := flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	logger.Info("encoded stream",
		zap.Int("records", count),
		zap.Stringer("compression", compression),
	)

	return nil
}

// levelOf returns the leading log level word of msg, or null.
func levelOf(msg string) attr.Value {
	word, _, _ := strings.Cut(strings.TrimSpace(msg), " ")
	if _, ok := logLevels[word]; ok {
		return attr.String(word)
	}

	return attr.Null()
}
