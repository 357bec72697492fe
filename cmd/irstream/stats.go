package main

import (
	"bufio"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arloliu/irstream"
	"github.com/arloliu/irstream/internal/collision"
)

func newStatsCommand(g *globalFlags) *cobra.Command {
	var (
		top             int
		allowIncomplete bool
	)

	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Summarize a stream: sizes, time span and the most frequent logtypes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := g.openSession(cmd, args[0], irstream.WithAllowIncompleteStream(allowIncomplete))
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, s.close())
			}()

			meta, err := s.reader.ReadPreamble()
			if err != nil {
				return err
			}

			var (
				logtypes = collision.NewTracker()
				first    int64
				last     int64
				records  uint64
				ctx      = cmd.Context()
			)
			for rec, err := range s.reader.All() {
				if err != nil {
					return err
				}
				if records == 0 {
					first = rec.Timestamp()
				}
				last = rec.Timestamp()
				records++

				if logtypes.Track(rec.LogtypeID(), rec.Logtype()) {
					s.logger.Warn("logtype fingerprint collision",
						zap.Uint64("id", rec.LogtypeID()),
						zap.Uint64("index", rec.Index()),
					)
				}

				if s.interrupted(ctx) {
					break
				}
			}

			stats := s.reader.Stats()
			w := bufio.NewWriter(cmd.OutOrStdout())
			defer func() {
				err = multierr.Append(err, w.Flush())
			}()

			loc := meta.Location()
			_ = writef(w, "encoding:      %s\n", meta.Encoding())
			_ = writef(w, "compression:   %s\n", stats.Compression.Type)
			_ = writef(w, "timezone:      %s\n", meta.TimezoneID())
			_ = writef(w, "attributes:    %d\n", meta.NumAttributes())
			for _, info := range meta.Schema() {
				_ = writef(w, "  %s: %s\n", info.Name, info.Type)
			}
			_ = writef(w, "records:       %s\n", humanize.Comma(int64(records)))
			_ = writef(w, "logtypes:      %s\n", humanize.Comma(int64(logtypes.Count())))
			_ = writef(w, "stored size:   %s\n", humanize.IBytes(uint64(stats.Compression.CompressedBytes)))
			_ = writef(w, "decoded size:  %s\n", humanize.IBytes(uint64(stats.Decoder.Buffer.BytesRead)))
			if records > 0 {
				_ = writef(w, "first record:  %s\n", time.UnixMilli(first).In(loc).Format(time.RFC3339Nano))
				_ = writef(w, "last record:   %s\n", time.UnixMilli(last).In(loc).Format(time.RFC3339Nano))
			}

			if logtypes.HasCollision() {
				_ = writef(w, "collisions:    %d\n", logtypes.Collisions())
			}

			_ = writef(w, "top logtypes:\n")
			for _, e := range logtypes.Top(top) {
				if err := writef(w, "  %10s  %016x  %q\n", humanize.Comma(int64(e.Count)), e.ID, e.Logtype); err != nil {
					return err
				}
			}

			return nil
		},
	}

	bindOptions(newViper(), cmd, false, []opt{
		newOpt(&top, "top", 10, "number of logtypes to list; 0 lists all"),
		newOpt(&allowIncomplete, "allow-incomplete", false, "end a truncated stream without an error"),
	})

	return cmd
}
