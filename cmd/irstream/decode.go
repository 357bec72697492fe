package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/arloliu/irstream"
	"github.com/arloliu/irstream/query"
	"github.com/arloliu/irstream/record"
)

const (
	outputText    = "text"
	outputMsgpack = "msgpack"
)

// outputFlags select how records are printed.
type outputFlags struct {
	output          string
	timezone        string
	withIndex       bool
	allowIncomplete bool
}

func (o *outputFlags) options() []opt {
	return []opt{
		newOpt(&o.output, "output", outputText, "record output: text or msgpack"),
		newOpt(&o.timezone, "tz", "", "timezone for formatted timestamps (default: stream timezone)"),
		newOpt(&o.withIndex, "with-index", false, "prefix text records with their index"),
		newOpt(&o.allowIncomplete, "allow-incomplete", false, "end a truncated stream without an error"),
	}
}

// recordWriter prints records in the selected output format.
type recordWriter struct {
	w         *bufio.Writer
	output    string
	loc       *time.Location
	withIndex bool
}

func (o *outputFlags) newRecordWriter(cmd *cobra.Command) (*recordWriter, error) {
	if o.output != outputText && o.output != outputMsgpack {
		return nil, fmt.Errorf("unknown output %q", o.output)
	}

	rw := &recordWriter{w: bufio.NewWriter(cmd.OutOrStdout()), output: o.output, withIndex: o.withIndex}
	if o.timezone != "" {
		loc, err := time.LoadLocation(o.timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
		rw.loc = loc
	}

	return rw, nil
}

func (rw *recordWriter) write(rec *record.Record) error {
	if rw.output == outputMsgpack {
		data, err := record.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = rw.w.Write(data)

		return err
	}

	raw := rec.RawMessage()
	if rw.loc != nil {
		raw = rec.RawMessageIn(rw.loc)
	}
	if rw.withIndex {
		return writef(rw.w, "%d\t%s\n", rec.Index(), raw)
	}

	return writef(rw.w, "%s\n", raw)
}

func (rw *recordWriter) flush() error {
	return rw.w.Flush()
}

func newDecodeCommand(g *globalFlags) *cobra.Command {
	o := &outputFlags{}

	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Print every record of a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, g, o, args[0], nil)
		},
	}
	bindOptions(newViper(), cmd, false, o.options())

	return cmd
}

// runScan prints the records of path accepted by q, or every record when q is nil.
func runScan(cmd *cobra.Command, g *globalFlags, o *outputFlags, path string, build func(*irstream.Reader) (*query.Query, error)) (err error) {
	rw, err := o.newRecordWriter(cmd)
	if err != nil {
		return err
	}

	s, err := g.openSession(cmd, path, irstream.WithAllowIncompleteStream(o.allowIncomplete))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, rw.flush(), s.close())
	}()

	var q *query.Query
	if build != nil {
		if q, err = build(s.reader); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	for rec, err := range s.reader.Search(q) {
		if err != nil {
			return err
		}
		if err := rw.write(rec); err != nil {
			return err
		}
		if s.interrupted(ctx) {
			return nil
		}
	}

	return nil
}
