package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/irstream"
	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/metadata"
	"github.com/arloliu/irstream/query"
)

// searchFlags describe the query of the search command.
type searchFlags struct {
	wildcards     []string
	caseSensitive bool
	from          string
	to            string
	margin        time.Duration
	attributes    []string
	absent        []string
}

func newSearchCommand(g *globalFlags) *cobra.Command {
	o := &outputFlags{}
	sf := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search FILE",
		Short: "Print the records matching a query",
		Long: `Print the records matching a query.

Wildcards match the whole message: '*' matches any run of characters, '?' one
character and '\' escapes the next one. A record matches when any wildcard
matches. Time bounds are Unix milliseconds or RFC 3339 times. Scanning stops at
the first record later than --to plus --margin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, g, o, args[0], sf.build)
		},
	}

	v := newViper()
	bindOptions(v, cmd, false, o.options())
	bindOptions(v, cmd, false, []opt{
		newOpt(&sf.wildcards, "wildcard", nil, "wildcard pattern; repeatable"),
		newOpt(&sf.caseSensitive, "case-sensitive", false, "match wildcards case-sensitively"),
		newOpt(&sf.from, "from", "", "lower timestamp bound (inclusive)"),
		newOpt(&sf.to, "to", "", "upper timestamp bound (inclusive)"),
		newOpt(&sf.margin, "margin", time.Duration(query.DefaultSafetyMargin)*time.Millisecond, "how far past --to to keep scanning for out-of-order records"),
		newOpt(&sf.attributes, "attr", nil, "attribute constraint name=value; repeatable"),
		newOpt(&sf.absent, "attr-absent", nil, "attribute that must be null; repeatable"),
	})

	return cmd
}

// build turns the flags into a query. Attribute values are typed after the stream
// schema, so the preamble is read first.
func (sf *searchFlags) build(r *irstream.Reader) (*query.Query, error) {
	meta, err := r.ReadPreamble()
	if err != nil {
		return nil, err
	}

	lower, err := parseTimestamp(sf.from, query.MinTimestamp)
	if err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	upper, err := parseTimestamp(sf.to, query.MaxTimestamp)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}

	opts := []query.Option{
		query.WithTimeRange(lower, upper),
		query.WithSafetyMargin(sf.margin.Milliseconds()),
	}

	if len(sf.wildcards) > 0 {
		wildcards := make([]query.WildcardQuery, 0, len(sf.wildcards))
		for _, p := range sf.wildcards {
			wildcards = append(wildcards, query.NewWildcardQuery(p, sf.caseSensitive))
		}
		opts = append(opts, query.WithWildcards(wildcards...))
	}

	for _, kv := range sf.attributes {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--attr %q: expected name=value", kv)
		}
		value, err := attributeValue(meta, name, raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, query.WithAttribute(name, value))
	}
	for _, name := range sf.absent {
		opts = append(opts, query.WithAttributeAbsent(name))
	}

	return query.New(opts...)
}

// attributeValue types raw after the schema entry of name. Undeclared names are kept
// as strings; the query validation reports them.
func attributeValue(meta *metadata.Metadata, name, raw string) (attr.Value, error) {
	idx, ok := meta.AttributeIndex(name)
	if !ok || meta.AttributeAt(idx).Type != attr.TypeInt {
		return attr.String(raw), nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return attr.Value{}, fmt.Errorf("--attr %s: %q is not an integer", name, raw)
	}

	return attr.Int(n), nil
}

// parseTimestamp parses Unix milliseconds or an RFC 3339 time; empty returns dflt.
func parseTimestamp(s string, dflt int64) (int64, error) {
	if s == "" {
		return dflt, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither Unix milliseconds nor an RFC 3339 time", s)
	}

	return t.UnixMilli(), nil
}
