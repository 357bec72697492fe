// Package query implements the record filter applied while decoding a stream.
//
// A Query combines a timestamp range, a list of wildcard patterns and attribute
// constraints. Evaluation short-circuits in that order:
//
//  1. the record timestamp must lie within [lower, upper]
//  2. the message must match at least one wildcard pattern (an empty list matches all)
//  3. every attribute constraint must hold
//
// Streams are roughly ordered by time, so a scan may stop once a record is later than
// the upper bound plus a safety margin (see ExceedsSearchWindow). The margin tolerates
// records that were written slightly out of order.
//
// Note: a Query is NOT safe for concurrent mutation. Configure it before a scan; Matches
// itself does not mutate the query.
package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/arloliu/irstream/attr"
	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/internal/options"
	"github.com/arloliu/irstream/metadata"
	"github.com/arloliu/irstream/record"
)

const (
	// DefaultSafetyMargin is the default early-exit margin in milliseconds.
	DefaultSafetyMargin int64 = 60_000

	// MinTimestamp is the default lower bound.
	MinTimestamp int64 = math.MinInt64
	// MaxTimestamp is the default upper bound.
	MaxTimestamp int64 = math.MaxInt64
)

// Constraint requires an attribute to hold a value, or to be absent when Value is null.
type Constraint struct {
	Name  string
	Value attr.Value
}

func (c Constraint) matches(v attr.Value) bool {
	if c.Value.IsNull() {
		return v.IsNull()
	}

	return c.Value.Equal(v)
}

// Query is a record filter.
type Query struct {
	lower        int64
	upper        int64
	safetyMargin int64
	wildcards    []WildcardQuery
	constraints  []Constraint
}

// Option configures a Query.
type Option = options.Option[*Query]

// WithTimeRange sets both timestamp bounds, inclusive.
func WithTimeRange(lower, upper int64) Option {
	return options.NoError(func(q *Query) {
		q.lower = lower
		q.upper = upper
	})
}

// WithLowerBound sets the inclusive lower timestamp bound.
func WithLowerBound(ts int64) Option {
	return options.NoError(func(q *Query) { q.lower = ts })
}

// WithUpperBound sets the inclusive upper timestamp bound.
func WithUpperBound(ts int64) Option {
	return options.NoError(func(q *Query) { q.upper = ts })
}

// WithSafetyMargin sets the early-exit margin in milliseconds.
func WithSafetyMargin(ms int64) Option {
	return options.NoError(func(q *Query) { q.safetyMargin = ms })
}

// WithWildcards appends wildcard patterns; a record matches if any pattern matches.
func WithWildcards(wildcards ...WildcardQuery) Option {
	return options.NoError(func(q *Query) {
		q.wildcards = append(q.wildcards, wildcards...)
	})
}

// WithAttribute requires the named attribute to equal value.
func WithAttribute(name string, value attr.Value) Option {
	return options.NoError(func(q *Query) {
		q.constraints = append(q.constraints, Constraint{Name: name, Value: value})
	})
}

// WithAttributeAbsent requires the named attribute to be null.
func WithAttributeAbsent(name string) Option {
	return WithAttribute(name, attr.Null())
}

// New creates a query. Without options it accepts every record.
//
// Returns errs.ErrInvalidArgument when the lower bound exceeds the upper bound or the
// safety margin is negative.
func New(opts ...Option) (*Query, error) {
	q := &Query{
		lower:        MinTimestamp,
		upper:        MaxTimestamp,
		safetyMargin: DefaultSafetyMargin,
	}
	if err := options.Apply(q, opts...); err != nil {
		return nil, err
	}
	if err := q.check(); err != nil {
		return nil, err
	}

	return q, nil
}

// LowerBound returns the inclusive lower timestamp bound.
func (q *Query) LowerBound() int64 { return q.lower }

// UpperBound returns the inclusive upper timestamp bound.
func (q *Query) UpperBound() int64 { return q.upper }

// SafetyMargin returns the early-exit margin in milliseconds.
func (q *Query) SafetyMargin() int64 { return q.safetyMargin }

// Wildcards returns a copy of the wildcard patterns.
func (q *Query) Wildcards() []WildcardQuery {
	return append([]WildcardQuery(nil), q.wildcards...)
}

// Constraints returns a copy of the attribute constraints.
func (q *Query) Constraints() []Constraint {
	return append([]Constraint(nil), q.constraints...)
}

// SetLowerBound changes the lower bound.
func (q *Query) SetLowerBound(ts int64) error {
	if ts > q.upper {
		return fmt.Errorf("%w: lower bound %d exceeds upper bound %d", errs.ErrInvalidArgument, ts, q.upper)
	}
	q.lower = ts

	return nil
}

// SetUpperBound changes the upper bound.
func (q *Query) SetUpperBound(ts int64) error {
	if ts < q.lower {
		return fmt.Errorf("%w: upper bound %d is below lower bound %d", errs.ErrInvalidArgument, ts, q.lower)
	}
	q.upper = ts

	return nil
}

// SetSafetyMargin changes the early-exit margin.
func (q *Query) SetSafetyMargin(ms int64) error {
	if ms < 0 {
		return fmt.Errorf("%w: negative safety margin %d", errs.ErrInvalidArgument, ms)
	}
	q.safetyMargin = ms

	return nil
}

// SearchWindowEnd returns upper bound + safety margin, saturating at MaxTimestamp.
func (q *Query) SearchWindowEnd() int64 {
	if q.upper > MaxTimestamp-q.safetyMargin {
		return MaxTimestamp
	}

	return q.upper + q.safetyMargin
}

// ExceedsSearchWindow reports whether a record at ts ends the scan.
func (q *Query) ExceedsSearchWindow(ts int64) bool {
	return ts > q.SearchWindowEnd()
}

// MatchesTimeRange reports whether ts lies within the bounds.
func (q *Query) MatchesTimeRange(ts int64) bool {
	return ts >= q.lower && ts <= q.upper
}

// MatchesWildcards reports whether message matches any pattern. An empty pattern list
// matches every message.
func (q *Query) MatchesWildcards(message string) bool {
	if len(q.wildcards) == 0 {
		return true
	}
	for _, w := range q.wildcards {
		if w.Matches(message) {
			return true
		}
	}

	return false
}

// Matches evaluates the query against rec.
//
// Returns errs.ErrQueryConfiguration when a constraint names an attribute the record's
// schema does not declare.
func (q *Query) Matches(rec *record.Record) (bool, error) {
	if !q.MatchesTimeRange(rec.Timestamp()) {
		return false, nil
	}
	if !q.MatchesWildcards(rec.Message()) {
		return false, nil
	}

	for _, c := range q.constraints {
		v, ok := rec.Attribute(c.Name)
		if !ok {
			return false, fmt.Errorf("%w: attribute %q is not declared", errs.ErrQueryConfiguration, c.Name)
		}
		if !c.matches(v) {
			return false, nil
		}
	}

	return true, nil
}

// Validate checks the attribute constraints against the stream schema.
func (q *Query) Validate(meta *metadata.Metadata) error {
	if err := q.check(); err != nil {
		return err
	}

	for _, c := range q.constraints {
		if meta == nil {
			return fmt.Errorf("%w: attribute %q cannot be checked without metadata", errs.ErrQueryConfiguration, c.Name)
		}

		idx, ok := meta.AttributeIndex(c.Name)
		if !ok {
			return fmt.Errorf("%w: attribute %q is not declared", errs.ErrQueryConfiguration, c.Name)
		}
		if !c.Value.IsNull() && !c.Value.Matches(meta.AttributeAt(idx).Type) {
			return fmt.Errorf("%w: attribute %q is %s, constraint is %s",
				errs.ErrQueryConfiguration, c.Name, meta.AttributeAt(idx).Type, c.Value)
		}
	}

	return nil
}

func (q *Query) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query{lower: %d, upper: %d, margin: %d", q.lower, q.upper, q.safetyMargin)
	if len(q.wildcards) > 0 {
		patterns := make([]string, len(q.wildcards))
		for i, w := range q.wildcards {
			patterns[i] = w.String()
		}
		fmt.Fprintf(&sb, ", wildcards: [%s]", strings.Join(patterns, ", "))
	}
	for _, c := range q.constraints {
		fmt.Fprintf(&sb, ", %s: %s", c.Name, c.Value)
	}
	sb.WriteByte('}')

	return sb.String()
}

func (q *Query) check() error {
	if q.lower > q.upper {
		return fmt.Errorf("%w: lower bound %d exceeds upper bound %d", errs.ErrInvalidArgument, q.lower, q.upper)
	}
	if q.safetyMargin < 0 {
		return fmt.Errorf("%w: negative safety margin %d", errs.ErrInvalidArgument, q.safetyMargin)
	}

	return nil
}
