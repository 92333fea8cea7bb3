package facetset

import (
	"context"
	"time"
)

// Dataset is the capability the engine consumes from a host data store. A
// Dataset is an immutable handle: Narrow returns a new handle, it never
// mutates the receiver. The engine only composes predicates and asks for
// counts; it never inspects raw records.
//
// Providers must deduplicate rows under to-many narrowing: a record matches
// a Contains predicate at most once regardless of how many of its related
// values match.
type Dataset interface {
	// Narrow returns the dataset restricted to records matching all preds.
	Narrow(ctx context.Context, preds ...Predicate) (Dataset, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// ValueCounts returns one row per distinct value of field, sorted
	// ascending by value (numerically when values are numeric), with the
	// number of records holding that value. Records without the field
	// produce a single Null row, sorted first. For multi-relation fields
	// each related value counts a record at most once.
	ValueCounts(ctx context.Context, field string) ([]ValueCount, error)

	// NumericCounts returns distinct numeric values with counts, sorted
	// ascending. Records without the field are omitted.
	NumericCounts(ctx context.Context, field string) ([]NumericCount, error)

	// TimeBounds returns the earliest and latest value of a temporal field.
	// ok is false when no record has the field.
	TimeBounds(ctx context.Context, field string) (min, max time.Time, ok bool, err error)

	// DateCounts returns record counts grouped by field truncated to the
	// given level, sorted ascending. Records without the field are omitted.
	DateCounts(ctx context.Context, field string, level DateLevel) ([]DateCount, error)
}

// Labeler is an optional Dataset capability: resolving stored relation ids
// into display labels. A value missing from the returned map is treated as a
// reference to a nonexistent record.
type Labeler interface {
	Labels(ctx context.Context, field string, values []string) (map[string]string, error)
}

// ValueCount is one distinct value and its record count.
type ValueCount struct {
	Value string
	Null  bool
	Count int
}

// NumericCount is one distinct numeric value and its record count.
type NumericCount struct {
	Value float64
	Count int
}

// DateLevel selects the truncation granularity for DateCounts.
type DateLevel int

const (
	LevelYear DateLevel = iota + 1
	LevelMonth
	LevelDay
)

// DateCount is one truncated date and its record count.
type DateCount struct {
	Date  time.Time
	Count int
}

// PredicateKind discriminates the closed set of narrowing predicates.
type PredicateKind int

const (
	PredEq PredicateKind = iota
	PredContains
	PredNumRange
	PredTimeRange
	PredIsNull
)

// Predicate is a single declarative narrowing clause.
type Predicate struct {
	field string
	kind  PredicateKind
	eq    string
	num   NumRange
	tm    TimeSpan
}

// NumRange is a numeric interval with per-end inclusivity.
type NumRange struct {
	Low, High         float64
	LowIncl, HighIncl bool
}

// TimeSpan is a half-open time interval [From, To).
type TimeSpan struct {
	From, To time.Time
}

// Eq matches records whose field equals value exactly.
func Eq(field, value string) Predicate {
	return Predicate{field: field, kind: PredEq, eq: value}
}

// Contains matches records whose multi-valued field contains value.
func Contains(field, value string) Predicate {
	return Predicate{field: field, kind: PredContains, eq: value}
}

// NumBetween matches records whose numeric field lies inside the interval.
func NumBetween(field string, r NumRange) Predicate {
	return Predicate{field: field, kind: PredNumRange, num: r}
}

// NumEq matches records whose numeric field equals v.
func NumEq(field string, v float64) Predicate {
	return NumBetween(field, NumRange{Low: v, High: v, LowIncl: true, HighIncl: true})
}

// TimeBetween matches records whose temporal field lies in [from, to).
func TimeBetween(field string, from, to time.Time) Predicate {
	return Predicate{field: field, kind: PredTimeRange, tm: TimeSpan{From: from, To: to}}
}

// IsNull matches records that have no value for field.
func IsNull(field string) Predicate {
	return Predicate{field: field, kind: PredIsNull}
}

// Field returns the field the predicate narrows on.
func (p Predicate) Field() string { return p.field }

// Kind returns the predicate discriminator.
func (p Predicate) Kind() PredicateKind { return p.kind }

// Value returns the comparison value for Eq and Contains predicates.
func (p Predicate) Value() string { return p.eq }

// Num returns the interval for NumRange predicates.
func (p Predicate) Num() NumRange { return p.num }

// Span returns the interval for TimeRange predicates.
func (p Predicate) Span() TimeSpan { return p.tm }
