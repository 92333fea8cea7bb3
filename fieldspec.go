package facetset

import (
	"fmt"
	"strings"
)

// Strategy identifies a filter strategy variant. The empty value resolves
// through the registry from the field's schema kind.
type Strategy string

const (
	StrategyDefault      Strategy = ""
	StrategyValues       Strategy = "values"
	StrategyEnum         Strategy = "enum"
	StrategyCategorical  Strategy = "categorical"
	StrategyMulti        Strategy = "multi"
	StrategyNumericRange Strategy = "numericrange"
	StrategyDateTime     Strategy = "datetime"
)

// MaxDepth caps temporal drill-down. The empty value allows day-level depth.
type MaxDepth string

const (
	DepthFull  MaxDepth = ""
	DepthYear  MaxDepth = "year"
	DepthMonth MaxDepth = "month"
)

// RangeSpec is one caller-supplied numeric bucket: lower bound exclusive
// (inclusive for the first bucket of a set), upper bound inclusive. Label,
// when set, overrides the generated "low-high" display.
type RangeSpec struct {
	Low   float64
	High  float64
	Label string
}

// Options configures one field's filter. Zero values mean "unset" and fall
// back to FilterSet-wide defaults, then to built-in defaults.
type Options struct {
	// QueryParam overrides the URL parameter key (default: field name).
	QueryParam string
	// Label overrides the facet's display label (default: field name,
	// separators spaced, first letter capitalized).
	Label string
	// OrderByCount sorts ADD choices descending by count (default false).
	// Ties keep natural value order.
	OrderByCount *bool
	// ShowCounts controls whether ADD choices carry counts (default true).
	ShowCounts *bool
	// MaxLinks caps the number of generated choices before bucketing or
	// collapsing (numericrange default 5, datetime default 12).
	MaxLinks int
	// MaxDepth caps temporal drill-down (datetime only).
	MaxDepth MaxDepth
	// Ranges replaces automatic numeric bucketing (numericrange only).
	Ranges []RangeSpec
	// Drilldown enables re-bucketing inside a chosen range
	// (numericrange only, default true).
	Drilldown *bool
	// RenderLabel overrides choice label formatting for raw values.
	RenderLabel func(value string) string
}

// merged overlays o on top of defaults; per-field values win on collision.
func (o Options) merged(defaults Options) Options {
	out := o
	if out.QueryParam == "" {
		out.QueryParam = defaults.QueryParam
	}
	if out.Label == "" {
		out.Label = defaults.Label
	}
	if out.OrderByCount == nil {
		out.OrderByCount = defaults.OrderByCount
	}
	if out.ShowCounts == nil {
		out.ShowCounts = defaults.ShowCounts
	}
	if out.MaxLinks == 0 {
		out.MaxLinks = defaults.MaxLinks
	}
	if out.MaxDepth == DepthFull {
		out.MaxDepth = defaults.MaxDepth
	}
	if out.Ranges == nil {
		out.Ranges = defaults.Ranges
	}
	if out.Drilldown == nil {
		out.Drilldown = defaults.Drilldown
	}
	if out.RenderLabel == nil {
		out.RenderLabel = defaults.RenderLabel
	}
	return out
}

func (o Options) showCounts() bool {
	return o.ShowCounts == nil || *o.ShowCounts
}

func (o Options) orderByCount() bool {
	return o.OrderByCount != nil && *o.OrderByCount
}

func (o Options) drilldown() bool {
	return o.Drilldown == nil || *o.Drilldown
}

// FieldSpec declares one filterable field: identifier, options, and an
// optional strategy override. Field-identifier-only specs take all defaults.
type FieldSpec struct {
	Field    string
	Options  Options
	Strategy Strategy
}

// defaultStrategy maps a schema kind to its registry default.
func defaultStrategy(k Kind) (Strategy, bool) {
	switch k {
	case KindRelation:
		return StrategyCategorical, true
	case KindMultiRelation:
		return StrategyMulti, true
	case KindEnum:
		return StrategyEnum, true
	case KindFloat:
		return StrategyNumericRange, true
	case KindTime:
		return StrategyDateTime, true
	case KindString, KindInt:
		return StrategyValues, true
	default:
		return StrategyDefault, false
	}
}

// validStrategies is the closed variant set accepted as overrides.
var validStrategies = map[Strategy]struct{}{
	StrategyValues:       {},
	StrategyEnum:         {},
	StrategyCategorical:  {},
	StrategyMulti:        {},
	StrategyNumericRange: {},
	StrategyDateTime:     {},
}

// defaultLabel derives a facet label from a field identifier:
// "date_published" and "author.name" become "Date published" and
// "Author name".
func defaultLabel(field string) string {
	s := strings.NewReplacer("_", " ", ".", " ").Replace(field)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func validateOptions(spec FieldSpec, strategy Strategy, fi FieldInfo) error {
	o := spec.Options
	if len(o.Ranges) > 0 && strategy != StrategyNumericRange {
		return fmt.Errorf("%w: field %s: ranges only apply to the numericrange strategy",
			ErrBadOption, spec.Field)
	}
	for i := 1; i < len(o.Ranges); i++ {
		if o.Ranges[i].Low < o.Ranges[i-1].High {
			return fmt.Errorf("%w: field %s: ranges must be ordered and non-overlapping",
				ErrBadOption, spec.Field)
		}
	}
	switch o.MaxDepth {
	case DepthFull, DepthYear, DepthMonth:
	default:
		return fmt.Errorf("%w: field %s: max depth %q", ErrBadOption, spec.Field, o.MaxDepth)
	}
	if o.MaxDepth != DepthFull && strategy != StrategyDateTime {
		return fmt.Errorf("%w: field %s: max depth only applies to the datetime strategy",
			ErrBadOption, spec.Field)
	}
	if o.MaxLinks < 0 {
		return fmt.Errorf("%w: field %s: negative max links", ErrBadOption, spec.Field)
	}
	switch strategy {
	case StrategyEnum:
		if fi.Kind != KindEnum || len(fi.Enum) == 0 {
			return fmt.Errorf("%w: field %s: enum strategy needs declared enum values",
				ErrBadOption, spec.Field)
		}
	case StrategyNumericRange:
		if fi.Kind != KindInt && fi.Kind != KindFloat {
			return fmt.Errorf("%w: field %s: numericrange strategy needs a numeric field",
				ErrBadOption, spec.Field)
		}
	case StrategyDateTime:
		if fi.Kind != KindTime {
			return fmt.Errorf("%w: field %s: datetime strategy needs a temporal field",
				ErrBadOption, spec.Field)
		}
	case StrategyMulti:
		if fi.Kind != KindMultiRelation {
			return fmt.Errorf("%w: field %s: multi strategy needs a multi-relation field",
				ErrBadOption, spec.Field)
		}
	}
	return nil
}
