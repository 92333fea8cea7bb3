package facetset

import (
	"context"
	"strconv"
	"strings"
)

// rangeEnd is one bound of a numeric selection.
type rangeEnd struct {
	value     float64
	inclusive bool
}

// numChoice is a parsed numeric selection: a single value, a range with
// per-end inclusivity, or the null marker. The wire form is "LOW..HIGH" with
// a trailing "i" marking an inclusive end, e.g. "10i..20i" or "3.5".
type numChoice struct {
	null bool
	ends []rangeEnd
}

func parseNumChoice(param string) (numChoice, bool) {
	parts := strings.SplitN(param, "..", 2)
	ends := make([]rangeEnd, 0, len(parts))
	for _, p := range parts {
		inclusive := false
		if strings.HasSuffix(p, "i") {
			inclusive = true
			p = strings.TrimSuffix(p, "i")
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return numChoice{}, false
		}
		ends = append(ends, rangeEnd{value: v, inclusive: inclusive})
	}
	if len(ends) == 2 && ends[1].value < ends[0].value {
		return numChoice{}, false
	}
	return numChoice{ends: ends}, true
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// encode renders the wire form.
func (c numChoice) encode() string {
	parts := make([]string, len(c.ends))
	for i, e := range c.ends {
		parts[i] = formatNum(e.value)
		if e.inclusive {
			parts[i] += "i"
		}
	}
	return strings.Join(parts, "..")
}

// display renders the user-facing form: "10-20" or "15".
func (c numChoice) display() string {
	if c.null {
		return nullLabel
	}
	parts := make([]string, len(c.ends))
	for i, e := range c.ends {
		parts[i] = formatNum(e.value)
	}
	return strings.Join(parts, "-")
}

func (c numChoice) predicate(field string) Predicate {
	switch {
	case c.null:
		return IsNull(field)
	case len(c.ends) == 1:
		return NumEq(field, c.ends[0].value)
	default:
		return NumBetween(field, NumRange{
			Low: c.ends[0].value, LowIncl: c.ends[0].inclusive,
			High: c.ends[1].value, HighIncl: c.ends[1].inclusive,
		})
	}
}

// compareNum orders selections by specificity: a single value is more
// specific than a range, a narrower range more specific than a wider one,
// null most specific of all. Removing a selection cascades to everything at
// least as specific.
func compareNum(a, b numChoice) int {
	switch {
	case a.null && b.null:
		return 0
	case a.null:
		return 1
	case b.null:
		return -1
	}
	if len(a.ends) != len(b.ends) {
		if len(a.ends) < len(b.ends) {
			return 1
		}
		return -1
	}
	if len(a.ends) == 1 {
		return 0
	}
	aw := a.ends[1].value - a.ends[0].value
	bw := b.ends[1].value - b.ends[0].value
	switch {
	case aw < bw:
		return 1
	case aw > bw:
		return -1
	default:
		return 0
	}
}

// numericFilter buckets a numeric field into selectable ranges, drilling
// down into finer buckets as ranges are chosen.
type numericFilter struct {
	baseFilter
	fi        FieldInfo
	maxLinks  int
	drilldown bool
	ranges    []RangeSpec
	chosen    []numChoice
}

const defaultNumericMaxLinks = 5

func newNumericFilter(spec FieldSpec, opts Options, fi FieldInfo, pageParam string, params Params) filter {
	f := &numericFilter{
		baseFilter: newBaseFilter(spec, opts, pageParam, params),
		fi:         fi,
		maxLinks:   opts.MaxLinks,
		drilldown:  opts.drilldown(),
		ranges:     opts.Ranges,
	}
	if f.maxLinks == 0 {
		f.maxLinks = defaultNumericMaxLinks
	}
	raw, nullChosen := f.rawSelections()
	for _, r := range raw {
		if c, ok := parseNumChoice(r); ok {
			f.chosen = append(f.chosen, c)
		}
	}
	if nullChosen {
		f.chosen = append(f.chosen, numChoice{null: true})
	}
	// Less specific selections first, so narrowing mirrors drill-down order.
	sortStableNum(f.chosen)
	return f
}

func sortStableNum(cs []numChoice) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && compareNum(cs[j-1], cs[j]) > 0; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}

func (f *numericFilter) narrow(ctx context.Context, ds Dataset) (Dataset, error) {
	for _, c := range f.chosen {
		var err error
		ds, err = ds.Narrow(ctx, c.predicate(f.name))
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (f *numericFilter) choices(ctx context.Context, ds Dataset) ([]Choice, error) {
	out := f.removeChoices()
	adds, err := f.addChoices(ctx, ds)
	if err != nil {
		return nil, err
	}
	return append(out, f.sortAdds(normalizeSingleAdd(adds))...), nil
}

// removeChoices cascades: removing a selection also removes every selection
// at least as specific, so drill-down state stays consistent.
func (f *numericFilter) removeChoices() []Choice {
	out := make([]Choice, 0, len(f.chosen))
	for _, c := range f.chosen {
		var remaining []string
		withNull := false
		for _, other := range f.chosen {
			if compareNum(other, c) >= 0 {
				continue
			}
			if other.null {
				withNull = true
				continue
			}
			remaining = append(remaining, other.encode())
		}
		out = append(out, removeChoice(f.displayChoiceLabel(c), f.buildParams(remaining, withNull)))
	}
	return out
}

func (f *numericFilter) addChoices(ctx context.Context, ds Dataset) ([]Choice, error) {
	for _, c := range f.chosen {
		if c.null {
			return nil, nil
		}
	}
	if !f.drilldown && len(f.chosen) > 0 {
		return nil, nil
	}

	// Refinement counts are computed inside the currently chosen range.
	narrowed, err := f.narrow(ctx, ds)
	if err != nil {
		return nil, err
	}
	counts, err := narrowed.NumericCounts(ctx, f.name)
	if err != nil {
		return nil, err
	}

	var out []Choice
	if f.fi.Nullable && len(f.chosen) == 0 {
		nullCount, err := f.countNull(ctx, ds)
		if err != nil {
			return nil, err
		}
		if nullCount > 0 {
			out = append(out, f.newAdd(nullLabel, nullCount, f.buildParams(f.encodeChosen(), true)))
		}
	}
	if len(counts) == 0 {
		return out, nil
	}

	if len(counts) <= f.maxLinks {
		for _, nc := range counts {
			c := numChoice{ends: []rangeEnd{{value: nc.Value, inclusive: true}}}
			if f.alreadyChosen(c) {
				continue
			}
			out = append(out, f.newAdd(
				f.displayChoiceLabel(c), nc.Count, f.buildParams(f.encodeWith(c), false)))
		}
		return out, nil
	}

	ranges := f.ranges
	if ranges == nil || len(f.chosen) > 0 {
		ranges = autoRanges(counts[0].Value, counts[len(counts)-1].Value, f.maxLinks)
	}
	for i, r := range ranges {
		count := bucketCount(counts, r, i == 0)
		if count == 0 {
			continue
		}
		c := numChoice{ends: []rangeEnd{
			{value: r.Low, inclusive: i == 0},
			{value: r.High, inclusive: true},
		}}
		if f.alreadyChosen(c) {
			continue
		}
		out = append(out, f.newAdd(
			f.displayChoiceLabel(c), count, f.buildParams(f.encodeWith(c), false)))
	}
	return out, nil
}

// bucketCount sums distinct-value counts falling into the bucket: lower
// bound exclusive, upper inclusive, except the first bucket of a set where
// the lower bound is inclusive too, so the minimum value is never excluded.
func bucketCount(counts []NumericCount, r RangeSpec, first bool) int {
	total := 0
	for _, nc := range counts {
		v := nc.Value
		inLow := v > r.Low || (first && v == r.Low)
		if inLow && v <= r.High {
			total += nc.Count
		}
	}
	return total
}

func (f *numericFilter) countNull(ctx context.Context, ds Dataset) (int, error) {
	nulls, err := ds.Narrow(ctx, IsNull(f.name))
	if err != nil {
		return 0, err
	}
	return nulls.Count(ctx)
}

func (f *numericFilter) alreadyChosen(c numChoice) bool {
	enc := c.encode()
	for _, existing := range f.chosen {
		if !existing.null && existing.encode() == enc {
			return true
		}
	}
	return false
}

func (f *numericFilter) encodeChosen() []string {
	var out []string
	for _, c := range f.chosen {
		if !c.null {
			out = append(out, c.encode())
		}
	}
	return out
}

func (f *numericFilter) encodeWith(c numChoice) []string {
	return append(f.encodeChosen(), c.encode())
}

// displayChoiceLabel prefers a caller-supplied label for an explicit range,
// then the render hook, then the plain "low-high" form.
func (f *numericFilter) displayChoiceLabel(c numChoice) string {
	if !c.null && len(c.ends) == 2 {
		for _, r := range f.ranges {
			if r.Label != "" && r.Low == c.ends[0].value && r.High == c.ends[1].value {
				return r.Label
			}
		}
	}
	if c.null {
		return nullLabel
	}
	return f.render(c.display())
}
