package facetset

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type dateLevel int

const (
	levelYear dateLevel = iota + 1
	levelMonth
	levelDay
)

var (
	yearRe  = regexp.MustCompile(`^\d{4}$`)
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dayRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func dateValueLevel(s string) (dateLevel, bool) {
	switch {
	case yearRe.MatchString(s):
		return levelYear, true
	case monthRe.MatchString(s):
		return levelMonth, true
	case dayRe.MatchString(s):
		return levelDay, true
	default:
		return 0, false
	}
}

// dateChoice is a parsed temporal selection: a single year, month or day, or
// an inclusive range of them at equal granularity ("2000..2004"), or the
// null marker.
type dateChoice struct {
	level  dateLevel
	single bool
	null   bool
	values []string
}

func parseDateChoice(param string) (dateChoice, bool) {
	if a, b, isRange := strings.Cut(param, ".."); isRange {
		la, okA := dateValueLevel(a)
		lb, okB := dateValueLevel(b)
		if !okA || !okB || la != lb || b < a {
			return dateChoice{}, false
		}
		return dateChoice{level: la, values: []string{a, b}}, true
	}
	l, ok := dateValueLevel(param)
	if !ok {
		return dateChoice{}, false
	}
	return dateChoice{level: l, single: true, values: []string{param}}, true
}

func dateToValue(level dateLevel, t time.Time) string {
	switch level {
	case levelYear:
		return fmt.Sprintf("%04d", t.Year())
	case levelMonth:
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
	default:
		return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	}
}

func singleDateChoice(level dateLevel, t time.Time) dateChoice {
	return dateChoice{level: level, single: true, values: []string{dateToValue(level, t)}}
}

// parseDateValue expands a (possibly partial) value to a date, filling
// missing parts with 1: "2020" becomes 2020-01-01.
func parseDateValue(s string) time.Time {
	parts := strings.Split(s, "-")
	nums := [3]int{1, 1, 1}
	for i := 0; i < len(parts) && i < 3; i++ {
		nums[i], _ = strconv.Atoi(parts[i])
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC)
}

func (c dateChoice) encode() string {
	return strings.Join(c.values, "..")
}

// display renders the component at this choice's level: bridge choices keep
// a finer-grained value but display only their own component of it.
func (c dateChoice) display() string {
	if c.null {
		return nullLabel
	}
	if !c.single {
		a := dateChoice{level: c.level, single: true, values: c.values[:1]}
		b := dateChoice{level: c.level, single: true, values: c.values[1:]}
		return a.display() + "-" + b.display()
	}
	parts := strings.Split(c.values[0], "-")
	switch {
	case c.level == levelYear:
		return parts[0]
	case c.level == levelMonth && len(parts) >= 2:
		n, _ := strconv.Atoi(parts[1])
		return time.Month(n).String()
	case len(parts) >= 3:
		n, _ := strconv.Atoi(parts[2])
		return strconv.Itoa(n)
	default:
		return c.values[0]
	}
}

// predicate converts the selection to a half-open time interval covering the
// whole selected period.
func (c dateChoice) predicate(field string) Predicate {
	if c.null {
		return IsNull(field)
	}
	start := parseDateValue(c.values[0])
	end := parseDateValue(c.values[len(c.values)-1])
	switch c.level {
	case levelYear:
		end = end.AddDate(1, 0, 0)
	case levelMonth:
		end = end.AddDate(0, 1, 0)
	default:
		end = end.AddDate(0, 0, 1)
	}
	return TimeBetween(field, start, end)
}

// compareDate orders by specificity: deeper level is more specific, a single
// value more specific than a range at the same level, null most specific.
func compareDate(a, b dateChoice) int {
	switch {
	case a.null && b.null:
		return 0
	case a.null:
		return 1
	case b.null:
		return -1
	}
	if a.level != b.level {
		return int(a.level) - int(b.level)
	}
	if a.single != b.single {
		if a.single {
			return 1
		}
		return -1
	}
	for i := range a.values {
		if i >= len(b.values) {
			return 1
		}
		if a.values[i] != b.values[i] {
			return strings.Compare(a.values[i], b.values[i])
		}
	}
	return len(a.values) - len(b.values)
}

func (c dateChoice) equal(other dateChoice) bool {
	return c.null == other.null && c.level == other.level &&
		c.single == other.single && c.encode() == other.encode()
}

// drilldownLevel returns the level the next selection refines to: a range
// refines to a single value at the same level, a single value to the next
// level. false means fully drilled down.
func (c dateChoice) drilldownLevel() (dateLevel, bool) {
	if !c.single {
		return c.level, true
	}
	if c.level == levelDay {
		return 0, false
	}
	return c.level + 1, true
}

type dateChoiceCount struct {
	choice dateChoice
	count  int
}

// datetimeFilter drills down a temporal field through year, month and day
// levels, collapsing a level into adjacent ranges when it holds more
// distinct values than max_links.
type datetimeFilter struct {
	baseFilter
	fi       FieldInfo
	maxLinks int
	maxLevel dateLevel
	chosen   []dateChoice
}

const defaultDateMaxLinks = 12

func newDatetimeFilter(spec FieldSpec, opts Options, fi FieldInfo, pageParam string, params Params) filter {
	f := &datetimeFilter{
		baseFilter: newBaseFilter(spec, opts, pageParam, params),
		fi:         fi,
		maxLinks:   opts.MaxLinks,
	}
	if f.maxLinks == 0 {
		f.maxLinks = defaultDateMaxLinks
	}
	switch opts.MaxDepth {
	case DepthYear:
		f.maxLevel = levelYear
	case DepthMonth:
		f.maxLevel = levelMonth
	default:
		f.maxLevel = levelDay + 1
	}
	raw, nullChosen := f.rawSelections()
	for _, r := range raw {
		if c, ok := parseDateChoice(r); ok {
			f.chosen = append(f.chosen, c)
		}
	}
	if nullChosen {
		f.chosen = append(f.chosen, dateChoice{null: true})
	}
	for i := 1; i < len(f.chosen); i++ {
		for j := i; j > 0 && compareDate(f.chosen[j-1], f.chosen[j]) > 0; j-- {
			f.chosen[j-1], f.chosen[j] = f.chosen[j], f.chosen[j-1]
		}
	}
	return f
}

func (f *datetimeFilter) narrow(ctx context.Context, ds Dataset) (Dataset, error) {
	for _, c := range f.chosen {
		var err error
		ds, err = ds.Narrow(ctx, c.predicate(f.name))
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (f *datetimeFilter) choices(ctx context.Context, ds Dataset) ([]Choice, error) {
	out := f.removeChoices()
	adds, err := f.addChoices(ctx, ds)
	if err != nil {
		return nil, err
	}
	return append(out, adds...), nil
}

// removeChoices cascades like the numeric filter, and bridges gaps between
// consecutive selections with DISPLAY choices for context.
func (f *datetimeFilter) removeChoices() []Choice {
	var out []Choice
	for i, c := range f.chosen {
		var remaining []string
		withNull := false
		for _, other := range f.chosen {
			if compareDate(other, c) >= 0 {
				continue
			}
			if other.null {
				withNull = true
				continue
			}
			remaining = append(remaining, other.encode())
		}
		out = append(out, removeChoice(c.display(), f.buildParams(remaining, withNull)))
		out = append(out, f.bridgeChoices(f.chosen[:i+1], f.chosen[i+1:])...)
	}
	return out
}

func (f *datetimeFilter) addChoices(ctx context.Context, ds Dataset) ([]Choice, error) {
	for _, c := range f.chosen {
		if c.null {
			return nil, nil
		}
	}

	narrowed, err := f.narrow(ctx, ds)
	if err != nil {
		return nil, err
	}
	dcc, err := f.collectAdds(ctx, narrowed, f.chosen)
	if err != nil {
		return nil, err
	}

	var out []Choice
	if len(dcc) > 0 {
		targets := make([]dateChoice, len(dcc))
		for i, d := range dcc {
			targets[i] = d.choice
		}
		out = append(out, f.bridgeChoices(f.chosen, targets)...)
	}

	if len(f.chosen) == 0 && f.fi.Nullable {
		nulls, err := ds.Narrow(ctx, IsNull(f.name))
		if err != nil {
			return nil, err
		}
		nullCount, err := nulls.Count(ctx)
		if err != nil {
			return nil, err
		}
		if nullCount > 0 {
			out = append(out, f.newAdd(nullLabel, nullCount, f.buildParams(f.encodeChosen(), true)))
		}
	}

	var adds []Choice
	for _, d := range dcc {
		if f.inChosen(d.choice) || d.choice.level > f.maxLevel {
			continue
		}
		if len(dcc) == 1 && (d.choice.level == f.maxLevel || d.count == 1) {
			out = append(out, displayChoice(d.choice.display()))
			continue
		}
		adds = append(adds, f.newAdd(
			d.choice.display(), d.count,
			f.buildParams(append(f.encodeChosen(), d.choice.encode()), false)))
	}
	return append(out, f.sortAdds(adds)...), nil
}

// collectAdds enumerates the next drill-down level, recursing past levels
// that hold only a single value so the user always lands on a real choice.
func (f *datetimeFilter) collectAdds(ctx context.Context, ds Dataset, chosen []dateChoice) ([]dateChoiceCount, error) {
	var level dateLevel

	if len(chosen) > 0 {
		l, ok := chosen[len(chosen)-1].drilldownLevel()
		if !ok {
			return nil, nil
		}
		level = l
	} else {
		first, last, ok, err := ds.TimeBounds(ctx, f.name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		switch {
		case first.Year() != last.Year():
			level = levelYear
		case first.Month() != last.Month():
			level = levelMonth
		default:
			level = levelDay
		}
	}

	results, err := ds.DateCounts(ctx, f.name, DateLevel(level))
	if err != nil {
		return nil, err
	}
	dcc := f.collapseResults(results, level)

	// A level with a single concrete value is not a decision point.
	if len(dcc) == 1 && dcc[0].choice.single {
		deeper, err := f.collectAdds(ctx, ds, []dateChoice{dcc[0].choice})
		if err != nil {
			return nil, err
		}
		if len(deeper) > 0 {
			return deeper, nil
		}
	}
	return dcc, nil
}

// collapseResults folds a too-long level into adjacent ranges. Month and day
// buckets are anchored to the natural 1..12 / 1..end-of-month span so they
// never wrap into the next period.
func (f *datetimeFilter) collapseResults(results []DateCount, level dateLevel) []dateChoiceCount {
	if len(results) <= f.maxLinks {
		out := make([]dateChoiceCount, len(results))
		for i, r := range results {
			out[i] = dateChoiceCount{choice: singleDateChoice(level, r.Date), count: r.Count}
		}
		return out
	}

	var first, last int
	switch level {
	case levelMonth:
		first, last = 1, 12
	case levelDay:
		t := results[0].Date
		first, last = 1, t.AddDate(0, 1, -t.Day()).Day()
	default:
		first, last = results[0].Date.Year(), results[len(results)-1].Date.Year()
	}

	span := last - first + 1
	bucketSize := (span + f.maxLinks - 1) / f.maxLinks
	numBuckets := (span + bucketSize - 1) / bucketSize

	counts := make([]int, numBuckets)
	for _, r := range results {
		counts[(f.levelComponent(r.Date, level)-first)/bucketSize] += r.Count
	}

	template := results[0].Date
	var out []dateChoiceCount
	for i, count := range counts {
		if count == 0 {
			continue
		}
		startVal := first + bucketSize*i
		endVal := min(startVal+bucketSize-1, last)
		start := f.replaceComponent(template, level, startVal)
		if endVal == startVal {
			out = append(out, dateChoiceCount{choice: singleDateChoice(level, start), count: count})
			continue
		}
		end := f.replaceComponent(template, level, endVal)
		choice := dateChoice{level: level, values: []string{
			dateToValue(level, start), dateToValue(level, end),
		}}
		out = append(out, dateChoiceCount{choice: choice, count: count})
	}
	return out
}

func (f *datetimeFilter) levelComponent(t time.Time, level dateLevel) int {
	switch level {
	case levelYear:
		return t.Year()
	case levelMonth:
		return int(t.Month())
	default:
		return t.Day()
	}
}

func (f *datetimeFilter) replaceComponent(t time.Time, level dateLevel, val int) time.Time {
	switch level {
	case levelYear:
		return time.Date(val, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case levelMonth:
		return time.Date(t.Year(), time.Month(val), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), val, 0, 0, 0, 0, time.UTC)
	}
}

// bridgeChoices emits DISPLAY choices connecting what is chosen to what can
// be chosen, so a month list under a chosen year range still shows the year.
func (f *datetimeFilter) bridgeChoices(chosen, targets []dateChoice) []Choice {
	if len(targets) == 0 {
		return nil
	}
	chosenLevel := dateLevel(0)
	bridgeToSingle := false
	if len(chosen) > 0 {
		lastChosen := chosen[len(chosen)-1]
		chosenLevel = lastChosen.level
		bridgeToSingle = !lastChosen.single
	}
	target := targets[0]

	var out []Choice
	for chosenLevel < target.level-1 || (chosenLevel < target.level && bridgeToSingle) {
		if bridgeToSingle {
			bridgeToSingle = false
		} else {
			chosenLevel++
		}
		if chosenLevel > f.maxLevel {
			continue
		}
		bridge := dateChoice{level: chosenLevel, single: true, values: target.values[:1]}
		out = append(out, displayChoice(bridge.display()))
	}
	return out
}

func (f *datetimeFilter) inChosen(c dateChoice) bool {
	for _, existing := range f.chosen {
		if existing.equal(c) {
			return true
		}
	}
	return false
}

func (f *datetimeFilter) encodeChosen() []string {
	var out []string
	for _, c := range f.chosen {
		if !c.null {
			out = append(out, c.encode())
		}
	}
	return out
}
