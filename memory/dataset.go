package memory

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kailas-cloud/facetset"
)

// dataset is an immutable view over a collection: the bitmap holds the
// indexes of the live rows. Narrow shares the collection and allocates only
// a new bitmap.
type dataset struct {
	col  *Collection
	rows *roaring.Bitmap
}

func (d *dataset) Narrow(ctx context.Context, preds ...facetset.Predicate) (facetset.Dataset, error) {
	kept := roaring.New()
	it := d.rows.Iterator()
	for it.HasNext() {
		idx := it.Next()
		rec := &d.col.records[idx]
		ok := true
		for _, p := range preds {
			if !match(rec, p) {
				ok = false
				break
			}
		}
		if ok {
			kept.Add(idx)
		}
	}
	return &dataset{col: d.col, rows: kept}, nil
}

func (d *dataset) Count(ctx context.Context) (int, error) {
	return int(d.rows.GetCardinality()), nil
}

func match(rec *Record, p facetset.Predicate) bool {
	field := p.Field()
	switch p.Kind() {
	case facetset.PredEq:
		if s, ok := rec.Strings[field]; ok {
			return s == p.Value()
		}
		if n, ok := rec.Numbers[field]; ok {
			return strconv.FormatFloat(n, 'f', -1, 64) == p.Value()
		}
		return false
	case facetset.PredContains:
		for _, id := range rec.Multi[field] {
			if id == p.Value() {
				return true
			}
		}
		return false
	case facetset.PredNumRange:
		n, ok := rec.Numbers[field]
		if !ok {
			return false
		}
		r := p.Num()
		if n < r.Low || (n == r.Low && !r.LowIncl) {
			return false
		}
		if n > r.High || (n == r.High && !r.HighIncl) {
			return false
		}
		return true
	case facetset.PredTimeRange:
		t, ok := rec.Times[field]
		if !ok {
			return false
		}
		span := p.Span()
		return !t.Before(span.From) && t.Before(span.To)
	case facetset.PredIsNull:
		if _, ok := rec.Strings[field]; ok {
			return false
		}
		if _, ok := rec.Numbers[field]; ok {
			return false
		}
		if _, ok := rec.Times[field]; ok {
			return false
		}
		if _, ok := rec.Multi[field]; ok {
			return false
		}
		return true
	default:
		return false
	}
}

func (d *dataset) ValueCounts(ctx context.Context, field string) ([]facetset.ValueCount, error) {
	counts := map[string]int{}
	nulls := 0
	it := d.rows.Iterator()
	for it.HasNext() {
		rec := &d.col.records[it.Next()]
		if !hasValue(rec, field, func(s string) { counts[s]++ }) {
			nulls++
		}
	}

	values := make([]string, 0, len(counts))
	numeric := true
	for v := range counts {
		values = append(values, v)
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
		}
	}
	if numeric && len(values) > 0 {
		sort.Slice(values, func(i, j int) bool {
			a, _ := strconv.ParseFloat(values[i], 64)
			b, _ := strconv.ParseFloat(values[j], 64)
			return a < b
		})
	} else {
		sort.Strings(values)
	}

	var out []facetset.ValueCount
	if nulls > 0 {
		out = append(out, facetset.ValueCount{Null: true, Count: nulls})
	}
	for _, v := range values {
		out = append(out, facetset.ValueCount{Value: v, Count: counts[v]})
	}
	return out, nil
}

// hasValue feeds every distinct value of the field on this record to emit,
// counting a record at most once per value, and reports whether the record
// has the field at all.
func hasValue(rec *Record, field string, emit func(string)) bool {
	if s, ok := rec.Strings[field]; ok {
		emit(s)
		return true
	}
	if n, ok := rec.Numbers[field]; ok {
		emit(strconv.FormatFloat(n, 'f', -1, 64))
		return true
	}
	if ids, ok := rec.Multi[field]; ok {
		seen := map[string]struct{}{}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			emit(id)
		}
		return true
	}
	return false
}

func (d *dataset) NumericCounts(ctx context.Context, field string) ([]facetset.NumericCount, error) {
	counts := map[float64]int{}
	it := d.rows.Iterator()
	for it.HasNext() {
		rec := &d.col.records[it.Next()]
		if n, ok := rec.Numbers[field]; ok {
			counts[n]++
		}
	}
	values := make([]float64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Float64s(values)
	out := make([]facetset.NumericCount, len(values))
	for i, v := range values {
		out[i] = facetset.NumericCount{Value: v, Count: counts[v]}
	}
	return out, nil
}

func (d *dataset) TimeBounds(ctx context.Context, field string) (time.Time, time.Time, bool, error) {
	var minT, maxT time.Time
	found := false
	it := d.rows.Iterator()
	for it.HasNext() {
		rec := &d.col.records[it.Next()]
		t, ok := rec.Times[field]
		if !ok {
			continue
		}
		if !found || t.Before(minT) {
			minT = t
		}
		if !found || t.After(maxT) {
			maxT = t
		}
		found = true
	}
	return minT, maxT, found, nil
}

func (d *dataset) DateCounts(ctx context.Context, field string, level facetset.DateLevel) ([]facetset.DateCount, error) {
	counts := map[time.Time]int{}
	it := d.rows.Iterator()
	for it.HasNext() {
		rec := &d.col.records[it.Next()]
		t, ok := rec.Times[field]
		if !ok {
			continue
		}
		counts[truncate(t, level)]++
	}
	dates := make([]time.Time, 0, len(counts))
	for t := range counts {
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := make([]facetset.DateCount, len(dates))
	for i, t := range dates {
		out[i] = facetset.DateCount{Date: t, Count: counts[t]}
	}
	return out, nil
}

func truncate(t time.Time, level facetset.DateLevel) time.Time {
	switch level {
	case facetset.LevelYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case facetset.LevelMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Labels resolves relation ids through the collection's label tables. A
// field without a table labels every id with itself.
func (d *dataset) Labels(ctx context.Context, field string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	table, ok := d.col.labels[field]
	for _, v := range values {
		if !ok {
			out[v] = v
			continue
		}
		if label, known := table[v]; known {
			out[v] = label
		}
	}
	return out, nil
}
