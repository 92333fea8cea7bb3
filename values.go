package facetset

import (
	"context"
	"strconv"
)

// valueSel is one parsed selection of a single-valued filter.
type valueSel struct {
	value string
	null  bool
}

func encodeValueSels(sels []valueSel) (encoded []string, withNull bool) {
	for _, s := range sels {
		if s.null {
			withNull = true
			continue
		}
		encoded = append(encoded, s.value)
	}
	return encoded, withNull
}

// parseValueSels parses raw parameter values for a field kind, silently
// dropping anything the kind cannot represent.
func parseValueSels(raw []string, nullChosen bool, kind Kind) []valueSel {
	var out []valueSel
	for _, r := range raw {
		v, ok := canonicalValue(r, kind)
		if !ok {
			continue
		}
		out = append(out, valueSel{value: v})
	}
	if nullChosen {
		out = append(out, valueSel{null: true})
	}
	return out
}

// canonicalValue validates a raw parameter against the field kind and
// returns it in the provider's canonical form ("007" becomes "7").
func canonicalValue(raw string, kind Kind) (string, bool) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	default:
		return raw, true
	}
}

// valuesFilter is the fallback strategy: equality on raw stored values.
// Choose-once semantics: with an active selection only REMOVE links remain.
type valuesFilter struct {
	baseFilter
	fi     FieldInfo
	chosen []valueSel
}

func newValuesFilter(spec FieldSpec, opts Options, fi FieldInfo, pageParam string, params Params) filter {
	f := &valuesFilter{baseFilter: newBaseFilter(spec, opts, pageParam, params), fi: fi}
	raw, nullChosen := f.rawSelections()
	f.chosen = parseValueSels(raw, nullChosen, fi.Kind)
	return f
}

func (f *valuesFilter) narrow(ctx context.Context, ds Dataset) (Dataset, error) {
	return narrowValueSels(ctx, ds, f.name, f.chosen)
}

func narrowValueSels(ctx context.Context, ds Dataset, field string, sels []valueSel) (Dataset, error) {
	for _, s := range sels {
		pred := Eq(field, s.value)
		if s.null {
			pred = IsNull(field)
		}
		var err error
		ds, err = ds.Narrow(ctx, pred)
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (f *valuesFilter) choices(ctx context.Context, ds Dataset) ([]Choice, error) {
	if len(f.chosen) > 0 {
		return f.removeChoices(), nil
	}
	counts, err := ds.ValueCounts(ctx, f.name)
	if err != nil {
		return nil, err
	}
	var out []Choice
	for _, vc := range counts {
		if vc.Count == 0 {
			continue
		}
		if vc.Null {
			out = append(out, f.newAdd(nullLabel, vc.Count, f.buildParams(nil, true)))
			continue
		}
		out = append(out, f.newAdd(
			f.displayValue(vc.Value), vc.Count, f.buildParams([]string{vc.Value}, false)))
	}
	return f.sortAdds(normalizeSingleAdd(out)), nil
}

func (f *valuesFilter) removeChoices() []Choice {
	return valueRemoveChoices(&f.baseFilter, f.chosen, f.displayValue)
}

func valueRemoveChoices(b *baseFilter, chosen []valueSel, display func(string) string) []Choice {
	out := make([]Choice, 0, len(chosen))
	for i, sel := range chosen {
		remaining := make([]valueSel, 0, len(chosen)-1)
		remaining = append(remaining, chosen[:i]...)
		remaining = append(remaining, chosen[i+1:]...)
		encoded, withNull := encodeValueSels(remaining)
		label := nullLabel
		if !sel.null {
			label = display(sel.value)
		}
		out = append(out, removeChoice(label, b.buildParams(encoded, withNull)))
	}
	return out
}

func (f *valuesFilter) displayValue(value string) string {
	if value == "" {
		return "(empty)"
	}
	return f.render(value)
}

// enumFilter restricts choices to the schema's declared enumeration and
// preserves its declaration order and labels.
type enumFilter struct {
	baseFilter
	fi     FieldInfo
	labels map[string]string
	chosen []valueSel
}

func newEnumFilter(spec FieldSpec, opts Options, fi FieldInfo, pageParam string, params Params) filter {
	f := &enumFilter{
		baseFilter: newBaseFilter(spec, opts, pageParam, params),
		fi:         fi,
		labels:     make(map[string]string, len(fi.Enum)),
	}
	for _, ev := range fi.Enum {
		f.labels[ev.Value] = ev.Label
	}
	raw, nullChosen := f.rawSelections()
	f.chosen = parseValueSels(raw, nullChosen, KindEnum)
	return f
}

func (f *enumFilter) narrow(ctx context.Context, ds Dataset) (Dataset, error) {
	return narrowValueSels(ctx, ds, f.name, f.chosen)
}

func (f *enumFilter) choices(ctx context.Context, ds Dataset) ([]Choice, error) {
	if len(f.chosen) > 0 {
		return valueRemoveChoices(&f.baseFilter, f.chosen, f.displayValue), nil
	}
	counts, err := ds.ValueCounts(ctx, f.name)
	if err != nil {
		return nil, err
	}
	byValue := make(map[string]int, len(counts))
	nullCount := 0
	for _, vc := range counts {
		if vc.Null {
			nullCount = vc.Count
			continue
		}
		byValue[vc.Value] = vc.Count
	}
	// Only declared values, in declared order.
	var out []Choice
	if nullCount > 0 {
		out = append(out, f.newAdd(nullLabel, nullCount, f.buildParams(nil, true)))
	}
	for _, ev := range f.fi.Enum {
		count, present := byValue[ev.Value]
		if !present || count == 0 {
			continue
		}
		out = append(out, f.newAdd(
			f.displayValue(ev.Value), count, f.buildParams([]string{ev.Value}, false)))
	}
	return f.sortAdds(normalizeSingleAdd(out)), nil
}

func (f *enumFilter) displayValue(value string) string {
	if f.opts.RenderLabel != nil {
		return f.opts.RenderLabel(value)
	}
	if label, ok := f.labels[value]; ok {
		return label
	}
	return value
}
