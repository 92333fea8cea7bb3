package facetset

import "context"

// categoricalFilter narrows on a discrete relation id (FK-style).
// Choose-once semantics. Labels resolve through the provider's Labeler
// capability; a parameter naming an id the provider cannot label is a stale
// reference and is dropped as if never selected.
type categoricalFilter struct {
	baseFilter
	fi     FieldInfo
	chosen []valueSel
	labels map[string]string
}

func newCategoricalFilter(spec FieldSpec, opts Options, fi FieldInfo, pageParam string, params Params) filter {
	f := &categoricalFilter{baseFilter: newBaseFilter(spec, opts, pageParam, params), fi: fi}
	raw, nullChosen := f.rawSelections()
	f.chosen = parseValueSels(raw, nullChosen, KindRelation)
	return f
}

func (f *categoricalFilter) prepare(ctx context.Context, base Dataset) error {
	var ids []string
	for _, sel := range f.chosen {
		if !sel.null {
			ids = append(ids, sel.value)
		}
	}
	labels, err := labelsFor(ctx, base, f.name, ids)
	if err != nil {
		return err
	}
	f.labels = labels

	kept := f.chosen[:0]
	for _, sel := range f.chosen {
		if sel.null {
			kept = append(kept, sel)
			continue
		}
		if _, ok := labels[sel.value]; ok {
			kept = append(kept, sel)
		}
	}
	f.chosen = kept
	return nil
}

func (f *categoricalFilter) narrow(ctx context.Context, ds Dataset) (Dataset, error) {
	return narrowValueSels(ctx, ds, f.name, f.chosen)
}

func (f *categoricalFilter) choices(ctx context.Context, ds Dataset) ([]Choice, error) {
	if len(f.chosen) > 0 {
		return valueRemoveChoices(&f.baseFilter, f.chosen, f.displayID), nil
	}
	counts, err := ds.ValueCounts(ctx, f.name)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, vc := range counts {
		if !vc.Null {
			ids = append(ids, vc.Value)
		}
	}
	labels, err := labelsFor(ctx, ds, f.name, ids)
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
		label, known := labels[vc.Value]
		if !known {
			// Dangling id in the data; nothing meaningful to offer.
			continue
		}
		out = append(out, f.newAdd(
			f.render(label), vc.Count, f.buildParams([]string{vc.Value}, false)))
	}
	return f.sortAdds(normalizeSingleAdd(out)), nil
}

func (f *categoricalFilter) displayID(id string) string {
	if label, ok := f.labels[id]; ok {
		return f.render(label)
	}
	return f.render(id)
}
