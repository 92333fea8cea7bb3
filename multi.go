package facetset

import "context"

// multiFilter narrows on a many-valued relation: a record matches when its
// related id set contains every chosen id. Selections accumulate; each prior
// selection renders as REMOVE while unchosen related values render as ADD
// with counts against the dataset narrowed by this field's other selections.
type multiFilter struct {
	baseFilter
	fi     FieldInfo
	chosen []string
	labels map[string]string
}

func newMultiFilter(spec FieldSpec, opts Options, fi FieldInfo, pageParam string, params Params) filter {
	f := &multiFilter{baseFilter: newBaseFilter(spec, opts, pageParam, params), fi: fi}
	raw, _ := f.rawSelections()
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		f.chosen = append(f.chosen, id)
	}
	return f
}

func (f *multiFilter) prepare(ctx context.Context, base Dataset) error {
	labels, err := labelsFor(ctx, base, f.name, f.chosen)
	if err != nil {
		return err
	}
	f.labels = labels

	kept := f.chosen[:0]
	for _, id := range f.chosen {
		if _, ok := labels[id]; ok {
			kept = append(kept, id)
		}
	}
	f.chosen = kept
	return nil
}

func (f *multiFilter) narrow(ctx context.Context, ds Dataset) (Dataset, error) {
	for _, id := range f.chosen {
		var err error
		ds, err = ds.Narrow(ctx, Contains(f.name, id))
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (f *multiFilter) choices(ctx context.Context, ds Dataset) ([]Choice, error) {
	out := f.removeChoices()

	// Counts for further refinement reflect all of this field's current
	// selections: with A chosen, the count on B is |A and B|.
	narrowed, err := f.narrow(ctx, ds)
	if err != nil {
		return nil, err
	}
	counts, err := narrowed.ValueCounts(ctx, f.name)
	if err != nil {
		return nil, err
	}

	chosenSet := make(map[string]struct{}, len(f.chosen))
	for _, id := range f.chosen {
		chosenSet[id] = struct{}{}
	}
	var ids []string
	for _, vc := range counts {
		if vc.Null {
			continue
		}
		if _, already := chosenSet[vc.Value]; already {
			continue
		}
		ids = append(ids, vc.Value)
	}
	labels, err := labelsFor(ctx, narrowed, f.name, ids)
	if err != nil {
		return nil, err
	}

	var adds []Choice
	for _, vc := range counts {
		if vc.Null || vc.Count == 0 {
			continue
		}
		if _, already := chosenSet[vc.Value]; already {
			continue
		}
		label, known := labels[vc.Value]
		if !known {
			continue
		}
		withNew := append(append([]string{}, f.chosen...), vc.Value)
		adds = append(adds, f.newAdd(f.render(label), vc.Count, f.buildParams(withNew, false)))
	}
	return append(out, f.sortAdds(normalizeSingleAdd(adds))...), nil
}

func (f *multiFilter) removeChoices() []Choice {
	out := make([]Choice, 0, len(f.chosen))
	for i, id := range f.chosen {
		remaining := make([]string, 0, len(f.chosen)-1)
		remaining = append(remaining, f.chosen[:i]...)
		remaining = append(remaining, f.chosen[i+1:]...)
		label := id
		if l, ok := f.labels[id]; ok {
			label = l
		}
		out = append(out, removeChoice(f.render(label), f.buildParams(remaining, false)))
	}
	return out
}
