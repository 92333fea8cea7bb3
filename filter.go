package facetset

import (
	"context"
	"sort"
)

// filter is the per-request state of one configured strategy. Instances are
// built inside Evaluate from the immutable FieldSpec configuration plus the
// incoming Params, used once, and discarded.
type filter interface {
	field() string

	// prepare resolves the parsed selections against the provider where a
	// strategy needs it (relation id validation, label lookup). Called once
	// with the base dataset before any narrowing.
	prepare(ctx context.Context, base Dataset) error

	// narrow applies this filter's current selections. Pure function of
	// (dataset, params); malformed selections were already dropped at parse.
	narrow(ctx context.Context, ds Dataset) (Dataset, error)

	// choices computes the choice list against a dataset narrowed by all
	// other filters. Strategies re-apply their own selections internally
	// where refinement counts require it.
	choices(ctx context.Context, ds Dataset) ([]Choice, error)
}

const nullSuffix = "--isnull"

type baseFilter struct {
	name       string
	queryParam string
	pageParam  string
	params     Params
	opts       Options
}

func newBaseFilter(spec FieldSpec, opts Options, pageParam string, params Params) baseFilter {
	qp := opts.QueryParam
	if qp == "" {
		qp = spec.Field
	}
	return baseFilter{
		name:       spec.Field,
		queryParam: qp,
		pageParam:  pageParam,
		params:     params,
		opts:       opts,
	}
}

func (b *baseFilter) field() string { return b.name }

func (b *baseFilter) prepare(context.Context, Dataset) error { return nil }

// rawSelections returns this filter's raw parameter values and whether the
// null marker parameter is present.
func (b *baseFilter) rawSelections() (values []string, nullChosen bool) {
	return b.params.GetAll(b.queryParam), b.params.Has(b.queryParam + nullSuffix)
}

// buildParams derives the Params a link should carry: this filter's key set
// to exactly the given encoded selections (dropped when empty), the null
// marker set or cleared, every unrelated key preserved, and the paging key
// dropped so links reset paging.
func (b *baseFilter) buildParams(encoded []string, withNull bool) Params {
	p := b.params
	if withNull {
		p = p.WithValues(b.queryParam+nullSuffix, "")
	} else {
		p = p.Without(b.queryParam + nullSuffix)
	}
	if len(encoded) > 0 {
		p = p.WithValues(b.queryParam, encoded...)
	} else {
		p = p.Without(b.queryParam)
	}
	if b.pageParam != "" {
		p = p.Without(b.pageParam)
	}
	return p
}

func (b *baseFilter) render(value string) string {
	if b.opts.RenderLabel != nil {
		return b.opts.RenderLabel(value)
	}
	return value
}

func (b *baseFilter) newAdd(label string, count int, params Params) Choice {
	return addChoice(label, count, b.opts.showCounts(), params)
}

// sortAdds applies order_by_count: stable descending sort on count, so ties
// keep their natural value order. Without the option the input order (the
// provider's natural order) is kept.
func (b *baseFilter) sortAdds(choices []Choice) []Choice {
	if !b.opts.orderByCount() {
		return choices
	}
	sort.SliceStable(choices, func(i, j int) bool {
		return choices[i].Count > choices[j].Count
	})
	return choices
}

// normalizeSingleAdd downgrades a lone ADD choice to DISPLAY: all results
// already share that value, so offering it as a link is redundant.
func normalizeSingleAdd(choices []Choice) []Choice {
	addIdx := -1
	for i, c := range choices {
		if c.Link != LinkAdd {
			continue
		}
		if addIdx != -1 {
			return choices
		}
		addIdx = i
	}
	if addIdx == -1 {
		return choices
	}
	choices[addIdx] = displayChoice(choices[addIdx].Label)
	return choices
}

// labelsFor resolves relation ids to display labels through the provider's
// optional Labeler capability. Without the capability every id labels itself.
func labelsFor(ctx context.Context, ds Dataset, field string, ids []string) (map[string]string, error) {
	lb, ok := ds.(Labeler)
	if !ok {
		out := make(map[string]string, len(ids))
		for _, id := range ids {
			out[id] = id
		}
		return out, nil
	}
	return lb.Labels(ctx, field, ids)
}

const nullLabel = "(null)"
