package facetset

import (
	"context"
	"fmt"
	"strings"
)

// FilterSet is an immutable faceted-filtering configuration bound to a
// Schema: which fields are filterable, with which strategy and options.
// Build one at startup with New and share it across requests; per-request
// state lives entirely in Evaluate.
type FilterSet struct {
	schema      *Schema
	fields      []boundField
	titleFields []string
	pageParam   string
}

type boundField struct {
	spec     FieldSpec
	strategy Strategy
	opts     Options
	info     FieldInfo
	label    string
}

// Option configures FilterSet-wide behavior.
type Option func(*setConfig)

type setConfig struct {
	defaults    Options
	titleFields []string
	pageParam   string
}

// Defaults sets per-field option defaults; explicit field options win.
func Defaults(opts Options) Option {
	return func(c *setConfig) { c.defaults = opts }
}

// TitleFields selects which fields contribute to the composed title, in the
// given order. Without it every configured field contributes in declaration
// order.
func TitleFields(fields ...string) Option {
	return func(c *setConfig) { c.titleFields = fields }
}

// PageParam names the paging parameter dropped from every generated link
// (default "page").
func PageParam(name string) Option {
	return func(c *setConfig) { c.pageParam = name }
}

// New validates the field specs against the schema and builds a FilterSet.
// Unknown fields, unknown strategy names, and option/strategy mismatches are
// configuration errors and fail fast.
func New(schema *Schema, specs []FieldSpec, options ...Option) (*FilterSet, error) {
	cfg := setConfig{pageParam: "page"}
	for _, o := range options {
		o(&cfg)
	}

	fs := &FilterSet{
		schema:      schema,
		titleFields: cfg.titleFields,
		pageParam:   cfg.pageParam,
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		fi, ok := schema.Field(spec.Field)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, spec.Field)
		}
		if _, dup := seen[spec.Field]; dup {
			return nil, fmt.Errorf("%w: field %s configured twice", ErrBadOption, spec.Field)
		}
		seen[spec.Field] = struct{}{}

		strategy := spec.Strategy
		if strategy == StrategyDefault {
			s, ok := defaultStrategy(fi.Kind)
			if !ok {
				return nil, fmt.Errorf("%w: no default for field %s", ErrUnknownStrategy, spec.Field)
			}
			strategy = s
		} else if _, ok := validStrategies[strategy]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
		}
		if err := validateOptions(spec, strategy, fi); err != nil {
			return nil, err
		}

		opts := spec.Options.merged(cfg.defaults)
		label := opts.Label
		if label == "" {
			label = defaultLabel(spec.Field)
		}
		fs.fields = append(fs.fields, boundField{
			spec:     spec,
			strategy: strategy,
			opts:     opts,
			info:     fi,
			label:    label,
		})
	}

	for _, tf := range fs.titleFields {
		if _, ok := seen[tf]; !ok {
			return nil, fmt.Errorf("%w: title field %s not configured", ErrUnknownField, tf)
		}
	}
	if fs.titleFields == nil {
		for _, bf := range fs.fields {
			fs.titleFields = append(fs.titleFields, bf.spec.Field)
		}
	}
	return fs, nil
}

// Facet is one field's evaluated choice list.
type Facet struct {
	Field   string
	Label   string
	Choices []Choice
}

// Result is one evaluation of a FilterSet against a dataset and a parameter
// set.
type Result struct {
	qs     Dataset
	facets []Facet
	title  string
}

// QS is the dataset narrowed by every current selection.
func (r *Result) QS() Dataset { return r.qs }

// Facets returns the per-field choice lists in declaration order.
func (r *Result) Facets() []Facet { return r.facets }

// Title is the human-readable summary of the current selections.
func (r *Result) Title() string { return r.title }

// Evaluate applies the parameter set to the dataset: it narrows the dataset
// by every selection, and computes each field's choices against the dataset
// narrowed by every OTHER field's selections, so a facet's own counts show
// what choosing would yield.
func (fs *FilterSet) Evaluate(ctx context.Context, ds Dataset, params Params) (*Result, error) {
	filters := make([]filter, len(fs.fields))
	for i, bf := range fs.fields {
		f, err := fs.buildFilter(bf, params)
		if err != nil {
			return nil, err
		}
		if err := f.prepare(ctx, ds); err != nil {
			return nil, fmt.Errorf("prepare %s: %w", bf.spec.Field, err)
		}
		filters[i] = f
	}

	qs := ds
	for i, f := range filters {
		var err error
		qs, err = f.narrow(ctx, qs)
		if err != nil {
			return nil, fmt.Errorf("narrow %s: %w", fs.fields[i].spec.Field, err)
		}
	}

	res := &Result{qs: qs}
	byField := make(map[string][]Choice, len(filters))
	for i, f := range filters {
		selfExcluded := ds
		for j, other := range filters {
			if j == i {
				continue
			}
			var err error
			selfExcluded, err = other.narrow(ctx, selfExcluded)
			if err != nil {
				return nil, fmt.Errorf("narrow %s: %w", fs.fields[j].spec.Field, err)
			}
		}
		choices, err := f.choices(ctx, selfExcluded)
		if err != nil {
			return nil, fmt.Errorf("choices %s: %w", fs.fields[i].spec.Field, err)
		}
		res.facets = append(res.facets, Facet{
			Field:   fs.fields[i].spec.Field,
			Label:   fs.fields[i].label,
			Choices: choices,
		})
		byField[f.field()] = choices
	}

	res.title = composeTitle(fs.titleFields, byField)
	return res, nil
}

func (fs *FilterSet) buildFilter(bf boundField, params Params) (filter, error) {
	switch bf.strategy {
	case StrategyValues:
		return newValuesFilter(bf.spec, bf.opts, bf.info, fs.pageParam, params), nil
	case StrategyEnum:
		return newEnumFilter(bf.spec, bf.opts, bf.info, fs.pageParam, params), nil
	case StrategyCategorical:
		return newCategoricalFilter(bf.spec, bf.opts, bf.info, fs.pageParam, params), nil
	case StrategyMulti:
		return newMultiFilter(bf.spec, bf.opts, bf.info, fs.pageParam, params), nil
	case StrategyNumericRange:
		return newNumericFilter(bf.spec, bf.opts, bf.info, fs.pageParam, params), nil
	case StrategyDateTime:
		return newDatetimeFilter(bf.spec, bf.opts, bf.info, fs.pageParam, params), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, bf.strategy)
	}
}

// composeTitle joins the labels of every active (REMOVE) choice, in title
// field order, with ", ".
func composeTitle(titleFields []string, byField map[string][]Choice) string {
	var parts []string
	for _, field := range titleFields {
		for _, c := range byField[field] {
			if c.Link == LinkRemove {
				parts = append(parts, c.Label)
			}
		}
	}
	return strings.Join(parts, ", ")
}
