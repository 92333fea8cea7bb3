package facetset_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/facetset"
	"github.com/kailas-cloud/facetset/memory"
)

type book struct {
	ID        string    `facet:"id,id"`
	Binding   string    `facet:"binding,enum"`
	Genre     string    `facet:"genre,relation"`
	Authors   []string  `facet:"authors,multi"`
	Price     float64   `facet:"price"`
	Published time.Time `facet:"date_published"`
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func bookCollection(t *testing.T) *memory.Collection {
	t.Helper()
	collection, err := memory.FromStructs([]book{
		{ID: "1", Binding: "P", Genre: "1", Authors: []string{"1"}, Price: 5, Published: day(2020, time.May, 1)},
		{ID: "2", Binding: "P", Genre: "1", Authors: []string{"1", "2"}, Price: 10, Published: day(2020, time.June, 1)},
		{ID: "3", Binding: "H", Genre: "2", Authors: []string{"2"}, Price: 15, Published: day(2021, time.January, 15)},
		{ID: "4", Binding: "H", Genre: "2", Authors: []string{"3"}, Price: 20, Published: day(2021, time.March, 10)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return collection.
		WithLabels("genre", map[string]string{"1": "Fantasy", "2": "Science Fiction"}).
		WithLabels("authors", map[string]string{
			"1": "Terry Pratchett", "2": "Neil Gaiman", "3": "Ursula K. Le Guin",
		})
}

func bookFilterSet(t *testing.T, options ...facetset.Option) *facetset.FilterSet {
	t.Helper()
	schema, err := facetset.SchemaOf[book]()
	if err != nil {
		t.Fatal(err)
	}
	err = schema.WithEnum("binding",
		facetset.EnumValue{Value: "H", Label: "Hardback"},
		facetset.EnumValue{Value: "P", Label: "Paperback"},
	)
	if err != nil {
		t.Fatal(err)
	}
	fs, err := facetset.New(schema, []facetset.FieldSpec{
		{Field: "binding"},
		{Field: "genre"},
		{Field: "authors"},
		{Field: "price", Options: facetset.Options{MaxLinks: 5}},
		{Field: "date_published"},
	}, options...)
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func evalBooks(t *testing.T, query string, options ...facetset.Option) *facetset.Result {
	t.Helper()
	fs := bookFilterSet(t, options...)
	res, err := fs.Evaluate(context.Background(), bookCollection(t).Dataset(), facetset.ParseQuery(query))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func facetFor(t *testing.T, res *facetset.Result, field string) facetset.Facet {
	t.Helper()
	for _, f := range res.Facets() {
		if f.Field == field {
			return f
		}
	}
	t.Fatalf("facet %s not found", field)
	return facetset.Facet{}
}

func qsCount(t *testing.T, res *facetset.Result) int {
	t.Helper()
	n, err := res.QS().Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

type wantChoice struct {
	label  string
	link   facetset.LinkType
	count  int
	params string
}

func checkChoices(t *testing.T, got []facetset.Choice, want []wantChoice) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d choices, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		c := got[i]
		if c.Label != w.label || c.Link != w.link {
			t.Errorf("choice %d = %q/%s, want %q/%s", i, c.Label, c.Link, w.label, w.link)
			continue
		}
		if w.link == facetset.LinkAdd {
			if !c.HasCount || c.Count != w.count {
				t.Errorf("choice %q count = %d (has=%v), want %d", w.label, c.Count, c.HasCount, w.count)
			}
		} else if c.HasCount {
			t.Errorf("choice %q must not carry a count", w.label)
		}
		if w.params != "-" && c.Params.Encode() != w.params {
			t.Errorf("choice %q params = %q, want %q", w.label, c.Params.Encode(), w.params)
		}
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	schema, err := facetset.SchemaOf[book]()
	if err != nil {
		t.Fatal(err)
	}
	if err := schema.WithEnum("binding", facetset.EnumValue{Value: "H", Label: "Hardback"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		specs   []facetset.FieldSpec
		options []facetset.Option
		want    error
	}{
		{
			name:  "unknown field",
			specs: []facetset.FieldSpec{{Field: "weight"}},
			want:  facetset.ErrUnknownField,
		},
		{
			name:  "unknown strategy",
			specs: []facetset.FieldSpec{{Field: "price", Strategy: "fulltext"}},
			want:  facetset.ErrUnknownStrategy,
		},
		{
			name:  "ranges on non numeric strategy",
			specs: []facetset.FieldSpec{{Field: "binding", Options: facetset.Options{Ranges: []facetset.RangeSpec{{Low: 0, High: 1}}}}},
			want:  facetset.ErrBadOption,
		},
		{
			name:  "overlapping ranges",
			specs: []facetset.FieldSpec{{Field: "price", Options: facetset.Options{Ranges: []facetset.RangeSpec{{Low: 0, High: 10}, {Low: 5, High: 20}}}}},
			want:  facetset.ErrBadOption,
		},
		{
			name:  "max depth on non datetime",
			specs: []facetset.FieldSpec{{Field: "price", Options: facetset.Options{MaxDepth: facetset.DepthYear}}},
			want:  facetset.ErrBadOption,
		},
		{
			name:  "duplicate field",
			specs: []facetset.FieldSpec{{Field: "price"}, {Field: "price"}},
			want:  facetset.ErrBadOption,
		},
		{
			name:    "unknown title field",
			specs:   []facetset.FieldSpec{{Field: "price"}},
			options: []facetset.Option{facetset.TitleFields("genre")},
			want:    facetset.ErrUnknownField,
		},
		{
			name:  "datetime strategy on numeric field",
			specs: []facetset.FieldSpec{{Field: "price", Strategy: facetset.StrategyDateTime}},
			want:  facetset.ErrBadOption,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := facetset.New(schema, tc.specs, tc.options...)
			if !errors.Is(err, tc.want) {
				t.Errorf("New() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEvaluate_NoSelections(t *testing.T) {
	res := evalBooks(t, "")

	if n := qsCount(t, res); n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
	if res.Title() != "" {
		t.Errorf("title = %q, want empty", res.Title())
	}

	checkChoices(t, facetFor(t, res, "binding").Choices, []wantChoice{
		{"Hardback", facetset.LinkAdd, 2, "binding=H"},
		{"Paperback", facetset.LinkAdd, 2, "binding=P"},
	})
	checkChoices(t, facetFor(t, res, "genre").Choices, []wantChoice{
		{"Fantasy", facetset.LinkAdd, 2, "genre=1"},
		{"Science Fiction", facetset.LinkAdd, 2, "genre=2"},
	})
	checkChoices(t, facetFor(t, res, "authors").Choices, []wantChoice{
		{"Terry Pratchett", facetset.LinkAdd, 2, "authors=1"},
		{"Neil Gaiman", facetset.LinkAdd, 2, "authors=2"},
		{"Ursula K. Le Guin", facetset.LinkAdd, 1, "authors=3"},
	})
	checkChoices(t, facetFor(t, res, "price").Choices, []wantChoice{
		{"5", facetset.LinkAdd, 1, "price=5i"},
		{"10", facetset.LinkAdd, 1, "price=10i"},
		{"15", facetset.LinkAdd, 1, "price=15i"},
		{"20", facetset.LinkAdd, 1, "price=20i"},
	})
	checkChoices(t, facetFor(t, res, "date_published").Choices, []wantChoice{
		{"2020", facetset.LinkAdd, 2, "date_published=2020"},
		{"2021", facetset.LinkAdd, 2, "date_published=2021"},
	})
}

func TestEvaluate_SingleSelection(t *testing.T) {
	res := evalBooks(t, "binding=P")

	if n := qsCount(t, res); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if res.Title() != "Paperback" {
		t.Errorf("title = %q", res.Title())
	}

	checkChoices(t, facetFor(t, res, "binding").Choices, []wantChoice{
		{"Paperback", facetset.LinkRemove, 0, ""},
	})

	// Other facets narrow to paperbacks; genre collapses to context.
	checkChoices(t, facetFor(t, res, "genre").Choices, []wantChoice{
		{"Fantasy", facetset.LinkDisplay, 0, ""},
	})
	checkChoices(t, facetFor(t, res, "price").Choices, []wantChoice{
		{"5", facetset.LinkAdd, 1, "binding=P&price=5i"},
		{"10", facetset.LinkAdd, 1, "binding=P&price=10i"},
	})
}

func TestEvaluate_PageParamDropped(t *testing.T) {
	res := evalBooks(t, "binding=P&page=3")

	checkChoices(t, facetFor(t, res, "binding").Choices, []wantChoice{
		{"Paperback", facetset.LinkRemove, 0, ""},
	})
	genre := facetFor(t, res, "genre")
	if genre.Choices[0].Link != facetset.LinkDisplay {
		t.Fatalf("unexpected genre choices: %+v", genre.Choices)
	}

	authors := facetFor(t, res, "authors")
	for _, c := range authors.Choices {
		if c.Params.Has("page") {
			t.Errorf("choice %q keeps the page param: %q", c.Label, c.Params.Encode())
		}
	}
}

func TestEvaluate_CustomPageParam(t *testing.T) {
	res := evalBooks(t, "binding=P&p=3&page=7", facetset.PageParam("p"))

	c := facetFor(t, res, "binding").Choices[0]
	if c.Params.Has("p") {
		t.Error("custom page param must be dropped")
	}
	if !c.Params.Has("page") {
		t.Error("unrelated key must be preserved")
	}
}

func TestEvaluate_StackedSelectionsAndTitle(t *testing.T) {
	res := evalBooks(t, "binding=P&genre=1")

	if n := qsCount(t, res); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if res.Title() != "Paperback, Fantasy" {
		t.Errorf("title = %q", res.Title())
	}
	checkChoices(t, facetFor(t, res, "genre").Choices, []wantChoice{
		{"Fantasy", facetset.LinkRemove, 0, "binding=P"},
	})
}

func TestEvaluate_TitleFieldOrder(t *testing.T) {
	res := evalBooks(t, "binding=P&genre=1", facetset.TitleFields("genre", "binding"))
	if res.Title() != "Fantasy, Paperback" {
		t.Errorf("title = %q", res.Title())
	}
}

func TestEvaluate_MultiSelectionsAreConjunctive(t *testing.T) {
	res := evalBooks(t, "authors=1&authors=2")

	if n := qsCount(t, res); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	checkChoices(t, facetFor(t, res, "authors").Choices, []wantChoice{
		{"Terry Pratchett", facetset.LinkRemove, 0, "authors=2"},
		{"Neil Gaiman", facetset.LinkRemove, 0, "authors=1"},
	})
}

func TestEvaluate_MultiRefinementCounts(t *testing.T) {
	res := evalBooks(t, "authors=2")

	// Gaiman matches books 2 and 3; Pratchett is the only possible
	// refinement, so it collapses to context.
	checkChoices(t, facetFor(t, res, "authors").Choices, []wantChoice{
		{"Neil Gaiman", facetset.LinkRemove, 0, ""},
		{"Terry Pratchett", facetset.LinkDisplay, 0, ""},
	})
}

func TestEvaluate_StaleRelationIDIgnored(t *testing.T) {
	res := evalBooks(t, "genre=99")

	if n := qsCount(t, res); n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
	genre := facetFor(t, res, "genre")
	if len(genre.Choices) != 2 || genre.Choices[0].Link != facetset.LinkAdd {
		t.Errorf("unexpected genre choices: %+v", genre.Choices)
	}
}

func TestEvaluate_MalformedParamsTolerated(t *testing.T) {
	res := evalBooks(t, "price=abc&date_published=banana")

	if n := qsCount(t, res); n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
	if got := len(facetFor(t, res, "price").Choices); got != 4 {
		t.Errorf("price choices = %d, want 4", got)
	}
	if got := len(facetFor(t, res, "date_published").Choices); got != 2 {
		t.Errorf("date choices = %d, want 2", got)
	}
}

func TestEvaluate_DatetimeDrilldown(t *testing.T) {
	res := evalBooks(t, "date_published=2020")

	if n := qsCount(t, res); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if res.Title() != "2020" {
		t.Errorf("title = %q", res.Title())
	}
	checkChoices(t, facetFor(t, res, "date_published").Choices, []wantChoice{
		{"2020", facetset.LinkRemove, 0, ""},
		{"May", facetset.LinkAdd, 1, "date_published=2020&date_published=2020-05"},
		{"June", facetset.LinkAdd, 1, "date_published=2020&date_published=2020-06"},
	})
}

func TestEvaluate_DatetimeRemoveCascade(t *testing.T) {
	res := evalBooks(t, "date_published=2020&date_published=2020-05")

	if n := qsCount(t, res); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	// Removing the year drops the month with it; the lone day left under
	// May is context, not a link.
	checkChoices(t, facetFor(t, res, "date_published").Choices, []wantChoice{
		{"2020", facetset.LinkRemove, 0, ""},
		{"May", facetset.LinkRemove, 0, "date_published=2020"},
		{"1", facetset.LinkDisplay, 0, ""},
	})
}

func TestEvaluate_DatetimeMaxDepth(t *testing.T) {
	schema, err := facetset.SchemaOf[book]()
	if err != nil {
		t.Fatal(err)
	}
	if err := schema.WithEnum("binding", facetset.EnumValue{Value: "H", Label: "Hardback"}, facetset.EnumValue{Value: "P", Label: "Paperback"}); err != nil {
		t.Fatal(err)
	}
	fs, err := facetset.New(schema, []facetset.FieldSpec{
		{Field: "date_published", Options: facetset.Options{MaxDepth: facetset.DepthYear}},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := fs.Evaluate(context.Background(), bookCollection(t).Dataset(), facetset.ParseQuery("date_published=2020"))
	if err != nil {
		t.Fatal(err)
	}
	checkChoices(t, facetFor(t, res, "date_published").Choices, []wantChoice{
		{"2020", facetset.LinkRemove, 0, ""},
	})
}

func TestEvaluate_OrderByCount(t *testing.T) {
	collection := memory.NewCollection(
		memory.Record{ID: "1", Strings: map[string]string{"tag": "a"}},
		memory.Record{ID: "2", Strings: map[string]string{"tag": "b"}},
		memory.Record{ID: "3", Strings: map[string]string{"tag": "b"}},
		memory.Record{ID: "4", Strings: map[string]string{"tag": "b"}},
		memory.Record{ID: "5", Strings: map[string]string{"tag": "c"}},
		memory.Record{ID: "6", Strings: map[string]string{"tag": "c"}},
	)
	schema, err := facetset.NewSchema(facetset.FieldInfo{Name: "tag", Kind: facetset.KindString})
	if err != nil {
		t.Fatal(err)
	}
	byCount := true
	fs, err := facetset.New(schema, []facetset.FieldSpec{
		{Field: "tag", Options: facetset.Options{OrderByCount: &byCount}},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := fs.Evaluate(context.Background(), collection.Dataset(), facetset.Params{})
	if err != nil {
		t.Fatal(err)
	}
	checkChoices(t, facetFor(t, res, "tag").Choices, []wantChoice{
		{"b", facetset.LinkAdd, 3, "tag=b"},
		{"c", facetset.LinkAdd, 2, "tag=c"},
		{"a", facetset.LinkAdd, 1, "tag=a"},
	})
}

func TestEvaluate_OrderByCountFieldOverridesDefault(t *testing.T) {
	collection := memory.NewCollection(
		memory.Record{ID: "1", Strings: map[string]string{"tag": "a"}},
		memory.Record{ID: "2", Strings: map[string]string{"tag": "b"}},
		memory.Record{ID: "3", Strings: map[string]string{"tag": "b"}},
	)
	schema, err := facetset.NewSchema(facetset.FieldInfo{Name: "tag", Kind: facetset.KindString})
	if err != nil {
		t.Fatal(err)
	}
	on, off := true, false
	fs, err := facetset.New(schema, []facetset.FieldSpec{
		{Field: "tag", Options: facetset.Options{OrderByCount: &off}},
	}, facetset.Defaults(facetset.Options{OrderByCount: &on}))
	if err != nil {
		t.Fatal(err)
	}

	res, err := fs.Evaluate(context.Background(), collection.Dataset(), facetset.Params{})
	if err != nil {
		t.Fatal(err)
	}
	// Natural value order, not descending count order.
	checkChoices(t, facetFor(t, res, "tag").Choices, []wantChoice{
		{"a", facetset.LinkAdd, 1, "tag=a"},
		{"b", facetset.LinkAdd, 2, "tag=b"},
	})
}

func TestEvaluate_ShowCountsDisabled(t *testing.T) {
	off := false
	schema, err := facetset.NewSchema(facetset.FieldInfo{Name: "tag", Kind: facetset.KindString})
	if err != nil {
		t.Fatal(err)
	}
	fs, err := facetset.New(schema, []facetset.FieldSpec{{Field: "tag"}},
		facetset.Defaults(facetset.Options{ShowCounts: &off}))
	if err != nil {
		t.Fatal(err)
	}
	collection := memory.NewCollection(
		memory.Record{ID: "1", Strings: map[string]string{"tag": "a"}},
		memory.Record{ID: "2", Strings: map[string]string{"tag": "b"}},
	)

	res, err := fs.Evaluate(context.Background(), collection.Dataset(), facetset.Params{})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range facetFor(t, res, "tag").Choices {
		if c.HasCount {
			t.Errorf("choice %q carries a count with show_counts disabled", c.Label)
		}
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	fs := bookFilterSet(t)
	ds := bookCollection(t).Dataset()
	params := facetset.ParseQuery("binding=P&genre=1&date_published=2020")

	first, err := fs.Evaluate(context.Background(), ds, params)
	if err != nil {
		t.Fatal(err)
	}
	second, err := fs.Evaluate(context.Background(), ds, params)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Facets(), second.Facets()) {
		t.Errorf("facets differ between evaluations:\n%+v\n%+v", first.Facets(), second.Facets())
	}
	if first.Title() != second.Title() {
		t.Errorf("title differs: %q vs %q", first.Title(), second.Title())
	}
	if qsCount(t, first) != qsCount(t, second) {
		t.Errorf("counts differ: %d vs %d", qsCount(t, first), qsCount(t, second))
	}
}

func TestEvaluate_StackingNeverGrowsResults(t *testing.T) {
	queries := []string{
		"",
		"binding=P",
		"binding=P&genre=1",
		"binding=P&genre=1&authors=1",
		"binding=P&genre=1&authors=1&date_published=2020",
	}
	prev := -1
	for _, q := range queries {
		n := qsCount(t, evalBooks(t, q))
		if prev >= 0 && n > prev {
			t.Errorf("query %q widened results: %d > %d", q, n, prev)
		}
		prev = n
	}
}

func TestEvaluate_NullValueChoice(t *testing.T) {
	collection := memory.NewCollection(
		memory.Record{ID: "1", Strings: map[string]string{"editor": "ann"}},
		memory.Record{ID: "2", Strings: map[string]string{"editor": "bob"}},
		memory.Record{ID: "3"},
	)
	schema, err := facetset.NewSchema(
		facetset.FieldInfo{Name: "editor", Kind: facetset.KindString, Nullable: true})
	if err != nil {
		t.Fatal(err)
	}
	fs, err := facetset.New(schema, []facetset.FieldSpec{{Field: "editor"}})
	if err != nil {
		t.Fatal(err)
	}

	res, err := fs.Evaluate(context.Background(), collection.Dataset(), facetset.Params{})
	if err != nil {
		t.Fatal(err)
	}
	checkChoices(t, facetFor(t, res, "editor").Choices, []wantChoice{
		{"(null)", facetset.LinkAdd, 1, "editor--isnull="},
		{"ann", facetset.LinkAdd, 1, "editor=ann"},
		{"bob", facetset.LinkAdd, 1, "editor=bob"},
	})

	res, err = fs.Evaluate(context.Background(), collection.Dataset(), facetset.ParseQuery("editor--isnull="))
	if err != nil {
		t.Fatal(err)
	}
	if n := qsCount(t, res); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	checkChoices(t, facetFor(t, res, "editor").Choices, []wantChoice{
		{"(null)", facetset.LinkRemove, 0, ""},
	})
}
