package main

import (
	"time"

	"github.com/kailas-cloud/facetset"
	"github.com/kailas-cloud/facetset/memory"
)

// Book is the demo record type served by facetd.
type Book struct {
	ID            string    `facet:"id,id"`
	Name          string    `facet:"name"`
	Binding       string    `facet:"binding,enum"`
	Genre         string    `facet:"genre,relation"`
	Authors       []string  `facet:"authors,multi"`
	Price         float64   `facet:"price"`
	DatePublished time.Time `facet:"date_published"`
}

func bookSchema() (*facetset.Schema, error) {
	schema, err := facetset.SchemaOf[Book]()
	if err != nil {
		return nil, err
	}
	err = schema.WithEnum("binding",
		facetset.EnumValue{Value: "H", Label: "Hardback"},
		facetset.EnumValue{Value: "P", Label: "Paperback"},
	)
	if err != nil {
		return nil, err
	}
	return schema, nil
}

func bookSpecs() []facetset.FieldSpec {
	return []facetset.FieldSpec{
		{Field: "binding"},
		{Field: "genre"},
		{Field: "authors"},
		{Field: "price", Options: facetset.Options{MaxLinks: 5}},
		{Field: "date_published"},
	}
}

var genreLabels = map[string]string{
	"1": "Fantasy",
	"2": "Science Fiction",
	"3": "Satire",
	"4": "History",
}

var authorLabels = map[string]string{
	"1": "Terry Pratchett",
	"2": "Neil Gaiman",
	"3": "Ursula K. Le Guin",
	"4": "Mary Beard",
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedBooks() []Book {
	return []Book{
		{ID: "1", Name: "Good Omens", Binding: "P", Genre: "1", Authors: []string{"1", "2"}, Price: 7.99, DatePublished: day(1990, time.May, 1)},
		{ID: "2", Name: "Small Gods", Binding: "P", Genre: "1", Authors: []string{"1"}, Price: 8.99, DatePublished: day(1992, time.May, 21)},
		{ID: "3", Name: "Night Watch", Binding: "H", Genre: "1", Authors: []string{"1"}, Price: 16.99, DatePublished: day(2002, time.November, 7)},
		{ID: "4", Name: "American Gods", Binding: "H", Genre: "1", Authors: []string{"2"}, Price: 14.50, DatePublished: day(2001, time.June, 19)},
		{ID: "5", Name: "The Dispossessed", Binding: "P", Genre: "2", Authors: []string{"3"}, Price: 9.25, DatePublished: day(1974, time.May, 1)},
		{ID: "6", Name: "The Left Hand of Darkness", Binding: "P", Genre: "2", Authors: []string{"3"}, Price: 8.75, DatePublished: day(1969, time.March, 1)},
		{ID: "7", Name: "SPQR", Binding: "H", Genre: "4", Authors: []string{"4"}, Price: 24.00, DatePublished: day(2015, time.October, 20)},
		{ID: "8", Name: "Pompeii", Binding: "P", Genre: "4", Authors: []string{"4"}, Price: 12.00, DatePublished: day(2008, time.September, 2)},
	}
}

func seedCollection() (*memory.Collection, error) {
	collection, err := memory.FromStructs(seedBooks())
	if err != nil {
		return nil, err
	}
	return collection.
		WithLabels("genre", genreLabels).
		WithLabels("authors", authorLabels), nil
}
