// Package memory provides an in-memory Dataset backed by roaring bitmaps.
// It is the reference provider: small collections, test fixtures, and the
// hydration target of the redis-backed store.
package memory

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kailas-cloud/facetset"
)

const tagKey = "facet"

// Record is one row of a collection. A field missing from every map is null.
type Record struct {
	ID      string
	Strings map[string]string
	Numbers map[string]float64
	Times   map[string]time.Time
	Multi   map[string][]string
}

// Collection is an immutable set of records plus optional label tables for
// relation fields.
type Collection struct {
	records []Record
	labels  map[string]map[string]string
}

// NewCollection builds a collection from explicit records.
func NewCollection(records ...Record) *Collection {
	return &Collection{records: records}
}

// FromStructs builds a collection by reflecting `facet` tags, using the same
// tag grammar the schema reflection uses. Pointer fields that are nil are
// stored as null.
func FromStructs[T any](items []T) (*Collection, error) {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		v := reflect.ValueOf(item)
		if v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, fmt.Errorf("memory: %T is not a struct", item)
		}
		rec := Record{
			Strings: map[string]string{},
			Numbers: map[string]float64{},
			Times:   map[string]time.Time{},
			Multi:   map[string][]string{},
		}
		if err := fillRecord(v, "", &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return NewCollection(records...), nil
}

func fillRecord(v reflect.Value, prefix string, rec *Record) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "-" || !f.IsExported() {
			continue
		}
		name, modifier, _ := strings.Cut(tag, ",")
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}

		switch modifier {
		case "id":
			rec.ID = fmt.Sprint(fv.Interface())
		case "relation", "enum":
			rec.Strings[name] = fv.String()
		case "multi":
			ids := make([]string, fv.Len())
			for j := range fv.Len() {
				ids[j] = fv.Index(j).String()
			}
			rec.Multi[name] = ids
		case "":
			if err := fillPlain(fv, name, rec); err != nil {
				return err
			}
		default:
			return fmt.Errorf("memory: unknown modifier %q on field %s", modifier, name)
		}
	}
	return nil
}

func fillPlain(fv reflect.Value, name string, rec *Record) error {
	if t, ok := fv.Interface().(time.Time); ok {
		rec.Times[name] = t
		return nil
	}
	switch fv.Kind() {
	case reflect.String:
		rec.Strings[name] = fv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rec.Numbers[name] = float64(fv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rec.Numbers[name] = float64(fv.Uint())
	case reflect.Float32, reflect.Float64:
		rec.Numbers[name] = fv.Float()
	case reflect.Struct:
		return fillRecord(fv, name, rec)
	default:
		return fmt.Errorf("memory: cannot store field %s (%s)", name, fv.Type())
	}
	return nil
}

// WithLabels attaches a label table for a relation field. Ids absent from
// the table are treated as references to nonexistent records.
func (c *Collection) WithLabels(field string, labels map[string]string) *Collection {
	if c.labels == nil {
		c.labels = map[string]map[string]string{}
	}
	c.labels[field] = labels
	return c
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Records returns the backing records. Callers must not mutate them.
func (c *Collection) Records() []Record { return c.records }

// Dataset returns a facetset.Dataset over the whole collection.
func (c *Collection) Dataset() facetset.Dataset {
	rows := roaring.New()
	rows.AddRange(0, uint64(len(c.records)))
	return &dataset{col: c, rows: rows}
}
