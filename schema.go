package facetset

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

const tagKey = "facet"

// Kind classifies a schema field for strategy resolution.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindTime
	KindEnum
	KindRelation
	KindMultiRelation
)

// EnumValue is one declared value of an enumerated field, in display order.
type EnumValue struct {
	Value string
	Label string
}

// FieldInfo describes one filterable field of the record type.
type FieldInfo struct {
	Name     string // may be a dotted path into a nested structure
	Kind     Kind
	Nullable bool
	Enum     []EnumValue // required for KindEnum, ignored otherwise
}

// Schema describes the filterable fields of a record type. It is built once
// and shared; the engine validates FieldSpecs against it at construction.
type Schema struct {
	fields map[string]FieldInfo
	order  []string
}

// NewSchema creates a Schema from explicit field descriptions. Enum fields
// must carry their values up front.
func NewSchema(fields ...FieldInfo) (*Schema, error) {
	return newSchema(fields, true)
}

func newSchema(fields []FieldInfo, requireEnumValues bool) (*Schema, error) {
	s := &Schema{fields: make(map[string]FieldInfo, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field with empty name", ErrBadOption)
		}
		if _, dup := s.fields[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrBadOption, f.Name)
		}
		if requireEnumValues && f.Kind == KindEnum && len(f.Enum) == 0 {
			return nil, fmt.Errorf("%w: enum field %q has no values", ErrBadOption, f.Name)
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s, nil
}

// SchemaOf builds a Schema by reflecting on T's `facet` struct tags.
//
// Tag grammar: `facet:"name[,modifier]"`. Modifiers:
//
//	id        record identifier, not filterable
//	relation  string field holding a related record id
//	multi     []string field holding a set of related record ids
//	enum      enumerated string field; values are declared via WithEnum
//
// Without a modifier the kind is inferred from the Go type: string,
// integers, floats, time.Time. Pointer fields are nullable. Untagged nested
// structs are flattened with a dotted prefix.
func SchemaOf[T any]() (*Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("facetset: type %s is not a struct", t)
	}
	var fields []FieldInfo
	if err := collectFields(t, "", &fields); err != nil {
		return nil, err
	}
	// Enum values arrive later through WithEnum; New validates that an enum
	// field configured for filtering actually has them.
	return newSchema(fields, false)
}

func collectFields(t reflect.Type, prefix string, out *[]FieldInfo) error {
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

		ft := f.Type
		nullable := false
		if ft.Kind() == reflect.Pointer {
			nullable = true
			ft = ft.Elem()
		}

		switch modifier {
		case "id":
			continue
		case "relation":
			if ft.Kind() != reflect.String {
				return fmt.Errorf("facetset: relation field %s must be a string id", name)
			}
			*out = append(*out, FieldInfo{Name: name, Kind: KindRelation, Nullable: nullable})
		case "multi":
			if ft.Kind() != reflect.Slice || ft.Elem().Kind() != reflect.String {
				return fmt.Errorf("facetset: multi field %s must be []string", name)
			}
			*out = append(*out, FieldInfo{Name: name, Kind: KindMultiRelation})
		case "enum":
			if ft.Kind() != reflect.String {
				return fmt.Errorf("facetset: enum field %s must be a string", name)
			}
			*out = append(*out, FieldInfo{Name: name, Kind: KindEnum, Nullable: nullable})
		case "":
			kind, ok := inferKind(ft)
			if !ok {
				if ft.Kind() == reflect.Struct {
					if err := collectFields(ft, name, out); err != nil {
						return err
					}
					continue
				}
				return fmt.Errorf("facetset: cannot infer kind of field %s (%s)", name, ft)
			}
			*out = append(*out, FieldInfo{Name: name, Kind: kind, Nullable: nullable})
		default:
			return fmt.Errorf("facetset: unknown modifier %q on field %s", modifier, name)
		}
	}
	return nil
}

func inferKind(t reflect.Type) (Kind, bool) {
	if t == reflect.TypeOf(time.Time{}) {
		return KindTime, true
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, true
	case reflect.Float32, reflect.Float64:
		return KindFloat, true
	default:
		return 0, false
	}
}

// WithEnum declares the value set of an enumerated field after reflection.
// An enum field reflected via SchemaOf has no values until this is called.
func (s *Schema) WithEnum(field string, values ...EnumValue) error {
	fi, ok := s.fields[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if fi.Kind != KindEnum {
		return fmt.Errorf("%w: field %s is not an enum", ErrBadOption, field)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: enum field %q has no values", ErrBadOption, field)
	}
	fi.Enum = values
	s.fields[field] = fi
	return nil
}

// Field looks up a field description by name.
func (s *Schema) Field(name string) (FieldInfo, bool) {
	fi, ok := s.fields[name]
	return fi, ok
}

// Fields returns the field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
