package listquery

import (
	"cmp"
	"reflect"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Field describes one named field of a list item.
type Field[T any] struct {
	Name string
	// Get extracts the field value. Pointers are dereferenced and nil or a
	// zero time.Time is treated as missing.
	Get func(T) any
	// Compare overrides the default type-aware comparison of two non-missing
	// values, e.g. with a locale-aware collator.
	Compare func(a, b any) int
	// Enum, when non-empty, is the closed set of values an Enum filter on
	// this field may take.
	Enum       []string
	Sortable   bool
	Filterable bool
}

// Schema is the set of fields a controller may filter and sort on.
type Schema[T any] struct {
	fields map[string]Field[T]
	names  []string
}

// NewSchema builds a schema from field descriptions.
func NewSchema[T any](fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{fields: make(map[string]Field[T], len(fields))}
	for _, f := range fields {
		if _, dup := s.fields[f.Name]; !dup {
			s.names = append(s.names, f.Name)
		}
		s.fields[f.Name] = f
	}
	return s
}

// Field looks up a field by name.
func (s *Schema[T]) Field(name string) (Field[T], bool) {
	if s == nil {
		return Field[T]{}, false
	}
	f, ok := s.fields[name]
	return f, ok
}

// Names returns field names in declaration order.
func (s *Schema[T]) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Order compares two items. Negative means a sorts before b.
type Order[T any] interface {
	Compare(a, b T) int
}

// OrderFunc adapts a function to Order.
type OrderFunc[T any] func(a, b T) int

// Compare implements Order.
func (f OrderFunc[T]) Compare(a, b T) int { return f(a, b) }

// Orders applies each order in sequence; the first non-zero result wins.
type Orders[T any] []Order[T]

// Compare implements Order.
func (os Orders[T]) Compare(a, b T) int {
	for _, o := range os {
		if o == nil {
			continue
		}
		if c := o.Compare(a, b); c != 0 {
			return c
		}
	}
	return 0
}

// KeyOrder sorts by one field. Missing values go last in both directions.
type KeyOrder[T any] struct {
	Field     Field[T]
	Direction Direction
}

// Compare implements Order.
func (ko KeyOrder[T]) Compare(a, b T) int {
	av, bv := deref(ko.Field.Get(a)), deref(ko.Field.Get(b))
	switch {
	case av == nil && bv == nil:
		return 0
	case av == nil:
		return 1
	case bv == nil:
		return -1
	}
	var c int
	if ko.Field.Compare != nil {
		c = ko.Field.Compare(av, bv)
	} else {
		c = CompareValues(av, bv)
	}
	if ko.Direction == Desc {
		c = -c
	}
	return c
}

// PartitionFirst puts items matching pred before the rest.
func PartitionFirst[T any](pred func(T) bool) Order[T] {
	return OrderFunc[T](func(a, b T) int {
		pa, pb := pred(a), pred(b)
		switch {
		case pa == pb:
			return 0
		case pa:
			return -1
		}
		return 1
	})
}

// CompareValues is the default type-aware comparison: booleans as 0/1, times
// chronologically, numbers numerically and strings by ordinal byte order.
// Values of different types fall back to comparing their text.
func CompareValues(a, b any) int {
	switch x := a.(type) {
	case bool:
		if y, ok := b.(bool); ok {
			return cmp.Compare(boolInt(x), boolInt(y))
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isInt(av) && isInt(bv):
		return cmp.Compare(av.Int(), bv.Int())
	case isUint(av) && isUint(bv):
		return cmp.Compare(av.Uint(), bv.Uint())
	case isNumber(av) && isNumber(bv):
		return cmp.Compare(toFloat(av), toFloat(bv))
	case av.Kind() == reflect.String && bv.Kind() == reflect.String:
		return strings.Compare(av.String(), bv.String())
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		return cmp.Compare(boolInt(av.Bool()), boolInt(bv.Bool()))
	}
	return strings.Compare(textOf(a), textOf(b))
}

// Collated returns a string comparator using the collation rules of tag.
// Non-string values fall back to CompareValues. The comparator is safe for
// concurrent use.
func Collated(tag language.Tag, opts ...collate.Option) func(a, b any) int {
	var mu sync.Mutex
	col := collate.New(tag, opts...)
	return func(a, b any) int {
		as, aok := a.(string)
		bs, bok := b.(string)
		if !aok || !bok {
			return CompareValues(a, b)
		}
		mu.Lock()
		defer mu.Unlock()
		return col.CompareString(as, bs)
	}
}

// deref unwraps pointers and reports nil pointers and zero times as missing.
func deref(v any) any {
	if v == nil {
		return nil
	}
	if t, ok := v.(time.Time); ok {
		if t.IsZero() {
			return nil
		}
		return t
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	out := rv.Interface()
	if t, ok := out.(time.Time); ok && t.IsZero() {
		return nil
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isNumber(v reflect.Value) bool {
	return isInt(v) || isUint(v) || v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v):
		return float64(v.Int())
	case isUint(v):
		return float64(v.Uint())
	}
	return v.Float()
}
