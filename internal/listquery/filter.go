package listquery

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FilterKind tells which scalar a FilterValue holds.
type FilterKind uint8

const (
	FilterNull FilterKind = iota
	FilterText
	FilterFlag
	FilterEnum
)

func (k FilterKind) String() string {
	switch k {
	case FilterText:
		return "text"
	case FilterFlag:
		return "flag"
	case FilterEnum:
		return "enum"
	}
	return "null"
}

// FilterValue is a scalar filter constraint. The zero value is null, meaning
// no constraint. FilterValue is comparable with ==.
type FilterValue struct {
	kind FilterKind
	str  string
	flag bool
}

// Null returns the "no constraint" value.
func Null() FilterValue { return FilterValue{} }

// Text returns a free-text constraint, matched as a case-insensitive substring.
func Text(s string) FilterValue { return FilterValue{kind: FilterText, str: s} }

// Flag returns a boolean constraint.
func Flag(b bool) FilterValue { return FilterValue{kind: FilterFlag, flag: b} }

// Enum returns an exact-match constraint over a closed set of values.
func Enum(s string) FilterValue { return FilterValue{kind: FilterEnum, str: s} }

// ParseFilter turns a raw query or flag value into a FilterValue: "" is null,
// "true"/"false" are flags and anything else is text.
func ParseFilter(raw string) FilterValue {
	switch strings.TrimSpace(raw) {
	case "":
		return Null()
	case "true":
		return Flag(true)
	case "false":
		return Flag(false)
	}
	return Text(raw)
}

// Kind returns the kind of scalar held.
func (v FilterValue) Kind() FilterKind { return v.kind }

// IsNull reports whether v places no constraint.
func (v FilterValue) IsNull() bool { return v.kind == FilterNull }

// Bool returns the flag value; false for other kinds.
func (v FilterValue) Bool() bool { return v.kind == FilterFlag && v.flag }

// String renders the value as it is sent on the wire.
func (v FilterValue) String() string {
	switch v.kind {
	case FilterText, FilterEnum:
		return v.str
	case FilterFlag:
		return strconv.FormatBool(v.flag)
	}
	return ""
}

// Match reports whether a field value satisfies the constraint. Null matches
// everything; a missing field value matches nothing else.
func (v FilterValue) Match(field any) bool {
	if v.kind == FilterNull {
		return true
	}
	field = deref(field)
	if field == nil {
		return false
	}
	switch v.kind {
	case FilterFlag:
		b, ok := field.(bool)
		return ok && b == v.flag
	case FilterEnum:
		return textOf(field) == v.str
	case FilterText:
		return strings.Contains(strings.ToLower(textOf(field)), strings.ToLower(v.str))
	}
	return false
}

func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// MarshalJSON encodes null as null, flags as booleans and text or enum values
// as strings.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case FilterFlag:
		return json.Marshal(v.flag)
	case FilterText, FilterEnum:
		return json.Marshal(v.str)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes the MarshalJSON form. Strings decode as text.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Flag(x)
	case string:
		*v = Text(x)
	default:
		return fmt.Errorf("unsupported filter value %s", data)
	}
	return nil
}
