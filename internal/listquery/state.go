// Package listquery implements a controller for remote-backed lists that are
// paginated, sortable and filterable.
//
// A Controller owns the QueryState of one list view. Consumers change it only
// through SetFilter, SetSort and SetPage, and read it back through Snapshot
// and SortedFilteredView. Every change that needs new data issues a fetch
// against an injected DataSource. Fetches are tagged with a sequence number
// when issued, and a response is applied only if no newer response has been
// applied before it.
package listquery

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DefaultPageSize is used when no page size option is given.
const DefaultPageSize = 20

// Direction is the order of a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// IsValid reports whether d is asc or desc.
func (d Direction) IsValid() bool {
	return d == Asc || d == Desc
}

// Sort is the requested sort field and direction.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// String renders the sort in the "-field" form used by the REST API, where a
// leading "-" means descending.
func (s *Sort) String() string {
	if s == nil || s.Field == "" {
		return ""
	}
	if s.Direction == Desc {
		return "-" + s.Field
	}
	return s.Field
}

// ParseSort parses the "-field" form. An empty string yields nil.
func ParseSort(raw string) *Sort {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return nil
	}
	if strings.HasPrefix(raw, "-") {
		return &Sort{Field: raw[1:], Direction: Desc}
	}
	return &Sort{Field: raw, Direction: Asc}
}

// QueryState describes the page, filters and sort currently requested.
type QueryState struct {
	Filters  map[string]FilterValue `json:"filters"`
	Sort     *Sort                  `json:"sort,omitempty"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Total    int                    `json:"total"`
}

// NewQueryState returns the mount-time defaults: page 1, no filters, no sort.
func NewQueryState(pageSize int) QueryState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return QueryState{
		Filters:  map[string]FilterValue{},
		Page:     1,
		PageSize: pageSize,
	}
}

// Offset is the index of the first item of the current page.
func (q QueryState) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// TotalPages is ceil(Total / PageSize).
func (q QueryState) TotalPages() int {
	if q.PageSize <= 0 || q.Total <= 0 {
		return 0
	}
	return (q.Total + q.PageSize - 1) / q.PageSize
}

// LastPage is the highest page SetPage accepts. It is never below 1 so that an
// empty or not yet fetched list still has a first page.
func (q QueryState) LastPage() int {
	if n := q.TotalPages(); n > 1 {
		return n
	}
	return 1
}

// Clone returns a deep copy; the filters map and sort are not shared.
func (q QueryState) Clone() QueryState {
	out := q
	out.Filters = make(map[string]FilterValue, len(q.Filters))
	for k, v := range q.Filters {
		out.Filters[k] = v
	}
	if q.Sort != nil {
		s := *q.Sort
		out.Sort = &s
	}
	return out
}

// FilterFields returns the filtered field names in sorted order.
func (q QueryState) FilterFields() []string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key is a deterministic encoding of everything that selects a page. Total is
// excluded because it is a result, not a parameter. Names and values are
// query-escaped, so distinct states never share a key.
func (q QueryState) Key() string {
	v := url.Values{}
	for k, f := range q.Filters {
		v.Set("filter."+k, f.kind.String()+":"+f.String())
	}
	v.Set("sort", q.Sort.String())
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.PageSize))
	return v.Encode()
}
