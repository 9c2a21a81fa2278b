package listquery

import "sort"

// StableSort returns a new slice with items ordered by order. Items that
// compare equal keep their input order: each item is decorated with its
// original index, which is the final tie-breaker. The input is not modified.
func StableSort[T any](items []T, order Order[T]) []T {
	type decorated struct {
		item  T
		index int
	}
	dec := make([]decorated, len(items))
	for i, it := range items {
		dec[i] = decorated{item: it, index: i}
	}
	sort.Slice(dec, func(i, j int) bool {
		if order != nil {
			if c := order.Compare(dec[i].item, dec[j].item); c != 0 {
				return c < 0
			}
		}
		return dec[i].index < dec[j].index
	})
	out := make([]T, len(dec))
	for i, d := range dec {
		out[i] = d.item
	}
	return out
}

// FilterItems returns the items matching every filter. Filters on fields the
// schema does not know are ignored; the data source is expected to have
// applied those. The input is not modified.
func FilterItems[T any](items []T, schema *Schema[T], filters map[string]FilterValue) []T {
	type check struct {
		get func(T) any
		val FilterValue
	}
	var checks []check
	for name, v := range filters {
		if v.IsNull() {
			continue
		}
		f, ok := schema.Field(name)
		if !ok || f.Get == nil {
			continue
		}
		checks = append(checks, check{get: f.Get, val: v})
	}
	out := make([]T, 0, len(items))
outer:
	for _, it := range items {
		for _, c := range checks {
			if !c.val.Match(c.get(it)) {
				continue outer
			}
		}
		out = append(out, it)
	}
	return out
}
