package listquery

import (
	"context"
	"fmt"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Scope is the request-scoped context a data source needs: which tenant the
// list belongs to and the credentials to reach it. It is passed explicitly
// on every query.
type Scope struct {
	Tenant string
	Token  string
}

// FetchResult is one page returned by a data source.
type FetchResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// DataSource serves pages for a QueryState. Implementations own transport,
// headers and authentication; the controller knows nothing of them.
type DataSource[T any] interface {
	Query(ctx context.Context, scope Scope, state QueryState) (FetchResult[T], error)
}

// DataSourceFunc adapts a function to DataSource.
type DataSourceFunc[T any] func(ctx context.Context, scope Scope, state QueryState) (FetchResult[T], error)

// Query implements DataSource.
func (f DataSourceFunc[T]) Query(ctx context.Context, scope Scope, state QueryState) (FetchResult[T], error) {
	return f(ctx, scope, state)
}

// CachedSource keeps recently fetched pages in an LRU cache. Errors are never
// cached. Call Invalidate when the underlying collection changes.
type CachedSource[T any] struct {
	inner DataSource[T]
	cache *lru.Cache[string, FetchResult[T]]
}

// NewCachedSource wraps inner with a cache holding at most size pages.
func NewCachedSource[T any](inner DataSource[T], size int) (*CachedSource[T], error) {
	c, err := lru.New[string, FetchResult[T]](size)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	return &CachedSource[T]{inner: inner, cache: c}, nil
}

// Query implements DataSource.
func (s *CachedSource[T]) Query(ctx context.Context, scope Scope, state QueryState) (FetchResult[T], error) {
	key := url.QueryEscape(scope.Tenant) + "|" + state.Key()
	if res, ok := s.cache.Get(key); ok {
		return copyResult(res), nil
	}
	res, err := s.inner.Query(ctx, scope, state)
	if err != nil {
		return FetchResult[T]{}, err
	}
	s.cache.Add(key, copyResult(res))
	return res, nil
}

// Invalidate drops every cached page.
func (s *CachedSource[T]) Invalidate() {
	s.cache.Purge()
}

// Len returns the number of cached pages.
func (s *CachedSource[T]) Len() int {
	return s.cache.Len()
}

func copyResult[T any](r FetchResult[T]) FetchResult[T] {
	items := make([]T, len(r.Items))
	copy(items, r.Items)
	return FetchResult[T]{Items: items, Total: r.Total}
}
