package main

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

func TestParseFilterFlag(t *testing.T) {
	schema := model.ClientFields()
	for _, tc := range []struct {
		raw     string
		field   string
		want    listquery.FilterValue
		wantErr string
	}{
		{raw: "tax_regime=simples", field: "tax_regime", want: listquery.Enum("simples")},
		{raw: "active=true", field: "active", want: listquery.Flag(true)},
		{raw: "active=false", field: "active", want: listquery.Flag(false)},
		{raw: "search= padaria ", field: "search", want: listquery.Text("padaria")},
		{raw: "email=", field: "email", want: listquery.Null()},
		{raw: "tax_regime=", field: "tax_regime", want: listquery.Null()},
		{raw: "name", wantErr: "expected field=value"},
		{raw: "=x", wantErr: "expected field=value"},
		{raw: "monthly_fee=10", wantErr: "not filterable"},
		{raw: "nope=1", wantErr: "not filterable"},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			field, v, err := parseFilterFlag(schema, tc.raw)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if field != tc.field || v != tc.want {
				t.Errorf("got %s=%v, want %s=%v", field, v, tc.field, tc.want)
			}
		})
	}
}

func TestPageSummary(t *testing.T) {
	st := listquery.NewQueryState(20)
	st.Page, st.Total = 2, 93
	st.Sort = &listquery.Sort{Field: "monthly_fee", Direction: listquery.Desc}
	st.Filters["tax_regime"] = listquery.Enum("simples")
	st.Filters["active"] = listquery.Flag(true)

	got := pageSummary(st, 20)
	want := "page 2/5, 20 of 93 clients, sorted by -monthly_fee, where active=true tax_regime=simples"
	if got != want {
		t.Errorf("pageSummary =\n  %q\nwant\n  %q", got, want)
	}
	if got := pageSummary(listquery.NewQueryState(20), 0); got != "page 1/1, 0 of 0 clients" {
		t.Errorf("empty summary = %q", got)
	}
}

func newTestList(t *testing.T, items []*model.Client, calls *atomic.Int32) *clientList {
	t.Helper()
	inner := pagedSource(items)
	counting := listquery.DataSourceFunc[*model.Client](func(ctx context.Context, sc listquery.Scope, st listquery.QueryState) (listquery.FetchResult[*model.Client], error) {
		calls.Add(1)
		return inner.Query(ctx, sc, st)
	})
	cache, err := listquery.NewCachedSource[*model.Client](counting, pageCacheSize)
	if err != nil {
		t.Fatal(err)
	}
	ctrl := listquery.New[*model.Client](cache, listquery.Scope{Tenant: "firm-1"}, model.ClientFields(),
		listquery.WithPageSize[*model.Client](10),
		listquery.WithServerSort[*model.Client](),
		listquery.WithServerFilter[*model.Client](),
	)
	t.Cleanup(ctrl.Close)
	return &clientList{Controller: ctrl, cache: cache}
}

func TestLoadPage_MovesToRequestedPage(t *testing.T) {
	var calls atomic.Int32
	l := newTestList(t, sampleClients(25), &calls)

	snap, err := loadPage(context.Background(), l, []string{"active=true"}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State.Page != 3 || len(snap.Items) != 5 || snap.State.Total != 25 {
		t.Fatalf("page %d, %d items, total %d", snap.State.Page, len(snap.Items), snap.State.Total)
	}
	if got := snap.State.Filters["active"]; got != listquery.Flag(true) {
		t.Errorf("active filter = %v", got)
	}
}

func TestLoadPage_ClampsPastEnd(t *testing.T) {
	var calls atomic.Int32
	l := newTestList(t, sampleClients(5), &calls)

	snap, err := loadPage(context.Background(), l, nil, 9)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State.Page != 1 {
		t.Errorf("page = %d, want 1", snap.State.Page)
	}
}

func TestLoadPage_BadFilter(t *testing.T) {
	var calls atomic.Int32
	l := newTestList(t, sampleClients(5), &calls)

	if _, err := loadPage(context.Background(), l, []string{"monthly_fee=1"}, 1); err == nil {
		t.Fatal("expected an error for a non-filterable field")
	}
	if calls.Load() != 0 {
		t.Errorf("source queried %d times before the filter was rejected", calls.Load())
	}
}

func TestClientList_RefreshBypassesCache(t *testing.T) {
	var calls atomic.Int32
	l := newTestList(t, sampleClients(5), &calls)
	ctx := context.Background()

	if _, err := l.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("source calls after two fetches = %d, want 1 (cached)", got)
	}
	if _, err := l.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("source calls after refresh = %d, want 2", got)
	}
}

func TestNewClientList_RejectsUnsortableField(t *testing.T) {
	if _, err := newClientList(newHealthClient(), 10, "-search"); err == nil || !strings.Contains(err.Error(), "not sortable") {
		t.Fatalf("err = %v, want not sortable", err)
	}
	l, err := newClientList(newHealthClient(), 10, "-monthly_fee")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if s := l.Snapshot().State.Sort; s.String() != "-monthly_fee" {
		t.Errorf("sort = %v", s)
	}
}

func TestWatchLoop_Debounces(t *testing.T) {
	defer goleak.VerifyNone(t)

	changes := make(chan []byte, 8)
	reconnects := make(chan struct{}, 1)
	refreshed := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, changes, reconnects, 30*time.Millisecond, func() error {
			refreshed <- struct{}{}
			return nil
		})
	}()

	for range 5 {
		changes <- []byte(`{}`)
	}
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after a burst of changes")
	}
	select {
	case <-refreshed:
		t.Fatal("a burst should cause a single refresh")
	case <-time.After(100 * time.Millisecond):
	}

	reconnects <- struct{}{}
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after reconnect")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchLoop returned %v", err)
	}
}

func TestWatchLoop_StopsWhenChannelCloses(t *testing.T) {
	changes := make(chan []byte)
	close(changes)
	err := watchLoop(context.Background(), changes, nil, time.Millisecond, func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}
}

func TestWatchPoll_RejectsZeroInterval(t *testing.T) {
	if err := watchPoll(context.Background(), 0, func() error { return nil }); err == nil {
		t.Fatal("expected an error")
	}
}
