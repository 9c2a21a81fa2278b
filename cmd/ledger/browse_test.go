package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

func sampleClients(n int) []*model.Client {
	out := make([]*model.Client, n)
	for i := range out {
		out[i] = &model.Client{
			ID:         fmt.Sprintf("cl-%02d", i),
			TenantID:   "firm-1",
			Name:       fmt.Sprintf("Cliente %02d", i),
			CNPJ:       "11222333000181",
			TaxRegime:  model.RegimeSimples,
			Active:     i%2 == 0,
			MonthlyFee: int64(1000 * i),
		}
	}
	return out
}

// pagedSource serves fixed items a page at a time and ignores filters.
func pagedSource(items []*model.Client) listquery.DataSource[*model.Client] {
	return listquery.DataSourceFunc[*model.Client](func(ctx context.Context, _ listquery.Scope, st listquery.QueryState) (listquery.FetchResult[*model.Client], error) {
		start := min(st.Offset(), len(items))
		end := min(start+st.PageSize, len(items))
		return listquery.FetchResult[*model.Client]{Items: items[start:end], Total: len(items)}, nil
	})
}

func newTestBrowse(t *testing.T, n int) (browseModel, *listquery.Controller[*model.Client]) {
	t.Helper()
	updates := make(chan listquery.Snapshot[*model.Client], 1)
	ctrl := listquery.New(pagedSource(sampleClients(n)), listquery.Scope{Tenant: "firm-1"}, model.ClientFields(),
		listquery.WithPageSize[*model.Client](10),
		listquery.WithServerSort[*model.Client](),
		listquery.WithServerFilter[*model.Client](),
		listquery.OnChange(latestSnapshot(updates)),
	)
	t.Cleanup(ctrl.Close)

	m := newBrowseModel(ctrl, updates, "firm-1")
	if msg := m.fetch()(); msg != nil {
		t.Fatalf("initial fetch returned %#v", msg)
	}
	return step(t, m, receive(t, updates)), ctrl
}

func receive(t *testing.T, ch <-chan listquery.Snapshot[*model.Client]) tea.Msg {
	t.Helper()
	select {
	case s := <-ch:
		return snapshotMsg(s)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return nil
	}
}

func step(t *testing.T, m browseModel, msg tea.Msg) browseModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(browseModel)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func settle(t *testing.T, ctrl *listquery.Controller[*model.Client]) listquery.Snapshot[*model.Client] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return ctrl.Snapshot()
}

func TestBrowse_RendersFirstPage(t *testing.T) {
	m, _ := newTestBrowse(t, 25)

	if got := len(m.table.Rows()); got != 10 {
		t.Fatalf("rows = %d, want 10", got)
	}
	if got := m.table.Rows()[0][0]; got != "Cliente 00" {
		t.Errorf("first row name = %q", got)
	}
	view := m.View()
	for _, want := range []string{"Clients of firm-1", "page 1/3", "10 of 25 clients"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestBrowse_Paging(t *testing.T) {
	m, ctrl := newTestBrowse(t, 25)

	m = step(t, m, key("n"))
	if snap := settle(t, ctrl); snap.State.Page != 2 {
		t.Fatalf("page after n = %d, want 2", snap.State.Page)
	}
	m = step(t, m, snapshotMsg(ctrl.Snapshot()))

	m = step(t, m, key("G"))
	if snap := settle(t, ctrl); snap.State.Page != 3 || len(snap.Items) != 5 {
		t.Fatalf("after G: page %d with %d items, want page 3 with 5", snap.State.Page, len(snap.Items))
	}
	m = step(t, m, snapshotMsg(ctrl.Snapshot()))
	if got := len(m.table.Rows()); got != 5 {
		t.Errorf("rows on last page = %d, want 5", got)
	}

	// Past the end clamps to the last page without a fetch.
	gen := ctrl.Snapshot().Generation
	m = step(t, m, key("n"))
	if snap := settle(t, ctrl); snap.State.Page != 3 || snap.Generation != gen {
		t.Errorf("n on last page changed state: page %d gen %d->%d", snap.State.Page, gen, snap.Generation)
	}

	step(t, m, key("g"))
	if snap := settle(t, ctrl); snap.State.Page != 1 {
		t.Errorf("page after g = %d, want 1", snap.State.Page)
	}
}

func TestBrowse_Search(t *testing.T) {
	m, ctrl := newTestBrowse(t, 25)

	m = step(t, m, key("/"))
	if !m.searching {
		t.Fatal("expected search input to be focused")
	}
	m = step(t, m, key("padaria"))
	// Keys go to the input, not the list.
	if ctrl.Snapshot().State.Page != 1 {
		t.Fatal("typing in the search box must not page")
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.searching {
		t.Error("enter should leave the search box")
	}
	snap := settle(t, ctrl)
	if got := snap.State.Filters[model.FieldSearch]; got != listquery.Text("padaria") {
		t.Fatalf("search filter = %v", got)
	}

	// Clearing the box clears the filter.
	m = step(t, m, key("/"))
	for range len("padaria") {
		m = step(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := settle(t, ctrl).State.Filters[model.FieldSearch]; ok {
		t.Error("empty search should clear the filter")
	}
}

func TestBrowse_SearchEscapeKeepsFilter(t *testing.T) {
	m, ctrl := newTestBrowse(t, 5)

	m = step(t, m, key("/"))
	m = step(t, m, key("x"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searching {
		t.Error("esc should leave the search box")
	}
	if len(settle(t, ctrl).State.Filters) != 0 {
		t.Error("esc must not apply the search")
	}
}

func TestBrowse_SortKeys(t *testing.T) {
	m, ctrl := newTestBrowse(t, 5)

	m = step(t, m, key("s"))
	if s := settle(t, ctrl).State.Sort; s == nil || s.Field != model.FieldName || s.Direction != listquery.Asc {
		t.Fatalf("sort after s = %v, want name asc", s)
	}
	m = step(t, m, key("S"))
	if s := settle(t, ctrl).State.Sort; s.String() != "-name" {
		t.Fatalf("sort after S = %v, want -name", s)
	}
	step(t, m, key("s"))
	if s := settle(t, ctrl).State.Sort; s.String() != model.FieldCNPJ {
		t.Fatalf("sort after second s = %v, want cnpj", s)
	}
}

func TestBrowse_FilterCycles(t *testing.T) {
	m, ctrl := newTestBrowse(t, 5)

	for i, want := range model.TaxRegimes {
		m = step(t, m, key("t"))
		if got := settle(t, ctrl).State.Filters[model.FieldTaxRegime]; got != listquery.Enum(string(want)) {
			t.Fatalf("press %d: regime filter = %v, want %s", i+1, got, want)
		}
	}
	m = step(t, m, key("t"))
	if _, ok := settle(t, ctrl).State.Filters[model.FieldTaxRegime]; ok {
		t.Fatal("regime filter should clear after a full cycle")
	}

	for _, want := range []listquery.FilterValue{listquery.Flag(true), listquery.Flag(false), listquery.Null()} {
		m = step(t, m, key("a"))
		got, ok := settle(t, ctrl).State.Filters[model.FieldActive]
		if want.IsNull() {
			if ok {
				t.Fatalf("active filter = %v, want none", got)
			}
			continue
		}
		if got != want {
			t.Fatalf("active filter = %v, want %v", got, want)
		}
	}
}

func TestBrowse_ErrorShowsRetryHint(t *testing.T) {
	m, _ := newTestBrowse(t, 5)

	m = step(t, m, errMsg{listquery.NetworkError(errors.New("connection refused"))})
	if view := m.View(); !strings.Contains(view, "press r to retry") {
		t.Errorf("view missing retry hint:\n%s", view)
	}

	m = step(t, m, errMsg{errors.New("plain")})
	if view := m.View(); strings.Contains(view, "press r to retry") {
		t.Errorf("plain errors should not offer a retry:\n%s", view)
	}
}

func TestBrowse_Quit(t *testing.T) {
	m, _ := newTestBrowse(t, 1)

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestLatestSnapshot_KeepsNewest(t *testing.T) {
	ch := make(chan listquery.Snapshot[*model.Client], 1)
	send := latestSnapshot(ch)
	for gen := uint64(1); gen <= 3; gen++ {
		send(listquery.Snapshot[*model.Client]{Generation: gen})
	}
	if got := (<-ch).Generation; got != 3 {
		t.Errorf("generation = %d, want 3", got)
	}
}
