package sync

import (
	"context"
	"database/sql"
	"sort"
	gosync "sync"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

// mockStore is a minimal in-memory store for sync tests.
type mockStore struct {
	mu      gosync.Mutex
	clients []*model.Client

	// listErr, when non-nil, is returned by ListClients.
	listErr error
}

func newMockStore(clients ...*model.Client) *mockStore {
	return &mockStore{clients: clients}
}

func (m *mockStore) CreateClient(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = append(m.clients, c)
	return nil
}

func (m *mockStore) GetClient(_ context.Context, tenantID, id string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.TenantID == tenantID && c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

// ListClients returns the tenant's clients in insertion order; the sort
// parameter is ignored.
func (m *mockStore) ListClients(_ context.Context, filter model.ClientFilter) ([]*model.Client, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []*model.Client
	for _, c := range m.clients {
		if c.TenantID == filter.TenantID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *mockStore) UpdateClient(context.Context, *model.Client) error { return nil }

func (m *mockStore) DeleteClient(_ context.Context, _, _ string) error { return sql.ErrNoRows }

func (m *mockStore) ListTenants(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var tenants []string
	for _, c := range m.clients {
		if !seen[c.TenantID] {
			seen[c.TenantID] = true
			tenants = append(tenants, c.TenantID)
		}
	}
	sort.Strings(tenants)
	return tenants, nil
}

func (m *mockStore) RecordEvent(context.Context, *model.Event) error { return nil }

func (m *mockStore) GetEvents(context.Context, string, string) ([]*model.Event, error) {
	return nil, nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

func client(tenant, id, name string) *model.Client {
	return &model.Client{
		ID:         id,
		TenantID:   tenant,
		Name:       name,
		CNPJ:       "11222333000181",
		TaxRegime:  model.RegimeSimples,
		Active:     true,
		MonthlyFee: 45000,
	}
}
