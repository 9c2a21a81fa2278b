package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// ErrConflict is returned when a write would duplicate a unique key, such as
// a second client with the same CNPJ in one tenant.
var ErrConflict = errors.New("conflict")

// Store defines the persistence interface for clients. Every read and write is
// scoped to a tenant.
type Store interface {
	// Client CRUD
	CreateClient(ctx context.Context, client *model.Client) error
	GetClient(ctx context.Context, tenantID, id string) (*model.Client, error)
	ListClients(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error) // returns clients, total count, error
	UpdateClient(ctx context.Context, client *model.Client) error
	DeleteClient(ctx context.Context, tenantID, id string) error

	// ListTenants returns every tenant that has at least one client.
	ListTenants(ctx context.Context) ([]string, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, tenantID, clientID string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
