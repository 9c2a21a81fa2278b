// Package client provides a transport-agnostic interface for the ledger
// service, an HTTP/JSON implementation that talks to its REST API, and
// ClientSource, which serves client pages to a listquery.Controller.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// LedgerClient is the interface the ledger CLI uses to communicate with the
// server. It is implemented by HTTPClient.
type LedgerClient interface {
	// Client CRUD
	CreateClient(ctx context.Context, req *CreateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, req *ListClientsRequest) (*ListClientsResponse, error)
	UpdateClient(ctx context.Context, id string, req *UpdateClientRequest) (*model.Client, error)
	DeleteClient(ctx context.Context, id string) error

	// ExportClients returns the CSV rendering of one page window.
	ExportClients(ctx context.Context, req *ListClientsRequest, locale string) ([]byte, error)

	// Events
	GetEvents(ctx context.Context, clientID string) ([]*model.Event, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateClientRequest holds parameters for registering a client company.
type CreateClientRequest struct {
	Name         string          `json:"name"`
	TradeName    string          `json:"trade_name,omitempty"`
	CNPJ         string          `json:"cnpj"`
	CNAE         string          `json:"cnae,omitempty"`
	TaxRegime    model.TaxRegime `json:"tax_regime"`
	Active       *bool           `json:"active,omitempty"` // defaults to true
	Email        string          `json:"email,omitempty"`
	MonthlyFee   int64           `json:"monthly_fee"`
	LastFilingAt *time.Time      `json:"last_filing_at,omitempty"`
}

// ListClientsRequest holds parameters for listing clients. Filters maps a
// field name (search, tax_regime, cnae, active, name, trade_name, email,
// cnpj) to its wire value.
type ListClientsRequest struct {
	Filters map[string]string `json:"filters,omitempty"`
	Sort    string            `json:"sort,omitempty"` // "field" or "-field"
	Limit   int               `json:"limit,omitempty"`
	Offset  int               `json:"offset,omitempty"`
}

// ListClientsResponse is the response from ListClients.
type ListClientsResponse struct {
	Clients []*model.Client `json:"items"`
	Total   int             `json:"total"`
}

// UpdateClientRequest holds optional parameters for updating a client.
// Nil pointer fields mean "don't change".
type UpdateClientRequest struct {
	Name         *string          `json:"name,omitempty"`
	TradeName    *string          `json:"trade_name,omitempty"`
	CNAE         *string          `json:"cnae,omitempty"`
	TaxRegime    *model.TaxRegime `json:"tax_regime,omitempty"`
	Active       *bool            `json:"active,omitempty"`
	Email        *string          `json:"email,omitempty"`
	MonthlyFee   *int64           `json:"monthly_fee,omitempty"`
	LastFilingAt *time.Time       `json:"last_filing_at,omitempty"`
}
