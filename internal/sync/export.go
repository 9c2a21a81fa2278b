package sync

import (
	"context"
	"fmt"
	"path"

	"golang.org/x/text/language"

	"github.com/alfredjeanlab/ledgerdesk/internal/export"
	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

// ExportFile is the name of each tenant's export within its directory.
const ExportFile = "clientes.csv"

// File is one exported document, named by a slash-separated relative path.
type File struct {
	Name string
	Data []byte
}

// ExportTenant renders every client of tenant as a CSV spreadsheet for tag,
// ordered by name with the list view's collation.
func ExportTenant(ctx context.Context, s store.Store, tenant string, tag language.Tag) ([]byte, error) {
	clients, _, err := s.ListClients(ctx, model.ClientFilter{TenantID: tenant, Sort: model.FieldName})
	if err != nil {
		return nil, fmt.Errorf("list clients of %s: %w", tenant, err)
	}
	if f, ok := model.ClientFields().Field(model.FieldName); ok {
		clients = listquery.StableSort(clients, listquery.KeyOrder[*model.Client]{Field: f})
	}
	data, err := export.ClientTable(tag).Encode(clients)
	if err != nil {
		return nil, fmt.Errorf("encode clients of %s: %w", tenant, err)
	}
	return data, nil
}

// ExportAll exports every tenant, one file per tenant at
// "<tenant>/clientes.csv", in tenant order.
func ExportAll(ctx context.Context, s store.Store, tag language.Tag) ([]File, error) {
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	files := make([]File, 0, len(tenants))
	for _, tenant := range tenants {
		data, err := ExportTenant(ctx, s, tenant, tag)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: path.Join(tenant, ExportFile), Data: data})
	}
	return files, nil
}
