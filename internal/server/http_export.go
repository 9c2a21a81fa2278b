package server

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/alfredjeanlab/ledgerdesk/internal/export"
	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// handleExportClients handles GET /v1/clients/export. It accepts the list
// parameters plus "locale" and streams the selected window as CSV. Without a
// limit every matching client is exported.
func (s *LedgerServer) handleExportClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseListQuery(q, map[string]bool{"locale": true})
	if err != nil {
		writeFailure(w, err, "")
		return
	}
	filter.TenantID = tenantFrom(r.Context())

	tag := s.exportLocale
	if raw := q.Get("locale"); raw != "" {
		if tag, err = language.Parse(raw); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown locale %q", raw))
			return
		}
	}

	clients, _, err := s.store.ListClients(r.Context(), filter)
	if err != nil {
		s.logger.Error("export clients", "tenant", filter.TenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}

	name := export.Filename("clientes", time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.ClientTable(tag).Write(w, orderClients(clients, filter.Sort)); err != nil {
		s.logger.Warn("writing export", "tenant", filter.TenantID, "error", err)
	}
}

// orderClients re-sorts a page with the client comparators, so names follow
// the collation of the list view rather than the database's byte order.
func orderClients(clients []*model.Client, rawSort string) []*model.Client {
	s := listquery.ParseSort(rawSort)
	if s == nil {
		return clients
	}
	f, ok := model.ClientFields().Field(s.Field)
	if !ok {
		return clients
	}
	return listquery.StableSort(clients, listquery.KeyOrder[*model.Client]{Field: f, Direction: s.Direction})
}
