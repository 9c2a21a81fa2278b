package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// maxListLimit caps the page size a list request may ask for.
const maxListLimit = 500

// handleCreateClient handles POST /v1/clients.
func (s *LedgerServer) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var in createClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	client, err := s.createClient(r.Context(), tenantFrom(r.Context()), actorFrom(r), in)
	if err != nil {
		writeFailure(w, err, "client not found")
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// handleListClients handles GET /v1/clients.
func (s *LedgerServer) handleListClients(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListQuery(r.URL.Query(), nil)
	if err != nil {
		writeFailure(w, err, "")
		return
	}
	filter.TenantID = tenantFrom(r.Context())
	if filter.Limit == 0 {
		filter.Limit = listquery.DefaultPageSize
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	clients, total, err := s.store.ListClients(r.Context(), filter)
	if err != nil {
		s.logger.Error("list clients", "tenant", filter.TenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}

	// Ensure items is never null in JSON output.
	if clients == nil {
		clients = []*model.Client{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": clients,
		"total": total,
	})
}

// handleGetClient handles GET /v1/clients/{id}.
func (s *LedgerServer) handleGetClient(w http.ResponseWriter, r *http.Request) {
	client, err := s.store.GetClient(r.Context(), tenantFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err, "client not found")
		return
	}
	if client == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// handleUpdateClient handles PATCH /v1/clients/{id}.
func (s *LedgerServer) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var in updateClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	client, err := s.updateClient(r.Context(), tenantFrom(r.Context()), r.PathValue("id"), actorFrom(r), in)
	if err != nil {
		writeFailure(w, err, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// handleDeleteClient handles DELETE /v1/clients/{id}.
func (s *LedgerServer) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteClient(r.Context(), tenantFrom(r.Context()), r.PathValue("id"), actorFrom(r)); err != nil {
		writeFailure(w, err, "client not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetEvents handles GET /v1/clients/{id}/events.
func (s *LedgerServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.store.GetEvents(r.Context(), tenantFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get events")
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}

// filterParams are the query parameters that select clients. Text columns
// become substring filters.
var filterParams = map[string]bool{
	model.FieldSearch:    true,
	model.FieldTaxRegime: true,
	model.FieldCNAE:      true,
	model.FieldActive:    true,
	model.FieldName:      true,
	model.FieldTradeName: true,
	model.FieldEmail:     true,
	model.FieldCNPJ:      true,
}

// parseListQuery turns list query parameters into a filter. Parameters named
// in extra are accepted and left for the caller. Unknown parameters, unknown
// sort fields and malformed values are input errors.
func parseListQuery(q url.Values, extra map[string]bool) (model.ClientFilter, error) {
	var filter model.ClientFilter

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := strings.TrimSpace(q.Get(k))
		switch {
		case k == "sort":
			if err := checkSort(v); err != nil {
				return filter, err
			}
			filter.Sort = v
		case k == "limit" || k == "offset":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return filter, inputError(fmt.Sprintf("%s must be a non-negative integer", k))
			}
			if k == "limit" {
				filter.Limit = n
			} else {
				filter.Offset = n
			}
		case extra[k]:
		case !filterParams[k]:
			return filter, inputError(fmt.Sprintf("unknown filter %q", k))
		case v == "":
		case k == model.FieldSearch:
			filter.Search = v
		case k == model.FieldTaxRegime:
			for _, part := range strings.Split(v, ",") {
				regime := model.TaxRegime(strings.TrimSpace(part))
				if !regime.IsValid() {
					return filter, inputError(fmt.Sprintf("unknown tax regime %q", part))
				}
				filter.TaxRegime = append(filter.TaxRegime, regime)
			}
		case k == model.FieldCNAE:
			filter.CNAE = v
		case k == model.FieldActive:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return filter, inputError("active must be true or false")
			}
			filter.Active = &b
		default:
			if filter.Contains == nil {
				filter.Contains = map[string]string{}
			}
			filter.Contains[k] = v
		}
	}
	return filter, nil
}

// checkSort accepts "", "field" and "-field" for sortable client fields.
func checkSort(raw string) error {
	s := listquery.ParseSort(raw)
	if s == nil {
		return nil
	}
	f, ok := model.ClientFields().Field(s.Field)
	if !ok || !f.Sortable {
		return inputError(fmt.Sprintf("cannot sort by %q", s.Field))
	}
	return nil
}
