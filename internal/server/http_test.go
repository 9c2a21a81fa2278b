package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/alfredjeanlab/ledgerdesk/internal/events"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

// mockStore is an in-memory store.Store keyed by tenant and client ID.
type mockStore struct {
	mu      sync.Mutex
	clients map[string]map[string]*model.Client
	events  []*model.Event

	// listErr, when non-nil, is returned by ListClients.
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{clients: make(map[string]map[string]*model.Client)}
}

func (m *mockStore) CreateClient(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.clients[c.TenantID]
	if byID == nil {
		byID = make(map[string]*model.Client)
		m.clients[c.TenantID] = byID
	}
	for _, other := range byID {
		if other.CNPJ == c.CNPJ {
			return store.ErrConflict
		}
	}
	clone := *c
	byID[c.ID] = &clone
	return nil
}

func (m *mockStore) GetClient(_ context.Context, tenantID, id string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[tenantID][id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (m *mockStore) ListClients(_ context.Context, filter model.ClientFilter) ([]*model.Client, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	var result []*model.Client
	for _, c := range m.clients[filter.TenantID] {
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		if len(filter.TaxRegime) > 0 && !containsRegime(filter.TaxRegime, c.TaxRegime) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if v, ok := filter.Contains[model.FieldEmail]; ok && !strings.Contains(c.Email, v) {
			continue
		}
		clone := *c
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	result = orderClients(result, filter.Sort)

	total := len(result)
	if filter.Offset >= len(result) {
		return nil, total, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (m *mockStore) UpdateClient(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.TenantID][c.ID]; !ok {
		return nil
	}
	clone := *c
	m.clients[c.TenantID][c.ID] = &clone
	return nil
}

func (m *mockStore) DeleteClient(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[tenantID][id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.clients[tenantID], id)
	return nil
}

func (m *mockStore) ListTenants(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tenants []string
	for t, byID := range m.clients {
		if len(byID) > 0 {
			tenants = append(tenants, t)
		}
	}
	return tenants, nil
}

func (m *mockStore) RecordEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return nil
}

func (m *mockStore) GetEvents(_ context.Context, tenantID, clientID string) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Event
	for _, e := range m.events {
		if e.TenantID == tenantID && e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) recorded() []*model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Event(nil), m.events...)
}

func containsRegime(rs []model.TaxRegime, r model.TaxRegime) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// recordingPublisher captures the subjects published to.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

var _ events.Publisher = (*recordingPublisher)(nil)

// newTestServer returns a server with no auth token and a discarded log.
func newTestServer() (*LedgerServer, *mockStore, http.Handler) {
	ms := newMockStore()
	s := New(ms, &events.NoopPublisher{}, WithLogger(slog.New(slog.DiscardHandler)))
	return s, ms, s.NewHTTPHandler("")
}

// doJSON performs a request as tenant firm-1 with an optional JSON body.
func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doAs(t, handler, "firm-1", method, path, body)
}

// doAs performs a request as tenant with an optional JSON body. An empty
// tenant sends no tenant header.
func doAs(t *testing.T, handler http.Handler, tenant, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tenant != "" {
		req.Header.Set(TenantHeader, tenant)
	}
	req.Header.Set("X-Actor", "ana")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// requireStatus asserts the recorder has the expected HTTP status code.
func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected status %d, got %d; body: %s", code, rec.Code, rec.Body.String())
	}
}

// testEnvelope mirrors response with a typed payload.
type testEnvelope[T any] struct {
	Success bool               `json:"success"`
	Data    T                  `json:"data"`
	Error   string             `json:"error"`
	Fields  []model.FieldError `json:"fields"`
}

// decodeEnvelope decodes the recorder's enveloped body.
func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

type listBody struct {
	Items []*model.Client `json:"items"`
	Total int             `json:"total"`
}

func newClientBody(name, cnpj string) map[string]any {
	return map[string]any{
		"name":        name,
		"cnpj":        cnpj,
		"tax_regime":  "simples",
		"monthly_fee": 45000,
	}
}

// createClient creates a client through the API and returns it.
func createClient(t *testing.T, handler http.Handler, name, cnpj string) *model.Client {
	t.Helper()
	rec := doJSON(t, handler, "POST", "/v1/clients", newClientBody(name, cnpj))
	requireStatus(t, rec, http.StatusCreated)
	return decodeEnvelope[*model.Client](t, rec).Data
}

func TestHealth_NoTenantRequired(t *testing.T) {
	_, _, h := newTestServer()
	rec := doAs(t, h, "", "GET", "/v1/health", nil)
	requireStatus(t, rec, http.StatusOK)
	env := decodeEnvelope[map[string]string](t, rec)
	if !env.Success || env.Data["status"] != "ok" {
		t.Fatalf("unexpected body: %+v", env)
	}
}

func TestTenantMiddleware_MissingHeader(t *testing.T) {
	_, _, h := newTestServer()
	rec := doAs(t, h, "", "GET", "/v1/clients", nil)
	requireStatus(t, rec, http.StatusBadRequest)
	env := decodeEnvelope[any](t, rec)
	if env.Success || env.Error != "missing X-Tenant-ID header" {
		t.Fatalf("unexpected body: %+v", env)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := New(newMockStore(), &events.NoopPublisher{}, WithLogger(slog.New(slog.DiscardHandler)))
	h := s.NewHTTPHandler("s3cret")

	for _, tc := range []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"NoHeader", "/v1/clients", "", http.StatusUnauthorized},
		{"WrongScheme", "/v1/clients", "Basic s3cret", http.StatusUnauthorized},
		{"WrongToken", "/v1/clients", "Bearer nope", http.StatusUnauthorized},
		{"ValidToken", "/v1/clients", "Bearer s3cret", http.StatusOK},
		{"HealthExempt", "/v1/health", "", http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			req.Header.Set(TenantHeader, "firm-1")
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			requireStatus(t, rec, tc.want)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	_, _, h := newTestServer()
	incoming := uuid.NewString()

	for _, tc := range []struct {
		name   string
		header string
		reuse  bool
	}{
		{"Generated", "", false},
		{"Reused", incoming, true},
		{"MalformedReplaced", "not-a-uuid", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/health", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("request ID %q is not a UUID", got)
			}
			if tc.reuse != (got == tc.header) {
				t.Fatalf("request ID = %q, incoming %q, reuse=%v", got, tc.header, tc.reuse)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(slog.New(slog.DiscardHandler), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/clients", nil))
	requireStatus(t, rec, http.StatusInternalServerError)
	if env := decodeEnvelope[any](t, rec); env.Error != "internal server error" {
		t.Fatalf("error = %q", env.Error)
	}
}

func TestLoggingMiddleware_ServerErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := LoggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/clients", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "ERROR" || entry["status"] != float64(503) || entry["path"] != "/v1/clients" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestCreateClient(t *testing.T) {
	ms := newMockStore()
	pub := &recordingPublisher{}
	s := New(ms, pub, WithLogger(slog.New(slog.DiscardHandler)))
	h := s.NewHTTPHandler("")

	body := newClientBody("  Padaria Pão Quente Ltda ", "11.222.333/0001-81")
	body["cnae"] = "1091-1/02"
	rec := doJSON(t, h, "POST", "/v1/clients", body)
	requireStatus(t, rec, http.StatusCreated)

	env := decodeEnvelope[*model.Client](t, rec)
	c := env.Data
	if !env.Success || c == nil {
		t.Fatalf("unexpected body: %+v", env)
	}
	if !strings.HasPrefix(c.ID, "cl-") {
		t.Errorf("id = %q, want cl- prefix", c.ID)
	}
	if c.Name != "Padaria Pão Quente Ltda" || c.CNPJ != "11222333000181" || c.CNAE != "1091102" {
		t.Errorf("not normalized: %+v", c)
	}
	if !c.Active || c.TenantID != "firm-1" {
		t.Errorf("active=%v tenant=%q", c.Active, c.TenantID)
	}

	evts := ms.recorded()
	if len(evts) != 1 || evts[0].Topic != events.TopicClientCreated || evts[0].Actor != "ana" {
		t.Fatalf("events = %+v", evts)
	}
	if diff := cmp.Diff([]string{"ledger.firm-1.client.created"}, pub.published()); diff != "" {
		t.Errorf("published (-want +got):\n%s", diff)
	}
}

func TestCreateClient_ValidationFields(t *testing.T) {
	_, ms, h := newTestServer()
	rec := doJSON(t, h, "POST", "/v1/clients", map[string]any{
		"cnpj":       "11.222.333/0001-00",
		"tax_regime": "simples",
	})
	requireStatus(t, rec, http.StatusBadRequest)

	env := decodeEnvelope[any](t, rec)
	fields := map[string]bool{}
	for _, f := range env.Fields {
		fields[f.Field] = true
	}
	if !fields["name"] || !fields["cnpj"] {
		t.Fatalf("fields = %+v", env.Fields)
	}
	if len(ms.recorded()) != 0 {
		t.Fatal("no event expected for a rejected create")
	}
}

func TestCreateClient_InvalidJSON(t *testing.T) {
	_, _, h := newTestServer()
	req := httptest.NewRequest("POST", "/v1/clients", strings.NewReader("{"))
	req.Header.Set(TenantHeader, "firm-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestCreateClient_DuplicateCNPJ(t *testing.T) {
	_, _, h := newTestServer()
	createClient(t, h, "Padaria Pão Quente", "11222333000181")

	rec := doJSON(t, h, "POST", "/v1/clients", newClientBody("Outra", "11.222.333/0001-81"))
	requireStatus(t, rec, http.StatusConflict)

	// The same company may be a client of another firm.
	rec = doAs(t, h, "firm-2", "POST", "/v1/clients", newClientBody("Outra", "11222333000181"))
	requireStatus(t, rec, http.StatusCreated)
}

func TestGetClient_TenantIsolation(t *testing.T) {
	_, _, h := newTestServer()
	c := createClient(t, h, "Padaria", "11222333000181")

	requireStatus(t, doJSON(t, h, "GET", "/v1/clients/"+c.ID, nil), http.StatusOK)

	rec := doAs(t, h, "firm-2", "GET", "/v1/clients/"+c.ID, nil)
	requireStatus(t, rec, http.StatusNotFound)
	if env := decodeEnvelope[any](t, rec); env.Error != "client not found" {
		t.Fatalf("error = %q", env.Error)
	}
}

func TestListClients_PageAndTotal(t *testing.T) {
	_, _, h := newTestServer()
	createClient(t, h, "Zeta Comércio", "11222333000181")
	createClient(t, h, "Ágape Serviços", "11444777000161")
	createClient(t, h, "Bela Vista", "33445566000186")

	rec := doJSON(t, h, "GET", "/v1/clients?sort=name&limit=2", nil)
	requireStatus(t, rec, http.StatusOK)
	page := decodeEnvelope[listBody](t, rec).Data
	if page.Total != 3 {
		t.Fatalf("total = %d, want 3", page.Total)
	}
	var got []string
	for _, c := range page.Items {
		got = append(got, c.Name)
	}
	if diff := cmp.Diff([]string{"Ágape Serviços", "Bela Vista"}, got); diff != "" {
		t.Errorf("page (-want +got):\n%s", diff)
	}

	rec = doJSON(t, h, "GET", "/v1/clients?sort=-name&limit=2&offset=2", nil)
	requireStatus(t, rec, http.StatusOK)
	page = decodeEnvelope[listBody](t, rec).Data
	if page.Total != 3 || len(page.Items) != 1 || page.Items[0].Name != "Ágape Serviços" {
		t.Fatalf("last page = %+v", page)
	}
}

func TestListClients_EmptyItemsNotNull(t *testing.T) {
	_, _, h := newTestServer()
	rec := doJSON(t, h, "GET", "/v1/clients", nil)
	requireStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty items array, got %s", rec.Body.String())
	}
}

func TestListClients_StoreFailure(t *testing.T) {
	_, ms, h := newTestServer()
	ms.listErr = context.DeadlineExceeded
	requireStatus(t, doJSON(t, h, "GET", "/v1/clients", nil), http.StatusInternalServerError)
}

func TestListClients_BadQuery(t *testing.T) {
	_, _, h := newTestServer()
	for _, tc := range []struct {
		query string
		want  string
	}{
		{"sort=colour", `cannot sort by "colour"`},
		{"sort=search", `cannot sort by "search"`},
		{"limit=-1", "limit must be a non-negative integer"},
		{"offset=x", "offset must be a non-negative integer"},
		{"tax_regime=simples,lucro", `unknown tax regime "lucro"`},
		{"active=maybe", "active must be true or false"},
		{"colour=red", `unknown filter "colour"`},
	} {
		t.Run(tc.query, func(t *testing.T) {
			rec := doJSON(t, h, "GET", "/v1/clients?"+tc.query, nil)
			requireStatus(t, rec, http.StatusBadRequest)
			if env := decodeEnvelope[any](t, rec); env.Error != tc.want {
				t.Fatalf("error = %q, want %q", env.Error, tc.want)
			}
		})
	}
}

func TestParseListQuery(t *testing.T) {
	q := map[string][]string{
		"sort":       {"-monthly_fee"},
		"limit":      {"10"},
		"offset":     {"30"},
		"tax_regime": {"simples, mei"},
		"active":     {"false"},
		"search":     {" pão "},
		"cnae":       {"6920"},
		"email":      {"@acme"},
		"name":       {""},
	}
	got, err := parseListQuery(q, nil)
	if err != nil {
		t.Fatalf("parseListQuery: %v", err)
	}
	inactive := false
	want := model.ClientFilter{
		Sort:      "-monthly_fee",
		Limit:     10,
		Offset:    30,
		TaxRegime: []model.TaxRegime{model.RegimeSimples, model.RegimeMEI},
		Active:    &inactive,
		Search:    "pão",
		CNAE:      "6920",
		Contains:  map[string]string{"email": "@acme"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter (-want +got):\n%s", diff)
	}
}

func TestUpdateClient(t *testing.T) {
	_, ms, h := newTestServer()
	c := createClient(t, h, "Padaria", "11222333000181")

	rec := doJSON(t, h, "PATCH", "/v1/clients/"+c.ID, map[string]any{"name": "Padaria Nova", "active": false})
	requireStatus(t, rec, http.StatusOK)
	got := decodeEnvelope[*model.Client](t, rec).Data
	if got.Name != "Padaria Nova" || got.Active {
		t.Fatalf("not updated: %+v", got)
	}

	evts := ms.recorded()
	if len(evts) != 2 || evts[1].Topic != events.TopicClientUpdated {
		t.Fatalf("events = %+v", evts)
	}
	var payload events.ClientUpdated
	if err := json.Unmarshal(evts[1].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Padaria Nova", "active": false}, payload.Changes); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
}

func TestUpdateClient_NoChangeNoEvent(t *testing.T) {
	_, ms, h := newTestServer()
	c := createClient(t, h, "Padaria", "11222333000181")

	rec := doJSON(t, h, "PATCH", "/v1/clients/"+c.ID, map[string]any{"name": "Padaria"})
	requireStatus(t, rec, http.StatusOK)
	if n := len(ms.recorded()); n != 1 {
		t.Fatalf("expected only the create event, got %d", n)
	}
}

func TestUpdateClient_Errors(t *testing.T) {
	_, _, h := newTestServer()
	c := createClient(t, h, "Padaria", "11222333000181")

	requireStatus(t, doJSON(t, h, "PATCH", "/v1/clients/cl-missing", map[string]any{"name": "x"}), http.StatusNotFound)
	requireStatus(t, doJSON(t, h, "PATCH", "/v1/clients/"+c.ID, map[string]any{"email": "not-an-email"}), http.StatusBadRequest)
	requireStatus(t, doAs(t, h, "firm-2", "PATCH", "/v1/clients/"+c.ID, map[string]any{"name": "x"}), http.StatusNotFound)
}

func TestDeleteClient(t *testing.T) {
	ms := newMockStore()
	pub := &recordingPublisher{}
	s := New(ms, pub, WithLogger(slog.New(slog.DiscardHandler)))
	h := s.NewHTTPHandler("")
	c := createClient(t, h, "Padaria", "11222333000181")

	requireStatus(t, doJSON(t, h, "DELETE", "/v1/clients/"+c.ID, nil), http.StatusNoContent)
	requireStatus(t, doJSON(t, h, "DELETE", "/v1/clients/"+c.ID, nil), http.StatusNotFound)
	requireStatus(t, doJSON(t, h, "GET", "/v1/clients/"+c.ID, nil), http.StatusNotFound)

	want := []string{"ledger.firm-1.client.created", "ledger.firm-1.client.deleted"}
	if diff := cmp.Diff(want, pub.published()); diff != "" {
		t.Errorf("published (-want +got):\n%s", diff)
	}
}

func TestGetEvents(t *testing.T) {
	_, _, h := newTestServer()
	c := createClient(t, h, "Padaria", "11222333000181")
	doJSON(t, h, "PATCH", "/v1/clients/"+c.ID, map[string]any{"monthly_fee": 50000})

	rec := doJSON(t, h, "GET", "/v1/clients/"+c.ID+"/events", nil)
	requireStatus(t, rec, http.StatusOK)
	evts := decodeEnvelope[map[string][]*model.Event](t, rec).Data["events"]
	var topics []string
	for _, e := range evts {
		topics = append(topics, e.Topic)
	}
	if diff := cmp.Diff([]string{events.TopicClientCreated, events.TopicClientUpdated}, topics); diff != "" {
		t.Errorf("topics (-want +got):\n%s", diff)
	}

	rec = doAs(t, h, "firm-2", "GET", "/v1/clients/"+c.ID+"/events", nil)
	requireStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Fatalf("other tenant sees events: %s", rec.Body.String())
	}
}

func TestExportClients_CollatedPortugueseCSV(t *testing.T) {
	_, _, h := newTestServer()
	createClient(t, h, "Zeta Comércio", "11222333000181")
	createClient(t, h, "Ágape Serviços", "11444777000161")
	createClient(t, h, "Bela Vista", "33445566000186")

	rec := doJSON(t, h, "GET", "/v1/clients/export?sort=name", nil)
	requireStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="clientes-`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(rec.Body.String(), "\ufeff")))
	r.Comma = ';'
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	var names []string
	for _, rec := range records {
		names = append(names, rec[0])
	}
	want := []string{"Razão social", "Ágape Serviços", "Bela Vista", "Zeta Comércio"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestExportClients_Locale(t *testing.T) {
	_, _, h := newTestServer()
	createClient(t, h, "Padaria", "11222333000181")

	rec := doJSON(t, h, "GET", "/v1/clients/export?locale=en-US", nil)
	requireStatus(t, rec, http.StatusOK)
	if first, _, _ := strings.Cut(strings.TrimPrefix(rec.Body.String(), "\ufeff"), ","); first != "Legal name" {
		t.Fatalf("first header = %q", first)
	}

	rec = doJSON(t, h, "GET", "/v1/clients/export?locale=not%20a%20locale", nil)
	requireStatus(t, rec, http.StatusBadRequest)
}
