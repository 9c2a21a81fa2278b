package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// TenantHeader carries the tenant every request is scoped to.
const TenantHeader = "X-Tenant-ID"

// HTTPClient implements LedgerClient using the ledger HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	tenant     string
	actor      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request; tenant is sent as X-Tenant-ID.
func NewHTTPClient(baseURL, token, tenant string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		tenant:     tenant,
		httpClient: &http.Client{},
	}
}

// WithCredentials returns a copy of c that authenticates as token on behalf
// of tenant. Empty arguments keep c's values.
func (c *HTTPClient) WithCredentials(tenant, token string) *HTTPClient {
	cp := *c
	if tenant != "" {
		cp.tenant = tenant
	}
	if token != "" {
		cp.token = token
	}
	return &cp
}

// WithActor returns a copy of c that names actor as the author of changes.
func (c *HTTPClient) WithActor(actor string) *HTTPClient {
	cp := *c
	cp.actor = actor
	return &cp
}

// Tenant returns the tenant requests are scoped to.
func (c *HTTPClient) Tenant() string { return c.tenant }

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Client CRUD ---

func (c *HTTPClient) CreateClient(ctx context.Context, req *CreateClientRequest) (*model.Client, error) {
	var client model.Client
	if err := c.doJSON(ctx, http.MethodPost, "/v1/clients", req, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *HTTPClient) GetClient(ctx context.Context, id string) (*model.Client, error) {
	var client model.Client
	if err := c.doJSON(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(id), nil, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *HTTPClient) ListClients(ctx context.Context, req *ListClientsRequest) (*ListClientsResponse, error) {
	body, err := c.do(ctx, http.MethodGet, listPath("/v1/clients", req, nil), nil)
	if err != nil {
		return nil, err
	}
	page, err := decodePage[*model.Client](body)
	if err != nil {
		return nil, err
	}
	return &ListClientsResponse{Clients: page.Items, Total: page.Total}, nil
}

func (c *HTTPClient) UpdateClient(ctx context.Context, id string, req *UpdateClientRequest) (*model.Client, error) {
	var client model.Client
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/clients/"+url.PathEscape(id), req, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *HTTPClient) DeleteClient(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/clients/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ExportClients(ctx context.Context, req *ListClientsRequest, locale string) ([]byte, error) {
	extra := url.Values{}
	if locale != "" {
		extra.Set("locale", locale)
	}
	return c.do(ctx, http.MethodGet, listPath("/v1/clients/export", req, extra), nil)
}

// --- Events ---

func (c *HTTPClient) GetEvents(ctx context.Context, clientID string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(clientID)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// Fields lists per-field validation failures, if the server sent any.
	Fields []model.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// listPath renders a list request as a path with query string. Filter keys
// are encoded in sorted order so equal requests produce equal URLs.
func listPath(base string, req *ListClientsRequest, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if req != nil {
		for k, v := range req.Filters {
			if v != "" {
				q.Set(k, v)
			}
		}
		if req.Sort != "" {
			q.Set("sort", req.Sort)
		}
		if req.Limit > 0 {
			q.Set("limit", strconv.Itoa(req.Limit))
		}
		if req.Offset > 0 {
			q.Set("offset", strconv.Itoa(req.Offset))
		}
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// envelope is the response wrapper the server puts around every JSON body.
type envelope struct {
	Success *bool              `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   string             `json:"error"`
	Fields  []model.FieldError `json:"fields"`
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// JSON response, unwrapping the {"success":..,"data":..} envelope when
// present. If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	respBody, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	data := respBody
	var env envelope
	if json.Unmarshal(respBody, &env) == nil && env.Success != nil {
		if !*env.Success {
			return &APIError{StatusCode: http.StatusOK, Message: env.Error, Fields: env.Fields}
		}
		data = env.Data
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do performs an HTTP request with optional JSON body and returns the raw
// response body. Statuses of 400 and above become *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenant != "" {
		req.Header.Set(TenantHeader, c.tenant)
	}
	if c.actor != "" {
		req.Header.Set("X-Actor", c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env envelope
		if json.Unmarshal(respBody, &env) == nil && env.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error, Fields: env.Fields}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}
