package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// ClientSource serves client pages to a listquery.Controller over HTTP. The
// server filters and sorts, so controllers using it should be built with
// WithServerSort and WithServerFilter.
type ClientSource struct {
	client *HTTPClient
}

// NewClientSource returns a data source backed by c.
func NewClientSource(c *HTTPClient) *ClientSource {
	return &ClientSource{client: c}
}

// Query implements listquery.DataSource. The scope's tenant and token
// override the client's defaults for this request.
func (s *ClientSource) Query(ctx context.Context, scope listquery.Scope, state listquery.QueryState) (listquery.FetchResult[*model.Client], error) {
	c := s.client.WithCredentials(scope.Tenant, scope.Token)
	body, err := c.do(ctx, http.MethodGet, listPath("/v1/clients", ListRequest(state), nil), nil)
	if err != nil {
		return listquery.FetchResult[*model.Client]{}, sourceError(err)
	}
	page, err := decodePage[*model.Client](body)
	if err != nil {
		return listquery.FetchResult[*model.Client]{}, sourceError(err)
	}
	return page, nil
}

// ListRequest renders a query state as list parameters. Null filters are
// omitted.
func ListRequest(state listquery.QueryState) *ListClientsRequest {
	req := &ListClientsRequest{
		Sort:   state.Sort.String(),
		Limit:  state.PageSize,
		Offset: state.Offset(),
	}
	for _, k := range state.FilterFields() {
		v := state.Filters[k]
		if v.IsNull() {
			continue
		}
		if req.Filters == nil {
			req.Filters = map[string]string{}
		}
		req.Filters[k] = v.String()
	}
	return req
}

// sourceError maps a transport or API failure to the controller's error
// kinds: API errors keep their status, everything else is a network error.
func sourceError(err error) error {
	var le *listquery.Error
	if errors.As(err, &le) {
		return le
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return listquery.ServerError(apiErr.StatusCode, apiErr.Message)
	}
	return listquery.NetworkError(err)
}

// pageShape identifies which of the accepted list response layouts a body
// uses.
type pageShape int

const (
	shapeUnknown pageShape = iota
	shapeEnvelope
	shapePage
	shapeArray
)

// rawPage holds every top-level key any accepted layout may carry.
type rawPage struct {
	Success *bool              `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   string             `json:"error"`
	Fields  []model.FieldError `json:"fields"`
	Items   json.RawMessage    `json:"items"`
	Total   *int               `json:"total"`
}

func classify(body []byte) (pageShape, rawPage, error) {
	var rp rawPage
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return shapeUnknown, rp, nil
	}
	switch trimmed[0] {
	case '[':
		return shapeArray, rp, nil
	case '{':
		if err := json.Unmarshal(trimmed, &rp); err != nil {
			return shapeUnknown, rp, err
		}
		if rp.Success != nil {
			return shapeEnvelope, rp, nil
		}
		if rp.Items != nil {
			return shapePage, rp, nil
		}
	}
	return shapeUnknown, rp, nil
}

// decodePage normalizes the accepted list layouts into one FetchResult:
//
//	{"success":true,"data":<page or array>}
//	{"items":[...],"total":N}
//	[...]
//
// A missing total, or a bare array, counts the items received.
func decodePage[T any](body []byte) (listquery.FetchResult[T], error) {
	var out listquery.FetchResult[T]
	shape, rp, err := classify(body)
	if err != nil {
		return out, fmt.Errorf("decoding response: %w", err)
	}
	switch shape {
	case shapeEnvelope:
		if !*rp.Success {
			msg := rp.Error
			if msg == "" {
				msg = "request was not successful"
			}
			return out, &APIError{StatusCode: http.StatusOK, Message: msg, Fields: rp.Fields}
		}
		if inner, _, _ := classify(rp.Data); inner == shapeEnvelope {
			return out, fmt.Errorf("decoding response: nested envelope")
		}
		return decodePage[T](rp.Data)
	case shapePage:
		if err := json.Unmarshal(rp.Items, &out.Items); err != nil {
			return out, fmt.Errorf("decoding items: %w", err)
		}
		if rp.Total != nil {
			out.Total = *rp.Total
		} else {
			out.Total = len(out.Items)
		}
	case shapeArray:
		if err := json.Unmarshal(body, &out.Items); err != nil {
			return out, fmt.Errorf("decoding items: %w", err)
		}
		out.Total = len(out.Items)
	default:
		return out, fmt.Errorf("decoding response: unrecognized list layout")
	}
	if out.Items == nil {
		out.Items = []T{}
	}
	return out, nil
}
