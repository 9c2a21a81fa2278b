package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *LedgerServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("POST /v1/clients", s.handleCreateClient)
	mux.HandleFunc("GET /v1/clients", s.handleListClients)
	mux.HandleFunc("GET /v1/clients/export", s.handleExportClients)
	mux.HandleFunc("GET /v1/clients/{id}", s.handleGetClient)
	mux.HandleFunc("PATCH /v1/clients/{id}", s.handleUpdateClient)
	mux.HandleFunc("DELETE /v1/clients/{id}", s.handleDeleteClient)
	mux.HandleFunc("GET /v1/clients/{id}/events", s.handleGetEvents)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	var h http.Handler = mux
	h = TenantMiddleware(h)
	h = AuthMiddleware(authToken, h)
	h = RecoveryMiddleware(s.logger, h)
	h = LoggingMiddleware(s.logger, h)
	return RequestIDMiddleware(h)
}

// handleHealth handles GET /v1/health.
func (s *LedgerServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actorFrom names who made a change, for the audit log.
func actorFrom(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

// response is the envelope around every JSON body.
type response struct {
	Success bool               `json:"success"`
	Data    any                `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
	Fields  []model.FieldError `json:"fields,omitempty"`
}

// writeJSON writes a successful enveloped JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, response{Success: true, Data: data})
}

// writeError writes an enveloped JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, response{Error: message})
}

func writeEnvelope(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeFailure maps an error from the core logic to a status: validation and
// input errors are 400, a missing client 404, a duplicate CNPJ 409 and
// anything else 500.
func writeFailure(w http.ResponseWriter, err error, notFound string) {
	var ve *model.ValidationError
	var ie inputError
	switch {
	case errors.As(err, &ve):
		writeEnvelope(w, http.StatusBadRequest, response{Error: ve.Error(), Fields: ve.Errors})
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "a client with this CNPJ already exists")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
