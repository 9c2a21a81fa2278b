// Package server exposes the client registry over HTTP/JSON. Every request is
// scoped to one tenant (the accounting firm) named in the X-Tenant-ID header.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/alfredjeanlab/ledgerdesk/internal/events"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

// LedgerServer serves the client REST API.
type LedgerServer struct {
	store     store.Store
	publisher events.Publisher
	feed      *eventFeed
	logger    *slog.Logger

	// exportLocale is used by the export endpoint when the request names none.
	exportLocale language.Tag
}

// Option configures a LedgerServer.
type Option func(*LedgerServer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *LedgerServer) { s.logger = l }
}

// WithExportLocale sets the default export locale.
func WithExportLocale(tag language.Tag) Option {
	return func(s *LedgerServer) { s.exportLocale = tag }
}

// New returns a LedgerServer backed by the given store and publisher.
func New(s store.Store, p events.Publisher, opts ...Option) *LedgerServer {
	srv := &LedgerServer{
		store:        s,
		publisher:    p,
		feed:         newEventFeed(),
		logger:       slog.Default(),
		exportLocale: language.BrazilianPortuguese,
	}
	for _, o := range opts {
		o(srv)
	}
	return srv
}

// recordAndPublish persists an event to the store, publishes it to NATS on the
// tenant's subject and fans it out to SSE clients of that tenant. All three
// are best-effort; failures are logged but do not fail the request.
func (s *LedgerServer) recordAndPublish(ctx context.Context, tenantID, topic, clientID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "topic", topic, "client_id", clientID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:    topic,
		TenantID: tenantID,
		ClientID: clientID,
		Actor:    actor,
		Payload:  payload,
	}); err != nil {
		s.logger.Warn("failed to record event", "topic", topic, "client_id", clientID, "error", err)
	}
	if err := s.publisher.Publish(ctx, events.Subject(tenantID, topic), event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "client_id", clientID, "error", err)
	}
	s.feed.publish(tenantID, topic, payload)
}

// inputError indicates invalid user input. The HTTP layer maps it to 400.
type inputError string

func (e inputError) Error() string { return string(e) }
