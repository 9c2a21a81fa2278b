package events

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// Event topics. Subjects on the bus are scoped by tenant; see Subject.
const (
	TopicClientCreated = "client.created"
	TopicClientUpdated = "client.updated"
	TopicClientDeleted = "client.deleted"
)

// subjectRoot prefixes every subject this service publishes.
const subjectRoot = "ledger"

// Subject returns the NATS subject for topic within tenant, e.g.
// "ledger.firm-1.client.created".
func Subject(tenant, topic string) string {
	return subjectRoot + "." + subjectToken(tenant) + "." + topic
}

// TenantSubjects is the wildcard matching every event of one tenant.
func TenantSubjects(tenant string) string {
	return subjectRoot + "." + subjectToken(tenant) + ".>"
}

// subjectToken makes s safe to use as a single subject token: the separators
// and wildcards of the subject syntax are replaced with "_".
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// Event types

type ClientCreated struct {
	Client *model.Client `json:"client"`
}

type ClientUpdated struct {
	Client  *model.Client  `json:"client"`
	Changes map[string]any `json:"changes"` // field name -> new value
}

type ClientDeleted struct {
	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`
}

// Publisher emits events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close() error
}

// Subscriber delivers raw payloads published on a subject. The returned
// cancel func unsubscribes and closes the channel; it may be called more
// than once.
type Subscriber interface {
	Subscribe(subject string) (<-chan []byte, func(), error)
	Close() error
}

// NoopPublisher discards events. serve uses it when no bus is configured.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }
