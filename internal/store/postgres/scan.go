package postgres

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// clientNulls holds the nullable columns of a clients row while scanning.
type clientNulls struct {
	tradeName    sql.NullString
	cnae         sql.NullString
	email        sql.NullString
	lastFilingAt sql.NullTime
}

func (n *clientNulls) targets(c *model.Client) []any {
	return []any{
		&c.ID,
		&c.TenantID,
		&c.Name,
		&n.tradeName,
		&c.CNPJ,
		&n.cnae,
		&c.TaxRegime,
		&c.Active,
		&n.email,
		&c.MonthlyFee,
		&c.CreatedAt,
		&c.UpdatedAt,
		&n.lastFilingAt,
	}
}

func (n *clientNulls) apply(c *model.Client) {
	c.TradeName = n.tradeName.String
	c.CNAE = strings.TrimSpace(n.cnae.String)
	c.Email = n.email.String
	c.CNPJ = strings.TrimSpace(c.CNPJ)
	if n.lastFilingAt.Valid {
		t := n.lastFilingAt.Time
		c.LastFilingAt = &t
	}
}

// scanClient scans a single row into a model.Client.
// The row must contain columns in the order defined by clientColumns.
func scanClient(row scannable) (*model.Client, error) {
	var c model.Client
	var n clientNulls
	if err := row.Scan(n.targets(&c)...); err != nil {
		return nil, err
	}
	n.apply(&c)
	return &c, nil
}

// scanClientWithTotal scans a row that has a leading total_count column
// followed by the standard client columns. Used by queryListClients with
// COUNT(*) OVER().
func scanClientWithTotal(row scannable) (*model.Client, int, error) {
	var total int
	var c model.Client
	var n clientNulls
	if err := row.Scan(append([]any{&total}, n.targets(&c)...)...); err != nil {
		return nil, 0, err
	}
	n.apply(&c)
	return &c, total, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.TenantID, &e.ClientID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
