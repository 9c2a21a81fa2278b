package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// clientColumns is the column list used for SELECT statements on the clients table.
const clientColumns = `id, tenant_id, name, trade_name, cnpj, cnae, tax_regime,
	active, email, monthly_fee, created_at, updated_at, last_filing_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateClient(ctx context.Context, db executor, c *model.Client) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO clients (
			id, tenant_id, name, trade_name, cnpj, cnae, tax_regime,
			active, email, monthly_fee, created_at, updated_at, last_filing_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13
		)`,
		c.ID,
		c.TenantID,
		c.Name,
		nullString(c.TradeName),
		model.DigitsOnly(c.CNPJ),
		nullString(model.DigitsOnly(c.CNAE)),
		string(c.TaxRegime),
		c.Active,
		nullString(c.Email),
		c.MonthlyFee,
		c.CreatedAt,
		c.UpdatedAt,
		nullTimePtr(c.LastFilingAt),
	)
	return err
}

func queryGetClient(ctx context.Context, db executor, tenantID, id string) (*model.Client, error) {
	row := db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanClient(row)
}

func queryListClients(ctx context.Context, db executor, filter model.ClientFilter) ([]*model.Client, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	whereClauses = append(whereClauses, "tenant_id = "+nextArg())
	args = append(args, filter.TenantID)

	if len(filter.TaxRegime) > 0 {
		placeholders := make([]string, len(filter.TaxRegime))
		for i, r := range filter.TaxRegime {
			placeholders[i] = nextArg()
			args = append(args, string(r))
		}
		whereClauses = append(whereClauses, "tax_regime IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Active != nil {
		whereClauses = append(whereClauses, "active = "+nextArg())
		args = append(args, *filter.Active)
	}

	if filter.CNAE != "" {
		whereClauses = append(whereClauses, "cnae LIKE "+nextArg()+" || '%'")
		args = append(args, model.DigitsOnly(filter.CNAE))
	}

	if filter.Search != "" {
		p := nextArg()
		clause := fmt.Sprintf("name ILIKE '%%' || %s || '%%' OR trade_name ILIKE '%%' || %s || '%%'", p, p)
		args = append(args, filter.Search)
		if digits := model.DigitsOnly(filter.Search); digits != "" {
			clause += fmt.Sprintf(" OR cnpj LIKE '%%' || %s || '%%'", nextArg())
			args = append(args, digits)
		}
		whereClauses = append(whereClauses, "("+clause+")")
	}

	for _, col := range sortedKeys(filter.Contains) {
		if !containsColumns[col] {
			continue
		}
		needle := filter.Contains[col]
		if col == model.FieldCNPJ {
			needle = model.DigitsOnly(needle)
		}
		whereClauses = append(whereClauses, col+" ILIKE '%' || "+nextArg()+" || '%'")
		args = append(args, needle)
	}

	whereSQL := " WHERE " + strings.Join(whereClauses, " AND ")
	countArgs := append([]any(nil), args...)

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	// id breaks ties so that pages never overlap.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + clientColumns + " FROM clients" + whereSQL +
		" ORDER BY " + parseSortClause(filter.Sort) + ", id ASC"

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []*model.Client
	var total int
	for rows.Next() {
		c, t, err := scanClientWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan clients: %w", err)
		}
		total = t
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan clients: %w", err)
	}

	// A page past the end carries no window count, but callers still need the
	// real total to step back onto the last page.
	if len(clients) == 0 && filter.Offset > 0 {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients"+whereSQL, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count clients: %w", err)
		}
	}

	return clients, total, nil
}

func queryUpdateClient(ctx context.Context, db executor, c *model.Client) error {
	return db.QueryRowContext(ctx, `
		UPDATE clients SET
			name = $3,
			trade_name = $4,
			cnpj = $5,
			cnae = $6,
			tax_regime = $7,
			active = $8,
			email = $9,
			monthly_fee = $10,
			last_filing_at = $11,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING created_at, updated_at`,
		c.TenantID,
		c.ID,
		c.Name,
		nullString(c.TradeName),
		model.DigitsOnly(c.CNPJ),
		nullString(model.DigitsOnly(c.CNAE)),
		string(c.TaxRegime),
		c.Active,
		nullString(c.Email),
		c.MonthlyFee,
		nullTimePtr(c.LastFilingAt),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func queryDeleteClient(ctx context.Context, db executor, tenantID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM clients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryListTenants(ctx context.Context, db executor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT tenant_id FROM clients ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tenants, nil
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, tenant_id, client_id, actor, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		e.Topic, e.TenantID, e.ClientID, nullString(e.Actor), []byte(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, tenantID, clientID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, tenant_id, client_id, actor, payload, created_at
		FROM events
		WHERE tenant_id = $1 AND client_id = $2
		ORDER BY created_at ASC`,
		tenantID, clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// sortColumns are the columns clients may be ordered by.
var sortColumns = map[string]bool{
	model.FieldName: true, model.FieldTradeName: true, model.FieldCNPJ: true,
	model.FieldCNAE: true, model.FieldTaxRegime: true, model.FieldActive: true,
	model.FieldEmail: true, model.FieldMonthlyFee: true, model.FieldCreatedAt: true,
	model.FieldUpdatedAt: true, model.FieldLastFilingAt: true,
}

// containsColumns are the text columns accepted in ClientFilter.Contains.
var containsColumns = map[string]bool{
	model.FieldName:      true,
	model.FieldTradeName: true,
	model.FieldEmail:     true,
	model.FieldCNPJ:      true,
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseSortClause turns "name" or "-name" into an ORDER BY term. Unknown
// columns fall back to newest first. NULLs go last in both directions.
func parseSortClause(sort string) string {
	if sort == "" {
		return "created_at DESC"
	}
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	if !sortColumns[col] {
		return "created_at DESC"
	}
	if desc {
		return col + " DESC NULLS LAST"
	}
	return col + " ASC NULLS LAST"
}
