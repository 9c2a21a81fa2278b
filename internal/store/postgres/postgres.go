// Package postgres implements store.Store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pool limits applied by New.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// session runs the store's queries on either the pool or a transaction.
type session struct {
	ex executor
}

func (s session) CreateClient(ctx context.Context, c *model.Client) error {
	return translateError(queryCreateClient(ctx, s.ex, c))
}

func (s session) GetClient(ctx context.Context, tenantID, id string) (*model.Client, error) {
	return queryGetClient(ctx, s.ex, tenantID, id)
}

func (s session) ListClients(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error) {
	return queryListClients(ctx, s.ex, filter)
}

func (s session) UpdateClient(ctx context.Context, c *model.Client) error {
	return translateError(queryUpdateClient(ctx, s.ex, c))
}

func (s session) DeleteClient(ctx context.Context, tenantID, id string) error {
	return queryDeleteClient(ctx, s.ex, tenantID, id)
}

func (s session) ListTenants(ctx context.Context) ([]string, error) {
	return queryListTenants(ctx, s.ex)
}

func (s session) RecordEvent(ctx context.Context, e *model.Event) error {
	return queryRecordEvent(ctx, s.ex, e)
}

func (s session) GetEvents(ctx context.Context, tenantID, clientID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.ex, tenantID, clientID)
}

// PostgresStore is the pooled store.
type PostgresStore struct {
	session
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

func newStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{session: session{ex: db}, db: db}
}

// New connects to databaseURL and migrates the schema to the latest version.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return newStore(db), nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	target, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// translateError turns unique violations (SQLSTATE 23505), such as a second
// client with the same CNPJ in a tenant, into store.ErrConflict.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", store.ErrConflict, pqErr.Constraint)
	}
	return err
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// RunInTransaction calls fn with a store bound to a new transaction,
// committing when fn returns nil and rolling back otherwise.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{session{ex: tx}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore is the store handed to RunInTransaction callbacks.
type txStore struct {
	session
}

var _ store.Store = (*txStore)(nil)

// RunInTransaction joins the current transaction.
func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close does nothing; the pooled store owns the connection.
func (s *txStore) Close() error { return nil }
