package store

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates every table the store uses. It is idempotent.
//
//go:embed schema.sql
var Schema string

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ApplySchema runs Schema. The server does not call it; use hypoctl migrate.
func (s *Store) ApplySchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

// Tenant is a bank or broker running its own agent.
type Tenant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const tenantColumns = `id, name, status, created_at, updated_at`

func (s *Store) CreateTenant(ctx context.Context, name string) (*Tenant, error) {
	rows, _ := s.db.Query(ctx,
		`INSERT INTO tenants (name) VALUES ($1) RETURNING `+tenantColumns, name)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Tenant])
}

// GetTenantByID returns pgx.ErrNoRows for an unknown id.
func (s *Store) GetTenantByID(ctx context.Context, id string) (*Tenant, error) {
	rows, _ := s.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Tenant])
}

// ListAllTenants returns tenants newest first.
func (s *Store) ListAllTenants(ctx context.Context) ([]Tenant, error) {
	rows, _ := s.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC`)
	return pgx.CollectRows(rows, pgx.RowToStructByName[Tenant])
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tenant_prompt_configs WHERE tenant_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM advisor_devices WHERE tenant_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
