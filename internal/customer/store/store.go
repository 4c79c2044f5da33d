package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/customer"
)

type Store struct {
	db     *sql.DB
	driver string
}

// New returns a customer store. driver is one of config.DriverPostgres or
// config.DriverSQLite.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, name, phone, created_at
func scanCustomer(s scanner) (*customer.Customer, error) {
	var (
		c     customer.Customer
		phone sql.NullString
	)

	if err := s.Scan(&c.ID, &c.Name, &phone, &c.CreatedAt); err != nil {
		return nil, err
	}

	if phone.Valid {
		c.Phone = &phone.String
	}

	return &c, nil
}

const selectCustomerColumns = `id, name, phone, created_at`

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	query := `INSERT INTO customers (id, name, phone, created_at) VALUES ($1, $2, $3, $4)`

	id := uuid.New()
	now := time.Now().UTC()

	if _, err := s.db.ExecContext(ctx, query, id, c.Name, c.Phone, now); err != nil {
		return fmt.Errorf("creating customer: %w", err)
	}

	c.ID = id
	c.CreatedAt = now

	return nil
}

func nameLockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("customer:"))
	h.Write([]byte(strings.ToLower(name)))

	return int64(h.Sum64())
}

// FindOrCreateCustomer loads the customer whose name equals c.Name ignoring
// case into c, or inserts c when there is none. Concurrent calls for the
// same new name create a single row. It reports whether c was inserted.
func (s *Store) FindOrCreateCustomer(ctx context.Context, c *customer.Customer) (bool, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if s.driver == config.DriverPostgres {
		if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", nameLockKey(c.Name)); err != nil {
			return false, fmt.Errorf("acquiring customer lock: %w", err)
		}
	}

	query := `SELECT ` + selectCustomerColumns + `
		FROM customers
		WHERE LOWER(name) = LOWER($1)
		ORDER BY created_at
		LIMIT 1`

	existing, err := scanCustomer(dbTx.QueryRowContext(ctx, query, c.Name))
	switch {
	case err == nil:
		*c = *existing
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("finding customer: %w", err)
	}

	id := uuid.New()
	now := time.Now().UTC()

	insert := `INSERT INTO customers (id, name, phone, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := dbTx.ExecContext(ctx, insert, id, c.Name, c.Phone, now); err != nil {
		return false, fmt.Errorf("creating customer: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}

	c.ID = id
	c.CreatedAt = now

	return true, nil
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	query := `SELECT ` + selectCustomerColumns + ` FROM customers WHERE id = $1`

	c, err := scanCustomer(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrNotFound
		}

		return nil, fmt.Errorf("getting customer: %w", err)
	}

	return c, nil
}

func (s *Store) FindByName(ctx context.Context, name string) (*customer.Customer, error) {
	query := `SELECT ` + selectCustomerColumns + `
		FROM customers
		WHERE LOWER(name) = LOWER($1)
		ORDER BY created_at
		LIMIT 1`

	c, err := scanCustomer(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrNotFound
		}

		return nil, fmt.Errorf("finding customer: %w", err)
	}

	return c, nil
}

func (s *Store) SearchCustomers(ctx context.Context, fragment string) ([]*customer.Customer, error) {
	fragment = strings.NewReplacer("%", "", "_", "").Replace(strings.ToLower(fragment))
	if fragment == "" {
		return nil, nil
	}

	query := `SELECT ` + selectCustomerColumns + `
		FROM customers
		WHERE LOWER(name) LIKE $1
		ORDER BY LENGTH(name), created_at`

	return s.list(ctx, query, "%"+fragment+"%")
}

func (s *Store) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	return s.list(ctx, `SELECT `+selectCustomerColumns+` FROM customers ORDER BY name`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*customer.Customer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var out []*customer.Customer

	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}

		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customer rows: %w", err)
	}

	return out, nil
}
