package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/khata/internal/inventory"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, name, quantity, unit, unit_price, low_stock_threshold, created_at, updated_at
func scanItem(s scanner) (*inventory.Item, error) {
	var it inventory.Item

	if err := s.Scan(
		&it.ID, &it.Name, &it.Quantity, &it.Unit, &it.UnitPrice, &it.LowStockThreshold,
		&it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &it, nil
}

const selectItemColumns = `id, name, quantity, unit, unit_price, low_stock_threshold, created_at, updated_at`

func (s *Store) CreateItem(ctx context.Context, item *inventory.Item) error {
	query := `
		INSERT INTO inventory_items (id, name, quantity, unit, unit_price, low_stock_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now().UTC()
	id := uuid.New()

	_, err := s.db.ExecContext(ctx, query,
		id,
		item.Name,
		item.Quantity,
		item.Unit,
		item.UnitPrice,
		item.LowStockThreshold,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}

	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now

	return nil
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	query := `SELECT ` + selectItemColumns + ` FROM inventory_items WHERE id = $1`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}

		return nil, fmt.Errorf("getting item: %w", err)
	}

	return item, nil
}

func (s *Store) FindByName(ctx context.Context, name string) (*inventory.Item, error) {
	query := `SELECT ` + selectItemColumns + ` FROM inventory_items WHERE LOWER(name) = LOWER($1)`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}

		return nil, fmt.Errorf("finding item: %w", err)
	}

	return item, nil
}

func (s *Store) SearchItems(ctx context.Context, fragment string) ([]*inventory.Item, error) {
	fragment = strings.NewReplacer("%", "", "_", "").Replace(strings.ToLower(fragment))
	if fragment == "" {
		return nil, nil
	}

	query := `SELECT ` + selectItemColumns + `
		FROM inventory_items
		WHERE LOWER(name) LIKE $1
		ORDER BY LENGTH(name), name`

	return s.list(ctx, query, "%"+fragment+"%")
}

func (s *Store) ListItems(ctx context.Context) ([]*inventory.Item, error) {
	return s.list(ctx, `SELECT `+selectItemColumns+` FROM inventory_items ORDER BY name`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*inventory.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []*inventory.Item

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item rows: %w", err)
	}

	return items, nil
}

func (s *Store) UpdateItem(ctx context.Context, item *inventory.Item) error {
	query := `
		UPDATE inventory_items
		SET quantity = $1, unit = $2, unit_price = $3, low_stock_threshold = $4, updated_at = $5
		WHERE id = $6
	`

	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, query,
		item.Quantity,
		item.Unit,
		item.UnitPrice,
		item.LowStockThreshold,
		now,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return inventory.ErrNotFound
	}

	item.UpdatedAt = now

	return nil
}

func (s *Store) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	query := `UPDATE inventory_items SET unit_price = $1, updated_at = $2 WHERE id = $3`

	res, err := s.db.ExecContext(ctx, query, price, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating price: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return inventory.ErrNotFound
	}

	return nil
}

// AdjustQuantity applies the delta in a single conditional statement so that
// concurrent adjustments can never drive the quantity below zero.
func (s *Store) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*inventory.Item, error) {
	query := `
		UPDATE inventory_items
		SET quantity = quantity + $1, updated_at = $2
		WHERE id = $3 AND quantity + $1 >= 0
	`

	res, err := s.db.ExecContext(ctx, query, delta, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("adjusting quantity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("adjusting quantity: %w", err)
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, inventory.ErrInsufficientStock
	}

	return item, nil
}
