package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/khata/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindMatch(ctx context.Context, raw string) (string, error) {
	query := `
		SELECT item_name
		FROM item_aliases
		WHERE LOWER($1) LIKE '%' || LOWER(raw_pattern) || '%'
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var itemName string

	err := s.db.QueryRowContext(ctx, query, raw).Scan(&itemName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding alias: %w", err)
	}

	return itemName, nil
}

func (s *Store) CreateMapping(ctx context.Context, rawPattern, itemName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE item_aliases SET item_name = $1 WHERE LOWER(raw_pattern) = LOWER($2)`,
		itemName, rawPattern,
	)
	if err != nil {
		return fmt.Errorf("updating alias: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	query := `
		INSERT INTO item_aliases (id, raw_pattern, item_name, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, uuid.New(), rawPattern, itemName, time.Now().UTC()); err != nil {
		return fmt.Errorf("creating alias: %w", err)
	}

	return nil
}

func (s *Store) ListMappings(ctx context.Context) ([]*matching.Alias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, raw_pattern, item_name, created_at
		FROM item_aliases
		ORDER BY raw_pattern
	`)
	if err != nil {
		return nil, fmt.Errorf("listing aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*matching.Alias

	for rows.Next() {
		var a matching.Alias
		if err := rows.Scan(&a.ID, &a.RawPattern, &a.ItemName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alias: %w", err)
		}

		aliases = append(aliases, &a)
	}

	return aliases, rows.Err()
}
