package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/khata/internal/ledger"
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

// Expected column order: id, action_id, customer_id, type, amount, item_name, quantity, description, created_at
func scanEntry(s scanner) (*ledger.Entry, error) {
	var (
		e       ledger.Entry
		typeStr string
	)

	if err := s.Scan(
		&e.ID, &e.ActionID, &e.CustomerID, &typeStr, &e.Amount,
		&e.ItemName, &e.Quantity, &e.Description, &e.CreatedAt,
	); err != nil {
		return nil, err
	}

	e.Type = ledger.Type(typeStr)

	return &e, nil
}

const selectEntryColumns = `id, action_id, customer_id, type, amount, item_name, quantity, description, created_at`

const entryColumnCount = 9

// AppendEntries inserts the batch with one multi-row statement, so either
// every entry lands or none does.
func (s *Store) AppendEntries(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()

	var (
		placeholders = make([]string, 0, len(entries))
		args         = make([]any, 0, len(entries)*entryColumnCount)
		ids          = make([]uuid.UUID, len(entries))
	)

	for i, e := range entries {
		base := i * entryColumnCount
		ph := make([]string, entryColumnCount)

		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}

		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		ids[i] = uuid.New()
		args = append(args,
			ids[i], e.ActionID, e.CustomerID, e.Type, e.Amount,
			e.ItemName, e.Quantity, e.Description, now,
		)
	}

	query := `INSERT INTO ledger_entries (` + selectEntryColumns + `) VALUES ` + strings.Join(placeholders, ", ")

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("appending ledger entries: %w", err)
	}

	for i, e := range entries {
		e.ID = ids[i]
		e.CreatedAt = now
	}

	return nil
}

func (s *Store) ListEntries(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + ` FROM ledger_entries WHERE 1 = 1`

	var args []any

	argIdx := 1

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
		argIdx++
	}

	if filter.ActionID != nil {
		query += fmt.Sprintf(" AND action_id = $%d", argIdx)

		args = append(args, *filter.ActionID)
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger rows: %w", err)
	}

	return entries, nil
}

func (s *Store) CountByAction(ctx context.Context, actionID uuid.UUID) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE action_id = $1`, actionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting ledger entries: %w", err)
	}

	return n, nil
}
