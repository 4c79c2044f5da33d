package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/khata/internal/reminder"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	query := `
		INSERT INTO reminders (id, customer_id, message, status, next_due, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := uuid.New()
	now := time.Now().UTC()

	if _, err := s.db.ExecContext(ctx, query, id, r.CustomerID, r.Message, r.Status, r.NextDue, now); err != nil {
		return fmt.Errorf("creating reminder: %w", err)
	}

	r.ID = id
	r.CreatedAt = now

	return nil
}

func (s *Store) ListReminders(ctx context.Context, filter reminder.ListFilter) ([]*reminder.Reminder, error) {
	query := `SELECT id, customer_id, message, status, next_due, created_at FROM reminders WHERE 1 = 1`

	var args []any

	argIdx := 1

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.DueBefore != nil {
		query += fmt.Sprintf(" AND next_due <= $%d", argIdx)

		args = append(args, filter.DueBefore.UTC())
	}

	query += " ORDER BY next_due ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	defer rows.Close()

	var out []*reminder.Reminder

	for rows.Next() {
		var (
			r      reminder.Reminder
			status string
		)

		if err := rows.Scan(&r.ID, &r.CustomerID, &r.Message, &status, &r.NextDue, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}

		r.Status = reminder.Status(status)
		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reminder rows: %w", err)
	}

	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status reminder.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("updating reminder status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return reminder.ErrNotFound
	}

	return nil
}
