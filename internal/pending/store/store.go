package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/pending"
)

type Store struct {
	db     *sql.DB
	driver string
}

// New returns a pending action store. driver selects dialect specific
// statements and is one of config.DriverPostgres or config.DriverSQLite.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, user_key, action_type, status, payload, created_at, updated_at
func scanAction(s scanner) (*pending.Action, error) {
	var (
		a               pending.Action
		typeStr, status string
		payload         []byte
	)

	if err := s.Scan(&a.ID, &a.UserKey, &typeStr, &status, &payload, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	a.Type = pending.ActionType(typeStr)
	a.Status = pending.Status(status)

	p, err := pending.DecodePayload(a.Type, payload)
	if err != nil {
		return nil, err
	}

	a.Payload = p

	return &a, nil
}

const selectActionColumns = `id, user_key, action_type, status, payload, created_at, updated_at`

func userLockKey(userKey string) int64 {
	h := fnv.New64a()
	h.Write([]byte("pending:"))
	h.Write([]byte(userKey))

	return int64(h.Sum64())
}

func (s *Store) ReplacePending(ctx context.Context, a *pending.Action) error {
	payload, err := pending.EncodePayload(a.Payload)
	if err != nil {
		return err
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if s.driver == config.DriverPostgres {
		if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", userLockKey(a.UserKey)); err != nil {
			return fmt.Errorf("acquiring pending lock: %w", err)
		}
	}

	now := time.Now().UTC()

	cancelQuery := `
		UPDATE pending_actions
		SET status = $1, updated_at = $2
		WHERE user_key = $3 AND status = $4
	`
	if _, err := dbTx.ExecContext(ctx, cancelQuery, pending.StatusCancelled, now, a.UserKey, pending.StatusPending); err != nil {
		return fmt.Errorf("cancelling superseded actions: %w", err)
	}

	insertQuery := `
		INSERT INTO pending_actions (id, user_key, action_type, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	id := uuid.New()
	if _, err := dbTx.ExecContext(ctx, insertQuery, id, a.UserKey, a.Type, a.Status, string(payload), now, now); err != nil {
		return fmt.Errorf("inserting pending action: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now

	return nil
}

func (s *Store) GetAction(ctx context.Context, id uuid.UUID) (*pending.Action, error) {
	query := `SELECT ` + selectActionColumns + ` FROM pending_actions WHERE id = $1`

	return s.one(ctx, "getting pending action", query, id)
}

func (s *Store) CurrentPending(ctx context.Context, userKey string) (*pending.Action, error) {
	query := `SELECT ` + selectActionColumns + `
		FROM pending_actions
		WHERE user_key = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	return s.one(ctx, "getting current pending action", query, userKey, pending.StatusPending)
}

func (s *Store) LatestAction(ctx context.Context, userKey string) (*pending.Action, error) {
	query := `SELECT ` + selectActionColumns + `
		FROM pending_actions
		WHERE user_key = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return s.one(ctx, "getting latest action", query, userKey)
}

func (s *Store) one(ctx context.Context, op, query string, args ...any) (*pending.Action, error) {
	a, err := scanAction(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pending.ErrNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// Transition is the conditional update every confirmation and cancellation
// goes through. Only one caller can observe the row as pending.
func (s *Store) Transition(ctx context.Context, id uuid.UUID, status pending.Status) (*pending.Action, error) {
	query := `
		UPDATE pending_actions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	res, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id, pending.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("transitioning pending action: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transitioning pending action: %w", err)
	}

	a, err := s.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return a, pending.ErrAlreadyProcessed
	}

	return a, nil
}
