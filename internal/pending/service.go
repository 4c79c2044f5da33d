package pending

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Repository interface {
	// ReplacePending cancels every pending action of the user and inserts a
	// as the only one, atomically.
	ReplacePending(ctx context.Context, a *Action) error
	GetAction(ctx context.Context, id uuid.UUID) (*Action, error)
	CurrentPending(ctx context.Context, userKey string) (*Action, error)
	LatestAction(ctx context.Context, userKey string) (*Action, error)
	// Transition moves the action from pending to status. It returns
	// ErrAlreadyProcessed when the action is not pending any more.
	Transition(ctx context.Context, id uuid.UUID, status Status) (*Action, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Store parks the dialogue for userKey, superseding any earlier pending action.
func (s *Service) Store(ctx context.Context, userKey string, p Payload) (*Action, error) {
	if userKey == "" {
		return nil, errors.New("user key is required")
	}

	a := &Action{
		UserKey: userKey,
		Type:    p.ActionType(),
		Status:  StatusPending,
		Payload: p,
	}

	if err := s.repo.ReplacePending(ctx, a); err != nil {
		return nil, fmt.Errorf("storing pending action: %w", err)
	}

	return a, nil
}

// Current returns the user's pending action or ErrNotFound.
func (s *Service) Current(ctx context.Context, userKey string) (*Action, error) {
	return s.repo.CurrentPending(ctx, userKey)
}

// Latest returns the user's most recent action in any status or ErrNotFound.
func (s *Service) Latest(ctx context.Context, userKey string) (*Action, error) {
	return s.repo.LatestAction(ctx, userKey)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Action, error) {
	return s.repo.GetAction(ctx, id)
}

// Claim atomically moves a pending action to confirmed. Of any number of
// concurrent claims on the same action exactly one succeeds; the others get
// ErrAlreadyProcessed.
func (s *Service) Claim(ctx context.Context, id uuid.UUID) (*Action, error) {
	return s.repo.Transition(ctx, id, StatusConfirmed)
}

// Cancel atomically moves a pending action to cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Action, error) {
	return s.repo.Transition(ctx, id, StatusCancelled)
}
