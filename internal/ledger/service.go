package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidEntry = errors.New("invalid ledger entry")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	// AppendEntries writes every entry or none.
	AppendEntries(ctx context.Context, entries []*Entry) error
	ListEntries(ctx context.Context, filter ListFilter) ([]*Entry, error)
	CountByAction(ctx context.Context, actionID uuid.UUID) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	CustomerID *uuid.UUID
	ActionID   *uuid.UUID
	Type       *Type
	Limit      int
}

func (s *Service) Append(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if !e.Type.Valid() || e.Amount.IsNegative() {
			return fmt.Errorf("%w: type %q amount %s", ErrInvalidEntry, e.Type, e.Amount)
		}
	}

	return s.repo.AppendEntries(ctx, entries)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

func (s *Service) CountForAction(ctx context.Context, actionID uuid.UUID) (int, error) {
	return s.repo.CountByAction(ctx, actionID)
}

func (s *Service) Balance(ctx context.Context, customerID uuid.UUID) (Balance, error) {
	entries, err := s.repo.ListEntries(ctx, ListFilter{CustomerID: &customerID})
	if err != nil {
		return Balance{}, err
	}

	return Fold(entries), nil
}

// Balances folds the whole ledger into per-customer balances.
func (s *Service) Balances(ctx context.Context) (map[uuid.UUID]Balance, error) {
	entries, err := s.repo.ListEntries(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[uuid.UUID][]*Entry)

	for _, e := range entries {
		if e.CustomerID == nil {
			continue
		}

		byCustomer[*e.CustomerID] = append(byCustomer[*e.CustomerID], e)
	}

	out := make(map[uuid.UUID]Balance, len(byCustomer))
	for id, es := range byCustomer {
		out[id] = Fold(es)
	}

	return out, nil
}
