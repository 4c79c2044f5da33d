package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	CreateReminder(ctx context.Context, r *Reminder) error
	ListReminders(ctx context.Context, filter ListFilter) ([]*Reminder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}

type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *Status
	DueBefore  *time.Time
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Schedule creates a pending reminder due after the given delay.
func (s *Service) Schedule(ctx context.Context, customerID uuid.UUID, message string, dueIn time.Duration) (*Reminder, error) {
	r := &Reminder{
		CustomerID: customerID,
		Message:    message,
		Status:     StatusPending,
		NextDue:    s.now().UTC().Add(dueIn),
	}

	if err := s.repo.CreateReminder(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Reminder, error) {
	return s.repo.ListReminders(ctx, filter)
}

// Due lists the pending reminders whose due time has passed.
func (s *Service) Due(ctx context.Context) ([]*Reminder, error) {
	status := StatusPending
	now := s.now().UTC()

	return s.repo.ListReminders(ctx, ListFilter{Status: &status, DueBefore: &now})
}

// HasPending reports whether the customer has at least one pending reminder.
func (s *Service) HasPending(ctx context.Context, customerID uuid.UUID) (bool, error) {
	status := StatusPending

	rs, err := s.repo.ListReminders(ctx, ListFilter{CustomerID: &customerID, Status: &status})
	if err != nil {
		return false, err
	}

	return len(rs) > 0, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusCompleted)
}
