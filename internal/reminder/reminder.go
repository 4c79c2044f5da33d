package reminder

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("reminder not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Reminder is a scheduled nudge to collect an outstanding credit.
type Reminder struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Message    string
	Status     Status
	NextDue    time.Time
	CreatedAt  time.Time
}
