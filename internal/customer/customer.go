package customer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("customer not found")
	ErrInvalidName  = errors.New("customer name is required")
	ErrInvalidPhone = errors.New("invalid phone number")
)

type Customer struct {
	ID        uuid.UUID
	Name      string
	Phone     *string // E.164
	CreatedAt time.Time
}
