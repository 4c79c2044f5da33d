package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
	"github.com/MrJamesThe3rd/khata/internal/pending"
	"github.com/MrJamesThe3rd/khata/internal/reminder"
)

type PendingStore interface {
	Store(ctx context.Context, userKey string, p pending.Payload) (*pending.Action, error)
	Current(ctx context.Context, userKey string) (*pending.Action, error)
	Latest(ctx context.Context, userKey string) (*pending.Action, error)
	Get(ctx context.Context, id uuid.UUID) (*pending.Action, error)
	Claim(ctx context.Context, id uuid.UUID) (*pending.Action, error)
	Cancel(ctx context.Context, id uuid.UUID) (*pending.Action, error)
}

type CustomerDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
	FindOrCreate(ctx context.Context, name string) (*customer.Customer, error)
}

type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (*inventory.Item, error)
	Match(ctx context.Context, name string) (*inventory.Item, error)
	List(ctx context.Context) ([]*inventory.Item, error)
	Create(ctx context.Context, params inventory.CreateParams) (*inventory.Item, error)
	SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	Adjust(ctx context.Context, id uuid.UUID, delta int) (*inventory.Item, error)
}

// AliasResolver maps shop vocabulary ("doodh") onto catalog names ("Milk").
type AliasResolver interface {
	Alias(ctx context.Context, raw string) (string, error)
}

type Ledger interface {
	Append(ctx context.Context, entries []*ledger.Entry) error
	Balance(ctx context.Context, customerID uuid.UUID) (ledger.Balance, error)
	CountForAction(ctx context.Context, actionID uuid.UUID) (int, error)
}

type Reminders interface {
	Schedule(ctx context.Context, customerID uuid.UUID, message string, dueIn time.Duration) (*reminder.Reminder, error)
	HasPending(ctx context.Context, customerID uuid.UUID) (bool, error)
}
