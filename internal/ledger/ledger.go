package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the kind of financial event an entry records.
type Type string

const (
	TypeSalePaid   Type = "sale_paid"
	TypeSaleCredit Type = "sale_credit"
	TypePayment    Type = "payment"
	TypePurchase   Type = "purchase"
	TypeLoss       Type = "loss"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSalePaid, TypeSaleCredit, TypePayment, TypePurchase, TypeLoss:
		return true
	}

	return false
}

// Entry is one append-only ledger row. Entries written for the same confirmed
// action share its ActionID.
type Entry struct {
	ID          uuid.UUID
	ActionID    *uuid.UUID
	CustomerID  *uuid.UUID
	Type        Type
	Amount      decimal.Decimal
	ItemName    string
	Quantity    int
	Description string
	CreatedAt   time.Time
}

// Balance is a customer's outstanding amount derived from the ledger.
type Balance struct {
	Credit   decimal.Decimal
	Payments decimal.Decimal
}

// Outstanding is credit extended minus payments received.
func (b Balance) Outstanding() decimal.Decimal {
	return b.Credit.Sub(b.Payments)
}

// Fold derives a balance from entries. Only credit sales and payments move it.
func Fold(entries []*Entry) Balance {
	b := Balance{Credit: decimal.Zero, Payments: decimal.Zero}

	for _, e := range entries {
		switch e.Type {
		case TypeSaleCredit:
			b.Credit = b.Credit.Add(e.Amount)
		case TypePayment:
			b.Payments = b.Payments.Add(e.Amount)
		}
	}

	return b
}
