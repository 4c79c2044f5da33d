package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalid           = errors.New("invalid item")
)

const DefaultUnit = "pcs"

// Item is a catalog record: what the shop stocks, how much of it, and at what price.
type Item struct {
	ID                uuid.UUID
	Name              string
	Quantity          int
	Unit              string
	UnitPrice         decimal.Decimal
	LowStockThreshold int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPrice reports whether the catalog knows a positive unit price.
func (i *Item) HasPrice() bool {
	return i.UnitPrice.IsPositive()
}

// IsLow reports whether the item is at or below its alert threshold.
func (i *Item) IsLow() bool {
	return i.Quantity <= i.LowStockThreshold
}
