package pending

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/khata/internal/intent"
)

var (
	ErrNotFound = errors.New("pending action not found")
	// ErrAlreadyProcessed is returned when a transition finds the action no
	// longer pending.
	ErrAlreadyProcessed = errors.New("action already processed")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ActionType names the stage a pending action is parked in. Actions awaiting
// confirmation use the final transaction intent as their type.
type ActionType string

const (
	TypeAwaitingPrice         ActionType = "awaiting_price"
	TypeAwaitingPaymentMethod ActionType = "awaiting_payment_method"
)

// PriceSource records where a line's unit price came from.
type PriceSource string

const (
	PriceUnresolved PriceSource = ""
	PriceOverride   PriceSource = "override"
	PriceCatalog    PriceSource = "catalog"
	PriceAnswer     PriceSource = "answer"
)

// Learned reports whether the price should be written back to the catalog.
func (p PriceSource) Learned() bool {
	return p == PriceOverride || p == PriceAnswer
}

// Line is a line item as captured at the time the action was parked.
type Line struct {
	RawName     string          `json:"raw_name"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PriceSource PriceSource     `json:"price_source,omitempty"`
	ItemID      *uuid.UUID      `json:"item_id,omitempty"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Party identifies the customer a dialogue is about.
type Party struct {
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	CustomerName string     `json:"customer_name,omitempty"`
}

// Payload is the stage-specific state of a pending action. Exactly one of
// AwaitingPrice, AwaitingPaymentMethod and AwaitingConfirmation.
type Payload interface {
	ActionType() ActionType
	payload()
}

// AwaitingPrice is parked until the user supplies the unit price of Lines[MissingIndex].
type AwaitingPrice struct {
	Intent       intent.Intent        `json:"intent"`
	Method       intent.PaymentMethod `json:"method"`
	Party        Party                `json:"party"`
	Lines        []Line               `json:"lines"`
	MissingIndex int                  `json:"missing_index"`
}

func (AwaitingPrice) ActionType() ActionType { return TypeAwaitingPrice }
func (AwaitingPrice) payload()               {}

// Missing returns the line whose price is being asked for.
func (p AwaitingPrice) Missing() Line {
	if p.MissingIndex < 0 || p.MissingIndex >= len(p.Lines) {
		return Line{}
	}

	return p.Lines[p.MissingIndex]
}

// AwaitingPaymentMethod is parked until the user says cash or credit.
type AwaitingPaymentMethod struct {
	Intent intent.Intent `json:"intent"`
	Party  Party         `json:"party"`
	Lines  []Line        `json:"lines"`
}

func (AwaitingPaymentMethod) ActionType() ActionType { return TypeAwaitingPaymentMethod }
func (AwaitingPaymentMethod) payload()               {}

// AwaitingConfirmation is a fully computed transaction waiting for yes or no.
type AwaitingConfirmation struct {
	Intent intent.Intent   `json:"intent"`
	Party  Party           `json:"party"`
	Lines  []Line          `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

func (c AwaitingConfirmation) ActionType() ActionType { return ActionType(c.Intent) }
func (AwaitingConfirmation) payload()                 {}

// Action is the durable checkpoint of a suspended dialogue.
type Action struct {
	ID        uuid.UUID
	UserKey   string
	Type      ActionType
	Status    Status
	Payload   Payload
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Final reports whether the action is waiting for confirmation rather than
// further clarification.
func (a *Action) Final() bool {
	_, ok := a.Payload.(AwaitingConfirmation)
	return ok
}

func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", p.ActionType(), err)
	}

	return data, nil
}

func DecodePayload(t ActionType, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)

	switch t {
	case TypeAwaitingPrice:
		var v AwaitingPrice
		err = json.Unmarshal(data, &v)
		p = v
	case TypeAwaitingPaymentMethod:
		var v AwaitingPaymentMethod
		err = json.Unmarshal(data, &v)
		p = v
	default:
		if !intent.Intent(t).Final() {
			return nil, fmt.Errorf("unknown action type %q", t)
		}

		var v AwaitingConfirmation
		err = json.Unmarshal(data, &v)
		v.Intent = intent.Intent(t)
		p = v
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", t, err)
	}

	return p, nil
}
