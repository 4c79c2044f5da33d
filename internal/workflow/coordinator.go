package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/intent"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
	"github.com/MrJamesThe3rd/khata/internal/pending"
	"github.com/MrJamesThe3rd/khata/internal/reminder"
)

// Result describes a committed action.
type Result struct {
	ActionID uuid.UUID
	Intent   intent.Intent
	Party    pending.Party
	Lines    []pending.Line
	Total    decimal.Decimal
	Entries  []*ledger.Entry
	// Balance is the customer's outstanding amount after the commit.
	Balance  *decimal.Decimal
	LowStock *inventory.Item
	Reminder *reminder.Reminder
}

// Coordinator applies a confirmed action to inventory and the ledger. Either
// every stock change and ledger entry of the action lands, or the stock
// changes already applied are reversed.
type Coordinator struct {
	catalog     Catalog
	ledger      Ledger
	reminders   Reminders
	render      *Renderer
	reminderDue time.Duration
	metrics     *Metrics
	log         *zap.Logger
}

type stockDelta struct {
	itemID uuid.UUID
	name   string
	delta  int
}

func (c *Coordinator) Execute(ctx context.Context, action *pending.Action) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("execution panicked", zap.Stringer("action_id", action.ID), zap.Any("panic", r))
			res, err = nil, &PersistenceError{Op: "execute", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	conf, ok := action.Payload.(pending.AwaitingConfirmation)
	if !ok {
		return nil, &PersistenceError{Op: "execute", Err: fmt.Errorf("action %s is %s, not awaiting confirmation", action.ID, action.Type)}
	}

	id := action.ID
	res = &Result{
		ActionID: id,
		Intent:   conf.Intent,
		Party:    conf.Party,
		Lines:    append([]pending.Line(nil), conf.Lines...),
		Total:    conf.Total,
	}

	if conf.Intent == intent.Payment {
		res.Entries = []*ledger.Entry{{
			ActionID:    &id,
			CustomerID:  conf.Party.CustomerID,
			Type:        ledger.TypePayment,
			Amount:      conf.Total,
			Description: "Payment received",
		}}

		if err := c.ledger.Append(ctx, res.Entries); err != nil {
			return nil, &PersistenceError{Op: "append ledger", Err: err}
		}
	} else if err := c.commitItems(ctx, res); err != nil {
		return nil, err
	}

	c.afterCommit(ctx, res)

	return res, nil
}

func (c *Coordinator) commitItems(ctx context.Context, res *Result) error {
	if err := c.ensureItems(ctx, res); err != nil {
		return err
	}

	c.learnPrices(ctx, res.Lines)

	sign := 1
	if res.Intent.Depletes() {
		sign = -1
	}

	applied := make([]stockDelta, 0, len(res.Lines))

	for _, l := range res.Lines {
		d := stockDelta{itemID: *l.ItemID, name: l.Name, delta: sign * l.Quantity}

		item, err := c.catalog.Adjust(ctx, d.itemID, d.delta)
		if err != nil {
			restored := c.compensate(ctx, applied)

			if errors.Is(err, inventory.ErrInsufficientStock) && restored {
				return &InsufficientStockError{Shortfalls: []Shortfall{c.shortfall(ctx, l, res.Lines)}}
			}

			return &PersistenceError{Op: "adjust stock", Err: err, Restored: restored}
		}

		applied = append(applied, d)

		if res.Intent.Depletes() && res.LowStock == nil && item.IsLow() {
			res.LowStock = item
		}
	}

	entries := make([]*ledger.Entry, len(res.Lines))
	for i, l := range res.Lines {
		entries[i] = &ledger.Entry{
			ActionID:    &res.ActionID,
			CustomerID:  res.Party.CustomerID,
			Type:        ledger.Type(res.Intent),
			Amount:      l.Total(),
			ItemName:    l.Name,
			Quantity:    l.Quantity,
			Description: fmt.Sprintf("%s %d × %s", title(res.Intent), l.Quantity, l.Name),
		}
	}

	if err := c.ledger.Append(ctx, entries); err != nil {
		restored := c.compensate(ctx, applied)
		return &PersistenceError{Op: "append ledger", Err: err, Restored: restored}
	}

	res.Entries = entries

	return nil
}

// ensureItems pins every line to a catalog item. Purchases of unknown items
// register them; anything else without a catalog record has no stock.
func (c *Coordinator) ensureItems(ctx context.Context, res *Result) error {
	for i, l := range res.Lines {
		if l.ItemID != nil {
			continue
		}

		if res.Intent != intent.Purchase {
			return &InsufficientStockError{Shortfalls: []Shortfall{{Name: l.Name, Requested: l.Quantity}}}
		}

		item, err := c.catalog.Create(ctx, inventory.CreateParams{Name: l.Name, UnitPrice: l.UnitPrice})
		if err != nil {
			if item, err = c.catalog.Match(ctx, l.Name); err != nil {
				return &PersistenceError{Op: "create item", Err: err, Restored: true}
			}
		}

		id := item.ID
		res.Lines[i].ItemID = &id
		res.Lines[i].Name = item.Name
	}

	return nil
}

// learnPrices writes user-supplied unit prices back to the catalog. Failures
// only cost a future price question.
func (c *Coordinator) learnPrices(ctx context.Context, ls []pending.Line) {
	for _, l := range ls {
		if !l.PriceSource.Learned() || !l.UnitPrice.IsPositive() {
			continue
		}

		if err := c.catalog.SetPrice(ctx, *l.ItemID, l.UnitPrice); err != nil {
			c.log.Warn("learning unit price failed", zap.String("item", l.Name), zap.Error(err))
		}
	}
}

// compensate reverses applied deltas, newest first. It reports whether every
// reversal succeeded.
func (c *Coordinator) compensate(ctx context.Context, applied []stockDelta) bool {
	ctx = context.WithoutCancel(ctx)
	ok := true

	for i := len(applied) - 1; i >= 0; i-- {
		d := applied[i]

		_, err := c.catalog.Adjust(ctx, d.itemID, -d.delta)
		c.metrics.compensation(err == nil)

		if err != nil {
			ok = false
			c.log.Error("stock compensation failed",
				zap.String("item", d.name),
				zap.Int("delta", -d.delta),
				zap.Error(err),
			)
		}
	}

	return ok
}

// shortfall reports the item's total demand across the action against its
// stock after compensation.
func (c *Coordinator) shortfall(ctx context.Context, l pending.Line, all []pending.Line) Shortfall {
	s := Shortfall{Name: l.Name}

	for _, other := range all {
		if other.ItemID != nil && *other.ItemID == *l.ItemID {
			s.Requested += other.Quantity
		}
	}

	if item, err := c.catalog.Get(ctx, *l.ItemID); err == nil {
		s.Available = item.Quantity
	}

	return s
}

func (c *Coordinator) afterCommit(ctx context.Context, res *Result) {
	if res.Party.CustomerID == nil {
		return
	}

	customerID := *res.Party.CustomerID

	if res.Intent == intent.SaleCredit {
		msg := fmt.Sprintf("Please pay %s for transaction", c.render.Money(res.Total))

		r, err := c.reminders.Schedule(ctx, customerID, msg, c.reminderDue)
		if err != nil {
			c.log.Warn("scheduling reminder failed", zap.Stringer("customer_id", customerID), zap.Error(err))
		} else {
			res.Reminder = r
		}
	}

	if res.Intent == intent.SaleCredit || res.Intent == intent.Payment {
		b, err := c.ledger.Balance(ctx, customerID)
		if err != nil {
			c.log.Warn("computing balance failed", zap.Stringer("customer_id", customerID), zap.Error(err))
			return
		}

		outstanding := b.Outstanding()
		res.Balance = &outstanding
	}
}
