package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/intent"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
	"github.com/MrJamesThe3rd/khata/internal/pending"
)

// Controller drives a draft through price and payment-method clarification
// until it can be parked for confirmation.
type Controller struct {
	pending  PendingStore
	resolver *Resolver
	catalog  Catalog
	ledger   Ledger
	lex      *Lexicon
	render   *Renderer
	log      *zap.Logger
}

// Start handles a freshly extracted draft.
func (c *Controller) Start(ctx context.Context, userKey string, d Draft) (Response, error) {
	switch {
	case d.Intent == intent.GeneralQuery:
		if d.Reply != "" {
			return Response{Reply: d.Reply}, nil
		}

		return Response{Reply: c.render.Help()}, nil
	case d.Intent == intent.Payment && !d.Amount.IsPositive():
		return Response{}, &ValidationError{Message: "How much was paid? Please include the amount."}
	case d.Intent == intent.Payment && d.Party.CustomerName == "":
		return Response{}, &ValidationError{Message: "Who made the payment? Please include the customer's name."}
	case d.Intent.NeedsItems() && len(d.Items) == 0:
		return Response{}, &ValidationError{Message: "Which items? For example: \"2 rice\"."}
	}

	if d.Intent == intent.Payment {
		d.Items = nil
	}

	return c.advance(ctx, userKey, d)
}

// OnPrice fills in the price that was asked for and moves on.
func (c *Controller) OnPrice(ctx context.Context, userKey string, p pending.AwaitingPrice, amount decimal.Decimal) (Response, error) {
	if p.MissingIndex < 0 || p.MissingIndex >= len(p.Lines) {
		return Response{}, fmt.Errorf("price requested for line %d of %d", p.MissingIndex, len(p.Lines))
	}

	ls := append([]pending.Line(nil), p.Lines...)
	ls[p.MissingIndex].UnitPrice = amount
	ls[p.MissingIndex].PriceSource = pending.PriceAnswer

	return c.advance(ctx, userKey, Draft{
		Intent: p.Intent,
		Method: p.Method,
		Party:  p.Party,
		Items:  draftItems(ls),
	})
}

func (c *Controller) OnPaymentMethod(ctx context.Context, userKey string, p pending.AwaitingPaymentMethod, m intent.PaymentMethod) (Response, error) {
	return c.advance(ctx, userKey, Draft{
		Intent: p.Intent.WithMethod(m),
		Method: m,
		Party:  p.Party,
		Items:  draftItems(p.Lines),
	})
}

// advance resolves and prices the draft, then parks it at the first stage
// still missing input.
func (c *Controller) advance(ctx context.Context, userKey string, d Draft) (Response, error) {
	res := c.resolver.Resolve(ctx, d.Party, d.Items)
	comp := Compute(d.Intent, res.Items, d.Amount)

	if len(comp.Shortfalls) > 0 {
		return Response{}, &InsufficientStockError{Shortfalls: comp.Shortfalls}
	}

	if len(comp.MissingPrice) > 0 {
		idx := comp.MissingPrice[0]

		a, err := c.pending.Store(ctx, userKey, pending.AwaitingPrice{
			Intent:       d.Intent,
			Method:       d.Method,
			Party:        res.Party,
			Lines:        lines(res.Items),
			MissingIndex: idx,
		})
		if err != nil {
			return Response{}, err
		}

		return Response{Reply: c.render.PricePrompt(res.Items[idx].Name), ActionID: &a.ID}, nil
	}

	if !d.Intent.Final() {
		a, err := c.pending.Store(ctx, userKey, pending.AwaitingPaymentMethod{
			Intent: d.Intent,
			Party:  res.Party,
			Lines:  lines(res.Items),
		})
		if err != nil {
			return Response{}, err
		}

		return Response{Reply: c.render.PaymentPrompt(lines(res.Items)), ActionID: &a.ID}, nil
	}

	if d.Intent == intent.SaleCredit && res.Party.CustomerName == "" {
		return Response{}, &ValidationError{Message: "Who is this credit for? Please include the customer's name."}
	}

	if d.Intent == intent.Payment && res.Party.CustomerID == nil {
		return Response{}, fmt.Errorf("resolving customer %q for payment", d.Party.CustomerName)
	}

	conf := pending.AwaitingConfirmation{
		Intent: d.Intent,
		Party:  res.Party,
		Lines:  lines(res.Items),
		Total:  comp.Total,
	}

	a, err := c.pending.Store(ctx, userKey, conf)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Reply:       c.render.Summary(conf, c.balance(ctx, conf)),
		ShowButtons: true,
		Buttons:     confirmButtons(),
		ActionID:    &a.ID,
	}, nil
}

// Reprompt repeats the question the action is parked on.
func (c *Controller) Reprompt(ctx context.Context, a *pending.Action) Response {
	switch p := a.Payload.(type) {
	case pending.AwaitingPrice:
		return Response{Reply: c.render.PriceReprompt(p.Missing().Name), ActionID: &a.ID}
	case pending.AwaitingPaymentMethod:
		return Response{Reply: c.render.PaymentReprompt(), ActionID: &a.ID}
	case pending.AwaitingConfirmation:
		return Response{
			Reply:       c.render.Summary(p, c.balance(ctx, p)),
			ShowButtons: true,
			Buttons:     confirmButtons(),
			ActionID:    &a.ID,
		}
	default:
		return Response{Reply: c.render.Help()}
	}
}

// Stock answers a stock lookup for one item, or lists the catalog.
func (c *Controller) Stock(ctx context.Context, text string) (Response, error) {
	subject := c.lex.StockSubject(text)

	if subject == "" {
		items, err := c.catalog.List(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("listing stock: %w", err)
		}

		return Response{Reply: c.render.StockList(items)}, nil
	}

	item, err := c.catalog.Match(ctx, subject)
	if errors.Is(err, inventory.ErrNotFound) {
		return Response{Reply: fmt.Sprintf("❓ No stock record for *%s*.", subject)}, nil
	}

	if err != nil {
		return Response{}, fmt.Errorf("looking up stock: %w", err)
	}

	return Response{Reply: c.render.StockItem(item)}, nil
}

func (c *Controller) balance(ctx context.Context, conf pending.AwaitingConfirmation) *decimal.Decimal {
	if conf.Party.CustomerID == nil || (conf.Intent != intent.SaleCredit && conf.Intent != intent.Payment) {
		return nil
	}

	b, err := c.ledger.Balance(ctx, *conf.Party.CustomerID)
	if err != nil {
		c.log.Warn("computing balance failed", zap.Stringer("customer_id", conf.Party.CustomerID), zap.Error(err))
		return nil
	}

	outstanding := b.Outstanding()

	return &outstanding
}
