package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
	"github.com/MrJamesThe3rd/khata/internal/pending"
)

const resolveConcurrency = 8

// ResolvedItem is a draft item matched against the catalog.
type ResolvedItem struct {
	RawName   string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Source    pending.PriceSource
	ItemID    *uuid.UUID
	Available int
}

func (r ResolvedItem) LineTotal() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

func (r ResolvedItem) line() pending.Line {
	return pending.Line{
		RawName:     r.RawName,
		Name:        r.Name,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		PriceSource: r.Source,
		ItemID:      r.ItemID,
	}
}

func lines(items []ResolvedItem) []pending.Line {
	out := make([]pending.Line, len(items))
	for i, it := range items {
		out[i] = it.line()
	}

	return out
}

type Resolution struct {
	Party    pending.Party
	Customer *customer.Customer
	Items    []ResolvedItem
}

// Resolver matches names in a draft to stored customers and catalog items.
// Lookup failures degrade to the raw names; Resolve never fails.
type Resolver struct {
	customers CustomerDirectory
	catalog   Catalog
	aliases   AliasResolver
	log       *zap.Logger
}

func NewResolver(customers CustomerDirectory, catalog Catalog, aliases AliasResolver, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}

	return &Resolver{customers: customers, catalog: catalog, aliases: aliases, log: log}
}

func (r *Resolver) Resolve(ctx context.Context, party pending.Party, items []DraftItem) Resolution {
	res := Resolution{Party: party, Items: make([]ResolvedItem, len(items))}

	res.Customer = r.resolveCustomer(ctx, party)
	if res.Customer != nil {
		id := res.Customer.ID
		res.Party = pending.Party{CustomerID: &id, CustomerName: res.Customer.Name}
	}

	var g errgroup.Group
	g.SetLimit(resolveConcurrency)

	for i, it := range items {
		g.Go(func() error {
			res.Items[i] = r.resolveItem(ctx, it)
			return nil
		})
	}

	_ = g.Wait()

	return res
}

func (r *Resolver) resolveCustomer(ctx context.Context, party pending.Party) *customer.Customer {
	if party.CustomerID != nil {
		c, err := r.customers.Get(ctx, *party.CustomerID)
		if err == nil {
			return c
		}

		r.log.Warn("customer lookup failed", zap.Stringer("customer_id", party.CustomerID), zap.Error(err))
	}

	if party.CustomerName == "" {
		return nil
	}

	c, err := r.customers.FindOrCreate(ctx, party.CustomerName)
	if err != nil {
		r.log.Warn("customer resolution failed", zap.String("customer", party.CustomerName), zap.Error(err))
		return nil
	}

	return c
}

func (r *Resolver) resolveItem(ctx context.Context, d DraftItem) ResolvedItem {
	out := ResolvedItem{
		RawName:   d.Name,
		Name:      d.Name,
		Quantity:  d.Quantity,
		UnitPrice: decimal.Zero,
	}

	item := r.lookup(ctx, d)
	if item != nil {
		id := item.ID
		out.ItemID = &id
		out.Name = item.Name
		out.Available = item.Quantity
	}

	switch {
	case d.PriceOverride.IsPositive():
		out.UnitPrice = d.PriceOverride
		out.Source = d.Source
		if out.Source == pending.PriceUnresolved {
			out.Source = pending.PriceOverride
		}
	case item != nil && item.HasPrice():
		out.UnitPrice = item.UnitPrice
		out.Source = pending.PriceCatalog
	}

	return out
}

func (r *Resolver) lookup(ctx context.Context, d DraftItem) *inventory.Item {
	if d.ItemID != nil {
		item, err := r.catalog.Get(ctx, *d.ItemID)
		if err == nil {
			return item
		}

		r.log.Warn("catalog lookup by id failed", zap.Stringer("item_id", d.ItemID), zap.Error(err))
	}

	name := d.Name
	if r.aliases != nil {
		alias, err := r.aliases.Alias(ctx, d.Name)
		if err != nil {
			r.log.Warn("alias lookup failed", zap.String("item", d.Name), zap.Error(err))
		} else if alias != "" {
			name = alias
		}
	}

	item, err := r.catalog.Match(ctx, name)
	if err != nil {
		if !errors.Is(err, inventory.ErrNotFound) {
			r.log.Warn("catalog match failed", zap.String("item", name), zap.Error(err))
		}

		return nil
	}

	return item
}
