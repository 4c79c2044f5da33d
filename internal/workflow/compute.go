package workflow

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/khata/internal/intent"
)

type Shortfall struct {
	Name      string
	Requested int
	Available int
}

// Computation is the outcome of pricing a resolved item set.
type Computation struct {
	Total decimal.Decimal
	// MissingPrice holds the indexes of items without a usable unit price,
	// in input order.
	MissingPrice []int
	Shortfalls   []Shortfall
}

// Compute totals the items and flags what still blocks confirmation. It has
// no side effects and depends only on its arguments.
func Compute(in intent.Intent, items []ResolvedItem, amount decimal.Decimal) Computation {
	c := Computation{Total: decimal.Zero}

	if !in.NeedsItems() {
		c.Total = amount
		return c
	}

	for i, it := range items {
		if !it.UnitPrice.IsPositive() {
			c.MissingPrice = append(c.MissingPrice, i)
		} else {
			c.Total = c.Total.Add(it.LineTotal())
		}
	}

	if in.Depletes() {
		c.Shortfalls = shortfalls(items)
	}

	return c
}

// shortfalls compares the quantity requested per catalog item, summed over
// every line naming it, with the stock on hand. Lines without a catalog item
// are checked on their own. Results follow first appearance.
func shortfalls(items []ResolvedItem) []Shortfall {
	requested := make(map[uuid.UUID]int)

	for _, it := range items {
		if it.ItemID != nil {
			requested[*it.ItemID] += it.Quantity
		}
	}

	var out []Shortfall

	seen := make(map[uuid.UUID]bool)

	for _, it := range items {
		want := it.Quantity

		if it.ItemID != nil {
			if seen[*it.ItemID] {
				continue
			}

			seen[*it.ItemID] = true
			want = requested[*it.ItemID]
		}

		if want > it.Available {
			out = append(out, Shortfall{Name: it.Name, Requested: want, Available: it.Available})
		}
	}

	return out
}
