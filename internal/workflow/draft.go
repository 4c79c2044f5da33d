package workflow

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/khata/internal/intent"
	"github.com/MrJamesThe3rd/khata/internal/nlu"
	"github.com/MrJamesThe3rd/khata/internal/pending"
)

// DraftItem is a line item as the user described it.
type DraftItem struct {
	Name          string
	Quantity      int
	PriceOverride decimal.Decimal
	// Source of PriceOverride. Zero means the user stated it.
	Source pending.PriceSource
	// ItemID pins the line to a catalog item resolved in an earlier stage.
	ItemID *uuid.UUID
}

// Draft is a parsed but unresolved transaction.
type Draft struct {
	Intent intent.Intent
	Method intent.PaymentMethod
	Party  pending.Party
	Items  []DraftItem
	Amount decimal.Decimal
	// Reply is the extractor's own answer, used for general queries.
	Reply string
}

// Normalize turns an extraction record into a draft with canonical labels,
// positive integer quantities and non-negative money.
func Normalize(rec nlu.Record) Draft {
	d := Draft{
		Intent: intent.Parse(rec.Intent),
		Method: intent.ParsePaymentMethod(rec.PaymentType),
		Party:  pending.Party{CustomerName: strings.TrimSpace(rec.Entities.CustomerName)},
		Amount: money(rec.Entities.Amount),
		Reply:  strings.TrimSpace(rec.Response),
	}

	switch d.Intent {
	case intent.SaleCredit:
		d.Method = intent.Credit
	case intent.SalePaid:
		d.Method = intent.Cash
	case intent.Sale:
		d.Intent = d.Intent.WithMethod(d.Method)
	}

	for _, it := range rec.Entities.Items {
		name := strings.Join(strings.Fields(it.Name), " ")
		if name == "" {
			continue
		}

		qty := int(math.Round(float64(it.Quantity)))
		if qty <= 0 {
			qty = 1
		}

		item := DraftItem{Name: name, Quantity: qty}
		if price := money(it.Price); price.IsPositive() {
			item.PriceOverride = price
			item.Source = pending.PriceOverride
		}

		d.Items = append(d.Items, item)
	}

	return d
}

func money(n nlu.Number) decimal.Decimal {
	f := float64(n)
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}

	return decimal.NewFromFloat(f).Round(2)
}

// draftItems turns parked lines back into draft items. Catalog prices are
// looked up again; prices the user supplied are carried over.
func draftItems(lines []pending.Line) []DraftItem {
	items := make([]DraftItem, len(lines))

	for i, l := range lines {
		items[i] = DraftItem{
			Name:     l.RawName,
			Quantity: l.Quantity,
			ItemID:   l.ItemID,
		}

		if l.PriceSource.Learned() && l.UnitPrice.IsPositive() {
			items[i].PriceOverride = l.UnitPrice
			items[i].Source = l.PriceSource
		}
	}

	return items
}
