package workflow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/khata/internal/intent"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
	"github.com/MrJamesThe3rd/khata/internal/pending"
)

const maxStockListing = 8

// Renderer formats dialogue prompts, summaries and receipts.
type Renderer struct {
	currency string
}

func NewRenderer(currency string) *Renderer {
	if currency == "" {
		currency = "₹"
	}

	return &Renderer{currency: currency}
}

func (r *Renderer) Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + r.currency + d.Neg().StringFixed(2)
	}

	return r.currency + d.StringFixed(2)
}

func title(in intent.Intent) string {
	switch in {
	case intent.SalePaid:
		return "Cash sale"
	case intent.SaleCredit:
		return "Credit sale"
	case intent.Payment:
		return "Payment"
	case intent.Purchase:
		return "Purchase"
	case intent.Loss:
		return "Loss"
	default:
		return "Sale"
	}
}

func (r *Renderer) PricePrompt(name string) string {
	return fmt.Sprintf("💰 Price needed for *%s*. Enter price (%s per unit):", name, r.currency)
}

func (r *Renderer) PriceReprompt(name string) string {
	return fmt.Sprintf("❓ Please reply with a number. Price of *%s* (%s per unit):", name, r.currency)
}

func (r *Renderer) PaymentPrompt(ls []pending.Line) string {
	var b strings.Builder

	r.writeLines(&b, ls)
	b.WriteString("💳 Is this cash or credit (udhaar)?")

	return b.String()
}

func (r *Renderer) PaymentReprompt() string {
	return "❓ Please reply *cash* or *credit* (udhaar)."
}

// Summary is the confirmation prompt. balance is the customer's outstanding
// amount before this action, when known.
func (r *Renderer) Summary(c pending.AwaitingConfirmation, balance *decimal.Decimal) string {
	var b strings.Builder

	if c.Intent == intent.Payment {
		fmt.Fprintf(&b, "📝 *Payment* from %s: %s\n", c.Party.CustomerName, r.Money(c.Total))
	} else {
		fmt.Fprintf(&b, "📝 *%s*", title(c.Intent))
		if c.Party.CustomerName != "" {
			fmt.Fprintf(&b, " for %s", c.Party.CustomerName)
		}
		b.WriteString("\n")
		r.writeLines(&b, c.Lines)
		fmt.Fprintf(&b, "💰 Total: %s\n", r.Money(c.Total))
	}

	if balance != nil {
		fmt.Fprintf(&b, "📒 Current balance: %s\n", r.Money(*balance))
	}

	b.WriteString("Confirm?")

	return b.String()
}

func (r *Renderer) Receipt(res *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "✅ %s recorded\n", title(res.Intent))
	if res.Party.CustomerName != "" {
		fmt.Fprintf(&b, "👤 %s\n", res.Party.CustomerName)
	}

	r.writeLines(&b, res.Lines)
	fmt.Fprintf(&b, "💰 Total: %s", r.Money(res.Total))

	if res.Balance != nil {
		fmt.Fprintf(&b, "\n📒 Balance due: %s", r.Money(*res.Balance))
	}

	if res.Reminder != nil {
		b.WriteString("\n⏰ Payment reminder scheduled")
	}

	if res.LowStock != nil {
		fmt.Fprintf(&b, "\n⚠️ Low stock: %s (%d %s left)", res.LowStock.Name, res.LowStock.Quantity, res.LowStock.Unit)
	}

	return b.String()
}

func (r *Renderer) writeLines(b *strings.Builder, ls []pending.Line) {
	for _, l := range ls {
		fmt.Fprintf(b, "📦 %s × %d = %s\n", l.Name, l.Quantity, r.Money(l.Total()))
	}
}

func (r *Renderer) StockItem(it *inventory.Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📦 *%s*: %d %s", it.Name, it.Quantity, it.Unit)
	if it.HasPrice() {
		fmt.Fprintf(&b, " @ %s", r.Money(it.UnitPrice))
	}

	if it.IsLow() {
		b.WriteString(" ⚠️ low stock")
	}

	return b.String()
}

func (r *Renderer) StockList(items []*inventory.Item) string {
	if len(items) == 0 {
		return "📦 No items in stock yet."
	}

	var b strings.Builder

	b.WriteString("📦 Stock:")
	for i, it := range items {
		if i == maxStockListing {
			fmt.Fprintf(&b, "\n… and %d more", len(items)-maxStockListing)
			break
		}

		b.WriteString("\n")
		b.WriteString(r.StockItem(it))
	}

	return b.String()
}

func (r *Renderer) Help() string {
	return "🙏 Tell me about a sale, credit (udhaar), payment, purchase or loss. For example: \"2 rice udhaar Asha\" or \"stock rice\"."
}

func (r *Renderer) Cancelled() string {
	return "👍 Action cancelled."
}
