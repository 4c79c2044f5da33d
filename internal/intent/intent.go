// Package intent holds the transaction vocabulary shared by the NLU layer,
// the dialogue workflow and the persisted pending actions.
package intent

import "strings"

type Intent string

const (
	Sale         Intent = "sale"
	SalePaid     Intent = "sale_paid"
	SaleCredit   Intent = "sale_credit"
	Payment      Intent = "payment"
	Purchase     Intent = "purchase"
	Loss         Intent = "loss"
	GeneralQuery Intent = "general_query"
)

// Parse maps a collaborator label onto a known intent. Anything unrecognised
// is a general query.
func Parse(s string) Intent {
	switch i := Intent(strings.ToLower(strings.TrimSpace(s))); i {
	case Sale, SalePaid, SaleCredit, Payment, Purchase, Loss:
		return i
	case "credit", "credit_sale":
		return SaleCredit
	case "cash_sale":
		return SalePaid
	default:
		return GeneralQuery
	}
}

// IsTransaction reports whether the intent ends in a ledger write.
func (i Intent) IsTransaction() bool {
	switch i {
	case Sale, SalePaid, SaleCredit, Payment, Purchase, Loss:
		return true
	}

	return false
}

// Interrupts reports whether the intent abandons an outstanding clarification.
func (i Intent) Interrupts() bool {
	return i.IsTransaction() && i != Payment
}

// NeedsItems reports whether the intent is expressed in line items with unit prices.
func (i Intent) NeedsItems() bool {
	return i.Interrupts()
}

// Depletes reports whether committing the intent lowers stock.
func (i Intent) Depletes() bool {
	switch i {
	case Sale, SalePaid, SaleCredit, Loss:
		return true
	}

	return false
}

// Final reports whether the intent can be executed as is. A generic sale still
// needs a payment method.
func (i Intent) Final() bool {
	return i.IsTransaction() && i != Sale
}

type PaymentMethod string

const (
	Cash    PaymentMethod = "cash"
	Credit  PaymentMethod = "credit"
	Unknown PaymentMethod = "unknown"
)

func ParsePaymentMethod(s string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "paid", "upi", "online":
		return Cash
	case "credit", "udhaar", "udhar", "khata":
		return Credit
	default:
		return Unknown
	}
}

// WithMethod resolves a generic sale into its paid or credit form.
func (i Intent) WithMethod(m PaymentMethod) Intent {
	if i != Sale {
		return i
	}

	switch m {
	case Cash:
		return SalePaid
	case Credit:
		return SaleCredit
	}

	return i
}
