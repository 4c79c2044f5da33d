package nlu

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	hindiCustomerRe = regexp.MustCompile(`(?i)\b([a-z]{2,})\s+ne\b`)
	prepCustomerRe  = regexp.MustCompile(`(?i)\b(?:for|to|from|by)\s+([a-z]{2,})\b`)
	leadCustomerRe  = regexp.MustCompile(`^([A-Z][a-z]+)\s+(?:paid|took|bought|gave|has|owes|se)\b`)
	amountRe        = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\brupees?)\s*(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)\s*(?:₹|rs\b|rupees?\b|rupay\b)`)
	itemRe          = regexp.MustCompile(`(?i)(\d+)\s*(?:kg|kgs|gm|g|l|ltr|litre|pcs|pc|packets?|x)?\s+(?:of\s+)?([a-z][a-z\-]*)`)
	numberRe        = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

var (
	lossWords     = []string{"loss", "damaged", "damage", "kharab", "expired", "wasted", "waste", "toota", "broken"}
	creditWords   = []string{"udhaar", "udhar", "credit", "khata", "baaki"}
	purchaseWords = []string{"purchase", "purchased", "restock", "restocked", "aaya", "supplier", "stock in"}
	paymentWords  = []string{"paid", "payment", "jama", "de diya", "diya", "mila", "chuka", "received"}
	cashWords     = []string{"cash", "nakad", "upi", "online", "gpay", "paytm", "phonepe"}
	saleWords     = []string{"sale", "sold", "sell", "becha", "bought", "took", "liya", "le gaya", "kharida"}
	// Words that can follow a number but never name an item.
	notItems = []string{
		"rs", "rupee", "rupees", "rupay", "for", "to", "from", "and", "aur", "items", "item",
		"sale", "credit", "cash", "udhaar", "udhar", "paid", "purchase", "loss", "days", "din",
	}
)

// RegexExtractor is the deterministic last-resort extractor. It never fails.
type RegexExtractor struct{}

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

func (RegexExtractor) Extract(_ context.Context, message string) (Record, error) {
	msg := strings.ToLower(message)

	rec := Record{
		Intent:      "general_query",
		PaymentType: "unknown",
		Entities: Entities{
			CustomerName: customerName(message),
			Items:        items(message),
			Amount:       Number(amount(message)),
		},
	}

	hasItems := len(rec.Entities.Items) > 0

	switch {
	case containsAny(msg, lossWords) && hasItems:
		rec.Intent = "loss"
	case containsAny(msg, creditWords) && hasItems:
		rec.Intent = "sale_credit"
		rec.PaymentType = "credit"
	case containsAny(msg, purchaseWords) && hasItems:
		rec.Intent = "purchase"
	case containsAny(msg, paymentWords) && !hasItems:
		rec.Intent = "payment"
		if rec.Entities.Amount == 0 {
			rec.Entities.Amount = Number(firstNumber(msg))
		}
	case (containsAny(msg, cashWords) || containsAny(msg, paymentWords)) && hasItems:
		rec.Intent = "sale_paid"
		rec.PaymentType = "cash"
	case containsAny(msg, saleWords) && hasItems, hasItems && rec.Entities.CustomerName != "":
		rec.Intent = "sale"
	}

	rec.Response = ack(rec)

	return rec, nil
}

func containsAny(msg string, words []string) bool {
	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(msg, w) {
				return true
			}

			continue
		}

		for _, f := range strings.FieldsFunc(msg, notLetter) {
			if f == w {
				return true
			}
		}
	}

	return false
}

func notLetter(r rune) bool {
	return (r < 'a' || r > 'z') && (r < 'A' || r > 'Z')
}

func isKeyword(w string) bool {
	w = strings.ToLower(w)
	for _, set := range [][]string{lossWords, creditWords, purchaseWords, paymentWords, cashWords, saleWords, notItems} {
		for _, k := range set {
			if k == w {
				return true
			}
		}
	}

	return false
}

func customerName(message string) string {
	for _, re := range []*regexp.Regexp{hindiCustomerRe, leadCustomerRe, prepCustomerRe} {
		m := re.FindStringSubmatch(message)
		if m == nil || isKeyword(m[1]) {
			continue
		}

		return strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
	}

	return ""
}

func items(message string) []Item {
	var out []Item

	for _, m := range itemRe.FindAllStringSubmatch(message, -1) {
		if isKeyword(m[2]) {
			continue
		}

		qty, err := strconv.Atoi(m[1])
		if err != nil || qty <= 0 {
			qty = 1
		}

		out = append(out, Item{Name: m[2], Quantity: Number(qty)})
	}

	return out
}

func amount(message string) float64 {
	m := amountRe.FindStringSubmatch(message)
	if m == nil {
		return 0
	}

	s := m[1]
	if s == "" {
		s = m[2]
	}

	f, _ := strconv.ParseFloat(s, 64)

	return f
}

func firstNumber(msg string) float64 {
	f, _ := strconv.ParseFloat(numberRe.FindString(msg), 64)
	return f
}

func ack(rec Record) string {
	switch rec.Intent {
	case "general_query":
		return ""
	case "payment":
		return fmt.Sprintf("Payment of %v noted.", float64(rec.Entities.Amount))
	}

	names := make([]string, len(rec.Entities.Items))
	for i, it := range rec.Entities.Items {
		names[i] = fmt.Sprintf("%v %s", float64(it.Quantity), it.Name)
	}

	return strings.Join(names, " + ")
}
