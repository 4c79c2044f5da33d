package workflow

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/intent"
	"github.com/MrJamesThe3rd/khata/internal/nlu"
	"github.com/MrJamesThe3rd/khata/internal/pending"
)

// Event is an inbound message interpreted against the current dialogue stage.
type Event interface {
	event()
}

type ConfirmAnswer struct {
	Confirmed bool
	// ActionID targets a specific pending action. Nil means the current one.
	ActionID *uuid.UUID
}

type PriceAnswer struct {
	Amount decimal.Decimal
}

type PaymentMethodAnswer struct {
	Method intent.PaymentMethod
}

// NewIntent starts a fresh transaction. Interrupts is set when it abandons an
// outstanding clarification.
type NewIntent struct {
	Draft      Draft
	Interrupts bool
}

type StockQuery struct {
	Text       string
	Interrupts bool
}

// Unrecognised is a message that does not answer the outstanding question.
type Unrecognised struct {
	Text string
}

func (ConfirmAnswer) event()       {}
func (PriceAnswer) event()         {}
func (PaymentMethodAnswer) event() {}
func (NewIntent) event()           {}
func (StockQuery) event()          {}
func (Unrecognised) event()        {}

var priceToken = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParsePrice reads the first number in text as a unit price.
func ParsePrice(text string) (decimal.Decimal, bool) {
	tok := priceToken.FindString(text)
	if tok == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(tok, ",", ""))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}

	return d.Round(2), true
}

// Classifier turns a free-text message into an Event for the stage the user
// is currently parked in.
type Classifier struct {
	lex       *Lexicon
	extractor nlu.Extractor
	log       *zap.Logger
}

func NewClassifier(lex *Lexicon, extractor nlu.Extractor, log *zap.Logger) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Classifier{lex: lex, extractor: extractor, log: log}
}

func (c *Classifier) Classify(ctx context.Context, text string, current *pending.Action) Event {
	if confirmed, ok := c.lex.Answer(text); ok {
		return ConfirmAnswer{Confirmed: confirmed}
	}

	if current != nil {
		switch current.Payload.(type) {
		case pending.AwaitingPrice:
			if amount, ok := ParsePrice(text); ok {
				return PriceAnswer{Amount: amount}
			}

			return Unrecognised{Text: text}
		case pending.AwaitingPaymentMethod:
			return c.classifyPaymentAnswer(ctx, text)
		}
	}

	if c.lex.IsStockQuery(text) {
		return StockQuery{Text: text}
	}

	d := c.extract(ctx, text)

	return NewIntent{Draft: d, Interrupts: current != nil && d.Intent.IsTransaction()}
}

func (c *Classifier) classifyPaymentAnswer(ctx context.Context, text string) Event {
	if m := c.lex.PaymentMethod(text); m != intent.Unknown && len(tokens(text)) <= 3 {
		return PaymentMethodAnswer{Method: m}
	}

	if c.lex.IsStockQuery(text) {
		return StockQuery{Text: text, Interrupts: true}
	}

	d := c.extract(ctx, text)
	if d.Intent.Interrupts() || c.lex.IsReturn(text) {
		return NewIntent{Draft: d, Interrupts: true}
	}

	if m := c.lex.PaymentMethod(text); m != intent.Unknown {
		return PaymentMethodAnswer{Method: m}
	}

	return Unrecognised{Text: text}
}

func (c *Classifier) extract(ctx context.Context, text string) Draft {
	rec, err := c.extractor.Extract(ctx, text)
	if err != nil {
		c.log.Warn("extraction failed", zap.Error(err))
		return Draft{Intent: intent.GeneralQuery}
	}

	return Normalize(rec)
}
