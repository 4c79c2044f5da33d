package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/nlu"
	"github.com/MrJamesThe3rd/khata/internal/pending"
)

type Config struct {
	Currency    string
	ReminderDue time.Duration
}

type Deps struct {
	Pending   PendingStore
	Customers CustomerDirectory
	Catalog   Catalog
	Aliases   AliasResolver
	Ledger    Ledger
	Reminders Reminders
	Extractor nlu.Extractor
	Lexicon   *Lexicon
	Metrics   *Metrics
	Logger    *zap.Logger
}

// Engine is the entry point for chat surfaces. Its methods always produce a
// user-readable Response.
type Engine struct {
	pending     PendingStore
	classifier  *Classifier
	controller  *Controller
	coordinator *Coordinator
	verifier    *Verifier
	render      *Renderer
	metrics     *Metrics
	log         *zap.Logger
}

func NewEngine(cfg Config, deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	lex := deps.Lexicon
	if lex == nil {
		lex = DefaultLexicon()
	}

	render := NewRenderer(cfg.Currency)

	return &Engine{
		pending:    deps.Pending,
		classifier: NewClassifier(lex, deps.Extractor, log),
		controller: &Controller{
			pending:  deps.Pending,
			resolver: NewResolver(deps.Customers, deps.Catalog, deps.Aliases, log),
			catalog:  deps.Catalog,
			ledger:   deps.Ledger,
			lex:      lex,
			render:   render,
			log:      log,
		},
		coordinator: &Coordinator{
			catalog:     deps.Catalog,
			ledger:      deps.Ledger,
			reminders:   deps.Reminders,
			render:      render,
			reminderDue: cfg.ReminderDue,
			metrics:     deps.Metrics,
			log:         log,
		},
		verifier: &Verifier{
			catalog:   deps.Catalog,
			ledger:    deps.Ledger,
			reminders: deps.Reminders,
			metrics:   deps.Metrics,
			log:       log,
		},
		render:  render,
		metrics: deps.Metrics,
		log:     log,
	}
}

// Handle processes one inbound message from the user.
func (e *Engine) Handle(ctx context.Context, userKey, text string) (resp Response) {
	log := e.log.With(zap.String("user", userKey))
	defer e.recoverPanic(log, &resp)

	current, err := e.pending.Current(ctx, userKey)
	if err != nil {
		if !errors.Is(err, pending.ErrNotFound) {
			log.Warn("loading pending action failed", zap.Error(err))
		}

		current = nil
	}

	ev := e.classifier.Classify(ctx, text, current)
	e.metrics.event(eventName(ev))

	switch ev := ev.(type) {
	case ConfirmAnswer:
		return e.Confirm(ctx, userKey, ev.Confirmed, ev.ActionID)
	case PriceAnswer:
		resp, err = e.controller.OnPrice(ctx, userKey, current.Payload.(pending.AwaitingPrice), ev.Amount)
	case PaymentMethodAnswer:
		resp, err = e.controller.OnPaymentMethod(ctx, userKey, current.Payload.(pending.AwaitingPaymentMethod), ev.Method)
	case StockQuery:
		if ev.Interrupts {
			e.abandon(ctx, log, current)
		}

		resp, err = e.controller.Stock(ctx, ev.Text)
	case NewIntent:
		if ev.Interrupts {
			e.abandon(ctx, log, current)
		}

		resp, err = e.controller.Start(ctx, userKey, ev.Draft)
	case Unrecognised:
		if current == nil {
			return Response{Reply: e.render.Help()}
		}

		return e.controller.Reprompt(ctx, current)
	}

	if err != nil {
		log.Info("message not completed", zap.Error(err))
		return ReplyForError(err)
	}

	return resp
}

// Confirm answers the confirm/cancel affordance. A nil actionID targets the
// user's current pending action.
func (e *Engine) Confirm(ctx context.Context, userKey string, confirmed bool, actionID *uuid.UUID) (resp Response) {
	log := e.log.With(zap.String("user", userKey), zap.Bool("confirmed", confirmed))
	defer e.recoverPanic(log, &resp)

	target, err := e.target(ctx, userKey, confirmed, actionID)
	if err != nil {
		e.metrics.confirmation("rejected")
		return ReplyForError(err)
	}

	log = log.With(zap.Stringer("action_id", target.ID))

	if !confirmed {
		if _, err := e.pending.Cancel(ctx, target.ID); err != nil {
			if errors.Is(err, pending.ErrAlreadyProcessed) {
				return ReplyForError(ErrNoPendingAction)
			}

			log.Error("cancelling action failed", zap.Error(err))

			return ReplyForError(err)
		}

		e.metrics.confirmation("cancelled")

		return Response{Reply: e.render.Cancelled()}
	}

	if !target.Final() {
		return e.controller.Reprompt(ctx, target)
	}

	claimed, err := e.pending.Claim(ctx, target.ID)
	if err != nil {
		if errors.Is(err, pending.ErrAlreadyProcessed) {
			e.metrics.confirmation("conflict")
			return ReplyForError(&ConcurrencyConflictError{ActionID: target.ID})
		}

		log.Error("claiming action failed", zap.Error(err))

		return ReplyForError(err)
	}

	res, err := e.coordinator.Execute(ctx, claimed)
	if err != nil {
		e.metrics.confirmation("failed")
		log.Error("executing action failed", zap.Error(err))

		return ReplyForError(err)
	}

	if _, err := e.verifier.Verify(ctx, res); err != nil {
		e.metrics.confirmation("unverified")
		log.Error("post-commit verification failed", zap.Error(err))

		return ReplyForError(err)
	}

	e.metrics.confirmation("confirmed")
	log.Info("action committed", zap.String("intent", string(res.Intent)), zap.String("total", res.Total.String()))

	return Response{Reply: e.render.Receipt(res)}
}

func (e *Engine) target(ctx context.Context, userKey string, confirmed bool, actionID *uuid.UUID) (*pending.Action, error) {
	if actionID != nil {
		a, err := e.pending.Get(ctx, *actionID)
		if errors.Is(err, pending.ErrNotFound) {
			return nil, ErrNoPendingAction
		}

		if err != nil {
			return nil, fmt.Errorf("loading action: %w", err)
		}

		if a.UserKey != userKey {
			return nil, ErrNoPendingAction
		}

		if a.Status != pending.StatusPending {
			if confirmed {
				return nil, &ConcurrencyConflictError{ActionID: a.ID}
			}

			return nil, ErrNoPendingAction
		}

		return a, nil
	}

	a, err := e.pending.Current(ctx, userKey)
	if err == nil {
		return a, nil
	}

	if !errors.Is(err, pending.ErrNotFound) {
		return nil, fmt.Errorf("loading pending action: %w", err)
	}

	if confirmed {
		latest, err := e.pending.Latest(ctx, userKey)
		if err == nil && latest.Status == pending.StatusConfirmed {
			return nil, &ConcurrencyConflictError{ActionID: latest.ID}
		}
	}

	return nil, ErrNoPendingAction
}

// abandon cancels the action an interrupting message replaces.
func (e *Engine) abandon(ctx context.Context, log *zap.Logger, current *pending.Action) {
	if current == nil {
		return
	}

	if _, err := e.pending.Cancel(ctx, current.ID); err != nil && !errors.Is(err, pending.ErrAlreadyProcessed) {
		log.Warn("cancelling interrupted action failed", zap.Stringer("action_id", current.ID), zap.Error(err))
	}
}

func (e *Engine) recoverPanic(log *zap.Logger, resp *Response) {
	if r := recover(); r != nil {
		log.Error("workflow panicked", zap.Any("panic", r), zap.Stack("stack"))
		*resp = ReplyForError(fmt.Errorf("panic: %v", r))
	}
}

func eventName(ev Event) string {
	switch ev.(type) {
	case ConfirmAnswer:
		return "confirm_answer"
	case PriceAnswer:
		return "price_answer"
	case PaymentMethodAnswer:
		return "payment_method_answer"
	case NewIntent:
		return "new_intent"
	case StockQuery:
		return "stock_query"
	default:
		return "unrecognised"
	}
}
