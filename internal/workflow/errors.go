package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNoPendingAction is returned when a confirmation finds nothing to act on.
var ErrNoPendingAction = errors.New("no pending action")

// ValidationError is input the user can fix by rephrasing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// InsufficientStockError blocks a depleting transaction before confirmation.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", s.Name, s.Requested, s.Available)
	}

	return "insufficient stock: " + strings.Join(parts, ", ")
}

// ConcurrencyConflictError means the action left PENDING before this claim.
type ConcurrencyConflictError struct {
	ActionID uuid.UUID
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("action %s already processed", e.ActionID)
}

// PersistenceError is a failed store write during execution. Restored reports
// whether every inventory change of the action was reversed.
type PersistenceError struct {
	Op       string
	Err      error
	Restored bool
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

const opVerify = "verify"

// VerificationWarning is a non-critical row missing after commit.
type VerificationWarning struct {
	Check  string
	Detail string
}

func (w VerificationWarning) Error() string {
	return fmt.Sprintf("verification %s: %s", w.Check, w.Detail)
}

// ReplyForError converts an unrecovered error into the user-facing reply.
func ReplyForError(err error) Response {
	var (
		validation *ValidationError
		stock      *InsufficientStockError
		conflict   *ConcurrencyConflictError
		persist    *PersistenceError
	)

	switch {
	case err == nil:
		return Response{}
	case errors.As(err, &validation):
		return Response{Reply: "❓ " + validation.Message}
	case errors.As(err, &stock):
		return Response{Reply: renderShortfall(stock.Shortfalls)}
	case errors.As(err, &conflict):
		return Response{Reply: "⚠️ This action has already been processed."}
	case errors.Is(err, ErrNoPendingAction):
		return Response{Reply: "❓ No pending action found."}
	case errors.As(err, &persist) && persist.Op == opVerify:
		return Response{Reply: "⚠️ Internal sync error. Please retry."}
	case errors.As(err, &persist) && persist.Restored:
		return Response{Reply: "❌ Transaction failed, inventory restored. Please retry."}
	default:
		return Response{Reply: "❌ Transaction failed, please retry."}
	}
}

func renderShortfall(shortfalls []Shortfall) string {
	var b strings.Builder

	b.WriteString("❌ Insufficient stock:")
	for _, s := range shortfalls {
		fmt.Fprintf(&b, "\n• %s: requested %d, available %d", s.Name, s.Requested, s.Available)
	}

	return b.String()
}
