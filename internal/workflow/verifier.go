package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/intent"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
)

// Verifier re-reads the rows a commit should have produced. It only detects;
// it never changes stored data.
type Verifier struct {
	catalog   Catalog
	ledger    Ledger
	reminders Reminders
	metrics   *Metrics
	log       *zap.Logger
}

// Verify returns warnings for missing non-critical rows, and a
// PersistenceError when a ledger entry or the inventory row is missing.
// Rows that cannot be read are reported as warnings.
func (v *Verifier) Verify(ctx context.Context, res *Result) ([]VerificationWarning, error) {
	var warnings []VerificationWarning

	warn := func(check, detail string) {
		w := VerificationWarning{Check: check, Detail: detail}
		warnings = append(warnings, w)
		v.metrics.warning(check)
		v.log.Warn("post-commit check", zap.Stringer("action_id", res.ActionID), zap.Error(w))
	}

	n, err := v.ledger.CountForAction(ctx, res.ActionID)
	switch {
	case err != nil:
		warn("ledger", err.Error())
	case n != len(res.Entries):
		return warnings, &PersistenceError{
			Op:  opVerify,
			Err: fmt.Errorf("expected %d ledger entries, found %d", len(res.Entries), n),
		}
	}

	if len(res.Lines) > 0 && res.Lines[0].ItemID != nil {
		_, err := v.catalog.Get(ctx, *res.Lines[0].ItemID)
		switch {
		case errors.Is(err, inventory.ErrNotFound):
			return warnings, &PersistenceError{Op: opVerify, Err: fmt.Errorf("inventory item %q missing", res.Lines[0].Name)}
		case err != nil:
			warn("inventory", err.Error())
		}
	}

	if res.Intent == intent.SaleCredit && res.Party.CustomerID != nil {
		ok, err := v.reminders.HasPending(ctx, *res.Party.CustomerID)
		switch {
		case err != nil:
			warn("reminder", err.Error())
		case !ok:
			warn("reminder", "no pending reminder for "+res.Party.CustomerName)
		}
	}

	return warnings, nil
}
