package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/customer"
	customerstore "github.com/MrJamesThe3rd/khata/internal/customer/store"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
	inventorystore "github.com/MrJamesThe3rd/khata/internal/inventory/store"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
	ledgerstore "github.com/MrJamesThe3rd/khata/internal/ledger/store"
	"github.com/MrJamesThe3rd/khata/internal/matching"
	matchingstore "github.com/MrJamesThe3rd/khata/internal/matching/store"
	"github.com/MrJamesThe3rd/khata/internal/nlu"
	"github.com/MrJamesThe3rd/khata/internal/pending"
	pendingstore "github.com/MrJamesThe3rd/khata/internal/pending/store"
	"github.com/MrJamesThe3rd/khata/internal/reminder"
	reminderstore "github.com/MrJamesThe3rd/khata/internal/reminder/store"
	"github.com/MrJamesThe3rd/khata/internal/testutil"
	"github.com/MrJamesThe3rd/khata/internal/workflow"
)

const user = "whatsapp:+919800000001"

type harness struct {
	engine    *workflow.Engine
	extractor *nlu.MockExtractor
	pending   *pending.Service
	catalog   *inventory.Service
	customers *customer.Service
	ledger    *ledger.Service
	reminders *reminder.Service
	aliases   *matching.Service
}

func newHarness(t *testing.T, wrap ...func(*workflow.Deps)) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	db := testutil.NewSQLite(t)

	h := &harness{
		extractor: nlu.NewMockExtractor(ctrl),
		pending:   pending.NewService(pendingstore.New(db, config.DriverSQLite)),
		catalog:   inventory.NewService(inventorystore.New(db), 10),
		customers: customer.NewService(customerstore.New(db, config.DriverSQLite), "IN"),
		ledger:    ledger.NewService(ledgerstore.New(db)),
		reminders: reminder.NewService(reminderstore.New(db)),
		aliases:   matching.NewService(matchingstore.New(db)),
	}

	deps := workflow.Deps{
		Pending:   h.pending,
		Customers: h.customers,
		Catalog:   h.catalog,
		Aliases:   h.aliases,
		Ledger:    h.ledger,
		Reminders: h.reminders,
		Extractor: h.extractor,
	}

	for _, w := range wrap {
		w(&deps)
	}

	h.engine = workflow.NewEngine(workflow.Config{Currency: "₹", ReminderDue: 7 * 24 * time.Hour}, deps)

	return h
}

func (h *harness) expect(message string, rec nlu.Record) {
	h.extractor.EXPECT().Extract(gomock.Any(), message).Return(rec, nil)
}

func (h *harness) item(t *testing.T, name string, qty int, price int64) *inventory.Item {
	t.Helper()

	it, err := h.catalog.Create(context.Background(), inventory.CreateParams{
		Name:      name,
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(price),
	})
	require.NoError(t, err)

	return it
}

func (h *harness) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()

	it, err := h.catalog.Get(context.Background(), id)
	require.NoError(t, err)

	return it.Quantity
}

func (h *harness) assertNoPending(t *testing.T) {
	t.Helper()

	_, err := h.pending.Current(context.Background(), user)
	assert.ErrorIs(t, err, pending.ErrNotFound)
}

func record(in string, customerName string, items ...nlu.Item) nlu.Record {
	return nlu.Record{
		Intent:   in,
		Entities: nlu.Entities{CustomerName: customerName, Items: items},
	}
}

func TestEngine_CreditSale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := h.item(t, "Rice", 10, 60)

	h.expect("2 Rice credit sale for Asha", record("sale_credit", "Asha", nlu.Item{Name: "Rice", Quantity: 2}))

	resp := h.engine.Handle(ctx, user, "2 Rice credit sale for Asha")
	require.True(t, resp.ShowButtons, resp.Reply)
	require.NotNil(t, resp.ActionID)
	assert.Contains(t, resp.Reply, "Rice × 2 = ₹120.00")
	assert.Len(t, resp.Buttons, 2)

	resp = h.engine.Handle(ctx, user, "yes")
	assert.Contains(t, resp.Reply, "Credit sale recorded")
	assert.Contains(t, resp.Reply, "Balance due: ₹120.00")

	asha, err := h.customers.Find(ctx, "Asha")
	require.NoError(t, err)

	entries, err := h.ledger.List(ctx, ledger.ListFilter{CustomerID: &asha.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.TypeSaleCredit, entries[0].Type)
	assert.True(t, decimal.NewFromInt(120).Equal(entries[0].Amount))

	assert.Equal(t, 8, h.stock(t, rice.ID))

	status := reminder.StatusPending
	rs, err := h.reminders.List(ctx, reminder.ListFilter{CustomerID: &asha.ID, Status: &status})
	require.NoError(t, err)
	assert.Len(t, rs, 1)

	h.assertNoPending(t)
}

func TestEngine_PriceClarification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	atta := h.item(t, "Atta", 5, 0)

	h.expect("2 Atta purchase", record("purchase", "", nlu.Item{Name: "Atta", Quantity: 2}))

	resp := h.engine.Handle(ctx, user, "2 Atta purchase")
	assert.Contains(t, resp.Reply, "Price needed for *Atta*")
	assert.False(t, resp.ShowButtons)

	resp = h.engine.Handle(ctx, user, "chalees")
	assert.Contains(t, resp.Reply, "Please reply with a number")

	resp = h.engine.Handle(ctx, user, "40")
	require.True(t, resp.ShowButtons, resp.Reply)
	assert.Contains(t, resp.Reply, "Total: ₹80.00")

	resp = h.engine.Handle(ctx, user, "haan")
	assert.Contains(t, resp.Reply, "Purchase recorded")

	entries, err := h.ledger.List(ctx, ledger.ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.TypePurchase, entries[0].Type)
	assert.True(t, decimal.NewFromInt(80).Equal(entries[0].Amount))

	got, err := h.catalog.Get(ctx, atta.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
	assert.True(t, decimal.NewFromInt(40).Equal(got.UnitPrice), "answered price is learned")
}

func TestEngine_PurchaseOfNewItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.expect("5 Poha purchase at 30", record("purchase", "", nlu.Item{Name: "Poha", Quantity: 5, Price: 30}))

	resp := h.engine.Handle(ctx, user, "5 Poha purchase at 30")
	require.True(t, resp.ShowButtons, resp.Reply)

	resp = h.engine.Handle(ctx, user, "ok")
	assert.Contains(t, resp.Reply, "Purchase recorded")

	poha, err := h.catalog.Match(ctx, "Poha")
	require.NoError(t, err)
	assert.Equal(t, 5, poha.Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(poha.UnitPrice))
}

func TestEngine_ShortfallBlocksBeforeConfirmation(t *testing.T) {
	h := newHarness(t)
	milk := h.item(t, "Milk", 1, 30)

	h.expect("sale of 5 Milk", record("sale", "", nlu.Item{Name: "Milk", Quantity: 5}))

	resp := h.engine.Handle(context.Background(), user, "sale of 5 Milk")
	assert.Contains(t, resp.Reply, "Insufficient stock")
	assert.Contains(t, resp.Reply, "requested 5, available 1")
	assert.False(t, resp.ShowButtons)

	h.assertNoPending(t)
	assert.Equal(t, 1, h.stock(t, milk.ID))
}

func TestEngine_ConcurrentConfirmations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := h.item(t, "Rice", 10, 60)

	h.expect("3 rice cash", record("sale_paid", "", nlu.Item{Name: "rice", Quantity: 3}))

	resp := h.engine.Handle(ctx, user, "3 rice cash")
	require.NotNil(t, resp.ActionID, resp.Reply)

	const workers = 2

	var (
		wg      sync.WaitGroup
		replies = make([]string, workers)
	)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()
			replies[i] = h.engine.Confirm(ctx, user, true, resp.ActionID).Reply
		}()
	}

	wg.Wait()

	var receipts, conflicts int

	for _, r := range replies {
		switch {
		case strings.Contains(r, "Cash sale recorded"):
			receipts++
		case strings.Contains(r, "already been processed"):
			conflicts++
		}
	}

	assert.Equal(t, 1, receipts, replies)
	assert.Equal(t, 1, conflicts, replies)
	assert.Equal(t, 7, h.stock(t, rice.ID))

	n, err := h.ledger.CountForAction(ctx, *resp.ActionID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEngine_PaymentMethodQuestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	biscuit := h.item(t, "Biscuit", 20, 10)

	h.expect("2 biscuit", record("sale", "", nlu.Item{Name: "biscuit", Quantity: 2}))

	resp := h.engine.Handle(ctx, user, "2 biscuit")
	assert.Contains(t, resp.Reply, "cash or credit")

	resp = h.engine.Handle(ctx, user, "yes")
	assert.Contains(t, resp.Reply, "Please reply *cash* or *credit*")

	resp = h.engine.Handle(ctx, user, "nakad")
	require.True(t, resp.ShowButtons, resp.Reply)
	assert.Contains(t, resp.Reply, "*Cash sale*")

	resp = h.engine.Confirm(ctx, user, true, nil)
	assert.Contains(t, resp.Reply, "Cash sale recorded")
	assert.Equal(t, 18, h.stock(t, biscuit.ID))
}

func TestEngine_InterruptionCancelsOutstandingQuestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.item(t, "Biscuit", 20, 10)
	h.item(t, "Rice", 10, 60)

	h.expect("2 biscuit", record("sale", "", nlu.Item{Name: "biscuit", Quantity: 2}))

	first := h.engine.Handle(ctx, user, "2 biscuit")
	require.NotNil(t, first.ActionID)

	h.expect("3 rice udhaar for Asha", record("sale_credit", "Asha", nlu.Item{Name: "rice", Quantity: 3}))

	second := h.engine.Handle(ctx, user, "3 rice udhaar for Asha")
	require.True(t, second.ShowButtons, second.Reply)
	assert.Contains(t, second.Reply, "*Credit sale* for Asha")

	old, err := h.pending.Get(ctx, *first.ActionID)
	require.NoError(t, err)
	assert.Equal(t, pending.StatusCancelled, old.Status)

	current, err := h.pending.Current(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, *second.ActionID, current.ID)
}

func TestEngine_StockQueryDuringPaymentQuestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.item(t, "Biscuit", 20, 10)
	h.item(t, "Rice", 4, 60)

	h.expect("2 biscuit", record("sale", "", nlu.Item{Name: "biscuit", Quantity: 2}))
	h.engine.Handle(ctx, user, "2 biscuit")

	resp := h.engine.Handle(ctx, user, "rice kitna bacha hai")
	assert.Contains(t, resp.Reply, "*Rice*: 4 pcs")
	assert.Contains(t, resp.Reply, "low stock")

	h.assertNoPending(t)
}

func TestEngine_CancelAndStaleConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := h.item(t, "Rice", 10, 60)

	h.expect("2 rice cash", record("sale_paid", "", nlu.Item{Name: "rice", Quantity: 2}))

	resp := h.engine.Handle(ctx, user, "2 rice cash")
	require.NotNil(t, resp.ActionID)

	assert.Equal(t, "👍 Action cancelled.", h.engine.Handle(ctx, user, "nahi").Reply)
	assert.Equal(t, "❓ No pending action found.", h.engine.Handle(ctx, user, "no").Reply)
	assert.Contains(t, h.engine.Confirm(ctx, user, true, resp.ActionID).Reply, "already been processed")
	assert.Equal(t, "❓ No pending action found.", h.engine.Handle(ctx, user, "yes").Reply)
	assert.Equal(t, 10, h.stock(t, rice.ID))
}

func TestEngine_ConfirmAfterCommitIsAlreadyProcessed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.item(t, "Rice", 10, 60)

	h.expect("1 rice cash", record("sale_paid", "", nlu.Item{Name: "rice", Quantity: 1}))
	h.engine.Handle(ctx, user, "1 rice cash")
	h.engine.Handle(ctx, user, "yes")

	assert.Equal(t, "⚠️ This action has already been processed.", h.engine.Handle(ctx, user, "yes").Reply)
}

func TestEngine_ConfirmIgnoresOtherUsersAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.item(t, "Rice", 10, 60)

	h.expect("1 rice cash", record("sale_paid", "", nlu.Item{Name: "rice", Quantity: 1}))
	resp := h.engine.Handle(ctx, user, "1 rice cash")
	require.NotNil(t, resp.ActionID)

	got := h.engine.Confirm(ctx, "someone-else", true, resp.ActionID)
	assert.Equal(t, "❓ No pending action found.", got.Reply)
}

func TestEngine_Payment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.item(t, "Rice", 10, 60)

	h.expect("3 rice udhaar Ravi", record("sale_credit", "Ravi", nlu.Item{Name: "rice", Quantity: 3}))
	h.engine.Handle(ctx, user, "3 rice udhaar Ravi")
	h.engine.Handle(ctx, user, "yes")

	h.expect("Ravi paid 100", nlu.Record{Intent: "payment", Entities: nlu.Entities{CustomerName: "Ravi", Amount: 100}})

	resp := h.engine.Handle(ctx, user, "Ravi paid 100")
	require.True(t, resp.ShowButtons, resp.Reply)
	assert.Contains(t, resp.Reply, "*Payment* from Ravi: ₹100.00")
	assert.Contains(t, resp.Reply, "Current balance: ₹180.00")

	resp = h.engine.Handle(ctx, user, "yes")
	assert.Contains(t, resp.Reply, "Payment recorded")
	assert.Contains(t, resp.Reply, "Balance due: ₹80.00")

	ravi, err := h.customers.Find(ctx, "Ravi")
	require.NoError(t, err)

	b, err := h.ledger.Balance(ctx, ravi.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(b.Outstanding()))
}

func TestEngine_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.expect("Ravi paid", nlu.Record{Intent: "payment", Entities: nlu.Entities{CustomerName: "Ravi"}})
	assert.Contains(t, h.engine.Handle(ctx, user, "Ravi paid").Reply, "How much was paid?")

	h.expect("sale karo", nlu.Record{Intent: "sale"})
	assert.Contains(t, h.engine.Handle(ctx, user, "sale karo").Reply, "Which items?")

	h.expect("namaste", nlu.Record{Intent: "general_query", Response: "Namaste! How can I help?"})
	assert.Equal(t, "Namaste! How can I help?", h.engine.Handle(ctx, user, "namaste").Reply)

	h.extractor.EXPECT().Extract(gomock.Any(), "???").Return(nlu.Record{}, nlu.ErrMalformed)
	assert.Contains(t, h.engine.Handle(ctx, user, "???").Reply, "Tell me about a sale")

	h.assertNoPending(t)
}

type failingLedger struct {
	workflow.Ledger
	err error
}

func (f failingLedger) Append(context.Context, []*ledger.Entry) error {
	return f.err
}

func TestEngine_LedgerFailureRestoresEveryItem(t *testing.T) {
	h := newHarness(t, func(d *workflow.Deps) {
		d.Ledger = failingLedger{Ledger: d.Ledger, err: errors.New("disk full")}
	})
	ctx := context.Background()
	rice := h.item(t, "Rice", 10, 60)
	dal := h.item(t, "Dal", 5, 90)

	h.expect("2 rice 1 dal cash", record("sale_paid", "",
		nlu.Item{Name: "rice", Quantity: 2},
		nlu.Item{Name: "dal", Quantity: 1},
	))

	summary := h.engine.Handle(ctx, user, "2 rice 1 dal cash")
	require.NotNil(t, summary.ActionID, summary.Reply)
	assert.Contains(t, summary.Reply, "Total: ₹210.00")

	resp := h.engine.Handle(ctx, user, "yes")
	assert.Contains(t, resp.Reply, "inventory restored")

	assert.Equal(t, 10, h.stock(t, rice.ID))
	assert.Equal(t, 5, h.stock(t, dal.ID))

	a, err := h.pending.Get(ctx, *summary.ActionID)
	require.NoError(t, err)
	assert.Equal(t, pending.StatusConfirmed, a.Status)
}

func TestEngine_StockDrainedAfterConfirmationPrompt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := h.item(t, "Rice", 10, 60)
	dal := h.item(t, "Dal", 5, 90)

	h.expect("2 rice 3 dal cash", record("sale_paid", "",
		nlu.Item{Name: "rice", Quantity: 2},
		nlu.Item{Name: "dal", Quantity: 3},
	))

	summary := h.engine.Handle(ctx, user, "2 rice 3 dal cash")
	require.True(t, summary.ShowButtons, summary.Reply)

	_, err := h.catalog.Adjust(ctx, dal.ID, -4)
	require.NoError(t, err)

	resp := h.engine.Confirm(ctx, user, true, summary.ActionID)
	assert.Contains(t, resp.Reply, "Insufficient stock")
	assert.Contains(t, resp.Reply, "Dal: requested 3, available 1")

	assert.Equal(t, 10, h.stock(t, rice.ID))
	assert.Equal(t, 1, h.stock(t, dal.ID))

	n, err := h.ledger.CountForAction(ctx, *summary.ActionID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngine_LearnedAliasResolvesItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	milk := h.item(t, "Milk", 12, 28)

	require.NoError(t, h.aliases.Learn(ctx, "doodh", "Milk"))

	h.expect("2 doodh cash", record("sale_paid", "", nlu.Item{Name: "doodh", Quantity: 2}))

	resp := h.engine.Handle(ctx, user, "2 doodh cash")
	require.True(t, resp.ShowButtons, resp.Reply)
	assert.Contains(t, resp.Reply, "Milk × 2 = ₹56.00")

	h.engine.Handle(ctx, user, "yes")
	assert.Equal(t, 10, h.stock(t, milk.ID))
}

func TestEngine_RepeatedItemShortfallBlocksBeforeConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := h.item(t, "Rice", 4, 60)

	h.expect("2 rice 3 Rice cash", record("sale_paid", "",
		nlu.Item{Name: "rice", Quantity: 2},
		nlu.Item{Name: "Rice", Quantity: 3},
	))

	resp := h.engine.Handle(ctx, user, "2 rice 3 Rice cash")
	assert.False(t, resp.ShowButtons, resp.Reply)
	assert.Contains(t, resp.Reply, "Rice: requested 5, available 4")

	h.assertNoPending(t)
	assert.Equal(t, 4, h.stock(t, rice.ID))
}

func TestEngine_RepeatedItemDrainedAfterPromptReportsTotalDemand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := h.item(t, "Rice", 4, 60)

	h.expect("2 rice 1 rice cash", record("sale_paid", "",
		nlu.Item{Name: "rice", Quantity: 2},
		nlu.Item{Name: "rice", Quantity: 1},
	))

	summary := h.engine.Handle(ctx, user, "2 rice 1 rice cash")
	require.True(t, summary.ShowButtons, summary.Reply)

	_, err := h.catalog.Adjust(ctx, rice.ID, -2)
	require.NoError(t, err)

	resp := h.engine.Confirm(ctx, user, true, summary.ActionID)
	assert.Contains(t, resp.Reply, "Rice: requested 3, available 2")
	assert.Equal(t, 2, h.stock(t, rice.ID))
}

type uncountedLedger struct {
	workflow.Ledger
}

func (uncountedLedger) CountForAction(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

func TestEngine_MissingLedgerRowAfterCommitIsSyncError(t *testing.T) {
	h := newHarness(t, func(d *workflow.Deps) {
		d.Ledger = uncountedLedger{Ledger: d.Ledger}
	})
	ctx := context.Background()
	rice := h.item(t, "Rice", 10, 60)

	h.expect("2 rice cash", record("sale_paid", "", nlu.Item{Name: "rice", Quantity: 2}))

	summary := h.engine.Handle(ctx, user, "2 rice cash")
	require.True(t, summary.ShowButtons, summary.Reply)

	resp := h.engine.Handle(ctx, user, "yes")
	assert.Equal(t, "⚠️ Internal sync error. Please retry.", resp.Reply)

	// Detection only: the commit stands.
	assert.Equal(t, 8, h.stock(t, rice.ID))

	n, err := h.ledger.CountForAction(ctx, *summary.ActionID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type flakyReminders struct {
	workflow.Reminders
	scheduleErr error
	pendingErr  error
	noPending   bool
}

func (f flakyReminders) Schedule(ctx context.Context, customerID uuid.UUID, message string, dueIn time.Duration) (*reminder.Reminder, error) {
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}

	return f.Reminders.Schedule(ctx, customerID, message, dueIn)
}

func (f flakyReminders) HasPending(ctx context.Context, customerID uuid.UUID) (bool, error) {
	if f.pendingErr != nil {
		return false, f.pendingErr
	}

	if f.noPending {
		return false, nil
	}

	return f.Reminders.HasPending(ctx, customerID)
}

func TestEngine_ReminderProblemsDoNotFailCreditSale(t *testing.T) {
	type testCase struct {
		name         string
		reminders    flakyReminders
		wantReminder bool
	}

	tests := []testCase{
		{
			name:      "ScheduleFails",
			reminders: flakyReminders{scheduleErr: errors.New("reminders table locked")},
		},
		{
			name:         "ReminderNotFoundAfterCommit",
			reminders:    flakyReminders{noPending: true},
			wantReminder: true,
		},
		{
			name:         "ReminderCheckFails",
			reminders:    flakyReminders{pendingErr: errors.New("connection reset")},
			wantReminder: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(d *workflow.Deps) {
				r := tt.reminders
				r.Reminders = d.Reminders
				d.Reminders = r
			})
			ctx := context.Background()
			rice := h.item(t, "Rice", 10, 60)

			h.expect("2 rice udhaar Asha", record("sale_credit", "Asha", nlu.Item{Name: "rice", Quantity: 2}))

			summary := h.engine.Handle(ctx, user, "2 rice udhaar Asha")
			require.True(t, summary.ShowButtons, summary.Reply)

			resp := h.engine.Handle(ctx, user, "yes")
			assert.Contains(t, resp.Reply, "✅ Credit sale recorded")
			assert.Contains(t, resp.Reply, "Balance due: ₹120.00")
			assert.Equal(t, tt.wantReminder, strings.Contains(resp.Reply, "reminder scheduled"), resp.Reply)

			assert.Equal(t, 8, h.stock(t, rice.ID))
		})
	}
}

type priceRejectingCatalog struct {
	workflow.Catalog
}

func (priceRejectingCatalog) SetPrice(context.Context, uuid.UUID, decimal.Decimal) error {
	return errors.New("catalog is read-only")
}

func TestEngine_LearningPriceFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, func(d *workflow.Deps) {
		d.Catalog = priceRejectingCatalog{Catalog: d.Catalog}
	})
	ctx := context.Background()
	atta := h.item(t, "Atta", 5, 0)

	h.expect("2 Atta purchase", record("purchase", "", nlu.Item{Name: "Atta", Quantity: 2}))

	resp := h.engine.Handle(ctx, user, "2 Atta purchase")
	assert.Contains(t, resp.Reply, "Price needed for *Atta*")

	resp = h.engine.Handle(ctx, user, "40")
	require.True(t, resp.ShowButtons, resp.Reply)

	resp = h.engine.Handle(ctx, user, "yes")
	assert.Contains(t, resp.Reply, "Purchase recorded")

	got, err := h.catalog.Get(ctx, atta.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
	assert.True(t, got.UnitPrice.IsZero(), "price was not learned")
}
