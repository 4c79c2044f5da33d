package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/customer"
	customerstore "github.com/MrJamesThe3rd/khata/internal/customer/store"
	"github.com/MrJamesThe3rd/khata/internal/export"
	khttp "github.com/MrJamesThe3rd/khata/internal/http"
	"github.com/MrJamesThe3rd/khata/internal/http/auth"
	"github.com/MrJamesThe3rd/khata/internal/http/chat"
	customerhttp "github.com/MrJamesThe3rd/khata/internal/http/customer"
	exporthttp "github.com/MrJamesThe3rd/khata/internal/http/export"
	"github.com/MrJamesThe3rd/khata/internal/http/importcsv"
	inventoryhttp "github.com/MrJamesThe3rd/khata/internal/http/inventory"
	ledgerhttp "github.com/MrJamesThe3rd/khata/internal/http/ledger"
	matchinghttp "github.com/MrJamesThe3rd/khata/internal/http/matching"
	reminderhttp "github.com/MrJamesThe3rd/khata/internal/http/reminder"
	"github.com/MrJamesThe3rd/khata/internal/idempotency"
	"github.com/MrJamesThe3rd/khata/internal/importer"
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

const secret = "test-secret"

type server struct {
	handler   http.Handler
	extractor *nlu.MockExtractor
	catalog   *inventory.Service
	customers *customer.Service
}

func newServer(t *testing.T, opts khttp.Options) *server {
	t.Helper()

	ctrl := gomock.NewController(t)
	db := testutil.NewSQLite(t)
	log := zap.NewNop()

	s := &server{
		extractor: nlu.NewMockExtractor(ctrl),
		catalog:   inventory.NewService(inventorystore.New(db), 10),
		customers: customer.NewService(customerstore.New(db, config.DriverSQLite), "IN"),
	}

	ledgers := ledger.NewService(ledgerstore.New(db))
	reminders := reminder.NewService(reminderstore.New(db))
	aliases := matching.NewService(matchingstore.New(db))

	registry := prometheus.NewRegistry()

	engine := workflow.NewEngine(workflow.Config{Currency: "₹", ReminderDue: 7 * 24 * time.Hour}, workflow.Deps{
		Pending:   pending.NewService(pendingstore.New(db, config.DriverSQLite)),
		Customers: s.customers,
		Catalog:   s.catalog,
		Aliases:   aliases,
		Ledger:    ledgers,
		Reminders: reminders,
		Extractor: s.extractor,
		Metrics:   workflow.NewMetrics(registry),
		Logger:    log,
	})

	opts.Metrics = registry

	s.handler = khttp.New(opts, khttp.Handlers{
		Chat:      chat.NewHandler(engine, idempotency.NewMemoryStore(), time.Hour, log),
		Inventory: inventoryhttp.NewHandler(s.catalog, log),
		Customers: customerhttp.NewHandler(s.customers, ledgers, log),
		Ledger:    ledgerhttp.NewHandler(ledgers, log),
		Reminders: reminderhttp.NewHandler(reminders, log),
		Import:    importcsv.NewHandler(importer.NewService(s.catalog, log), log),
		Matching:  matchinghttp.NewHandler(aliases, log),
		Export:    exporthttp.NewHandler(export.NewService(s.customers, ledgers), log),
	})

	return s
}

func (s *server) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

type chatReply struct {
	Reply       string `json:"reply"`
	ShowButtons bool   `json:"show_buttons"`
	ActionID    string `json:"action_id"`
	Duplicate   bool   `json:"duplicate"`
}

func TestRouter_Health(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}})

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_CreditSaleOverChat(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}})

	rec := s.do(t, http.MethodPost, "/api/inventory", map[string]any{"name": "Rice", "quantity": 10, "unit_price": "60"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	const msg = "2 rice udhaar Asha"

	s.extractor.EXPECT().Extract(gomock.Any(), msg).Return(nlu.Record{
		Intent:   "sale_credit",
		Entities: nlu.Entities{CustomerName: "Asha", Items: []nlu.Item{{Name: "rice", Quantity: 2}}},
	}, nil).Times(1)

	rec = s.do(t, http.MethodPost, "/api/chat", map[string]any{"user": "shop", "message": msg, "message_id": "m-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	first := decode[chatReply](t, rec)
	require.True(t, first.ShowButtons, first.Reply)
	require.NotEmpty(t, first.ActionID)

	// Redelivery of the same message is acknowledged without re-running.
	rec = s.do(t, http.MethodPost, "/api/chat", map[string]any{"user": "shop", "message": msg, "message_id": "m-1"})
	assert.True(t, decode[chatReply](t, rec).Duplicate)

	rec = s.do(t, http.MethodPost, "/api/confirm", map[string]any{"user": "shop", "action_id": first.ActionID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[chatReply](t, rec).Reply, "Credit sale recorded")

	rec = s.do(t, http.MethodPost, "/api/confirm", map[string]any{"user": "shop", "action_id": first.ActionID})
	assert.Contains(t, decode[chatReply](t, rec).Reply, "already been processed")

	rec = s.do(t, http.MethodGet, "/api/customers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	customers := decode[[]struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Outstanding string `json:"outstanding"`
	}](t, rec)
	require.Len(t, customers, 1)
	assert.Equal(t, "Asha", customers[0].Name)
	assert.Equal(t, "120", customers[0].Outstanding)

	rec = s.do(t, http.MethodGet, "/api/ledger?customer_id="+customers[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/reminders?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/export/statements/"+customers[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "khata_workflow_confirmations_total")
}

func TestRouter_CancelWithoutPendingAction(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}})

	rec := s.do(t, http.MethodPost, "/api/cancel", map[string]any{"user": "shop"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[chatReply](t, rec).Reply, "No pending action")
}

func TestRouter_Validation(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}})

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{name: "ChatWithoutMessage", path: "/api/chat", body: map[string]any{"user": "shop"}, want: http.StatusBadRequest},
		{name: "ChatWithoutUser", path: "/api/chat", body: map[string]any{"message": "hi"}, want: http.StatusBadRequest},
		{name: "ConfirmBadActionID", path: "/api/confirm", body: map[string]any{"user": "shop", "action_id": "nope"}, want: http.StatusBadRequest},
		{name: "ItemWithoutName", path: "/api/inventory", body: map[string]any{"quantity": 1}, want: http.StatusBadRequest},
		{name: "CustomerBadPhone", path: "/api/customers", body: map[string]any{"name": "Ravi", "phone": "12"}, want: http.StatusBadRequest},
		{name: "AliasWithoutItem", path: "/api/aliases", body: map[string]any{"raw_pattern": "doodh"}, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_AdjustNeverGoesNegative(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}})

	item, err := s.catalog.Create(context.Background(), inventory.CreateParams{Name: "Dal", Quantity: 3})
	require.NoError(t, err)

	path := "/api/inventory/" + item.ID.String() + "/adjust"

	rec := s.do(t, http.MethodPost, path, map[string]any{"delta": -5})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")

	rec = s.do(t, http.MethodPost, path, map[string]any{"delta": -3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[struct {
		Quantity int `json:"quantity"`
	}](t, rec).Quantity)
}

func TestRouter_Aliases(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}})

	rec := s.do(t, http.MethodPost, "/api/aliases", map[string]any{"raw_pattern": "Doodh", "item_name": "Milk"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/aliases/suggest?raw=ek+packet+doodh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Milk", decode[map[string]string](t, rec)["item_name"])
}

func TestRouter_ImportCatalog(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}})

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "catalog.csv")
	require.NoError(t, err)

	_, err = fw.Write([]byte("item,quantity,price\nRice,40,60\nSugar,abc,45\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	report := decode[struct {
		Created int `json:"created"`
		Skipped []struct {
			Line int `json:"line"`
		} `json:"skipped"`
	}](t, rec)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 3, report.Skipped[0].Line)
}

func TestRouter_Auth(t *testing.T) {
	s := newServer(t, khttp.Options{CORSOrigins: []string{"*"}, JWTSecret: secret})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/inventory", nil).Code)

	token, err := auth.Sign(secret, "shop-7", time.Hour)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/inventory", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The token subject stands in for the user field.
	rec = s.do(t, http.MethodPost, "/api/cancel", map[string]any{}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(decode[chatReply](t, rec).Reply, "No pending action"))
}
