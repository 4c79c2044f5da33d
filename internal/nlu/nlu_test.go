package nlu_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/nlu"
)

func TestParseRecord(t *testing.T) {
	type testCase struct {
		name       string
		text       string
		wantIntent string
		wantItems  int
		wantErr    bool
	}

	tests := []testCase{
		{
			name:       "FencedJSON",
			text:       "```json\n{\"intent\": \"sale_credit\", \"payment_type\": \"credit\", \"entities\": {\"customer_name\": \"Asha\", \"items\": [{\"name\": \"rice\", \"quantity\": 2}]}, \"response\": \"ok\"}\n```",
			wantIntent: "sale_credit",
			wantItems:  1,
		},
		{
			name:       "ProseAround",
			text:       `Sure! {"intent": "payment", "entities": {"amount": "500"}, "response": "ok"} Hope that helps.`,
			wantIntent: "payment",
		},
		{
			name:       "LooseNumbers",
			text:       `{"intent": "purchase", "entities": {"customer_name": null, "items": [{"name": "atta", "quantity": "2", "price": null}], "amount": ""}}`,
			wantIntent: "purchase",
			wantItems:  1,
		},
		{
			name:    "NoObject",
			text:    "I cannot help with that",
			wantErr: true,
		},
		{
			name:    "MissingIntent",
			text:    `{"response": "hi"}`,
			wantErr: true,
		},
		{
			name:    "BrokenJSON",
			text:    `{"intent": "sale", "entities": {`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := nlu.ParseRecord(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, nlu.ErrMalformed)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, rec.Intent)
			assert.Len(t, rec.Entities.Items, tt.wantItems)
		})
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var got struct {
		A nlu.Number `json:"a"`
		B nlu.Number `json:"b"`
		C nlu.Number `json:"c"`
		D nlu.Number `json:"d"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a": 2.5, "b": "₹40", "c": null, "d": "many"}`), &got))
	assert.Equal(t, nlu.Number(2.5), got.A)
	assert.Equal(t, nlu.Number(40), got.B)
	assert.Equal(t, nlu.Number(0), got.C)
	assert.Equal(t, nlu.Number(0), got.D)
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Messages, 2)

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClient_Extract(t *testing.T) {
	type testCase struct {
		name       string
		status     int
		content    string
		wantIntent string
		wantErr    bool
	}

	tests := []testCase{
		{
			name:       "Success",
			status:     http.StatusOK,
			content:    `{"intent": "sale", "payment_type": "unknown", "entities": {"customer_name": "Dixit", "items": [{"name": "flour", "quantity": 5}]}, "response": "ok"}`,
			wantIntent: "sale",
		},
		{
			name:    "ServerError",
			status:  http.StatusInternalServerError,
			content: "",
			wantErr: true,
		},
		{
			name:    "Malformed",
			status:  http.StatusOK,
			content: "no json here",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, tt.content)

			client := nlu.NewClient(nlu.ClientConfig{
				BaseURL: srv.URL + "/",
				APIKey:  "secret",
				Model:   "test-model",
				Timeout: 5 * time.Second,
			})

			rec, err := client.Extract(context.Background(), "Dixit took 5 kg flour")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, rec.Intent)
			require.Len(t, rec.Entities.Items, 1)
			assert.Equal(t, nlu.Number(5), rec.Entities.Items[0].Quantity)
		})
	}
}

func TestClient_Extract_RateLimited(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"intent": "general_query"}`)

	client := nlu.NewClient(nlu.ClientConfig{
		BaseURL:   srv.URL,
		APIKey:    "secret",
		Model:     "test-model",
		Timeout:   5 * time.Second,
		RateLimit: 0.001,
		Burst:     1,
	})

	_, err := client.Extract(context.Background(), "hello")
	require.NoError(t, err)

	_, err = client.Extract(context.Background(), "hello again")
	assert.ErrorIs(t, err, nlu.ErrRateLimited)
}

func TestRegexExtractor(t *testing.T) {
	type item struct {
		name string
		qty  nlu.Number
	}

	type testCase struct {
		name         string
		message      string
		wantIntent   string
		wantPayment  string
		wantCustomer string
		wantItems    []item
		wantAmount   nlu.Number
	}

	tests := []testCase{
		{
			name:         "CreditSale",
			message:      "2 Rice credit sale for Asha",
			wantIntent:   "sale_credit",
			wantPayment:  "credit",
			wantCustomer: "Asha",
			wantItems:    []item{{"Rice", 2}},
		},
		{
			name:        "Purchase",
			message:     "2 Atta purchase",
			wantIntent:  "purchase",
			wantPayment: "unknown",
			wantItems:   []item{{"Atta", 2}},
		},
		{
			name:        "GenericSale",
			message:     "sale of 5 Milk",
			wantIntent:  "sale",
			wantPayment: "unknown",
			wantItems:   []item{{"Milk", 5}},
		},
		{
			name:         "HinglishCredit",
			message:      "Rakesh ne 3 doodh aur 5 bread udhaar liya",
			wantIntent:   "sale_credit",
			wantPayment:  "credit",
			wantCustomer: "Rakesh",
			wantItems:    []item{{"doodh", 3}, {"bread", 5}},
		},
		{
			name:         "Payment",
			message:      "Asha paid 500",
			wantIntent:   "payment",
			wantPayment:  "unknown",
			wantCustomer: "Asha",
			wantAmount:   500,
		},
		{
			name:         "PaymentWithCurrency",
			message:      "Asha paid 250 rs",
			wantIntent:   "payment",
			wantPayment:  "unknown",
			wantCustomer: "Asha",
			wantAmount:   250,
		},
		{
			name:        "CashSale",
			message:     "3 kg sugar cash",
			wantIntent:  "sale_paid",
			wantPayment: "cash",
			wantItems:   []item{{"sugar", 3}},
		},
		{
			name:        "Loss",
			message:     "2 eggs damaged",
			wantIntent:  "loss",
			wantPayment: "unknown",
			wantItems:   []item{{"eggs", 2}},
		},
		{
			name:        "Chatter",
			message:     "hello bhaiya",
			wantIntent:  "general_query",
			wantPayment: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := nlu.NewRegexExtractor().Extract(context.Background(), tt.message)
			require.NoError(t, err)

			assert.Equal(t, tt.wantIntent, rec.Intent)
			assert.Equal(t, tt.wantPayment, rec.PaymentType)
			assert.Equal(t, tt.wantCustomer, rec.Entities.CustomerName)
			assert.Equal(t, tt.wantAmount, rec.Entities.Amount)
			require.Len(t, rec.Entities.Items, len(tt.wantItems))

			for i, want := range tt.wantItems {
				assert.Equal(t, want.name, rec.Entities.Items[i].Name)
				assert.Equal(t, want.qty, rec.Entities.Items[i].Quantity)
			}
		})
	}
}

func TestChain_Extract(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	primary := nlu.NewMockExtractor(ctrl)
	fallback := nlu.NewMockExtractor(ctrl)

	gomock.InOrder(
		primary.EXPECT().Extract(gomock.Any(), "2 Atta purchase").Return(nlu.Record{}, errors.New("timeout")),
		fallback.EXPECT().Extract(gomock.Any(), "2 Atta purchase").Return(nlu.Record{Intent: "purchase"}, nil),
	)

	rec, err := nlu.NewChain(zap.NewNop(), primary, fallback).Extract(context.Background(), "2 Atta purchase")
	require.NoError(t, err)
	assert.Equal(t, "purchase", rec.Intent)
}

func TestChain_AllFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	primary := nlu.NewMockExtractor(ctrl)
	primary.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(nlu.Record{}, nlu.ErrMalformed)

	rec, err := nlu.NewChain(zap.NewNop(), primary).Extract(context.Background(), "??")
	require.NoError(t, err)
	assert.Equal(t, "general_query", rec.Intent)
}
