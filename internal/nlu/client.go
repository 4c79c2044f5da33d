package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const systemPrompt = `You are a kirana shop assistant. Extract intent from a Hinglish or English message.

OUTPUT JSON ONLY:
{
  "intent": "sale|sale_credit|sale_paid|payment|loss|purchase|general_query",
  "payment_type": "cash|credit|unknown",
  "entities": {
    "customer_name": "name",
    "items": [{"name": "item", "quantity": 1, "price": 0}],
    "amount": 0
  },
  "needs_confirmation": false,
  "response": "short acknowledgement"
}

RULES:
- Items sold but payment method not mentioned: intent "sale", payment_type "unknown".
- udhaar, credit or khata: intent "sale_credit", payment_type "credit".
- cash, paid or diya together with items: intent "sale_paid", payment_type "cash".
- buy, purchase, stock or aaya without a customer: intent "purchase".
- damaged, expired, kharab or wasted stock: intent "loss".
- Money received that is not a sale: intent "payment" with the amount.
- Returns (wapas, return) and stock questions: intent "general_query".
- Always return items as a list. Unknown quantity is 1. Unknown price is 0.`

type ClientConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
}

// Client extracts records through an OpenAI-compatible chat completions API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg ClientConfig) *Client {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) Extract(ctx context.Context, message string) (Record, error) {
	if !c.limiter.Allow() {
		return Record{}, ErrRateLimited
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return Record{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Record{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Record{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(out.Choices) == 0 {
		return Record{}, ErrMalformed
	}

	return ParseRecord(out.Choices[0].Message.Content)
}
