// Package nlu turns a free-text shop message into a structured record of
// intent and entities.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	ErrMalformed   = errors.New("malformed extraction record")
	ErrRateLimited = errors.New("extraction rate limited")
)

//go:generate mockgen -source=nlu.go -destination=extractor_mock.go -package=nlu
type Extractor interface {
	Extract(ctx context.Context, message string) (Record, error)
}

// Record is what an extractor understood from one message.
type Record struct {
	Intent            string   `json:"intent"`
	PaymentType       string   `json:"payment_type"`
	Entities          Entities `json:"entities"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
	Response          string   `json:"response"`
}

type Entities struct {
	CustomerName string `json:"customer_name"`
	Items        []Item `json:"items"`
	Amount       Number `json:"amount"`
}

type Item struct {
	Name     string `json:"name"`
	Quantity Number `json:"quantity"`
	Price    Number `json:"price"`
}

// Number accepts JSON numbers, numeric strings and null. Anything else
// decodes as zero.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	s := strings.Trim(string(data), `"`)
	s = strings.TrimPrefix(strings.TrimSpace(s), "₹")

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*n = 0
		return nil
	}

	*n = Number(f)

	return nil
}

// ParseRecord extracts the JSON object embedded in model output, tolerating
// code fences and surrounding prose.
func ParseRecord(text string) (Record, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start == -1 || end <= start {
		return Record{}, ErrMalformed
	}

	var rec Record
	if err := json.Unmarshal([]byte(text[start:end+1]), &rec); err != nil {
		return Record{}, errors.Join(ErrMalformed, err)
	}

	if strings.TrimSpace(rec.Intent) == "" {
		return Record{}, ErrMalformed
	}

	return rec, nil
}
