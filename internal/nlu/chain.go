package nlu

import (
	"context"

	"go.uber.org/zap"
)

// Chain tries each extractor in order and returns the first record produced.
// When every extractor fails the message is treated as a general query.
type Chain struct {
	extractors []Extractor
	log        *zap.Logger
}

func NewChain(log *zap.Logger, extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors, log: log}
}

func (c *Chain) Extract(ctx context.Context, message string) (Record, error) {
	for i, e := range c.extractors {
		rec, err := e.Extract(ctx, message)
		if err == nil {
			return rec, nil
		}

		c.log.Warn("extractor failed, falling back",
			zap.Int("stage", i),
			zap.Error(err),
		)
	}

	return Record{Intent: "general_query", PaymentType: "unknown"}, nil
}
