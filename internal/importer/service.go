package importer

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/inventory"
)

type Catalog interface {
	Upsert(ctx context.Context, params inventory.UpsertParams) (*inventory.Item, bool, error)
}

// Report summarises an import.
type Report struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped []RowError `json:"-"`
}

type Service struct {
	parser  *Parser
	catalog Catalog
	log     *zap.Logger
}

func NewService(catalog Catalog, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{parser: NewParser(), catalog: catalog, log: log}
}

// Import upserts every readable row of the file into the catalog. Existing
// items get the file's stock level, and its price and threshold when given.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Report, error) {
	sheet, err := s.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	report := &Report{Skipped: sheet.Skipped}

	for _, row := range sheet.Rows {
		_, created, err := s.catalog.Upsert(ctx, inventory.UpsertParams{
			Name:              row.Name,
			Quantity:          row.Quantity,
			UnitPrice:         row.UnitPrice,
			LowStockThreshold: row.Threshold,
		})
		if err != nil {
			report.Skipped = append(report.Skipped, RowError{Line: row.Line, Err: err})
			continue
		}

		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	s.log.Info("catalog imported",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", len(report.Skipped)),
	)

	return report, nil
}
