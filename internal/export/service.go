// Package export renders customer account statements as spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
)

const (
	sheet     = "Statement"
	headerRow = 4

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Customers interface {
	Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
}

type Ledger interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Entry, error)
}

// Service builds statements from the ledger.
type Service struct {
	customers Customers
	ledger    Ledger
	now       func() time.Time
}

func NewService(customers Customers, l Ledger) *Service {
	return &Service{customers: customers, ledger: l, now: time.Now}
}

// Filename is the suggested download name for a customer's statement.
func (s *Service) Filename(c *customer.Customer) string {
	return fmt.Sprintf("statement_%s_%s.xlsx", c.ID.String()[:8], s.now().Format("20060102"))
}

// Statement writes an xlsx workbook listing every ledger entry of the customer
// oldest first, with a running balance and the outstanding total.
func (s *Service) Statement(ctx context.Context, customerID uuid.UUID, w io.Writer) (*customer.Customer, error) {
	c, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("getting customer: %w", err)
	}

	entries, err := s.ledger.List(ctx, ledger.ListFilter{CustomerID: &customerID})
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries: %w", err)
	}

	slices.SortStableFunc(entries, func(a, b *ledger.Entry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	if err := s.fill(f, c, entries); err != nil {
		return nil, err
	}

	if err := f.Write(w); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}

	return c, nil
}

func (s *Service) fill(f *excelize.File, c *customer.Customer, entries []*ledger.Entry) error {
	phone := ""
	if c.Phone != nil {
		phone = *c.Phone
	}

	rows := [][]any{
		{"Customer", c.Name},
		{"Phone", phone},
		{"Generated", s.now().Format("2006-01-02 15:04")},
	}

	for i, row := range rows {
		if err := f.SetSheetRow(sheet, cell(1, i+1), &row); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	headings := []any{"Date", "Type", "Item", "Quantity", "Amount", "Balance", "Description"}
	if err := f.SetSheetRow(sheet, cell(1, headerRow), &headings); err != nil {
		return fmt.Errorf("writing headings: %w", err)
	}

	balance := decimal.Zero
	row := headerRow

	for _, e := range entries {
		row++

		switch e.Type {
		case ledger.TypeSaleCredit:
			balance = balance.Add(e.Amount)
		case ledger.TypePayment:
			balance = balance.Sub(e.Amount)
		}

		values := []any{
			e.CreatedAt.Format("2006-01-02 15:04"),
			string(e.Type),
			e.ItemName,
			e.Quantity,
			e.Amount.InexactFloat64(),
			balance.InexactFloat64(),
			e.Description,
		}
		if e.ItemName == "" {
			values[2], values[3] = "", ""
		}

		if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
			return fmt.Errorf("writing entry row: %w", err)
		}
	}

	row += 2

	total := []any{"Outstanding", "", "", "", "", ledger.Fold(entries).Outstanding().InexactFloat64()}
	if err := f.SetSheetRow(sheet, cell(1, row), &total); err != nil {
		return fmt.Errorf("writing total: %w", err)
	}

	return s.style(f, row)
}

func (s *Service) style(f *excelize.File, lastRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	if err := f.SetCellStyle(sheet, cell(1, headerRow), cell(7, headerRow), bold); err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, cell(1, lastRow), cell(1, lastRow), bold); err != nil {
		return err
	}

	if lastRow > headerRow+1 {
		if err := f.SetCellStyle(sheet, cell(5, headerRow+1), cell(6, lastRow), money); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 18); err != nil {
		return err
	}

	return f.SetColWidth(sheet, "C", "C", 20)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
