// Package importer loads a catalog spreadsheet exported as CSV into the
// inventory.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrNoHeader = errors.New("no header row with item and quantity columns")

type column int

const (
	colItem column = iota
	colQuantity
	colPrice
	colThreshold
)

// headers lists the accepted spellings of each column, compared after
// lowercasing and trimming.
var headers = map[column][]string{
	colItem:      {"item", "name", "item name", "product", "saman"},
	colQuantity:  {"quantity", "qty", "stock", "quantity in stock"},
	colPrice:     {"price", "unit price", "rate", "mrp", "selling price"},
	colThreshold: {"threshold", "low stock", "low stock threshold", "reorder level", "min"},
}

// Row is one catalog line.
type Row struct {
	Line      int
	Name      string
	Quantity  int
	UnitPrice *decimal.Decimal
	Threshold *int
}

type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Sheet is a parsed catalog file. Rows that could not be read are reported
// in Skipped and left out of Rows.
type Sheet struct {
	Rows    []Row
	Skipped []RowError
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a CSV in any common encoding, separated by ',', ';' or tabs.
// The header row may be preceded by title lines and its columns may come in
// any order.
func (p *Parser) Parse(r io.Reader) (*Sheet, error) {
	br, err := utf8Reader(r)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffSeparator(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		rows  [][]string
		lines []int
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, record)
		lines = append(lines, line)
	}

	cols, headerIdx, ok := findHeader(rows)
	if !ok {
		return nil, ErrNoHeader
	}

	sheet := &Sheet{}

	for i := headerIdx + 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}

		parsed, err := parseRow(cols, rows[i])
		if err != nil {
			sheet.Skipped = append(sheet.Skipped, RowError{Line: lines[i], Err: err})
			continue
		}

		parsed.Line = lines[i]
		sheet.Rows = append(sheet.Rows, parsed)
	}

	return sheet, nil
}

func sniffSeparator(br *bufio.Reader) rune {
	head, _ := br.Peek(sniffSize)

	best, bestCount := ',', 0

	for _, sep := range []rune{',', ';', '\t'} {
		if n := strings.Count(string(head), string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}

	return best
}

func findHeader(rows [][]string) (map[column]int, int, bool) {
	for idx, row := range rows {
		cols := make(map[column]int)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))

			for c, spellings := range headers {
				if _, seen := cols[c]; seen {
					continue
				}

				for _, s := range spellings {
					if name == s {
						cols[c] = i
					}
				}
			}
		}

		_, hasItem := cols[colItem]
		_, hasQty := cols[colQuantity]

		if hasItem && hasQty {
			return cols, idx, true
		}
	}

	return nil, 0, false
}

func parseRow(cols map[column]int, row []string) (Row, error) {
	out := Row{Name: strings.Join(strings.Fields(cell(row, cols[colItem])), " ")}
	if out.Name == "" {
		return Row{}, errors.New("missing item name")
	}

	qty, err := parseQuantity(cell(row, cols[colQuantity]))
	if err != nil {
		return Row{}, fmt.Errorf("quantity: %w", err)
	}

	out.Quantity = qty

	if idx, ok := cols[colPrice]; ok {
		if s := cell(row, idx); s != "" {
			price, err := parsePrice(s)
			if err != nil {
				return Row{}, fmt.Errorf("price: %w", err)
			}

			out.UnitPrice = &price
		}
	}

	if idx, ok := cols[colThreshold]; ok {
		if s := cell(row, idx); s != "" {
			n, err := parseQuantity(s)
			if err != nil {
				return Row{}, fmt.Errorf("threshold: %w", err)
			}

			out.Threshold = &n
		}
	}

	return out, nil
}

func parseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	d, err := parseNumber(s)
	if err != nil {
		return 0, err
	}

	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%q is not a whole number of units", s)
	}

	return int(d.IntPart()), nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := parseNumber(s)
	if err != nil {
		return decimal.Zero, err
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", s)
	}

	return d.Round(2), nil
}

// parseNumber accepts "1,250.50", "₹ 60", "Rs.45" and the decimal comma
// form "44,50".
func parseNumber(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	for _, prefix := range []string{"₹", "Rs.", "Rs", "rs.", "rs", "INR"} {
		clean = strings.TrimSpace(strings.TrimPrefix(clean, prefix))
	}

	if strings.Count(clean, ",") == 1 && !strings.Contains(clean, ".") {
		if i := strings.Index(clean, ","); len(clean)-i-1 <= 2 {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	}

	clean = strings.ReplaceAll(clean, ",", "")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", s)
	}

	return d, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
