package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

// dateLayouts are tried in order for the CSV date column.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
}

// ParseDate parses a statement date in any of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount parses a signed amount. A comma is accepted as the decimal
// separator when no dot is present.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// ReadCSV parses a CSV statement. The header must contain date and amount;
// vendor, description and category are optional. Rows with an unparsable
// date or amount are skipped and counted.
func ReadCSV(r io.Reader, sourceFile string) (*Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("statement file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := newStatementColumns(header)
	if err != nil {
		return nil, err
	}

	batch := newBatch(sourceFile, FormatCSV)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		cols.addRow(batch, row, ParseDate)
	}

	return batch, nil
}

// statementColumns maps lowercased header names to their position.
type statementColumns map[string]int

func newStatementColumns(header []string) (statementColumns, error) {
	cols := make(statementColumns, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, required := range []string{"date", "amount"} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c statementColumns) field(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// addRow appends one statement row to batch, or counts it as skipped.
func (c statementColumns) addRow(batch *Batch, row []string, parseDate func(string) (time.Time, error)) {
	date, err := parseDate(c.field(row, "date"))
	if err != nil {
		batch.Skipped++
		return
	}
	amount, err := ParseAmount(c.field(row, "amount"))
	if err != nil {
		batch.Skipped++
		return
	}

	batch.add(model.Transaction{
		Date:        date,
		Amount:      amount,
		Vendor:      c.field(row, "vendor"),
		Description: c.field(row, "description"),
		Category:    c.field(row, "category"),
	})
}
