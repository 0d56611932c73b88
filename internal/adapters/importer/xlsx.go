package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX parses the first sheet of an Excel workbook with the same
// columns as ReadCSV. Date cells may hold text in any accepted layout or
// an Excel serial date.
func ReadXLSX(r io.Reader, sourceFile string) (*Batch, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	// Raw values keep amounts unformatted and dates as serial numbers
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("statement file is empty")
	}

	cols, err := newStatementColumns(rows[0])
	if err != nil {
		return nil, err
	}

	batch := newBatch(sourceFile, FormatXLSX)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cols.addRow(batch, row, parseSheetDate)
	}
	return batch, nil
}

// parseSheetDate accepts the text layouts of ParseDate and Excel serial dates.
func parseSheetDate(s string) (time.Time, error) {
	if t, err := ParseDate(s); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || serial <= 0 {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	return dayOf(t), nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
