// Package importer turns bank statement files and invoice extraction payloads
// into model entities ready to be stored.
//
// Supported statement formats:
//   - CSV with a header row: date, amount (required), vendor, description, category
//   - Excel workbooks (.xlsx) with the same header row on the first sheet
//   - OFX/QFX bank and credit card statements
//
// Example usage:
//
//	batch, err := importer.ReadStatement(file, "releve-2024-03.csv")
//	result, err := repo.SaveTransactions(ctx, batch.Transactions)
package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

// Format is a statement file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatOFX  Format = "ofx"
)

// ErrUnsupportedFormat is returned for file extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// Batch is one imported statement file.
type Batch struct {
	ID           string              `json:"batch_id"`
	SourceFile   string              `json:"source_file"`
	Format       Format              `json:"format"`
	Transactions []model.Transaction `json:"-"`
	Skipped      int                 `json:"skipped"`
}

func newBatch(sourceFile string, format Format) *Batch {
	return &Batch{
		ID:           uuid.NewString(),
		SourceFile:   sourceFile,
		Format:       format,
		Transactions: make([]model.Transaction, 0),
	}
}

// add stamps tx with the batch identity and appends it.
func (b *Batch) add(tx model.Transaction) {
	tx.SourceFile = b.SourceFile
	tx.ImportBatchID = b.ID
	b.Transactions = append(b.Transactions, tx)
}

// DetectFormat picks a format from the file extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".ofx", ".qfx":
		return FormatOFX, nil
	default:
		return "", fmt.Errorf("%w: %q (use .csv, .xlsx, .ofx or .qfx)", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadStatement parses r according to the extension of filename.
func ReadStatement(r io.Reader, filename string) (*Batch, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(filename)
	switch format {
	case FormatOFX:
		return ReadOFX(r, name)
	case FormatXLSX:
		return ReadXLSX(r, name)
	default:
		return ReadCSV(r, name)
	}
}

// dayOf drops the time of day, keeping the calendar date as posted.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
