package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

// Invoice types used by the extraction payload.
const (
	InvoiceTypeReceived = "entrante" // received from a supplier, paid out
	InvoiceTypeIssued   = "sortante" // issued to a client, paid in
)

// InvoicePayload is one invoice as produced by the extraction pipeline.
type InvoicePayload struct {
	InvoiceNumber string        `json:"invoice_number"`
	InvoiceDate   string        `json:"invoice_date"`
	DueDate       string        `json:"due_date,omitempty"`
	Supplier      PartyPayload  `json:"supplier"`
	Amounts       AmountPayload `json:"amounts"`
	InvoiceType   string        `json:"invoice_type,omitempty"`
	Category      string        `json:"category,omitempty"`
}

// PartyPayload names a supplier or client.
type PartyPayload struct {
	Name string `json:"name"`
}

// AmountPayload is the French amount breakdown (HT, TVA, TTC).
type AmountPayload struct {
	Net      decimal.Decimal `json:"ht"`
	Tax      decimal.Decimal `json:"tva"`
	TaxRate  decimal.Decimal `json:"tva_rate"`
	Gross    decimal.Decimal `json:"ttc"`
	Currency string          `json:"currency,omitempty"`
}

// Direction maps the invoice type onto the expected payment direction.
// An empty type is treated as a received invoice.
func (p InvoicePayload) Direction() (model.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(p.InvoiceType)) {
	case "", InvoiceTypeReceived, string(model.DirectionOutgoing):
		return model.DirectionOutgoing, nil
	case InvoiceTypeIssued, string(model.DirectionIncoming):
		return model.DirectionIncoming, nil
	default:
		return "", fmt.Errorf("unknown invoice_type %q", p.InvoiceType)
	}
}

// ToInvoice converts the payload to an unsaved invoice.
func (p InvoicePayload) ToInvoice() (*model.Invoice, error) {
	if strings.TrimSpace(p.Supplier.Name) == "" {
		return nil, fmt.Errorf("supplier name is required")
	}
	date, err := ParseDate(p.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invoice_date: %w", err)
	}
	var due time.Time
	if p.DueDate != "" {
		if due, err = ParseDate(p.DueDate); err != nil {
			return nil, fmt.Errorf("due_date: %w", err)
		}
	}
	direction, err := p.Direction()
	if err != nil {
		return nil, err
	}

	amounts := model.Amounts{
		Net:      p.Amounts.Net,
		Tax:      p.Amounts.Tax,
		TaxRate:  p.Amounts.TaxRate,
		Gross:    p.Amounts.Gross,
		Currency: p.Amounts.Currency,
	}
	if amounts.Gross.IsZero() && !amounts.Net.IsZero() {
		amounts.Gross = amounts.Net.Add(amounts.Tax)
	}
	if !amounts.Gross.IsPositive() {
		return nil, fmt.Errorf("amounts.ttc must be positive")
	}
	if amounts.Currency == "" {
		amounts.Currency = "EUR"
	}

	return &model.Invoice{
		Number:    strings.TrimSpace(p.InvoiceNumber),
		Supplier:  strings.TrimSpace(p.Supplier.Name),
		Date:      date,
		DueDate:   due,
		Direction: direction,
		Amounts:   amounts,
		Category:  p.Category,
		Status:    model.StatusUnreconciled,
	}, nil
}

// ReadInvoicesJSON parses a JSON array of invoice payloads. The first
// invalid entry fails the whole read.
func ReadInvoicesJSON(r io.Reader) ([]*model.Invoice, error) {
	var payloads []InvoicePayload
	if err := json.NewDecoder(r).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}

	invoices := make([]*model.Invoice, 0, len(payloads))
	for i, p := range payloads {
		inv, err := p.ToInvoice()
		if err != nil {
			return nil, fmt.Errorf("invoice %d (%s): %w", i, p.InvoiceNumber, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}
