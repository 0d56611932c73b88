// Package matcher scores bank transactions against an invoice.
//
// A transaction is a candidate for an invoice when:
//   - it is not already reconciled
//   - its date is within DateWindowDays of the invoice date
//   - its sign matches the invoice direction (outgoing pays out, incoming pays in)
//   - its absolute amount is within the shortlist window around the gross amount
//
// Each candidate gets a confidence in [0,1]:
//
//	0.4*vendor_similarity + 0.4*amount_score + 0.2*date_score
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	from, to := m.Window(invoice)
//	txs, _ := store.CandidateTransactions(ctx, from, to, true)
//	candidates, skipped := m.Candidates(invoice, txs, nil)
package matcher

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/similarity"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Matcher ranks transactions for invoices. It holds no mutable state and is
// safe for concurrent use.
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config.withDefaults(),
	}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// Window returns the inclusive date range to load transactions from.
func (m *Matcher) Window(inv *model.Invoice) (from, to time.Time) {
	day := time.Date(inv.Date.Year(), inv.Date.Month(), inv.Date.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -m.config.DateWindowDays), day.AddDate(0, 0, m.config.DateWindowDays)
}

// Candidates filters txs down to the shortlist for inv, scores each one and
// returns them best first. Transactions in exclude are skipped. Transactions
// that fail validation are skipped and reported in the second return value.
// An empty result is valid and means no match.
func (m *Matcher) Candidates(
	inv *model.Invoice,
	txs []model.Transaction,
	exclude map[int64]bool,
) ([]model.MatchCandidate, []error) {
	var skipped []error
	candidates := make([]model.MatchCandidate, 0, len(txs))

	for i := range txs {
		tx := &txs[i]

		// Skip if already reconciled or excluded by the caller
		if tx.IsReconciled || exclude[tx.ID] {
			continue
		}
		if err := tx.Validate(); err != nil {
			skipped = append(skipped, err)
			continue
		}
		if !m.inWindow(inv, tx) {
			continue
		}

		candidates = append(candidates, m.Score(inv, tx))
	}

	Rank(candidates)
	return candidates, skipped
}

// inWindow applies the date, sign and shortlist amount filters.
func (m *Matcher) inWindow(inv *model.Invoice, tx *model.Transaction) bool {
	if model.DayDiff(inv.Date, tx.Date) > m.config.DateWindowDays {
		return false
	}
	if !SignMatches(inv.Direction, tx.Amount) {
		return false
	}

	gross := inv.Amounts.Gross.Abs()
	diff := tx.Amount.Abs().Sub(gross).Abs()
	return diff.LessThanOrEqual(m.shortlistWindow(gross))
}

// shortlistWindow is max(SearchTolerance * max(gross, 1), AmountFloor).
func (m *Matcher) shortlistWindow(gross decimal.Decimal) decimal.Decimal {
	w := decimal.NewFromFloat(m.config.SearchTolerance).Mul(decimal.Max(gross, one))
	return decimal.Max(w, decimal.NewFromFloat(m.config.AmountFloor))
}

// relativeTolerance is T, widened so that AmountFloor currency units still
// score above zero on small invoices.
func (m *Matcher) relativeTolerance(gross decimal.Decimal) float64 {
	base, _ := decimal.Max(gross, one).Float64()
	return max(m.config.AmountTolerance, m.config.AmountFloor/base)
}

// Score computes the candidate for one invoice/transaction pair without
// applying any filter. Confirm uses it to re-score a pair the user chose.
func (m *Matcher) Score(inv *model.Invoice, tx *model.Transaction) model.MatchCandidate {
	gross := inv.Amounts.Gross.Abs()
	diff := tx.Amount.Abs().Sub(gross).Abs()
	amountDiff, _ := diff.Float64()
	relative, _ := diff.Div(decimal.Max(gross, one)).Float64()
	days := model.DayDiff(inv.Date, tx.Date)
	vendor := similarity.Score(inv.Supplier, tx.Vendor)

	amountScore := 1 - min(1, relative/m.relativeTolerance(gross))
	dateScore := 1 - min(1, float64(days)/float64(m.config.DateWindowDays))

	c := model.MatchCandidate{
		TransactionID:      tx.ID,
		Transaction:        *tx,
		VendorSimilarity:   vendor,
		AmountDiff:         amountDiff,
		AmountDiffRelative: relative,
		DateDiffDays:       days,
		Confidence:         clamp(WeightVendor*vendor + WeightAmount*amountScore + WeightDate*dateScore),
		Notes:              []string{},
	}

	if vendor < vendorNoteFloor {
		c.Notes = append(c.Notes, "supplier name mismatch")
	}
	if relative > amountNoteFloor {
		c.Notes = append(c.Notes, fmt.Sprintf("amount mismatch: %s (%.1f%%)", diff.StringFixed(2), relative*100))
	}
	if days > dateNoteFloor {
		c.Notes = append(c.Notes, fmt.Sprintf("date gap: %d days", days))
	}

	return c
}

// Rank sorts candidates by confidence descending, then smaller date gap,
// smaller amount gap and lower transaction id.
func Rank(candidates []model.MatchCandidate) {
	slices.SortFunc(candidates, func(a, b model.MatchCandidate) int {
		return cmp.Or(
			cmp.Compare(b.Confidence, a.Confidence),
			cmp.Compare(a.DateDiffDays, b.DateDiffDays),
			cmp.Compare(a.AmountDiff, b.AmountDiff),
			cmp.Compare(a.TransactionID, b.TransactionID),
		)
	})
}

// SignMatches reports whether amount has the sign a payment in direction d
// would have on a bank statement.
func SignMatches(d model.Direction, amount decimal.Decimal) bool {
	switch d {
	case model.DirectionOutgoing:
		return amount.IsNegative()
	case model.DirectionIncoming:
		return amount.IsPositive()
	default:
		return false
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
