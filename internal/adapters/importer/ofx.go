package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags missing their closing bracket in SGML-style files
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in bank exports.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ReadOFX parses an OFX or QFX statement. Bank and credit card statements
// are both read. FITIDs become external ids so re-imports are de-duplicated.
func ReadOFX(r io.Reader, sourceFile string) (*Batch, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	batch := newBatch(sourceFile, FormatOFX)

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			addOFXTransactions(batch, stmt.BankTranList.Transactions)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			addOFXTransactions(batch, stmt.BankTranList.Transactions)
		}
	}

	return batch, nil
}

// ofxAmountDigits covers every currency exponent OFX allows. TRNAMT is a
// decimal string, so the conversion is exact.
const ofxAmountDigits = 8

func addOFXTransactions(batch *Batch, txs []ofxgo.Transaction) {
	for _, ofxTx := range txs {
		amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(ofxAmountDigits))
		if err != nil || ofxTx.DtPosted.IsZero() {
			batch.Skipped++
			continue
		}

		batch.add(model.Transaction{
			Date:        dayOf(ofxTx.DtPosted.Time),
			Amount:      amount,
			Vendor:      ofxVendor(ofxTx),
			Description: strings.TrimSpace(string(ofxTx.Memo)),
			ExternalID:  string(ofxTx.FiTID),
		})
	}
}

// ofxVendor prefers PAYEE over NAME.
func ofxVendor(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}
	return strings.TrimSpace(string(tx.Name))
}
