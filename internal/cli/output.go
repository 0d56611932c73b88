package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/importer"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, command string) {
	fmt.Fprintf(w, "reconciler: %s\n", command)
}

// PrintSearchResult prints the ranked candidates for one invoice
func PrintSearchResult(w io.Writer, result *reconcile.SearchResult) {
	fmt.Fprintf(w, "Invoice %d: %s\n", result.InvoiceID, result.Outcome)
	if len(result.Candidates) == 0 {
		fmt.Fprintln(w, "No candidates.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TX\tDATE\tAMOUNT\tVENDOR\tVENDOR SIM\tDAYS\tCONFIDENCE\tNOTES")
	for _, c := range result.Candidates {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%d\t%.3f\t%s\n",
			c.TransactionID,
			c.Transaction.Date.Format("2006-01-02"),
			c.Transaction.Amount.StringFixed(2),
			c.Transaction.Vendor,
			c.VendorSimilarity,
			c.DateDiffDays,
			c.Confidence,
			strings.Join(c.Notes, "; "),
		)
	}
	_ = tw.Flush()

	if result.Skipped > 0 {
		fmt.Fprintf(w, "(%d invalid transactions skipped)\n", result.Skipped)
	}
}

// PrintRecord prints a confirmed reconciliation
func PrintRecord(w io.Writer, rec *model.Record) {
	fmt.Fprintf(w, "Reconciled invoice %d with transaction %d (confidence %.3f, %s)\n",
		rec.InvoiceID, rec.TransactionID, rec.Confidence, rec.Method)
}

// PrintBatchSummary prints the batch result summary
func PrintBatchSummary(w io.Writer, stats *reconcile.Stats, verbose bool) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Processed=%d AutoConfirmed=%d ManualReview=%d NoMatch=%d Errors=%d\n",
		stats.Processed,
		stats.AutoConfirmed,
		stats.ManualReview,
		stats.NoMatch,
		stats.Errors)

	if stats.Cancelled {
		fmt.Fprintln(w, "Batch was cancelled before every invoice was evaluated.")
	}

	var failed []reconcile.InvoiceResult
	for _, r := range stats.Results {
		if r.Status == reconcile.ResultError {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, r := range failed {
			fmt.Fprintf(w, "  - invoice %d: %s\n", r.InvoiceID, r.Error)
		}
	}

	if !verbose {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nINVOICE\tSTATUS\tOUTCOME\tTX\tCONFIDENCE\tNOTE")
	for _, r := range stats.Results {
		tx := "-"
		if r.TransactionID != nil {
			tx = fmt.Sprintf("%d", *r.TransactionID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%s\n", r.InvoiceID, r.Status, r.Outcome, tx, r.Confidence, r.Note)
	}
	_ = tw.Flush()
}

// PrintImportSummary prints what a statement import stored
func PrintImportSummary(w io.Writer, batch *importer.Batch, saved *storage.SaveResult) {
	fmt.Fprintf(w, "%s (%s, batch %s): parsed=%d inserted=%d duplicates=%d skipped=%d\n",
		batch.SourceFile,
		batch.Format,
		batch.ID,
		len(batch.Transactions),
		saved.Inserted,
		saved.Duplicates,
		batch.Skipped)
}

// PrintInvoices prints one line per invoice
func PrintInvoices(w io.Writer, result *storage.InvoiceListResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tNUMBER\tSUPPLIER\tGROSS\tDIRECTION\tSTATUS\tTX")
	for _, inv := range result.Invoices {
		tx := "-"
		if inv.TransactionID != nil {
			tx = fmt.Sprintf("%d", *inv.TransactionID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			inv.ID,
			inv.Date.Format("2006-01-02"),
			inv.Number,
			inv.Supplier,
			inv.Amounts.Gross.StringFixed(2),
			inv.Amounts.Currency,
			inv.Direction,
			inv.Status,
			tx,
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Showing %d of %d invoices\n", len(result.Invoices), result.TotalCount)
}
