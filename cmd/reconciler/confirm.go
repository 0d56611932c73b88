package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/cli"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

func confirmCmd() *cobra.Command {
	var override bool

	cmd := &cobra.Command{
		Use:   "confirm <invoice-id> <transaction-id>",
		Short: "Link an invoice to a transaction",
		Long: `Links an invoice to a bank transaction after re-scoring the pair.
Pairs scoring below the review threshold need --override.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			transactionID, err := parseID(args[1], "transaction")
			if err != nil {
				return err
			}

			rec, err := newEngine().Confirm(cmd.Context(), reconcile.ConfirmRequest{
				InvoiceID:     invoiceID,
				TransactionID: transactionID,
				Override:      override,
			})
			if errors.Is(err, model.ErrLowConfidence) {
				return fmt.Errorf("%w (rerun with --override to confirm anyway)", err)
			}
			if err != nil {
				return err
			}

			cli.PrintRecord(os.Stdout, rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&override, "override", false, "confirm even when confidence is below the review threshold")
	return cmd
}

func unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <invoice-id>",
		Short: "Remove the reconciliation of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}

			if err := newEngine().Unlink(cmd.Context(), invoiceID); err != nil {
				return err
			}

			fmt.Printf("Invoice %d is unreconciled again\n", invoiceID)
			return nil
		},
	}
}
