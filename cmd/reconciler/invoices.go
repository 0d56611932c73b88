package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-reconciler/internal/cli"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

func invoicesCmd() *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters := storage.InvoiceFilters{
				Status: model.InvoiceStatus(status),
				Limit:  limit,
				Offset: offset,
			}
			if status != "" && filters.Status != model.StatusReconciled && filters.Status != model.StatusUnreconciled {
				return fmt.Errorf("--status must be reconciled or unreconciled")
			}

			result, err := state.store.ListInvoices(cmd.Context(), filters)
			if err != nil {
				return err
			}

			cli.PrintInvoices(os.Stdout, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (reconciled, unreconciled)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum invoices to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	return cmd
}
