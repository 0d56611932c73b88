package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/cli"
)

func reconcileCmd() *cobra.Command {
	var (
		workers int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile every unreconciled invoice",
		Long: `Evaluates every unreconciled invoice and links those whose best candidate
reaches the auto-confirm threshold. Everything else is reported for manual
review. Interrupting stops scheduling new invoices; links already made stay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := reconcile.OptionsFromConfig(state.cfg)
			opts.Runs = state.store
			opts.Logger = state.logger
			if workers > 0 {
				opts.Workers = workers
			}
			engine := reconcile.NewEngine(state.store, opts)

			cli.PrintHeader(os.Stdout, "reconcile")
			progress := cli.NewBatchProgress(os.Stderr)

			stats, err := engine.ReconcileAllWith(cmd.Context(), reconcile.BatchOptions{
				Progress: progress.Func(),
			})
			if err != nil {
				return err
			}

			cli.PrintBatchSummary(os.Stdout, stats, verbose)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent invoice evaluations (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the outcome of every invoice")
	return cmd
}
