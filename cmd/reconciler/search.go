package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/cli"
)

func newEngine() *reconcile.Engine {
	opts := reconcile.OptionsFromConfig(state.cfg)
	opts.Logger = state.logger
	return reconcile.NewEngine(state.store, opts)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <invoice-id>",
		Short: "Rank the transactions that could settle an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}

			result, err := newEngine().Search(cmd.Context(), invoiceID)
			if err != nil {
				return err
			}

			cli.PrintSearchResult(os.Stdout, result)
			return nil
		},
	}
}
