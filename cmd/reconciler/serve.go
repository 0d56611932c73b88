package main

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-reconciler/internal/cli"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.RunServe(cmd.Context(), state.cfg, state.store, state.logger, cli.ServeOptions{Port: port})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}
