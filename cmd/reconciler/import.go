package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/importer"
	"github.com/eshaffer321/invoice-reconciler/internal/cli"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bank statements or extracted invoices",
	}
	cmd.AddCommand(importStatementCmd())
	cmd.AddCommand(importInvoicesCmd())
	return cmd
}

// expandFiles resolves glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				state.logger.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

func importStatementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statement <files...>",
		Short: "Import CSV, Excel, OFX or QFX bank statements",
		Long: `Imports bank statement files. CSV and .xlsx files need a header with
date and amount columns; vendor, description and category are optional.
OFX/QFX transactions already imported (same FITID) are skipped.

Examples:
  reconciler import statement releve-2024-03.csv
  reconciler import statement ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range files {
				if err := importStatement(cmd, path); err != nil {
					state.logger.Error("Failed to import statement", "file", path, "error", err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to import", failed, len(files))
			}
			return nil
		},
	}
}

func importStatement(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	batch, err := importer.ReadStatement(f, path)
	if err != nil {
		return err
	}

	saved, err := state.store.SaveTransactions(cmd.Context(), batch.Transactions)
	if err != nil {
		return err
	}

	cli.PrintImportSummary(os.Stdout, batch, saved)
	return nil
}

func importInvoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoices <file.json>",
		Short: "Import invoices from an extraction JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			invoices, err := importer.ReadInvoicesJSON(f)
			if err != nil {
				return err
			}

			for _, inv := range invoices {
				if err := state.store.SaveInvoice(cmd.Context(), inv); err != nil {
					return fmt.Errorf("failed to save invoice %s: %w", inv.Number, err)
				}
			}

			fmt.Printf("Imported %d invoices from %s\n", len(invoices), filepath.Base(args[0]))
			return nil
		},
	}
}
