package main

import (
	"fmt"
	"os"

	"github.com/hyperengineering/kioku"
	"github.com/spf13/cobra"
)

var (
	importStrategy string
	importDryRun   bool
	exportPath     string
)

var importCmd = &cobra.Command{
	Use:   "import <catalog.json>",
	Short: "Load catalog items from a JSON file",
	Long: `Import a catalog file into the local deck.

The file is a JSON object with an "items" array; each item needs at least
an "id" and a "level". Merge strategies:

  replace - overwrite existing items (default)
  skip    - keep existing items untouched`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your cards and review history as JSON",
	RunE:  runExport,
}

func init() {
	importCmd.Flags().StringVar(&importStrategy, "strategy", "replace", "Merge strategy: replace or skip")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Preview without writing")
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "", "Output file (default stdout)")
}

func runImport(cmd *cobra.Command, args []string) error {
	client, err := kioku.New(loadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	result, err := client.Store().ImportCatalogJSON(
		cmd.Context(), f, kioku.MergeStrategy(importStrategy), importDryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	prefix := "Imported:"
	if importDryRun {
		prefix = "Would import:"
	}
	fmt.Fprintf(out, "%s %d items (%d skipped, %d invalid)\n",
		plainIfPiped(successStyle, prefix), result.Imported, result.Skipped, result.Invalid)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	client, err := kioku.New(loadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	out := cmd.OutOrStdout()
	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := client.Store().ExportJSON(cmd.Context(), out, userID()); err != nil {
		return err
	}
	if exportPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", exportPath)
	}
	return nil
}
