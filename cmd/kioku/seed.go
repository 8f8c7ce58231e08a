package main

import (
	"fmt"

	"github.com/hyperengineering/kioku"
	"github.com/spf13/cobra"
)

var seedLevel string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bulk-enroll a level's items as new cards",
	Long: `Enroll every catalog item of a level for the current user.

New cards start due immediately with default scheduling state. Items you
have already enrolled are left untouched, so re-seeding never resets
learned progress.

Example:
  kioku seed --level N5`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedLevel, "level", "", "Catalog level to enroll (required)")
	_ = seedCmd.MarkFlagRequired("level")
}

func runSeed(cmd *cobra.Command, args []string) error {
	client, err := kioku.New(loadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	created, err := client.SeedLevel(cmd.Context(), userID(), seedLevel)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if created == 0 {
		fmt.Fprintf(out, "Level %s already fully enrolled.\n", seedLevel)
		return nil
	}
	fmt.Fprintf(out, "%s %d new cards from level %s\n",
		plainIfPiped(successStyle, "Enrolled:"), created, seedLevel)
	return nil
}
