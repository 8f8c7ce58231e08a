package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperengineering/kioku"
	"github.com/spf13/cobra"
)

const timeRound = 10 * time.Millisecond

var syncLevels string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push review activity and pull catalog updates",
	Long: `Run one sync pass against the configured backend: unsynced review
activity and current card snapshots are pushed up, then catalog items for
the requested levels are pulled down.

Requires --backend-url and --api-key (or their environment variables).`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncLevels, "levels", "", "Comma-separated catalog levels to pull (e.g. N5,N4)")
}

func runSync(cmd *cobra.Command, args []string) error {
	client, err := kioku.New(loadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var levels []string
	for _, l := range strings.Split(syncLevels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			levels = append(levels, l)
		}
	}

	stats, err := client.Sync(cmd.Context(), levels)
	if err != nil {
		if err == kioku.ErrOffline {
			return fmt.Errorf("no backend configured (set --backend-url or KIOKU_BACKEND_URL)")
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s pushed %d reviews, pulled %d items (%s)\n",
		plainIfPiped(successStyle, "Synced:"),
		stats.PushedReviews, stats.PulledItems, stats.Duration.Round(timeRound))
	return nil
}
