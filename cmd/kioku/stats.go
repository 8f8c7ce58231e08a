package main

import (
	"encoding/json"
	"fmt"

	"github.com/hyperengineering/kioku"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show card counts and study progress",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := kioku.New(loadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx := cmd.Context()
	uid := userID()

	stats, err := client.Stats(ctx, uid)
	if err != nil {
		return err
	}
	progress, err := client.Progress(ctx, uid)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Store    *kioku.StoreStats      `json:"store"`
			Progress *kioku.ProgressSummary `json:"progress"`
		}{stats, progress})
	}

	fmt.Fprintln(out, plainIfPiped(titleStyle, "Deck"))
	fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("Cards:"), stats.Cards)
	fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("Due now:"), stats.DueNow)
	fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("Reviews:"), stats.Reviews)
	fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("Lapses:"), stats.Lapses)
	if stats.PendingSync > 0 {
		fmt.Fprintf(out, "  %s %d\n", warnStyle.Render("Unsynced:"), stats.PendingSync)
	}

	fmt.Fprintln(out, plainIfPiped(titleStyle, "Progress"))
	fmt.Fprintf(out, "  %s %d (level %d)\n", labelStyle.Render("XP:"), progress.XP, progress.Level)
	fmt.Fprintf(out, "  %s %d days\n", labelStyle.Render("Streak:"), progress.Streak)
	fmt.Fprintf(out, "  %s %d reviews, %d correct\n",
		labelStyle.Render("Today:"), progress.TodayReviews, progress.TodayCorrect)
	return nil
}
