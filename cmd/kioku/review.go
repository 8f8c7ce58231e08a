package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperengineering/kioku"
	"github.com/spf13/cobra"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review cards that are due now",
	Long: `Start a review session over the cards currently due.

Each card shows its glyph first; press Enter to reveal the answer, then
grade your recall:

  a / again - failed, relearn from scratch
  h / hard  - recalled with difficulty
  g / good  - recalled with some effort
  e / easy  - recalled effortlessly
  q / quit  - end the session early`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 0, "Maximum cards this session (default 20)")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if reviewLimit > 0 {
		cfg.QueueLimit = reviewLimit
	}

	client, err := kioku.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx := cmd.Context()
	session, err := client.StartSession(ctx, userID())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if session.State() == kioku.SessionCompleted {
		fmt.Fprintln(out, plainIfPiped(successStyle, "All caught up!")+" Nothing due right now.")
		fmt.Fprintln(out, mutedStyle.Render("Tip: `kioku seed --level N5` enrolls a level."))
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		card, ok := session.Current()
		if !ok {
			break
		}

		fmt.Fprintf(out, "\n%s  %s\n",
			plainIfPiped(glyphStyle, card.Item.ID),
			mutedStyle.Render(fmt.Sprintf("(%d left)", session.Remaining())))
		fmt.Fprint(out, mutedStyle.Render("Press Enter to reveal... "))
		if _, err := reader.ReadString('\n'); err != nil {
			break
		}

		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Meaning:"), valueStyle.Render(card.Item.Meaning))
		if card.Item.Onyomi != "" {
			fmt.Fprintf(out, "%s  %s\n", labelStyle.Render("Onyomi:"), valueStyle.Render(card.Item.Onyomi))
		}
		if card.Item.Kunyomi != "" {
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Kunyomi:"), valueStyle.Render(card.Item.Kunyomi))
		}

		rating, quit := promptRating(out, reader)
		if quit {
			fmt.Fprintln(out, mutedStyle.Render("Session ended early."))
			break
		}

		result, err := session.Grade(rating)
		if err != nil {
			return err
		}

		if result.Correct {
			fmt.Fprintf(out, "%s next review in %dd\n",
				plainIfPiped(successStyle, "✓"), result.Card.IntervalDays)
		} else {
			fmt.Fprintf(out, "%s back to relearning\n", plainIfPiped(warnStyle, "↺"))
		}

		if result.Completed {
			break
		}
	}

	fmt.Fprintf(out, "\n%s %d correct, %d again\n",
		plainIfPiped(titleStyle, "Session done:"),
		session.CorrectCount(), session.WrongCount())
	return nil
}

// promptRating reads a grading keystroke. Unrecognized input re-prompts.
func promptRating(out io.Writer, reader *bufio.Reader) (kioku.Rating, bool) {
	for {
		fmt.Fprint(out, labelStyle.Render("[a]gain [h]ard [g]ood [e]asy [q]uit > "))
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, true
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a", "again":
			return kioku.Again, false
		case "h", "hard":
			return kioku.Hard, false
		case "g", "good":
			return kioku.Good, false
		case "e", "easy":
			return kioku.Easy, false
		case "q", "quit":
			return 0, true
		}
	}
}
