package kioku

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// XP awards per review outcome.
const (
	xpPerCorrect = 10
	xpPerLapse   = 2
	xpPerLevel   = 100
)

// Progress is the store-backed ProgressTracker: it maintains per-day review
// counters and the user's streak, XP and level. It is a notification sink
// for the session — scheduling correctness never depends on it.
type Progress struct {
	store *Store
	now   func() time.Time
}

// NewProgress creates a progress tracker on top of the store.
func NewProgress(store *Store) *Progress {
	return &Progress{store: store, now: time.Now}
}

var _ ProgressTracker = (*Progress)(nil)

// RecordOutcome bumps today's daily counters and updates streak, XP and
// level for the user. The whole update is one transaction.
//
// Streak rule: active yesterday extends the streak, active today keeps it,
// anything older resets it to 1.
func (p *Progress) RecordOutcome(ctx context.Context, userID, itemID string, correct bool, rating Rating) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	if p.store.closed {
		return ErrStoreClosed
	}

	now := p.now().UTC()
	today := dayString(now)
	yesterday := dayString(now.AddDate(0, 0, -1))

	tx, err := p.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("progress: begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	correctDelta := 0
	xpDelta := xpPerLapse
	if correct {
		correctDelta = 1
		xpDelta = xpPerCorrect
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO daily_progress (user_id, day, reviews_done, correct_done)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			reviews_done = reviews_done + 1,
			correct_done = correct_done + excluded.correct_done
	`, userID, today, correctDelta)
	if err != nil {
		return fmt.Errorf("progress: bump daily: %w", err)
	}

	var (
		xp      int
		streak  int
		lastDay sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT xp, streak, last_active_day FROM user_stats WHERE user_id = ?
	`, userID).Scan(&xp, &streak, &lastDay)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("progress: read stats: %w", err)
	}

	switch {
	case lastDay.Valid && lastDay.String == today:
		// already active today, streak unchanged
	case lastDay.Valid && lastDay.String == yesterday:
		streak++
	default:
		streak = 1
	}

	xp += xpDelta
	level := xp/xpPerLevel + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, xp, level, streak, last_active_day, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			streak = excluded.streak,
			last_active_day = excluded.last_active_day,
			updated_at = excluded.updated_at
	`, userID, xp, level, streak, today, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("progress: write stats: %w", err)
	}

	return tx.Commit()
}

// Summary returns the user's XP, level, streak and today's counters.
// A user with no recorded activity gets the zero summary at level 1.
func (p *Progress) Summary(ctx context.Context, userID string) (*ProgressSummary, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	if p.store.closed {
		return nil, ErrStoreClosed
	}

	summary := &ProgressSummary{Level: 1}
	today := dayString(p.now().UTC())

	var lastDay sql.NullString
	err := p.store.db.QueryRowContext(ctx, `
		SELECT xp, level, streak, last_active_day FROM user_stats WHERE user_id = ?
	`, userID).Scan(&summary.XP, &summary.Level, &summary.Streak, &lastDay)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("progress: read stats: %w", err)
	}
	if lastDay.Valid {
		summary.LastActive = lastDay.String
	}

	err = p.store.db.QueryRowContext(ctx, `
		SELECT reviews_done, correct_done FROM daily_progress
		WHERE user_id = ? AND day = ?
	`, userID, today).Scan(&summary.TodayReviews, &summary.TodayCorrect)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("progress: read daily: %w", err)
	}

	return summary, nil
}

func dayString(t time.Time) string {
	return t.Format("2006-01-02")
}
