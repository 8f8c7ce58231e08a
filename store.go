package kioku

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperengineering/kioku/internal/store/migrations"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Store is the local SQLite persistence layer: the item catalog, per-user
// cards, the append-only review log, progress bookkeeping and metadata.
//
// Card writes are full-record upserts keyed (user_id, item_id) with
// last-write-wins semantics; no optimistic-concurrency token is kept. Two
// concurrent sessions (e.g. two devices) may race on the same card and the
// later write wins — an accepted tradeoff for a single-learner tool.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewStore opens or creates a local database at path and applies pending
// schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL keeps the effect worker's writes from blocking session reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("store: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("store: run migrations: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, schemaVersion)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the store. Subsequent operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// --- catalog ---

// UpsertItems inserts or replaces catalog items. Returns the number written.
func (s *Store) UpsertItems(ctx context.Context, items []Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, level, meaning, onyomi, kunyomi, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				level = excluded.level,
				meaning = excluded.meaning,
				onyomi = excluded.onyomi,
				kunyomi = excluded.kunyomi
		`, item.ID, item.Level, item.Meaning, nullString(item.Onyomi), nullString(item.Kunyomi), now)
		if err != nil {
			return 0, fmt.Errorf("store: upsert item %q: %w", item.ID, err)
		}
		written++
	}

	return written, tx.Commit()
}

// Item retrieves a single catalog item by ID.
func (s *Store) Item(ctx context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, level, meaning, onyomi, kunyomi FROM items WHERE id = ?
	`, id)

	var item Item
	var onyomi, kunyomi sql.NullString
	err := row.Scan(&item.ID, &item.Level, &item.Meaning, &onyomi, &kunyomi)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get item: %w", err)
	}
	item.Onyomi = onyomi.String
	item.Kunyomi = kunyomi.String
	return &item, nil
}

// ItemsByLevel returns catalog items for a level, ordered by ID for
// reproducible seeding.
func (s *Store) ItemsByLevel(ctx context.Context, level string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, level, meaning, onyomi, kunyomi FROM items
		WHERE level = ? ORDER BY id
	`, level)
	if err != nil {
		return nil, fmt.Errorf("store: items by level: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var onyomi, kunyomi sql.NullString
		if err := rows.Scan(&item.ID, &item.Level, &item.Meaning, &onyomi, &kunyomi); err != nil {
			return nil, fmt.Errorf("store: scan item: %w", err)
		}
		item.Onyomi = onyomi.String
		item.Kunyomi = kunyomi.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemsByIDs returns the catalog rows for the given IDs. Missing IDs are
// silently absent from the result.
func (s *Store) ItemsByIDs(ctx context.Context, ids []string) (map[string]Item, error) {
	result := make(map[string]Item, len(ids))
	for _, id := range ids {
		item, err := s.Item(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		result[id] = *item
	}
	return result, nil
}

// --- cards ---

// CardsForUser returns all of a user's cards.
func (s *Store) CardsForUser(ctx context.Context, userID string) ([]Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, item_id, ease, interval_days, repetition, lapses, due_at, last_reviewed_at
		FROM cards WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: cards for user: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, nil
}

// Card retrieves a single card by (user, item).
func (s *Store) Card(ctx context.Context, userID, itemID string) (*Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, item_id, ease, interval_days, repetition, lapses, due_at, last_reviewed_at
		FROM cards WHERE user_id = ? AND item_id = ?
	`, userID, itemID)

	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("card %s/%s: %w", userID, itemID, ErrNotFound)
	}
	return card, err
}

// UpsertCard writes a card as a full-record upsert keyed (user, item).
func (s *Store) UpsertCard(ctx context.Context, card Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	return upsertCardExec(ctx, s.db, card)
}

// UpsertReview atomically upserts a graded card and appends its review-log
// row in one transaction, so a crash between the two cannot leave the log
// ahead of the card. This is the write path of a grading transition.
func (s *Store) UpsertReview(ctx context.Context, card Card, review Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	if err := upsertCardExec(ctx, tx, card); err != nil {
		return err
	}

	if review.ID == "" {
		review.ID = ulid.Make().String()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_log (id, user_id, item_id, rating, correct, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		review.ID,
		review.UserID,
		review.ItemID,
		review.Rating.String(),
		boolToInt(review.Correct),
		review.ReviewedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: insert review: %w", err)
	}

	return tx.Commit()
}

// SeedCards bulk-enrolls the given items for a user with the provided
// defaults. Existing cards are left untouched (INSERT OR IGNORE), so
// re-seeding a level never resets learned state. Returns the number of new
// cards created.
func (s *Store) SeedCards(ctx context.Context, userID string, itemIDs []string, defaults Card) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	created := 0
	for _, itemID := range itemIDs {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO cards
				(user_id, item_id, ease, interval_days, repetition, lapses, due_at, last_reviewed_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)
		`,
			userID,
			itemID,
			defaults.Ease,
			defaults.IntervalDays,
			defaults.Repetition,
			defaults.Lapses,
			defaults.DueAt.UTC().Format(time.RFC3339),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("store: seed card %q: %w", itemID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}

	return created, tx.Commit()
}

// --- review log ---

// ReviewsForUser returns a user's review log, newest first, capped at limit
// (limit <= 0 means all).
func (s *Store) ReviewsForUser(ctx context.Context, userID string, limit int) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, user_id, item_id, rating, correct, reviewed_at, synced_at
		FROM review_log WHERE user_id = ? ORDER BY reviewed_at DESC, id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: reviews for user: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// UnsyncedReviews returns review rows not yet pushed to the backend, oldest
// first, capped at limit.
func (s *Store) UnsyncedReviews(ctx context.Context, limit int) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, user_id, item_id, rating, correct, reviewed_at, synced_at
		FROM review_log WHERE synced_at IS NULL ORDER BY id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: unsynced reviews: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// MarkReviewsSynced stamps the given review rows as pushed.
func (s *Store) MarkReviewsSynced(ctx context.Context, ids []string, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if len(ids) == 0 {
		return nil
	}

	stamp := syncedAt.UTC().Format(time.RFC3339)
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE review_log SET synced_at = ? WHERE id = ?
		`, stamp, id); err != nil {
			return fmt.Errorf("store: mark synced %q: %w", id, err)
		}
	}
	return nil
}

// --- metadata & stats ---

// GetMetadata returns a metadata value, or "" if absent.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata writes a metadata key.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Stats summarizes a user's local state at the given time.
func (s *Store) Stats(ctx context.Context, userID string, now time.Time) (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	stats := &StoreStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(lapses), 0) FROM cards WHERE user_id = ?
	`, userID).Scan(&stats.Cards, &stats.Lapses)
	if err != nil {
		return nil, fmt.Errorf("store: card stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cards WHERE user_id = ? AND due_at <= ?
	`, userID, now.UTC().Format(time.RFC3339)).Scan(&stats.DueNow)
	if err != nil {
		return nil, fmt.Errorf("store: due stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM review_log WHERE user_id = ?
	`, userID).Scan(&stats.Reviews)
	if err != nil {
		return nil, fmt.Errorf("store: review stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM review_log WHERE synced_at IS NULL
	`).Scan(&stats.PendingSync)
	if err != nil {
		return nil, fmt.Errorf("store: sync stats: %w", err)
	}

	var lastSync sql.NullString
	_ = s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'last_sync'`).Scan(&lastSync)
	if lastSync.Valid {
		stats.LastSync, _ = time.Parse(time.RFC3339, lastSync.String)
	}

	return stats, nil
}

// --- scan helpers ---

// execer abstracts *sql.DB and *sql.Tx for shared write statements.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertCardExec(ctx context.Context, db execer, card Card) error {
	var lastReviewed *string
	if card.LastReviewedAt != nil {
		v := card.LastReviewedAt.UTC().Format(time.RFC3339)
		lastReviewed = &v
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO cards
			(user_id, item_id, ease, interval_days, repetition, lapses, due_at, last_reviewed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET
			ease = excluded.ease,
			interval_days = excluded.interval_days,
			repetition = excluded.repetition,
			lapses = excluded.lapses,
			due_at = excluded.due_at,
			last_reviewed_at = excluded.last_reviewed_at,
			updated_at = excluded.updated_at
	`,
		card.UserID,
		card.ItemID,
		card.Ease,
		card.IntervalDays,
		card.Repetition,
		card.Lapses,
		card.DueAt.UTC().Format(time.RFC3339),
		lastReviewed,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: upsert card %s/%s: %w", card.UserID, card.ItemID, err)
	}
	return nil
}

// scanner abstracts the Scan method shared by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCard(sc scanner) (*Card, error) {
	var (
		card         Card
		dueAt        string
		lastReviewed sql.NullString
	)

	err := sc.Scan(
		&card.UserID,
		&card.ItemID,
		&card.Ease,
		&card.IntervalDays,
		&card.Repetition,
		&card.Lapses,
		&dueAt,
		&lastReviewed,
	)
	if err != nil {
		return nil, err
	}

	card.DueAt, _ = time.Parse(time.RFC3339, dueAt)
	if lastReviewed.Valid {
		t, _ := time.Parse(time.RFC3339, lastReviewed.String)
		card.LastReviewedAt = &t
	}
	return &card, nil
}

func scanReviews(rows *sql.Rows) ([]Review, error) {
	var reviews []Review
	for rows.Next() {
		var (
			r          Review
			rating     string
			correct    int
			reviewedAt string
			syncedAt   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemID, &rating, &correct, &reviewedAt, &syncedAt); err != nil {
			return nil, fmt.Errorf("store: scan review: %w", err)
		}
		r.Rating, _ = ParseRating(rating)
		r.Correct = correct != 0
		r.ReviewedAt, _ = time.Parse(time.RFC3339, reviewedAt)
		if syncedAt.Valid {
			t, _ := time.Parse(time.RFC3339, syncedAt.String)
			r.SyncedAt = &t
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
