package kioku

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "kioku.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTestItems(t *testing.T, store *Store) {
	t.Helper()
	items := []Item{
		{ID: "水", Level: "1", Meaning: "water", Onyomi: "スイ", Kunyomi: "みず"},
		{ID: "火", Level: "1", Meaning: "fire", Onyomi: "カ", Kunyomi: "ひ"},
		{ID: "優", Level: "5", Meaning: "superior"},
	}
	if _, err := store.UpsertItems(context.Background(), items); err != nil {
		t.Fatalf("UpsertItems failed: %v", err)
	}
}

func TestStore_MigratesSchema(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	version, err := store.GetMetadata(ctx, "schema_version")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if version != "1" {
		t.Errorf("schema_version = %q, want %q", version, "1")
	}
}

// TestStore_ReopenKeepsData: closing and reopening the same file preserves
// everything and reruns no migrations destructively.
func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kioku.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if _, err := store.UpsertItems(ctx, []Item{{ID: "木", Level: "1", Meaning: "tree"}}); err != nil {
		t.Fatalf("UpsertItems failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	item, err := store.Item(ctx, "木")
	if err != nil {
		t.Fatalf("Item after reopen failed: %v", err)
	}
	if item.Meaning != "tree" {
		t.Errorf("Meaning = %q, want %q", item.Meaning, "tree")
	}
}

func TestStore_ClosedOperations(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Item(ctx, "水"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Item on closed store: err = %v, want ErrStoreClosed", err)
	}
	if err := store.UpsertCard(ctx, Card{}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("UpsertCard on closed store: err = %v, want ErrStoreClosed", err)
	}
	// Double close is safe.
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestStore_ItemLookup(t *testing.T) {
	store := newTestStore(t)
	seedTestItems(t, store)
	ctx := context.Background()

	item, err := store.Item(ctx, "水")
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if item.Meaning != "water" || item.Onyomi != "スイ" || item.Kunyomi != "みず" {
		t.Errorf("item = %+v, want water readings", item)
	}

	if _, err := store.Item(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing item: err = %v, want ErrNotFound", err)
	}

	level1, err := store.ItemsByLevel(ctx, "1")
	if err != nil {
		t.Fatalf("ItemsByLevel failed: %v", err)
	}
	if len(level1) != 2 {
		t.Fatalf("level 1 items = %d, want 2", len(level1))
	}
	// Ordered by ID for reproducible seeding.
	if level1[0].ID > level1[1].ID {
		t.Errorf("items not ordered by ID: %q, %q", level1[0].ID, level1[1].ID)
	}
}

// TestStore_UpsertItemsReplaces: a second upsert of the same ID updates the
// row instead of duplicating it.
func TestStore_UpsertItemsReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.UpsertItems(ctx, []Item{{ID: "金", Level: "1", Meaning: "gold"}}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := store.UpsertItems(ctx, []Item{{ID: "金", Level: "2", Meaning: "money"}}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	item, err := store.Item(ctx, "金")
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if item.Level != "2" || item.Meaning != "money" {
		t.Errorf("item = %+v, want updated level 2 / money", item)
	}
}

func TestStore_CardRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testNow()

	reviewed := now.Add(-24 * time.Hour)
	card := Card{
		UserID:         "u1",
		ItemID:         "水",
		Ease:           2.35,
		IntervalDays:   10,
		Repetition:     4,
		Lapses:         1,
		DueAt:          now.AddDate(0, 0, 10),
		LastReviewedAt: &reviewed,
	}
	if err := store.UpsertCard(ctx, card); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	got, err := store.Card(ctx, "u1", "水")
	if err != nil {
		t.Fatalf("Card failed: %v", err)
	}
	if got.Ease != 2.35 || got.IntervalDays != 10 || got.Repetition != 4 || got.Lapses != 1 {
		t.Errorf("card = %+v, want scheduling fields preserved", got)
	}
	if !got.DueAt.Equal(card.DueAt) {
		t.Errorf("DueAt = %v, want %v", got.DueAt, card.DueAt)
	}
	if got.LastReviewedAt == nil || !got.LastReviewedAt.Equal(reviewed) {
		t.Errorf("LastReviewedAt = %v, want %v", got.LastReviewedAt, reviewed)
	}

	if _, err := store.Card(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing card: err = %v, want ErrNotFound", err)
	}
}

// TestStore_UpsertCardLastWriteWins: the second full-record write replaces
// the first entirely.
func TestStore_UpsertCardLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testNow()

	first := Card{UserID: "u1", ItemID: "火", Ease: 2.5, IntervalDays: 3, Repetition: 2, DueAt: now}
	second := Card{UserID: "u1", ItemID: "火", Ease: 1.8, IntervalDays: 0, Repetition: 0, Lapses: 1, DueAt: now}

	if err := store.UpsertCard(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := store.UpsertCard(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := store.Card(ctx, "u1", "火")
	if err != nil {
		t.Fatalf("Card failed: %v", err)
	}
	if got.Ease != 1.8 || got.Repetition != 0 || got.Lapses != 1 {
		t.Errorf("card = %+v, want the later write", got)
	}

	cards, err := store.CardsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("CardsForUser failed: %v", err)
	}
	if len(cards) != 1 {
		t.Errorf("cards = %d, want 1 (upsert, not insert)", len(cards))
	}
}

// TestStore_UpsertReviewWritesBoth: one grading transition lands the card
// state and the review-log row together.
func TestStore_UpsertReviewWritesBoth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testNow()

	card := Card{UserID: "u1", ItemID: "水", Ease: 2.5, IntervalDays: 1, Repetition: 1, DueAt: now.AddDate(0, 0, 1)}
	review := Review{UserID: "u1", ItemID: "水", Rating: Good, Correct: true, ReviewedAt: now}

	if err := store.UpsertReview(ctx, card, review); err != nil {
		t.Fatalf("UpsertReview failed: %v", err)
	}

	if _, err := store.Card(ctx, "u1", "水"); err != nil {
		t.Errorf("card not written: %v", err)
	}

	reviews, err := store.ReviewsForUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("ReviewsForUser failed: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(reviews))
	}
	r := reviews[0]
	if r.ID == "" {
		t.Error("review ID not assigned")
	}
	if r.Rating != Good || !r.Correct || !r.ReviewedAt.Equal(now) {
		t.Errorf("review = %+v, want Good/correct at %v", r, now)
	}
	if r.SyncedAt != nil {
		t.Errorf("SyncedAt = %v, want nil for fresh review", r.SyncedAt)
	}
}

// TestStore_SeedCardsIdempotent: re-seeding never resets learned state.
func TestStore_SeedCardsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testNow()

	defaults := NewCard("u1", "", now)
	created, err := store.SeedCards(ctx, "u1", []string{"水", "火"}, defaults)
	if err != nil {
		t.Fatalf("SeedCards failed: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}

	// Learn one card, then re-seed.
	learned := Card{UserID: "u1", ItemID: "水", Ease: 2.65, IntervalDays: 10, Repetition: 3, DueAt: now.AddDate(0, 0, 10)}
	if err := store.UpsertCard(ctx, learned); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	created, err = store.SeedCards(ctx, "u1", []string{"水", "火", "木"}, defaults)
	if err != nil {
		t.Fatalf("re-seed failed: %v", err)
	}
	if created != 1 {
		t.Errorf("created on re-seed = %d, want 1 (only the new item)", created)
	}

	got, err := store.Card(ctx, "u1", "水")
	if err != nil {
		t.Fatalf("Card failed: %v", err)
	}
	if got.Repetition != 3 || got.IntervalDays != 10 {
		t.Errorf("learned card reset by re-seed: %+v", got)
	}
}

func TestStore_UnsyncedReviewsLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testNow()

	for i, itemID := range []string{"水", "火", "木"} {
		card := Card{UserID: "u1", ItemID: itemID, Ease: 2.5, DueAt: now}
		review := Review{UserID: "u1", ItemID: itemID, Rating: Good, Correct: true, ReviewedAt: now.Add(time.Duration(i) * time.Minute)}
		if err := store.UpsertReview(ctx, card, review); err != nil {
			t.Fatalf("UpsertReview failed: %v", err)
		}
	}

	unsynced, err := store.UnsyncedReviews(ctx, 0)
	if err != nil {
		t.Fatalf("UnsyncedReviews failed: %v", err)
	}
	if len(unsynced) != 3 {
		t.Fatalf("unsynced = %d, want 3", len(unsynced))
	}

	syncedAt := now.Add(time.Hour)
	ids := []string{unsynced[0].ID, unsynced[1].ID}
	if err := store.MarkReviewsSynced(ctx, ids, syncedAt); err != nil {
		t.Fatalf("MarkReviewsSynced failed: %v", err)
	}

	unsynced, err = store.UnsyncedReviews(ctx, 0)
	if err != nil {
		t.Fatalf("UnsyncedReviews failed: %v", err)
	}
	if len(unsynced) != 1 {
		t.Errorf("unsynced after mark = %d, want 1", len(unsynced))
	}

	all, err := store.ReviewsForUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("ReviewsForUser failed: %v", err)
	}
	synced := 0
	for _, r := range all {
		if r.SyncedAt != nil {
			synced++
		}
	}
	if synced != 2 {
		t.Errorf("synced rows = %d, want 2", synced)
	}
}

func TestStore_Metadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if v, err := store.GetMetadata(ctx, "absent"); err != nil || v != "" {
		t.Errorf("absent key = (%q, %v), want empty with no error", v, err)
	}
	if err := store.SetMetadata(ctx, "last_sync", "2026-03-14T09:00:00Z"); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if err := store.SetMetadata(ctx, "last_sync", "2026-03-15T09:00:00Z"); err != nil {
		t.Fatalf("SetMetadata overwrite failed: %v", err)
	}
	v, err := store.GetMetadata(ctx, "last_sync")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if v != "2026-03-15T09:00:00Z" {
		t.Errorf("last_sync = %q, want overwritten value", v)
	}
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testNow()

	cards := []Card{
		{UserID: "u1", ItemID: "水", Ease: 2.5, DueAt: now.AddDate(0, 0, -1), Lapses: 2},
		{UserID: "u1", ItemID: "火", Ease: 2.5, DueAt: now.AddDate(0, 0, 5)},
		{UserID: "u2", ItemID: "水", Ease: 2.5, DueAt: now},
	}
	for _, c := range cards {
		if err := store.UpsertCard(ctx, c); err != nil {
			t.Fatalf("UpsertCard failed: %v", err)
		}
	}
	review := Review{UserID: "u1", ItemID: "水", Rating: Hard, Correct: true, ReviewedAt: now}
	if err := store.UpsertReview(ctx, cards[0], review); err != nil {
		t.Fatalf("UpsertReview failed: %v", err)
	}

	stats, err := store.Stats(ctx, "u1", now)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Cards != 2 {
		t.Errorf("Cards = %d, want 2", stats.Cards)
	}
	if stats.DueNow != 1 {
		t.Errorf("DueNow = %d, want 1", stats.DueNow)
	}
	if stats.Lapses != 2 {
		t.Errorf("Lapses = %d, want 2", stats.Lapses)
	}
	if stats.Reviews != 1 {
		t.Errorf("Reviews = %d, want 1", stats.Reviews)
	}
	if stats.PendingSync != 1 {
		t.Errorf("PendingSync = %d, want 1", stats.PendingSync)
	}
}
