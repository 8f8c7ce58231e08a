package kioku

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// Item is a single learnable catalog entry. The catalog is reference data:
// kioku reads it for display and ordering but never mutates it.
type Item struct {
	ID      string `json:"id"` // the glyph itself, e.g. "水"
	Level   string `json:"level"`
	Meaning string `json:"meaning"`
	Onyomi  string `json:"onyomi,omitempty"`
	Kunyomi string `json:"kunyomi,omitempty"`
}

// Card is the per-(user, item) scheduling record. It is created when a
// learner enrolls an item and from then on mutated exclusively by
// Scheduler.Advance in response to graded reviews.
type Card struct {
	UserID         string     `json:"user_id"`
	ItemID         string     `json:"item_id"`
	Ease           float64    `json:"ease"`
	IntervalDays   int        `json:"interval_days"`
	Repetition     int        `json:"repetition"`
	Lapses         int        `json:"lapses"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"` // nil before first review
}

// NewCard returns the enrollment state for a fresh card: default ease,
// zero interval and repetition, due immediately.
func NewCard(userID, itemID string, now time.Time) Card {
	return Card{
		UserID: userID,
		ItemID: itemID,
		Ease:   DefaultEase,
		DueAt:  now,
	}
}

// Due reports whether the card is due at the given time.
func (c Card) Due(now time.Time) bool {
	return !c.DueAt.After(now)
}

// Scheduling defaults shared by enrollment and bulk seeding.
const (
	DefaultEase = 2.5
	MinEase     = 1.3
	MaxEase     = 3.2
)

// Rating is the learner's recall quality signal for a single review.
type Rating int

const (
	Again Rating = iota + 1 // failed recall; full relearning reset
	Hard                    // recalled with significant difficulty
	Good                    // recalled with some effort
	Easy                    // recalled effortlessly
)

var (
	ratingNames  = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}
	ratingByName = map[string]Rating{
		"again": Again,
		"hard":  Hard,
		"good":  Good,
		"easy":  Easy,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Rating(0)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// String returns the lowercase rating name ("again", "hard", "good", "easy"),
// or "Rating(n)" for invalid values.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// IsValid reports whether r is one of the four defined ratings.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// Correct reports whether the rating counts as a successful recall.
// Only Again is a lapse.
func (r Rating) Correct() bool {
	return r != Again
}

// ParseRating converts a rating name to a Rating.
func ParseRating(s string) (Rating, error) {
	r, ok := ratingByName[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalJSON implements json.Marshaler. Rating serializes as a JSON string.
func (r Rating) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRating, data)
	}
	return r.UnmarshalText([]byte(s))
}

// Review is one append-only review-log row.
type Review struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ItemID     string     `json:"item_id"`
	Rating     Rating     `json:"rating"`
	Correct    bool       `json:"correct"`
	ReviewedAt time.Time  `json:"reviewed_at"`
	SyncedAt   *time.Time `json:"synced_at,omitempty"`
}

// StoreStats summarizes one user's local state.
type StoreStats struct {
	Cards       int       `json:"cards"`
	DueNow      int       `json:"due_now"`
	Lapses      int       `json:"lapses"`
	Reviews     int       `json:"reviews"`
	PendingSync int       `json:"pending_sync"`
	LastSync    time.Time `json:"last_sync,omitempty"`
}

// ProgressSummary reports gamification bookkeeping for a user.
type ProgressSummary struct {
	XP           int    `json:"xp"`
	Level        int    `json:"level"`
	Streak       int    `json:"streak"`
	TodayReviews int    `json:"today_reviews"`
	TodayCorrect int    `json:"today_correct"`
	LastActive   string `json:"last_active,omitempty"` // YYYY-MM-DD
}
