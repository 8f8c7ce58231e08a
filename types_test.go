package kioku

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRating_String(t *testing.T) {
	tests := []struct {
		rating Rating
		want   string
	}{
		{Again, "again"},
		{Hard, "hard"},
		{Good, "good"},
		{Easy, "easy"},
		{Rating(0), "Rating(0)"},
		{Rating(9), "Rating(9)"},
	}
	for _, tt := range tests {
		if got := tt.rating.String(); got != tt.want {
			t.Errorf("Rating(%d).String() = %q, want %q", int(tt.rating), got, tt.want)
		}
	}
}

func TestRating_Correct(t *testing.T) {
	if Again.Correct() {
		t.Error("Again.Correct() = true, want false")
	}
	for _, r := range []Rating{Hard, Good, Easy} {
		if !r.Correct() {
			t.Errorf("%s.Correct() = false, want true", r)
		}
	}
}

func TestParseRating(t *testing.T) {
	for _, name := range []string{"again", "hard", "good", "easy"} {
		r, err := ParseRating(name)
		if err != nil {
			t.Errorf("ParseRating(%q) failed: %v", name, err)
		}
		if r.String() != name {
			t.Errorf("ParseRating(%q).String() = %q", name, r.String())
		}
	}

	if _, err := ParseRating("meh"); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("ParseRating(\"meh\"): err = %v, want ErrInvalidRating", err)
	}
	// Names are case-sensitive; the wire format is lowercase.
	if _, err := ParseRating("Good"); err == nil {
		t.Error("ParseRating(\"Good\") succeeded, want error")
	}
}

func TestRating_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Easy)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"easy"` {
		t.Errorf("Marshal(Easy) = %s, want %q", data, `"easy"`)
	}

	var r Rating
	if err := json.Unmarshal([]byte(`"again"`), &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if r != Again {
		t.Errorf("Unmarshal = %s, want again", r)
	}

	if err := json.Unmarshal([]byte(`3`), &r); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("Unmarshal(3): err = %v, want ErrInvalidRating (strings only)", err)
	}
	if _, err := json.Marshal(Rating(7)); err == nil {
		t.Error("Marshal(Rating(7)) succeeded, want error")
	}
}

func TestNewCard(t *testing.T) {
	now := testNow()
	card := NewCard("u1", "水", now)

	if card.Ease != DefaultEase {
		t.Errorf("Ease = %v, want %v", card.Ease, DefaultEase)
	}
	if card.Repetition != 0 || card.IntervalDays != 0 || card.Lapses != 0 {
		t.Errorf("card = %+v, want zero counters", card)
	}
	if !card.Due(now) {
		t.Error("fresh card not due immediately")
	}
	if card.LastReviewedAt != nil {
		t.Errorf("LastReviewedAt = %v, want nil before first review", card.LastReviewedAt)
	}
}

func TestCard_Due(t *testing.T) {
	now := testNow()
	card := Card{DueAt: now}

	if !card.Due(now) {
		t.Error("card due exactly now reported not due")
	}
	if !card.Due(now.Add(time.Hour)) {
		t.Error("overdue card reported not due")
	}
	if card.Due(now.Add(-time.Second)) {
		t.Error("future card reported due")
	}
}
