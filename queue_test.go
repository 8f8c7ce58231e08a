package kioku

import (
	"testing"
	"time"
)

// TestBuildQueue_FiltersAndOrders: only due cards survive, ordered most
// overdue first.
func TestBuildQueue_FiltersAndOrders(t *testing.T) {
	now := testNow()
	cards := []Card{
		{ItemID: "a", DueAt: now.AddDate(0, 0, 1)},  // future, excluded
		{ItemID: "b", DueAt: now.AddDate(0, 0, -3)}, // most overdue
		{ItemID: "c", DueAt: now},                   // due at the boundary
		{ItemID: "d", DueAt: now.AddDate(0, 0, -1)},
	}

	queue := BuildQueue(cards, now, 0)

	want := []string{"b", "d", "c"}
	if len(queue) != len(want) {
		t.Fatalf("queue length = %d, want %d", len(queue), len(want))
	}
	for i, id := range want {
		if queue[i].ItemID != id {
			t.Errorf("queue[%d].ItemID = %q, want %q", i, queue[i].ItemID, id)
		}
	}
}

// TestBuildQueue_TieBreakByItemID: cards with identical due times order by
// item ID so the queue is stable across runs.
func TestBuildQueue_TieBreakByItemID(t *testing.T) {
	now := testNow()
	due := now.AddDate(0, 0, -1)
	cards := []Card{
		{ItemID: "z", DueAt: due},
		{ItemID: "a", DueAt: due},
		{ItemID: "m", DueAt: due},
	}

	queue := BuildQueue(cards, now, 0)

	want := []string{"a", "m", "z"}
	for i, id := range want {
		if queue[i].ItemID != id {
			t.Errorf("queue[%d].ItemID = %q, want %q", i, queue[i].ItemID, id)
		}
	}
}

func TestBuildQueue_Limit(t *testing.T) {
	now := testNow()
	var cards []Card
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		cards = append(cards, Card{ItemID: id, DueAt: now.AddDate(0, 0, -1)})
	}

	if got := BuildQueue(cards, now, 2); len(got) != 2 {
		t.Errorf("limit 2: queue length = %d, want 2", len(got))
	}
	if got := BuildQueue(cards, now, 10); len(got) != 5 {
		t.Errorf("limit beyond size: queue length = %d, want 5", len(got))
	}
	if got := BuildQueue(cards, now, 0); len(got) != 5 {
		t.Errorf("no limit: queue length = %d, want 5", len(got))
	}
}

func TestBuildQueue_EmptyInput(t *testing.T) {
	if got := BuildQueue(nil, testNow(), 0); len(got) != 0 {
		t.Errorf("BuildQueue(nil) = %v, want empty", got)
	}
}

func TestBuildQueue_NothingDue(t *testing.T) {
	now := testNow()
	cards := []Card{
		{ItemID: "a", DueAt: now.Add(time.Minute)},
		{ItemID: "b", DueAt: now.AddDate(0, 0, 7)},
	}
	if got := BuildQueue(cards, now, 0); len(got) != 0 {
		t.Errorf("queue = %v, want empty", got)
	}
}

// TestBuildQueue_DoesNotMutateInput: the source slice keeps its order.
func TestBuildQueue_DoesNotMutateInput(t *testing.T) {
	now := testNow()
	cards := []Card{
		{ItemID: "z", DueAt: now.AddDate(0, 0, -1)},
		{ItemID: "a", DueAt: now.AddDate(0, 0, -2)},
	}

	BuildQueue(cards, now, 0)

	if cards[0].ItemID != "z" || cards[1].ItemID != "a" {
		t.Errorf("input slice reordered: %q, %q", cards[0].ItemID, cards[1].ItemID)
	}
}
