package kioku

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CardWriter persists a graded card. Writes are full-record last-write-wins
// upserts keyed by (user, item); see Store.UpsertReview.
type CardWriter interface {
	UpsertReview(ctx context.Context, card Card, review Review) error
}

// ProgressTracker records the outcome of a single graded review for streak,
// XP and daily-mission bookkeeping. Purely a notification: session
// correctness never depends on its success.
type ProgressTracker interface {
	RecordOutcome(ctx context.Context, userID, itemID string, correct bool, rating Rating) error
}

// SessionState is the lifecycle state of a ReviewSession.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionLoaded
	SessionPresenting
	SessionCompleted
)

var sessionStateNames = [...]string{
	SessionIdle:       "idle",
	SessionLoaded:     "loaded",
	SessionPresenting: "presenting",
	SessionCompleted:  "completed",
}

func (s SessionState) String() string {
	if int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// WriteStatus tracks the durability of a graded card's background upsert.
// The session removes a card from its queue before the write lands, so the
// in-memory and durable outcomes are observable independently.
type WriteStatus int

const (
	WritePending WriteStatus = iota // dispatched, not yet confirmed
	WriteSaved                      // upsert confirmed
	WriteFailed                     // retries exhausted; durability gap accepted
)

var writeStatusNames = [...]string{
	WritePending: "pending",
	WriteSaved:   "saved",
	WriteFailed:  "failed",
}

func (w WriteStatus) String() string {
	if int(w) < len(writeStatusNames) {
		return writeStatusNames[w]
	}
	return fmt.Sprintf("WriteStatus(%d)", int(w))
}

// SessionCard pairs a due card with its catalog item for presentation.
type SessionCard struct {
	Card Card
	Item Item
}

// GradedCard is a session's record of one consumed card.
type GradedCard struct {
	Card   Card // state after Scheduler.Advance
	Item   Item
	Rating Rating
	Write  WriteStatus
}

// GradeResult reports the immediate outcome of grading the front card.
type GradeResult struct {
	Card      Card // state after Scheduler.Advance
	Rating    Rating
	Correct   bool
	Remaining int
	Completed bool
}

// ReviewSession drives one bounded run through a due queue. It is a
// single-writer state machine: a mutex serializes grading, and a graded card
// is removed from the queue immediately, so grading the same card twice in
// one session is structurally impossible.
//
// The persistence and progress collaborators are injected at construction
// and invoked through the effect dispatcher: their failures are logged and
// never block advancement to the next card.
type ReviewSession struct {
	mu     sync.Mutex
	state  SessionState
	userID string

	queue   []SessionCard
	graded  []*GradedCard
	correct int
	wrong   int

	scheduler *Scheduler
	cards     CardWriter
	progress  ProgressTracker
	effects   *Dispatcher
	now       func() time.Time
}

// NewReviewSession creates an Idle session for the given user. cards,
// progress and effects may be nil for a purely in-memory session; grades are
// then not persisted and no effects are dispatched.
func NewReviewSession(userID string, scheduler *Scheduler, cards CardWriter, progress ProgressTracker, effects *Dispatcher) *ReviewSession {
	return &ReviewSession{
		state:     SessionIdle,
		userID:    userID,
		scheduler: scheduler,
		cards:     cards,
		progress:  progress,
		effects:   effects,
		now:       time.Now,
	}
}

// Load installs a built due queue, moving Idle → Loaded and then immediately
// to Presenting (non-empty queue) or Completed (nothing due). Loading a
// session twice is rejected.
func (s *ReviewSession) Load(queue []SessionCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionIdle {
		return fmt.Errorf("load: session already %s", s.state)
	}

	s.queue = make([]SessionCard, len(queue))
	copy(s.queue, queue)
	s.state = SessionLoaded

	if len(s.queue) == 0 {
		s.state = SessionCompleted
		return nil
	}
	s.state = SessionPresenting
	return nil
}

// State returns the current lifecycle state.
func (s *ReviewSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the front card being presented, if any.
func (s *ReviewSession) Current() (SessionCard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionPresenting || len(s.queue) == 0 {
		return SessionCard{}, false
	}
	return s.queue[0], true
}

// Remaining returns the number of cards left in the queue, including the
// one currently presented.
func (s *ReviewSession) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// CorrectCount returns the number of successful grades so far.
func (s *ReviewSession) CorrectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correct
}

// WrongCount returns the number of Again grades so far.
func (s *ReviewSession) WrongCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wrong
}

// Grade consumes the front card with the given rating. The new card state is
// computed synchronously; the persistence upsert and progress notification
// are dispatched as background effects and do not block the next card.
//
// Returns ErrSessionCompleted once the queue is exhausted and
// ErrSessionNotLoaded before Load.
func (s *ReviewSession) Grade(rating Rating) (GradeResult, error) {
	if !rating.IsValid() {
		return GradeResult{}, fmt.Errorf("grade: %w: %d", ErrInvalidRating, int(rating))
	}

	s.mu.Lock()
	switch s.state {
	case SessionIdle, SessionLoaded:
		s.mu.Unlock()
		return GradeResult{}, ErrSessionNotLoaded
	case SessionCompleted:
		s.mu.Unlock()
		return GradeResult{}, ErrSessionCompleted
	}

	front := s.queue[0]
	s.queue = s.queue[1:]

	now := s.now()
	next := s.scheduler.Advance(front.Card, rating, now)

	entry := &GradedCard{
		Card:   next,
		Item:   front.Item,
		Rating: rating,
		Write:  WritePending,
	}
	s.graded = append(s.graded, entry)

	if rating.Correct() {
		s.correct++
	} else {
		s.wrong++
	}

	if len(s.queue) == 0 {
		s.state = SessionCompleted
	}

	result := GradeResult{
		Card:      next,
		Rating:    rating,
		Correct:   rating.Correct(),
		Remaining: len(s.queue),
		Completed: s.state == SessionCompleted,
	}
	s.mu.Unlock()

	s.dispatchEffects(entry, now)
	return result, nil
}

// Graded returns a snapshot of the cards consumed so far, in grading order.
func (s *ReviewSession) Graded() []GradedCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GradedCard, len(s.graded))
	for i, g := range s.graded {
		out[i] = *g
	}
	return out
}

// PendingWrites returns how many graded cards have not yet been confirmed
// durable.
func (s *ReviewSession) PendingWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.graded {
		if g.Write == WritePending {
			n++
		}
	}
	return n
}

// dispatchEffects queues the card upsert and the progress notification.
// Both are best-effort; the single-worker dispatcher preserves their order.
func (s *ReviewSession) dispatchEffects(entry *GradedCard, reviewedAt time.Time) {
	if s.effects == nil || s.cards == nil {
		return
	}

	card := entry.Card
	review := Review{
		UserID:     card.UserID,
		ItemID:     card.ItemID,
		Rating:     entry.Rating,
		Correct:    entry.Rating.Correct(),
		ReviewedAt: reviewedAt,
	}

	err := s.effects.Dispatch(Effect{
		Name: "upsert_card",
		Run: func(ctx context.Context) error {
			return s.cards.UpsertReview(ctx, card, review)
		},
		Done: func(err error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if err != nil {
				entry.Write = WriteFailed
			} else {
				entry.Write = WriteSaved
			}
		},
	})
	if err != nil {
		s.mu.Lock()
		entry.Write = WriteFailed
		s.mu.Unlock()
		return
	}

	if s.progress == nil {
		return
	}
	_ = s.effects.Dispatch(Effect{
		Name: "record_outcome",
		Run: func(ctx context.Context) error {
			return s.progress.RecordOutcome(ctx, card.UserID, card.ItemID, entry.Rating.Correct(), entry.Rating)
		},
	})
}
