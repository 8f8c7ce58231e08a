package kioku

import (
	"math"
	"time"
)

// Params holds the tunable constants of the scheduling formula. The defaults
// are the shipped product values; all of them may be overridden before
// constructing a Scheduler.
type Params struct {
	MinEase float64 `json:"min_ease"` // zero → 1.3
	MaxEase float64 `json:"max_ease"` // zero → 3.2

	// Ease adjustments per rating. Good leaves ease unchanged.
	EaseAgainDelta float64 `json:"ease_again_delta"` // zero → -0.20
	EaseHardDelta  float64 `json:"ease_hard_delta"`  // zero → -0.15
	EaseEasyDelta  float64 `json:"ease_easy_delta"`  // zero → +0.15

	// Bootstrap intervals for the first and second successful repetition
	// after any reset. They keep the first successful interval non-zero.
	FirstInterval  int `json:"first_interval"`  // zero → 1
	SecondInterval int `json:"second_interval"` // zero → 3

	// Per-rating interval multipliers applied to the raw next interval.
	HardMultiplier float64 `json:"hard_multiplier"` // zero → 0.8
	EasyMultiplier float64 `json:"easy_multiplier"` // zero → 1.3
}

// DefaultParams returns the shipped scheduling constants.
func DefaultParams() Params {
	return Params{
		MinEase:        MinEase,
		MaxEase:        MaxEase,
		EaseAgainDelta: -0.20,
		EaseHardDelta:  -0.15,
		EaseEasyDelta:  0.15,
		FirstInterval:  1,
		SecondInterval: 3,
		HardMultiplier: 0.8,
		EasyMultiplier: 1.3,
	}
}

// withDefaults fills zero-valued fields from DefaultParams.
func (p Params) withDefaults() Params {
	def := DefaultParams()
	if p.MinEase == 0 {
		p.MinEase = def.MinEase
	}
	if p.MaxEase == 0 {
		p.MaxEase = def.MaxEase
	}
	if p.EaseAgainDelta == 0 {
		p.EaseAgainDelta = def.EaseAgainDelta
	}
	if p.EaseHardDelta == 0 {
		p.EaseHardDelta = def.EaseHardDelta
	}
	if p.EaseEasyDelta == 0 {
		p.EaseEasyDelta = def.EaseEasyDelta
	}
	if p.FirstInterval == 0 {
		p.FirstInterval = def.FirstInterval
	}
	if p.SecondInterval == 0 {
		p.SecondInterval = def.SecondInterval
	}
	if p.HardMultiplier == 0 {
		p.HardMultiplier = def.HardMultiplier
	}
	if p.EasyMultiplier == 0 {
		p.EasyMultiplier = def.EasyMultiplier
	}
	return p
}

// Validate checks the parameters for internal consistency.
// Returns *ValidationError for the first invalid field.
func (p Params) Validate() error {
	if p.MinEase <= 0 || p.MaxEase <= 0 || p.MinEase > p.MaxEase {
		return &ValidationError{Field: "MinEase/MaxEase", Message: "ease bounds must be positive with min <= max"}
	}
	if p.FirstInterval < 1 || p.SecondInterval < 1 {
		return &ValidationError{Field: "FirstInterval/SecondInterval", Message: "bootstrap intervals must be at least 1 day"}
	}
	if p.HardMultiplier <= 0 {
		return &ValidationError{Field: "HardMultiplier", Message: "must be positive"}
	}
	if p.EasyMultiplier <= 0 {
		return &ValidationError{Field: "EasyMultiplier", Message: "must be positive"}
	}
	return nil
}

// Scheduler computes a card's next scheduling state from a grading signal.
// It is pure and deterministic: no I/O, no clock access, safe for concurrent
// use from any goroutine.
type Scheduler struct {
	params Params
}

// NewScheduler creates a Scheduler. Zero-valued Params fields are filled
// with defaults; inconsistent values return an error.
func NewScheduler(p Params) (*Scheduler, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{params: p}, nil
}

// Params returns the scheduler's effective parameters.
func (s *Scheduler) Params() Params {
	return s.params
}

// Advance computes the card state after grading the card with the given
// rating at the given time. The input card is not mutated.
//
// Again performs a hard reset: repetition and interval drop to zero, the
// lapse count increments, ease shrinks, and the card is immediately due
// again. Successful ratings grow the interval through a two-stage bootstrap
// (1 day, then 3 days) before the ease multiplier takes over.
//
// Malformed input (negative counters, out-of-range ease from corrupted
// persisted data) is normalized rather than rejected; these are self-healing
// numeric parameters, not identifiers.
func (s *Scheduler) Advance(card Card, rating Rating, now time.Time) Card {
	p := s.params
	next := card

	// Normalize drifted input before applying the formula.
	next.Ease = clamp(next.Ease, p.MinEase, p.MaxEase)
	if next.Repetition < 0 {
		next.Repetition = 0
	}
	if next.IntervalDays < 0 {
		next.IntervalDays = 0
	}
	if next.Lapses < 0 {
		next.Lapses = 0
	}

	reviewed := now
	next.LastReviewedAt = &reviewed

	if rating == Again {
		next.Repetition = 0
		next.IntervalDays = 0
		next.Ease = clamp(next.Ease+p.EaseAgainDelta, p.MinEase, p.MaxEase)
		next.Lapses++
		next.DueAt = now
		return next
	}

	next.Repetition++

	var raw int
	switch next.Repetition {
	case 1:
		raw = p.FirstInterval
	case 2:
		raw = p.SecondInterval
	default:
		raw = int(math.Round(float64(next.IntervalDays) * next.Ease))
		if raw < 1 {
			raw = 1
		}
	}

	switch rating {
	case Hard:
		next.IntervalDays = int(math.Round(float64(raw) * p.HardMultiplier))
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}
		next.Ease = clamp(next.Ease+p.EaseHardDelta, p.MinEase, p.MaxEase)
	case Easy:
		boosted := int(math.Round(float64(raw) * p.EasyMultiplier))
		if boosted < raw+1 {
			boosted = raw + 1
		}
		next.IntervalDays = boosted
		next.Ease = clamp(next.Ease+p.EaseEasyDelta, p.MinEase, p.MaxEase)
	default: // Good
		next.IntervalDays = raw
	}

	next.DueAt = now.AddDate(0, 0, next.IntervalDays)
	return next
}

// Preview returns the card state that each rating would produce, without
// committing any of them.
func (s *Scheduler) Preview(card Card, now time.Time) map[Rating]Card {
	result := make(map[Rating]Card, 4)
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		result[r] = s.Advance(card, r, now)
	}
	return result
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
