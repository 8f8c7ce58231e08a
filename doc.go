// Package kioku implements the spaced-repetition core of a personal study
// app: a deterministic scheduler that decides when a card is due again, a
// due-queue builder, and a review-session state machine that consumes the
// queue while persistence and progress tracking run as background effects.
//
// The scheduler and queue builder are pure computations; all I/O lives in
// the Store, the Progress tracker and the Syncer, which sessions reach only
// through injected interfaces.
package kioku
