package kioku

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Dispatcher defaults.
const (
	effectQueueDepth    = 64
	effectAttemptLimit  = 3
	effectBackoffBase   = 200 * time.Millisecond
	effectBackoffCap    = 5 * time.Second
	effectRunTimeout    = 30 * time.Second
	dispatcherDrainWait = 5 * time.Second
)

// Effect is a retryable unit of background I/O triggered by a grading
// transition: the card upsert and the progress notification. Effects are
// fire-and-forget relative to the session's in-memory progression.
type Effect struct {
	// Name identifies the effect in debug logs ("upsert_card", "record_outcome").
	Name string

	// Run performs the I/O. A non-nil error is retried with backoff.
	Run func(ctx context.Context) error

	// Done, if non-nil, receives the final outcome after retries are
	// exhausted (nil on success). Called from the dispatcher goroutine.
	Done func(err error)
}

// Dispatcher executes effects on a single background worker with
// exponential-backoff retry. A full queue or a failed effect never blocks
// the caller; failures are logged and surfaced only through Effect.Done.
type Dispatcher struct {
	queue chan Effect
	done  chan struct{}
	debug *DebugLogger

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher and starts its worker goroutine.
// debug may be nil.
func NewDispatcher(debug *DebugLogger) *Dispatcher {
	d := &Dispatcher{
		queue: make(chan Effect, effectQueueDepth),
		done:  make(chan struct{}),
		debug: debug,
	}
	go d.worker()
	return d
}

// Dispatch submits an effect for background execution. It never blocks: if
// the queue is full the effect runs on its own goroutine instead.
// Returns ErrDispatcherClosed after Close.
func (d *Dispatcher) Dispatch(e Effect) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- e:
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		go d.run(e)
	}
	return nil
}

// Close stops accepting effects and waits briefly for queued work to drain.
// In-flight effects past the grace period are abandoned; they finish or fail
// on their own (accepted durability gap).
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-time.After(dispatcherDrainWait):
		d.debug.Log("EFFECTS close: drain timeout, abandoning in-flight work")
	}
	return nil
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for e := range d.queue {
		d.run(e)
	}
}

func (d *Dispatcher) run(e Effect) {
	ctx, cancel := context.WithTimeout(context.Background(), effectRunTimeout)
	defer cancel()

	backoff := retry.WithCappedDuration(effectBackoffCap, retry.NewExponential(effectBackoffBase))
	backoff = retry.WithMaxRetries(effectAttemptLimit, backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := e.Run(ctx); err != nil {
			d.debug.Log("EFFECT %s attempt %d: %v", e.Name, attempt, err)
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		d.debug.LogError(e.Name, err)
	}
	if e.Done != nil {
		e.Done(err)
	}
}
