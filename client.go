package kioku

import (
	"context"
	"fmt"
	"time"
)

// Client is the main entry point: it owns the store, the scheduler, the
// progress tracker and the effect dispatcher, and wires them into review
// sessions. All collaborators are constructed here and injected explicitly —
// there is no package-level shared state.
type Client struct {
	store     *Store
	scheduler *Scheduler
	progress  *Progress
	effects   *Dispatcher
	syncer    *Syncer
	debug     *DebugLogger
	config    Config
}

// New creates a Client from the given config.
func New(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug, err := NewDebugLogger(cfg.Debug, cfg.DebugLogPath)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	scheduler, err := NewScheduler(cfg.Params)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	c := &Client{
		store:     store,
		scheduler: scheduler,
		progress:  NewProgress(store),
		effects:   NewDispatcher(debug),
		debug:     debug,
		config:    cfg,
	}

	if !cfg.IsOffline() {
		backend := NewHTTPBackend(cfg.BackendURL, cfg.APIKey, cfg.SourceID, debug)
		c.syncer = NewSyncer(store, backend, cfg.SourceID, debug)
	}

	return c, nil
}

// Store exposes the underlying store for direct queries.
func (c *Client) Store() *Store {
	return c.store
}

// Scheduler exposes the configured scheduler.
func (c *Client) Scheduler() *Scheduler {
	return c.scheduler
}

// StartSession builds the due queue for a user and returns a loaded review
// session. An empty queue is not an error: the session starts Completed and
// the caller decides whether to seed and start over.
func (c *Client) StartSession(ctx context.Context, userID string) (*ReviewSession, error) {
	cards, err := c.store.CardsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	now := time.Now()
	queue := BuildQueue(cards, now, c.config.QueueLimit)

	ids := make([]string, len(queue))
	for i, card := range queue {
		ids[i] = card.ItemID
	}
	items, err := c.store.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	sessionCards := make([]SessionCard, len(queue))
	for i, card := range queue {
		sessionCards[i] = SessionCard{Card: card, Item: items[card.ItemID]}
	}

	session := NewReviewSession(userID, c.scheduler, c.store, c.progress, c.effects)
	if err := session.Load(sessionCards); err != nil {
		return nil, err
	}
	return session, nil
}

// SeedLevel bulk-enrolls every catalog item of a level for the user with
// fresh-card defaults. When the local catalog has no items for the level and
// a backend is configured, the catalog is pulled first. Existing cards are
// never reset. Returns the number of new cards.
func (c *Client) SeedLevel(ctx context.Context, userID, level string) (int, error) {
	items, err := c.store.ItemsByLevel(ctx, level)
	if err != nil {
		return 0, fmt.Errorf("seed level: %w", err)
	}

	if len(items) == 0 && c.syncer != nil {
		if _, err := c.syncer.PullCatalog(ctx, level); err != nil {
			return 0, fmt.Errorf("seed level: %w", err)
		}
		items, err = c.store.ItemsByLevel(ctx, level)
		if err != nil {
			return 0, fmt.Errorf("seed level: %w", err)
		}
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("seed level %q: %w", level, ErrUnknownLevel)
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return c.store.SeedCards(ctx, userID, ids, NewCard(userID, "", time.Now()))
}

// DueCount returns how many of the user's cards are due right now.
func (c *Client) DueCount(ctx context.Context, userID string) (int, error) {
	stats, err := c.store.Stats(ctx, userID, time.Now())
	if err != nil {
		return 0, err
	}
	return stats.DueNow, nil
}

// Stats returns the user's local store statistics.
func (c *Client) Stats(ctx context.Context, userID string) (*StoreStats, error) {
	return c.store.Stats(ctx, userID, time.Now())
}

// Progress returns the user's gamification summary.
func (c *Client) Progress(ctx context.Context, userID string) (*ProgressSummary, error) {
	return c.progress.Summary(ctx, userID)
}

// Sync runs one push/pull pass against the backend.
// Returns ErrOffline when no backend is configured.
func (c *Client) Sync(ctx context.Context, levels []string) (*SyncStats, error) {
	if c.syncer == nil {
		return nil, ErrOffline
	}
	return c.syncer.Sync(ctx, levels)
}

// Close drains pending effects (bounded) and closes the store. In-flight
// background writes past the grace period are abandoned; see Dispatcher.
func (c *Client) Close() error {
	_ = c.effects.Close()
	err := c.store.Close()
	_ = c.debug.Close()
	return err
}
