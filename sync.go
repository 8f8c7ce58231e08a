package kioku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Sync tuning.
const (
	syncPushBatch   = 200
	syncHTTPTimeout = 30 * time.Second
	syncRetryBase   = 500 * time.Millisecond
	syncRetryLimit  = 3
)

// BackendClient abstracts HTTP communication with the remote study backend.
// Implementations must be safe for concurrent use.
type BackendClient interface {
	// HealthCheck validates connectivity and returns backend metadata.
	HealthCheck(ctx context.Context) (*BackendHealth, error)

	// FetchCatalog retrieves the catalog items for a level.
	FetchCatalog(ctx context.Context, level string) ([]Item, error)

	// PushReviews uploads a batch of review-log rows with the current card
	// snapshots they produced. The backend applies card snapshots as
	// full-record last-write-wins upserts.
	PushReviews(ctx context.Context, req *PushRequest) (*PushResponse, error)
}

// BackendHealth is the backend health-check response.
type BackendHealth struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	CatalogVersion string `json:"catalog_version,omitempty"`
}

// PushRequest is a batch upload of local review activity.
type PushRequest struct {
	SourceID string   `json:"source_id,omitempty"`
	Reviews  []Review `json:"reviews"`
	Cards    []Card   `json:"cards"`
}

// PushResponse reports how the backend handled a push.
type PushResponse struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// HTTPBackend implements BackendClient over net/http with bearer auth.
type HTTPBackend struct {
	baseURL  string
	apiKey   string
	sourceID string
	client   *http.Client
	debug    *DebugLogger
}

// NewHTTPBackend creates a backend client. sourceID is optional; if
// non-empty it is sent as X-Kioku-Source-ID for observability.
func NewHTTPBackend(baseURL, apiKey, sourceID string, debug *DebugLogger) *HTTPBackend {
	return &HTTPBackend{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		sourceID: sourceID,
		client:   &http.Client{Timeout: syncHTTPTimeout},
		debug:    debug,
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func (b *HTTPBackend) WithHTTPClient(client *http.Client) *HTTPBackend {
	b.client = client
	return b
}

func (b *HTTPBackend) setHeaders(req *http.Request) {
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	req.Header.Set("User-Agent", "kioku-client/1.0")
	if strings.TrimSpace(b.sourceID) != "" {
		req.Header.Set("X-Kioku-Source-ID", b.sourceID)
	}
}

func (b *HTTPBackend) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &SyncError{Operation: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return &SyncError{Operation: op, Err: err}
	}
	b.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return &SyncError{Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	b.debug.LogHTTP(method, b.baseURL+path, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return &SyncError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &SyncError{Operation: op, Err: err}
	}
	return nil
}

// HealthCheck implements BackendClient.
func (b *HTTPBackend) HealthCheck(ctx context.Context) (*BackendHealth, error) {
	var health BackendHealth
	if err := b.do(ctx, "health_check", http.MethodGet, "/api/v1/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// FetchCatalog implements BackendClient.
func (b *HTTPBackend) FetchCatalog(ctx context.Context, level string) ([]Item, error) {
	var payload struct {
		Items []Item `json:"items"`
	}
	path := "/api/v1/catalog?level=" + level
	if err := b.do(ctx, "fetch_catalog", http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// PushReviews implements BackendClient.
func (b *HTTPBackend) PushReviews(ctx context.Context, req *PushRequest) (*PushResponse, error) {
	var resp PushResponse
	if err := b.do(ctx, "push_reviews", http.MethodPost, "/api/v1/reviews", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Syncer moves data between the local store and the remote study backend:
// catalog items flow down, review activity and card snapshots flow up.
// Transient failures are retried with exponential backoff.
type Syncer struct {
	store    *Store
	client   BackendClient
	sourceID string
	debug    *DebugLogger
}

// NewSyncer creates a syncer against the given backend.
func NewSyncer(store *Store, client BackendClient, sourceID string, debug *DebugLogger) *Syncer {
	return &Syncer{store: store, client: client, sourceID: sourceID, debug: debug}
}

// SyncStats reports what one sync pass did.
type SyncStats struct {
	PulledItems   int           `json:"pulled_items"`
	PushedReviews int           `json:"pushed_reviews"`
	Duration      time.Duration `json:"duration"`
}

// PullCatalog fetches the catalog for a level and upserts it locally.
// Returns the number of items written.
func (s *Syncer) PullCatalog(ctx context.Context, level string) (int, error) {
	var items []Item
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.client.FetchCatalog(ctx, level)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("pull catalog %q: %w", level, err)
	}

	written, err := s.store.UpsertItems(ctx, items)
	if err != nil {
		return 0, fmt.Errorf("pull catalog %q: %w", level, err)
	}
	s.debug.Log("SYNC pull: %d items for level %s", written, level)
	return written, nil
}

// PushReviews uploads unsynced review-log rows in batches, together with the
// current card state for each reviewed (user, item). Rows are marked synced
// only after the backend accepts the batch. Returns the number pushed.
func (s *Syncer) PushReviews(ctx context.Context) (int, error) {
	total := 0
	for {
		reviews, err := s.store.UnsyncedReviews(ctx, syncPushBatch)
		if err != nil {
			return total, fmt.Errorf("push reviews: %w", err)
		}
		if len(reviews) == 0 {
			return total, nil
		}

		cards, err := s.cardSnapshots(ctx, reviews)
		if err != nil {
			return total, fmt.Errorf("push reviews: %w", err)
		}

		req := &PushRequest{SourceID: s.sourceID, Reviews: reviews, Cards: cards}
		err = s.withRetry(ctx, func(ctx context.Context) error {
			_, err := s.client.PushReviews(ctx, req)
			return err
		})
		if err != nil {
			return total, fmt.Errorf("push reviews: %w", err)
		}

		ids := make([]string, len(reviews))
		for i, r := range reviews {
			ids[i] = r.ID
		}
		if err := s.store.MarkReviewsSynced(ctx, ids, time.Now().UTC()); err != nil {
			return total, fmt.Errorf("push reviews: %w", err)
		}

		total += len(reviews)
		s.debug.Log("SYNC push: %d reviews", len(reviews))
		if len(reviews) < syncPushBatch {
			return total, nil
		}
	}
}

// Sync runs one full pass: push local review activity, then pull the catalog
// for each requested level, and stamp last_sync.
func (s *Syncer) Sync(ctx context.Context, levels []string) (*SyncStats, error) {
	start := time.Now()
	stats := &SyncStats{}

	pushed, err := s.PushReviews(ctx)
	stats.PushedReviews = pushed
	if err != nil {
		return stats, err
	}

	for _, level := range levels {
		pulled, err := s.PullCatalog(ctx, level)
		stats.PulledItems += pulled
		if err != nil {
			return stats, err
		}
	}

	if err := s.store.SetMetadata(ctx, "last_sync", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return stats, fmt.Errorf("sync: stamp last_sync: %w", err)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// cardSnapshots loads the current card for each distinct (user, item) in the
// batch. A card deleted out from under its log rows is skipped.
func (s *Syncer) cardSnapshots(ctx context.Context, reviews []Review) ([]Card, error) {
	seen := make(map[string]bool, len(reviews))
	cards := make([]Card, 0, len(reviews))
	for _, r := range reviews {
		key := r.UserID + "\x00" + r.ItemID
		if seen[key] {
			continue
		}
		seen[key] = true

		card, err := s.store.Card(ctx, r.UserID, r.ItemID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, nil
}

// withRetry runs fn with capped exponential backoff. 4xx responses are
// permanent; everything else is assumed transient.
func (s *Syncer) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(syncRetryLimit, retry.NewExponential(syncRetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var syncErr *SyncError
		if errors.As(err, &syncErr) && syncErr.StatusCode >= 400 && syncErr.StatusCode < 500 {
			return err // permanent
		}
		return retry.RetryableError(err)
	})
}
