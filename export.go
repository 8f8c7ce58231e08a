package kioku

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ExportVersion is the current version of the export envelope.
const ExportVersion = "1.0"

// ExportFormat is the top-level structure of a deck export: one user's cards
// and review log, for backup or device migration.
type ExportFormat struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	UserID     string    `json:"user_id"`
	Cards      []Card    `json:"cards"`
	Reviews    []Review  `json:"reviews"`
}

// CatalogFile is the on-disk catalog format consumed by ImportCatalogJSON.
type CatalogFile struct {
	Version string `json:"version"`
	Items   []Item `json:"items"`
}

// MergeStrategy defines how a catalog import handles items that already
// exist locally.
type MergeStrategy string

const (
	// MergeStrategySkip keeps existing items untouched.
	MergeStrategySkip MergeStrategy = "skip"
	// MergeStrategyReplace overwrites existing items with imported ones.
	MergeStrategyReplace MergeStrategy = "replace"
)

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

// ExportJSON writes a user's cards and full review log to w as a versioned
// JSON envelope.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, userID string) error {
	cards, err := s.CardsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	reviews, err := s.ReviewsForUser(ctx, userID, 0)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	export := ExportFormat{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		UserID:     userID,
		Cards:      cards,
		Reviews:    reviews,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}

// ImportCatalogJSON reads a catalog file from r and loads its items into the
// local catalog. With dryRun the result is computed but nothing is written.
//
// Items without an ID or level are counted invalid and skipped; the import
// continues past them.
func (s *Store) ImportCatalogJSON(ctx context.Context, r io.Reader, strategy MergeStrategy, dryRun bool) (*ImportResult, error) {
	if strategy == "" {
		strategy = MergeStrategyReplace
	}
	if strategy != MergeStrategySkip && strategy != MergeStrategyReplace {
		return nil, fmt.Errorf("import: unknown merge strategy %q", strategy)
	}

	var file CatalogFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("import: decode catalog: %w", err)
	}
	if file.Version != "" && file.Version != ExportVersion {
		return nil, fmt.Errorf("import: unsupported catalog version %q (expected %q)", file.Version, ExportVersion)
	}

	result := &ImportResult{}
	var pending []Item

	for _, item := range file.Items {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if item.ID == "" || item.Level == "" {
			result.Invalid++
			continue
		}

		if strategy == MergeStrategySkip {
			_, err := s.Item(ctx, item.ID)
			if err == nil {
				result.Skipped++
				continue
			}
			if !isNotFound(err) {
				return result, fmt.Errorf("import: %w", err)
			}
		}

		pending = append(pending, item)
		result.Imported++
	}

	if dryRun || len(pending) == 0 {
		return result, nil
	}

	if _, err := s.UpsertItems(ctx, pending); err != nil {
		return result, fmt.Errorf("import: %w", err)
	}
	return result, nil
}
