// Package deck resolves deck identifiers to local database paths. A deck is
// an isolated study database; most users only ever touch "default".
package deck

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidDeckID indicates the deck ID format is invalid.
var ErrInvalidDeckID = errors.New("invalid deck ID: must be lowercase alphanumeric with hyphens, 1-64 characters")

// EnvDeck is the environment variable naming the active deck.
const EnvDeck = "KIOKU_DECK"

// deckIDRegex validates deck ID format: lowercase alphanumeric and hyphens,
// no leading/trailing hyphen.
var deckIDRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?$`)

// ValidateID validates a deck ID.
func ValidateID(id string) error {
	if id == "" || len(id) > 64 {
		return ErrInvalidDeckID
	}
	if strings.Contains(id, "--") {
		return ErrInvalidDeckID
	}
	if !deckIDRegex.MatchString(id) {
		return ErrInvalidDeckID
	}
	return nil
}

// Resolve picks the active deck ID: explicit > KIOKU_DECK env > "default".
// The winning ID is validated.
func Resolve(explicit string) (string, error) {
	id := explicit
	if id == "" {
		id = os.Getenv(EnvDeck)
	}
	if id == "" {
		id = "default"
	}
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

// Root returns the root directory holding all decks. Defaults to
// ~/.kioku/decks, falling back to ./.kioku/decks when the home directory is
// unavailable.
func Root() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".kioku", "decks")
	}
	return filepath.Join(home, ".kioku", "decks")
}

// DBPath returns the database file path for a deck.
// Example: DBPath("jlpt-n5") -> ~/.kioku/decks/jlpt-n5/kioku.db
func DBPath(id string) string {
	return filepath.Join(Root(), id, "kioku.db")
}
