package kioku

import (
	"os"

	"github.com/hyperengineering/kioku/internal/deck"
)

// DefaultQueueLimit caps a review session's queue size.
const DefaultQueueLimit = 20

// Config configures a kioku Client.
type Config struct {
	// Deck is the deck ID to operate against.
	// If empty, resolved as explicit > KIOKU_DECK env > "default".
	Deck string

	// DBPath is the path to the local SQLite database.
	// If empty, derived from the resolved deck.
	DBPath string

	// BackendURL is the URL of the remote study backend.
	// If empty, the client operates in offline-only mode.
	BackendURL string

	// APIKey authenticates with the backend.
	APIKey string

	// SourceID identifies this client instance in pushed batches.
	// Defaults to hostname.
	SourceID string

	// QueueLimit caps how many due cards a session loads. Zero → 20.
	QueueLimit int

	// Params overrides the scheduling constants. Zero fields → defaults.
	Params Params

	// Debug enables diagnostic logging.
	Debug bool

	// DebugLogPath redirects debug output to a file (default stderr).
	DebugLogPath string
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	hostname, _ := os.Hostname()
	return Config{
		QueueLimit: DefaultQueueLimit,
		SourceID:   hostname,
		Params:     DefaultParams(),
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	KIOKU_DECK        → Deck
//	KIOKU_DB_PATH     → DBPath
//	KIOKU_BACKEND_URL → BackendURL
//	KIOKU_API_KEY     → APIKey
//	KIOKU_SOURCE_ID   → SourceID
//	KIOKU_DEBUG       → Debug (any non-empty value enables)
//	KIOKU_DEBUG_LOG   → DebugLogPath
func ConfigFromEnv() Config {
	return Config{
		Deck:         os.Getenv(deck.EnvDeck),
		DBPath:       os.Getenv("KIOKU_DB_PATH"),
		BackendURL:   os.Getenv("KIOKU_BACKEND_URL"),
		APIKey:       os.Getenv("KIOKU_API_KEY"),
		SourceID:     os.Getenv("KIOKU_SOURCE_ID"),
		Debug:        os.Getenv("KIOKU_DEBUG") != "",
		DebugLogPath: os.Getenv("KIOKU_DEBUG_LOG"),
	}
}

// WithDefaults fills in default values for unset fields. Deck resolution:
// explicit Deck field > KIOKU_DECK env > "default"; DBPath is derived from
// the resolved deck when not set explicitly.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Deck == "" {
		if resolved, err := deck.Resolve(""); err == nil {
			c.Deck = resolved
		} else {
			c.Deck = "default"
		}
	}
	if c.DBPath == "" {
		c.DBPath = deck.DBPath(c.Deck)
	}
	if c.QueueLimit == 0 {
		c.QueueLimit = defaults.QueueLimit
	}
	if c.SourceID == "" {
		c.SourceID = defaults.SourceID
	}
	c.Params = c.Params.withDefaults()

	return c
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return &ValidationError{Field: "DBPath", Message: "required: path to SQLite database"}
	}
	if c.Deck != "" {
		if err := deck.ValidateID(c.Deck); err != nil {
			return &ValidationError{Field: "Deck", Message: err.Error()}
		}
	}
	if c.BackendURL != "" && c.APIKey == "" {
		return &ValidationError{Field: "APIKey", Message: "required when BackendURL is set"}
	}
	if c.QueueLimit < 0 {
		return &ValidationError{Field: "QueueLimit", Message: "must be non-negative"}
	}
	return c.Params.Validate()
}

// IsOffline reports whether the client operates without a remote backend.
func (c *Config) IsOffline() bool {
	return c.BackendURL == ""
}
