package main

import (
	"os"

	"github.com/hyperengineering/kioku"
	"github.com/spf13/cobra"
)

var (
	cfgDeck       string
	cfgDBPath     string
	cfgBackendURL string
	cfgAPIKey     string
	cfgUser       string
	outputJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "kioku",
	Short: "Kioku - spaced-repetition study CLI",
	Long: `Kioku is a local-first spaced-repetition trainer.

It keeps your cards, review history and progress in a local SQLite deck,
schedules each card with a deterministic interval formula, and can sync
review activity to a remote study backend.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDeck, "deck", "", "Deck ID (default: $KIOKU_DECK or \"default\")")
	rootCmd.PersistentFlags().StringVar(&cfgDBPath, "db-path", "", "Path to local deck database")
	rootCmd.PersistentFlags().StringVar(&cfgBackendURL, "backend-url", "", "URL of remote study backend")
	rootCmd.PersistentFlags().StringVar(&cfgAPIKey, "api-key", "", "API key for backend authentication")
	rootCmd.PersistentFlags().StringVar(&cfgUser, "user", "", "User ID (default: $USER)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() kioku.Config {
	cfg := kioku.ConfigFromEnv()

	if cfgDeck != "" {
		cfg.Deck = cfgDeck
	}
	if cfgDBPath != "" {
		cfg.DBPath = cfgDBPath
	}
	if cfgBackendURL != "" {
		cfg.BackendURL = cfgBackendURL
	}
	if cfgAPIKey != "" {
		cfg.APIKey = cfgAPIKey
	}

	return cfg
}

func userID() string {
	if cfgUser != "" {
		return cfgUser
	}
	if v := os.Getenv("KIOKU_USER"); v != "" {
		return v
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "local"
}
