package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/config"
	"budgetadvisor/internal/core"
	"budgetadvisor/internal/log"
	"budgetadvisor/internal/services"
	"budgetadvisor/internal/storage"
)

var (
	flagDBPath   string
	flagVerbose  bool
	flagPassword string
)

var rootCmd = &cobra.Command{
	Use:   "advisorctl",
	Short: "Budget advisor CLI",
	Long:  "Evaluate a monthly budget against the advisor rules and browse saved advice.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := cli.LoadEnvFile(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
		if !cmd.Flags().Changed("db") {
			if cfg, err := config.Load(); err == nil && cfg.SQLiteDBPath != "" {
				flagDBPath = cfg.SQLiteDBPath
			}
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "./data/advisor.db", "SQLite database path (default from SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log storage activity to stderr")
}

func newLogger() *log.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stderr
	return log.New(log.Config{Level: level, Component: log.ComponentCLI, Output: out})
}

func openStore() (*storage.SQLiteRepository, error) {
	return cli.InitSQLite(newLogger(), flagDBPath)
}

// login verifies username against the store, prompting for the password
// when --password and ADVISOR_PASSWORD are both empty.
func login(cmd *cobra.Command, repo *storage.SQLiteRepository, username string) (core.Identity, error) {
	pw, err := passwordFor(username)
	if err != nil {
		return core.Identity{}, err
	}
	id, err := services.NewCredentialService(repo).Verify(cmd.Context(), username, pw)
	if err != nil {
		return core.Identity{}, fmt.Errorf("login %s: %w", username, err)
	}
	return id, nil
}

func passwordFor(username string) (string, error) {
	if flagPassword != "" {
		return flagPassword, nil
	}
	if pw := os.Getenv("ADVISOR_PASSWORD"); pw != "" {
		return pw, nil
	}
	return cli.PromptPassword(fmt.Sprintf("Password for %s", username))
}
