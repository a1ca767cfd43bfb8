package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/app"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
)

var (
	tenantFlag  string
	envFileFlag string
	logLevel    string
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:   "curriculumctl",
	Short: "Ingest and structure curriculum documents",
	Long: `curriculumctl runs the curriculum pipeline from the command line.
Offline commands (extract, segment) need no database; the rest use the
database configured through DB_DRIVER and DB_URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnv(envFileFlag); err != nil {
			return err
		}
		slog.SetDefault(app.NewLogger(cmd.ErrOrStderr(), orEnv(logFormat, "LOG_FORMAT"), orEnv(logLevel, "LOG_LEVEL")))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "Tenant UUID (empty selects the global scope)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load environment variables from this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text or json)")
}

// loadEnv reads path, or ./.env when path is empty. Only an explicit file
// must exist.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

func tenantID() (uuid.UUID, error) {
	raw := strings.TrimSpace(tenantFlag)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--tenant must be a UUID: %w", err)
	}
	return id, nil
}

// openApp builds the full application against the configured database and
// applies pending migrations.
func openApp(ctx context.Context) (*app.App, error) {
	logger := slog.Default()
	a, err := app.New(ctx, common.LoadConfig(logger), logger)
	if err != nil {
		return nil, err
	}
	if err := a.DB.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
