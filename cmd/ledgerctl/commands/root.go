package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/congo-pay/walletledger/internal/config"
	"github.com/congo-pay/walletledger/internal/infra"
)

var (
	// Global flags
	dbURL    string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the wallet ledger database",
	Long: `ledgerctl applies the ledger schema and loads sample data.

Connection settings default to DATABASE_URL (a .env file is honoured).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dbURL != "" {
			return nil
		}
		resolved, err := resolveDatabaseURL()
		if err != nil {
			return err
		}
		dbURL = resolved
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection URL (default $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for ledger operations")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// resolveDatabaseURL reads DATABASE_URL the way the API does. The serving
// checks do not apply: migrating needs no Redis.
func resolveDatabaseURL() (string, error) {
	cfg, err := config.Read()
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	return cfg.DatabaseURL, nil
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("no database configured: pass --db or set DATABASE_URL")
	}
	return infra.NewPostgresPool(ctx, dbURL)
}
