//cmd/seeder/main.go
package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/config"
	"github.com/unclebandit/dialer-campaign-backend/internal/db"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
)

//go:embed demo.sql
var demoSeed string

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Prepare the dialer campaign database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogDevelopment)
		if err != nil {
			return err
		}
		dsn = cfg.DatabaseURL
		return nil
	},
	SilenceUsage: true,
}

var dsn string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, conn *sql.DB) error {
			return db.Migrate(ctx, conn)
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [file.sql...]",
	Short: "Apply the schema and load seed files (the built-in demo data when none are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, conn *sql.DB) error {
			if err := db.Migrate(ctx, conn); err != nil {
				return err
			}
			if len(args) == 0 {
				return execSeed(ctx, conn, "demo", demoSeed)
			}
			for _, file := range args {
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				if err := execSeed(ctx, conn, file, string(content)); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, conn)
}

func execSeed(ctx context.Context, conn *sql.DB, name, content string) error {
	if _, err := conn.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	logger.Info("seeded", zap.String("source", name))
	return nil
}

func main() {
	rootCmd.AddCommand(migrateCmd, seedCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
