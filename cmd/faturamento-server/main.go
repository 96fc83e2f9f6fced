package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medimagem/faturamento/internal/config"
	"github.com/medimagem/faturamento/internal/domain/period"
	"github.com/medimagem/faturamento/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "faturamento-server",
		Short: "Billing reconciliation and statement API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(syncCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// bootstrap loads and validates config, then opens the pool. Callers close
// the pool.
func bootstrap(ctx context.Context) (*config.Config, *pgxpool.Pool, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		return nil, nil, logger, fmt.Errorf("invalid config: %w", err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, pool, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			_, pool, _, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.EmbeddedMigrations()).Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) to schema %s.\n", count, schema)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			_, pool, _, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.EmbeddedMigrations()).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func periodFlag(cmd *cobra.Command) (string, error) {
	raw, _ := cmd.Flags().GetString("period")
	if raw == "" {
		return "", fmt.Errorf("--period is required")
	}
	p, err := period.Parse(raw)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compute the volume vs billing reconciliation for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodFlag(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			cfg, pool, logger, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a := newApp(cfg, pool, logger)
			view, err := a.reconciler.Compute(ctx, p)
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}
	cmd.Flags().String("period", "", "Reference period (YYYY-MM)")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and cache the statements for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := periodFlag(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			cfg, pool, logger, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a := newApp(cfg, pool, logger)
			res, err := a.statements.Generate(ctx, p)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"periodo":   res.Bundle.Period,
				"resumo":    res.Bundle.Summary,
				"succeeded": res.Succeeded,
				"failed":    res.Failed,
			})
		},
	}
	cmd.Flags().String("period", "", "Reference period (YYYY-MM)")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push approved statements to the invoicing system once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			cfg, pool, logger, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a := newApp(cfg, pool, logger)
			if a.invoicer == nil {
				return fmt.Errorf("INVOICING_BASE_URL is not set")
			}
			report, err := a.invoicer.SyncOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Synced %d invoice(s), %d failed.\n", len(report.Succeeded), len(report.Failed))
			for _, f := range report.Failed {
				fmt.Printf("  %s: %s\n", f.Key, f.Reason)
			}
			return nil
		},
	}
}
