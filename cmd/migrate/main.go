package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/noah-isme/clanstats-api/pkg/config"
	"github.com/noah-isme/clanstats-api/pkg/database"
)

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
	Down(ctx context.Context) (*goose.MigrationResult, error)
	Status(ctx context.Context) ([]*goose.MigrationStatus, error)
}

// openFunc connects a migrator and returns a closer for its connection.
type openFunc func(ctx context.Context) (migrator, func() error, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(openPostgres).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func openPostgres(ctx context.Context) (migrator, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	provider, err := database.NewMigrator(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return provider, db.Close, nil
}

func newRootCommand(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the clanstats database schema",
		SilenceUsage: true,
	}
	root.AddCommand(
		migrateCommand("up", "Apply every pending migration", open, func(ctx context.Context, m migrator, out io.Writer) error {
			results, err := m.Up(ctx)
			for _, r := range results {
				printResult(out, r)
			}
			if len(results) == 0 && err == nil {
				fmt.Fprintln(out, "no pending migrations")
			}
			return err
		}),
		migrateCommand("down", "Roll back the most recent migration", open, func(ctx context.Context, m migrator, out io.Writer) error {
			result, err := m.Down(ctx)
			if result != nil {
				printResult(out, result)
			}
			return err
		}),
		migrateCommand("status", "List migrations and whether they are applied", open, func(ctx context.Context, m migrator, out io.Writer) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				applied := "-"
				if s.State == goose.StateApplied {
					applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(out, "%-8s %-30s %s\n", s.State, s.Source.Path, applied)
			}
			return nil
		}),
	)
	return root
}

func migrateCommand(use, short string, open openFunc, run func(context.Context, migrator, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck
			return run(cmd.Context(), m, cmd.OutOrStdout())
		},
	}
}

func printResult(out io.Writer, r *goose.MigrationResult) {
	status := "OK"
	if r.Error != nil {
		status = "FAILED: " + r.Error.Error()
	}
	fmt.Fprintf(out, "%-4s %-30s %-8s %s\n", r.Direction, r.Source.Path, r.Duration.Round(1e6), status)
}
