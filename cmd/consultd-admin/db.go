package main

import (
	"context"
	"database/sql"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicebot/consultd/internal/bootstrap"
	"github.com/voicebot/consultd/internal/data"
	"github.com/voicebot/consultd/internal/devseed"
	"github.com/voicebot/consultd/internal/migrate"
)

const defaultMigrationTimeout = 5 * time.Minute

func newMigrateCmd(app *adminApp) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withDatabase(cmd.Context(), timeout, func(ctx context.Context, db *sql.DB) error {
				return bootstrap.RunMigrations(ctx, db, app.logger)
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "Migration timeout")

	status := &cobra.Command{
		Use:   "status",
		Short: "List embedded migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withDatabase(cmd.Context(), timeout, func(ctx context.Context, db *sql.DB) error {
				rows, err := migrate.List(ctx, db)
				if err != nil {
					return err
				}
				return app.printMigrationStatus(rows)
			})
		},
	}
	cmd.AddCommand(status)
	return cmd
}

func newSeedCmd(app *adminApp) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run migrations and insert demo contacts and question sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withDatabase(cmd.Context(), timeout, func(ctx context.Context, db *sql.DB) error {
				if err := bootstrap.RunMigrations(ctx, db, app.logger); err != nil {
					return err
				}
				return devseed.Run(ctx, devseed.Stores{
					Contacts:     data.NewContactRepo(db),
					QuestionSets: data.NewQuestionSetRepo(db),
				}, app.logger)
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "Seed timeout")
	return cmd
}

func (app *adminApp) withDatabase(
	parent context.Context,
	timeout time.Duration,
	fn func(context.Context, *sql.DB) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: app.config.Postgres, Logger: app.logger})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			app.logger.Warn("db close failed", "error", closeErr)
		}
	}()
	return fn(ctx, db)
}

func (app *adminApp) printMigrationStatus(rows []migrate.Status) error {
	tw := tabwriter.NewWriter(app.out, 0, 2, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "VERSION\tAPPLIED"); err != nil {
		return err
	}
	for _, r := range rows {
		applied := "no"
		if r.Applied {
			applied = "yes"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", r.Version, applied); err != nil {
			return err
		}
	}
	return tw.Flush()
}
