package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/config"
	"github.com/shashiranjanraj/grocerylist/database/seeders"
	"github.com/shashiranjanraj/grocerylist/pkg/database"
	"github.com/shashiranjanraj/grocerylist/pkg/migration"
)

// withDB loads config, opens the database for fn and closes it afterwards.
func withDB(ctx context.Context, fn func(db *gorm.DB) error) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := database.Connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(db)
}

// grocerylist migrate
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run all pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *gorm.DB) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Running migrations…")
				_, err := migration.New(db, cmd.OutOrStdout()).Run(cmd.Context())
				return err
			})
		},
	}
}

// grocerylist migrate:rollback
func migrateRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:rollback",
		Short: "Rollback the last batch of migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *gorm.DB) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Rolling back last batch…")
				_, err := migration.New(db, cmd.OutOrStdout()).Rollback(cmd.Context())
				return err
			})
		},
	}
}

// grocerylist migrate:status
func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:status",
		Short: "Show the status of each migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *gorm.DB) error {
				statuses, err := migration.New(db, cmd.OutOrStdout()).Status(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
				fmt.Fprintln(w, "RAN?\tBATCH\tMIGRATION")
				for _, s := range statuses {
					ran, batch := "No", "-"
					if s.Ran {
						ran, batch = "Yes", fmt.Sprint(s.Batch)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", ran, batch, s.Name)
				}
				return w.Flush()
			})
		},
	}
}

// grocerylist seed
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Run all database seeders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *gorm.DB) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Running seeders…")
				if err := seeders.RunAll(cmd.Context(), db, cmd.OutOrStdout()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Demo login: %s / %s\n", seeders.DemoEmail, seeders.DemoPassword)
				return nil
			})
		},
	}
}
