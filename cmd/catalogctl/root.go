package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/maintenance"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

var projectName string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operate a mediacatalog catalog database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&projectName, "project", "default", "project name to operate on (created if missing, except for migrate)")

	root.AddCommand(
		newMigrateCmd(),
		newBackfillMetadataCmd(),
		newStatsCmd(),
		newIntegrityCheckCmd(),
		newVacuumCmd(),
	)
	return root
}

// bootstrap loads configuration, initializes logging, and opens the catalog
// database, in the order the teacher's daemon entry point uses (config,
// then logging, then storage).
func bootstrap() (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

// resolveProject finds the named project, creating it if it does not exist
// yet. Subcommands other than migrate all need a project to scope their
// queries to (§3 invariant 1: every row belongs to exactly one project).
func resolveProject(ctx context.Context, db *database.DB, name string) (int64, error) {
	projects := repository.NewProjectRepository(db)

	var id int64
	err := db.WithReadConn(ctx, func(q database.Querier) error {
		p, err := projects.FindByName(ctx, q, name)
		if err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	if err == nil {
		return id, nil
	}

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		var createErr error
		id, createErr = projects.Create(ctx, tx, name, "")
		return createErr
	})
	if err != nil {
		return 0, fmt.Errorf("resolve project %q: %w", name, err)
	}
	return id, nil
}

func newMaintenanceManager(db *database.DB) *maintenance.Manager {
	return maintenance.New(db)
}
