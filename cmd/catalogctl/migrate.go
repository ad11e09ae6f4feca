package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/logging"
)

// Exit codes for `migrate`, fixed by §6: 0 ok, 1 nothing to do, 2 failed.
const (
	exitMigrateApplied  = 0
	exitMigrateNoopDone = 1
	exitMigrateFailed   = 2
)

// migrateOutcome reports what `migrate` should print and exit with. It is
// derived from db.Created()/db.MigrationsApplied() rather than doing any
// work itself: database.New already ran the full init-or-migrate algorithm
// (§4.1) by the time a handle exists.
func migrateOutcome(db *database.DB) (code int, message string) {
	switch {
	case db.Created():
		return exitMigrateApplied, "catalog schema created from scratch"
	case db.MigrationsApplied() > 0:
		return exitMigrateApplied, fmt.Sprintf("applied %d pending migration(s)", db.MigrationsApplied())
	default:
		return exitMigrateNoopDone, "no pending migrations"
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				logging.Error().Err(err).Msg("migrate failed")
				os.Exit(exitMigrateFailed)
			}
			defer db.Close()

			code, message := migrateOutcome(db)
			fmt.Println(message)
			os.Exit(code)
			return nil
		},
	}
}
