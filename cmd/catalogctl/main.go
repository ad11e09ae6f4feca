// Command catalogctl is the operator-facing CLI for the catalog core: the
// schema migration runner, the metadata backfill driver, and the upkeep
// trio (stats, integrity-check, vacuum) that §6 lists as the engine's
// provided CLI surface. It has no HTTP surface and no daemon mode; every
// subcommand opens the database, does one bounded unit of work, and exits.
package main

import (
	"os"

	"github.com/tomtom215/mediacatalog/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error().Err(err).Msg("catalogctl failed")
		os.Exit(1)
	}
}
