package maintenance

import (
	"context"
	"fmt"
)

// Vacuum compacts the database file and refreshes the query planner's
// table statistics (§6 `vacuum` "compact and refresh statistics"). Both
// statements run outside any transaction, matching SQLite's requirement
// that VACUUM not be called from within one.
func (m *Manager) Vacuum(ctx context.Context) error {
	conn, err := m.db.Connection(ctx, false)
	if err != nil {
		return fmt.Errorf("acquire connection for vacuum: %w", err)
	}
	defer conn.Release()

	if _, err := conn.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}
