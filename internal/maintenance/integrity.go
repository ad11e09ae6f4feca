package maintenance

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// OrphanedRow names a metadata row whose folder no longer exists (§6
// `integrity-check` "reports orphaned metadata rows (photos whose folder
// is missing)").
type OrphanedRow struct {
	Table    string
	ID       int64
	Path     string
	FolderID int64
}

// IntegrityReport is the `integrity-check` CLI command's result.
type IntegrityReport struct {
	Orphaned     []OrphanedRow
	FKViolations int
}

// Check runs the orphan scan plus SQLite's own foreign_key_check, which
// catches anything a dangling folder_id wouldn't (cross-table FK
// violations introduced by a manual edit or an interrupted migration).
func (m *Manager) Check(ctx context.Context, projectID int64) (IntegrityReport, error) {
	var report IntegrityReport

	err := m.db.WithReadConn(ctx, func(q database.Querier) error {
		for _, table := range []string{"photos", "videos"} {
			rows, err := q.QueryContext(ctx, fmt.Sprintf(`
				SELECT m.id, m.path, m.folder_id
				FROM %s m
				LEFT JOIN folders f ON f.id = m.folder_id
				WHERE m.project_id = ? AND f.id IS NULL`, table), projectID)
			if err != nil {
				return fmt.Errorf("scan orphaned %s rows: %w", table, err)
			}
			for rows.Next() {
				var o OrphanedRow
				o.Table = table
				if err := rows.Scan(&o.ID, &o.Path, &o.FolderID); err != nil {
					rows.Close()
					return fmt.Errorf("scan orphaned %s row: %w", table, err)
				}
				report.Orphaned = append(report.Orphaned, o)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()
		}

		fkRows, err := q.QueryContext(ctx, `PRAGMA foreign_key_check`)
		if err != nil {
			return fmt.Errorf("foreign key check: %w", err)
		}
		defer fkRows.Close()
		for fkRows.Next() {
			var table, parent string
			var rowid, fkid int64
			if err := fkRows.Scan(&table, &rowid, &parent, &fkid); err != nil {
				return fmt.Errorf("scan foreign key violation: %w", err)
			}
			report.FKViolations++
		}
		return fkRows.Err()
	})
	if err != nil {
		return IntegrityReport{}, err
	}
	return report, nil
}
