package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// DeviceRepository implements the §4.2 DeviceRepository contract for the
// mobile-import provenance chain.
type DeviceRepository struct {
	base
}

// NewDeviceRepository builds a DeviceRepository bound to db.
func NewDeviceRepository(db *database.DB) *DeviceRepository {
	return &DeviceRepository{base: base{db: db}}
}

// Register creates or re-sees a device. On re-seen devices it updates
// last_seen and keeps the cumulative counters untouched.
func (r *DeviceRepository) Register(ctx context.Context, q database.Querier, projectID int64, deviceID, name, deviceType string, serial, volumeGUID, mountPoint *string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM mobile_devices WHERE project_id = ? AND device_id = ?`, projectID, deviceID).Scan(&id)
	switch {
	case err == nil:
		if _, execErr := q.ExecContext(ctx,
			`UPDATE mobile_devices SET last_seen = CURRENT_TIMESTAMP, name = ?, device_type = ?, serial = ?, volume_guid = ?, mount_point = ?
			 WHERE id = ?`, name, deviceType, serial, volumeGUID, mountPoint, id); execErr != nil {
			return 0, fmt.Errorf("update seen device: %w", execErr)
		}
		return id, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("find device: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO mobile_devices (project_id, device_id, name, device_type, serial, volume_guid, mount_point)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, deviceID, name, deviceType, serial, volumeGUID, mountPoint)
	if err != nil {
		return 0, fmt.Errorf("register device: %w", err)
	}
	return res.LastInsertId()
}

// CreateSession opens a new import session for deviceID.
func (r *DeviceRepository) CreateSession(ctx context.Context, q database.Querier, projectID, deviceID int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO import_sessions (project_id, device_id) VALUES (?, ?)`, projectID, deviceID)
	if err != nil {
		return 0, fmt.Errorf("create import session: %w", err)
	}
	return res.LastInsertId()
}

// SessionStats is the per-import tally CompleteSession records.
type SessionStats struct {
	FilesImported int
	FilesSkipped  int
	FilesFailed   int
}

// CompleteSession atomically finishes sessionID and rolls its stats into
// the owning device's cumulative counters, in one transaction (§4.2).
func (r *DeviceRepository) CompleteSession(ctx context.Context, dbHandle *database.DB, sessionID int64, stats SessionStats, errMsg *string) error {
	return dbHandle.WithTx(ctx, func(tx *sql.Tx) error {
		var deviceID int64
		if err := tx.QueryRowContext(ctx, `SELECT device_id FROM import_sessions WHERE id = ?`, sessionID).Scan(&deviceID); err != nil {
			return scanRowNotFound(err, "import_sessions", sessionID)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE import_sessions SET completed_at = CURRENT_TIMESTAMP,
				files_imported = ?, files_skipped = ?, files_failed = ?, error_message = ?
			WHERE id = ?`, stats.FilesImported, stats.FilesSkipped, stats.FilesFailed, errMsg, sessionID); err != nil {
			return fmt.Errorf("complete import session: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE mobile_devices SET total_imported = total_imported + ?, total_skipped = total_skipped + ?
			WHERE id = ?`, stats.FilesImported, stats.FilesSkipped, deviceID); err != nil {
			return fmt.Errorf("update device totals: %w", err)
		}
		return nil
	})
}

// FindByID returns the device with the given id.
func (r *DeviceRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.MobileDevice, error) {
	var d models.MobileDevice
	err := q.QueryRowContext(ctx, `
		SELECT id, project_id, device_id, name, device_type, serial, volume_guid, mount_point,
			first_seen, last_seen, total_imported, total_skipped
		FROM mobile_devices WHERE id = ?`, id).
		Scan(&d.ID, &d.ProjectID, &d.DeviceID, &d.Name, &d.DeviceType, &d.Serial, &d.VolumeGUID, &d.MountPoint,
			&d.FirstSeen, &d.LastSeen, &d.TotalImported, &d.TotalSkipped)
	if err != nil {
		return nil, scanRowNotFound(err, "mobile_devices", id)
	}
	return &d, nil
}
