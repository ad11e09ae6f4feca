package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// DeviceFileRepository tracks every file ever seen on a mobile device,
// alongside its import status (§3 "Device File").
type DeviceFileRepository struct {
	base
}

// NewDeviceFileRepository builds a DeviceFileRepository bound to db.
func NewDeviceFileRepository(db *database.DB) *DeviceFileRepository {
	return &DeviceFileRepository{base: base{db: db}}
}

// Seen records a file observed on a device. An already tracked file is
// returned as is: neither its status nor its seen_at is updated.
func (r *DeviceFileRepository) Seen(ctx context.Context, q database.Querier, projectID, deviceID int64, sourcePath string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM device_files WHERE device_id = ? AND source_path = ?`, deviceID, sourcePath).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("find device file: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO device_files (project_id, device_id, source_path, status) VALUES (?, ?, ?, ?)`,
		projectID, deviceID, sourcePath, models.DeviceFileStatusPending)
	if err != nil {
		return 0, fmt.Errorf("record device file: %w", err)
	}
	return res.LastInsertId()
}

// MarkImported links a device file to the photo or video it became.
func (r *DeviceFileRepository) MarkImported(ctx context.Context, q database.Querier, id int64, photoID, videoID *int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE device_files SET status = ?, photo_id = ?, video_id = ? WHERE id = ?`,
		models.DeviceFileStatusImported, photoID, videoID, id)
	if err != nil {
		return fmt.Errorf("mark device file imported: %w", err)
	}
	return nil
}

// MarkSkipped records that a file was intentionally not imported (e.g.
// already present in the catalog).
func (r *DeviceFileRepository) MarkSkipped(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE device_files SET status = ? WHERE id = ?`, models.DeviceFileStatusSkipped, id)
	if err != nil {
		return fmt.Errorf("mark device file skipped: %w", err)
	}
	return nil
}

// MarkFailed records that importing a file failed.
func (r *DeviceFileRepository) MarkFailed(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE device_files SET status = ? WHERE id = ?`, models.DeviceFileStatusFailed, id)
	if err != nil {
		return fmt.Errorf("mark device file failed: %w", err)
	}
	return nil
}

// PendingForDevice returns every unimported file seen on deviceID.
func (r *DeviceFileRepository) PendingForDevice(ctx context.Context, q database.Querier, deviceID int64) ([]*models.DeviceFile, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, device_id, source_path, status, photo_id, video_id, seen_at
		FROM device_files WHERE device_id = ? AND status = ? ORDER BY seen_at ASC`,
		deviceID, models.DeviceFileStatusPending)
	if err != nil {
		return nil, fmt.Errorf("query pending device files: %w", err)
	}
	defer rows.Close()

	var out []*models.DeviceFile
	for rows.Next() {
		var f models.DeviceFile
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.DeviceID, &f.SourcePath, &f.Status, &f.PhotoID, &f.VideoID, &f.SeenAt); err != nil {
			return nil, fmt.Errorf("scan device file row: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
