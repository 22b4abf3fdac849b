package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"grillstream/internal/models"
)

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite { return &DeviceSQLite{db: db} }

var _ DeviceRegistry = (*DeviceSQLite)(nil)

const (
	insertDeviceSQL = `INSERT INTO devices (id, name, simulated, address, created_at) VALUES (?, ?, ?, ?, ?)`

	insertChannelSQL = `INSERT INTO channels (id, device_id, name, probe_type, unit) VALUES (?, ?, ?, ?, ?)`

	selectDevicesSQL = `SELECT id, name, simulated, address, created_at FROM devices ORDER BY created_at ASC`

	selectDeviceSQL = `SELECT id, name, simulated, address, created_at FROM devices WHERE id = ?`

	selectChannelsSQL = `SELECT id, device_id, name, probe_type, unit FROM channels WHERE device_id = ? ORDER BY id ASC`
)

// Create inserts a device and its channels in one transaction.
func (r *DeviceSQLite) Create(ctx context.Context, d models.Device) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create device %q: %w", d.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertDeviceSQL,
		d.ID, d.Name, d.Simulated, d.Address, d.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert device %q: %w", d.ID, err)
	}
	for _, ch := range d.Channels {
		if _, err := tx.ExecContext(ctx, insertChannelSQL,
			ch.ID, d.ID, ch.Name, ch.ProbeType, ch.Unit,
		); err != nil {
			return fmt.Errorf("insert channel %q: %w", ch.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create device %q: %w", d.ID, err)
	}
	return nil
}

// Get fetches one device with its channels. Returns (nil, nil) if not found.
func (r *DeviceSQLite) Get(ctx context.Context, id string) (*models.Device, error) {
	var d models.Device
	var addr sql.NullString
	err := r.db.QueryRowContext(ctx, selectDeviceSQL, id).Scan(
		&d.ID, &d.Name, &d.Simulated, &addr, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select device %q: %w", id, err)
	}
	d.Address = addr.String
	d.CreatedAt = d.CreatedAt.UTC()

	channels, err := r.channelsFor(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.Channels = channels
	return &d, nil
}

// List returns all devices with channels attached.
func (r *DeviceSQLite) List(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}
	defer rows.Close()

	out := make([]models.Device, 0, 8)
	for rows.Next() {
		var d models.Device
		var addr sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.Simulated, &addr, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.Address = addr.String
		d.CreatedAt = d.CreatedAt.UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		channels, err := r.channelsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Channels = channels
	}
	return out, nil
}

func (r *DeviceSQLite) channelsFor(ctx context.Context, deviceID string) ([]models.Channel, error) {
	rows, err := r.db.QueryContext(ctx, selectChannelsSQL, deviceID)
	if err != nil {
		return nil, fmt.Errorf("select channels for %q: %w", deviceID, err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.DeviceID, &ch.Name, &ch.ProbeType, &ch.Unit); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
