package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlock/access-services/internal/locksvc/models"
)

// Channel names the hardware binding column a chip id is matched against.
type Channel string

const (
	ChannelReader Channel = "reader"
	ChannelCamera Channel = "camera"
)

func (c Channel) column() string {
	if c == ChannelCamera {
		return "camera_chip_id"
	}
	return "reader_chip_id"
}

type DeviceStore struct {
	db *pgxpool.Pool
}

func NewDeviceStore(db *pgxpool.Pool) *DeviceStore {
	return &DeviceStore{db: db}
}

const deviceColumns = "id, name, reader_chip_id, camera_chip_id, policy, door_state, created_at, updated_at"

func scanDevice(row pgx.Row) (*models.Device, error) {
	var d models.Device
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.ReaderChipId,
		&d.CameraChipId,
		&d.Policy,
		&d.DoorState,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DeviceStore) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE id = $1
	`, id)

	d, err := scanDevice(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device by id: %w", err)
	}

	return d, nil
}

// GetByChipId looks a device up by the hardware id bound on the given channel.
// Returns nil without error when no device carries the chip id.
func (s *DeviceStore) GetByChipId(ctx context.Context, channel Channel, chipId string) (*models.Device, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM devices
		WHERE %s = $1
		LIMIT 1
	`, deviceColumns, channel.column())

	d, err := scanDevice(s.db.QueryRow(ctx, query, chipId))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device by chip id: %w", err)
	}

	return d, nil
}

// ClaimChip binds the chip id to the oldest device with no binding on that
// channel. The WHERE ... IS NULL guard makes the claim safe against a
// concurrent claim of the same row. Returns nil when no unbound device exists.
func (s *DeviceStore) ClaimChip(ctx context.Context, channel Channel, chipId string) (*models.Device, error) {
	col := channel.column()
	query := fmt.Sprintf(`
		UPDATE devices
		SET %s = $1, updated_at = now()
		WHERE id = (
			SELECT id FROM devices
			WHERE %s IS NULL
			ORDER BY created_at
			LIMIT 1
		) AND %s IS NULL
		RETURNING %s
	`, col, col, col, deviceColumns)

	d, err := scanDevice(s.db.QueryRow(ctx, query, chipId))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim chip id: %w", err)
	}

	return d, nil
}

// Create provisions a device. chipId may be empty for admin-created devices
// that get claimed later.
func (s *DeviceStore) Create(ctx context.Context, name string, channel Channel, chipId string) (*models.Device, error) {
	col := channel.column()
	var query string
	var row pgx.Row
	if chipId == "" {
		query = `
			INSERT INTO devices (name, policy, door_state)
			VALUES ($1, 'OR', 'CLOSED')
			RETURNING ` + deviceColumns
		row = s.db.QueryRow(ctx, query, name)
	} else {
		query = fmt.Sprintf(`
			INSERT INTO devices (name, %s, policy, door_state)
			VALUES ($1, $2, 'OR', 'CLOSED')
			RETURNING %s
		`, col, deviceColumns)
		row = s.db.QueryRow(ctx, query, name, chipId)
	}

	d, err := scanDevice(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	return d, nil
}

func (s *DeviceStore) List(ctx context.Context) ([]*models.Device, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+deviceColumns+`
		FROM devices
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	return devices, nil
}

func (s *DeviceStore) UpdatePolicy(ctx context.Context, id int64, policy string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE devices SET policy = $2, updated_at = now() WHERE id = $1
	`, id, policy)
	if err != nil {
		return fmt.Errorf("failed to update device policy: %w", err)
	}
	return nil
}

func (s *DeviceStore) UpdateDoorState(ctx context.Context, id int64, doorState string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE devices SET door_state = $2, updated_at = now() WHERE id = $1
	`, id, doorState)
	if err != nil {
		return fmt.Errorf("failed to update door state: %w", err)
	}
	return nil
}
