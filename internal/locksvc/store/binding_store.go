package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type BindingStore struct {
	db *pgxpool.Pool
}

func NewBindingStore(db *pgxpool.Pool) *BindingStore {
	return &BindingStore{db: db}
}

func (s *BindingStore) Exists(ctx context.Context, deviceID, cardID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM device_cards
			WHERE device_id = $1 AND card_id = $2
		)
	`

	var exists bool
	err := s.db.QueryRow(ctx, query, deviceID, cardID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check binding: %w", err)
	}

	return exists, nil
}

// Create is idempotent: binding an already bound pair is a no-op thanks to
// the unique_device_card constraint.
func (s *BindingStore) Create(ctx context.Context, deviceID, cardID int64) error {
	query := `
		INSERT INTO device_cards (device_id, card_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT unique_device_card DO NOTHING
	`

	_, err := s.db.Exec(ctx, query, deviceID, cardID)
	if err != nil {
		return fmt.Errorf("failed to create binding: %w", err)
	}

	return nil
}
