package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlock/access-services/internal/locksvc/models"
)

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

// GetByUID returns nil without error when the card code is unknown.
func (s *CardStore) GetByUID(ctx context.Context, uid string) (*models.Card, error) {
	query := `
		SELECT id, uid, label, created_at, updated_at
		FROM cards
		WHERE uid = $1
		LIMIT 1
	`

	var card models.Card
	err := s.db.QueryRow(ctx, query, uid).Scan(
		&card.ID,
		&card.UID,
		&card.Label,
		&card.CreatedAt,
		&card.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card by uid: %w", err)
	}

	return &card, nil
}

func (s *CardStore) Create(ctx context.Context, uid, label string) (*models.Card, error) {
	query := `
		INSERT INTO cards (uid, label)
		VALUES ($1, $2)
		RETURNING id, uid, label, created_at, updated_at
	`

	var card models.Card
	err := s.db.QueryRow(ctx, query, uid, label).Scan(
		&card.ID,
		&card.UID,
		&card.Label,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	return &card, nil
}

func (s *CardStore) UpdateLabel(ctx context.Context, id int64, label string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE cards SET label = $2, updated_at = now() WHERE id = $1
	`, id, label)
	if err != nil {
		return fmt.Errorf("failed to update card label: %w", err)
	}
	return nil
}
