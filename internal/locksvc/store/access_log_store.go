package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlock/access-services/internal/locksvc/models"
)

type AccessLogStore struct {
	db *pgxpool.Pool
}

func NewAccessLogStore(db *pgxpool.Pool) *AccessLogStore {
	return &AccessLogStore{db: db}
}

func (s *AccessLogStore) Create(ctx context.Context, deviceID int64, subject, factor, result string) (*models.AccessLog, error) {
	query := `
		INSERT INTO access_logs (device_id, subject, factor, result)
		VALUES ($1, $2, $3, $4)
		RETURNING id, device_id, subject, factor, result, created_at
	`

	var rec models.AccessLog
	err := s.db.QueryRow(ctx, query, deviceID, subject, factor, result).Scan(
		&rec.ID,
		&rec.DeviceID,
		&rec.Subject,
		&rec.Factor,
		&rec.Result,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access log: %w", err)
	}

	return &rec, nil
}

func (s *AccessLogStore) ListRecent(ctx context.Context, limit int) ([]*models.AccessLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, device_id, subject, factor, result, created_at
		FROM access_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AccessLog
	for rows.Next() {
		var rec models.AccessLog
		err := rows.Scan(
			&rec.ID,
			&rec.DeviceID,
			&rec.Subject,
			&rec.Factor,
			&rec.Result,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, &rec)
	}

	return logs, nil
}
