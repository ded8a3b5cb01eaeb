package database

import (
	"context"
	"fmt"

	"sparrow/internal/models"
)

type LinkEventRepository struct {
	db *DB
}

func NewLinkEventRepository(db *DB) *LinkEventRepository {
	return &LinkEventRepository{db: db}
}

func (r *LinkEventRepository) Create(ctx context.Context, params models.CreateLinkEventParams) (*models.LinkEvent, error) {
	query := `
		INSERT INTO link_events (user_id, event_type, link_session_id, request_id, error_type, error_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, event_type, link_session_id, request_id, error_type, error_code, created_at
	`

	var event models.LinkEvent
	err := r.db.QueryRowContext(
		ctx, query,
		params.UserID, params.EventType, params.LinkSessionID,
		params.RequestID, params.ErrorType, params.ErrorCode,
	).Scan(
		&event.ID, &event.UserID, &event.EventType, &event.LinkSessionID,
		&event.RequestID, &event.ErrorType, &event.ErrorCode, &event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create link event: %w", err)
	}

	return &event, nil
}
