package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sparrow/internal/models"
)

const itemColumns = `id, uuid, user_id, access_token, item_id, institution_id,
		institution_name, status, new_accounts_detected, transactions_cursor,
		is_active, created_at, updated_at`

type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID, &item.UUID, &item.UserID, &item.AccessToken, &item.ItemID,
		&item.InstitutionID, &item.InstitutionName, &item.Status,
		&item.NewAccountsDetected, &item.TransactionsCursor,
		&item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, params models.CreateItemParams) (*models.Item, error) {
	query := `
		INSERT INTO items (uuid, user_id, access_token, item_id, institution_id, institution_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + itemColumns

	item, err := scanItem(r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.UserID, params.AccessToken, params.ItemID,
		params.InstitutionID, params.InstitutionName, models.ItemStatusGood,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

// GetByID looks an item up by its database id. Returns (nil, nil) when no
// active item exists, matching the orchestrator's log-and-skip contract.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND is_active = TRUE`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetByItemID looks an item up by the provider's external item id.
// Returns (nil, nil) when no active item matches.
func (r *ItemRepository) GetByItemID(ctx context.Context, itemID string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE item_id = $1 AND is_active = TRUE`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by external id: %w", err)
	}
	return item, nil
}

func (r *ItemRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// ListActive returns all active items, used by the scheduled sync sweep.
func (r *ItemRepository) ListActive(ctx context.Context) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_active = TRUE ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// HasInstitution reports whether the user already has an active item at the
// given institution. Linking the same institution twice is rejected upstream.
func (r *ItemRepository) HasInstitution(ctx context.Context, userID int64, institutionID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM items
			WHERE user_id = $1 AND institution_id = $2 AND is_active = TRUE
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, institutionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check institution: %w", err)
	}
	return exists, nil
}

func (r *ItemRepository) UpdateCursor(ctx context.Context, id int64, cursor string) error {
	query := `UPDATE items SET transactions_cursor = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, cursor, id); err != nil {
		return fmt.Errorf("failed to update item cursor: %w", err)
	}
	return nil
}

func (r *ItemRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE items SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}
	return nil
}

func (r *ItemRepository) SetNewAccountsDetected(ctx context.Context, id int64, detected bool) error {
	query := `UPDATE items SET new_accounts_detected = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, detected, id); err != nil {
		return fmt.Errorf("failed to update new_accounts_detected: %w", err)
	}
	return nil
}

// ResetState returns an item to GOOD and clears the new-accounts flag, the
// explicit reset path after the user repairs a connection in link update mode.
func (r *ItemRepository) ResetState(ctx context.Context, id int64) error {
	query := `
		UPDATE items
		SET status = $1, new_accounts_detected = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, models.ItemStatusGood, id); err != nil {
		return fmt.Errorf("failed to reset item state: %w", err)
	}
	return nil
}

// SoftDelete deactivates an item. Rows are kept; every read in this
// repository filters on is_active.
func (r *ItemRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE items SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item not found")
	}
	return nil
}
