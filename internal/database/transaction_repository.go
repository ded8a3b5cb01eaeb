package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"sparrow/internal/models"
)

const transactionColumns = `id, account_id, transaction_id, amount,
		iso_currency_code, unofficial_currency_code, check_number,
		date, datetime, authorized_date, authorized_datetime,
		location, name, merchant_name, merchant_entity_id, logo_url, website,
		account_owner, pending, primary_category, detailed_category,
		category_confidence, category_icon_url, created_at, updated_at`

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var (
		tx     models.Transaction
		amount decimal.NullDecimal
	)
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.TransactionID, &amount,
		&tx.ISOCurrencyCode, &tx.UnofficialCurrencyCode, &tx.CheckNumber,
		&tx.Date, &tx.DateTime, &tx.AuthorizedDate, &tx.AuthorizedDateTime,
		&tx.Location, &tx.Name, &tx.MerchantName, &tx.MerchantEntityID,
		&tx.LogoURL, &tx.Website, &tx.AccountOwner, &tx.Pending,
		&tx.PrimaryCategory, &tx.DetailedCategory, &tx.CategoryConfidence,
		&tx.CategoryIconURL, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		tx.Amount = amount.Decimal
	}
	return &tx, nil
}

// Upsert inserts or updates a transaction keyed on the external transaction
// id. Location, date and pending are always written; every other column uses
// COALESCE(EXCLUDED.x, transactions.x) to preserve stored values when the
// payload omits a field. account_id also coalesces so an owner resolved in a
// later round repairs a transaction that arrived before its account.
func (r *TransactionRepository) Upsert(ctx context.Context, params models.UpsertTransactionParams) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (
			account_id, transaction_id, location, date, pending,
			amount, iso_currency_code, unofficial_currency_code, check_number,
			datetime, authorized_date, authorized_datetime,
			name, merchant_name, merchant_entity_id, logo_url, website,
			account_owner, primary_category, detailed_category,
			category_confidence, category_icon_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (transaction_id) DO UPDATE SET
			location = EXCLUDED.location,
			date = EXCLUDED.date,
			pending = EXCLUDED.pending,
			account_id = COALESCE(EXCLUDED.account_id, transactions.account_id),
			amount = COALESCE(EXCLUDED.amount, transactions.amount),
			iso_currency_code = COALESCE(EXCLUDED.iso_currency_code, transactions.iso_currency_code),
			unofficial_currency_code = COALESCE(EXCLUDED.unofficial_currency_code, transactions.unofficial_currency_code),
			check_number = COALESCE(EXCLUDED.check_number, transactions.check_number),
			datetime = COALESCE(EXCLUDED.datetime, transactions.datetime),
			authorized_date = COALESCE(EXCLUDED.authorized_date, transactions.authorized_date),
			authorized_datetime = COALESCE(EXCLUDED.authorized_datetime, transactions.authorized_datetime),
			name = COALESCE(EXCLUDED.name, transactions.name),
			merchant_name = COALESCE(EXCLUDED.merchant_name, transactions.merchant_name),
			merchant_entity_id = COALESCE(EXCLUDED.merchant_entity_id, transactions.merchant_entity_id),
			logo_url = COALESCE(EXCLUDED.logo_url, transactions.logo_url),
			website = COALESCE(EXCLUDED.website, transactions.website),
			account_owner = COALESCE(EXCLUDED.account_owner, transactions.account_owner),
			primary_category = COALESCE(EXCLUDED.primary_category, transactions.primary_category),
			detailed_category = COALESCE(EXCLUDED.detailed_category, transactions.detailed_category),
			category_confidence = COALESCE(EXCLUDED.category_confidence, transactions.category_confidence),
			category_icon_url = COALESCE(EXCLUDED.category_icon_url, transactions.category_icon_url),
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(
		ctx, query,
		params.AccountID, params.TransactionID, []byte(params.Location),
		params.Date, params.Pending,
		decimalArg(params.Amount), params.ISOCurrencyCode,
		params.UnofficialCurrencyCode, params.CheckNumber,
		params.DateTime, params.AuthorizedDate, params.AuthorizedDateTime,
		params.Name, params.MerchantName, params.MerchantEntityID,
		params.LogoURL, params.Website, params.AccountOwner,
		params.PrimaryCategory, params.DetailedCategory,
		params.CategoryConfidence, params.CategoryIconURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction %s: %w", params.TransactionID, err)
	}
	return tx, nil
}

// DeleteByTransactionIDs hard-deletes all transactions whose external id is
// in the list and returns the number deleted. Deleting an absent id is a
// no-op, so removal lists can be re-applied safely.
func (r *TransactionRepository) DeleteByTransactionIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM transactions WHERE transaction_id = ANY($1)`

	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return deleted, nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, accountID, limit, offset)
}

// ListRecentByUserID returns the user's most recent transactions across all
// active items, newest first.
func (r *TransactionRepository) ListRecentByUserID(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id IN (
			SELECT a.id FROM accounts a
			JOIN items i ON i.id = a.item_id
			WHERE i.user_id = $1 AND i.is_active = TRUE
		)
		ORDER BY date DESC, created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CategoryTotal is a per-category spending sum for the dashboard.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Totals returns total income (positive amounts) and total expense (negative
// amounts) across all of a user's transactions.
func (r *TransactionRepository) Totals(ctx context.Context, userID int64) (income, expense decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(t.amount) FILTER (WHERE t.amount > 0), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.amount < 0), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN items i ON i.id = a.item_id
		WHERE i.user_id = $1 AND i.is_active = TRUE
	`

	if err = r.db.QueryRowContext(ctx, query, userID).Scan(&income, &expense); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return income, expense, nil
}

// CategoryTotals returns spending grouped by primary personal-finance
// category for a user's transactions.
func (r *TransactionRepository) CategoryTotals(ctx context.Context, userID int64) ([]CategoryTotal, error) {
	query := `
		SELECT COALESCE(t.primary_category, 'UNCATEGORIZED'), SUM(t.amount)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN items i ON i.id = a.item_id
		WHERE i.user_id = $1 AND i.is_active = TRUE
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum categories: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, ct)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}

	return totals, nil
}
