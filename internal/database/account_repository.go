package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"sparrow/internal/models"
)

const accountColumns = `id, item_id, account_id, name, mask, official_name,
		account_type, account_subtype, available_balance, current_balance,
		credit_limit, iso_currency_code, unofficial_currency_code,
		created_at, updated_at`

type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var (
		account                   models.Account
		available, current, limit decimal.NullDecimal
	)
	err := row.Scan(
		&account.ID, &account.ItemID, &account.AccountID, &account.Name,
		&account.Mask, &account.OfficialName, &account.AccountType,
		&account.AccountSubtype, &available, &current, &limit,
		&account.ISOCurrencyCode, &account.UnofficialCurrencyCode,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.AvailableBalance = nullDecimalPtr(available)
	account.CurrentBalance = nullDecimalPtr(current)
	account.CreditLimit = nullDecimalPtr(limit)
	return &account, nil
}

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// Upsert inserts or updates an account keyed on the external account id.
// Nullable columns use COALESCE(EXCLUDED.x, accounts.x) so that a payload
// missing an optional field never nulls out a previously stored value.
func (r *AccountRepository) Upsert(ctx context.Context, params models.UpsertAccountParams) (*models.Account, error) {
	query := `
		INSERT INTO accounts (
			item_id, account_id, name, mask, official_name, account_type,
			account_subtype, available_balance, current_balance, credit_limit,
			iso_currency_code, unofficial_currency_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (account_id) DO UPDATE SET
			name = EXCLUDED.name,
			account_type = EXCLUDED.account_type,
			mask = COALESCE(EXCLUDED.mask, accounts.mask),
			official_name = COALESCE(EXCLUDED.official_name, accounts.official_name),
			account_subtype = COALESCE(EXCLUDED.account_subtype, accounts.account_subtype),
			available_balance = COALESCE(EXCLUDED.available_balance, accounts.available_balance),
			current_balance = COALESCE(EXCLUDED.current_balance, accounts.current_balance),
			credit_limit = COALESCE(EXCLUDED.credit_limit, accounts.credit_limit),
			iso_currency_code = COALESCE(EXCLUDED.iso_currency_code, accounts.iso_currency_code),
			unofficial_currency_code = COALESCE(EXCLUDED.unofficial_currency_code, accounts.unofficial_currency_code),
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(
		ctx, query,
		params.ItemID, params.AccountID, params.Name, params.Mask,
		params.OfficialName, params.AccountType, params.AccountSubtype,
		decimalArg(params.AvailableBalance), decimalArg(params.CurrentBalance),
		decimalArg(params.CreditLimit),
		params.ISOCurrencyCode, params.UnofficialCurrencyCode,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account %s: %w", params.AccountID, err)
	}
	return account, nil
}

func decimalArg(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// ResolveID returns the internal id of the account with the given external
// account id, or nil when no such account exists yet.
func (r *AccountRepository) ResolveID(ctx context.Context, accountID string) (*int64, error) {
	query := `SELECT id FROM accounts WHERE account_id = $1 LIMIT 1`

	var id int64
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account %s: %w", accountID, err)
	}
	return &id, nil
}

func (r *AccountRepository) ListByItemID(ctx context.Context, itemID int64) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE item_id = $1 ORDER BY name`
	return r.list(ctx, query, itemID)
}

func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE item_id IN (SELECT id FROM items WHERE user_id = $1 AND is_active = TRUE)
		ORDER BY name
	`
	return r.list(ctx, query, userID)
}

// NetWorth sums current balances across all of a user's active items.
func (r *AccountRepository) NetWorth(ctx context.Context, userID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(a.current_balance), 0)
		FROM accounts a
		JOIN items i ON i.id = a.item_id
		WHERE i.user_id = $1 AND i.is_active = TRUE
	`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total, nil
}

func (r *AccountRepository) list(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
