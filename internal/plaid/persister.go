package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"sparrow/internal/models"
)

// ItemStore is the slice of the item repository the persister mutates.
type ItemStore interface {
	UpdateCursor(ctx context.Context, id int64, cursor string) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	SetNewAccountsDetected(ctx context.Context, id int64, detected bool) error
}

// AccountStore upserts account rows and resolves external account ids.
type AccountStore interface {
	Upsert(ctx context.Context, params models.UpsertAccountParams) (*models.Account, error)
	ResolveID(ctx context.Context, accountID string) (*int64, error)
}

// TransactionStore upserts and deletes transaction rows.
type TransactionStore interface {
	Upsert(ctx context.Context, params models.UpsertTransactionParams) (*models.Transaction, error)
	DeleteByTransactionIDs(ctx context.Context, ids []string) (int64, error)
}

// Persister applies provider payloads to local storage. It builds partial
// field sets from what the payload actually carries; storage failures
// propagate to the caller, which abandons the sync round.
type Persister struct {
	items        ItemStore
	accounts     AccountStore
	transactions TransactionStore
}

func NewPersister(items ItemStore, accounts AccountStore, transactions TransactionStore) *Persister {
	return &Persister{items: items, accounts: accounts, transactions: transactions}
}

// UpsertAccounts stores the account snapshot for an item.
func (p *Persister) UpsertAccounts(ctx context.Context, item *models.Item, accounts []Account) error {
	for _, account := range accounts {
		params := models.UpsertAccountParams{
			ItemID:         item.ID,
			AccountID:      account.AccountID,
			Name:           account.Name,
			AccountType:    account.Type,
			Mask:           account.Mask,
			OfficialName:   account.OfficialName,
			AccountSubtype: account.Subtype,
		}

		if balances := account.Balances; balances != nil {
			params.AvailableBalance = balances.Available
			params.CurrentBalance = balances.Current
			params.CreditLimit = balances.Limit
			params.ISOCurrencyCode = balances.ISOCurrencyCode
			params.UnofficialCurrencyCode = balances.UnofficialCurrencyCode
		}

		if _, err := p.accounts.Upsert(ctx, params); err != nil {
			return err
		}
	}

	log.Printf("%d accounts saved for item %s", len(accounts), item.ItemID)
	return nil
}

// UpsertTransactions stores added and modified transaction payloads. The
// owning account is resolved by external account id; a transaction whose
// account has not been created yet is stored without an owner and repaired
// by a later round.
func (p *Persister) UpsertTransactions(ctx context.Context, transactions []Transaction) error {
	for _, tx := range transactions {
		date, err := time.Parse("2006-01-02", tx.Date)
		if err != nil {
			return fmt.Errorf("transaction %s has invalid date %q: %w", tx.TransactionID, tx.Date, err)
		}

		location := tx.Location
		if len(location) == 0 {
			location = json.RawMessage("{}")
		}

		params := models.UpsertTransactionParams{
			TransactionID:          tx.TransactionID,
			Location:               location,
			Date:                   date,
			Pending:                tx.Pending,
			Amount:                 tx.Amount,
			ISOCurrencyCode:        tx.ISOCurrencyCode,
			UnofficialCurrencyCode: tx.UnofficialCurrencyCode,
			CheckNumber:            tx.CheckNumber,
			DateTime:               tx.DateTime,
			AuthorizedDateTime:     tx.AuthorizedDateTime,
			Name:                   tx.Name,
			MerchantName:           tx.MerchantName,
			MerchantEntityID:       tx.MerchantEntityID,
			LogoURL:                tx.LogoURL,
			Website:                tx.Website,
			AccountOwner:           tx.AccountOwner,
			CategoryIconURL:        tx.PersonalFinanceCategoryIconURL,
		}

		if tx.AuthorizedDate != nil {
			authorized, err := time.Parse("2006-01-02", *tx.AuthorizedDate)
			if err != nil {
				return fmt.Errorf("transaction %s has invalid authorized_date %q: %w", tx.TransactionID, *tx.AuthorizedDate, err)
			}
			params.AuthorizedDate = &authorized
		}

		if category := tx.PersonalFinanceCategory; category != nil {
			params.PrimaryCategory = category.Primary
			params.DetailedCategory = category.Detailed
			params.CategoryConfidence = category.ConfidenceLevel
		}

		accountID, err := p.accounts.ResolveID(ctx, tx.AccountID)
		if err != nil {
			return err
		}
		params.AccountID = accountID

		if _, err := p.transactions.Upsert(ctx, params); err != nil {
			return err
		}
	}

	log.Printf("%d transactions saved to database", len(transactions))
	return nil
}

// DeleteTransactions hard-deletes every transaction in the removal list.
func (p *Persister) DeleteTransactions(ctx context.Context, removed []RemovedTransaction) error {
	ids := make([]string, 0, len(removed))
	for _, r := range removed {
		ids = append(ids, r.TransactionID)
	}

	deleted, err := p.transactions.DeleteByTransactionIDs(ctx, ids)
	if err != nil {
		return err
	}

	log.Printf("%d transactions deleted from database", deleted)
	return nil
}

// UpdateCursor persists the sync resumption checkpoint. Always the last
// write of a round, so a failed round retries from the old cursor.
func (p *Persister) UpdateCursor(ctx context.Context, item *models.Item, cursor string) error {
	if err := p.items.UpdateCursor(ctx, item.ID, cursor); err != nil {
		return err
	}
	item.TransactionsCursor = cursor
	log.Printf("Transaction cursor updated for item %s", item.ItemID)
	return nil
}

// MarkItemBad flips the item to BAD. The state is terminal until an
// explicit reset through the item handler.
func (p *Persister) MarkItemBad(ctx context.Context, item *models.Item) error {
	if err := p.items.UpdateStatus(ctx, item.ID, models.ItemStatusBad); err != nil {
		return err
	}
	item.Status = models.ItemStatusBad
	return nil
}

// MarkNewAccountsDetected records that the provider found accounts the user
// has not linked yet. Cleared only by an explicit reset.
func (p *Persister) MarkNewAccountsDetected(ctx context.Context, item *models.Item) error {
	if err := p.items.SetNewAccountsDetected(ctx, item.ID, true); err != nil {
		return err
	}
	item.NewAccountsDetected = true
	return nil
}
