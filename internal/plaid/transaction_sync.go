package plaid

import (
	"context"
	"fmt"
	"log"

	"sparrow/internal/models"
)

// ItemLookup resolves items for sync rounds.
type ItemLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Item, error)
}

// SyncPersister is what the orchestrator needs from the persistence adapter.
type SyncPersister interface {
	UpsertAccounts(ctx context.Context, item *models.Item, accounts []Account) error
	UpsertTransactions(ctx context.Context, transactions []Transaction) error
	DeleteTransactions(ctx context.Context, removed []RemovedTransaction) error
	UpdateCursor(ctx context.Context, item *models.Item, cursor string) error
}

// SyncService runs full sync rounds: one item, one round, fetch then persist
// then checkpoint.
type SyncService struct {
	syncer    *Syncer
	persister SyncPersister
	items     ItemLookup
}

func NewSyncService(syncer *Syncer, persister SyncPersister, items ItemLookup) *SyncService {
	return &SyncService{syncer: syncer, persister: persister, items: items}
}

// UpdateTransactions executes one sync round for the item with the given
// database id. Accounts are persisted before transactions so owner
// resolution can succeed, and the cursor advances only after every write
// lands; a failure anywhere aborts the rest of the round. Safe to re-run:
// all writes are upserts or idempotent deletes keyed on external ids.
func (s *SyncService) UpdateTransactions(ctx context.Context, itemID int64) error {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to resolve item %d: %w", itemID, err)
	}
	if item == nil {
		log.Printf("Sync: item with id %d not found", itemID)
		return nil
	}

	delta := s.syncer.SyncTransactions(ctx, item.AccessToken, item.TransactionsCursor)
	accounts := s.syncer.FetchAccounts(ctx, item.AccessToken)

	if err := s.persister.UpsertAccounts(ctx, item, accounts); err != nil {
		return fmt.Errorf("failed to persist accounts for item %s: %w", item.ItemID, err)
	}

	changed := append(append([]Transaction{}, delta.Added...), delta.Modified...)
	if err := s.persister.UpsertTransactions(ctx, changed); err != nil {
		return fmt.Errorf("failed to persist transactions for item %s: %w", item.ItemID, err)
	}

	if err := s.persister.DeleteTransactions(ctx, delta.Removed); err != nil {
		return fmt.Errorf("failed to delete transactions for item %s: %w", item.ItemID, err)
	}

	if err := s.persister.UpdateCursor(ctx, item, delta.Cursor); err != nil {
		return fmt.Errorf("failed to advance cursor for item %s: %w", item.ItemID, err)
	}

	return nil
}
