package plaid

import (
	"context"
	"errors"
	"log"
)

// SyncAPI is the slice of the provider client the syncer needs.
type SyncAPI interface {
	TransactionsSync(ctx context.Context, accessToken, cursor string) (*TransactionsSyncResponse, error)
	AccountsGet(ctx context.Context, accessToken string) (*AccountsGetResponse, error)
}

// DefaultMaxRetries bounds how many times a full pagination sweep is
// restarted after the provider reports a mutation during pagination.
const DefaultMaxRetries = 3

// SyncDelta is the accumulated result of one transaction sync: everything
// added, modified and removed since the starting cursor, plus the cursor to
// resume from next time.
type SyncDelta struct {
	Added    []Transaction
	Modified []Transaction
	Removed  []RemovedTransaction
	Cursor   string
}

// Syncer drives the cursor-based incremental sync protocol against the
// provider, handling pagination and the one retryable conflict case.
type Syncer struct {
	client     SyncAPI
	maxRetries int
}

func NewSyncer(client SyncAPI, maxRetries int) *Syncer {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Syncer{client: client, maxRetries: maxRetries}
}

// SyncTransactions pages through /transactions/sync from the given cursor
// until has_more is false, accumulating the delta.
//
// When the provider reports TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION the
// dataset changed underneath the sweep: the whole sweep restarts with fresh
// lists from the currently-held cursor, at most maxRetries times. Any other
// failure, or retry exhaustion, yields an empty delta carrying the cursor
// held at the point of failure. Errors never propagate to the caller; a
// failed sync is retried from the stored cursor on the next trigger.
func (s *Syncer) SyncTransactions(ctx context.Context, accessToken, cursor string) *SyncDelta {
attempts:
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		delta := &SyncDelta{Cursor: cursor}

		for {
			resp, err := s.client.TransactionsSync(ctx, accessToken, delta.Cursor)
			if err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.ErrorCode == ErrCodeSyncMutationDuringPagination {
					log.Printf("Sync: dataset mutated during pagination, restarting sweep (attempt %d/%d)", attempt, s.maxRetries)
					cursor = delta.Cursor
					continue attempts
				}
				log.Printf("Sync: error fetching transactions: %v", err)
				return &SyncDelta{Cursor: delta.Cursor}
			}

			delta.Added = append(delta.Added, resp.Added...)
			delta.Modified = append(delta.Modified, resp.Modified...)
			delta.Removed = append(delta.Removed, resp.Removed...)
			delta.Cursor = resp.NextCursor

			if !resp.HasMore {
				return delta
			}
		}
	}

	log.Printf("Sync: too many retries")
	return &SyncDelta{Cursor: cursor}
}

// FetchAccounts retrieves the full account snapshot for an item. On failure
// it logs and returns an empty list, mirroring the sync error policy.
func (s *Syncer) FetchAccounts(ctx context.Context, accessToken string) []Account {
	resp, err := s.client.AccountsGet(ctx, accessToken)
	if err != nil {
		log.Printf("Sync: error fetching accounts: %v", err)
		return nil
	}
	return resp.Accounts
}
