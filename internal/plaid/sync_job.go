package plaid

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"sparrow/internal/scheduler"
)

// TransactionUpdater runs one sync round for an item.
type TransactionUpdater interface {
	UpdateTransactions(ctx context.Context, itemID int64) error
}

// SyncJob adapts a sync round to the worker pool's Job interface.
type SyncJob struct {
	itemID  int64
	service TransactionUpdater
}

func NewSyncJob(itemID int64, service TransactionUpdater) *SyncJob {
	return &SyncJob{itemID: itemID, service: service}
}

func (j *SyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting transaction sync for item %d", j.itemID)

	if err := j.service.UpdateTransactions(ctx, j.itemID); err != nil {
		log.Printf("Transaction sync failed for item %d: %v", j.itemID, err)
		return fmt.Errorf("sync failed: %w", err)
	}

	log.Printf("Transaction sync completed for item %d", j.itemID)
	return nil
}

func (j *SyncJob) ItemID() string {
	return strconv.FormatInt(j.itemID, 10)
}

func (j *SyncJob) Description() string {
	return fmt.Sprintf("Transaction sync for item %d", j.itemID)
}

// JobQueue is the submit side of the worker pool.
type JobQueue interface {
	Submit(job scheduler.Job) error
}

// SyncEnqueuer hands sync rounds to the background worker pool,
// fire-and-forget. Rounds are idempotent, so duplicate delivery is harmless.
type SyncEnqueuer struct {
	queue   JobQueue
	service TransactionUpdater
}

func NewSyncEnqueuer(queue JobQueue, service TransactionUpdater) *SyncEnqueuer {
	return &SyncEnqueuer{queue: queue, service: service}
}

func (e *SyncEnqueuer) EnqueueSync(itemID int64) error {
	return e.queue.Submit(NewSyncJob(itemID, e.service))
}
