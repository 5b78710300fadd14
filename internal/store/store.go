package store

import (
	"context"
	"time"

	"github.com/whimapp/discovery-cli/internal/model"
)

// Store defines the persistence interface for the discovery engine: the
// upstream search cache and the served-batch journal.
type Store interface {
	// Search cache
	GetSearch(ctx context.Context, key string) ([]model.Candidate, bool, error)
	SetSearch(ctx context.Context, key string, candidates []model.Candidate, ttl time.Duration) error
	DeleteExpiredSearches(ctx context.Context) (int, error)

	// Batch journal
	RecordBatch(ctx context.Context, rec model.BatchRecord) error
	ListBatches(ctx context.Context, signature string, limit int) ([]model.BatchRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
