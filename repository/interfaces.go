// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LinkRepository defines operations for short links
type LinkRepository interface {
	Repository[models.Link, models.LinkFilter]
	ByCode(ctx context.Context, code string) (*models.Link, error)
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Link, error)
	IncrementClicks(ctx context.Context, linkID uint) error
	SetActive(ctx context.Context, linkID uint, active bool) error
	Delete(ctx context.Context, linkID uint) error
	ListActiveByIDs(ctx context.Context, ids []uint) ([]*models.Link, error)
}

// VisitEventRepository defines operations for the append-only visit event log
type VisitEventRepository interface {
	Repository[models.VisitEvent, models.VisitEventFilter]
	DistinctMaskedAddresses(ctx context.Context, filter models.VisitEventFilter) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteByLink(ctx context.Context, linkID uint) error
}

// LinkAggregateRepository defines operations for per-link running totals
type LinkAggregateRepository interface {
	Repository[models.LinkAggregate, models.LinkAggregate]
	ByLinkID(ctx context.Context, linkID uint) (*models.LinkAggregate, error)
	// UpdateVersioned persists the aggregate only if its stored version still
	// matches expectedVersion. It returns ErrVersionConflict otherwise.
	UpdateVersioned(ctx context.Context, agg *models.LinkAggregate, expectedVersion uint64) error
	// TopByTotalClicks returns the aggregates of active links ordered by
	// total clicks descending, limited after the activity filter.
	TopByTotalClicks(ctx context.Context, limit int) ([]*models.LinkAggregate, error)
	DeleteByLink(ctx context.Context, linkID uint) error
}

// AdminRepository defines operations for dashboard admins
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error
}
