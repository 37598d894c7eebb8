package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"gorm.io/gorm"
)

// VisitEventRepositoryImpl implements VisitEventRepository
type VisitEventRepositoryImpl struct {
	*BaseRepository[models.VisitEvent, models.VisitEventFilter]
}

func NewVisitEventRepository(db *gorm.DB) VisitEventRepository {
	return &VisitEventRepositoryImpl{BaseRepository: NewBaseRepository[models.VisitEvent, models.VisitEventFilter](db)}
}

func (r *VisitEventRepositoryImpl) ByID(ctx context.Context, id uint) (*models.VisitEvent, error) {
	db := r.getDB(ctx)
	var row models.VisitEvent
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// applyFilter builds the link/time-range predicate. From and To are
// inclusive, matching how dashboard date ranges are interpreted.
func (r *VisitEventRepositoryImpl) applyFilter(db *gorm.DB, f models.VisitEventFilter) *gorm.DB {
	if f.LinkID != nil {
		db = db.Where("link_id = ?", *f.LinkID)
	}
	if f.From != nil {
		db = db.Where("occurred_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("occurred_at <= ?", *f.To)
	}
	return db
}

func (r *VisitEventRepositoryImpl) ByFilter(ctx context.Context, filter models.VisitEventFilter, orderBy string, limit, offset int) ([]*models.VisitEvent, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.VisitEvent{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.VisitEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *VisitEventRepositoryImpl) Count(ctx context.Context, filter models.VisitEventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.VisitEvent{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *VisitEventRepositoryImpl) Exists(ctx context.Context, filter models.VisitEventFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// DistinctMaskedAddresses counts distinct masked client addresses across the
// filtered live event set. Unique-visitor totals are always recomputed from
// this query rather than maintained incrementally.
func (r *VisitEventRepositoryImpl) DistinctMaskedAddresses(ctx context.Context, filter models.VisitEventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.VisitEvent{}), filter)
	var count int64
	if err := query.Distinct("masked_address").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteOlderThan removes events past the retention horizon and reports how
// many rows were swept.
func (r *VisitEventRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("occurred_at < ?", cutoff).Delete(&models.VisitEvent{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *VisitEventRepositoryImpl) DeleteByLink(ctx context.Context, linkID uint) error {
	db := r.getDB(ctx)
	return db.Where("link_id = ?", linkID).Delete(&models.VisitEvent{}).Error
}
