package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// LinkAggregateRepositoryImpl implements LinkAggregateRepository
type LinkAggregateRepositoryImpl struct {
	*BaseRepository[models.LinkAggregate, models.LinkAggregate]
}

func NewLinkAggregateRepository(db *gorm.DB) LinkAggregateRepository {
	return &LinkAggregateRepositoryImpl{BaseRepository: NewBaseRepository[models.LinkAggregate, models.LinkAggregate](db)}
}

func (r *LinkAggregateRepositoryImpl) ByID(ctx context.Context, id uint) (*models.LinkAggregate, error) {
	db := r.getDB(ctx)
	var row models.LinkAggregate
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *LinkAggregateRepositoryImpl) ByLinkID(ctx context.Context, linkID uint) (*models.LinkAggregate, error) {
	db := r.getDB(ctx)
	var row models.LinkAggregate
	if err := db.Where("link_id = ?", linkID).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByFilter: aggregates are looked up by link, not by field predicates;
// return with order/limit/offset only
func (r *LinkAggregateRepositoryImpl) ByFilter(ctx context.Context, _ models.LinkAggregate, orderBy string, limit, offset int) ([]*models.LinkAggregate, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LinkAggregate{})
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.LinkAggregate
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinkAggregateRepositoryImpl) Count(ctx context.Context, _ models.LinkAggregate) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.LinkAggregate{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkAggregateRepositoryImpl) Exists(ctx context.Context, filter models.LinkAggregate) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// UpdateVersioned writes the aggregate with a conditional UPDATE on the
// version column. The write succeeds only if no concurrent update landed
// since the caller read expectedVersion; otherwise ErrVersionConflict is
// returned and the caller decides whether to re-read and retry.
func (r *LinkAggregateRepositoryImpl) UpdateVersioned(ctx context.Context, agg *models.LinkAggregate, expectedVersion uint64) error {
	db := r.getDB(ctx)
	res := db.Model(&models.LinkAggregate{}).
		Where("id = ? AND version = ?", agg.ID, expectedVersion).
		Updates(map[string]any{
			"total_clicks":    agg.TotalClicks,
			"unique_visitors": agg.UniqueVisitors,
			"last_click_at":   agg.LastClickAt,
			"top_referrers":   agg.TopReferrers,
			"daily_clicks":    agg.DailyClicks,
			"version":         expectedVersion + 1,
			"updated_at":      utils.UTCNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	agg.Version = expectedVersion + 1
	return nil
}

// TopByTotalClicks ranks aggregates of active links only, so the limit
// applies after inactive links are excluded.
func (r *LinkAggregateRepositoryImpl) TopByTotalClicks(ctx context.Context, limit int) ([]*models.LinkAggregate, error) {
	if limit <= 0 {
		limit = utils.DefaultPopularLimit
	}
	db := r.getDB(ctx)
	var rows []*models.LinkAggregate
	if err := db.Model(&models.LinkAggregate{}).
		Joins("JOIN links ON links.id = link_aggregates.link_id").
		Where("links.is_active = ?", true).
		Order("link_aggregates.total_clicks DESC, link_aggregates.link_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinkAggregateRepositoryImpl) DeleteByLink(ctx context.Context, linkID uint) error {
	db := r.getDB(ctx)
	return db.Where("link_id = ?", linkID).Delete(&models.LinkAggregate{}).Error
}
