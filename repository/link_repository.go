package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkRepositoryImpl implements LinkRepository
type LinkRepositoryImpl struct {
	*BaseRepository[models.Link, models.LinkFilter]
}

func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &LinkRepositoryImpl{BaseRepository: NewBaseRepository[models.Link, models.LinkFilter](db)}
}

func (r *LinkRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Link, error) {
	db := r.getDB(ctx)
	var row models.Link
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *LinkRepositoryImpl) ByCode(ctx context.Context, code string) (*models.Link, error) {
	filter := models.LinkFilter{Code: &code}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *LinkRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	filter := models.LinkFilter{UUID: &id}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *LinkRepositoryImpl) applyFilter(db *gorm.DB, f models.LinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Code != nil {
		db = db.Where("code = ?", *f.Code)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.CreatedBy != nil {
		db = db.Where("created_by = ?", *f.CreatedBy)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LinkRepositoryImpl) ByFilter(ctx context.Context, filter models.LinkFilter, orderBy string, limit, offset int) ([]*models.Link, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Link{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Link
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinkRepositoryImpl) Count(ctx context.Context, filter models.LinkFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Link{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkRepositoryImpl) Exists(ctx context.Context, filter models.LinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// IncrementClicks bumps the raw click counter atomically in the database
func (r *LinkRepositoryImpl) IncrementClicks(ctx context.Context, linkID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Link{}).
		Where("id = ?", linkID).
		UpdateColumn("clicks", gorm.Expr("clicks + 1")).Error
}

func (r *LinkRepositoryImpl) SetActive(ctx context.Context, linkID uint, active bool) error {
	db := r.getDB(ctx)
	return db.Model(&models.Link{}).
		Where("id = ?", linkID).
		Updates(map[string]any{"is_active": active, "updated_at": utils.UTCNow()}).Error
}

func (r *LinkRepositoryImpl) Delete(ctx context.Context, linkID uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.Link{}, linkID).Error
}

// ListActiveByIDs fetches the active subset of the given links in one query
func (r *LinkRepositoryImpl) ListActiveByIDs(ctx context.Context, ids []uint) ([]*models.Link, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)
	var rows []*models.Link
	if err := db.Model(&models.Link{}).
		Where("id IN ?", ids).
		Where("is_active = ?", true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
