package sqlite

import (
	"context"

	"cryptocandles/internal/store/model"

	"gorm.io/gorm"
)

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepo(db *gorm.DB) *followRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, session, providerID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.FollowModel{}).
		Where("session_id = ? AND provider_id = ?", session, providerID).
		Count(&n).Error
	return n > 0, err
}

func (r *followRepository) Insert(ctx context.Context, f *model.FollowModel) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *followRepository) Delete(ctx context.Context, session, providerID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND provider_id = ?", session, providerID).
		Delete(&model.FollowModel{}).Error
}

func (r *followRepository) ListProviderIDs(ctx context.Context, session string) ([]string, error) {
	ids := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&model.FollowModel{}).
		Where("session_id = ?", session).
		Order("provider_id ASC").
		Pluck("provider_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
