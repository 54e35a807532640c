package query

import (
	"context"
	"time"

	"coco/internal/dao"
	"coco/internal/model/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ dao.PreferenceDao = (*preferenceDao)(nil)

type preferenceDao struct {
	db *gorm.DB
}

func NewPreferenceDao(db *gorm.DB) dao.PreferenceDao {
	return &preferenceDao{db: db}
}

func (d *preferenceDao) PreferenceGet(ctx context.Context, userId string) (*entity.NotificationPreferences, error) {
	var prefs entity.NotificationPreferences
	if err := d.db.WithContext(ctx).Where("user_id = ?", userId).First(&prefs).Error; err != nil {
		return nil, translate(err)
	}
	return &prefs, nil
}

func (d *preferenceDao) PreferenceCreate(ctx context.Context, prefs *entity.NotificationPreferences) (*entity.NotificationPreferences, error) {
	// 并发首次访问时只保留先写入的一行
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(prefs).Error; err != nil {
		return nil, translate(err)
	}
	return d.PreferenceGet(ctx, prefs.UserID)
}

func (d *preferenceDao) PreferenceSave(ctx context.Context, prefs *entity.NotificationPreferences) error {
	prefs.UpdatedAt = time.Now()
	return d.db.WithContext(ctx).Save(prefs).Error
}
