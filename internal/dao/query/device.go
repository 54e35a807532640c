package query

import (
	"context"
	"time"

	"coco/internal/dao"
	"coco/internal/model/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ dao.DeviceDao = (*deviceDao)(nil)

type deviceDao struct {
	db *gorm.DB
}

func NewDeviceDao(db *gorm.DB) dao.DeviceDao {
	return &deviceDao{db: db}
}

func (d *deviceDao) DeviceTokenSave(ctx context.Context, deviceToken *entity.DeviceToken) error {
	deviceToken.UpdatedAt = time.Now()
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "device_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"platform": deviceToken.Platform, "updated_at": deviceToken.UpdatedAt, "is_del": 0}),
	}).Create(deviceToken).Error
}

func (d *deviceDao) DeviceTokenListByUserId(ctx context.Context, userId string) ([]entity.DeviceToken, error) {
	var tokens []entity.DeviceToken
	err := d.db.WithContext(ctx).Where("user_id = ?", userId).Find(&tokens).Error
	return tokens, err
}

func (d *deviceDao) DeviceTokenDelete(ctx context.Context, userId, deviceToken string) error {
	return d.db.WithContext(ctx).Where("user_id = ? AND device_token = ?", userId, deviceToken).
		Delete(&entity.DeviceToken{}).Error
}
