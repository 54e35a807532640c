package query

import (
	"coco/internal/model/entity"

	"gorm.io/gorm"
)

// AutoMigrate 建表/补字段
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.AlertRule{},
		&entity.NotificationLog{},
		&entity.NotificationPreferences{},
		&entity.StakePool{},
		&entity.Stake{},
		&entity.DeviceToken{},
		&entity.UserPlan{},
		&entity.PortfolioHolding{},
	)
}
