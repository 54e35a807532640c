package entity

import (
	"time"

	"gorm.io/plugin/soft_delete"
)

// DeviceToken 推送通道的 APNs 设备
type DeviceToken struct {
	Id          int64                 `gorm:"column:id;primary_key;autoIncrement:false" json:"id"`
	UserId      string                `gorm:"column:user_id;uniqueIndex:uk_user_token;type:varchar(64);not null" json:"user_id"`
	DeviceToken string                `gorm:"column:device_token;uniqueIndex:uk_user_token;type:varchar(200);not null" json:"device_token"` // 设备标识符
	Platform    string                `gorm:"column:platform;type:varchar(16);not null" json:"platform"`                                    // 设备平台
	CreatedAt   time.Time             `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time             `gorm:"column:updated_at" json:"updated_at"`
	IsDel       soft_delete.DeletedAt `gorm:"softDelete:flag" json:"-"`
}

func (DeviceToken) TableName() string {
	return "device_token"
}
