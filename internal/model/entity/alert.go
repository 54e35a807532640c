package entity

import (
	"time"

	"coco/internal/consts"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/plugin/soft_delete"
)

// AlertRule 用户针对某个币种的提醒规则
type AlertRule struct {
	ID             string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string              `gorm:"uniqueIndex:uk_user_coin_type;type:varchar(64);not null" json:"user_id"`
	CoinID         string              `gorm:"uniqueIndex:uk_user_coin_type;index:idx_coin;type:varchar(64);not null" json:"coin_id"`
	AlertType      consts.AlertType    `gorm:"uniqueIndex:uk_user_coin_type;type:varchar(32);not null" json:"alert_type"`
	ThresholdValue decimal.NullDecimal `gorm:"type:decimal(12,4)" json:"threshold_value"` // 事件类提醒为空
	IsActive       bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (AlertRule) TableName() string {
	return "alert_rule"
}

// NotificationLog 已分发的提醒记录。除投递状态和确认时间外不再修改
type NotificationLog struct {
	ID             int64                 `gorm:"primaryKey;autoIncrement:false" json:"id"` // 雪花id
	UserID         string                `gorm:"uniqueIndex:uk_notify_window;index:idx_user_sent;type:varchar(64);not null" json:"user_id"`
	CoinID         string                `gorm:"uniqueIndex:uk_notify_window;type:varchar(64);not null;default:''" json:"coin_id"`
	AlertType      consts.AlertType      `gorm:"uniqueIndex:uk_notify_window;type:varchar(32);not null" json:"alert_type"`
	FiringWindow   int64                 `gorm:"uniqueIndex:uk_notify_window;not null" json:"firing_window"` // 幂等窗口起点（unix 秒）
	Message        string                `gorm:"type:text" json:"message"`
	Severity       consts.Severity       `gorm:"type:varchar(16)" json:"severity"`
	SentAt         time.Time             `gorm:"index:idx_user_sent;not null" json:"sent_at"`
	DeliveryStatus consts.DeliveryStatus `gorm:"type:varchar(16);not null" json:"delivery_status"`
	AcknowledgedAt *time.Time            `json:"acknowledged_at"`
	Extra          datatypes.JSONMap     `gorm:"type:json" json:"extra,omitempty"` // 汇总条目的分类计数、触发时指标等
	IsDel          soft_delete.DeletedAt `gorm:"softDelete:flag" json:"-"`
}

func (NotificationLog) TableName() string {
	return "notification_log"
}
