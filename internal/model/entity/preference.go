package entity

import (
	"time"

	"coco/internal/consts"
)

// NotificationPreferences 每个用户一行
type NotificationPreferences struct {
	UserID       string           `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	PushEnabled  bool             `gorm:"not null" json:"push_enabled"`
	EmailEnabled bool             `gorm:"not null" json:"email_enabled"`
	InAppEnabled bool             `gorm:"not null" json:"in_app_enabled"`
	EmailAddress string           `gorm:"type:varchar(255)" json:"email_address"`
	Verbosity    consts.Verbosity `gorm:"type:varchar(16);not null" json:"verbosity"`

	SnoozeEnabled bool `gorm:"not null" json:"snooze_enabled"`
	SnoozeHours   int  `gorm:"not null" json:"snooze_hours"`

	// 三个档位有且只有一个为 true
	CriticalOnly         bool `gorm:"not null" json:"critical_only"`
	ImportantAndCritical bool `gorm:"not null" json:"important_and_critical"`
	AllNotifications     bool `gorm:"not null" json:"all_notifications"`

	BatchPortfolioAlerts    bool `gorm:"not null" json:"batch_portfolio_alerts"`
	MaxNotificationsPerHour int  `gorm:"not null" json:"max_notifications_per_hour"`
	SoundEnabled            bool `gorm:"not null" json:"sound_enabled"`
	VibrationEnabled        bool `gorm:"not null" json:"vibration_enabled"`

	QuietHoursEnabled bool   `gorm:"not null" json:"quiet_hours_enabled"`
	QuietHoursStart   string `gorm:"type:varchar(5)" json:"quiet_hours_start"` // HH:MM
	QuietHoursEnd     string `gorm:"type:varchar(5)" json:"quiet_hours_end"`
	Timezone          string `gorm:"type:varchar(64)" json:"timezone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

// Tier 当前生效的紧急程度档位
func (p *NotificationPreferences) Tier() consts.UrgencyTier {
	switch {
	case p.CriticalOnly:
		return consts.TierCriticalOnly
	case p.AllNotifications:
		return consts.TierAll
	default:
		return consts.TierImportantAndCritical
	}
}

// SetTier 选中一个档位，其余两个清空
func (p *NotificationPreferences) SetTier(t consts.UrgencyTier) {
	p.CriticalOnly = t == consts.TierCriticalOnly
	p.ImportantAndCritical = t == consts.TierImportantAndCritical
	p.AllNotifications = t == consts.TierAll
}

// AnyChannel 至少开启了一个投递通道
func (p *NotificationPreferences) AnyChannel() bool {
	return p.PushEnabled || p.EmailEnabled || p.InAppEnabled
}
