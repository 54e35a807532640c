package entity

import (
	"time"

	"coco/internal/consts"
)

// StakePool 每个 (coin, alertType) 一行，记录当前周期的状态
type StakePool struct {
	ID             uint             `gorm:"primaryKey" json:"-"`
	CoinID         string           `gorm:"uniqueIndex:uk_pool_key;type:varchar(64);not null" json:"coin_id"`
	AlertType      consts.AlertType `gorm:"uniqueIndex:uk_pool_key;type:varchar(32);not null" json:"alert_type"`
	Capacity       int              `gorm:"not null" json:"capacity"`
	Cycle          int              `gorm:"not null;default:1" json:"cycle"`
	State          consts.PoolState `gorm:"type:varchar(16);not null" json:"state"`
	Outcome        consts.Outcome   `gorm:"type:varchar(16)" json:"outcome"`
	ArchivedReason string           `gorm:"type:varchar(64)" json:"archived_reason"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (StakePool) TableName() string {
	return "stake_pool"
}

// Stake 用户提交的佐证
type Stake struct {
	ID          string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string             `gorm:"index:idx_stake_user;type:varchar(64);not null" json:"user_id"`
	CoinID      string             `gorm:"index:idx_stake_key;type:varchar(64);not null" json:"coin_id"`
	AlertType   consts.AlertType   `gorm:"index:idx_stake_key;type:varchar(32);not null" json:"alert_type"`
	Cycle       int                `gorm:"index:idx_stake_key;not null" json:"cycle"`
	ProofLink   string             `gorm:"type:varchar(512)" json:"proof_link"`
	EggCost     int                `gorm:"not null" json:"egg_cost"`
	Status      consts.StakeStatus `gorm:"type:varchar(16);not null" json:"status"`
	Archived    bool               `gorm:"not null" json:"archived"`
	SubmittedAt time.Time          `gorm:"not null" json:"submitted_at"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
}

func (Stake) TableName() string {
	return "stake"
}
