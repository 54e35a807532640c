package entity

import "time"

// UserPlan 用户订阅计划，没有记录时视为 free
type UserPlan struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Plan      string    `gorm:"type:varchar(16);not null" json:"plan"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserPlan) TableName() string {
	return "user_plan"
}

// PortfolioHolding 用户持仓币种（只读，由组合服务写入）
type PortfolioHolding struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"uniqueIndex:uk_holding;type:varchar(64);not null" json:"user_id"`
	CoinID    string    `gorm:"uniqueIndex:uk_holding;type:varchar(64);not null" json:"coin_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PortfolioHolding) TableName() string {
	return "portfolio_holding"
}
