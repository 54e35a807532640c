package model

import (
	"time"

	"coco/internal/consts"
)

// AlertRuleReq 创建或更新规则（POST /alerts）
type AlertRuleReq struct {
	CoinID         string           `json:"coinId" binding:"required,max=64"`
	AlertType      consts.AlertType `json:"alertType" binding:"required"`
	ThresholdValue *float64         `json:"thresholdValue"`
	IsActive       *bool            `json:"isActive"`
}

// AlertRuleUpdateReq 按 id 修改（PUT /alerts）
type AlertRuleUpdateReq struct {
	ID             string   `json:"id" binding:"required"`
	ThresholdValue *float64 `json:"thresholdValue"`
	IsActive       *bool    `json:"isActive"`
}

type AlertRuleRes struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	CoinID         string           `json:"coinId"`
	AlertType      consts.AlertType `json:"alertType"`
	ThresholdValue *float64         `json:"thresholdValue"`
	IsActive       bool             `json:"isActive"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

type AlertRuleListRes struct {
	Alerts []AlertRuleRes `json:"alerts"`
}

// AlertDashboardRes GET /alerts/summary
type AlertDashboardRes struct {
	Alerts        []AlertRuleRes `json:"alerts"`
	ActiveCoinIDs []string       `json:"activeCoinIds"`
}

type AlertDeleteRes struct {
	Deleted           int64 `json:"deleted"`
	PurgedNotifyCount int64 `json:"purgedNotifications"`
}

// AlertSummaryReq PATCH /alerts/summary 批量存在性检查
type AlertSummaryReq struct {
	CoinIDs  []string `json:"coinIds" binding:"required,max=500,dive,required"`
	DataType string   `json:"dataType" binding:"omitempty,oneof=portfolio alerts all"`
}

// CoinSummary 单个币种的存在性
type CoinSummary struct {
	HasAlerts    *bool `json:"hasAlerts,omitempty"`
	InPortfolio  *bool `json:"inPortfolio,omitempty"`
	ActiveAlerts int   `json:"activeAlerts,omitempty"`
}

type AlertSummaryRes struct {
	Coins map[string]CoinSummary `json:"coins"`
}
