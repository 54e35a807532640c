package model

import (
	"time"

	"coco/internal/consts"
)

type NotificationRes struct {
	ID             string                `json:"id"` // 雪花id 以字符串返回，避免前端精度丢失
	CoinID         string                `json:"coinId"`
	AlertType      consts.AlertType      `json:"alertType"`
	Message        string                `json:"message"`
	Severity       consts.Severity       `json:"severity"`
	SentAt         time.Time             `json:"sentAt"`
	DeliveryStatus consts.DeliveryStatus `json:"deliveryStatus"`
	AcknowledgedAt *time.Time            `json:"acknowledgedAt"`
	Extra          map[string]any        `json:"extra,omitempty"`
}

type NotificationListRes struct {
	Notifications []NotificationRes `json:"notifications"`
	Count         int               `json:"count"`
}

// NotificationPurgeReq DELETE /notifications/pending
type NotificationPurgeReq struct {
	UserID string `json:"userId"`
	CoinID string `json:"coinId" binding:"required"`
}

// NotificationAckReq 二选一：单条或某个币种的全部
type NotificationAckReq struct {
	ID     string `json:"id" binding:"required_without=CoinID"`
	CoinID string `json:"coinId" binding:"required_without=ID"`
}

type NotificationCountRes struct {
	Count int64 `json:"count"`
}

// DeliveryTask 投递队列中的任务
type DeliveryTask struct {
	EntryID   int64            `json:"entry_id"`
	UserID    string           `json:"user_id"`
	CoinID    string           `json:"coin_id"`
	AlertType consts.AlertType `json:"alert_type"`
	Severity  consts.Severity  `json:"severity"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	SentAt    time.Time        `json:"sent_at"`
}
