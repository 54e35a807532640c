package model

import (
	"time"

	"coco/internal/consts"
)

// StakeSubmitReq POST /coin-alerts
type StakeSubmitReq struct {
	UserID    string           `json:"userId"`
	CoinID    string           `json:"coinId" binding:"required,max=64"`
	AlertType consts.AlertType `json:"alertType" binding:"required"`
	ProofLink string           `json:"proofLink" binding:"required,url,max=512"`
}

type StakeRes struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	CoinID      string             `json:"coinId"`
	AlertType   consts.AlertType   `json:"alertType"`
	Cycle       int                `json:"cycle"`
	ProofLink   string             `json:"proofLink"`
	EggCost     int                `json:"eggCost"`
	Status      consts.StakeStatus `json:"status"`
	Archived    bool               `json:"archived"`
	SubmittedAt time.Time          `json:"submittedAt"`
}

// PoolStatusRes GET /coin-alerts
type PoolStatusRes struct {
	CoinID         string           `json:"coinId"`
	AlertType      consts.AlertType `json:"alertType"`
	Cycle          int              `json:"cycle"`
	TotalEggs      int              `json:"totalEggs"`
	Capacity       int              `json:"capacity"`
	PoolFilled     bool             `json:"poolFilled"`
	State          consts.PoolState `json:"state"`
	Outcome        consts.Outcome   `json:"outcome,omitempty"`
	ArchivedReason string           `json:"archivedReason,omitempty"`
	Alerts         []StakeRes       `json:"alerts"`
}

// PoolResolveReq 管理接口：裁决/归档
type PoolResolveReq struct {
	CoinID    string           `json:"coinId" binding:"required"`
	AlertType consts.AlertType `json:"alertType" binding:"required"`
	Outcome   consts.Outcome   `json:"outcome" binding:"omitempty,oneof=verified rejected"`
}

// StakeRewardEvent 裁决为 verified 的质押获得 2 倍返还，记账由外部完成
type StakeRewardEvent struct {
	StakeID   string           `json:"stake_id"`
	UserID    string           `json:"user_id"`
	CoinID    string           `json:"coin_id"`
	AlertType consts.AlertType `json:"alert_type"`
	Eggs      int              `json:"eggs"`
}
