package dao

import (
	"context"
	"time"

	"coco/internal/consts"
	"coco/internal/model/entity"
)

// StakeDao 质押池访问接口
type StakeDao interface {
	// WithPoolLock 锁住池行后执行 fn（池不存在时按 capacity 创建），fn 返回错误时回滚
	WithPoolLock(ctx context.Context, coinId string, alertType consts.AlertType, capacity int, fn func(tx StakeTx) error) error
	PoolGet(ctx context.Context, coinId string, alertType consts.AlertType) (*entity.StakePool, error)
	PoolListByState(ctx context.Context, state consts.PoolState) ([]entity.StakePool, error)
	// PoolListVerified 最近一次裁决为 verified 的池
	PoolListVerified(ctx context.Context, coinIds []string) ([]entity.StakePool, error)
	StakeList(ctx context.Context, coinId string, alertType consts.AlertType, cycle int) ([]entity.Stake, error)
}

// StakeTx 池锁内可用的操作
type StakeTx interface {
	Pool() *entity.StakePool
	SavePool() error
	// CycleStakes 当前周期的全部质押
	CycleStakes() ([]entity.Stake, error)
	// HasPending 用户在该键下是否已有 pending 质押（跨周期）
	HasPending(userId string) (bool, error)
	CreateStake(stake *entity.Stake) error
	ResolveStakes(cycle int, status consts.StakeStatus, at time.Time) (int64, error)
	ArchiveStakes(cycle int) error
}
