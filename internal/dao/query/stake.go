package query

import (
	"context"
	"fmt"
	"time"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ dao.StakeDao = (*stakeDao)(nil)

type stakeDao struct {
	db *gorm.DB
}

func NewStakeDao(db *gorm.DB) dao.StakeDao {
	return &stakeDao{db: db}
}

// WithPoolLock 事务内 SELECT ... FOR UPDATE 锁住池行，同一池的提交/裁决串行执行
func (d *stakeDao) WithPoolLock(ctx context.Context, coinId string, alertType consts.AlertType, capacity int, fn func(tx dao.StakeTx) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := entity.StakePool{
			CoinID:    coinId,
			AlertType: alertType,
			Capacity:  capacity,
			Cycle:     1,
			State:     consts.PoolOpen,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("create stake pool: %w", err)
		}
		var pool entity.StakePool
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("coin_id = ? AND alert_type = ?", coinId, alertType).
			First(&pool).Error
		if err != nil {
			return fmt.Errorf("lock stake pool: %w", translate(err))
		}
		return fn(&stakeTx{tx: tx, pool: &pool})
	})
}

func (d *stakeDao) PoolGet(ctx context.Context, coinId string, alertType consts.AlertType) (*entity.StakePool, error) {
	var pool entity.StakePool
	err := d.db.WithContext(ctx).Where("coin_id = ? AND alert_type = ?", coinId, alertType).First(&pool).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pool, nil
}

func (d *stakeDao) PoolListByState(ctx context.Context, state consts.PoolState) ([]entity.StakePool, error) {
	var pools []entity.StakePool
	err := d.db.WithContext(ctx).Where("state = ?", state).Find(&pools).Error
	return pools, err
}

func (d *stakeDao) PoolListVerified(ctx context.Context, coinIds []string) ([]entity.StakePool, error) {
	if len(coinIds) == 0 {
		return nil, nil
	}
	var pools []entity.StakePool
	err := d.db.WithContext(ctx).
		Where("outcome = ? AND coin_id IN ?", consts.OutcomeVerified, coinIds).
		Find(&pools).Error
	return pools, err
}

func (d *stakeDao) StakeList(ctx context.Context, coinId string, alertType consts.AlertType, cycle int) ([]entity.Stake, error) {
	var stakes []entity.Stake
	err := d.db.WithContext(ctx).
		Where("coin_id = ? AND alert_type = ? AND cycle = ?", coinId, alertType, cycle).
		Order("submitted_at ASC").Find(&stakes).Error
	return stakes, err
}

type stakeTx struct {
	tx   *gorm.DB
	pool *entity.StakePool
}

func (s *stakeTx) Pool() *entity.StakePool { return s.pool }

func (s *stakeTx) SavePool() error {
	s.pool.UpdatedAt = time.Now()
	return s.tx.Save(s.pool).Error
}

func (s *stakeTx) CycleStakes() ([]entity.Stake, error) {
	var stakes []entity.Stake
	err := s.tx.Where("coin_id = ? AND alert_type = ? AND cycle = ?", s.pool.CoinID, s.pool.AlertType, s.pool.Cycle).
		Order("submitted_at ASC").Find(&stakes).Error
	return stakes, err
}

func (s *stakeTx) HasPending(userId string) (bool, error) {
	var n int64
	err := s.tx.Model(&entity.Stake{}).
		Where("user_id = ? AND coin_id = ? AND alert_type = ? AND status = ?", userId, s.pool.CoinID, s.pool.AlertType, consts.StakePending).
		Count(&n).Error
	return n > 0, err
}

func (s *stakeTx) CreateStake(stake *entity.Stake) error {
	return translate(s.tx.Create(stake).Error)
}

func (s *stakeTx) ResolveStakes(cycle int, status consts.StakeStatus, at time.Time) (int64, error) {
	result := s.tx.Model(&entity.Stake{}).
		Where("coin_id = ? AND alert_type = ? AND cycle = ? AND status = ?", s.pool.CoinID, s.pool.AlertType, cycle, consts.StakePending).
		Updates(map[string]interface{}{"status": status, "resolved_at": at})
	return result.RowsAffected, result.Error
}

func (s *stakeTx) ArchiveStakes(cycle int) error {
	return s.tx.Model(&entity.Stake{}).
		Where("coin_id = ? AND alert_type = ? AND cycle = ?", s.pool.CoinID, s.pool.AlertType, cycle).
		Update("archived", true).Error
}
