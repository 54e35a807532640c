package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coco/conf"
	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/internal/model/entity"
	"coco/pkg/logger"
	"coco/utils/uuid"

	"go.uber.org/multierr"
)

// 质押池裁决为 verified 后作为事件信号的置信度
const stakeSignalConfidence = 0.95

// 裁决为 verified 的质押按成本的倍数返还
const stakeRewardMultiplier = 2

// ResolutionPolicy 决定一个已满的池能否自动裁决
type ResolutionPolicy interface {
	Name() string
	Decide(pool entity.StakePool, stakes []entity.Stake) (consts.Outcome, bool)
}

// ManualPolicy 只能由管理接口裁决
type ManualPolicy struct{}

func (ManualPolicy) Name() string { return "manual" }

func (ManualPolicy) Decide(entity.StakePool, []entity.Stake) (consts.Outcome, bool) {
	return "", false
}

// QuorumPolicy 不同用户提交的佐证链接数达到 Quorum 时自动判定 verified
type QuorumPolicy struct {
	Quorum int
}

func (QuorumPolicy) Name() string { return "quorum" }

func (p QuorumPolicy) Decide(_ entity.StakePool, stakes []entity.Stake) (consts.Outcome, bool) {
	users := make(map[string]struct{})
	for _, s := range stakes {
		if s.Status == consts.StakePending && s.ProofLink != "" {
			users[s.UserID] = struct{}{}
		}
	}
	if p.Quorum > 0 && len(users) >= p.Quorum {
		return consts.OutcomeVerified, true
	}
	return "", false
}

// NewResolutionPolicy 按配置选择裁决策略，未知名称使用 manual
func NewResolutionPolicy(cfg conf.StakeConfig) ResolutionPolicy {
	if cfg.Policy == "quorum" {
		return QuorumPolicy{Quorum: cfg.Quorum}
	}
	return ManualPolicy{}
}

var _ StakeService = (*stakeService)(nil)

// StakeService 社区质押池：open → filling → filled → resolved → archived → open
type StakeService interface {
	SubmitStake(ctx context.Context, userId string, req model.StakeSubmitReq) (*entity.Stake, error)
	GetPoolStatus(ctx context.Context, coinId string, alertType consts.AlertType) (*model.PoolStatusRes, error)
	// Resolve 裁决当前周期，返回 verified 时的奖励记录
	Resolve(ctx context.Context, coinId string, alertType consts.AlertType, outcome consts.Outcome) ([]model.StakeRewardEvent, error)
	// Archive 关闭已裁决的周期并开启下一周期
	Archive(ctx context.Context, coinId string, alertType consts.AlertType) (*entity.StakePool, error)
	// AutoResolve 对已满的池执行裁决策略，返回裁决的池数
	AutoResolve(ctx context.Context) (int, error)
	// VerifiedEvents 最近一次裁决为 verified 的池，作为评估的事件信号
	VerifiedEvents(ctx context.Context, coinIds []string) (map[string]map[consts.AlertType]model.EventSignal, error)
}

type stakeService struct {
	sd     dao.StakeDao
	cfg    conf.StakeConfig
	policy ResolutionPolicy
	now    func() time.Time
}

func NewStakeService(sd dao.StakeDao, cfg conf.StakeConfig, policy ResolutionPolicy) StakeService {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 6
	}
	if cfg.EggCost <= 0 {
		cfg.EggCost = 2
	}
	if policy == nil {
		policy = ManualPolicy{}
	}
	return &stakeService{sd: sd, cfg: cfg, policy: policy, now: time.Now}
}

func (s *stakeService) SubmitStake(ctx context.Context, userId string, req model.StakeSubmitReq) (*entity.Stake, error) {
	if !req.AlertType.IsStakeType() {
		return nil, invalid("alertType", "staking is only available for migration, delisting and rebrand")
	}
	if req.CoinID == "" {
		return nil, invalid("coinId", "required")
	}
	if req.ProofLink == "" {
		return nil, invalid("proofLink", "required")
	}

	var created entity.Stake
	err := s.sd.WithPoolLock(ctx, req.CoinID, req.AlertType, s.cfg.Capacity, func(tx dao.StakeTx) error {
		pool := tx.Pool()
		if !pool.State.Accepting() {
			return ErrPoolClosed
		}
		pending, err := tx.HasPending(userId)
		if err != nil {
			return err
		}
		if pending {
			return ErrDuplicatePendingStake
		}
		stakes, err := tx.CycleStakes()
		if err != nil {
			return err
		}
		total := totalEggs(stakes)
		if total+s.cfg.EggCost > pool.Capacity {
			return ErrPoolClosed
		}

		created = entity.Stake{
			ID:          uuid.GenUUID(),
			UserID:      userId,
			CoinID:      req.CoinID,
			AlertType:   req.AlertType,
			Cycle:       pool.Cycle,
			ProofLink:   req.ProofLink,
			EggCost:     s.cfg.EggCost,
			Status:      consts.StakePending,
			SubmittedAt: s.now(),
		}
		if err := tx.CreateStake(&created); err != nil {
			return err
		}
		total += created.EggCost
		// 达到容量，或剩余容量不足一份时视为已满
		if total+s.cfg.EggCost > pool.Capacity {
			pool.State = consts.PoolFilled
		} else {
			pool.State = consts.PoolFilling
		}
		return tx.SavePool()
	})
	if err != nil {
		if errors.Is(err, ErrPoolClosed) || errors.Is(err, ErrDuplicatePendingStake) {
			return nil, err
		}
		return nil, fmt.Errorf("submit stake %s/%s: %w", req.CoinID, req.AlertType, err)
	}
	logger.Info("stake submitted",
		logger.Pair(consts.UserID, userId),
		logger.Pair("coin_id", req.CoinID),
		logger.Pair("alert_type", req.AlertType),
		logger.Pair("cycle", created.Cycle))
	return &created, nil
}

func totalEggs(stakes []entity.Stake) int {
	total := 0
	for _, st := range stakes {
		total += st.EggCost
	}
	return total
}

func (s *stakeService) GetPoolStatus(ctx context.Context, coinId string, alertType consts.AlertType) (*model.PoolStatusRes, error) {
	if !alertType.IsStakeType() {
		return nil, invalid("alertType", "staking is only available for migration, delisting and rebrand")
	}
	pool, err := s.sd.PoolGet(ctx, coinId, alertType)
	if err != nil {
		if !errors.Is(err, dao.ErrRecordNotFound) {
			return nil, fmt.Errorf("load pool %s/%s: %w", coinId, alertType, err)
		}
		pool = &entity.StakePool{CoinID: coinId, AlertType: alertType, Capacity: s.cfg.Capacity, Cycle: 1, State: consts.PoolOpen}
	}
	stakes, err := s.sd.StakeList(ctx, coinId, alertType, pool.Cycle)
	if err != nil {
		return nil, fmt.Errorf("list stakes %s/%s: %w", coinId, alertType, err)
	}
	res := &model.PoolStatusRes{
		CoinID:         coinId,
		AlertType:      alertType,
		Cycle:          pool.Cycle,
		TotalEggs:      totalEggs(stakes),
		Capacity:       pool.Capacity,
		State:          pool.State,
		Outcome:        pool.Outcome,
		ArchivedReason: pool.ArchivedReason,
		Alerts:         make([]model.StakeRes, 0, len(stakes)),
	}
	res.PoolFilled = pool.State == consts.PoolFilled || pool.State == consts.PoolResolved
	for _, st := range stakes {
		res.Alerts = append(res.Alerts, ToStakeRes(st))
	}
	return res, nil
}

func (s *stakeService) Resolve(ctx context.Context, coinId string, alertType consts.AlertType, outcome consts.Outcome) ([]model.StakeRewardEvent, error) {
	if outcome != consts.OutcomeVerified && outcome != consts.OutcomeRejected {
		return nil, invalid("outcome", "must be verified or rejected")
	}
	var rewards []model.StakeRewardEvent
	err := s.sd.WithPoolLock(ctx, coinId, alertType, s.cfg.Capacity, func(tx dao.StakeTx) error {
		if tx.Pool().State != consts.PoolFilled {
			return ErrPoolState
		}
		var err error
		rewards, err = s.resolveLocked(tx, outcome)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrPoolState) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve pool %s/%s: %w", coinId, alertType, err)
	}
	return rewards, nil
}

// resolveLocked 调用方需持有池锁且池处于 filled
func (s *stakeService) resolveLocked(tx dao.StakeTx, outcome consts.Outcome) ([]model.StakeRewardEvent, error) {
	pool := tx.Pool()
	status := consts.StakeRejected
	if outcome == consts.OutcomeVerified {
		status = consts.StakeVerified
	}
	if _, err := tx.ResolveStakes(pool.Cycle, status, s.now()); err != nil {
		return nil, err
	}
	pool.State = consts.PoolResolved
	pool.Outcome = outcome
	if err := tx.SavePool(); err != nil {
		return nil, err
	}

	var rewards []model.StakeRewardEvent
	if outcome == consts.OutcomeVerified {
		stakes, err := tx.CycleStakes()
		if err != nil {
			return nil, err
		}
		for _, st := range stakes {
			if st.Status != consts.StakeVerified {
				continue
			}
			ev := model.StakeRewardEvent{
				StakeID:   st.ID,
				UserID:    st.UserID,
				CoinID:    st.CoinID,
				AlertType: st.AlertType,
				Eggs:      st.EggCost * stakeRewardMultiplier,
			}
			rewards = append(rewards, ev)
			logger.Info("stake reward",
				logger.Pair(consts.UserID, ev.UserID),
				logger.Pair("coin_id", ev.CoinID),
				logger.Pair("alert_type", ev.AlertType),
				logger.Pair("stake_id", ev.StakeID),
				logger.Pair("eggs", ev.Eggs))
		}
	}
	logger.Info("stake pool resolved",
		logger.Pair("coin_id", pool.CoinID),
		logger.Pair("alert_type", pool.AlertType),
		logger.Pair("cycle", pool.Cycle),
		logger.Pair("outcome", outcome))
	return rewards, nil
}

func (s *stakeService) Archive(ctx context.Context, coinId string, alertType consts.AlertType) (*entity.StakePool, error) {
	var archived entity.StakePool
	err := s.sd.WithPoolLock(ctx, coinId, alertType, s.cfg.Capacity, func(tx dao.StakeTx) error {
		pool := tx.Pool()
		if pool.State != consts.PoolResolved {
			return ErrPoolState
		}
		if err := tx.ArchiveStakes(pool.Cycle); err != nil {
			return err
		}
		// 归档后结论只保留在文案里，新周期不再作为事件信号
		pool.ArchivedReason = pool.Outcome.ArchivedReason()
		pool.Outcome = ""
		pool.Cycle++
		pool.State = consts.PoolOpen
		if err := tx.SavePool(); err != nil {
			return err
		}
		archived = *pool
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPoolState) {
			return nil, err
		}
		return nil, fmt.Errorf("archive pool %s/%s: %w", coinId, alertType, err)
	}
	logger.Info("stake pool archived",
		logger.Pair("coin_id", coinId),
		logger.Pair("alert_type", alertType),
		logger.Pair("reason", archived.ArchivedReason),
		logger.Pair("next_cycle", archived.Cycle))
	return &archived, nil
}

func (s *stakeService) AutoResolve(ctx context.Context) (int, error) {
	pools, err := s.sd.PoolListByState(ctx, consts.PoolFilled)
	if err != nil {
		return 0, fmt.Errorf("list filled pools: %w", err)
	}
	resolved := 0
	var errs error
	for _, p := range pools {
		decided := false
		err := s.sd.WithPoolLock(ctx, p.CoinID, p.AlertType, s.cfg.Capacity, func(tx dao.StakeTx) error {
			if tx.Pool().State != consts.PoolFilled {
				return nil
			}
			stakes, err := tx.CycleStakes()
			if err != nil {
				return err
			}
			outcome, ok := s.policy.Decide(*tx.Pool(), stakes)
			if !ok {
				return nil
			}
			if _, err := s.resolveLocked(tx, outcome); err != nil {
				return err
			}
			decided = true
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("auto resolve %s/%s: %w", p.CoinID, p.AlertType, err))
			continue
		}
		if decided {
			resolved++
		}
	}
	return resolved, errs
}

func (s *stakeService) VerifiedEvents(ctx context.Context, coinIds []string) (map[string]map[consts.AlertType]model.EventSignal, error) {
	pools, err := s.sd.PoolListVerified(ctx, coinIds)
	if err != nil {
		return nil, fmt.Errorf("list verified pools: %w", err)
	}
	out := make(map[string]map[consts.AlertType]model.EventSignal)
	for _, p := range pools {
		if out[p.CoinID] == nil {
			out[p.CoinID] = make(map[consts.AlertType]model.EventSignal)
		}
		out[p.CoinID][p.AlertType] = model.EventSignal{Source: model.SignalSourceStakePool, Confidence: stakeSignalConfidence}
	}
	return out, nil
}

func ToStakeRes(st entity.Stake) model.StakeRes {
	return model.StakeRes{
		ID:          st.ID,
		UserID:      st.UserID,
		CoinID:      st.CoinID,
		AlertType:   st.AlertType,
		Cycle:       st.Cycle,
		ProofLink:   st.ProofLink,
		EggCost:     st.EggCost,
		Status:      st.Status,
		Archived:    st.Archived,
		SubmittedAt: st.SubmittedAt,
	}
}
