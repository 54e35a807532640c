package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"coco/conf"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/pkg/logger"

	"go.uber.org/multierr"
)

// MetricsProvider 行情/评分数据源
type MetricsProvider interface {
	Metrics(ctx context.Context, coinIds []string) (map[string]model.CoinMetrics, error)
}

// SweepResult 一轮评估的统计
type SweepResult struct {
	Coins        int
	Evaluated    int // 拿到指标的币种
	Skipped      int // 数据源不可用或超时，下一轮再评估
	Rules        int
	Firings      int
	PoolsDecided int
	Dispatch     DispatchResult
}

// Sweeper 定时评估所有生效规则，触发结果交给 Dispatcher
type Sweeper struct {
	ad         dao.AlertDao
	provider   MetricsProvider
	stakes     StakeService
	evaluator  *Evaluator
	dispatcher *Dispatcher
	cfg        conf.SweepConfig
	running    atomic.Bool
	now        func() time.Time
}

func NewSweeper(ad dao.AlertDao, provider MetricsProvider, stakes StakeService, evaluator *Evaluator, dispatcher *Dispatcher, cfg conf.SweepConfig) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Sweeper{
		ad:         ad,
		provider:   provider,
		stakes:     stakes,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run 按间隔执行，ctx 取消后返回。上一轮未结束时跳过本次 tick
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Infof("alert sweep started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("alert sweep stopped")
			return
		case <-ticker.C:
			if !s.running.CompareAndSwap(false, true) {
				logger.Warn("previous sweep still running, tick skipped")
				continue
			}
			go func() {
				defer s.running.Store(false)
				res, err := s.RunOnce(ctx)
				if err != nil {
					logger.Errorf("sweep finished with errors: %v", err)
				}
				logger.Info("sweep finished",
					logger.Pair("coins", res.Coins),
					logger.Pair("skipped", res.Skipped),
					logger.Pair("firings", res.Firings),
					logger.Pair("queued", res.Dispatch.Queued),
					logger.Pair("rate_limited", res.Dispatch.RateLimited))
			}()
		}
	}
}

// RunOnce 执行一轮。单个批次失败只跳过该批次，错误汇总返回
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	sweepAt := s.now()
	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	var errs error
	decided, err := s.stakes.AutoResolve(ctx)
	res.PoolsDecided = decided
	errs = multierr.Append(errs, err)

	coins, err := s.ad.ActiveCoinIDs(ctx)
	if err != nil {
		return res, multierr.Append(errs, fmt.Errorf("%w: list active coins: %v", ErrStoreUnavailable, err))
	}
	res.Coins = len(coins)

	var firings []model.Firing
	for start := 0; start < len(coins); start += s.cfg.BatchSize {
		if ctx.Err() != nil {
			res.Skipped += len(coins) - start
			logger.Warnf("sweep deadline reached, %d coins left for next sweep", len(coins)-start)
			break
		}
		end := start + s.cfg.BatchSize
		if end > len(coins) {
			end = len(coins)
		}
		batch := coins[start:end]
		f, evaluated, rules, err := s.evaluateBatch(ctx, batch)
		res.Rules += rules
		res.Evaluated += evaluated
		if err != nil {
			res.Skipped += len(batch)
			logger.Warn("sweep batch skipped", logger.Pair("coins", len(batch)), logger.Pair("error", err.Error()))
			errs = multierr.Append(errs, err)
			continue
		}
		firings = append(firings, f...)
	}
	res.Firings = len(firings)

	if len(firings) > 0 {
		// 分发不受评估截止时间影响
		dres, err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), sweepAt, firings)
		res.Dispatch = dres
		errs = multierr.Append(errs, err)
	}
	return res, errs
}

func (s *Sweeper) evaluateBatch(ctx context.Context, batch []string) ([]model.Firing, int, int, error) {
	if s.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.BatchTimeout)
		defer cancel()
	}
	metrics, err := s.provider.Metrics(ctx, batch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, 0, fmt.Errorf("%w: metrics batch timed out", ErrStoreUnavailable)
		}
		return nil, 0, 0, fmt.Errorf("%w: fetch metrics: %v", ErrStoreUnavailable, err)
	}
	verified, err := s.stakes.VerifiedEvents(ctx, batch)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rules, err := s.ad.ActiveRulesByCoins(ctx, batch)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: load rules: %v", ErrStoreUnavailable, err)
	}

	var firings []model.Firing
	for _, rule := range rules {
		m, ok := metrics[rule.CoinID]
		if !ok {
			m = model.CoinMetrics{CoinID: rule.CoinID}
		}
		for t, sig := range verified[rule.CoinID] {
			m = m.WithEvent(t, sig)
		}
		v := s.evaluator.Evaluate(rule, m)
		if !v.Fires {
			continue
		}
		firings = append(firings, model.Firing{
			UserID:    rule.UserID,
			CoinID:    rule.CoinID,
			AlertType: rule.AlertType,
			Verdict:   v,
			Metrics:   m,
		})
	}
	return firings, len(metrics), len(rules), nil
}
