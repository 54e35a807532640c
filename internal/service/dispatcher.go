package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"coco/conf"
	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/internal/model/entity"
	"coco/pkg/logger"

	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

// DispatchResult 一轮分发的统计
type DispatchResult struct {
	Candidates  int
	Filtered    int // 档位、免打扰、无通道
	Snoozed     int
	RateLimited int // 超出每小时上限，下一轮仍满足条件时再触发
	Duplicates  int // 同一窗口已写入
	Queued      int
	Failed      int
	MarketCrash bool
}

func (r *DispatchResult) add(o DispatchResult) {
	r.Candidates += o.Candidates
	r.Filtered += o.Filtered
	r.Snoozed += o.Snoozed
	r.RateLimited += o.RateLimited
	r.Duplicates += o.Duplicates
	r.Queued += o.Queued
	r.Failed += o.Failed
}

// Dispatcher 把评估触发的结果按用户偏好过滤、去重、限流、合并后写入日志并投递
type Dispatcher struct {
	prefs         PreferenceService
	log           NotificationService
	nd            dao.NotificationDao
	ud            dao.UserDao
	queue         DeliveryQueue
	cfg           conf.DispatchConfig
	sweepInterval time.Duration
	users         *keyLock
}

func NewDispatcher(prefs PreferenceService, log NotificationService, nd dao.NotificationDao, ud dao.UserDao,
	queue DeliveryQueue, cfg conf.DispatchConfig, sweepInterval time.Duration) *Dispatcher {
	return &Dispatcher{
		prefs:         prefs,
		log:           log,
		nd:            nd,
		ud:            ud,
		queue:         queue,
		cfg:           cfg,
		sweepInterval: sweepInterval,
		users:         newKeyLock(),
	}
}

// outgoing 一条待写入的日志（单条触发或合并后的汇总）
type outgoing struct {
	coinId    string
	alertType consts.AlertType
	severity  consts.Severity
	title     string
	message   string
	extra     map[string]any
}

// Dispatch sweepAt 为本轮评估开始时间，幂等窗口、免打扰和限流都以它为准
func (d *Dispatcher) Dispatch(ctx context.Context, sweepAt time.Time, firings []model.Firing) (DispatchResult, error) {
	var res DispatchResult
	coins := make(map[string]struct{})
	byUser := make(map[string][]model.Firing)
	for _, f := range firings {
		if !f.Verdict.Fires {
			continue
		}
		coins[f.CoinID] = struct{}{}
		byUser[f.UserID] = append(byUser[f.UserID], f)
	}
	res.MarketCrash = d.cfg.MarketCrashCoins > 0 && len(coins) >= d.cfg.MarketCrashCoins
	if res.MarketCrash {
		logger.Warn("market crash guard engaged", logger.Pair("coins", len(coins)))
	}

	userIds := make([]string, 0, len(byUser))
	for u := range byUser {
		userIds = append(userIds, u)
	}
	sort.Strings(userIds)

	var errs error
	for _, userId := range userIds {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		r, err := d.dispatchUser(ctx, userId, byUser[userId], sweepAt, res.MarketCrash)
		res.add(r)
		if err != nil {
			logger.Error("dispatch failed", logger.Pair(consts.UserID, userId), logger.Pair("error", err.Error()))
			errs = multierr.Append(errs, fmt.Errorf("dispatch user %s: %w", userId, err))
		}
	}
	return res, errs
}

func (d *Dispatcher) dispatchUser(ctx context.Context, userId string, firings []model.Firing, sweepAt time.Time, crash bool) (DispatchResult, error) {
	var res DispatchResult
	res.Candidates = len(firings)

	unlock := d.users.Lock(userId)
	defer unlock()

	prefs, err := d.prefs.Get(ctx, userId)
	if err != nil {
		return res, err
	}

	// 免打扰窗口内已随汇总发出的币种/类型
	summarized, err := d.summarizedMembers(ctx, prefs, sweepAt)
	if err != nil {
		return res, err
	}

	// 过滤 + 免打扰
	var candidates []model.Firing
	for _, f := range firings {
		if !ShouldDeliver(prefs, f.Verdict, sweepAt) {
			res.Filtered++
			continue
		}
		snoozed, err := d.snoozed(ctx, prefs, f.CoinID, f.AlertType, sweepAt)
		if err != nil {
			return res, err
		}
		if _, ok := summarized[memberKey(f.CoinID, f.AlertType)]; snoozed || ok {
			res.Snoozed++
			continue
		}
		candidates = append(candidates, f)
	}
	if len(candidates) == 0 {
		return res, nil
	}

	items, err := d.collapse(ctx, prefs, candidates, crash)
	if err != nil {
		return res, err
	}
	// 限流：过去 60 分钟的条数，critical 优先
	sent, err := d.nd.NotificationCountSince(ctx, userId, sweepAt.Add(-time.Hour))
	if err != nil {
		return res, fmt.Errorf("count recent notifications: %w", err)
	}
	remaining := prefs.MaxNotificationsPerHour - int(sent)
	if remaining < 0 {
		remaining = 0
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].severity.Rank() > items[j].severity.Rank()
	})
	if len(items) > remaining {
		res.RateLimited += len(items) - remaining
		for _, it := range items[remaining:] {
			logger.Info("notification deferred by hourly cap",
				logger.Pair(consts.UserID, userId),
				logger.Pair("coin_id", it.coinId),
				logger.Pair("alert_type", it.alertType))
		}
		items = items[:remaining]
	}

	window := d.firingWindow(prefs, sweepAt)
	var errs error
	for _, it := range items {
		w := window
		if it.alertType.IsSummary() {
			// 成员已逐个去重，汇总按评估间隔取窗口
			w = d.sweepWindow(sweepAt)
		}
		entry := &entity.NotificationLog{
			UserID:       userId,
			CoinID:       it.coinId,
			AlertType:    it.alertType,
			FiringWindow: w,
			Message:      it.message,
			Severity:     it.severity,
			SentAt:       sweepAt,
			Extra:        it.extra,
		}
		inserted, err := d.log.Append(ctx, entry)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !inserted {
			res.Duplicates++
			continue
		}
		task := model.DeliveryTask{
			EntryID:   entry.ID,
			UserID:    userId,
			CoinID:    it.coinId,
			AlertType: it.alertType,
			Severity:  it.severity,
			Title:     it.title,
			Message:   it.message,
			SentAt:    entry.SentAt,
		}
		if err := d.queue.Enqueue(ctx, task); err != nil {
			res.Failed++
			logger.Error("enqueue delivery failed",
				logger.Pair(consts.UserID, userId),
				logger.Pair("coin_id", it.coinId),
				logger.Pair("alert_type", it.alertType),
				logger.Pair("error", err.Error()))
			if mErr := d.log.MarkDelivery(ctx, entry.ID, consts.DeliveryFailed); mErr != nil {
				errs = multierr.Append(errs, mErr)
			}
			continue
		}
		res.Queued++
	}
	return res, errs
}

// snoozed 同一键最近一条在免打扰时长内
func (d *Dispatcher) snoozed(ctx context.Context, prefs *entity.NotificationPreferences, coinId string, t consts.AlertType, now time.Time) (bool, error) {
	if !prefs.SnoozeEnabled {
		return false, nil
	}
	latest, err := d.nd.NotificationLatest(ctx, prefs.UserID, coinId, t)
	if err != nil {
		return false, fmt.Errorf("load latest notification: %w", err)
	}
	if latest == nil {
		return false, nil
	}
	return now.Sub(latest.SentAt) < time.Duration(prefs.SnoozeHours)*time.Hour, nil
}

// summarizedMembers 免打扰时长内发出的汇总所包含的 币种/类型
func (d *Dispatcher) summarizedMembers(ctx context.Context, prefs *entity.NotificationPreferences, now time.Time) (map[string]struct{}, error) {
	if !prefs.SnoozeEnabled {
		return nil, nil
	}
	since := now.Add(-time.Duration(prefs.SnoozeHours) * time.Hour)
	entries, err := d.nd.NotificationSummariesSince(ctx, prefs.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("load recent summaries: %w", err)
	}
	members := make(map[string]struct{})
	for _, e := range entries {
		for _, m := range cast.ToStringSlice(e.Extra["members"]) {
			members[m] = struct{}{}
		}
	}
	return members, nil
}

func memberKey(coinId string, t consts.AlertType) string {
	return coinId + ":" + string(t)
}

// firingWindow 评估时间按免打扰时长（关闭时按评估间隔）取整
func (d *Dispatcher) firingWindow(prefs *entity.NotificationPreferences, sweepAt time.Time) int64 {
	if prefs.SnoozeEnabled && prefs.SnoozeHours > 0 {
		return sweepAt.Truncate(time.Duration(prefs.SnoozeHours) * time.Hour).Unix()
	}
	return d.sweepWindow(sweepAt)
}

func (d *Dispatcher) sweepWindow(sweepAt time.Time) int64 {
	if d.sweepInterval <= 0 {
		return sweepAt.Unix()
	}
	return sweepAt.Truncate(d.sweepInterval).Unix()
}

// collapse 崩盘保护下非事件类合并为市场汇总；开启合并且触发币种或持仓足够多时合并为组合汇总
func (d *Dispatcher) collapse(ctx context.Context, prefs *entity.NotificationPreferences, candidates []model.Firing, crash bool) ([]outgoing, error) {
	var singles, grouped []model.Firing
	for _, f := range candidates {
		switch {
		case crash && !f.AlertType.IsEvent():
			grouped = append(grouped, f)
		case !crash && Batchable(prefs, f.AlertType):
			grouped = append(grouped, f)
		default:
			singles = append(singles, f)
		}
	}

	if !crash && len(grouped) > 0 {
		batch, err := d.shouldBatch(ctx, prefs.UserID, grouped)
		if err != nil {
			return nil, err
		}
		if !batch {
			singles = append(singles, grouped...)
			grouped = nil
		}
	}

	items := make([]outgoing, 0, len(singles)+1)
	for _, f := range singles {
		items = append(items, single(f, prefs.Verbosity))
	}
	if len(grouped) > 0 {
		kind := consts.AlertPortfolioSummary
		if crash {
			kind = consts.AlertMarketSummary
		}
		items = append(items, summary(kind, grouped))
	}
	return items, nil
}

func (d *Dispatcher) shouldBatch(ctx context.Context, userId string, grouped []model.Firing) (bool, error) {
	if len(grouped) < 2 {
		return false, nil
	}
	coins := make(map[string]struct{})
	for _, f := range grouped {
		coins[f.CoinID] = struct{}{}
	}
	if len(coins) >= d.cfg.BatchMinCoins {
		return true, nil
	}
	holdings, err := d.ud.UserHoldingCoinIDs(ctx, userId)
	if err != nil {
		return false, fmt.Errorf("load holdings: %w", err)
	}
	return len(holdings) >= d.cfg.PortfolioBatchSize, nil
}

func single(f model.Firing, verbosity consts.Verbosity) outgoing {
	o := outgoing{
		coinId:    f.CoinID,
		alertType: f.AlertType,
		severity:  f.Verdict.Severity,
		title:     fmt.Sprintf("%s %s alert", strings.ToUpper(f.CoinID), f.AlertType.Label()),
		message:   f.Verdict.Text(verbosity),
	}
	if f.AlertType.IsEvent() {
		o.extra = map[string]any{"confidence": f.Verdict.Confidence}
	}
	return o
}

// summary 按类型统计触发数，严重程度取最高的一条
func summary(kind consts.AlertType, grouped []model.Firing) outgoing {
	counts := make(map[consts.AlertType]int)
	coinSet := make(map[string]struct{})
	members := make([]string, 0, len(grouped))
	sev := consts.SeverityInfo
	for _, f := range grouped {
		counts[f.AlertType]++
		coinSet[f.CoinID] = struct{}{}
		members = append(members, memberKey(f.CoinID, f.AlertType))
		if f.Verdict.Severity.Rank() > sev.Rank() {
			sev = f.Verdict.Severity
		}
	}
	types := make([]consts.AlertType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	coinIds := make([]string, 0, len(coinSet))
	for c := range coinSet {
		coinIds = append(coinIds, c)
	}
	sort.Strings(coinIds)
	sort.Strings(members)

	parts := make([]string, 0, len(types))
	extraCounts := make(map[string]any, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t.Label()))
		extraCounts[string(t)] = counts[t]
	}
	prefix := "Portfolio Alert"
	if kind == consts.AlertMarketSummary {
		prefix = "Market Alert"
	}
	return outgoing{
		alertType: kind,
		severity:  sev,
		title:     prefix,
		message:   fmt.Sprintf("%s: %d coins triggered (%s)", prefix, len(coinIds), strings.Join(parts, ", ")),
		extra: map[string]any{
			"counts":  extraCounts,
			"coins":   coinIds,
			"members": members,
		},
	}
}
