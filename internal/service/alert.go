package service

import (
	"context"
	"errors"
	"fmt"

	"coco/conf"
	"coco/internal/cache"
	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/internal/model/entity"
	"coco/pkg/logger"
	"coco/utils/uuid"

	"github.com/shopspring/decimal"
)

var _ AlertService = (*alertService)(nil)

// AlertService 提醒规则的增删改查与配额
type AlertService interface {
	// UpsertRule 同一 (用户, 币种, 类型) 只有一条规则，重复提交即更新
	UpsertRule(ctx context.Context, userId string, req model.AlertRuleReq) (*entity.AlertRule, error)
	UpdateRule(ctx context.Context, userId string, req model.AlertRuleUpdateReq) (*entity.AlertRule, error)
	ListRules(ctx context.Context, userId, coinId string) ([]entity.AlertRule, error)
	// DeleteRule 不存在时返回 0，不报错
	DeleteRule(ctx context.Context, userId, ruleId string) (int64, error)
	DeleteRuleByKey(ctx context.Context, userId, coinId string, alertType consts.AlertType) (int64, error)
	// DeleteAllForCoin 同时清除该币种未确认的提醒
	DeleteAllForCoin(ctx context.Context, userId, coinId string) (model.AlertDeleteRes, error)
	// ActiveCoins 有生效规则的币种（带缓存）
	ActiveCoins(ctx context.Context, userId string) ([]string, error)
	Summary(ctx context.Context, userId string, req model.AlertSummaryReq) (model.AlertSummaryRes, error)
}

type alertService struct {
	ad    dao.AlertDao
	ud    dao.UserDao
	nd    dao.NotificationDao
	cache cache.SummaryCache
	cfg   conf.AlertConfig
	users *keyLock
}

func NewAlertService(ad dao.AlertDao, ud dao.UserDao, nd dao.NotificationDao, sc cache.SummaryCache, cfg conf.AlertConfig) AlertService {
	return &alertService{
		ad:    ad,
		ud:    ud,
		nd:    nd,
		cache: sc,
		cfg:   cfg,
		users: newKeyLock(),
	}
}

func (s *alertService) UpsertRule(ctx context.Context, userId string, req model.AlertRuleReq) (*entity.AlertRule, error) {
	if req.CoinID == "" {
		return nil, invalid("coinId", "required")
	}
	if !req.AlertType.IsRuleType() {
		return nil, invalid("alertType", "unsupported alert type %q", req.AlertType)
	}
	threshold, err := normalizeThreshold(req.AlertType, req.ThresholdValue)
	if err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	unlock := s.users.Lock(userId)
	defer unlock()

	existing, err := s.ad.RuleGetByKey(ctx, userId, req.CoinID, req.AlertType)
	if err != nil && !errors.Is(err, dao.ErrRecordNotFound) {
		return nil, fmt.Errorf("load rule: %w", err)
	}
	if active && (existing == nil || !existing.IsActive) {
		if err := s.checkQuota(ctx, userId); err != nil {
			return nil, err
		}
	}

	rule, err := s.ad.RuleUpsert(ctx, &entity.AlertRule{
		ID:             uuid.GenUUID(),
		UserID:         userId,
		CoinID:         req.CoinID,
		AlertType:      req.AlertType,
		ThresholdValue: threshold,
		IsActive:       active,
	})
	if err != nil {
		if errors.Is(err, dao.ErrDuplicateKey) {
			return nil, ErrDuplicateRule
		}
		return nil, fmt.Errorf("upsert rule: %w", err)
	}
	s.cache.Invalidate(ctx, userId)
	logger.Info("alert rule saved",
		logger.Pair(consts.UserID, userId),
		logger.Pair("coin_id", rule.CoinID),
		logger.Pair("alert_type", rule.AlertType),
		logger.Pair("active", rule.IsActive))
	return rule, nil
}

func (s *alertService) UpdateRule(ctx context.Context, userId string, req model.AlertRuleUpdateReq) (*entity.AlertRule, error) {
	unlock := s.users.Lock(userId)
	defer unlock()

	rule, err := s.ad.RuleGetByID(ctx, userId, req.ID)
	if err != nil {
		if errors.Is(err, dao.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load rule %s: %w", req.ID, err)
	}
	if req.ThresholdValue != nil {
		threshold, err := normalizeThreshold(rule.AlertType, req.ThresholdValue)
		if err != nil {
			return nil, err
		}
		rule.ThresholdValue = threshold
	}
	if req.IsActive != nil {
		if *req.IsActive && !rule.IsActive {
			if err := s.checkQuota(ctx, userId); err != nil {
				return nil, err
			}
		}
		rule.IsActive = *req.IsActive
	}
	if err := s.ad.RuleUpdate(ctx, rule); err != nil {
		if errors.Is(err, dao.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update rule %s: %w", req.ID, err)
	}
	s.cache.Invalidate(ctx, userId)
	return s.ad.RuleGetByID(ctx, userId, req.ID)
}

// checkQuota 调用方需持有用户锁
func (s *alertService) checkQuota(ctx context.Context, userId string) error {
	plan, limit, err := s.planLimit(ctx, userId)
	if err != nil {
		return err
	}
	count, err := s.ad.RuleCountActive(ctx, userId)
	if err != nil {
		return fmt.Errorf("count active rules: %w", err)
	}
	if int(count)+1 > limit {
		return &QuotaExceededError{Current: int(count), Limit: limit, Plan: plan}
	}
	return nil
}

func (s *alertService) planLimit(ctx context.Context, userId string) (string, int, error) {
	return resolvePlan(ctx, s.ud, s.cfg, userId)
}

// normalizeThreshold 事件类忽略阈值；其余类型阈值必填，评分类 0~100，跌幅 (0,100]
func normalizeThreshold(t consts.AlertType, v *float64) (decimal.NullDecimal, error) {
	if t.IsEvent() {
		return decimal.NullDecimal{}, nil
	}
	if v == nil {
		return decimal.NullDecimal{}, invalid("thresholdValue", "required for %s alerts", t.Label())
	}
	d := decimal.NewFromFloat(*v)
	switch t {
	case consts.AlertPriceDrop:
		if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.NullDecimal{}, invalid("thresholdValue", "price drop threshold must be in (0, 100]")
		}
	default:
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.NullDecimal{}, invalid("thresholdValue", "score threshold must be in [0, 100]")
		}
	}
	return decimal.NewNullDecimal(d), nil
}

func (s *alertService) ListRules(ctx context.Context, userId, coinId string) ([]entity.AlertRule, error) {
	rules, err := s.ad.RuleList(ctx, userId, coinId)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

func (s *alertService) DeleteRule(ctx context.Context, userId, ruleId string) (int64, error) {
	n, err := s.ad.RuleDeleteByID(ctx, userId, ruleId)
	if err != nil {
		return 0, fmt.Errorf("delete rule %s: %w", ruleId, err)
	}
	if n > 0 {
		s.cache.Invalidate(ctx, userId)
	}
	return n, nil
}

func (s *alertService) DeleteRuleByKey(ctx context.Context, userId, coinId string, alertType consts.AlertType) (int64, error) {
	n, err := s.ad.RuleDeleteByKey(ctx, userId, coinId, alertType)
	if err != nil {
		return 0, fmt.Errorf("delete rule %s/%s: %w", coinId, alertType, err)
	}
	if n > 0 {
		s.cache.Invalidate(ctx, userId)
	}
	return n, nil
}

func (s *alertService) DeleteAllForCoin(ctx context.Context, userId, coinId string) (model.AlertDeleteRes, error) {
	var res model.AlertDeleteRes
	n, err := s.ad.RuleDeleteByCoin(ctx, userId, coinId)
	if err != nil {
		return res, fmt.Errorf("delete rules for %s: %w", coinId, err)
	}
	res.Deleted = n
	s.cache.Invalidate(ctx, userId)

	purged, err := s.nd.NotificationPurgeCoin(ctx, userId, coinId, true)
	if err != nil {
		return res, fmt.Errorf("purge notifications for %s: %w", coinId, err)
	}
	res.PurgedNotifyCount = purged
	logger.Info("alert rules removed for coin",
		logger.Pair(consts.UserID, userId),
		logger.Pair("coin_id", coinId),
		logger.Pair("deleted", n),
		logger.Pair("purged", purged))
	return res, nil
}

func (s *alertService) ActiveCoins(ctx context.Context, userId string) ([]string, error) {
	if coins, ok := s.cache.Get(ctx, userId); ok {
		return coins, nil
	}
	coins, err := s.ad.UserActiveCoinIDs(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("load active coins: %w", err)
	}
	if coins == nil {
		coins = []string{}
	}
	s.cache.Set(ctx, userId, coins)
	return coins, nil
}

func (s *alertService) Summary(ctx context.Context, userId string, req model.AlertSummaryReq) (model.AlertSummaryRes, error) {
	dataType := req.DataType
	if dataType == "" {
		dataType = "all"
	}
	res := model.AlertSummaryRes{Coins: make(map[string]model.CoinSummary, len(req.CoinIDs))}
	for _, c := range req.CoinIDs {
		res.Coins[c] = model.CoinSummary{}
	}

	if dataType == "alerts" || dataType == "all" {
		rules, err := s.ad.RuleList(ctx, userId, "")
		if err != nil {
			return res, fmt.Errorf("list rules: %w", err)
		}
		counts := make(map[string]int)
		for _, r := range rules {
			if r.IsActive {
				counts[r.CoinID]++
			}
		}
		for c, sum := range res.Coins {
			has := counts[c] > 0
			sum.HasAlerts = &has
			sum.ActiveAlerts = counts[c]
			res.Coins[c] = sum
		}
	}
	if dataType == "portfolio" || dataType == "all" {
		holdings, err := s.ud.UserHoldingCoinIDs(ctx, userId)
		if err != nil {
			return res, fmt.Errorf("load holdings: %w", err)
		}
		held := make(map[string]bool, len(holdings))
		for _, h := range holdings {
			held[h] = true
		}
		for c, sum := range res.Coins {
			in := held[c]
			sum.InPortfolio = &in
			res.Coins[c] = sum
		}
	}
	return res, nil
}
