package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model/entity"
)

var _ dao.AlertDao = (*AlertDao)(nil)

type ruleKey struct {
	userId, coinId string
	alertType      consts.AlertType
}

// AlertDao 进程内规则存储，开发模式和测试使用
type AlertDao struct {
	mu    sync.RWMutex
	rules map[ruleKey]entity.AlertRule
}

func NewAlertDao() *AlertDao {
	return &AlertDao{rules: make(map[ruleKey]entity.AlertRule)}
}

func keyOf(r *entity.AlertRule) ruleKey {
	return ruleKey{userId: r.UserID, coinId: r.CoinID, alertType: r.AlertType}
}

func (d *AlertDao) RuleUpsert(_ context.Context, rule *entity.AlertRule) (*entity.AlertRule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	k := keyOf(rule)
	if existing, ok := d.rules[k]; ok {
		existing.ThresholdValue = rule.ThresholdValue
		existing.IsActive = rule.IsActive
		existing.UpdatedAt = now
		d.rules[k] = existing
		return &existing, nil
	}
	r := *rule
	r.CreatedAt, r.UpdatedAt = now, now
	d.rules[k] = r
	return &r, nil
}

func (d *AlertDao) RuleGetByID(_ context.Context, userId, id string) (*entity.AlertRule, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.rules {
		if r.ID == id && r.UserID == userId {
			return &r, nil
		}
	}
	return nil, dao.ErrRecordNotFound
}

func (d *AlertDao) RuleGetByKey(_ context.Context, userId, coinId string, alertType consts.AlertType) (*entity.AlertRule, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rules[ruleKey{userId, coinId, alertType}]
	if !ok {
		return nil, dao.ErrRecordNotFound
	}
	return &r, nil
}

func (d *AlertDao) RuleUpdate(_ context.Context, rule *entity.AlertRule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, r := range d.rules {
		if r.ID == rule.ID && r.UserID == rule.UserID {
			r.ThresholdValue = rule.ThresholdValue
			r.IsActive = rule.IsActive
			r.UpdatedAt = time.Now()
			d.rules[k] = r
			return nil
		}
	}
	return dao.ErrRecordNotFound
}

func (d *AlertDao) RuleList(_ context.Context, userId, coinId string) ([]entity.AlertRule, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.AlertRule
	for _, r := range d.rules {
		if r.UserID == userId && (coinId == "" || r.CoinID == coinId) {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

func (d *AlertDao) RuleDeleteByID(_ context.Context, userId, id string) (int64, error) {
	return d.deleteWhere(func(r entity.AlertRule) bool { return r.UserID == userId && r.ID == id }), nil
}

func (d *AlertDao) RuleDeleteByKey(_ context.Context, userId, coinId string, alertType consts.AlertType) (int64, error) {
	return d.deleteWhere(func(r entity.AlertRule) bool {
		return r.UserID == userId && r.CoinID == coinId && r.AlertType == alertType
	}), nil
}

func (d *AlertDao) RuleDeleteByCoin(_ context.Context, userId, coinId string) (int64, error) {
	return d.deleteWhere(func(r entity.AlertRule) bool { return r.UserID == userId && r.CoinID == coinId }), nil
}

func (d *AlertDao) deleteWhere(match func(entity.AlertRule) bool) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for k, r := range d.rules {
		if match(r) {
			delete(d.rules, k)
			n++
		}
	}
	return n
}

func (d *AlertDao) RuleCountActive(_ context.Context, userId string) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var n int64
	for _, r := range d.rules {
		if r.UserID == userId && r.IsActive {
			n++
		}
	}
	return n, nil
}

func (d *AlertDao) ActiveCoinIDs(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.coins(func(r entity.AlertRule) bool { return r.IsActive }), nil
}

func (d *AlertDao) ActiveRulesByCoins(_ context.Context, coinIds []string) ([]entity.AlertRule, error) {
	want := make(map[string]struct{}, len(coinIds))
	for _, c := range coinIds {
		want[c] = struct{}{}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.AlertRule
	for _, r := range d.rules {
		if _, ok := want[r.CoinID]; ok && r.IsActive {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

func (d *AlertDao) UserActiveCoinIDs(_ context.Context, userId string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.coins(func(r entity.AlertRule) bool { return r.IsActive && r.UserID == userId }), nil
}

func (d *AlertDao) coins(match func(entity.AlertRule) bool) []string {
	set := make(map[string]struct{})
	for _, r := range d.rules {
		if match(r) {
			set[r.CoinID] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func sortRules(rules []entity.AlertRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].UserID != rules[j].UserID {
			return rules[i].UserID < rules[j].UserID
		}
		if rules[i].CoinID != rules[j].CoinID {
			return rules[i].CoinID < rules[j].CoinID
		}
		return rules[i].AlertType < rules[j].AlertType
	})
}
