package service

import (
	"context"
	"errors"
	"testing"

	"coco/conf"
	"coco/internal/cache"
	"coco/internal/consts"
	"coco/internal/dao/memory"
	"coco/internal/model"
	"coco/internal/model/entity"
)

var testAlertConfig = conf.AlertConfig{
	DefaultPlan: consts.PlanFree,
	PlanLimits:  map[string]int{consts.PlanFree: 2, consts.PlanPro: 4},
}

type alertFixture struct {
	s   AlertService
	ud  *memory.UserDao
	nd  *memory.NotificationDao
	log NotificationService
}

func newAlertFixture() *alertFixture {
	ud := memory.NewUserDao()
	nd := memory.NewNotificationDao()
	return &alertFixture{
		s:   NewAlertService(memory.NewAlertDao(), ud, nd, cache.NewLRUSummaryCache(16), testAlertConfig),
		ud:  ud,
		nd:  nd,
		log: NewNotificationService(nd, nil),
	}
}

func fptr(v float64) *float64 { return &v }

func TestNormalizeThreshold(t *testing.T) {
	tests := []struct {
		name    string
		t       consts.AlertType
		v       *float64
		wantErr bool
		null    bool
	}{
		{"event ignores value", consts.AlertMigration, fptr(12), false, true},
		{"event without value", consts.AlertDelisting, nil, false, true},
		{"score missing", consts.AlertHealthScore, nil, true, false},
		{"score zero", consts.AlertHealthScore, fptr(0), false, false},
		{"score max", consts.AlertConsistencyScore, fptr(100), false, false},
		{"score negative", consts.AlertHealthScore, fptr(-1), true, false},
		{"score over", consts.AlertHealthScore, fptr(101), true, false},
		{"drop zero", consts.AlertPriceDrop, fptr(0), true, false},
		{"drop ok", consts.AlertPriceDrop, fptr(12.5), false, false},
		{"drop over", consts.AlertPriceDrop, fptr(150), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeThreshold(tt.t, tt.v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Valid == tt.null {
				t.Fatalf("valid = %v", got.Valid)
			}
		})
	}
}

func TestUpsertRuleSingleRulePerKey(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture()

	first, err := f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "btc", AlertType: consts.AlertHealthScore, ThresholdValue: fptr(40)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "btc", AlertType: consts.AlertHealthScore, ThresholdValue: fptr(25)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a new rule %s != %s", second.ID, first.ID)
	}
	rules, _ := f.s.ListRules(ctx, "u1", "btc")
	if len(rules) != 1 || rules[0].ThresholdValue.Decimal.IntPart() != 25 {
		t.Fatalf("rules %+v", rules)
	}

	var ve *ValidationError
	if _, err := f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "btc", AlertType: consts.AlertRebrand}); !errors.As(err, &ve) {
		t.Fatalf("rebrand rule err = %v", err)
	}
}

func TestUpsertRuleQuota(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture()
	create := func(coin string, active *bool) (*entity.AlertRule, error) {
		return f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: coin, AlertType: consts.AlertDelisting, IsActive: active})
	}

	for _, c := range []string{"a", "b"} {
		if _, err := create(c, nil); err != nil {
			t.Fatalf("create %s: %v", c, err)
		}
	}
	_, err := create("c", nil)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) || qe.Limit != 2 || qe.Current != 2 || qe.Plan != consts.PlanFree {
		t.Fatalf("err = %v, want quota exceeded", err)
	}

	// 未生效的规则不占配额，更新已生效的规则也不占
	if _, err := create("c", bptr(false)); err != nil {
		t.Fatalf("inactive rule: %v", err)
	}
	if _, err := create("a", nil); err != nil {
		t.Fatalf("re-save active rule: %v", err)
	}
	rules, _ := f.s.ListRules(ctx, "u1", "c")
	if _, err := f.s.UpdateRule(ctx, "u1", model.AlertRuleUpdateReq{ID: rules[0].ID, IsActive: bptr(true)}); !errors.As(err, &qe) {
		t.Fatalf("activate over quota: %v", err)
	}

	// 升级后可以继续创建
	users := NewUserService(f.ud, memory.NewAlertDao(), testAlertConfig)
	if err := users.UserPlanSet(ctx, "u1", consts.PlanPro); err != nil {
		t.Fatalf("set plan: %v", err)
	}
	if _, err := create("c", nil); err != nil {
		t.Fatalf("create after upgrade: %v", err)
	}
}

func TestUpdateRule(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture()
	r, err := f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "eth", AlertType: consts.AlertPriceDrop, ThresholdValue: fptr(10)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.s.UpdateRule(ctx, "u1", model.AlertRuleUpdateReq{ID: r.ID, ThresholdValue: fptr(20), IsActive: bptr(false)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsActive || updated.ThresholdValue.Decimal.IntPart() != 20 {
		t.Fatalf("updated %+v", updated)
	}
	if _, err := f.s.UpdateRule(ctx, "u1", model.AlertRuleUpdateReq{ID: r.ID, ThresholdValue: fptr(0)}); err == nil {
		t.Fatalf("zero price drop accepted")
	}
	if _, err := f.s.UpdateRule(ctx, "u2", model.AlertRuleUpdateReq{ID: r.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's rule: %v", err)
	}
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture()
	r, _ := f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "btc", AlertType: consts.AlertMigration})

	if n, err := f.s.DeleteRule(ctx, "u1", "missing"); err != nil || n != 0 {
		t.Fatalf("delete missing: n=%d err=%v", n, err)
	}
	if n, err := f.s.DeleteRule(ctx, "u1", r.ID); err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "btc", AlertType: consts.AlertMigration})
	if n, _ := f.s.DeleteRuleByKey(ctx, "u1", "btc", consts.AlertMigration); n != 1 {
		t.Fatalf("delete by key removed %d", n)
	}
}

func TestDeleteAllForCoinPurgesPending(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture()
	f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "y", AlertType: consts.AlertMigration})
	f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "y", AlertType: consts.AlertHealthScore, ThresholdValue: fptr(30)})
	f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "z", AlertType: consts.AlertMigration})
	if coins, _ := f.s.ActiveCoins(ctx, "u1"); len(coins) != 2 {
		t.Fatalf("active coins %v", coins)
	}

	for i, c := range []string{"y", "y", "z"} {
		e := &entity.NotificationLog{
			ID: int64(i + 1), UserID: "u1", CoinID: c, AlertType: consts.AlertMigration,
			FiringWindow: int64(i), SentAt: sweep0,
		}
		if _, err := f.log.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	res, err := f.s.DeleteAllForCoin(ctx, "u1", "y")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if res.Deleted != 2 || res.PurgedNotifyCount != 2 {
		t.Fatalf("result %+v", res)
	}
	if rules, _ := f.s.ListRules(ctx, "u1", "y"); len(rules) != 0 {
		t.Fatalf("rules left %+v", rules)
	}
	pending, _ := f.log.ListPending(ctx, "u1", nil, 0)
	if len(pending) != 1 || pending[0].CoinID != "z" {
		t.Fatalf("pending %+v", pending)
	}
	// 缓存随删除失效
	if coins, _ := f.s.ActiveCoins(ctx, "u1"); len(coins) != 1 || coins[0] != "z" {
		t.Fatalf("active coins after delete %v", coins)
	}
}

func TestAlertSummary(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture()
	f.ud.AddHolding("u1", "btc")
	f.s.UpsertRule(ctx, "u1", model.AlertRuleReq{CoinID: "eth", AlertType: consts.AlertMigration})

	res, err := f.s.Summary(ctx, "u1", model.AlertSummaryReq{CoinIDs: []string{"btc", "eth", "sol"}})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	tests := []struct {
		coin      string
		hasAlerts bool
		held      bool
	}{
		{"btc", false, true},
		{"eth", true, false},
		{"sol", false, false},
	}
	for _, tt := range tests {
		sum := res.Coins[tt.coin]
		if sum.HasAlerts == nil || *sum.HasAlerts != tt.hasAlerts || sum.InPortfolio == nil || *sum.InPortfolio != tt.held {
			t.Errorf("%s: %+v", tt.coin, sum)
		}
	}

	res, _ = f.s.Summary(ctx, "u1", model.AlertSummaryReq{CoinIDs: []string{"btc"}, DataType: "alerts"})
	if res.Coins["btc"].InPortfolio != nil {
		t.Errorf("portfolio checked for alerts-only summary")
	}
}

func TestUserPlan(t *testing.T) {
	ctx := context.Background()
	ud := memory.NewUserDao()
	ad := memory.NewAlertDao()
	s := NewUserService(ud, ad, testAlertConfig)

	res, err := s.UserPlanGet(ctx, "u1")
	if err != nil || res.Plan != consts.PlanFree || res.Limit != 2 {
		t.Fatalf("default plan %+v err=%v", res, err)
	}
	var ve *ValidationError
	if err := s.UserPlanSet(ctx, "u1", "enterprise"); !errors.As(err, &ve) {
		t.Fatalf("unknown plan err = %v", err)
	}
	if err := s.UserPlanSet(ctx, "u1", consts.PlanPro); err != nil {
		t.Fatalf("set plan: %v", err)
	}
	res, _ = s.UserPlanGet(ctx, "u1")
	if res.Plan != consts.PlanPro || res.Limit != 4 {
		t.Fatalf("pro plan %+v", res)
	}

	// 未知的存量套餐按 free 计算
	ud.UserPlanSave(ctx, "u2", "legacy")
	res, _ = s.UserPlanGet(ctx, "u2")
	if res.Plan != consts.PlanFree || res.Limit != 2 {
		t.Fatalf("legacy plan %+v", res)
	}
}
