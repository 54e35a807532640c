package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coco/conf"
	"coco/internal/consts"
	"coco/internal/dao/memory"
	"coco/internal/market"
	"coco/internal/model"
	"coco/internal/model/entity"
)

// failingProvider 指定币种所在批次返回错误
type failingProvider struct {
	inner *market.Static
	bad   string
}

func (p failingProvider) Metrics(ctx context.Context, coinIds []string) (map[string]model.CoinMetrics, error) {
	for _, c := range coinIds {
		if c == p.bad {
			return nil, errors.New("upstream 503")
		}
	}
	return p.inner.Metrics(ctx, coinIds)
}

func saveRule(t *testing.T, ad *memory.AlertDao, r entity.AlertRule) {
	t.Helper()
	if _, err := ad.RuleUpsert(context.Background(), &r); err != nil {
		t.Fatalf("save rule: %v", err)
	}
}

func newTestSweeper(t *testing.T, ad *memory.AlertDao, provider MetricsProvider, stakes StakeService, cfg conf.SweepConfig) (*Sweeper, *dispatchFixture) {
	t.Helper()
	f := newDispatchFixture(t, testDispatchConfig)
	s := NewSweeper(ad, provider, stakes, NewEvaluator(), f.d, cfg)
	s.now = func() time.Time { return sweep0 }
	return s, f
}

func TestSweepRunOnce(t *testing.T) {
	ctx := context.Background()
	ad := memory.NewAlertDao()
	u1Health := thresholdRule("btc", consts.AlertHealthScore, 30)
	u1Migration := eventRule("eth", consts.AlertMigration)
	u2Drop := thresholdRule("btc", consts.AlertPriceDrop, 10)
	u2Drop.UserID = "u2"
	paused := thresholdRule("sol", consts.AlertHealthScore, 90)
	paused.IsActive = false
	for _, r := range []entity.AlertRule{u1Health, u1Migration, u2Drop, paused} {
		saveRule(t, ad, r)
	}

	provider := market.NewStatic()
	provider.Set(model.CoinMetrics{CoinID: "btc", HealthScore: dptr(25), PriceChange24h: dptr(-5)})
	provider.Set(model.CoinMetrics{CoinID: "sol", HealthScore: dptr(10)})

	// eth 的迁移事件来自已确认的质押池
	stakes := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)
	fillPool(t, stakes, "eth", consts.AlertMigration, "s1", "s2", "s3")
	if _, err := stakes.Resolve(ctx, "eth", consts.AlertMigration, consts.OutcomeVerified); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	s, f := newTestSweeper(t, ad, provider, stakes, conf.SweepConfig{BatchSize: 1})
	res, err := s.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if res.Coins != 2 || res.Rules != 3 || res.Firings != 2 || res.Skipped != 0 {
		t.Fatalf("result %+v", res)
	}
	if res.Dispatch.Queued != 2 {
		t.Fatalf("dispatch %+v", res.Dispatch)
	}
	got := make(map[consts.AlertType]model.DeliveryTask)
	for _, task := range f.queue.snapshot() {
		if task.UserID != "u1" || !task.SentAt.Equal(sweep0) {
			t.Fatalf("unexpected task %+v", task)
		}
		got[task.AlertType] = task
	}
	if got[consts.AlertMigration].Severity != consts.SeverityCritical || got[consts.AlertHealthScore].CoinID != "btc" {
		t.Fatalf("tasks %+v", got)
	}
}

// 默认偏好下，刚越过阈值的规则也要通知到用户
func TestSweepSmallBreachNotifiesWithDefaultPreferences(t *testing.T) {
	ad := memory.NewAlertDao()
	saveRule(t, ad, thresholdRule("btc", consts.AlertHealthScore, 30))
	saveRule(t, ad, thresholdRule("eth", consts.AlertPriceDrop, 10))

	provider := market.NewStatic()
	provider.Set(model.CoinMetrics{CoinID: "btc", HealthScore: dptr(28)})
	provider.Set(model.CoinMetrics{CoinID: "eth", PriceChange24h: dptr(-10.5)})
	stakes := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)

	s, f := newTestSweeper(t, ad, provider, stakes, conf.SweepConfig{})
	res, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if res.Firings != 2 || res.Dispatch.Filtered != 0 || res.Dispatch.Queued != 2 {
		t.Fatalf("result %+v, dispatch %+v", res, res.Dispatch)
	}
	for _, task := range f.queue.snapshot() {
		if task.Severity != consts.SeverityImportant {
			t.Errorf("%s severity = %s, want important", task.CoinID, task.Severity)
		}
	}
}

func TestSweepSkipsFailedBatch(t *testing.T) {
	ctx := context.Background()
	ad := memory.NewAlertDao()
	saveRule(t, ad, thresholdRule("aaa", consts.AlertHealthScore, 50))
	saveRule(t, ad, thresholdRule("bad", consts.AlertHealthScore, 50))

	static := market.NewStatic()
	static.Set(model.CoinMetrics{CoinID: "aaa", HealthScore: dptr(10)})
	static.Set(model.CoinMetrics{CoinID: "bad", HealthScore: dptr(10)})
	stakes := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)

	s, _ := newTestSweeper(t, ad, failingProvider{inner: static, bad: "bad"}, stakes, conf.SweepConfig{BatchSize: 1})
	res, err := s.RunOnce(ctx)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if res.Skipped != 1 || res.Firings != 1 || res.Dispatch.Queued != 1 {
		t.Fatalf("result %+v", res)
	}
}

func TestSweepMissingMetricsDoNotFire(t *testing.T) {
	ad := memory.NewAlertDao()
	saveRule(t, ad, thresholdRule("btc", consts.AlertHealthScore, 50))
	saveRule(t, ad, eventRule("btc", consts.AlertDelisting))
	stakes := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)

	s, _ := newTestSweeper(t, ad, market.NewStatic(), stakes, conf.SweepConfig{})
	res, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if res.Rules != 2 || res.Firings != 0 || res.Evaluated != 0 {
		t.Fatalf("result %+v", res)
	}
}

func TestSweepRunStopsOnCancel(t *testing.T) {
	ad := memory.NewAlertDao()
	stakes := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)
	s, _ := newTestSweeper(t, ad, market.NewStatic(), stakes, conf.SweepConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
