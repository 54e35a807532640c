package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"coco/conf"
	"coco/internal/consts"
	"coco/internal/dao/memory"
	"coco/internal/model"
)

var testStakeConfig = conf.StakeConfig{Capacity: 6, EggCost: 2}

func stakeReq(coin string, t consts.AlertType) model.StakeSubmitReq {
	return model.StakeSubmitReq{CoinID: coin, AlertType: t, ProofLink: "https://example.com/" + coin}
}

func fillPool(t *testing.T, s StakeService, coin string, alertType consts.AlertType, users ...string) {
	t.Helper()
	for _, u := range users {
		if _, err := s.SubmitStake(context.Background(), u, stakeReq(coin, alertType)); err != nil {
			t.Fatalf("stake by %s: %v", u, err)
		}
	}
}

func TestStakeFillsPool(t *testing.T) {
	ctx := context.Background()
	s := NewStakeService(memory.NewStakeDao(), testStakeConfig, ManualPolicy{})

	wantStates := []consts.PoolState{consts.PoolFilling, consts.PoolFilling, consts.PoolFilled}
	for i, u := range []string{"u1", "u2", "u3"} {
		st, err := s.SubmitStake(ctx, u, stakeReq("x", consts.AlertMigration))
		if err != nil {
			t.Fatalf("stake %d: %v", i, err)
		}
		if st.Status != consts.StakePending || st.EggCost != 2 || st.Cycle != 1 {
			t.Fatalf("stake %+v", st)
		}
		status, err := s.GetPoolStatus(ctx, "x", consts.AlertMigration)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.State != wantStates[i] || status.TotalEggs != 2*(i+1) {
			t.Fatalf("after %d stakes: state=%s eggs=%d", i+1, status.State, status.TotalEggs)
		}
	}

	status, _ := s.GetPoolStatus(ctx, "x", consts.AlertMigration)
	if !status.PoolFilled || len(status.Alerts) != 3 {
		t.Fatalf("status %+v", status)
	}
	if _, err := s.SubmitStake(ctx, "u4", stakeReq("x", consts.AlertMigration)); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("4th stake err = %v, want ErrPoolClosed", err)
	}
	// 其他池不受影响
	if _, err := s.SubmitStake(ctx, "u4", stakeReq("x", consts.AlertDelisting)); err != nil {
		t.Fatalf("other pool: %v", err)
	}
}

func TestStakeValidation(t *testing.T) {
	s := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)
	tests := []struct {
		name string
		req  model.StakeSubmitReq
	}{
		{"threshold type", stakeReq("x", consts.AlertHealthScore)},
		{"missing coin", stakeReq("", consts.AlertMigration)},
		{"missing proof", model.StakeSubmitReq{CoinID: "x", AlertType: consts.AlertRebrand}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *ValidationError
			if _, err := s.SubmitStake(context.Background(), "u1", tt.req); !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
	var ve *ValidationError
	if _, err := s.GetPoolStatus(context.Background(), "x", consts.AlertPriceDrop); !errors.As(err, &ve) {
		t.Fatalf("status for threshold type: %v", err)
	}
}

func TestStakeOnePendingPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)
	fillPool(t, s, "x", consts.AlertDelisting, "u1")
	if _, err := s.SubmitStake(ctx, "u1", stakeReq("x", consts.AlertDelisting)); !errors.Is(err, ErrDuplicatePendingStake) {
		t.Fatalf("err = %v, want ErrDuplicatePendingStake", err)
	}
}

func TestStakeConcurrentSubmitNeverOverfills(t *testing.T) {
	ctx := context.Background()
	s := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		closed   int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.SubmitStake(ctx, fmt.Sprintf("u%d", i), stakeReq("x", consts.AlertMigration))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrPoolClosed):
				closed++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted != 3 || closed != 17 {
		t.Fatalf("accepted=%d closed=%d", accepted, closed)
	}
	status, _ := s.GetPoolStatus(ctx, "x", consts.AlertMigration)
	if status.TotalEggs > status.Capacity {
		t.Fatalf("pool overfilled: %d/%d", status.TotalEggs, status.Capacity)
	}
}

func TestStakeResolveAndArchive(t *testing.T) {
	ctx := context.Background()
	s := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)

	if _, err := s.Resolve(ctx, "x", consts.AlertMigration, consts.OutcomeVerified); !errors.Is(err, ErrPoolState) {
		t.Fatalf("resolve open pool: %v", err)
	}
	fillPool(t, s, "x", consts.AlertMigration, "u1", "u2", "u3")

	if _, err := s.Archive(ctx, "x", consts.AlertMigration); !errors.Is(err, ErrPoolState) {
		t.Fatalf("archive filled pool: %v", err)
	}
	rewards, err := s.Resolve(ctx, "x", consts.AlertMigration, consts.OutcomeVerified)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(rewards) != 3 {
		t.Fatalf("rewards %+v", rewards)
	}
	for _, r := range rewards {
		if r.Eggs != 4 {
			t.Errorf("reward %+v, want twice the cost", r)
		}
	}
	status, _ := s.GetPoolStatus(ctx, "x", consts.AlertMigration)
	if status.State != consts.PoolResolved || status.Outcome != consts.OutcomeVerified {
		t.Fatalf("status %+v", status)
	}
	for _, st := range status.Alerts {
		if st.Status != consts.StakeVerified {
			t.Fatalf("stake %+v not verified", st)
		}
	}
	if _, err := s.SubmitStake(ctx, "u9", stakeReq("x", consts.AlertMigration)); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("stake into resolved pool: %v", err)
	}

	pool, err := s.Archive(ctx, "x", consts.AlertMigration)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if pool.Cycle != 2 || pool.State != consts.PoolOpen || pool.ArchivedReason != "verified and closed" || pool.Outcome != "" {
		t.Fatalf("archived pool %+v", pool)
	}
	if events, _ := s.VerifiedEvents(ctx, []string{"x"}); len(events) != 0 {
		t.Fatalf("archived pool still reported as verified: %+v", events)
	}

	// 新周期从零开始，之前的质押者可以再次提交
	status, _ = s.GetPoolStatus(ctx, "x", consts.AlertMigration)
	if status.Cycle != 2 || status.TotalEggs != 0 || len(status.Alerts) != 0 || status.Outcome != "" {
		t.Fatalf("new cycle status %+v", status)
	}
	st, err := s.SubmitStake(ctx, "u1", stakeReq("x", consts.AlertMigration))
	if err != nil || st.Cycle != 2 {
		t.Fatalf("stake in new cycle: %+v %v", st, err)
	}
}

func TestStakeResolveRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStakeService(memory.NewStakeDao(), testStakeConfig, nil)
	fillPool(t, s, "x", consts.AlertRebrand, "u1", "u2", "u3")

	if _, err := s.Resolve(ctx, "x", consts.AlertRebrand, "maybe"); err == nil {
		t.Fatalf("unknown outcome accepted")
	}
	rewards, err := s.Resolve(ctx, "x", consts.AlertRebrand, consts.OutcomeRejected)
	if err != nil || len(rewards) != 0 {
		t.Fatalf("rewards=%v err=%v", rewards, err)
	}
	events, _ := s.VerifiedEvents(ctx, []string{"x"})
	if len(events) != 0 {
		t.Fatalf("rejected pool produced events %v", events)
	}
}

func TestStakeAutoResolve(t *testing.T) {
	ctx := context.Background()

	manual := NewStakeService(memory.NewStakeDao(), testStakeConfig, NewResolutionPolicy(conf.StakeConfig{Policy: "manual"}))
	fillPool(t, manual, "x", consts.AlertMigration, "u1", "u2", "u3")
	if n, err := manual.AutoResolve(ctx); err != nil || n != 0 {
		t.Fatalf("manual policy resolved %d pools, err=%v", n, err)
	}

	quorum := NewStakeService(memory.NewStakeDao(), testStakeConfig, NewResolutionPolicy(conf.StakeConfig{Policy: "quorum", Quorum: 3}))
	fillPool(t, quorum, "x", consts.AlertMigration, "u1", "u2", "u3")
	fillPool(t, quorum, "y", consts.AlertDelisting, "u1")
	n, err := quorum.AutoResolve(ctx)
	if err != nil || n != 1 {
		t.Fatalf("quorum policy resolved %d pools, err=%v", n, err)
	}

	events, err := quorum.VerifiedEvents(ctx, []string{"x", "y"})
	if err != nil {
		t.Fatalf("verified events: %v", err)
	}
	sig, ok := events["x"][consts.AlertMigration]
	if !ok || sig.Source != model.SignalSourceStakePool || sig.Confidence != stakeSignalConfidence {
		t.Fatalf("events %v", events)
	}
	if _, ok := events["y"]; ok {
		t.Fatalf("unfilled pool produced an event")
	}
}
