package client

import (
	"testing"
	"time"

	"coco/internal/model"
)

func TestAlertStateOptimisticThenReconcile(t *testing.T) {
	s := NewAlertState()
	s.ApplyOptimistic(AlertDelta{CoinID: "btc", Change: 1})
	s.ApplyOptimistic(AlertDelta{CoinID: "eth", Change: 2})
	s.ApplyOptimistic(AlertDelta{CoinID: "eth", Change: -2})

	if !s.HasAlerts("btc") || s.HasAlerts("eth") {
		t.Fatalf("optimistic state wrong")
	}

	// 服务端为准
	s.Reconcile(map[string]int{"eth": 1, "sol": 0})
	tests := []struct {
		coin string
		want bool
	}{
		{"btc", false},
		{"eth", true},
		{"sol", false},
	}
	for _, tt := range tests {
		if got := s.HasAlerts(tt.coin); got != tt.want {
			t.Errorf("HasAlerts(%s) = %v, want %v", tt.coin, got, tt.want)
		}
	}
}

func TestAlertStateReplacePending(t *testing.T) {
	s := NewAlertState()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	fresh := s.ReplacePending([]model.NotificationRes{
		{ID: "2", SentAt: t0.Add(time.Minute)},
		{ID: "1", SentAt: t0},
	})
	if len(fresh) != 2 || fresh[0].ID != "1" {
		t.Fatalf("fresh %+v, want oldest first", fresh)
	}

	fresh = s.ReplacePending([]model.NotificationRes{{ID: "2"}, {ID: "3", SentAt: t0.Add(2 * time.Minute)}})
	if len(fresh) != 1 || fresh[0].ID != "3" {
		t.Fatalf("fresh %+v", fresh)
	}
	if s.PendingCount() != 2 {
		t.Fatalf("pending count %d", s.PendingCount())
	}
}
