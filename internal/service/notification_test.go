package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coco/internal/consts"
	"coco/internal/dao/memory"
	"coco/internal/model/entity"
	"coco/utils/uuid"
)

func newTestNotificationService(now time.Time) (*notificationService, *memory.NotificationDao) {
	nd := memory.NewNotificationDao()
	s := NewNotificationService(nd, uuid.NewNode(2)).(*notificationService)
	s.now = func() time.Time { return now }
	return s, nd
}

func appendEntry(t *testing.T, s NotificationService, userId, coinId string, at time.Time) *entity.NotificationLog {
	t.Helper()
	e := &entity.NotificationLog{
		UserID:       userId,
		CoinID:       coinId,
		AlertType:    consts.AlertHealthScore,
		FiringWindow: at.Unix(),
		Message:      coinId,
		Severity:     consts.SeverityImportant,
		SentAt:       at,
	}
	ok, err := s.Append(context.Background(), e)
	if err != nil || !ok {
		t.Fatalf("append: ok=%v err=%v", ok, err)
	}
	return e
}

func TestNotificationAppendDefaults(t *testing.T) {
	now := sweep0
	s, _ := newTestNotificationService(now)
	e := &entity.NotificationLog{UserID: "u1", CoinID: "c1", AlertType: consts.AlertDelisting, FiringWindow: 1}
	ok, err := s.Append(context.Background(), e)
	if err != nil || !ok {
		t.Fatalf("append: ok=%v err=%v", ok, err)
	}
	if e.ID == 0 || !e.SentAt.Equal(now) || e.DeliveryStatus != consts.DeliveryQueued {
		t.Fatalf("defaults not filled: %+v", e)
	}
	dup := &entity.NotificationLog{UserID: "u1", CoinID: "c1", AlertType: consts.AlertDelisting, FiringWindow: 1}
	if ok, _ := s.Append(context.Background(), dup); ok {
		t.Fatalf("duplicate window inserted")
	}
}

func TestNotificationAcknowledge(t *testing.T) {
	ctx := context.Background()
	ackAt := sweep0.Add(time.Hour)
	s, _ := newTestNotificationService(ackAt)
	e1 := appendEntry(t, s, "u1", "c1", sweep0)
	appendEntry(t, s, "u1", "c2", sweep0.Add(time.Minute))

	n, err := s.Acknowledge(ctx, "u1", e1.ID)
	if err != nil || n != 1 {
		t.Fatalf("ack: n=%d err=%v", n, err)
	}
	// 重复确认不改变确认时间
	s.now = func() time.Time { return ackAt.Add(time.Hour) }
	n, err = s.Acknowledge(ctx, "u1", e1.ID)
	if err != nil || n != 0 {
		t.Fatalf("re-ack: n=%d err=%v", n, err)
	}
	history, _ := s.History(ctx, "u1", 10, 0)
	for _, e := range history {
		if e.ID == e1.ID && (e.AcknowledgedAt == nil || !e.AcknowledgedAt.Equal(ackAt)) {
			t.Fatalf("acknowledged_at changed: %v", e.AcknowledgedAt)
		}
	}

	if _, err := s.Acknowledge(ctx, "u2", e1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's entry: err=%v", err)
	}
	if _, err := s.Acknowledge(ctx, "u1", 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing entry: err=%v", err)
	}

	pending, _ := s.ListPending(ctx, "u1", nil, 0)
	if len(pending) != 1 || pending[0].CoinID != "c2" {
		t.Fatalf("pending %+v", pending)
	}
}

func TestNotificationListPending(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestNotificationService(sweep0)
	for i := 0; i < 5; i++ {
		appendEntry(t, s, "u1", "c"+string(rune('1'+i)), sweep0.Add(time.Duration(i)*time.Minute))
	}
	appendEntry(t, s, "u2", "c1", sweep0)

	all, _ := s.ListPending(ctx, "u1", nil, 0)
	if len(all) != 5 || all[0].CoinID != "c5" {
		t.Fatalf("want newest first, got %+v", all)
	}
	since := sweep0.Add(2 * time.Minute)
	recent, _ := s.ListPending(ctx, "u1", &since, 0)
	if len(recent) != 2 {
		t.Fatalf("since filter returned %d", len(recent))
	}
	limited, _ := s.ListPending(ctx, "u1", nil, 2)
	if len(limited) != 2 {
		t.Fatalf("limit returned %d", len(limited))
	}
	// 读取不改变状态
	again, _ := s.ListPending(ctx, "u1", nil, 0)
	if len(again) != 5 {
		t.Fatalf("listing changed state: %d", len(again))
	}
}

func TestNotificationPurgeForCoin(t *testing.T) {
	ctx := context.Background()
	s, nd := newTestNotificationService(sweep0)
	acked := appendEntry(t, s, "u1", "c1", sweep0)
	appendEntry(t, s, "u1", "c1", sweep0.Add(time.Minute))
	appendEntry(t, s, "u1", "c2", sweep0)
	if _, err := s.Acknowledge(ctx, "u1", acked.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}

	n, err := s.PurgeForCoin(ctx, "u1", "c1")
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	pending, _ := s.ListPending(ctx, "u1", nil, 0)
	if len(pending) != 1 || pending[0].CoinID != "c2" {
		t.Fatalf("pending after purge %+v", pending)
	}
	// 已确认的保留在历史中
	history, _ := s.History(ctx, "u1", 10, 0)
	if len(history) != 2 {
		t.Fatalf("history after purge %+v", history)
	}
	// 清除的记录仍计入限流
	count, _ := nd.NotificationCountSince(ctx, "u1", sweep0)
	if count != 3 {
		t.Fatalf("count since = %d, want purged rows included", count)
	}
}

func TestNotificationMarkDelivery(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestNotificationService(sweep0)
	e := appendEntry(t, s, "u1", "c1", sweep0)

	if err := s.MarkDelivery(ctx, e.ID, consts.DeliveryQueued); err == nil {
		t.Fatalf("queued is not a terminal status")
	}
	if err := s.MarkDelivery(ctx, e.ID, consts.DeliveryDelivered); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	// 终态不再变化
	if err := s.MarkDelivery(ctx, e.ID, consts.DeliveryFailed); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	history, _ := s.History(ctx, "u1", 10, 0)
	if history[0].DeliveryStatus != consts.DeliveryDelivered {
		t.Fatalf("status = %s", history[0].DeliveryStatus)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{{0, 50}, {-3, 50}, {10, 10}, {500, 200}}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
