package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"coco/conf"
	"coco/internal/consts"
	"coco/internal/dao/memory"
	"coco/internal/model"
	"coco/utils/uuid"
)

// recordingQueue 记录入队任务，err 非空时入队失败
type recordingQueue struct {
	mu    sync.Mutex
	tasks []model.DeliveryTask
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task model.DeliveryTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) Start(context.Context) {}
func (q *recordingQueue) Close() {}

func (q *recordingQueue) snapshot() []model.DeliveryTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.DeliveryTask(nil), q.tasks...)
}

var testDispatchConfig = conf.DispatchConfig{
	BatchMinCoins:      3,
	PortfolioBatchSize: 20,
	MarketCrashCoins:   50,
}

type dispatchFixture struct {
	prefs PreferenceService
	log   NotificationService
	nd    *memory.NotificationDao
	ud    *memory.UserDao
	queue *recordingQueue
	d     *Dispatcher
}

func newDispatchFixture(t *testing.T, cfg conf.DispatchConfig) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		prefs: NewPreferenceService(memory.NewPreferenceDao()),
		nd:    memory.NewNotificationDao(),
		ud:    memory.NewUserDao(),
		queue: &recordingQueue{},
	}
	f.log = NewNotificationService(f.nd, uuid.NewNode(1))
	f.d = NewDispatcher(f.prefs, f.log, f.nd, f.ud, f.queue, cfg, 5*time.Minute)
	return f
}

func (f *dispatchFixture) setPrefs(t *testing.T, userId string, req model.PreferencesUpdateReq) {
	t.Helper()
	if _, err := f.prefs.Update(context.Background(), userId, req); err != nil {
		t.Fatalf("update preferences: %v", err)
	}
}

func firing(userId, coinId string, t consts.AlertType, sev consts.Severity) model.Firing {
	return model.Firing{
		UserID:    userId,
		CoinID:    coinId,
		AlertType: t,
		Verdict:   model.Verdict{Fires: true, Severity: sev, Message: coinId + " " + string(t), Confidence: 1},
	}
}
