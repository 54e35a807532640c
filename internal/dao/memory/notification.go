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

var _ dao.NotificationDao = (*NotificationDao)(nil)

type notifyKey struct {
	userId, coinId string
	alertType      consts.AlertType
	window         int64
}

type storedEntry struct {
	entity.NotificationLog
	purged bool
}

type NotificationDao struct {
	mu      sync.RWMutex
	entries []*storedEntry
	keys    map[notifyKey]struct{}
}

func NewNotificationDao() *NotificationDao {
	return &NotificationDao{keys: make(map[notifyKey]struct{})}
}

func (d *NotificationDao) NotificationAppend(_ context.Context, entry *entity.NotificationLog) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := notifyKey{entry.UserID, entry.CoinID, entry.AlertType, entry.FiringWindow}
	if _, ok := d.keys[k]; ok {
		return false, nil
	}
	d.keys[k] = struct{}{}
	d.entries = append(d.entries, &storedEntry{NotificationLog: *entry})
	return true, nil
}

func (d *NotificationDao) NotificationLatest(_ context.Context, userId, coinId string, alertType consts.AlertType) (*entity.NotificationLog, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var latest *entity.NotificationLog
	for _, e := range d.entries {
		if e.UserID == userId && e.CoinID == coinId && e.AlertType == alertType {
			if latest == nil || e.SentAt.After(latest.SentAt) {
				c := e.NotificationLog
				latest = &c
			}
		}
	}
	return latest, nil
}

func (d *NotificationDao) NotificationSummariesSince(_ context.Context, userId string, since time.Time) ([]entity.NotificationLog, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.NotificationLog
	for _, e := range d.entries {
		if e.UserID == userId && e.AlertType.IsSummary() && e.SentAt.After(since) {
			out = append(out, e.NotificationLog)
		}
	}
	return out, nil
}

func (d *NotificationDao) NotificationCountSince(_ context.Context, userId string, since time.Time) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var n int64
	for _, e := range d.entries {
		if e.UserID == userId && !e.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (d *NotificationDao) NotificationListPending(_ context.Context, userId string, since *time.Time, limit int) ([]entity.NotificationLog, error) {
	return d.list(func(e *storedEntry) bool {
		if e.UserID != userId || e.AcknowledgedAt != nil {
			return false
		}
		return since == nil || e.SentAt.After(*since)
	}, limit, 0), nil
}

func (d *NotificationDao) NotificationHistory(_ context.Context, userId string, limit, offset int) ([]entity.NotificationLog, error) {
	return d.list(func(e *storedEntry) bool { return e.UserID == userId }, limit, offset), nil
}

func (d *NotificationDao) list(match func(*storedEntry) bool, limit, offset int) []entity.NotificationLog {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.NotificationLog
	for _, e := range d.entries {
		if !e.purged && match(e) {
			out = append(out, e.NotificationLog)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (d *NotificationDao) NotificationGet(_ context.Context, userId string, id int64) (*entity.NotificationLog, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.entries {
		if e.ID == id && e.UserID == userId && !e.purged {
			c := e.NotificationLog
			return &c, nil
		}
	}
	return nil, dao.ErrRecordNotFound
}

func (d *NotificationDao) NotificationAcknowledge(_ context.Context, userId string, id int64, at time.Time) (int64, error) {
	return d.ack(func(e *storedEntry) bool { return e.ID == id && e.UserID == userId }, at), nil
}

func (d *NotificationDao) NotificationAcknowledgeCoin(_ context.Context, userId, coinId string, at time.Time) (int64, error) {
	return d.ack(func(e *storedEntry) bool { return e.UserID == userId && e.CoinID == coinId }, at), nil
}

func (d *NotificationDao) ack(match func(*storedEntry) bool, at time.Time) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, e := range d.entries {
		if !e.purged && e.AcknowledgedAt == nil && match(e) {
			t := at
			e.AcknowledgedAt = &t
			n++
		}
	}
	return n
}

func (d *NotificationDao) NotificationPurgeCoin(_ context.Context, userId, coinId string, unackedOnly bool) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, e := range d.entries {
		if e.purged || e.UserID != userId || e.CoinID != coinId {
			continue
		}
		if unackedOnly && e.AcknowledgedAt != nil {
			continue
		}
		e.purged = true
		n++
	}
	return n, nil
}

func (d *NotificationDao) NotificationMarkDelivery(_ context.Context, id int64, status consts.DeliveryStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e.ID == id && e.DeliveryStatus == consts.DeliveryQueued {
			e.DeliveryStatus = status
		}
	}
	return nil
}
