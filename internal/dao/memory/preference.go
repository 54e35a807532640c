package memory

import (
	"context"
	"sync"
	"time"

	"coco/internal/dao"
	"coco/internal/model/entity"
)

var _ dao.PreferenceDao = (*PreferenceDao)(nil)

type PreferenceDao struct {
	mu    sync.RWMutex
	prefs map[string]entity.NotificationPreferences
}

func NewPreferenceDao() *PreferenceDao {
	return &PreferenceDao{prefs: make(map[string]entity.NotificationPreferences)}
}

func (d *PreferenceDao) PreferenceGet(_ context.Context, userId string) (*entity.NotificationPreferences, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.prefs[userId]
	if !ok {
		return nil, dao.ErrRecordNotFound
	}
	return &p, nil
}

func (d *PreferenceDao) PreferenceCreate(_ context.Context, prefs *entity.NotificationPreferences) (*entity.NotificationPreferences, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.prefs[prefs.UserID]; ok {
		return &p, nil
	}
	now := time.Now()
	p := *prefs
	p.CreatedAt, p.UpdatedAt = now, now
	d.prefs[p.UserID] = p
	return &p, nil
}

func (d *PreferenceDao) PreferenceSave(_ context.Context, prefs *entity.NotificationPreferences) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := *prefs
	p.UpdatedAt = time.Now()
	d.prefs[p.UserID] = p
	return nil
}
