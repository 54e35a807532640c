package memory

import (
	"context"
	"sync"
	"time"

	"coco/internal/dao"
	"coco/internal/model/entity"
)

var _ dao.DeviceDao = (*DeviceDao)(nil)

type DeviceDao struct {
	mu     sync.RWMutex
	tokens map[string]map[string]entity.DeviceToken // userId -> token -> row
}

func NewDeviceDao() *DeviceDao {
	return &DeviceDao{tokens: make(map[string]map[string]entity.DeviceToken)}
}

func (d *DeviceDao) DeviceTokenSave(_ context.Context, deviceToken *entity.DeviceToken) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.tokens[deviceToken.UserId]
	if !ok {
		m = make(map[string]entity.DeviceToken)
		d.tokens[deviceToken.UserId] = m
	}
	row := *deviceToken
	row.UpdatedAt = time.Now()
	if old, ok := m[row.DeviceToken]; ok {
		row.Id, row.CreatedAt = old.Id, old.CreatedAt
	}
	m[row.DeviceToken] = row
	return nil
}

func (d *DeviceDao) DeviceTokenListByUserId(_ context.Context, userId string) ([]entity.DeviceToken, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.DeviceToken
	for _, t := range d.tokens[userId] {
		out = append(out, t)
	}
	return out, nil
}

func (d *DeviceDao) DeviceTokenDelete(_ context.Context, userId, deviceToken string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tokens[userId], deviceToken)
	return nil
}
