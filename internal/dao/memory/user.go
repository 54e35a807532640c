package memory

import (
	"context"
	"sort"
	"sync"

	"coco/internal/dao"
)

var _ dao.UserDao = (*UserDao)(nil)

type UserDao struct {
	mu       sync.RWMutex
	plans    map[string]string
	holdings map[string]map[string]struct{}
}

func NewUserDao() *UserDao {
	return &UserDao{
		plans:    make(map[string]string),
		holdings: make(map[string]map[string]struct{}),
	}
}

func (d *UserDao) UserPlanGet(_ context.Context, userId string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.plans[userId], nil
}

func (d *UserDao) UserPlanSave(_ context.Context, userId, plan string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plans[userId] = plan
	return nil
}

// AddHolding 持仓由外部组合服务写入，这里仅供开发和测试
func (d *UserDao) AddHolding(userId string, coinIds ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.holdings[userId]
	if !ok {
		m = make(map[string]struct{})
		d.holdings[userId] = m
	}
	for _, c := range coinIds {
		m[c] = struct{}{}
	}
}

func (d *UserDao) UserHoldingCoinIDs(_ context.Context, userId string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.holdings[userId]))
	for c := range d.holdings[userId] {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}
