package client

import (
	"sort"
	"sync"

	"coco/internal/model"
)

// AlertDelta 本地先行修改：某币种生效规则数的变化
type AlertDelta struct {
	CoinID string
	Change int
}

// AlertState 客户端缓存的提醒状态。本地修改先生效，服务端结果到达后以服务端为准
type AlertState struct {
	mu      sync.RWMutex
	counts  map[string]int
	pending map[string]model.NotificationRes
}

func NewAlertState() *AlertState {
	return &AlertState{
		counts:  make(map[string]int),
		pending: make(map[string]model.NotificationRes),
	}
}

func (s *AlertState) ApplyOptimistic(delta AlertDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.counts[delta.CoinID] + delta.Change
	if n <= 0 {
		delete(s.counts, delta.CoinID)
		return
	}
	s.counts[delta.CoinID] = n
}

// Reconcile 用服务端的计数整体替换本地状态
func (s *AlertState) Reconcile(server map[string]int) {
	counts := make(map[string]int, len(server))
	for c, n := range server {
		if n > 0 {
			counts[c] = n
		}
	}
	s.mu.Lock()
	s.counts = counts
	s.mu.Unlock()
}

func (s *AlertState) HasAlerts(coinId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[coinId] > 0
}

// ReplacePending 返回本次新出现的提醒
func (s *AlertState) ReplacePending(list []model.NotificationRes) []model.NotificationRes {
	next := make(map[string]model.NotificationRes, len(list))
	var fresh []model.NotificationRes
	s.mu.Lock()
	for _, n := range list {
		if _, ok := s.pending[n.ID]; !ok {
			fresh = append(fresh, n)
		}
		next[n.ID] = n
	}
	s.pending = next
	s.mu.Unlock()
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].SentAt.Before(fresh[j].SentAt) })
	return fresh
}

func (s *AlertState) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}
