package market

import (
	"context"
	"sync"

	"coco/internal/model"
)

// Static 内存中的指标，开发模式和测试使用
type Static struct {
	mu      sync.RWMutex
	metrics map[string]model.CoinMetrics
}

func NewStatic() *Static {
	return &Static{metrics: make(map[string]model.CoinMetrics)}
}

func (s *Static) Set(m model.CoinMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[m.CoinID] = m
}

func (s *Static) Metrics(_ context.Context, coinIds []string) (map[string]model.CoinMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.CoinMetrics, len(coinIds))
	for _, c := range coinIds {
		if m, ok := s.metrics[c]; ok {
			out[c] = m
		}
	}
	return out, nil
}
