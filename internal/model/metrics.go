package model

import (
	"time"

	"coco/internal/consts"

	"github.com/shopspring/decimal"
)

// EventSignal 事件类提醒的外部信号
type EventSignal struct {
	Source     string  `json:"source"` // news | stake_pool
	Confidence float64 `json:"confidence"`
}

const (
	SignalSourceNews      = "news"
	SignalSourceStakePool = "stake_pool"
)

// CoinMetrics 单个币种的评估输入。指标为 nil 表示数据源没有提供，对应的规则不触发
type CoinMetrics struct {
	CoinID           string
	Price            *decimal.Decimal
	HealthScore      *decimal.Decimal
	ConsistencyScore *decimal.Decimal
	PriceChange24h   *decimal.Decimal // 百分比，-12.5 表示下跌 12.5%
	Events           map[consts.AlertType]EventSignal
	AsOf             time.Time
}

// Event 事件是否有信号
func (m CoinMetrics) Event(t consts.AlertType) (EventSignal, bool) {
	if m.Events == nil {
		return EventSignal{}, false
	}
	s, ok := m.Events[t]
	return s, ok
}

// WithEvent 返回追加事件信号后的副本，已有的信号保留置信度更高的一个
func (m CoinMetrics) WithEvent(t consts.AlertType, s EventSignal) CoinMetrics {
	events := make(map[consts.AlertType]EventSignal, len(m.Events)+1)
	for k, v := range m.Events {
		events[k] = v
	}
	if old, ok := events[t]; !ok || s.Confidence > old.Confidence {
		events[t] = s
	}
	m.Events = events
	return m
}

// Verdict 规则评估结果
type Verdict struct {
	Fires      bool
	Message    string // 简短描述
	Detail     string // 详细模式追加的说明
	Severity   consts.Severity
	Confidence float64
}

// Text 按用户偏好的详细程度输出文案
func (v Verdict) Text(verbosity consts.Verbosity) string {
	if verbosity == consts.VerbosityConcise || v.Detail == "" {
		return v.Message
	}
	return v.Message + " " + v.Detail
}

// Firing 一次触发：规则加上评估结果
type Firing struct {
	UserID    string
	CoinID    string
	AlertType consts.AlertType
	Verdict   Verdict
	Metrics   CoinMetrics
}
