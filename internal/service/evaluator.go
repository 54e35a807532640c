package service

import (
	"fmt"

	"coco/internal/consts"
	"coco/internal/model"
	"coco/internal/model/entity"

	"github.com/shopspring/decimal"
)

// Evaluator 判断单条规则在当前指标下是否触发。无副作用，同样的输入得到同样的结果。
// 阈值类触发一律为 important，事件类为 critical
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

func (e *Evaluator) Evaluate(rule entity.AlertRule, m model.CoinMetrics) model.Verdict {
	if !rule.IsActive {
		return model.Verdict{}
	}
	if rule.AlertType.IsEvent() {
		return e.evaluateEvent(rule, m)
	}
	if !rule.ThresholdValue.Valid {
		return model.Verdict{}
	}
	threshold := rule.ThresholdValue.Decimal

	switch rule.AlertType {
	case consts.AlertHealthScore:
		if m.HealthScore == nil || !m.HealthScore.LessThan(threshold) {
			return model.Verdict{}
		}
		return model.Verdict{
			Fires:      true,
			Severity:   consts.SeverityImportant,
			Confidence: 1,
			Message:    fmt.Sprintf("%s health score %s is below your threshold of %s.", rule.CoinID, num(*m.HealthScore), num(threshold)),
			Detail:     "A falling health score usually reflects weaker liquidity, development or community activity.",
		}
	case consts.AlertConsistencyScore:
		if m.ConsistencyScore == nil || !m.ConsistencyScore.LessThan(threshold) {
			return model.Verdict{}
		}
		return model.Verdict{
			Fires:      true,
			Severity:   consts.SeverityImportant,
			Confidence: 1,
			Message:    fmt.Sprintf("%s consistency score %s is below your threshold of %s.", rule.CoinID, num(*m.ConsistencyScore), num(threshold)),
			Detail:     "Consistency tracks how steadily the project delivers over time.",
		}
	case consts.AlertPriceDrop:
		if m.PriceChange24h == nil || !m.PriceChange24h.LessThanOrEqual(threshold.Neg()) {
			return model.Verdict{}
		}
		drop := m.PriceChange24h.Neg()
		return model.Verdict{
			Fires:      true,
			Severity:   consts.SeverityImportant,
			Confidence: 1,
			Message:    fmt.Sprintf("%s dropped %s%% in 24h (your threshold is %s%%).", rule.CoinID, num(drop), num(threshold)),
			Detail:     priceDetail(m),
		}
	}
	return model.Verdict{}
}

func (e *Evaluator) evaluateEvent(rule entity.AlertRule, m model.CoinMetrics) model.Verdict {
	sig, ok := m.Event(rule.AlertType)
	if !ok {
		return model.Verdict{}
	}
	source := "news reports"
	if sig.Source == model.SignalSourceStakePool {
		source = "a verified community stake pool"
	}
	return model.Verdict{
		Fires:      true,
		Severity:   consts.SeverityCritical,
		Confidence: sig.Confidence,
		Message:    fmt.Sprintf("%s %s detected.", rule.CoinID, rule.AlertType.Label()),
		Detail:     fmt.Sprintf("Reported by %s (confidence %.0f%%).", source, sig.Confidence*100),
	}
}

func priceDetail(m model.CoinMetrics) string {
	if m.Price == nil {
		return ""
	}
	return fmt.Sprintf("Current price %s.", m.Price.Round(6).String())
}

func num(d decimal.Decimal) string {
	return d.Round(2).String()
}
