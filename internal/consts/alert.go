package consts

// AlertType 提醒类型；规则类型之外还有质押专用的 rebrand 和仅日志使用的汇总类型
type AlertType string

const (
	AlertHealthScore      AlertType = "health_score"
	AlertConsistencyScore AlertType = "consistency_score"
	AlertPriceDrop        AlertType = "price_drop"
	AlertMigration        AlertType = "migration"
	AlertDelisting        AlertType = "delisting"
	AlertRebrand          AlertType = "rebrand"

	AlertPortfolioSummary AlertType = "portfolio_summary"
	AlertMarketSummary    AlertType = "market_summary"
)

// RuleTypes 可以创建提醒规则的类型
var RuleTypes = []AlertType{AlertHealthScore, AlertConsistencyScore, AlertPriceDrop, AlertMigration, AlertDelisting}

// IsRuleType 是否允许作为提醒规则
func (t AlertType) IsRuleType() bool {
	switch t {
	case AlertHealthScore, AlertConsistencyScore, AlertPriceDrop, AlertMigration, AlertDelisting:
		return true
	}
	return false
}

// IsEvent 事件类提醒，不依赖阈值
func (t AlertType) IsEvent() bool {
	switch t {
	case AlertMigration, AlertDelisting, AlertRebrand:
		return true
	}
	return false
}

// IsSummary 合并后的汇总条目，coinId 为空
func (t AlertType) IsSummary() bool {
	return t == AlertPortfolioSummary || t == AlertMarketSummary
}

// IsStakeType 是否允许提交质押
func (t AlertType) IsStakeType() bool {
	return t == AlertMigration || t == AlertDelisting || t == AlertRebrand
}

func (t AlertType) Label() string {
	switch t {
	case AlertHealthScore:
		return "health score"
	case AlertConsistencyScore:
		return "consistency score"
	case AlertPriceDrop:
		return "price drop"
	case AlertMigration:
		return "migration"
	case AlertDelisting:
		return "delisting"
	case AlertRebrand:
		return "rebrand"
	case AlertPortfolioSummary:
		return "portfolio summary"
	case AlertMarketSummary:
		return "market summary"
	}
	return string(t)
}

type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityImportant Severity = "important"
	SeverityInfo      Severity = "info"
)

// Rank 数值越大越紧急，用于限流时排序
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityImportant:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

type DeliveryStatus string

const (
	DeliveryQueued    DeliveryStatus = "queued"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

type UrgencyTier string

const (
	TierCriticalOnly         UrgencyTier = "critical_only"
	TierImportantAndCritical UrgencyTier = "important_and_critical"
	TierAll                  UrgencyTier = "all"
)

type Verbosity string

const (
	VerbosityConcise  Verbosity = "concise"
	VerbosityDetailed Verbosity = "detailed"
)

type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

type StakeStatus string

const (
	StakePending  StakeStatus = "pending"
	StakeVerified StakeStatus = "verified"
	StakeRejected StakeStatus = "rejected"
)

type PoolState string

const (
	PoolOpen     PoolState = "open"
	PoolFilling  PoolState = "filling"
	PoolFilled   PoolState = "filled"
	PoolResolved PoolState = "resolved"
	PoolArchived PoolState = "archived"
)

// Accepting 当前周期是否还能接收新质押
func (s PoolState) Accepting() bool {
	return s == PoolOpen || s == PoolFilling || s == PoolArchived
}

type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomeRejected Outcome = "rejected"
)

// ArchivedReason 归档后展示给用户的文案
func (o Outcome) ArchivedReason() string {
	switch o {
	case OutcomeVerified:
		return "verified and closed"
	case OutcomeRejected:
		return "rejected and closed"
	}
	return ""
}
