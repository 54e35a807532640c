package dao

import (
	"context"

	"coco/internal/consts"
	"coco/internal/model/entity"
)

// AlertDao 提醒规则数据访问接口
type AlertDao interface {
	// RuleUpsert 以 (user_id, coin_id, alert_type) 为键原子写入，返回库中的最终记录
	RuleUpsert(ctx context.Context, rule *entity.AlertRule) (*entity.AlertRule, error)
	RuleGetByID(ctx context.Context, userId, id string) (*entity.AlertRule, error)
	RuleGetByKey(ctx context.Context, userId, coinId string, alertType consts.AlertType) (*entity.AlertRule, error)
	RuleUpdate(ctx context.Context, rule *entity.AlertRule) error
	// RuleList coinId 为空时返回用户全部规则
	RuleList(ctx context.Context, userId, coinId string) ([]entity.AlertRule, error)
	RuleDeleteByID(ctx context.Context, userId, id string) (int64, error)
	RuleDeleteByKey(ctx context.Context, userId, coinId string, alertType consts.AlertType) (int64, error)
	RuleDeleteByCoin(ctx context.Context, userId, coinId string) (int64, error)
	RuleCountActive(ctx context.Context, userId string) (int64, error)
	// ActiveCoinIDs 所有存在生效规则的币种，供评估轮次分批
	ActiveCoinIDs(ctx context.Context) ([]string, error)
	ActiveRulesByCoins(ctx context.Context, coinIds []string) ([]entity.AlertRule, error)
	// UserActiveCoinIDs 用户有生效规则的币种
	UserActiveCoinIDs(ctx context.Context, userId string) ([]string, error)
}
