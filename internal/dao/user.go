package dao

import (
	"context"
)

type UserDao interface {
	// UserPlanGet 没有记录时返回空字符串
	UserPlanGet(ctx context.Context, userId string) (string, error)
	UserPlanSave(ctx context.Context, userId, plan string) error
	// UserHoldingCoinIDs 用户持仓币种
	UserHoldingCoinIDs(ctx context.Context, userId string) ([]string, error)
}
