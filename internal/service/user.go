package service

import (
	"context"
	"fmt"

	"coco/conf"
	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/pkg/logger"
)

var _ UserService = (*userService)(nil)

// UserService 用户套餐与提醒配额
type UserService interface {
	UserPlanGet(ctx context.Context, userId string) (model.UserPlanRes, error)
	UserPlanSet(ctx context.Context, userId, plan string) error
}

type userService struct {
	ud  dao.UserDao
	ad  dao.AlertDao
	cfg conf.AlertConfig
}

func NewUserService(ud dao.UserDao, ad dao.AlertDao, cfg conf.AlertConfig) UserService {
	return &userService{ud: ud, ad: ad, cfg: cfg}
}

func (u *userService) UserPlanGet(ctx context.Context, userId string) (model.UserPlanRes, error) {
	var res model.UserPlanRes
	plan, limit, err := resolvePlan(ctx, u.ud, u.cfg, userId)
	if err != nil {
		return res, err
	}
	count, err := u.ad.RuleCountActive(ctx, userId)
	if err != nil {
		return res, fmt.Errorf("count active rules: %w", err)
	}
	res.Plan = plan
	res.Limit = limit
	res.ActiveAlerts = int(count)
	return res, nil
}

// UserPlanSet 降级后已有规则保留，只是不能再新增
func (u *userService) UserPlanSet(ctx context.Context, userId, plan string) error {
	if _, ok := u.cfg.PlanLimits[plan]; !ok {
		return invalid("plan", "unknown plan %q", plan)
	}
	if err := u.ud.UserPlanSave(ctx, userId, plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	logger.Info("user plan changed", logger.Pair(consts.UserID, userId), logger.Pair("plan", plan))
	return nil
}

// resolvePlan 没有记录时使用默认套餐，未知套餐按 free 处理
func resolvePlan(ctx context.Context, ud dao.UserDao, cfg conf.AlertConfig, userId string) (string, int, error) {
	plan, err := ud.UserPlanGet(ctx, userId)
	if err != nil {
		return "", 0, fmt.Errorf("load plan: %w", err)
	}
	if plan == "" {
		plan = cfg.DefaultPlan
	}
	limit, ok := cfg.PlanLimits[plan]
	if !ok {
		plan = consts.PlanFree
		limit = cfg.PlanLimits[plan]
	}
	return plan, limit, nil
}
