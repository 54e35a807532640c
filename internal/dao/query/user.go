package query

import (
	"context"
	"errors"
	"time"

	"coco/internal/dao"
	"coco/internal/model/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ dao.UserDao = (*userDao)(nil)

type userDao struct {
	db *gorm.DB
}

func NewUserDao(db *gorm.DB) dao.UserDao {
	return &userDao{db: db}
}

func (d *userDao) UserPlanGet(ctx context.Context, userId string) (string, error) {
	var plan entity.UserPlan
	err := d.db.WithContext(ctx).Where("user_id = ?", userId).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return plan.Plan, nil
}

func (d *userDao) UserPlanSave(ctx context.Context, userId, plan string) error {
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entity.UserPlan{UserID: userId, Plan: plan, UpdatedAt: time.Now()}).Error
}

func (d *userDao) UserHoldingCoinIDs(ctx context.Context, userId string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&entity.PortfolioHolding{}).
		Where("user_id = ?", userId).Order("coin_id").Pluck("coin_id", &ids).Error
	return ids, err
}
