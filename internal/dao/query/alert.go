package query

import (
	"context"
	"fmt"
	"time"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ dao.AlertDao = (*alertDao)(nil)

type alertDao struct {
	db *gorm.DB
}

func NewAlertDao(db *gorm.DB) dao.AlertDao {
	return &alertDao{db: db}
}

func (d *alertDao) RuleUpsert(ctx context.Context, rule *entity.AlertRule) (*entity.AlertRule, error) {
	now := time.Now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "coin_id"}, {Name: "alert_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"threshold_value", "is_active", "updated_at"}),
	}).Create(rule).Error
	if err != nil {
		return nil, fmt.Errorf("upsert alert rule: %w", translate(err))
	}
	// 冲突更新时 rule.ID 不是库中的 id，重新读取
	return d.RuleGetByKey(ctx, rule.UserID, rule.CoinID, rule.AlertType)
}

func (d *alertDao) RuleGetByID(ctx context.Context, userId, id string) (*entity.AlertRule, error) {
	var rule entity.AlertRule
	err := d.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).First(&rule).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (d *alertDao) RuleGetByKey(ctx context.Context, userId, coinId string, alertType consts.AlertType) (*entity.AlertRule, error) {
	var rule entity.AlertRule
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND coin_id = ? AND alert_type = ?", userId, coinId, alertType).
		First(&rule).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (d *alertDao) RuleUpdate(ctx context.Context, rule *entity.AlertRule) error {
	rule.UpdatedAt = time.Now()
	result := d.db.WithContext(ctx).Model(&entity.AlertRule{}).
		Where("id = ? AND user_id = ?", rule.ID, rule.UserID).
		Updates(map[string]interface{}{
			"threshold_value": rule.ThresholdValue,
			"is_active":       rule.IsActive,
			"updated_at":      rule.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update alert rule %s: %w", rule.ID, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return dao.ErrRecordNotFound
	}
	return nil
}

func (d *alertDao) RuleList(ctx context.Context, userId, coinId string) ([]entity.AlertRule, error) {
	var rules []entity.AlertRule
	q := d.db.WithContext(ctx).Where("user_id = ?", userId)
	if coinId != "" {
		q = q.Where("coin_id = ?", coinId)
	}
	if err := q.Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("list alert rules for user %s: %w", userId, err)
	}
	return rules, nil
}

func (d *alertDao) RuleDeleteByID(ctx context.Context, userId, id string) (int64, error) {
	result := d.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).Delete(&entity.AlertRule{})
	return result.RowsAffected, result.Error
}

func (d *alertDao) RuleDeleteByKey(ctx context.Context, userId, coinId string, alertType consts.AlertType) (int64, error) {
	result := d.db.WithContext(ctx).
		Where("user_id = ? AND coin_id = ? AND alert_type = ?", userId, coinId, alertType).
		Delete(&entity.AlertRule{})
	return result.RowsAffected, result.Error
}

func (d *alertDao) RuleDeleteByCoin(ctx context.Context, userId, coinId string) (int64, error) {
	result := d.db.WithContext(ctx).Where("user_id = ? AND coin_id = ?", userId, coinId).Delete(&entity.AlertRule{})
	return result.RowsAffected, result.Error
}

func (d *alertDao) RuleCountActive(ctx context.Context, userId string) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&entity.AlertRule{}).
		Where("user_id = ? AND is_active = ?", userId, true).Count(&n).Error
	return n, err
}

func (d *alertDao) ActiveCoinIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&entity.AlertRule{}).
		Where("is_active = ?", true).Distinct().Order("coin_id").Pluck("coin_id", &ids).Error
	return ids, err
}

func (d *alertDao) ActiveRulesByCoins(ctx context.Context, coinIds []string) ([]entity.AlertRule, error) {
	if len(coinIds) == 0 {
		return nil, nil
	}
	var rules []entity.AlertRule
	err := d.db.WithContext(ctx).
		Where("is_active = ? AND coin_id IN ?", true, coinIds).
		Order("user_id, coin_id").Find(&rules).Error
	return rules, err
}

func (d *alertDao) UserActiveCoinIDs(ctx context.Context, userId string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&entity.AlertRule{}).
		Where("user_id = ? AND is_active = ?", userId, true).Distinct().Order("coin_id").Pluck("coin_id", &ids).Error
	return ids, err
}
