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

var _ dao.NotificationDao = (*notificationDao)(nil)

type notificationDao struct {
	db *gorm.DB
}

func NewNotificationDao(db *gorm.DB) dao.NotificationDao {
	return &notificationDao{db: db}
}

func (d *notificationDao) NotificationAppend(ctx context.Context, entry *entity.NotificationLog) (bool, error) {
	result := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("append notification: %w", translate(result.Error))
	}
	return result.RowsAffected == 1, nil
}

func (d *notificationDao) NotificationLatest(ctx context.Context, userId, coinId string, alertType consts.AlertType) (*entity.NotificationLog, error) {
	var entries []entity.NotificationLog
	err := d.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND coin_id = ? AND alert_type = ?", userId, coinId, alertType).
		Order("sent_at DESC").Limit(1).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (d *notificationDao) NotificationSummariesSince(ctx context.Context, userId string, since time.Time) ([]entity.NotificationLog, error) {
	var entries []entity.NotificationLog
	err := d.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND coin_id = '' AND alert_type IN ? AND sent_at > ?",
			userId, []consts.AlertType{consts.AlertPortfolioSummary, consts.AlertMarketSummary}, since).
		Find(&entries).Error
	return entries, err
}

func (d *notificationDao) NotificationCountSince(ctx context.Context, userId string, since time.Time) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Unscoped().Model(&entity.NotificationLog{}).
		Where("user_id = ? AND sent_at >= ?", userId, since).Count(&n).Error
	return n, err
}

func (d *notificationDao) NotificationListPending(ctx context.Context, userId string, since *time.Time, limit int) ([]entity.NotificationLog, error) {
	var entries []entity.NotificationLog
	q := d.db.WithContext(ctx).Where("user_id = ? AND acknowledged_at IS NULL", userId)
	if since != nil {
		q = q.Where("sent_at > ?", *since)
	}
	if err := q.Order("sent_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list pending notifications for user %s: %w", userId, err)
	}
	return entries, nil
}

func (d *notificationDao) NotificationHistory(ctx context.Context, userId string, limit, offset int) ([]entity.NotificationLog, error) {
	var entries []entity.NotificationLog
	err := d.db.WithContext(ctx).Where("user_id = ?", userId).
		Order("sent_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, err
}

func (d *notificationDao) NotificationGet(ctx context.Context, userId string, id int64) (*entity.NotificationLog, error) {
	var entry entity.NotificationLog
	if err := d.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).First(&entry).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (d *notificationDao) NotificationAcknowledge(ctx context.Context, userId string, id int64, at time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Model(&entity.NotificationLog{}).
		Where("id = ? AND user_id = ? AND acknowledged_at IS NULL", id, userId).
		Update("acknowledged_at", at)
	return result.RowsAffected, result.Error
}

func (d *notificationDao) NotificationAcknowledgeCoin(ctx context.Context, userId, coinId string, at time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Model(&entity.NotificationLog{}).
		Where("user_id = ? AND coin_id = ? AND acknowledged_at IS NULL", userId, coinId).
		Update("acknowledged_at", at)
	return result.RowsAffected, result.Error
}

func (d *notificationDao) NotificationPurgeCoin(ctx context.Context, userId, coinId string, unackedOnly bool) (int64, error) {
	q := d.db.WithContext(ctx).Where("user_id = ? AND coin_id = ?", userId, coinId)
	if unackedOnly {
		q = q.Where("acknowledged_at IS NULL")
	}
	result := q.Delete(&entity.NotificationLog{})
	return result.RowsAffected, result.Error
}

func (d *notificationDao) NotificationMarkDelivery(ctx context.Context, id int64, status consts.DeliveryStatus) error {
	return d.db.WithContext(ctx).Unscoped().Model(&entity.NotificationLog{}).
		Where("id = ? AND delivery_status = ?", id, consts.DeliveryQueued).
		Update("delivery_status", status).Error
}
