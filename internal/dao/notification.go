package dao

import (
	"context"
	"time"

	"coco/internal/consts"
	"coco/internal/model/entity"
)

// NotificationDao 提醒日志，只追加；仅投递状态和确认时间允许变更
type NotificationDao interface {
	// NotificationAppend 幂等写入，幂等键已存在时返回 false
	NotificationAppend(ctx context.Context, entry *entity.NotificationLog) (bool, error)
	// NotificationLatest 同一键最近一条（含已清除的记录），不存在时返回 nil
	NotificationLatest(ctx context.Context, userId, coinId string, alertType consts.AlertType) (*entity.NotificationLog, error)
	// NotificationSummariesSince sentAt 晚于 since 的汇总条目（含已清除的记录）
	NotificationSummariesSince(ctx context.Context, userId string, since time.Time) ([]entity.NotificationLog, error)
	// NotificationCountSince sentAt 不早于 since 的条数（含已清除的记录）
	NotificationCountSince(ctx context.Context, userId string, since time.Time) (int64, error)
	// NotificationListPending 未确认的记录，since 不为空时只取 sentAt 之后的
	NotificationListPending(ctx context.Context, userId string, since *time.Time, limit int) ([]entity.NotificationLog, error)
	NotificationHistory(ctx context.Context, userId string, limit, offset int) ([]entity.NotificationLog, error)
	NotificationGet(ctx context.Context, userId string, id int64) (*entity.NotificationLog, error)
	// NotificationAcknowledge 只设置尚未确认的记录
	NotificationAcknowledge(ctx context.Context, userId string, id int64, at time.Time) (int64, error)
	NotificationAcknowledgeCoin(ctx context.Context, userId, coinId string, at time.Time) (int64, error)
	// NotificationPurgeCoin 软删除，unackedOnly 时保留已确认的历史
	NotificationPurgeCoin(ctx context.Context, userId, coinId string, unackedOnly bool) (int64, error)
	// NotificationMarkDelivery 只允许 queued 迁移到终态
	NotificationMarkDelivery(ctx context.Context, id int64, status consts.DeliveryStatus) error
}
