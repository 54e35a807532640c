package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/internal/model/entity"
	"coco/pkg/logger"
	"coco/utils/uuid"
)

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 200
)

var _ NotificationService = (*notificationService)(nil)

// NotificationService 提醒日志。读取不会改变确认状态
type NotificationService interface {
	// Append 补齐 id、发送时间和初始状态后幂等写入
	Append(ctx context.Context, entry *entity.NotificationLog) (bool, error)
	ListPending(ctx context.Context, userId string, since *time.Time, limit int) ([]entity.NotificationLog, error)
	// Acknowledge 已确认的记录保持原确认时间
	Acknowledge(ctx context.Context, userId string, id int64) (int64, error)
	AcknowledgeAllForCoin(ctx context.Context, userId, coinId string) (int64, error)
	// PurgeForCoin 清除该币种未确认的提醒
	PurgeForCoin(ctx context.Context, userId, coinId string) (int64, error)
	History(ctx context.Context, userId string, limit, offset int) ([]entity.NotificationLog, error)
	MarkDelivery(ctx context.Context, id int64, status consts.DeliveryStatus) error
}

type notificationService struct {
	nd   dao.NotificationDao
	iSrv *uuid.SnowNode
	now  func() time.Time
}

func NewNotificationService(nd dao.NotificationDao, node *uuid.SnowNode) NotificationService {
	return &notificationService{nd: nd, iSrv: node, now: time.Now}
}

func (s *notificationService) Append(ctx context.Context, entry *entity.NotificationLog) (bool, error) {
	if entry.ID == 0 {
		entry.ID = s.iSrv.GenSnowID()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = s.now()
	}
	if entry.DeliveryStatus == "" {
		entry.DeliveryStatus = consts.DeliveryQueued
	}
	inserted, err := s.nd.NotificationAppend(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("append notification: %w", err)
	}
	if !inserted {
		logger.Debug("notification already logged for window",
			logger.Pair(consts.UserID, entry.UserID),
			logger.Pair("coin_id", entry.CoinID),
			logger.Pair("alert_type", entry.AlertType),
			logger.Pair("firing_window", entry.FiringWindow))
	}
	return inserted, nil
}

func (s *notificationService) ListPending(ctx context.Context, userId string, since *time.Time, limit int) ([]entity.NotificationLog, error) {
	entries, err := s.nd.NotificationListPending(ctx, userId, since, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return entries, nil
}

func (s *notificationService) Acknowledge(ctx context.Context, userId string, id int64) (int64, error) {
	n, err := s.nd.NotificationAcknowledge(ctx, userId, id, s.now())
	if err != nil {
		return 0, fmt.Errorf("acknowledge notification %d: %w", id, err)
	}
	if n > 0 {
		return n, nil
	}
	if _, err := s.nd.NotificationGet(ctx, userId, id); err != nil {
		if errors.Is(err, dao.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("load notification %d: %w", id, err)
	}
	return 0, nil
}

func (s *notificationService) AcknowledgeAllForCoin(ctx context.Context, userId, coinId string) (int64, error) {
	n, err := s.nd.NotificationAcknowledgeCoin(ctx, userId, coinId, s.now())
	if err != nil {
		return 0, fmt.Errorf("acknowledge notifications for %s: %w", coinId, err)
	}
	return n, nil
}

func (s *notificationService) PurgeForCoin(ctx context.Context, userId, coinId string) (int64, error) {
	n, err := s.nd.NotificationPurgeCoin(ctx, userId, coinId, true)
	if err != nil {
		return 0, fmt.Errorf("purge notifications for %s: %w", coinId, err)
	}
	return n, nil
}

func (s *notificationService) History(ctx context.Context, userId string, limit, offset int) ([]entity.NotificationLog, error) {
	if offset < 0 {
		offset = 0
	}
	entries, err := s.nd.NotificationHistory(ctx, userId, clampLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("notification history: %w", err)
	}
	return entries, nil
}

func (s *notificationService) MarkDelivery(ctx context.Context, id int64, status consts.DeliveryStatus) error {
	if status != consts.DeliveryDelivered && status != consts.DeliveryFailed {
		return invalid("deliveryStatus", "must be delivered or failed")
	}
	if err := s.nd.NotificationMarkDelivery(ctx, id, status); err != nil {
		return fmt.Errorf("mark notification %d %s: %w", id, status, err)
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPendingLimit
	case limit > maxPendingLimit:
		return maxPendingLimit
	}
	return limit
}

// ToNotificationRes 日志条目转接口返回
func ToNotificationRes(e entity.NotificationLog) model.NotificationRes {
	res := model.NotificationRes{
		ID:             fmt.Sprintf("%d", e.ID),
		CoinID:         e.CoinID,
		AlertType:      e.AlertType,
		Message:        e.Message,
		Severity:       e.Severity,
		SentAt:         e.SentAt,
		DeliveryStatus: e.DeliveryStatus,
		AcknowledgedAt: e.AcknowledgedAt,
	}
	if len(e.Extra) > 0 {
		res.Extra = map[string]any(e.Extra)
	}
	return res
}
