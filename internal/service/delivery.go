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
	"coco/pkg/mail"
	"coco/pkg/push/apns"

	"go.uber.org/multierr"
)

var errNoDevice = errors.New("no registered push device")

// Channel 投递通道
type Channel interface {
	Name() consts.Channel
	// Enabled 用户开启且通道可用
	Enabled(prefs *entity.NotificationPreferences) bool
	Send(ctx context.Context, prefs *entity.NotificationPreferences, task model.DeliveryTask) error
}

// Pusher APNs 推送
type Pusher interface {
	Push(ctx context.Context, msg *apns.PushMessage, deviceToken string) (*apns.PushResponse, error)
}

// MailSender SMTP 发信
type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// InAppPublisher 站内实时通道（websocket），用户不在线时由待处理列表兜底
type InAppPublisher interface {
	Publish(userId string, task model.DeliveryTask) int
}

type PushChannel struct {
	pusher Pusher
	dd     dao.DeviceDao
}

func NewPushChannel(p Pusher, dd dao.DeviceDao) *PushChannel {
	return &PushChannel{pusher: p, dd: dd}
}

func (c *PushChannel) Name() consts.Channel { return consts.ChannelPush }

func (c *PushChannel) Enabled(prefs *entity.NotificationPreferences) bool {
	return prefs.PushEnabled && c.pusher != nil
}

func (c *PushChannel) Send(ctx context.Context, prefs *entity.NotificationPreferences, task model.DeliveryTask) error {
	tokens, err := c.dd.DeviceTokenListByUserId(ctx, task.UserID)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	msg := &apns.PushMessage{
		Category: string(task.AlertType),
		Title:    task.Title,
		Body:     task.Message,
		ExtParams: map[string]interface{}{
			"group":      task.CoinID,
			"entry_id":   task.EntryID,
			"coin_id":    task.CoinID,
			"alert_type": task.AlertType,
			"severity":   task.Severity,
			"vibration":  prefs.VibrationEnabled,
		},
	}
	if prefs.SoundEnabled {
		msg.Sound = "default"
	}
	var errs error
	sent := 0
	for _, t := range tokens {
		if t.Platform != consts.PlatformIOS {
			continue
		}
		if _, err := c.pusher.Push(ctx, msg, t.DeviceToken); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		return nil
	}
	if errs == nil {
		return errNoDevice
	}
	return errs
}

type EmailChannel struct {
	sender MailSender
}

func NewEmailChannel(s MailSender) *EmailChannel {
	return &EmailChannel{sender: s}
}

func (c *EmailChannel) Name() consts.Channel { return consts.ChannelEmail }

func (c *EmailChannel) Enabled(prefs *entity.NotificationPreferences) bool {
	return prefs.EmailEnabled && prefs.EmailAddress != "" && c.sender != nil
}

func (c *EmailChannel) Send(ctx context.Context, prefs *entity.NotificationPreferences, task model.DeliveryTask) error {
	return c.sender.Send(ctx, mail.Message{
		To:      prefs.EmailAddress,
		Subject: fmt.Sprintf("[%s] %s", task.Severity, task.Title),
		Body:    task.Message,
	})
}

type InAppChannel struct {
	hub InAppPublisher
}

func NewInAppChannel(hub InAppPublisher) *InAppChannel {
	return &InAppChannel{hub: hub}
}

func (c *InAppChannel) Name() consts.Channel { return consts.ChannelInApp }

func (c *InAppChannel) Enabled(prefs *entity.NotificationPreferences) bool {
	return prefs.InAppEnabled
}

// Send 条目已在日志中，客户端轮询即可取到，在线连接只是提前送达
func (c *InAppChannel) Send(_ context.Context, _ *entity.NotificationPreferences, task model.DeliveryTask) error {
	if c.hub != nil {
		c.hub.Publish(task.UserID, task)
	}
	return nil
}

// Deliverer 对一条任务尝试所有开启的通道，任一成功即 delivered，否则 failed，不重试
type Deliverer struct {
	prefs    PreferenceService
	log      NotificationService
	channels []Channel
	timeout  time.Duration
}

func NewDeliverer(prefs PreferenceService, log NotificationService, timeout time.Duration, channels ...Channel) *Deliverer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Deliverer{prefs: prefs, log: log, channels: channels, timeout: timeout}
}

func (d *Deliverer) Deliver(ctx context.Context, task model.DeliveryTask) error {
	prefs, err := d.prefs.Get(ctx, task.UserID)
	if err != nil {
		return d.finish(ctx, task, consts.DeliveryFailed, err)
	}
	var errs error
	delivered := false
	for _, ch := range d.channels {
		if !ch.Enabled(prefs) {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := ch.Send(cctx, prefs, task)
		cancel()
		if err != nil {
			logger.Warn("channel delivery failed",
				logger.Pair(consts.UserID, task.UserID),
				logger.Pair("coin_id", task.CoinID),
				logger.Pair("alert_type", task.AlertType),
				logger.Pair("channel", ch.Name()),
				logger.Pair("error", err.Error()))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		delivered = true
	}
	if delivered {
		return d.finish(ctx, task, consts.DeliveryDelivered, nil)
	}
	if errs == nil {
		errs = errors.New("no delivery channel available")
	}
	return d.finish(ctx, task, consts.DeliveryFailed, errs)
}

func (d *Deliverer) finish(ctx context.Context, task model.DeliveryTask, status consts.DeliveryStatus, cause error) error {
	if err := d.log.MarkDelivery(ctx, task.EntryID, status); err != nil {
		cause = multierr.Append(cause, err)
	}
	if status == consts.DeliveryFailed {
		logger.Error("notification delivery failed",
			logger.Pair(consts.UserID, task.UserID),
			logger.Pair("coin_id", task.CoinID),
			logger.Pair("alert_type", task.AlertType),
			logger.Pair("entry_id", task.EntryID))
	}
	return cause
}
