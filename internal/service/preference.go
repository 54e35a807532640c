package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/internal/model/entity"
	"coco/pkg/logger"
	"coco/pkg/mail"
)

var _ PreferenceService = (*preferenceService)(nil)

// PreferenceService 用户投递策略
type PreferenceService interface {
	// Get 首次访问时写入默认值
	Get(ctx context.Context, userId string) (*entity.NotificationPreferences, error)
	Update(ctx context.Context, userId string, req model.PreferencesUpdateReq) (*entity.NotificationPreferences, error)
}

type preferenceService struct {
	pd       dao.PreferenceDao
	verifier *mail.Verifier
}

func NewPreferenceService(pd dao.PreferenceDao) PreferenceService {
	return &preferenceService{pd: pd, verifier: mail.NewVerifier()}
}

// DefaultPreferences 新用户的默认偏好
func DefaultPreferences(userId string) entity.NotificationPreferences {
	return entity.NotificationPreferences{
		UserID:                  userId,
		PushEnabled:             true,
		InAppEnabled:            true,
		Verbosity:               consts.VerbosityDetailed,
		SnoozeEnabled:           true,
		SnoozeHours:             16,
		ImportantAndCritical:    true,
		BatchPortfolioAlerts:    true,
		MaxNotificationsPerHour: 10,
		SoundEnabled:            true,
		VibrationEnabled:        true,
		QuietHoursStart:         "22:00",
		QuietHoursEnd:           "08:00",
		Timezone:                "UTC",
	}
}

func (s *preferenceService) Get(ctx context.Context, userId string) (*entity.NotificationPreferences, error) {
	prefs, err := s.pd.PreferenceGet(ctx, userId)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, dao.ErrRecordNotFound) {
		return nil, fmt.Errorf("get preferences for %s: %w", userId, err)
	}
	def := DefaultPreferences(userId)
	prefs, err = s.pd.PreferenceCreate(ctx, &def)
	if err != nil {
		return nil, fmt.Errorf("create default preferences for %s: %w", userId, err)
	}
	logger.Info("created default notification preferences", logger.Pair(consts.UserID, userId))
	return prefs, nil
}

func (s *preferenceService) Update(ctx context.Context, userId string, req model.PreferencesUpdateReq) (*entity.NotificationPreferences, error) {
	current, err := s.Get(ctx, userId)
	if err != nil {
		return nil, err
	}
	next := *current
	if err := s.apply(&next, req); err != nil {
		return nil, err
	}
	if err := s.pd.PreferenceSave(ctx, &next); err != nil {
		return nil, fmt.Errorf("save preferences for %s: %w", userId, err)
	}
	return &next, nil
}

// apply 校验并合并局部更新，失败时 p 可能已被部分修改，调用方传入副本
func (s *preferenceService) apply(p *entity.NotificationPreferences, req model.PreferencesUpdateReq) error {
	setBool(&p.PushEnabled, req.PushEnabled)
	setBool(&p.EmailEnabled, req.EmailEnabled)
	setBool(&p.InAppEnabled, req.InAppEnabled)
	setBool(&p.SnoozeEnabled, req.SnoozeEnabled)
	setBool(&p.BatchPortfolioAlerts, req.BatchPortfolioAlerts)
	setBool(&p.SoundEnabled, req.SoundEnabled)
	setBool(&p.VibrationEnabled, req.VibrationEnabled)
	setBool(&p.QuietHoursEnabled, req.QuietHoursEnabled)

	if req.EmailAddress != nil {
		addr := strings.TrimSpace(*req.EmailAddress)
		if addr != "" {
			if err := s.verifier.CheckSyntax(addr); err != nil {
				return invalid("email_address", "%v", err)
			}
		}
		p.EmailAddress = addr
	}
	if p.EmailEnabled && p.EmailAddress == "" {
		return invalid("email_address", "required when email notifications are enabled")
	}

	if req.Verbosity != nil {
		v := consts.Verbosity(*req.Verbosity)
		if v != consts.VerbosityConcise && v != consts.VerbosityDetailed {
			return invalid("verbosity", "must be concise or detailed")
		}
		p.Verbosity = v
	}
	if req.SnoozeHours != nil {
		if *req.SnoozeHours < 1 || *req.SnoozeHours > 48 {
			return invalid("snooze_hours", "must be between 1 and 48")
		}
		p.SnoozeHours = *req.SnoozeHours
	}
	if req.MaxNotificationsPerHour != nil {
		if *req.MaxNotificationsPerHour < 1 || *req.MaxNotificationsPerHour > 10 {
			return invalid("max_notifications_per_hour", "must be between 1 and 10")
		}
		p.MaxNotificationsPerHour = *req.MaxNotificationsPerHour
	}

	if err := applyTier(p, req); err != nil {
		return err
	}

	if req.QuietHoursStart != nil {
		if _, err := time.Parse(consts.ClockLayout, *req.QuietHoursStart); err != nil {
			return invalid("quiet_hours_start", "must be HH:MM")
		}
		p.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		if _, err := time.Parse(consts.ClockLayout, *req.QuietHoursEnd); err != nil {
			return invalid("quiet_hours_end", "must be HH:MM")
		}
		p.QuietHoursEnd = *req.QuietHoursEnd
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return invalid("timezone", "unknown IANA timezone %q", *req.Timezone)
		}
		p.Timezone = *req.Timezone
	}
	return nil
}

// applyTier 一次请求最多选中一个档位；选中后另外两个清空
func applyTier(p *entity.NotificationPreferences, req model.PreferencesUpdateReq) error {
	fields := []struct {
		v    *bool
		tier consts.UrgencyTier
	}{
		{req.CriticalOnly, consts.TierCriticalOnly},
		{req.ImportantAndCritical, consts.TierImportantAndCritical},
		{req.AllNotifications, consts.TierAll},
	}
	var selected []consts.UrgencyTier
	deselectCurrent := false
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		if *f.v {
			selected = append(selected, f.tier)
		} else if f.tier == p.Tier() {
			deselectCurrent = true
		}
	}
	switch {
	case len(selected) > 1:
		return invalid("urgency_tier", "only one of critical_only, important_and_critical, all_notifications may be selected")
	case len(selected) == 1:
		p.SetTier(selected[0])
	case deselectCurrent:
		return invalid("urgency_tier", "exactly one urgency tier must remain selected")
	}
	return nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// ShouldDeliver 档位过滤、免打扰时段和通道开关
func ShouldDeliver(p *entity.NotificationPreferences, v model.Verdict, now time.Time) bool {
	if !v.Fires || !p.AnyChannel() {
		return false
	}
	if !tierAllows(p.Tier(), v.Severity) {
		return false
	}
	if v.Severity != consts.SeverityCritical && InQuietHours(p, now) {
		return false
	}
	return true
}

func tierAllows(tier consts.UrgencyTier, sev consts.Severity) bool {
	switch tier {
	case consts.TierCriticalOnly:
		return sev == consts.SeverityCritical
	case consts.TierImportantAndCritical:
		return sev == consts.SeverityCritical || sev == consts.SeverityImportant
	default:
		return true
	}
}

// Batchable 开启合并且不是事件类提醒
func Batchable(p *entity.NotificationPreferences, alertType consts.AlertType) bool {
	return p.BatchPortfolioAlerts && !alertType.IsEvent()
}

// InQuietHours 按用户时区判断，支持跨零点的区间；起止相同视为未设置
func InQuietHours(p *entity.NotificationPreferences, now time.Time) bool {
	if !p.QuietHoursEnabled {
		return false
	}
	start, err1 := time.Parse(consts.ClockLayout, p.QuietHoursStart)
	end, err2 := time.Parse(consts.ClockLayout, p.QuietHoursEnd)
	if err1 != nil || err2 != nil {
		return false
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil || p.Timezone == "" {
		loc = time.UTC
	}
	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	switch {
	case s == e:
		return false
	case s < e:
		return minute >= s && minute < e
	default:
		return minute >= s || minute < e
	}
}
