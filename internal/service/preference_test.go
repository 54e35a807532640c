package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"coco/internal/consts"
	"coco/internal/dao/memory"
	"coco/internal/model"
)

func bptr(v bool) *bool { return &v }
func iptr(v int) *int { return &v }
func sptr(v string) *string { return &v }

func TestPreferenceGetCreatesDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceService(memory.NewPreferenceDao())

	p, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Tier() != consts.TierImportantAndCritical || p.MaxNotificationsPerHour != 10 || p.SnoozeHours != 16 {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if !p.PushEnabled || !p.InAppEnabled || p.EmailEnabled {
		t.Fatalf("unexpected default channels %+v", p)
	}
}

func TestPreferenceUpdate(t *testing.T) {
	tests := []struct {
		name    string
		req     model.PreferencesUpdateReq
		wantErr bool
		check   func(t *testing.T, tier consts.UrgencyTier, max int)
	}{
		{
			name: "select critical only",
			req:  model.PreferencesUpdateReq{CriticalOnly: bptr(true)},
			check: func(t *testing.T, tier consts.UrgencyTier, _ int) {
				if tier != consts.TierCriticalOnly {
					t.Errorf("tier = %s", tier)
				}
			},
		},
		{
			name: "select all with redundant false",
			req:  model.PreferencesUpdateReq{AllNotifications: bptr(true), CriticalOnly: bptr(false)},
			check: func(t *testing.T, tier consts.UrgencyTier, _ int) {
				if tier != consts.TierAll {
					t.Errorf("tier = %s", tier)
				}
			},
		},
		{name: "two tiers", req: model.PreferencesUpdateReq{CriticalOnly: bptr(true), AllNotifications: bptr(true)}, wantErr: true},
		{name: "deselect current tier", req: model.PreferencesUpdateReq{ImportantAndCritical: bptr(false)}, wantErr: true},
		{name: "max per hour too high", req: model.PreferencesUpdateReq{MaxNotificationsPerHour: iptr(11)}, wantErr: true},
		{name: "max per hour zero", req: model.PreferencesUpdateReq{MaxNotificationsPerHour: iptr(0)}, wantErr: true},
		{
			name: "max per hour in range",
			req:  model.PreferencesUpdateReq{MaxNotificationsPerHour: iptr(3)},
			check: func(t *testing.T, _ consts.UrgencyTier, max int) {
				if max != 3 {
					t.Errorf("max = %d", max)
				}
			},
		},
		{name: "snooze too long", req: model.PreferencesUpdateReq{SnoozeHours: iptr(49)}, wantErr: true},
		{name: "bad verbosity", req: model.PreferencesUpdateReq{Verbosity: sptr("loud")}, wantErr: true},
		{name: "email enabled without address", req: model.PreferencesUpdateReq{EmailEnabled: bptr(true)}, wantErr: true},
		{name: "bad email", req: model.PreferencesUpdateReq{EmailEnabled: bptr(true), EmailAddress: sptr("not-an-email")}, wantErr: true},
		{name: "bad clock", req: model.PreferencesUpdateReq{QuietHoursStart: sptr("25:00")}, wantErr: true},
		{name: "bad timezone", req: model.PreferencesUpdateReq{Timezone: sptr("Mars/Olympus")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewPreferenceService(memory.NewPreferenceDao())
			p, err := s.Update(ctx, "u1", tt.req)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				// 失败的更新不落库
				stored, _ := s.Get(ctx, "u1")
				if stored.Tier() != consts.TierImportantAndCritical || stored.MaxNotificationsPerHour != 10 {
					t.Fatalf("invalid update was persisted: %+v", stored)
				}
				return
			}
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			tt.check(t, p.Tier(), p.MaxNotificationsPerHour)
			n := 0
			for _, b := range []bool{p.CriticalOnly, p.ImportantAndCritical, p.AllNotifications} {
				if b {
					n++
				}
			}
			if n != 1 {
				t.Fatalf("%d tiers selected", n)
			}
		})
	}
}

func TestInQuietHours(t *testing.T) {
	p := DefaultPreferences("u1")
	p.QuietHoursEnabled = true
	p.QuietHoursStart = "22:00"
	p.QuietHoursEnd = "08:00"
	p.Timezone = "UTC"

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		clock time.Duration
		want  bool
	}{
		{21*time.Hour + 59*time.Minute, false},
		{22 * time.Hour, true},
		{23*time.Hour + 30*time.Minute, true},
		{3 * time.Hour, true},
		{8 * time.Hour, false},
		{12 * time.Hour, false},
	}
	for _, tt := range tests {
		if got := InQuietHours(&p, day.Add(tt.clock)); got != tt.want {
			t.Errorf("at %s got %v want %v", day.Add(tt.clock).Format(consts.ClockLayout), got, tt.want)
		}
	}

	// 区间按用户时区计算
	p.Timezone = "Asia/Shanghai"
	if !InQuietHours(&p, day.Add(15*time.Hour)) {
		t.Errorf("15:00 UTC is 23:00 in Shanghai, expected quiet")
	}

	p.QuietHoursStart, p.QuietHoursEnd = "13:00", "15:00"
	p.Timezone = "UTC"
	if !InQuietHours(&p, day.Add(14*time.Hour)) || InQuietHours(&p, day.Add(16*time.Hour)) {
		t.Errorf("same-day window mismatch")
	}

	p.QuietHoursEnabled = false
	if InQuietHours(&p, day.Add(14*time.Hour)) {
		t.Errorf("disabled quiet hours reported quiet")
	}
}

func TestShouldDeliver(t *testing.T) {
	night := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	noon := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	base := DefaultPreferences("u1")
	base.QuietHoursEnabled = true

	tests := []struct {
		name string
		tier consts.UrgencyTier
		sev  consts.Severity
		now  time.Time
		want bool
	}{
		{"critical only blocks important", consts.TierCriticalOnly, consts.SeverityImportant, noon, false},
		{"critical only passes critical", consts.TierCriticalOnly, consts.SeverityCritical, noon, true},
		{"default blocks info", consts.TierImportantAndCritical, consts.SeverityInfo, noon, false},
		{"default passes important", consts.TierImportantAndCritical, consts.SeverityImportant, noon, true},
		{"all passes info", consts.TierAll, consts.SeverityInfo, noon, true},
		{"quiet hours hold important", consts.TierAll, consts.SeverityImportant, night, false},
		{"quiet hours let critical through", consts.TierAll, consts.SeverityCritical, night, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.SetTier(tt.tier)
			if got := ShouldDeliver(&p, model.Verdict{Fires: true, Severity: tt.sev}, tt.now); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}

	off := base
	off.PushEnabled, off.InAppEnabled, off.EmailEnabled = false, false, false
	if ShouldDeliver(&off, model.Verdict{Fires: true, Severity: consts.SeverityCritical}, noon) {
		t.Errorf("delivered with every channel off")
	}
}
