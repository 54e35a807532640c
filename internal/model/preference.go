package model

// PreferencesUpdateReq 局部更新，未出现的字段保持不变
type PreferencesUpdateReq struct {
	PushEnabled  *bool   `json:"push_enabled"`
	EmailEnabled *bool   `json:"email_enabled"`
	InAppEnabled *bool   `json:"in_app_enabled"`
	EmailAddress *string `json:"email_address" binding:"omitempty,max=255"`
	Verbosity    *string `json:"verbosity" binding:"omitempty,oneof=concise detailed"`

	SnoozeEnabled *bool `json:"snooze_enabled"`
	SnoozeHours   *int  `json:"snooze_hours"`

	CriticalOnly         *bool `json:"critical_only"`
	ImportantAndCritical *bool `json:"important_and_critical"`
	AllNotifications     *bool `json:"all_notifications"`

	BatchPortfolioAlerts    *bool `json:"batch_portfolio_alerts"`
	MaxNotificationsPerHour *int  `json:"max_notifications_per_hour"`
	SoundEnabled            *bool `json:"sound_enabled"`
	VibrationEnabled        *bool `json:"vibration_enabled"`

	QuietHoursEnabled *bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   *string `json:"quiet_hours_start" binding:"omitempty,clock"`
	QuietHoursEnd     *string `json:"quiet_hours_end" binding:"omitempty,clock"`
	Timezone          *string `json:"timezone" binding:"omitempty,timezone"`
}
