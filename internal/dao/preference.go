package dao

import (
	"context"

	"coco/internal/model/entity"
)

type PreferenceDao interface {
	PreferenceGet(ctx context.Context, userId string) (*entity.NotificationPreferences, error)
	// PreferenceCreate 已存在时不覆盖，返回库中的记录
	PreferenceCreate(ctx context.Context, prefs *entity.NotificationPreferences) (*entity.NotificationPreferences, error)
	PreferenceSave(ctx context.Context, prefs *entity.NotificationPreferences) error
}
