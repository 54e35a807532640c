package dao

import (
	"context"

	"coco/internal/model/entity"
)

type DeviceDao interface {
	// 注册或刷新设备
	DeviceTokenSave(ctx context.Context, deviceToken *entity.DeviceToken) error
	// 根据userId获取所有device token
	DeviceTokenListByUserId(ctx context.Context, userId string) ([]entity.DeviceToken, error)
	DeviceTokenDelete(ctx context.Context, userId, deviceToken string) error
}
