package service

import (
	"context"
	"fmt"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model"
	"coco/internal/model/entity"
	"coco/pkg/logger"
	"coco/utils/uuid"
)

var _ DeviceService = (*deviceService)(nil)

// DeviceService 推送设备登记
type DeviceService interface {
	DeviceTokenReport(ctx context.Context, userId string, req model.DeviceTokenReportReq) error
	DeviceTokenList(ctx context.Context, userId string) ([]entity.DeviceToken, error)
	DeviceTokenRemove(ctx context.Context, userId, deviceToken string) error
}

type deviceService struct {
	dd   dao.DeviceDao
	iSrv *uuid.SnowNode
}

func NewDeviceService(dd dao.DeviceDao, node *uuid.SnowNode) DeviceService {
	return &deviceService{dd: dd, iSrv: node}
}

func (u *deviceService) DeviceTokenReport(ctx context.Context, userId string, req model.DeviceTokenReportReq) error {
	err := u.dd.DeviceTokenSave(ctx, &entity.DeviceToken{
		Id:          u.iSrv.GenSnowID(),
		UserId:      userId,
		DeviceToken: req.DeviceToken,
		Platform:    req.Platform,
	})
	if err != nil {
		logger.Errorf("保存device token失败：%v", err)
		return fmt.Errorf("save device token: %w", err)
	}
	logger.Debug("device token reported", logger.Pair(consts.UserID, userId), logger.Pair("platform", req.Platform))
	return nil
}

func (u *deviceService) DeviceTokenList(ctx context.Context, userId string) ([]entity.DeviceToken, error) {
	tokens, err := u.dd.DeviceTokenListByUserId(ctx, userId)
	if err != nil {
		logger.Errorf("获取用户%s的device token失败：%v", userId, err)
		return nil, err
	}
	return tokens, nil
}

func (u *deviceService) DeviceTokenRemove(ctx context.Context, userId, deviceToken string) error {
	return u.dd.DeviceTokenDelete(ctx, userId, deviceToken)
}
