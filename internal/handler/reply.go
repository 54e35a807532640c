package handler

import (
	stderrors "errors"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/service"
	"coco/pkg/errors"
	"coco/pkg/errors/ecode"
	"coco/pkg/logger"
	"coco/pkg/response"
	"coco/pkg/validator"

	"github.com/gin-gonic/gin"
)

// QuotaRes 配额超限时附带的数据
type QuotaRes struct {
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
	Plan    string `json:"plan"`
}

// UserID 鉴权中间件写入的用户id
func UserID(ctx *gin.Context) string {
	return ctx.GetString(consts.UserID)
}

// BindErr 请求参数绑定/校验失败
func BindErr(ctx *gin.Context, err error) {
	response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err).Error()), nil)
}

// ServiceErr 服务层错误转为错误码响应
func ServiceErr(ctx *gin.Context, err error) {
	var (
		ve    *service.ValidationError
		quota *service.QuotaExceededError
	)
	switch {
	case stderrors.As(err, &ve):
		response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", ve.Error()), nil)
	case stderrors.As(err, &quota):
		response.JSON(ctx, errors.WithCode(ecode.QuotaExceededErr, "%s", quota.Error()),
			QuotaRes{Current: quota.Current, Limit: quota.Limit, Plan: quota.Plan})
	case stderrors.Is(err, service.ErrDuplicateRule):
		response.JSON(ctx, errors.Wrap(err, ecode.DuplicateRuleErr, err.Error()), nil)
	case stderrors.Is(err, service.ErrPoolClosed):
		response.JSON(ctx, errors.WithCode(ecode.PoolClosedErr, "%s", err.Error()), nil)
	case stderrors.Is(err, service.ErrDuplicatePendingStake):
		response.JSON(ctx, errors.WithCode(ecode.DuplicateStakeErr, "%s", err.Error()), nil)
	case stderrors.Is(err, service.ErrPoolState):
		response.JSON(ctx, errors.WithCode(ecode.PoolStateErr, "%s", err.Error()), nil)
	case stderrors.Is(err, service.ErrNotFound), stderrors.Is(err, dao.ErrRecordNotFound):
		response.JSON(ctx, errors.WithCode(ecode.NotFoundErr, ""), nil)
	case stderrors.Is(err, service.ErrStoreUnavailable):
		logger.Error("store unavailable", logger.Pair(consts.RequestId, ctx.GetString(consts.RequestId)), logger.Pair("error", err.Error()))
		response.JSON(ctx, errors.WithCode(ecode.StoreUnavailableErr, ""), nil)
	default:
		logger.Error("request failed",
			logger.Pair(consts.RequestId, ctx.GetString(consts.RequestId)),
			logger.Pair(consts.UserID, UserID(ctx)),
			logger.Pair("path", ctx.Request.URL.Path),
			logger.Pair("error", err.Error()))
		response.JSON(ctx, errors.WithCode(ecode.Unknown, ""), nil)
	}
}
