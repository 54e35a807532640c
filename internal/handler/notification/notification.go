package notification

import (
	"strconv"
	"time"

	"coco/internal/handler"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/errors"
	"coco/pkg/errors/ecode"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(s service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: s}
}

func toListRes(entries []model.NotificationRes) model.NotificationListRes {
	if entries == nil {
		entries = []model.NotificationRes{}
	}
	return model.NotificationListRes{Notifications: entries, Count: len(entries)}
}

// sameUser 请求中显式带的 userId 必须与鉴权用户一致
func sameUser(ctx *gin.Context, userId string) bool {
	return userId == "" || userId == handler.UserID(ctx)
}

// parseSince recent 支持 unix 秒或 RFC3339
func parseSince(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	sec, err := cast.ToInt64E(v)
	if err != nil || sec <= 0 {
		return nil, errors.WithCode(ecode.ValidateErr, "recent must be a unix timestamp or RFC3339 time")
	}
	t := time.Unix(sec, 0)
	return &t, nil
}

// @Summary		未确认的提醒
// @Param			recent	query		string	false	"只返回该时间之后发送的"
// @Param			limit	query		int		false	"默认 50，最大 200"
// @Success		200		{object}	response.ApiResponse{data=model.NotificationListRes}
// @Router			/api/v1/notifications/pending [get]
func (h *NotificationHandler) PendingList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !sameUser(ctx, ctx.Query("userId")) {
			response.Forbidden(ctx)
			return
		}
		since, err := parseSince(ctx.Query("recent"))
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		limit := cast.ToInt(ctx.Query("limit"))
		entries, err := h.service.ListPending(ctx, handler.UserID(ctx), since, limit)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		res := make([]model.NotificationRes, 0, len(entries))
		for _, e := range entries {
			res = append(res, service.ToNotificationRes(e))
		}
		response.JSON(ctx, nil, toListRes(res))
	}
}

// @Summary		清除某个币种未确认的提醒
// @Router			/api/v1/notifications/pending [delete]
func (h *NotificationHandler) PendingPurge() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.NotificationPurgeReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		if !sameUser(ctx, req.UserID) {
			response.Forbidden(ctx)
			return
		}
		n, err := h.service.PurgeForCoin(ctx, handler.UserID(ctx), req.CoinID)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, model.NotificationCountRes{Count: n})
	}
}

// @Summary		确认单条或某个币种的全部提醒
// @Router			/api/v1/notifications/ack [post]
func (h *NotificationHandler) Acknowledge() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.NotificationAckReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		userId := handler.UserID(ctx)
		var (
			n   int64
			err error
		)
		if req.ID != "" {
			id, perr := strconv.ParseInt(req.ID, 10, 64)
			if perr != nil {
				response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "invalid notification id"), nil)
				return
			}
			n, err = h.service.Acknowledge(ctx, userId, id)
		} else {
			n, err = h.service.AcknowledgeAllForCoin(ctx, userId, req.CoinID)
		}
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, model.NotificationCountRes{Count: n})
	}
}

// @Summary		提醒历史（含已确认）
// @Router			/api/v1/notifications/history [get]
func (h *NotificationHandler) History() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		limit := cast.ToInt(ctx.Query("limit"))
		offset := cast.ToInt(ctx.Query("offset"))
		entries, err := h.service.History(ctx, handler.UserID(ctx), limit, offset)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		res := make([]model.NotificationRes, 0, len(entries))
		for _, e := range entries {
			res = append(res, service.ToNotificationRes(e))
		}
		response.JSON(ctx, nil, toListRes(res))
	}
}
