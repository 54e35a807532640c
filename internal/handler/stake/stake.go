package stake

import (
	"coco/internal/consts"
	"coco/internal/handler"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/errors"
	"coco/pkg/errors/ecode"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
)

type StakeHandler struct {
	service service.StakeService
}

func NewStakeHandler(s service.StakeService) *StakeHandler {
	return &StakeHandler{service: s}
}

// @Summary		质押池状态
// @Param			coinId		query	string	true	"币种"
// @Param			alertType	query	string	true	"migration | delisting | rebrand"
// @Success		200			{object}	response.ApiResponse{data=model.PoolStatusRes}
// @Router			/api/v1/coin-alerts [get]
func (h *StakeHandler) PoolStatus() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		coinId := ctx.Query("coinId")
		alertType := consts.AlertType(ctx.Query("alertType"))
		if coinId == "" || alertType == "" {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "coinId and alertType are required"), nil)
			return
		}
		res, err := h.service.GetPoolStatus(ctx, coinId, alertType)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		提交质押佐证，池已满或已有待裁决质押时返回 409
// @Router			/api/v1/coin-alerts [post]
func (h *StakeHandler) StakeSubmit() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.StakeSubmitReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		userId := handler.UserID(ctx)
		if req.UserID != "" && req.UserID != userId {
			response.Forbidden(ctx)
			return
		}
		st, err := h.service.SubmitStake(ctx, userId, req)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, service.ToStakeRes(*st))
	}
}
