package user

import (
	"coco/internal/handler"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// @Summary		当前套餐与提醒配额
// @Produce		json
// @Param			Authorization	header		string	false	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.UserPlanRes}
// @Router			/api/v1/users/plan [get]
func (h *UserHandler) UserGetPlan() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res, err := h.service.UserPlanGet(ctx, handler.UserID(ctx))
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		设置用户套餐（管理接口）
// @Router			/api/v1/admin/users/plan [post]
func (h *UserHandler) UserSetPlan() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.UserPlanSetReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		if err := h.service.UserPlanSet(ctx, req.UserID, req.Plan); err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}
