package admin

import (
	"coco/internal/handler"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/errors"
	"coco/pkg/errors/ecode"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler 质押池裁决与归档
type AdminHandler struct {
	stakes service.StakeService
}

func NewAdminHandler(s service.StakeService) *AdminHandler {
	return &AdminHandler{stakes: s}
}

// @Summary		裁决已满的质押池
// @Router			/api/v1/admin/coin-alerts/resolve [post]
func (h *AdminHandler) PoolResolve() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.PoolResolveReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		if req.Outcome == "" {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "outcome is required"), nil)
			return
		}
		rewards, err := h.stakes.Resolve(ctx, req.CoinID, req.AlertType, req.Outcome)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		if rewards == nil {
			rewards = []model.StakeRewardEvent{}
		}
		response.JSON(ctx, nil, gin.H{"rewards": rewards})
	}
}

// @Summary		归档已裁决的质押池并开启新周期
// @Router			/api/v1/admin/coin-alerts/archive [post]
func (h *AdminHandler) PoolArchive() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.PoolResolveReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		pool, err := h.stakes.Archive(ctx, req.CoinID, req.AlertType)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, pool)
	}
}
