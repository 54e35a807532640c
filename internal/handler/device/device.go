package device

import (
	"coco/internal/handler"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	service service.DeviceService
}

func NewDeviceHandler(s service.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: s}
}

// @Summary		上报推送 device token
// @Router			/api/v1/devices [post]
func (h *DeviceHandler) DeviceTokenReport() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.DeviceTokenReportReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		if err := h.service.DeviceTokenReport(ctx, handler.UserID(ctx), req); err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}
