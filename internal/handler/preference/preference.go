package preference

import (
	"coco/internal/handler"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
)

type PreferenceHandler struct {
	service service.PreferenceService
}

func NewPreferenceHandler(s service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: s}
}

// @Summary		获取提醒偏好，首次访问时返回默认值
// @Router			/api/v1/notification-preferences [get]
func (h *PreferenceHandler) PreferenceGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		prefs, err := h.service.Get(ctx, handler.UserID(ctx))
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, prefs)
	}
}

// @Summary		局部更新提醒偏好
// @Router			/api/v1/notification-preferences [post]
func (h *PreferenceHandler) PreferenceUpdate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.PreferencesUpdateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		prefs, err := h.service.Update(ctx, handler.UserID(ctx), req)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, prefs)
	}
}
