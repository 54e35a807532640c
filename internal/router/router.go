package router

import (
	"coco/conf"
	"coco/internal/handler/admin"
	"coco/internal/handler/alert"
	"coco/internal/handler/device"
	"coco/internal/handler/notification"
	"coco/internal/handler/ping"
	"coco/internal/handler/preference"
	"coco/internal/handler/stake"
	"coco/internal/handler/user"
	"coco/internal/middleware"

	"github.com/gin-gonic/gin"
)

type ApiRouter struct {
	cfg                 conf.Config
	alertHandler        *alert.AlertHandler
	gateway             *alert.Gateway
	notificationHandler *notification.NotificationHandler
	preferenceHandler   *preference.PreferenceHandler
	stakeHandler        *stake.StakeHandler
	adminHandler        *admin.AdminHandler
	deviceHandler       *device.DeviceHandler
	userHandler         *user.UserHandler
}

func NewApiRouter(cfg conf.Config, ah *alert.AlertHandler, gw *alert.Gateway, nh *notification.NotificationHandler,
	ph *preference.PreferenceHandler, sh *stake.StakeHandler, adh *admin.AdminHandler, dh *device.DeviceHandler, uh *user.UserHandler) *ApiRouter {
	return &ApiRouter{
		cfg:                 cfg,
		alertHandler:        ah,
		gateway:             gw,
		notificationHandler: nh,
		preferenceHandler:   ph,
		stakeHandler:        sh,
		adminHandler:        adh,
		deviceHandler:       dh,
		userHandler:         uh,
	}
}

func (api *ApiRouter) Load(g *gin.Engine) {
	g.Use(middleware.RequestId(), middleware.Options(), middleware.Secure(), middleware.Logger)
	g.GET("/ping", ping.Ping())

	base := g.Group("/api/v1", middleware.RateLimit(api.cfg.RateLimitRPS))
	auth := base.Group("", middleware.AuthToken(api.cfg.Auth))

	al := auth.Group("/alerts")
	{
		al.GET("", api.alertHandler.AlertList())
		al.POST("", api.alertHandler.AlertUpsert())
		al.PUT("", api.alertHandler.AlertUpdate())
		al.DELETE("", api.alertHandler.AlertDelete())
		// 看板初始化：用户全部规则
		al.GET("/summary", api.alertHandler.AlertSummaryGet())
		al.PATCH("/summary", api.alertHandler.AlertSummaryCheck())
		// 站内实时通道
		al.GET("/ws", api.gateway.ServeWS)
	}

	n := auth.Group("/notifications")
	{
		n.GET("/pending", api.notificationHandler.PendingList())
		n.DELETE("/pending", api.notificationHandler.PendingPurge())
		n.POST("/ack", api.notificationHandler.Acknowledge())
		n.GET("/history", api.notificationHandler.History())
	}

	auth.GET("/notification-preferences", api.preferenceHandler.PreferenceGet())
	auth.POST("/notification-preferences", api.preferenceHandler.PreferenceUpdate())

	auth.GET("/coin-alerts", api.stakeHandler.PoolStatus())
	auth.POST("/coin-alerts", middleware.AntiDuplicateMiddleware(), api.stakeHandler.StakeSubmit())

	auth.POST("/devices", api.deviceHandler.DeviceTokenReport())
	auth.GET("/users/plan", api.userHandler.UserGetPlan())

	adm := base.Group("/admin", middleware.AdminToken(api.cfg.Auth.AdminToken))
	{
		adm.POST("/coin-alerts/resolve", api.adminHandler.PoolResolve())
		adm.POST("/coin-alerts/archive", api.adminHandler.PoolArchive())
		adm.POST("/users/plan", api.userHandler.UserSetPlan())
	}
}
