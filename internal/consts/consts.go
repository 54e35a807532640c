package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId   = "request_id"
	UserID      = "user_id"
	JWTTokenCtx = "token_ctx"

	// AdminTokenHeader 管理接口鉴权头
	AdminTokenHeader = "X-Admin-Token"

	// SummaryCachePrefix 用户“有生效提醒的币种”缓存
	SummaryCachePrefix = "coco:alert:summary:"
	SummaryCacheTTL    = time.Hour * 6

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"
	ClockLayout  = "15:04"
)

const (
	PlatformIOS     = "iOS"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)
