package ecode

import "net/http"

// 业务错误码
const (
	Success        = 0
	Unknown        = 10000
	ValidateErr    = 10001
	RequireAuthErr = 10002
	NotFoundErr    = 10003
	TooManyReqErr  = 10004
	ForbiddenErr   = 10005

	// 提醒规则
	DuplicateRuleErr = 20001
	QuotaExceededErr = 20002

	// 质押池
	PoolClosedErr     = 30001
	DuplicateStakeErr = 30002
	PoolStateErr      = 30003

	// 存储不可用
	StoreUnavailableErr = 50001
)

var text = map[int]string{
	Success:             "ok",
	Unknown:             "unknown error",
	ValidateErr:         "invalid parameter",
	RequireAuthErr:      "authentication required",
	NotFoundErr:         "not found",
	TooManyReqErr:       "too many requests",
	ForbiddenErr:        "forbidden",
	DuplicateRuleErr:    "alert rule already exists",
	QuotaExceededErr:    "alert quota exceeded",
	PoolClosedErr:       "stake pool is closed",
	DuplicateStakeErr:   "pending stake already exists",
	PoolStateErr:        "stake pool state does not allow this action",
	StoreUnavailableErr: "storage unavailable",
}

func Text(code int) string {
	if s, ok := text[code]; ok {
		return s
	}
	return text[Unknown]
}

// HTTPStatus 错误码对应的 HTTP 状态码
func HTTPStatus(code int) int {
	switch code {
	case Success:
		return http.StatusOK
	case RequireAuthErr:
		return http.StatusUnauthorized
	case ForbiddenErr:
		return http.StatusForbidden
	case NotFoundErr:
		return http.StatusNotFound
	case TooManyReqErr:
		return http.StatusTooManyRequests
	case DuplicateRuleErr, QuotaExceededErr, PoolClosedErr, DuplicateStakeErr, PoolStateErr:
		return http.StatusConflict
	case StoreUnavailableErr:
		return http.StatusServiceUnavailable
	case Unknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
