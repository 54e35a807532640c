package middleware

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"coco/conf"
	"coco/internal/consts"
	"coco/pkg/jwt"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
)

// 请求头的形式为 Authorization: Bearer token
const authorizationHeader = "Authorization"

// AuthToken 鉴权，解析出用户id放入 context。
// opaque 模式下 Bearer 的内容即用户id；jwt 模式下取 HS256 token 的 sub
func AuthToken(cfg conf.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := getTokenFromHeader(c)
		if err != nil {
			response.RequireAuthErr(c, err)
			c.Abort()
			return
		}
		userId := tokenStr
		if cfg.Mode == "jwt" {
			userId, err = jwt.ParseToken(tokenStr, cfg.JwtSecret)
			if err != nil {
				response.RequireAuthErr(c, err)
				c.Abort()
				return
			}
		}
		c.Set(consts.UserID, userId)
		c.Set(consts.JWTTokenCtx, tokenStr)
		c.Next()
	}
}

// getTokenFromHeader websocket 握手无法自定义请求头时，退回到 token 查询参数
func getTokenFromHeader(c *gin.Context) (string, error) {
	aHeader := c.Request.Header.Get(authorizationHeader)
	if len(aHeader) == 0 {
		if t := c.Query("token"); t != "" {
			return t, nil
		}
		return "", fmt.Errorf("token is empty")
	}
	strs := strings.SplitN(aHeader, " ", 2)
	if len(strs) != 2 || strs[0] != "Bearer" || strings.TrimSpace(strs[1]) == "" {
		return "", fmt.Errorf("token 不符合规则")
	}
	return strings.TrimSpace(strs[1]), nil
}

// AdminToken 管理接口口令校验，未配置口令时一律拒绝
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(consts.AdminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
