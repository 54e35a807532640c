package middleware

import (
	"time"

	"coco/pkg/response"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// RateLimit 按客户端 IP 做令牌桶限流，rps<=0 时不限流
func RateLimit(rps int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters, _ := lru.New(4096)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		var l *rate.Limiter
		if v, ok := limiters.Get(ip); ok {
			l = v.(*rate.Limiter)
		} else {
			l = rate.NewLimiter(rate.Limit(rps), rps*2)
			// 并发的首个请求以先写入的为准
			limiters.ContainsOrAdd(ip, l)
			if v, ok := limiters.Get(ip); ok {
				l = v.(*rate.Limiter)
			}
		}
		if !l.AllowN(time.Now(), 1) {
			response.TooManyRequests(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
