package middleware

import (
	"bytes"
	"io"
	"time"

	"coco/internal/consts"
	"coco/pkg/logger"

	"github.com/gin-gonic/gin"
)

// 超过该长度的请求体不打印
const maxLoggedBody = 4096

func Logger(c *gin.Context) {
	// 请求前
	t := time.Now()
	reqPath := c.Request.URL.Path
	reqId := c.GetString(consts.RequestId)
	method := c.Request.Method
	ip := c.ClientIP()

	var body string
	if c.Request.Body != nil && c.Request.ContentLength <= maxLoggedBody {
		requestBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			requestBody = []byte{}
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		body = string(requestBody)
	}

	logger.Info("[Request Start]",
		logger.Pair(consts.RequestId, reqId),
		logger.Pair("host", ip),
		logger.Pair("path", reqPath),
		logger.Pair("method", method),
		logger.Pair("body", body))

	c.Next()
	// 请求后
	latency := time.Since(t)
	logger.Info("[Request End]",
		logger.Pair(consts.RequestId, reqId),
		logger.Pair("path", reqPath),
		logger.Pair("status", c.Writer.Status()),
		logger.Pair("user_id", c.GetString(consts.UserID)),
		logger.Pair("cost", latency))
}
