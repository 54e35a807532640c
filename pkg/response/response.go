package response

import (
	"net/http"

	"coco/internal/consts"
	"coco/pkg/errors"
	"coco/pkg/errors/ecode"

	"github.com/gin-gonic/gin"
)

// 代表响应给客户端的的一个消息结构，包括错误码，错误信息，响应数据
type ApiResponse struct {
	RequestId string      `json:"request_id"` // 请求的唯一ID
	Code      int         `json:"code"`       // 错误码 0表示无错误
	Message   string      `json:"message"`    // 提示信息
	Data      interface{} `json:"data"`       // 响应数据
}

// 发送json格式数据，http状态码由错误码决定（冲突类 409，鉴权 401 ...）
func JSON(c *gin.Context, err error, data interface{}) {
	code, message := errors.DecodeErr(err)
	c.JSON(ecode.HTTPStatus(code), ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      code,
		Message:   message,
		Data:      data,
	})
}

// token鉴权失败，返回401
func RequireAuthErr(c *gin.Context, err error) {
	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "unknow error."
	}
	c.JSON(http.StatusUnauthorized, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      ecode.RequireAuthErr,
		Message:   "invalid token:" + message,
		Data:      nil,
	})
}

// 请求频繁，返回429
func TooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      ecode.TooManyReqErr,
		Message:   "The request is too frequent. Please try again later.",
		Data:      nil,
	})
}

// 管理口令错误，返回403
func Forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      ecode.ForbiddenErr,
		Message:   ecode.Text(ecode.ForbiddenErr),
		Data:      nil,
	})
}
