package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 默认错误消息
var statusMessages = map[int]string{
	http.StatusBadRequest:          "invalid request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusPaymentRequired:     "insufficient credits",
	http.StatusNotFound:            "not found",
	http.StatusInternalServerError: "internal error",
	http.StatusBadGateway:          "payment provider unavailable",
}

// ErrorBody 统一错误结构
type ErrorBody struct {
	Error string `json:"error"`
}

// OK 成功响应，直接输出数据
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 错误响应
func Error(c *gin.Context, status int, message string) {
	if message == "" {
		message = statusMessages[status]
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// BadRequest 参数错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 认证失败
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// PaymentRequired 额度不足
func PaymentRequired(c *gin.Context, message string) {
	Error(c, http.StatusPaymentRequired, message)
}

// BadGateway 上游链服务失败
func BadGateway(c *gin.Context, message string) {
	Error(c, http.StatusBadGateway, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
