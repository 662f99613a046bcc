package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/redact_go_server/internal/pkg/response"
)

const AdminSecretHeader = "X-Admin-Secret"

// AdminSecret 管理接口鉴权，未配置密钥时拒绝所有请求
func AdminSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(AdminSecretHeader)
		if secret == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			response.Unauthorized(c, "")
			return
		}
		c.Next()
	}
}
