package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/redact_go_server/internal/pkg/idtoken"
	"github.com/qs3c/redact_go_server/internal/pkg/response"
)

const (
	AccountIDKey = "accountID"
)

// BearerToken 从 Authorization 头取出 token
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Auth 校验 bearer token，把 uid 写入上下文
func Auth(verifier idtoken.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		uid, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(AccountIDKey, uid)
		c.Next()
	}
}

// GetAccountID 从上下文获取账户 ID
func GetAccountID(c *gin.Context) (string, bool) {
	v, exists := c.Get(AccountIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
