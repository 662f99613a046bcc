package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/internal/api/middleware"
	"github.com/qs3c/redact_go_server/internal/pkg/idtoken"
	"github.com/qs3c/redact_go_server/internal/pkg/pubsub"
	"github.com/qs3c/redact_go_server/internal/pkg/response"
	"github.com/qs3c/redact_go_server/internal/pkg/ws"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	verifier idtoken.Verifier
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, verifier idtoken.Verifier, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// originChecker 未配置来源列表时不限制
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Handle WebSocket 连接处理，浏览器无法设置 header，token 走 query
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}
	if token == "" {
		response.Unauthorized(c, "missing token")
		return
	}

	uid, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		response.Unauthorized(c, "invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &ws.Client{
		AccountID: uid,
		Conn:      conn,
	}
	h.hub.Register(client)

	// 保持连接，读取消息（主要用于检测断开）
	go func() {
		defer h.hub.Unregister(client)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Dispatch 把 redis 上的账户事件推送给对应账户的连接
func (h *WebSocketHandler) Dispatch(event *pubsub.AccountEvent) {
	msg := &ws.Message{Type: event.Type, Data: event}
	if err := h.hub.SendToAccount(event.AccountID, msg); err != nil {
		log.Warn().Err(err).Str("account_id", event.AccountID).Msg("dispatch account event failed")
	}
}
