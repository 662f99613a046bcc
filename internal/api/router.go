package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/api/handler"
	"github.com/qs3c/redact_go_server/internal/api/middleware"
	"github.com/qs3c/redact_go_server/internal/pkg/idtoken"
)

type Router struct {
	entitlementHandler *handler.EntitlementHandler
	paymentHandler     *handler.PaymentHandler
	adminHandler       *handler.AdminHandler
	websocketHandler   *handler.WebSocketHandler
	verifier           idtoken.Verifier
	cfg                *config.Config
}

func NewRouter(
	entitlementHandler *handler.EntitlementHandler,
	paymentHandler *handler.PaymentHandler,
	adminHandler *handler.AdminHandler,
	websocketHandler *handler.WebSocketHandler,
	verifier idtoken.Verifier,
	cfg *config.Config,
) *Router {
	return &Router{
		entitlementHandler: entitlementHandler,
		paymentHandler:     paymentHandler,
		adminHandler:       adminHandler,
		websocketHandler:   websocketHandler,
		verifier:           verifier,
		cfg:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Observe())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		// WebSocket，token 在 query 中校验
		api.GET("/ws", r.websocketHandler.Handle)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.verifier))
		{
			authenticated.GET("/entitlements", r.entitlementHandler.Get)
			authenticated.POST("/consume-credit", r.entitlementHandler.Consume)
			authenticated.GET("/ledger", r.entitlementHandler.Ledger)

			authenticated.POST("/deposit-address", r.paymentHandler.DepositAddress)
			authenticated.POST("/payment-check", r.paymentHandler.Check)
			authenticated.POST("/payment-claim", r.paymentHandler.Claim)
		}

		// 管理接口
		admin := api.Group("/admin")
		admin.Use(middleware.AdminSecret(r.cfg.Admin.Secret))
		{
			admin.POST("/grant-credits", r.adminHandler.GrantCredits)
			admin.POST("/set-plan", r.adminHandler.SetPlan)
			admin.POST("/sync-payment", r.adminHandler.SyncPayment)
		}
	}

	return engine
}
