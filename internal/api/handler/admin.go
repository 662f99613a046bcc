package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/redact_go_server/internal/model/dto"
	"github.com/qs3c/redact_go_server/internal/pkg/response"
	"github.com/qs3c/redact_go_server/internal/service"
)

// AdminHandler 管理接口，鉴权由 AdminSecret 中间件完成
type AdminHandler struct {
	entitlementService *service.EntitlementService
	paymentService     *service.PaymentService
}

func NewAdminHandler(entitlementService *service.EntitlementService, paymentService *service.PaymentService) *AdminHandler {
	return &AdminHandler{
		entitlementService: entitlementService,
		paymentService:     paymentService,
	}
}

// GrantCredits 手动充值
// POST /api/v1/admin/grant-credits
func (h *AdminHandler) GrantCredits(c *gin.Context) {
	var req dto.AdminGrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.entitlementService.GrantCredits(c.Request.Context(), req.UID, req.Amount, req.Reason); err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, dto.OKResponse{OK: true})
}

// SetPlan 手动设置套餐
// POST /api/v1/admin/set-plan
func (h *AdminHandler) SetPlan(c *gin.Context) {
	var req dto.AdminSetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.entitlementService.SetPlan(c.Request.Context(), req.UID, req.Plan); err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, dto.OKResponse{OK: true})
}

// SyncPayment 替用户执行一次对账
// POST /api/v1/admin/sync-payment
func (h *AdminHandler) SyncPayment(c *gin.Context) {
	var req dto.AdminSyncPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.paymentService.Reconcile(c.Request.Context(), req.UID, "")
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, dto.PaymentClaimResponse{OK: true, Paid: res.Paid, Processed: res.Processed, TxID: res.TxID})
}
