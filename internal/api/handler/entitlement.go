package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/redact_go_server/internal/api/middleware"
	"github.com/qs3c/redact_go_server/internal/model/dto"
	"github.com/qs3c/redact_go_server/internal/pkg/response"
	"github.com/qs3c/redact_go_server/internal/service"
)

type EntitlementHandler struct {
	entitlementService *service.EntitlementService
}

func NewEntitlementHandler(entitlementService *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{
		entitlementService: entitlementService,
	}
}

// Get 获取当前账户额度
// GET /api/v1/entitlements
func (h *EntitlementHandler) Get(c *gin.Context) {
	uid, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	ent, err := h.entitlementService.GetEntitlements(c.Request.Context(), uid)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, ent)
}

// Consume 扣减额度，count 缺省为 1
// POST /api/v1/consume-credit
func (h *EntitlementHandler) Consume(c *gin.Context) {
	uid, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	var req dto.ConsumeCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}

	count := int64(1)
	if req.Count != nil {
		count = *req.Count
	}

	ent, err := h.entitlementService.ConsumeCredits(c.Request.Context(), uid, count, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, ent)
}

// Ledger 最近的额度流水
// GET /api/v1/ledger?limit=20
func (h *EntitlementHandler) Ledger(c *gin.Context) {
	uid, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := h.entitlementService.ListLedger(c.Request.Context(), uid, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, items)
}
