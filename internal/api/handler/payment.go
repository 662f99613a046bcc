package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/redact_go_server/internal/api/middleware"
	"github.com/qs3c/redact_go_server/internal/model/dto"
	"github.com/qs3c/redact_go_server/internal/pkg/response"
	"github.com/qs3c/redact_go_server/internal/service"
)

type PaymentHandler struct {
	depositService *service.DepositService
	paymentService *service.PaymentService
}

func NewPaymentHandler(depositService *service.DepositService, paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		depositService: depositService,
		paymentService: paymentService,
	}
}

// bindPaymentRequest 请求体可为空
func bindPaymentRequest(c *gin.Context) (*dto.PaymentRequest, bool) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	return &req, true
}

// DepositAddress 获取或生成充值地址
// POST /api/v1/deposit-address
func (h *PaymentHandler) DepositAddress(c *gin.Context) {
	uid, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	resp, err := h.depositService.GetOrCreateDepositAddress(c.Request.Context(), uid)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, resp)
}

// Check 只读检查是否到账
// POST /api/v1/payment-check
func (h *PaymentHandler) Check(c *gin.Context) {
	uid, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	req, ok := bindPaymentRequest(c)
	if !ok {
		return
	}

	res, err := h.paymentService.Check(c.Request.Context(), uid, req.TxID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, dto.PaymentCheckResponse{OK: true, Paid: res.Paid, TxID: res.TxID})
}

// Claim 认领到账并升级套餐
// POST /api/v1/payment-claim
func (h *PaymentHandler) Claim(c *gin.Context) {
	uid, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	req, ok := bindPaymentRequest(c)
	if !ok {
		return
	}

	res, err := h.paymentService.Reconcile(c.Request.Context(), uid, req.TxID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, dto.PaymentClaimResponse{OK: true, Paid: res.Paid, Processed: res.Processed, TxID: res.TxID})
}
