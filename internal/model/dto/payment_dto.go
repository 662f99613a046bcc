package dto

import "encoding/json"

// DepositAddressResponse 充值地址
type DepositAddressResponse struct {
	OK        bool        `json:"ok"`
	Address   string      `json:"address"`
	Chain     string      `json:"chain"`
	Token     string      `json:"token"`
	PriceUSDT json.Number `json:"priceUsdt"`
	Credits   int         `json:"credits"`
}

// PaymentRequest payment-check / payment-claim 请求
type PaymentRequest struct {
	TxID string `json:"txid" binding:"max=100"`
}

// PaymentCheckResponse 只读检查结果
type PaymentCheckResponse struct {
	OK   bool   `json:"ok"`
	Paid bool   `json:"paid"`
	TxID string `json:"txid,omitempty"`
}

// PaymentClaimResponse 认领结果
type PaymentClaimResponse struct {
	OK        bool   `json:"ok"`
	Paid      bool   `json:"paid"`
	Processed bool   `json:"processed"`
	TxID      string `json:"txid,omitempty"`
}
