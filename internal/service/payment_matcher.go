package service

import (
	"strings"

	"github.com/qs3c/redact_go_server/internal/pkg/tron"
)

// Expectation 期望到账的转账
type Expectation struct {
	Address   string
	BaseUnits string
	TxIDHint  string
}

// Matcher 从最近转账中选出满足期望的一笔
type Matcher interface {
	Match(transfers []tron.Transfer, exp Expectation) (*tron.Transfer, bool)
}

// AmountMatcher 收款地址相同（忽略大小写）且金额精确相等，有 txid 提示时还要求 txid 相同，取第一笔
type AmountMatcher struct{}

func (AmountMatcher) Match(transfers []tron.Transfer, exp Expectation) (*tron.Transfer, bool) {
	for i := range transfers {
		t := &transfers[i]
		if !strings.EqualFold(t.To, exp.Address) {
			continue
		}
		if t.Value != exp.BaseUnits {
			continue
		}
		if exp.TxIDHint != "" && t.TransactionID != exp.TxIDHint {
			continue
		}
		return t, true
	}
	return nil, false
}
