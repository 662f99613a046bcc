package testutil

import (
	"context"
	"sync"

	"github.com/qs3c/redact_go_server/internal/pkg/tron"
)

// FakeGateway 内存中的链上网关，测试直接设置转账列表和错误
type FakeGateway struct {
	mu        sync.Mutex
	Transfers []tron.Transfer
	Err       error
	CreateErr error
	Fetches   int
	Created   int
}

func (g *FakeGateway) CreateDepositAccount() (*tron.DepositAccount, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.Created++
	return tron.NewDepositAccount()
}

func (g *FakeGateway) FetchRecentTransfers(ctx context.Context, address, contract string, limit int) ([]tron.Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Fetches++
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]tron.Transfer(nil), g.Transfers...), nil
}

// SetTransfers 并发安全地替换转账列表
func (g *FakeGateway) SetTransfers(transfers ...tron.Transfer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Transfers = transfers
}

// FetchCount 并发安全地读取查询次数
func (g *FakeGateway) FetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Fetches
}
