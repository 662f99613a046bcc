package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/pkg/pubsub"
	"github.com/qs3c/redact_go_server/internal/pkg/queue"
	"github.com/qs3c/redact_go_server/internal/pkg/secretbox"
	"github.com/qs3c/redact_go_server/internal/repository"
	"github.com/qs3c/redact_go_server/internal/testutil"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

const testToday = "2026-10-18"

func testConfig() *config.Config {
	return &config.Config{
		Billing: config.BillingConfig{
			PriceUSDT:      "10",
			MonthlyCredits: 1000,
			PeriodDays:     30,
			FreeDailyLimit: 5,
		},
		Tron: config.TronConfig{
			USDTContract:   "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj",
			TokenDecimals:  6,
			TransferWindow: 50,
		},
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*pubsub.AccountEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event *pubsub.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []*queue.SyncMessage
}

func (q *fakeQueue) Push(ctx context.Context, msg *queue.SyncMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

type testEnv struct {
	db          *gorm.DB
	cfg         *config.Config
	gateway     *testutil.FakeGateway
	events      *fakePublisher
	queue       *fakeQueue
	box         *secretbox.Box
	entitlement *EntitlementService
	deposit     *DepositService
	payment     *PaymentService
	ledgerRepo  *repository.LedgerRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()
	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	box, err := secretbox.New("test-key-encryption-secret")
	if err != nil {
		t.Fatalf("secretbox: %v", err)
	}

	env := &testEnv{
		db:         db,
		cfg:        cfg,
		gateway:    &testutil.FakeGateway{},
		events:     &fakePublisher{},
		queue:      &fakeQueue{},
		box:        box,
		ledgerRepo: ledgerRepo,
	}
	env.entitlement = NewEntitlementService(accountRepo, ledgerRepo, env.events, cfg)
	env.entitlement.now = func() time.Time { return fixedNow }
	env.deposit = NewDepositService(accountRepo, env.gateway, box, cfg)
	env.deposit.now = func() time.Time { return fixedNow }
	env.payment = NewPaymentService(accountRepo, ledgerRepo, env.gateway, env.events, env.queue, cfg)
	env.payment.now = func() time.Time { return fixedNow }
	return env
}
