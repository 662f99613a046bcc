package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/redact_go_server/internal/model"
	"github.com/qs3c/redact_go_server/internal/testutil"
)

func testPayment(accountID, txID string) *model.Payment {
	return &model.Payment{
		ID:              model.PaymentID("trc20", txID),
		AccountID:       accountID,
		Chain:           model.ChainTRC20,
		Token:           model.TokenUSDT,
		AmountQuote:     "10",
		AmountBaseUnits: "10000000",
		ToAddress:       "TDeposit",
		FromAddress:     "TPayer",
		TransactionID:   txID,
		Status:          model.PaymentConfirmed,
		CreditsAmount:   1000,
		CreditsReason:   "usdt_trc20_monthly_10",
	}
}

func TestLedgerRepository_Consume_Free(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()
	account := testutil.TestAccount(t, db, testutil.WithDailyUsed(2, testToday))

	require.NoError(t, repo.Consume(ctx, account.ID, 3, "process_image", testToday, 5))

	reloaded := testutil.ReloadAccount(t, db, account.ID)
	assert.Equal(t, 5, reloaded.DailyCreditsUsed)

	entries := testutil.LedgerEntries(t, db, account.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, model.LedgerSpend, entries[0].Type)
	assert.Equal(t, int64(3), entries[0].Amount)
	assert.Equal(t, "process_image", entries[0].Reason)

	err := repo.Consume(ctx, account.ID, 1, "process_image", testToday, 5)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Len(t, testutil.LedgerEntries(t, db, account.ID), 1)
}

func TestLedgerRepository_Consume_FreeResetsStaleDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithDailyUsed(5, "2026-10-17"))

	require.NoError(t, repo.Consume(context.Background(), account.ID, 3, "process_image", testToday, 5))

	reloaded := testutil.ReloadAccount(t, db, account.ID)
	assert.Equal(t, 3, reloaded.DailyCreditsUsed)
	assert.Equal(t, testToday, reloaded.LastDailyResetDate)
}

func TestLedgerRepository_Consume_Paid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()
	account := testutil.TestAccount(t, db, testutil.WithPlan(model.PlanPro, 3))

	require.NoError(t, repo.Consume(ctx, account.ID, 2, "smart_detect", testToday, 5))
	assert.Equal(t, int64(1), testutil.ReloadAccount(t, db, account.ID).CreditsBalance)

	err := repo.Consume(ctx, account.ID, 2, "smart_detect", testToday, 5)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, int64(1), testutil.ReloadAccount(t, db, account.ID).CreditsBalance)
}

func TestLedgerRepository_Consume_CreatesUnknownAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)

	require.NoError(t, repo.Consume(context.Background(), "fresh", 1, "process_image", testToday, 5))

	reloaded := testutil.ReloadAccount(t, db, "fresh")
	assert.Equal(t, model.PlanFree, reloaded.Plan)
	assert.Equal(t, 1, reloaded.DailyCreditsUsed)
}

func TestLedgerRepository_Consume_ConcurrentNoDoubleSpend(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithPlan(model.PlanPro, 7))

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Consume(context.Background(), account.ID, 1, "process_image", testToday, 5)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientCredits):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, succeeded)
	assert.Equal(t, workers-7, rejected)
	assert.Equal(t, int64(0), testutil.ReloadAccount(t, db, account.ID).CreditsBalance)
	assert.Len(t, testutil.LedgerEntries(t, db, account.ID), 7)
}

func TestLedgerRepository_Grant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithDailyUsed(4, "2026-10-01"))

	require.NoError(t, repo.Grant(context.Background(), account.ID, 50, "manual_topup", testToday))

	reloaded := testutil.ReloadAccount(t, db, account.ID)
	assert.Equal(t, int64(50), reloaded.CreditsBalance)
	assert.Equal(t, model.PlanFree, reloaded.Plan)
	assert.Equal(t, 4, reloaded.DailyCreditsUsed)
	assert.Equal(t, "2026-10-01", reloaded.LastDailyResetDate)

	entries := testutil.LedgerEntries(t, db, account.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, model.LedgerGrant, entries[0].Type)
	assert.Equal(t, int64(50), entries[0].Amount)
}

func TestLedgerRepository_ConfirmPayment_OnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()
	account := testutil.TestAccount(t, db)
	periodEnd := time.Date(2026, 11, 17, 0, 0, 0, 0, time.UTC)
	grant := PeriodGrant{Plan: model.PlanPro, PeriodEnd: periodEnd, MonthlyCreditsAllowance: 1000}

	created, err := repo.ConfirmPayment(ctx, testPayment(account.ID, "tx1"), grant, testToday)
	require.NoError(t, err)
	assert.True(t, created)

	reloaded := testutil.ReloadAccount(t, db, account.ID)
	assert.Equal(t, model.PlanPro, reloaded.Plan)
	require.NotNil(t, reloaded.SubscriptionStatus)
	assert.Equal(t, model.SubscriptionActive, *reloaded.SubscriptionStatus)
	require.NotNil(t, reloaded.CurrentPeriodEnd)
	assert.True(t, periodEnd.Equal(*reloaded.CurrentPeriodEnd))
	assert.True(t, periodEnd.Equal(*reloaded.LastGrantedPeriodEnd))

	// 重复确认不会修改账户
	require.NoError(t, db.Model(&model.Account{}).Where("id = ?", account.ID).Update("plan", model.PlanTeam).Error)
	created, err = repo.ConfirmPayment(ctx, testPayment(account.ID, "tx1"), grant, testToday)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.PlanTeam, testutil.ReloadAccount(t, db, account.ID).Plan)

	var count int64
	require.NoError(t, db.Model(&model.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLedgerRepository_GrantPaymentCredits_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()
	account := testutil.TestAccount(t, db)
	payment := testPayment(account.ID, "tx2")
	grant := PeriodGrant{Plan: model.PlanPro, PeriodEnd: time.Now().Add(30 * 24 * time.Hour), MonthlyCreditsAllowance: 1000}

	_, err := repo.ConfirmPayment(ctx, payment, grant, testToday)
	require.NoError(t, err)

	pending, err := repo.ListPendingGrants(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	granted, err := repo.GrantPaymentCredits(ctx, payment.ID, testToday)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = repo.GrantPaymentCredits(ctx, payment.ID, testToday)
	require.NoError(t, err)
	assert.False(t, granted)

	assert.Equal(t, int64(1000), testutil.ReloadAccount(t, db, account.ID).CreditsBalance)
	entries := testutil.LedgerEntries(t, db, account.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "usdt_trc20_monthly_10", entries[0].Reason)

	stored, err := repo.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreditsGranted)
	assert.NotNil(t, stored.CreditsGrantedAt)

	pending, err = repo.ListPendingGrants(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLedgerRepository_GrantPaymentCredits_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)

	_, err := repo.GrantPaymentCredits(context.Background(), "trc20_missing", testToday)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestLedgerRepository_ListEntries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()
	account := testutil.TestAccount(t, db, testutil.WithPlan(model.PlanPro, 0))

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Grant(ctx, account.ID, int64(i), fmt.Sprintf("grant_%d", i), testToday))
	}

	entries, err := repo.ListEntries(ctx, account.ID, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	count, err := repo.CountEntries(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
