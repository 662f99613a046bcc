package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/redact_go_server/internal/model"
	"github.com/qs3c/redact_go_server/internal/pkg/pubsub"
	"github.com/qs3c/redact_go_server/internal/testutil"
)

func TestEntitlementService_NewAccount(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	ent, err := env.entitlement.GetEntitlements(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, model.PlanFree, ent.Plan)
	assert.True(t, ent.CanUse)
	assert.Equal(t, int64(5), ent.Remaining)
	assert.Equal(t, int64(5), ent.Limit)
	assert.Equal(t, 5, ent.DailyLimit)
	assert.Equal(t, 0, ent.DailyCreditsUsed)
	assert.Nil(t, ent.CurrentPeriodEnd)

	account := testutil.ReloadAccount(t, env.db, "u1")
	assert.Equal(t, testToday, account.LastDailyResetDate)
}

func TestEntitlementService_FreeExhaustion(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	ent, err := env.entitlement.ConsumeCredits(ctx, "u1", 5, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ent.Remaining)
	assert.False(t, ent.CanUse)

	_, err = env.entitlement.ConsumeCredits(ctx, "u1", 1, "")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	account := testutil.ReloadAccount(t, env.db, "u1")
	assert.Equal(t, 5, account.DailyCreditsUsed)

	entries := testutil.LedgerEntries(t, env.db, "u1")
	require.Len(t, entries, 1)
	assert.Equal(t, model.LedgerSpend, entries[0].Type)
	assert.Equal(t, int64(5), entries[0].Amount)
	assert.Equal(t, DefaultConsumeReason, entries[0].Reason)
}

func TestEntitlementService_DailyReset(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	testutil.TestAccount(t, env.db, testutil.WithID("u1"), testutil.WithDailyUsed(5, "2026-10-17"))

	ent, err := env.entitlement.GetEntitlements(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), ent.Remaining)
	assert.Equal(t, 0, ent.DailyCreditsUsed)

	ent, err = env.entitlement.ConsumeCredits(ctx, "u1", 3, "batch")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ent.Remaining)

	account := testutil.ReloadAccount(t, env.db, "u1")
	assert.Equal(t, 3, account.DailyCreditsUsed)
	assert.Equal(t, testToday, account.LastDailyResetDate)
}

func TestEntitlementService_PaidPlan(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	testutil.TestAccount(t, env.db,
		testutil.WithID("u1"),
		testutil.WithPlan(model.PlanPro, 10),
		testutil.WithDailyUsed(5, testToday),
	)

	ent, err := env.entitlement.GetEntitlements(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, ent.Plan)
	assert.Equal(t, int64(10), ent.Remaining)
	assert.Equal(t, int64(10), ent.Limit)
	assert.True(t, ent.CanUse)

	ent, err = env.entitlement.ConsumeCredits(ctx, "u1", 4, "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), ent.Remaining)
	assert.Equal(t, int64(6), ent.CreditsBalance)

	_, err = env.entitlement.ConsumeCredits(ctx, "u1", 7, "")
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, int64(6), testutil.ReloadAccount(t, env.db, "u1").CreditsBalance)
}

func TestEntitlementService_ConsumeInvalidCount(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	for _, count := range []int64{0, -1} {
		_, err := env.entitlement.ConsumeCredits(ctx, "u1", count, "")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.Empty(t, testutil.LedgerEntries(t, env.db, "u1"))
}

func TestEntitlementService_NoDoubleSpend(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	testutil.TestAccount(t, env.db, testutil.WithID("u1"), testutil.WithPlan(model.PlanPro, 3))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.entitlement.ConsumeCredits(ctx, "u1", 1, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, ErrInsufficientCredits) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	assert.Equal(t, 7, rejected)

	account := testutil.ReloadAccount(t, env.db, "u1")
	assert.Equal(t, int64(0), account.CreditsBalance)
	assert.Len(t, testutil.LedgerEntries(t, env.db, "u1"), 3)
}

func TestEntitlementService_GrantCredits(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	t.Run("zero amount is a no-op", func(t *testing.T) {
		require.NoError(t, env.entitlement.GrantCredits(ctx, "u0", 0, "x"))

		var count int64
		env.db.Model(&model.Account{}).Where("id = ?", "u0").Count(&count)
		assert.Zero(t, count)
		assert.Empty(t, testutil.LedgerEntries(t, env.db, "u0"))
	})

	t.Run("positive amount", func(t *testing.T) {
		testutil.TestAccount(t, env.db, testutil.WithID("u1"), testutil.WithDailyUsed(2, testToday))

		require.NoError(t, env.entitlement.GrantCredits(ctx, "u1", 50, ""))

		account := testutil.ReloadAccount(t, env.db, "u1")
		assert.Equal(t, int64(50), account.CreditsBalance)
		assert.Equal(t, model.PlanFree, account.Plan)
		assert.Equal(t, 2, account.DailyCreditsUsed)

		entries := testutil.LedgerEntries(t, env.db, "u1")
		require.Len(t, entries, 1)
		assert.Equal(t, model.LedgerGrant, entries[0].Type)
		assert.Equal(t, DefaultGrantReason, entries[0].Reason)
		assert.Equal(t, 1, env.events.count(pubsub.EventCreditsGranted))
	})
}

func TestEntitlementService_SetPlan(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	err := env.entitlement.SetPlan(ctx, "u1", "enterprise")
	assert.ErrorIs(t, err, ErrInvalidPlan)

	require.NoError(t, env.entitlement.SetPlan(ctx, "u1", model.PlanTeam))

	account := testutil.ReloadAccount(t, env.db, "u1")
	assert.Equal(t, model.PlanTeam, account.Plan)
	require.NotNil(t, account.SubscriptionStatus)
	assert.Equal(t, model.SubscriptionManual, *account.SubscriptionStatus)
	assert.Equal(t, 1, env.events.count(pubsub.EventPlanChanged))
}

func TestEntitlementService_ListLedger(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, env.entitlement.GrantCredits(ctx, "u1", 10, "topup"))
	_, err := env.entitlement.ConsumeCredits(ctx, "u1", 2, "process_image")
	require.NoError(t, err)

	resp, err := env.entitlement.ListLedger(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)

	resp, err = env.entitlement.ListLedger(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)

	resp, err = env.entitlement.ListLedger(ctx, "nobody", 500)
	require.NoError(t, err)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}
