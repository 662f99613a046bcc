package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/redact_go_server/internal/model"
	"github.com/qs3c/redact_go_server/internal/testutil"
)

func entitlementRouter(tc *testContext, uid string) *gin.Engine {
	h := NewEntitlementHandler(tc.EntitlementService)
	router := gin.New()
	if uid != "" {
		router.Use(mockAuth(uid))
	}
	router.GET("/entitlements", h.Get)
	router.POST("/consume-credit", h.Consume)
	router.GET("/ledger", h.Ledger)
	return router
}

func TestEntitlementHandler_Get(t *testing.T) {
	tc := setupServices(t)
	router := entitlementRouter(tc, "u1")

	w := doJSON(router, "GET", "/entitlements", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w)
	assert.Equal(t, "free", data["plan"])
	assert.Equal(t, true, data["canUse"])
	assert.Equal(t, float64(5), data["remaining"])
	assert.Equal(t, float64(5), data["limit"])
	assert.Equal(t, float64(5), data["dailyLimit"])
	assert.Nil(t, data["currentPeriodEnd"])
	assert.Contains(t, data, "subscriptionStatus")
}

func TestEntitlementHandler_Unauthorized(t *testing.T) {
	tc := setupServices(t)
	router := entitlementRouter(tc, "")

	w := doJSON(router, "GET", "/entitlements", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode(t, w)["error"])
}

func TestEntitlementHandler_ConsumeFlow(t *testing.T) {
	tc := setupServices(t)
	router := entitlementRouter(tc, "u1")

	// 空请求体默认扣 1
	w := doJSON(router, "POST", "/consume-credit", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["remaining"])

	w = doJSON(router, "POST", "/consume-credit", `{"count":4,"reason":"batch"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)
	assert.Equal(t, float64(0), data["remaining"])
	assert.Equal(t, false, data["canUse"])

	w = doJSON(router, "POST", "/consume-credit", `{}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "insufficient credits", decode(t, w)["error"])

	assert.Equal(t, 5, testutil.ReloadAccount(t, tc.DB, "u1").DailyCreditsUsed)
}

func TestEntitlementHandler_ConsumeBadRequest(t *testing.T) {
	tc := setupServices(t)
	router := entitlementRouter(tc, "u1")

	tests := map[string]string{
		"zero count":     `{"count":0}`,
		"negative count": `{"count":-2}`,
		"string count":   `{"count":"one"}`,
		"malformed":      `{"count":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := doJSON(router, "POST", "/consume-credit", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
	assert.Empty(t, testutil.LedgerEntries(t, tc.DB, "u1"))
}

func TestEntitlementHandler_PaidPlan(t *testing.T) {
	tc := setupServices(t)
	testutil.TestAccount(t, tc.DB, testutil.WithID("u1"), testutil.WithPlan(model.PlanPro, 10),
		testutil.WithDailyUsed(5, today()))
	router := entitlementRouter(tc, "u1")

	w := doJSON(router, "POST", "/consume-credit", `{"count":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)
	assert.Equal(t, "pro", data["plan"])
	assert.Equal(t, float64(7), data["remaining"])
	assert.Equal(t, float64(7), data["limit"])
	assert.Equal(t, float64(7), data["creditsBalance"])
}

func TestEntitlementHandler_Ledger(t *testing.T) {
	tc := setupServices(t)
	router := entitlementRouter(tc, "u1")

	doJSON(router, "POST", "/consume-credit", `{"count":2}`)
	doJSON(router, "POST", "/consume-credit", `{"count":1}`)

	w := doJSON(router, "GET", "/ledger", "")
	require.Equal(t, http.StatusOK, w.Code)
	items, ok := decode(t, w)["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 2)

	w = doJSON(router, "GET", "/ledger?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	items = decode(t, w)["items"].([]interface{})
	assert.Len(t, items, 1)

	w = doJSON(router, "GET", "/ledger?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
