package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/api/middleware"
	"github.com/qs3c/redact_go_server/internal/pkg/secretbox"
	"github.com/qs3c/redact_go_server/internal/repository"
	"github.com/qs3c/redact_go_server/internal/service"
	"github.com/qs3c/redact_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testContext 本地测试上下文
type testContext struct {
	DB                 *gorm.DB
	Gateway            *testutil.FakeGateway
	EntitlementService *service.EntitlementService
	DepositService     *service.DepositService
	PaymentService     *service.PaymentService
}

func setupServices(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		Billing: config.BillingConfig{PriceUSDT: "10", MonthlyCredits: 1000, PeriodDays: 30, FreeDailyLimit: 5},
		Tron:    config.TronConfig{USDTContract: "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj", TokenDecimals: 6, TransferWindow: 50},
	}
	box, err := secretbox.New("handler-test-secret")
	require.NoError(t, err)

	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	gateway := &testutil.FakeGateway{}

	return &testContext{
		DB:                 db,
		Gateway:            gateway,
		EntitlementService: service.NewEntitlementService(accountRepo, ledgerRepo, nil, cfg),
		DepositService:     service.NewDepositService(accountRepo, gateway, box, cfg),
		PaymentService:     service.NewPaymentService(accountRepo, ledgerRepo, gateway, nil, nil, cfg),
	}
}

// mockAuth 模拟认证中间件
func mockAuth(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AccountIDKey, uid)
		c.Next()
	}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	return data
}
