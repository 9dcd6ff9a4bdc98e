package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/internal/catalog"
	"github.com/adoniasgoesw/filazero/internal/lifecycle"
	"github.com/adoniasgoesw/filazero/internal/orders"
	"github.com/adoniasgoesw/filazero/pkg/config"
	"github.com/adoniasgoesw/filazero/pkg/db/models"
	"github.com/adoniasgoesw/filazero/pkg/enums"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/metrics"
	"github.com/adoniasgoesw/filazero/pkg/orderapi"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

type txRunner struct {
	db *gorm.DB
}

func (t txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type routerFixture struct {
	conn     *gorm.DB
	handler  http.Handler
	registry *prometheus.Registry
	burger   uuid.UUID
	cash     uuid.UUID
	pix      uuid.UUID
}

func newRouterFixture(t *testing.T, dbPinger stubPinger) routerFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	burger := models.Product{Name: "Burger", UnitPrice: decimal.RequireFromString("25.00"), IsActive: true}
	cash := models.PaymentMethod{Name: "Cash", IsActive: true}
	pix := models.PaymentMethod{Name: "Pix", IsActive: true}
	require.NoError(t, conn.Create(&burger).Error)
	require.NoError(t, conn.Create(&cash).Error)
	require.NoError(t, conn.Create(&pix).Error)

	catalogRepo := catalog.NewRepository(conn)
	svc, err := orders.NewService(orders.NewRepository(conn), txRunner{db: conn}, catalogRepo)
	require.NoError(t, err)

	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	registry := prometheus.NewRegistry()
	handler := NewRouter(cfg, logger.Nop(), dbPinger, nil, svc, catalogRepo, metricsHandler, metrics.NewHTTPMetrics(registry))
	return routerFixture{conn: conn, handler: handler, registry: registry, burger: burger.ID, cash: cash.ID, pix: pix.ID}
}

func (f routerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Terminal-Id", "pos-1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestHealthRoutes(t *testing.T) {
	fx := newRouterFixture(t, stubPinger{})

	rec := fx.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Filazero-Env"))

	rec = fx.do(t, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
	assert.NotContains(t, rec.Body.String(), "redis")

	down := newRouterFixture(t, stubPinger{err: errors.New("connection refused")})
	rec = down.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(pkgerrors.CodePersistence), decodeErrorCode(t, rec))
}

func TestMetricsRouteUsesProvidedHandler(t *testing.T) {
	fx := newRouterFixture(t, stubPinger{})
	rec := fx.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics\n", rec.Body.String())
}

func TestOrderRoutes(t *testing.T) {
	fx := newRouterFixture(t, stubPinger{})

	rec := fx.do(t, http.MethodGet, "/api/v1/slots/table-3/order", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), decodeErrorCode(t, rec))

	rec = fx.do(t, http.MethodPost, "/api/v1/slots/TABLE-3/order", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ensured struct {
		Data types.OrderHandle `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ensured))
	assert.Equal(t, "table-03", ensured.Data.Slot)
	assert.Equal(t, enums.OrderStatusOpen, ensured.Data.Status)

	rec = fx.do(t, http.MethodPut, "/api/v1/slots/table-3/order/items", `{"items":[],"bogus":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodPut, "/api/v1/slots/table-3/order/discount", `{"amount":"-1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeInvalidAdjustment), decodeErrorCode(t, rec))

	rec = fx.do(t, http.MethodPut, "/api/v1/slots/table-3/order/discount", `{"amount":"4.50"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/slots/table-03/order", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot struct {
		Data types.OrderSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, ensured.Data.ID, snapshot.Data.ID)
	assert.True(t, snapshot.Data.Discount.Equal(decimal.RequireFromString("4.50")))

	rec = fx.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid/payments", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodDelete, "/api/v1/slots/table-3/order", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodGet, "/api/v1/slots/table-3/order", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	fx := newRouterFixture(t, stubPinger{})

	rec := fx.do(t, http.MethodGet, "/api/v1/catalog/products/"+fx.burger.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Burger"`)

	rec = fx.do(t, http.MethodGet, "/api/v1/catalog/products/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := fmt.Sprintf(`{"method_ids":[%q,%q]}`, fx.cash, fx.pix)
	rec = fx.do(t, http.MethodPost, "/api/v1/payment-methods/composite", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		Data types.PaymentMethod `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Data.Composite)

	rec = fx.do(t, http.MethodPost, "/api/v1/payment-methods/composite", fmt.Sprintf(`{"method_ids":[%q]}`, fx.cash))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTerminalSessionAgainstBackend(t *testing.T) {
	fx := newRouterFixture(t, stubPinger{})
	srv := httptest.NewServer(fx.handler)
	t.Cleanup(srv.Close)

	client, err := orderapi.NewClient(srv.URL)
	require.NoError(t, err)
	controller, err := lifecycle.NewController(lifecycle.Params{
		Orders:     client,
		Catalog:    client,
		Logger:     logger.Nop(),
		TerminalID: "pos-1",
	})
	require.NoError(t, err)

	ctx := context.Background()
	slot, err := types.ParseSlot("counter-7")
	require.NoError(t, err)

	session, res := controller.Open(ctx, slot)
	require.True(t, res.OK, "open: %+v", res)
	require.True(t, session.AddProduct(ctx, fx.burger, nil, 2).OK)

	res = session.Finalize(ctx, lifecycle.FinalizeOptions{})
	require.False(t, res.OK)
	assert.Equal(t, pkgerrors.CodeUnsettledBalance, res.Code)
	assert.True(t, res.RedirectToPayment)

	require.True(t, session.OpenPayment(ctx).OK)
	alloc, res := session.AddAllocation(ctx, fx.cash)
	require.True(t, res.OK, "allocate: %+v", res)
	require.True(t, session.UpdateAllocation(ctx, alloc.LocalID, decimal.RequireFromString("60.00")).OK)

	res = session.Finalize(ctx, lifecycle.FinalizeOptions{})
	require.True(t, res.OK, "finalize: %+v", res)
	assert.Equal(t, enums.OrderStateFinalized, session.State())

	var order models.Order
	require.NoError(t, fx.conn.Where("id = ?", session.OrderID()).First(&order).Error)
	assert.Equal(t, enums.OrderStatusFinalized, order.Status)
	assert.NotNil(t, order.FinalizedAt)

	rows, err := client.ListPayments(ctx, session.OrderID())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, fx.cash, rows[0].MethodID)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("60.00")))

	_, err = client.GetOrder(ctx, "counter-07")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	fx := newRouterFixture(t, stubPinger{})

	fx.do(t, http.MethodPost, "/api/v1/slots/table-7/order", "")
	fx.do(t, http.MethodGet, "/api/v1/slots/table-8/order", "")
	fx.do(t, http.MethodGet, "/nowhere", "")

	families, err := fx.registry.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "filazero_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			route := strings.TrimSuffix(labels["route"], "/")
			key := labels["method"] + " " + route + " " + labels["status"]
			counts[key] += metric.GetCounter().GetValue()
		}
	}

	assert.Equal(t, float64(1), counts["POST /api/v1/slots/{slotId}/order 200"])
	assert.Equal(t, float64(1), counts["GET /api/v1/slots/{slotId}/order 404"])
	assert.Equal(t, float64(1), counts["GET unmatched 404"])
	for key := range counts {
		assert.NotContains(t, key, "table-7", "slot codes must not become label values")
	}
}
