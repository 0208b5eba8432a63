package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_SetupWithVersion(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("stock", "/stock").
		GET("", func(c *gin.Context) { c.Status(http.StatusOK) }).
		DELETE("/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/stock", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/stock/7", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, "stock", group.Name())
	assert.Equal(t, "/stock", group.Prefix())
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("guarded", "/guarded").
		Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }).
		GET("", func(c *gin.Context) { c.Status(http.StatusOK) })

	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/guarded", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func testHandlers() Handlers {
	return Handlers{
		Batch:         handler.NewBatchHandler(nil, nil),
		Allocation:    handler.NewAllocationHandler(nil, nil),
		PurchaseOrder: handler.NewPurchaseOrderHandler(nil),
		OrderStage:    handler.NewOrderStageHandler(nil),
		System:        handler.NewSystemHandler("warehouse-engine", "test", nil),
	}
}

func TestMount_RegistersWarehouseRoutes(t *testing.T) {
	engine := gin.New()
	Mount(engine, testHandlers())

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /api/v1/batches",
		"POST /api/v1/batches",
		"GET /api/v1/batches/export",
		"GET /api/v1/batches/:id",
		"GET /api/v1/movements",
		"POST /api/v1/allocations/plan",
		"POST /api/v1/orders/:id/allocations",
		"GET /api/v1/orders/:id/allocations",
		"GET /api/v1/orders/:id/allocations/export",
		"DELETE /api/v1/orders/:id/allocations",
		"POST /api/v1/purchase-orders",
		"GET /api/v1/purchase-orders",
		"GET /api/v1/purchase-orders/:id",
		"GET /api/v1/purchase-orders/:id/movements",
		"POST /api/v1/purchase-orders/lines/:lineId/receive",
		"GET /api/v1/order-stages",
		"POST /api/v1/order-stages",
		"PUT /api/v1/order-stages/order",
		"DELETE /api/v1/order-stages/:code",
		"GET /api/v1/health",
		"GET /health",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(Config{
		ServiceName:    "warehouse-engine",
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
		CORS: middleware.CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{http.MethodGet, http.MethodPost},
		},
	}, zap.NewNop())
	require.NoError(t, err)
	Mount(engine, testHandlers())

	t.Run("health carries request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("preflight is answered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/batches", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
