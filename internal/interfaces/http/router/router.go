package router

import (
	"net/http"
	"time"

	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under a versioned API prefix
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds registrars to be mounted by Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup collects the routes of one resource under a prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle registers a route for method
func (dg *DomainGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, path, handlers...)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, path, handlers...)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, path, handlers...)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodDelete, path, handlers...)
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Config holds the engine-wide middleware settings
type Config struct {
	ServiceName    string
	TracingEnabled bool
	RequestTimeout time.Duration
	MaxBodySize    int64
	CORS           middleware.CORSConfig
	TrustedProxies []string
}

// NewEngine creates a gin engine with the standard middleware chain:
// request ID, panic recovery, tracing, access log, security headers, CORS,
// body limit and request timeout.
func NewEngine(cfg Config, log *zap.Logger) (*gin.Engine, error) {
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORS(cfg.CORS),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(middleware.Timeout(cfg.RequestTimeout))
	return engine, nil
}

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Batch         *handler.BatchHandler
	Allocation    *handler.AllocationHandler
	PurchaseOrder *handler.PurchaseOrderHandler
	OrderStage    *handler.OrderStageHandler
	System        *handler.SystemHandler
}

// Groups returns the route groups of the warehouse API
func (h Handlers) Groups() []RouteRegistrar {
	batches := NewDomainGroup("batches", "/batches").
		GET("", h.Batch.List).
		POST("", h.Batch.Import).
		GET("/export", h.Batch.Export).
		GET("/:id", h.Batch.Get)

	movements := NewDomainGroup("movements", "/movements").
		GET("", h.Batch.ListMovements)

	allocations := NewDomainGroup("allocations", "/allocations").
		POST("/plan", h.Allocation.Plan)

	orders := NewDomainGroup("orders", "/orders").
		POST("/:id/allocations", h.Allocation.Fulfill).
		GET("/:id/allocations", h.Allocation.List).
		GET("/:id/allocations/export", h.Allocation.Export).
		DELETE("/:id/allocations", h.Allocation.Reverse)

	purchaseOrders := NewDomainGroup("purchase-orders", "/purchase-orders").
		POST("", h.PurchaseOrder.Create).
		GET("", h.PurchaseOrder.List).
		GET("/:id", h.PurchaseOrder.Get).
		GET("/:id/movements", h.PurchaseOrder.ListMovements).
		POST("/lines/:lineId/receive", h.PurchaseOrder.Receive)

	stages := NewDomainGroup("order-stages", "/order-stages").
		GET("", h.OrderStage.List).
		POST("", h.OrderStage.Add).
		PUT("/order", h.OrderStage.Reorder).
		DELETE("/:code", h.OrderStage.Remove)

	system := NewDomainGroup("system", "").
		GET("/health", h.System.Health)

	return []RouteRegistrar{batches, movements, allocations, orders, purchaseOrders, stages, system}
}

// Mount registers every warehouse route on engine. /health is also served
// at the root for load balancer health checks.
func Mount(engine *gin.Engine, h Handlers) {
	NewRouter(engine, WithAPIVersion("v1")).Register(h.Groups()...).Setup()
	engine.GET("/health", h.System.Health)
}
