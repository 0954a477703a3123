// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"bloomledger/internal/app"
	"bloomledger/internal/config"
	"bloomledger/internal/infrastructure/http/v1/handlers"
	"bloomledger/internal/infrastructure/http/v1/middleware"
	"bloomledger/internal/infrastructure/idempotency"
	"bloomledger/internal/infrastructure/metrics"
	"bloomledger/internal/infrastructure/storage"
	"bloomledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger    *logger.Logger
	Services  *app.Services
	Backend   *storage.Backend
	Validator middleware.TokenValidator

	// Idempotency is nil when X-Idempotency-Key handling is off.
	Idempotency idempotency.Store
	// Metrics is nil when metrics are off.
	Metrics *metrics.Collector
	// RateLimiter is nil when rate limiting is off.
	RateLimiter *middleware.RateLimiter

	CORS         config.CORSConfig
	HealthChecks map[string]handlers.Checker
	Development  bool
}

// NewRouter creates and configures the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORS))
	}
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
		router.GET("/metrics", cfg.Metrics.Handler())
	}

	healthHandler := handlers.NewHealthHandler(cfg.Backend, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Validator))
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerOrderRoutes(api.Group("/orders"), handlers.NewOrderHandler(base, cfg.Services.Orders, cfg.Services.Audit))
	registerItemRoutes(api.Group("/items"), handlers.NewItemHandler(base, cfg.Services.Items))
	registerStockRoutes(api.Group("/stock"), handlers.NewStockHandler(base, cfg.Services.Ledger))
	registerCustomerRoutes(api.Group("/customers"), handlers.NewCustomerHandler(base, cfg.Services.Customers))
	registerCRUDRoutes(api.Group("/partners"), handlers.NewPartnerHandler(base, cfg.Services.Partners))
	registerCRUDRoutes(api.Group("/expenses"), handlers.NewExpenseHandler(base, cfg.Services.Expenses))

	return router
}

func registerOrderRoutes(g *gin.RouterGroup, h *handlers.OrderHandler) {
	g.POST("", h.Place)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.PATCH("/:id/payment", h.UpdatePayment)
	g.POST("/:id/cancel", h.Cancel)
	g.GET("/:id/history", h.History)
}

func registerItemRoutes(g *gin.RouterGroup, h *handlers.ItemHandler) {
	g.POST("/import", h.Import)
	g.GET("/export", h.Export)
	registerCRUDRoutes(g, h)
}

func registerStockRoutes(g *gin.RouterGroup, h *handlers.StockHandler) {
	g.POST("/adjust", h.Adjust)
	g.GET("/history", h.History)
	g.GET("/history/export", h.ExportHistory)
}

func registerCustomerRoutes(g *gin.RouterGroup, h *handlers.CustomerHandler) {
	g.GET("/lookup", h.Lookup)
	g.POST("/import", h.Import)
	g.POST("/:id/points", h.AdjustPoints)
	g.GET("/:id/points", h.PointHistory)
	registerCRUDRoutes(g, h)
}

// crudHandler is implemented by every resource with plain CRUD routes.
type crudHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

func registerCRUDRoutes(g *gin.RouterGroup, h crudHandler) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
