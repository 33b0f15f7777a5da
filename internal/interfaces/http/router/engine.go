package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/apidoc"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// DocsPath is where the API documentation UI and doc.json are served
const DocsPath = "/swagger"

// EngineConfig holds everything the HTTP engine is assembled from
type EngineConfig struct {
	Logger           *zap.Logger
	HTTP             config.HTTPConfig
	TracingEnabled   bool
	ProfilingEnabled bool
	ServiceName      string
	MeterProvider    *telemetry.MeterProvider
	IdempotencyStore shared.IdempotencyStore
	IdempotencyTTL   time.Duration
	ShopValidator    middleware.ShopValidator
	// TokenValidator enables bearer token authentication of the write routes
	TokenValidator   middleware.TokenValidator
	TokenRevocations auth.RevocationList
	ProductHandler   *handler.ProductWriteHandler
	SystemHandler    *handler.SystemHandler
}

// NewEngine builds the gin engine with the middleware chain and every route.
// /health, /ping and the API documentation sit outside the API group and
// carry no shop scope.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSOrigins

	engine.Use(
		middleware.TracingWithConfig(middleware.TracingConfig{
			Enabled:     cfg.TracingEnabled,
			ServiceName: cfg.ServiceName,
		}),
		middleware.SpanErrorMarker(),
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			Enabled:       cfg.MeterProvider != nil,
			MeterProvider: cfg.MeterProvider,
			Logger:        log,
		}),
		middleware.Profiling(cfg.ProfilingEnabled),
		middleware.Secure(),
		middleware.CORS(corsCfg),
	)

	if cfg.SystemHandler != nil {
		engine.GET("/health", cfg.SystemHandler.Health)
		engine.GET("/ping", cfg.SystemHandler.Ping)
	}

	apidoc.Register()
	engine.GET(DocsPath+"/*any",
		middleware.APIDocsProtection(docsConfig(cfg, log)),
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName(apidoc.InstanceName)),
	)

	var groups []*RouteGroup
	if cfg.SystemHandler != nil {
		groups = append(groups, NewRouteGroup("system", "/system").GET("/info", cfg.SystemHandler.GetSystemInfo))
	}
	if cfg.ProductHandler != nil {
		groups = append(groups, productRoutes(cfg, log))
	}
	for _, r := range Mount(engine, groups...) {
		log.Debug("Route mounted",
			zap.String("group", r.Group),
			zap.String("method", r.Method),
			zap.String("path", r.Path),
		)
	}

	return engine, nil
}

func docsConfig(cfg EngineConfig, log *zap.Logger) middleware.APIDocsConfig {
	docs := middleware.APIDocsConfig{
		Enabled:    cfg.HTTP.DocsEnabled,
		AllowedIPs: cfg.HTTP.DocsAllowedIPs,
	}
	if cfg.HTTP.DocsRequireAuth && cfg.TokenValidator != nil {
		docs.Auth = middleware.ShopAuth(middleware.AuthMiddlewareConfig{
			Validator:   cfg.TokenValidator,
			Revocations: cfg.TokenRevocations,
			Logger:      log,
		})
	}
	return docs
}

func productRoutes(cfg EngineConfig, log *zap.Logger) *RouteGroup {
	shopCfg := middleware.DefaultShopConfig()
	shopCfg.Validator = cfg.ShopValidator
	shopCfg.Logger = log

	group := NewRouteGroup("catalog", "/products")
	if cfg.HTTP.MaxBodySize > 0 {
		group.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if cfg.TokenValidator != nil {
		group.Use(middleware.ShopAuth(middleware.AuthMiddlewareConfig{
			Validator:     cfg.TokenValidator,
			Revocations:   cfg.TokenRevocations,
			RequiredScope: auth.ScopeProductsWrite,
			Logger:        log,
		}))
	}

	h := cfg.ProductHandler
	return group.
		Use(
			middleware.Shop(shopCfg),
			middleware.Idempotency(middleware.IdempotencyConfig{
				Enabled: cfg.IdempotencyStore != nil,
				Store:   cfg.IdempotencyStore,
				TTL:     cfg.IdempotencyTTL,
				Logger:  log,
			}),
		).
		Write(write.ModeCreate, "", h.Create).
		Write(write.ModeUpdate, "", h.Update).
		Write(write.ModeUpsert, "", h.Upsert)
}
