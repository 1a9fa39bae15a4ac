package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/etiya/crm-client/internal/api/docs"
	"github.com/etiya/crm-client/internal/api/handler"
	"github.com/etiya/crm-client/internal/api/middleware"
	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

// Deps are the collaborators the mock API serves.
type Deps struct {
	Auth      ports.AuthGateway
	Tokens    middleware.TokenParser
	Customers ports.CustomerGateway
	Tasks     ports.TaskGateway
	// Probes are checked by /health/ready, keyed by dependency name.
	Probes map[string]handler.Probe
	// Registry receives the HTTP metrics. Nil uses the default registry,
	// which also exposes the metrics package collectors.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))

	metricsCfg := echoprometheus.MiddlewareConfig{Subsystem: "mockapi"}
	handlerCfg := echoprometheus.HandlerConfig{}
	if d.Registry != nil {
		metricsCfg.Registerer = d.Registry
		handlerCfg.Gatherer = d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(metricsCfg))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth)
	customerHandler := handler.NewCustomerHandler(d.Customers)
	taskHandler := handler.NewTaskHandler(d.Tasks)
	healthHandler := handler.NewHealthHandler(d.Probes)
	authMiddleware := middleware.Auth(d.Tokens)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	auth := e.Group("/auth", authMiddleware)
	auth.GET("/me", authHandler.Me)
	auth.POST("/change-password", authHandler.ChangePassword)
	auth.POST("/logout", authHandler.Logout)

	// --- Customers (ADMIN) ---
	customers := e.Group("/customers", authMiddleware, adminOnly)
	customers.GET("", customerHandler.List)
	customers.POST("", customerHandler.Create)
	customers.GET("/:id", customerHandler.Get)
	customers.PUT("/:id", customerHandler.Update)
	customers.DELETE("/:id", customerHandler.Delete)

	// --- Tasks ---
	tasks := e.Group("/tasks", authMiddleware)
	tasks.GET("", taskHandler.List)
	tasks.POST("", taskHandler.Create, adminOnly)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PUT("/:id", taskHandler.Update)
	tasks.PATCH("/:id/status", taskHandler.UpdateStatus)
	tasks.DELETE("/:id", taskHandler.Delete, adminOnly)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerCfg))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger logs one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
