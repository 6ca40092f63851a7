package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/infra/config"
	"github.com/arklim/social-platform-accounts/internal/infra/security"
	"github.com/arklim/social-platform-accounts/internal/transport/http/handlers"
	"github.com/arklim/social-platform-accounts/internal/transport/http/middleware"
	"github.com/arklim/social-platform-accounts/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Accounts     *usecase.AccountService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	JWTManager  *security.JWTManager
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.JWTManager != nil {
		jwksHandler := handlers.NewJWKSHandler(deps.JWTManager)
		r.GET("/.well-known/jwks.json", jwksHandler.Keys)
	}

	api := r.Group("/api/v1")
	{
		isDev := deps.Config.App.Env == "development"

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration, isDev)
		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		accountHandler := handlers.NewAccountHandler(deps.Services.Accounts)

		authGroup := api.Group("/auth")

		registerChain := appendRateLimit(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts, registrationHandler.Register)
		authGroup.POST("/register", registerChain...)

		authGroup.POST("/verify-email", registrationHandler.VerifyEmail)

		resendChain := appendRateLimit(deps, "auth_resend_ip", deps.Config.RateLimit.ResendMaxAttempts, registrationHandler.ResendVerification)
		authGroup.POST("/resend-verification", resendChain...)

		loginChain := appendRateLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts, authHandler.Login)
		authGroup.POST("/login", loginChain...)

		accountGroup := api.Group("/account")
		accountGroup.Use(middleware.RequireAuth(deps.Services.Auth))
		accountGroup.POST("/password", accountHandler.ChangePassword)
		accountGroup.GET("/me", accountHandler.Me)
	}

	handlers.RegisterSwagger(r)

	return r
}

// appendRateLimit prefixes the handler with a sliding-window rule when rate
// limiting is configured for the endpoint.
func appendRateLimit(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule), handler}
}
