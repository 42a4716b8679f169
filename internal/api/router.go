package api

import (
	"log"
	"time"

	"alva-backend/internal/config"
	"alva-backend/internal/database"
	"alva-backend/internal/metrics"
	"alva-backend/internal/middleware"
	"alva-backend/internal/nats"
	"alva-backend/internal/repositories"
	"alva-backend/internal/services"
	"alva-backend/pkg/auth"
	"alva-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies carries the optional infrastructure the server wires up.
// Every field except Repos may be nil.
type Dependencies struct {
	Repos   *repositories.Repositories
	DB      *database.DB
	NATS    *nats.Manager
	Redis   *redis.Client
	Metrics *metrics.Metrics
}

// Server represents the API server
type Server struct {
	router *gin.Engine
	config *config.Config
	deps   *Dependencies

	jwtManager *auth.JWTManager
	securityMW *middleware.SecurityMiddleware

	authService      *services.AuthService
	userService      *services.UserService
	accountService   *services.AccountService
	referralService  *services.ReferralService
	copierService    *services.CopierService
	dashboardService *services.DashboardService
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps *Dependencies) *Server {
	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.RefreshSecret,
		time.Duration(cfg.Auth.JWTExpiration)*time.Second,
		time.Duration(cfg.Auth.RefreshExpiration)*time.Second,
	)

	// Initialize OAuth manager
	oauthManager := auth.NewOAuthManager(auth.OAuthConfig{
		Google: auth.GoogleOAuthConfig{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.OAuth.Google.RedirectURL,
		},
		OIDC: auth.OIDCOAuthConfig{
			IssuerURL:    cfg.OAuth.OIDC.IssuerURL,
			ClientID:     cfg.OAuth.OIDC.ClientID,
			ClientSecret: cfg.OAuth.OIDC.ClientSecret,
			RedirectURL:  cfg.OAuth.OIDC.RedirectURL,
		},
	})

	// Broker API key encryption is optional; without it submitted API keys
	// are discarded instead of stored.
	var encryption *security.EncryptionManager
	if cfg.Security.EncryptionKey != "" {
		em, err := security.NewEncryptionManager(cfg.Security.EncryptionKey)
		if err != nil {
			log.Printf("invalid encryption key, broker API keys will not be stored: %v", err)
		} else {
			encryption = em
		}
	}

	var gormDB *gorm.DB
	if deps.DB != nil {
		gormDB = deps.DB.DB
	}
	securityMW := middleware.NewSecurityMiddleware(gormDB, deps.Redis)

	// The NATS manager doubles as the event publisher; services take the
	// interface and tolerate nil.
	var events services.EventPublisher
	if deps.NATS != nil {
		events = deps.NATS
	}

	// Initialize services
	userService := services.NewUserService(deps.Repos, cfg.Referral)
	authService := services.NewAuthService(deps.Repos, userService, jwtManager, oauthManager, securityMW.AuditLogger())
	accountService := services.NewAccountService(deps.Repos, encryption, events)
	referralService := services.NewReferralService(deps.Repos, events)
	copierService := services.NewCopierService(deps.Repos)
	dashboardService := services.NewDashboardService(deps.Repos)

	return &Server{
		config:           cfg,
		deps:             deps,
		jwtManager:       jwtManager,
		securityMW:       securityMW,
		authService:      authService,
		userService:      userService,
		accountService:   accountService,
		referralService:  referralService,
		copierService:    copierService,
		dashboardService: dashboardService,
	}
}

// SetupRoutes sets up all API routes
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()

	// Determine CORS origins based on environment
	var allowedOrigins []string
	if s.config.Environment == "production" {
		allowedOrigins = []string{"https://" + s.config.Referral.Domain}
	} else {
		allowedOrigins = []string{"https://dev." + s.config.Referral.Domain, "http://localhost:3000"}
	}

	// Global middleware
	router.Use(middleware.ErrorLoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(allowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.HealthCheckLoggingMiddleware())
	router.Use(s.securityMW.ThreatDetectionMiddleware())
	router.Use(s.securityMW.AuditMiddleware())
	if s.deps.Metrics != nil {
		router.Use(s.deps.Metrics.HTTPMetricsMiddleware())
	}

	// Health and metrics endpoints (no authentication required)
	s.setupHealthRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	api := router.Group("/api")
	api.Use(middleware.APIRateLimitMiddleware())

	s.setupAuthRoutes(api)
	s.setupPublicReferralRoutes(api)

	// Protected routes (require a session)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(s.jwtManager, s.config.Auth.SessionCookieName))

	s.setupUserRoutes(protected)
	s.setupAccountRoutes(protected)
	s.setupCopierRoutes(protected)
	s.setupReferralRoutes(protected)

	s.router = router
	return router
}

// setupHealthRoutes sets up health check routes
func (s *Server) setupHealthRoutes(router *gin.Engine) {
	healthHandler := NewHealthHandler(s.deps.DB, s.deps.NATS)

	router.GET("/health/live", healthHandler.Live)
	router.GET("/health/ready", healthHandler.Ready)
}

// setupAuthRoutes sets up the login flow and session routes
func (s *Server) setupAuthRoutes(api *gin.RouterGroup) {
	secureCookies := s.config.Environment == "production"
	authHandler := NewAuthHandler(
		s.authService,
		s.config.Auth.SessionCookieName,
		s.config.Auth.JWTExpiration,
		s.config.Auth.RefreshExpiration,
		secureCookies,
	)

	api.GET("/login", middleware.AuthRateLimitMiddleware(), authHandler.Login)
	api.GET("/callback", middleware.AuthRateLimitMiddleware(), authHandler.Callback)
	api.GET("/logout", middleware.AuthMiddleware(s.jwtManager, s.config.Auth.SessionCookieName), authHandler.Logout)
	api.POST("/auth/refresh", middleware.AuthRateLimitMiddleware(), authHandler.Refresh)
}

// setupPublicReferralRoutes sets up the unauthenticated tracking routes
func (s *Server) setupPublicReferralRoutes(api *gin.RouterGroup) {
	referralHandler := NewReferralHandler(s.referralService, s.deps.Metrics)

	tracking := api.Group("/referral-links")
	tracking.Use(middleware.ClickRateLimitMiddleware(s.securityMW.RateLimiter()))

	tracking.POST("/:id/click", referralHandler.TrackClick)
	tracking.POST("/:id/convert", referralHandler.TrackConversion)
}

// setupUserRoutes sets up the current-user and dashboard routes
func (s *Server) setupUserRoutes(protected *gin.RouterGroup) {
	userHandler := NewUserHandler(s.userService)
	dashboardHandler := NewDashboardHandler(s.dashboardService, s.deps.Metrics)

	protected.GET("/user", userHandler.GetCurrentUser)
	protected.GET("/dashboard", dashboardHandler.GetDashboard)
}

// setupAccountRoutes sets up trading account routes
func (s *Server) setupAccountRoutes(protected *gin.RouterGroup) {
	accountHandler := NewTradingAccountHandler(s.accountService, s.deps.Metrics)

	accounts := protected.Group("/trading-accounts")

	accounts.GET("", accountHandler.ListAccounts)
	accounts.POST("", accountHandler.ConnectAccount)
	accounts.PATCH("/:accountId/balance", accountHandler.UpdateBalance)
	accounts.DELETE("/:accountId", accountHandler.DisconnectAccount)
}

// setupCopierRoutes sets up master copier routes
func (s *Server) setupCopierRoutes(protected *gin.RouterGroup) {
	copierHandler := NewCopierHandler(s.copierService)

	copier := protected.Group("/master-copier")

	copier.GET("", copierHandler.ListConnections)
	copier.POST("/connect", copierHandler.Connect)
	copier.PATCH("/:id/status", copierHandler.UpdateStatus)
}

// setupReferralRoutes sets up authenticated referral routes
func (s *Server) setupReferralRoutes(protected *gin.RouterGroup) {
	referralHandler := NewReferralHandler(s.referralService, s.deps.Metrics)

	protected.GET("/referral-earnings", referralHandler.ListEarnings)
	protected.POST("/referral-earnings", referralHandler.CreateEarning)
	protected.GET("/referral-stats", referralHandler.GetStats)
	protected.GET("/referral-links", referralHandler.ListLinks)
	// Same wildcard name as the public tracking routes; gin requires it
	protected.GET("/referral-links/:id", referralHandler.GetLinkByBroker)
	protected.POST("/referral-links", referralHandler.CreateLink)
}

// GetRouter returns the configured router
func (s *Server) GetRouter() *gin.Engine {
	if s.router == nil {
		return s.SetupRoutes()
	}
	return s.router
}
