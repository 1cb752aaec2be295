package api

import (
	"github.com/Conceptual-Machines/chordsheet-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/chordsheet-api/internal/api/middleware"
	"github.com/Conceptual-Machines/chordsheet-api/internal/cloud"
	"github.com/Conceptual-Machines/chordsheet-api/internal/config"
	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/logger"
	"github.com/Conceptual-Machines/chordsheet-api/internal/metrics"
	"github.com/Conceptual-Machines/chordsheet-api/internal/middleware"
	"github.com/Conceptual-Machines/chordsheet-api/internal/services"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps is what the router wires into handlers. Engine and Config are
// required; DB, Repository, Importer and the metric sinks are optional.
type Deps struct {
	Config     *config.Config
	Version    string
	DB         *gorm.DB
	Engine     *engine.Engine
	Repository *storage.Repository
	Importer   *cloud.Importer
	Counters   *metrics.Counters
	CloudWatch *metrics.Client
}

func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())
	router.Use(apimiddleware.SentryMiddleware())

	var recorders []apimiddleware.APIRecorder
	if d.CloudWatch != nil {
		recorders = append(recorders, d.CloudWatch)
	}
	router.Use(apimiddleware.RequestTracking(recorders...))
	router.Use(apimiddleware.CORS())
	router.Use(apimiddleware.BodyLimit(cfg.MaxInputBytes))

	var store storage.Store
	if d.Repository != nil {
		store = d.Repository.Store()
	}
	healthHandler := handlers.NewHealthHandler(d.DB, store)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(d.Version, d.Counters)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// Account routes need the database and JWT mode.
	if cfg.IsJWTMode() && d.DB != nil {
		auth := router.Group("/api/auth")
		{
			authHandler := handlers.NewAuthHandler(d.DB, cfg)
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/refresh", authHandler.Refresh)

			oauthHandler := handlers.NewOAuthHandler(d.DB, cfg)
			auth.GET("/:provider", oauthHandler.BeginAuth)
			auth.GET("/:provider/callback", oauthHandler.Callback)
		}
	}

	history := services.NewHistoryService(d.DB)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(d))
	{
		convertHandler := handlers.NewConvertHandler(d.Engine, history)
		v1.POST("/convert", convertHandler.Convert)
		v1.POST("/detect", convertHandler.Detect)
		v1.POST("/parse", convertHandler.Parse)
		v1.POST("/transpose", convertHandler.Transpose)
		v1.GET("/formats", convertHandler.Formats)

		v1.POST("/chords/validate", handlers.ValidateChord)
		v1.GET("/keys/:key", handlers.DescribeKey)

		conversionsHandler := handlers.NewConversionsHandler(history, d.Repository)
		v1.GET("/conversions", conversionsHandler.List)
		v1.GET("/conversions/stats", conversionsHandler.Stats)
		v1.GET("/conversions/:id", conversionsHandler.Get)

		if d.Importer != nil {
			cloudHandler := handlers.NewCloudHandler(d.Importer)
			v1.GET("/cloud", cloudHandler.Providers)
			v1.POST("/cloud/:provider/authenticate", cloudHandler.Authenticate)
			v1.GET("/cloud/:provider/files", cloudHandler.Files)
			v1.POST("/cloud/:provider/import", cloudHandler.Import)
		}

		if cfg.IsJWTMode() && d.DB != nil {
			userHandler := handlers.NewUserHandler(history)
			v1.GET("/me", userHandler.GetProfile)
		}
	}

	if cfg.IsJWTMode() && d.DB != nil {
		admin := router.Group("/api/admin")
		admin.Use(middleware.JWTAuth(d.DB, cfg), middleware.AdminRequired())
		{
			conversionsHandler := handlers.NewConversionsHandler(history, d.Repository)
			admin.GET("/conversions", conversionsHandler.ListStored)
		}
	}

	return router
}

// authMiddleware picks the v1 guard from AUTH_MODE. JWT mode without a
// database cannot look users up, so it falls back to anonymous access.
func authMiddleware(d Deps) gin.HandlerFunc {
	switch {
	case d.Config.IsGatewayMode():
		return apimiddleware.GatewayAuth()
	case d.Config.IsJWTMode() && d.DB != nil:
		return middleware.JWTAuth(d.DB, d.Config)
	case d.Config.IsJWTMode():
		logger.Warn("AUTH_MODE=jwt without DATABASE_URL, API runs without authentication", nil)
		return apimiddleware.NoAuth()
	default:
		return apimiddleware.NoAuth()
	}
}
