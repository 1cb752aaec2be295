package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/api"
	"github.com/Conceptual-Machines/chordsheet-api/internal/cloud"
	"github.com/Conceptual-Machines/chordsheet-api/internal/config"
	"github.com/Conceptual-Machines/chordsheet-api/internal/database"
	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
	"github.com/Conceptual-Machines/chordsheet-api/internal/logger"
	"github.com/Conceptual-Machines/chordsheet-api/internal/metrics"
	"github.com/Conceptual-Machines/chordsheet-api/internal/observability"
	"github.com/Conceptual-Machines/chordsheet-api/internal/recovery"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	ctx := context.Background()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "chordsheet-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	// Database is optional; without it accounts and history are off
	var db *gorm.DB
	if cfg.HasDatabase() {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to connect to database:", err)
		}
		if err := database.Migrate(db); err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to run migrations:", err)
		}
	} else {
		log.Println("⚠️  Database not configured (DATABASE_URL not set), history disabled")
	}

	// Storage for persisted conversions
	path := cfg.StoragePath
	if cfg.StorageBackend == storage.BackendS3 {
		path = cfg.S3Prefix
	}
	store, err := storage.New(ctx, storage.Options{
		Backend:  cfg.StorageBackend,
		Path:     path,
		Region:   cfg.AWSRegion,
		Bucket:   cfg.S3Bucket,
		Compress: cfg.StorageCompress,
		DB:       db,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to open storage:", err)
	}
	defer storage.Close(store)
	log.Printf("💾 Storage backend: %s (compressed: %v)", cfg.StorageBackend, cfg.StorageCompress)
	repo := storage.NewRepository(store)

	// Pipeline events fan out to logs, counters and metrics backends
	bus := events.NewBus()
	logger.Subscribe(bus)

	counters := metrics.NewCounters()
	counters.Subscribe(bus)

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
	} else {
		cloudwatch.Subscribe(bus)
	}
	metrics.NewSentryMetrics().Subscribe(ctx, bus)
	observability.NewConversionTracer(observability.InitializeLangfuse(ctx, cfg)).Subscribe(bus)

	// Conversion engine
	deps := engine.DefaultDeps(bus, repo)
	mode, err := recovery.ParseMode(cfg.RecoveryMode)
	if err != nil {
		log.Fatal("Invalid RECOVERY_MODE:", err)
	}
	deps.RecoveryMode = mode
	target, ok := song.ParseFormat(cfg.DefaultFormat)
	if !ok {
		log.Fatalf("Invalid DEFAULT_FORMAT: %q", cfg.DefaultFormat)
	}
	deps.DefaultTarget = target
	conv, err := engine.New(deps)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to build conversion engine:", err)
	}

	// Cloud providers
	importer := cloud.NewImporter(conv)
	if cfg.LocalImportDir != "" {
		registerProvider(ctx, importer, cloud.NewLocalProvider(cfg.LocalImportDir))
	}
	if cfg.S3Bucket != "" {
		p, err := cloud.NewS3Provider(cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Printf("⚠️  S3 cloud provider unavailable: %v", err)
		} else {
			registerProvider(ctx, importer, p)
		}
	}

	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Deps{
		Config:     cfg,
		Version:    GetVersion(),
		DB:         db,
		Engine:     conv,
		Repository: repo,
		Importer:   importer,
		Counters:   counters,
		CloudWatch: cloudwatch,
	})

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

// registerProvider adds p to the importer once it has authenticated.
func registerProvider(ctx context.Context, im *cloud.Importer, p cloud.Provider) {
	if err := p.Authenticate(ctx); err != nil {
		log.Printf("⚠️  Cloud provider %s unavailable: %v", p.Name(), err)
		return
	}
	im.Register(p)
	log.Printf("☁️  Cloud provider %s ready", p.Name())
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
