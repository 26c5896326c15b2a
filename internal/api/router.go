package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mnemolab/revise/internal/api/handlers"
	mw "github.com/mnemolab/revise/internal/api/middleware"
	"github.com/mnemolab/revise/internal/classifier"
	"github.com/mnemolab/revise/internal/config"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/service"
	"github.com/mnemolab/revise/internal/store"
	"go.uber.org/zap"
)

// App holds the router and the background sweepers.
type App struct {
	Router       *chi.Mux
	Sweeper      *service.LifecycleSweeper
	Expirer      *service.QueueExpirer
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	tenantStore := store.NewTenantStore(db)
	nodeStore := store.NewNodeStore(db)
	conflictStore := store.NewConflictStore(db)
	eventStore := store.NewEventStore(db)
	edgeStore := store.NewEdgeStore(db)
	archiveStore := store.NewArchiveStore(db)

	// External classifier client via provider factory
	provider := config.ClassifierProvider()
	classifierClient, err := classifier.NewClient(provider, config.ClassifierAPIKey())
	if err != nil {
		logger.Warn("classifier client initialization failed, falling back to mock",
			zap.String("provider", provider), zap.Error(err))
		classifierClient = classifier.NewMockClient()
	} else {
		logger.Info("classifier client initialized", zap.String("provider", provider))
	}

	// Services
	detector := service.NewDetector(service.DefaultDetectorConfig(), classifierClient, logger)
	lifecycleSvc := service.NewLifecycleService(service.DefaultLifecycleConfig(), nodeStore, edgeStore, archiveStore, logger)
	queueSvc := service.NewQueueService(service.DefaultQueueConfig(), conflictStore, logger)
	metricsSvc := service.NewMetricsService(service.DefaultMetricsConfig(), eventStore, logger)
	retrievalSvc := service.NewRetrievalService(service.DefaultRetrievalConfig())
	resolutionSvc := service.NewResolutionService(detector, lifecycleSvc, queueSvc, nodeStore, edgeStore, metricsSvc, logger)
	sweeper := service.NewLifecycleSweeper(lifecycleSvc, tenantStore, logger)
	expirer := service.NewQueueExpirer(queueSvc, tenantStore, logger)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantStore)
	nodeHandler := handlers.NewNodeHandler(nodeStore)
	detectionHandler := handlers.NewDetectionHandler(resolutionSvc)
	conflictHandler := handlers.NewConflictHandler(queueSvc)
	lifecycleHandler := handlers.NewLifecycleHandler(lifecycleSvc, nodeStore)
	retrievalHandler := handlers.NewRetrievalHandler(retrievalSvc)
	metricsHandler := handlers.NewMetricsHandler(metricsSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Sweeper:   sweeper,
		Expirer:   expirer,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Process metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Tenant creation (no auth — bootstrap endpoint)
	r.Post("/v1/tenants", tenantHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(tenantStore))

		r.Put("/tenants/mode", tenantHandler.UpdateMode)

		// Nodes
		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", nodeHandler.Create)
			r.Post("/similar", nodeHandler.Similar)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", nodeHandler.GetByID)
				r.Get("/state", lifecycleHandler.NodeState)
				r.Get("/deletion-eligibility", lifecycleHandler.DeletionEligibility)
				r.Post("/access", lifecycleHandler.RecordAccess)
			})
		})

		// Detection
		r.Post("/detect", detectionHandler.Detect)
		r.Post("/classify", detectionHandler.Classify)

		// Conflict queue
		r.Route("/conflicts", func(r chi.Router) {
			r.Get("/", conflictHandler.ListPending)
			r.Get("/status", conflictHandler.Status)
			r.Get("/prompt", conflictHandler.Prompt)
			r.Post("/expire", conflictHandler.ProcessExpired)
			r.Post("/{id}/resolve", conflictHandler.Resolve)
		})

		// Lifecycle
		r.Post("/lifecycle/sweep", lifecycleHandler.Sweep)

		// Retrieval integration
		r.Route("/retrieval", func(r chi.Router) {
			r.Get("/mode", retrievalHandler.DetectMode)
			r.Get("/mode-config", retrievalHandler.ModeConfig)
			r.Post("/activation", retrievalHandler.Activation)
		})

		// Detection telemetry
		r.Route("/accuracy", func(r chi.Router) {
			r.Get("/weekly", metricsHandler.Weekly)
			r.Post("/feedback", metricsHandler.Feedback)
			r.Get("/training", metricsHandler.Training)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that run their own workers.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.TenantStore      = (*store.TenantStore)(nil)
	_ domain.NodeStore        = (*store.NodeStore)(nil)
	_ domain.ConflictStore    = (*store.ConflictStore)(nil)
	_ domain.EventStore       = (*store.EventStore)(nil)
	_ domain.EdgeIndex        = (*store.EdgeStore)(nil)
	_ domain.ArchiveStore     = (*store.ArchiveStore)(nil)
	_ domain.ClassifierClient = (*classifier.OpenAIClient)(nil)
	_ domain.ClassifierClient = (*classifier.MockClient)(nil)
)
