// Package main is the entry point for the product wall API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/productwall/internal/api"
	"github.com/onnwee/productwall/internal/auth"
	"github.com/onnwee/productwall/internal/catalog"
	"github.com/onnwee/productwall/internal/config"
	"github.com/onnwee/productwall/internal/db"
	"github.com/onnwee/productwall/internal/health"
	"github.com/onnwee/productwall/internal/middleware"
	"github.com/onnwee/productwall/internal/override"
	"github.com/onnwee/productwall/internal/ranking"
	"github.com/onnwee/productwall/internal/stats"
	"github.com/onnwee/productwall/internal/tracing"
	"github.com/onnwee/productwall/internal/wall"
	"github.com/onnwee/productwall/internal/weights"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Product Wall API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	// Scoring calibration. A broken file degrades to the defaults.
	params, err := ranking.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("calibration fell back to defaults", "error", err)
	}
	calc := ranking.NewCalculator(*params)

	// Stores and the ranking service.
	catalogStore := catalog.NewStore(conn, logger)
	weightStore := weights.NewStore(conn, logger)
	overrideStore := override.NewStore(conn, logger)

	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	wallMetrics := wall.NewMetrics()
	if cfg.MetricsEnabled {
		if err := httpMetrics.Register(registry); err != nil {
			return fmt.Errorf("register http metrics: %w", err)
		}
		if err := wallMetrics.Register(registry); err != nil {
			return fmt.Errorf("register wall metrics: %w", err)
		}
	}

	svc := wall.New(catalogStore, weightStore, overrideStore, calc, wallMetrics, logger)

	// Tracing is opt-in.
	traceProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "productwall-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TraceSampleRate,
		InsecureMode: !cfg.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// Rate limit state lives in Redis when configured, so limits hold
	// across replicas. Without Redis each instance counts on its own.
	var (
		limitStore   middleware.RateLimitStore
		redisClient  *redis.Client
		redisChecker api.HealthChecker
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		limitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		limitStore = memStore
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
	}

	globalLimit := middleware.DefaultGlobalLimit()
	writeLimit := middleware.DefaultWriteLimit()
	importLimit := middleware.DefaultImportLimit()
	if cfg.ReadRateLimit > 0 {
		globalLimit.RequestsPerWindow = cfg.ReadRateLimit
	}
	if cfg.WriteRateLimit > 0 {
		writeLimit.RequestsPerWindow = cfg.WriteRateLimit
	}
	if cfg.ImportRateLimit > 0 {
		importLimit.RequestsPerWindow = cfg.ImportRateLimit
	}

	jwtService := auth.NewJWTServiceWithRotation(cfg.GetJWTSecrets())

	curator := api.RequireCurator(jwtService)
	writeLimiter := middleware.RateLimiter(limitStore, writeLimit, middleware.CuratorKeyFunc(), httpMetrics)
	importLimiter := middleware.RateLimiter(limitStore, importLimit, middleware.CuratorKeyFunc(), httpMetrics)

	// Handlers.
	upsertStats := stats.NewUpsertStats()
	productHandlers := api.NewProductHandlers(svc, catalogStore, upsertStats)
	categoryHandlers := api.NewCategoryHandlers(svc, catalogStore)
	weightHandlers := api.NewWeightHandlers(weightStore)
	orderHandlers := api.NewOrderHandlers(svc)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(conn),
		RedisChecker:   redisChecker,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/api/products", productHandlers.HandleProducts)
	mux.Handle("/api/products/import",
		curator(importLimiter(http.HandlerFunc(productHandlers.HandleImport))))

	mux.HandleFunc("/api/categories", categoryHandlers.HandleCategories)

	// The category tree serves public reads plus the curator CSV import.
	categoryTree := http.HandlerFunc(categoryHandlers.HandleCategoryByID)
	guardedImport := curator(importLimiter(categoryTree))
	mux.Handle("/api/categories/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/import") {
			guardedImport.ServeHTTP(w, r)
			return
		}
		categoryTree.ServeHTTP(w, r)
	}))

	// GET /api/weights is public; the write methods need a curator token.
	weightsBase := http.HandlerFunc(weightHandlers.HandleWeights)
	guardedWeights := curator(writeLimiter(weightsBase))
	mux.Handle("/api/weights", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			weightsBase.ServeHTTP(w, r)
			return
		}
		guardedWeights.ServeHTTP(w, r)
	}))
	mux.Handle("/api/weights/reset",
		curator(writeLimiter(http.HandlerFunc(weightHandlers.HandleReset))))
	mux.HandleFunc("/api/weights/history", weightHandlers.HandleHistory)

	mux.Handle("/api/category_order",
		curator(writeLimiter(http.HandlerFunc(orderHandlers.HandleSet))))
	mux.Handle("/api/category_order/bulk",
		curator(importLimiter(http.HandlerFunc(orderHandlers.HandleBulk))))
	mux.Handle("/api/category_order/reset",
		curator(writeLimiter(http.HandlerFunc(orderHandlers.HandleReset))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]string{
			"service": "productwall-api",
			"version": "0.0.1",
		})
	})

	// Middleware chain, outermost first.
	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, globalLimit, middleware.IPKeyFunc(), httpMetrics)(handler)
	if len(cfg.AllowedOrigins) > 0 {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowCredentials: true,
		})(handler)
	}
	if cfg.TracingEnabled {
		handler = middleware.Tracing("productwall-api")(handler)
	}
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     !cfg.IsProduction(),
		Environment: cfg.Env,
	})(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	if err := traceProvider.Shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}

	upsertStats.LogSummary(logger, "products")
	logger.Info("server stopped")
	return nil
}
