package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/vendorhub/internal/handler"
	"github.com/yourorg/vendorhub/internal/infrastructure/logger"
	"github.com/yourorg/vendorhub/internal/infrastructure/redis"
	"github.com/yourorg/vendorhub/internal/observability/metrics"
	"github.com/yourorg/vendorhub/internal/observability/tracing"
	"github.com/yourorg/vendorhub/internal/repository"
	"github.com/yourorg/vendorhub/internal/security/audit"
	"github.com/yourorg/vendorhub/internal/security/auth"
	"github.com/yourorg/vendorhub/internal/security/middleware"
	"github.com/yourorg/vendorhub/internal/security/ratelimit"
	"github.com/yourorg/vendorhub/internal/service"
	"github.com/yourorg/vendorhub/internal/worker"
	"github.com/yourorg/vendorhub/pkg/config"
	"github.com/yourorg/vendorhub/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting VendorHub server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, "vendorhub", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize Postgres pool and schema
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.InitSchema(ctx); err != nil {
		log.Error("failed to initialize schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	db := pool.GetDB()

	// 6. Initialize repositories
	tenantRepo := repository.NewPostgresTenantRepository(db, log)
	userRepo := repository.NewPostgresUserRepository(db, log)
	productRepo := repository.NewPostgresProductRepository(db, log)
	orderRepo := repository.NewPostgresOrderRepository(db, log)
	sessionRepo := repository.NewRedisSessionRepository(redisClient, cfg.RefreshTokenTTL, log)

	// 7. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMin, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Initialize services
	authService := service.NewAuthService(userRepo, tenantRepo, sessionRepo, tokenManager, log)
	catalogService := service.NewCatalogService(productRepo, auditLogger, log)
	orderService := service.NewOrderService(db, orderRepo, auditLogger, log)
	tenantService := service.NewTenantService(tenantRepo, auditLogger, log)

	// 9. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, log)
	productHandler := handler.NewProductHandler(catalogService, log)
	orderHandler := handler.NewOrderHandler(orderService, log)
	tenantHandler := handler.NewTenantHandler(tenantService, log)
	adminHandler := handler.NewAdminHandler(tenantService, cfg.AdminToken, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)

	mux.HandleFunc("GET /api/tenants", tenantHandler.GetOwn)

	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("POST /api/products", productHandler.Create)
	mux.HandleFunc("GET /api/products/{id}", productHandler.Get)
	mux.HandleFunc("PUT /api/products/{id}", productHandler.Update)
	mux.HandleFunc("DELETE /api/products/{id}", productHandler.Delete)

	mux.HandleFunc("GET /api/orders", orderHandler.List)
	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders/my_orders", orderHandler.MyOrders)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.Get)
	mux.HandleFunc("PUT /api/orders/{id}", orderHandler.Update)
	mux.HandleFunc("DELETE /api/orders/{id}", orderHandler.Delete)
	mux.HandleFunc("POST /api/orders/{id}/update_status", orderHandler.UpdateStatus)

	mux.HandleFunc("POST /api/admin/tenants", adminHandler.CreateTenant)
	mux.HandleFunc("GET /api/admin/tenants", adminHandler.ListTenants)
	mux.HandleFunc("GET /api/admin/tenants/{id}", adminHandler.GetTenant)
	mux.HandleFunc("POST /api/admin/tenants/{id}/deactivate", adminHandler.DeactivateTenant)
	mux.HandleFunc("POST /api/admin/tenants/{id}/purge", adminHandler.PurgeTenant)

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Admin-Token")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> tracing -> JWT -> rate limit -> CORS+mux
	// Claims run before the limiter so tenant-keyed windows see the actor.
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			otelhttp.NewHandler(
				middleware.ClaimsExtractor(tokenManager, log)(
					middleware.RateLimit(rateLimiter, log)(
						middleware.ValidateJSONContentType(log)(handlerWithCORS),
					),
				),
				"vendorhub.http",
			),
		),
		log,
	)

	// 11. Start low-stock worker in background
	stockWorker := worker.NewStockWorker(productRepo, log, cfg.StockSweepInterval, cfg.LowStockThreshold)
	go stockWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMin),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop stock worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
