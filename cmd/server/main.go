package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mpcredit/financing-engine/internal/config"
	"github.com/mpcredit/financing-engine/internal/database"
	"github.com/mpcredit/financing-engine/internal/handler"
	"github.com/mpcredit/financing-engine/internal/lock"
	"github.com/mpcredit/financing-engine/internal/logger"
	"github.com/mpcredit/financing-engine/internal/metrics"
	"github.com/mpcredit/financing-engine/internal/repository"
	"github.com/mpcredit/financing-engine/internal/service"
	"github.com/mpcredit/financing-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize repositories
	planRepo := repository.NewPlanRepository(db)
	contractRepo := repository.NewContractRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	contractCache := repository.NewRedisContractCache(redisClient, cfg.Business.CacheTTL)

	var locker lock.Locker
	switch cfg.Business.LockBackend {
	case config.LockBackendRedis:
		locker = lock.NewRedisLocker(redisClient, cfg.Business.LockTTL, cfg.Business.LockWait)
	default:
		locker = lock.NewKeyedMutex()
	}

	recorder := metrics.New()

	// Initialize service
	financingService := service.NewFinancingService(planRepo, contractRepo, paymentRepo, contractCache, locker, recorder, log)
	financingHandler := handler.NewFinancingHandler(financingService, log)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(financingHandler, healthHandler, recorder, log)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":         server.Addr,
			"lock_backend": cfg.Business.LockBackend,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func setupRoutes(financingHandler *handler.FinancingHandler, healthHandler *handler.HealthHandler, recorder *metrics.Recorder, log logrus.FieldLogger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(log), response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", recorder.Handler()).Methods(http.MethodGet)

	financingHandler.RegisterRoutes(router)

	return router
}
