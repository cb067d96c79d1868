package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"teamstream/internal/core/services"
	httphandlers "teamstream/internal/handlers/http"
	broadcastredis "teamstream/internal/infrastructure/broadcast/redis"
	"teamstream/internal/infrastructure/broadcast/server"
	"teamstream/internal/infrastructure/middleware"
	"teamstream/internal/infrastructure/monitoring"
	"teamstream/internal/infrastructure/queue"
	redisrepo "teamstream/internal/infrastructure/repositories/redis"
	"teamstream/pkg/circuitbreaker"
	"teamstream/pkg/config"
	"teamstream/pkg/logger"
	"teamstream/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := os.Getenv("TEAMSTREAM_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "teamstream-api",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}
	defer tp.Shutdown(context.Background())

	redisClient, err := broadcastredis.NewClient(
		cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, log)
	if err != nil {
		log.Fatalw("failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()

	collector := monitoring.NewCollector()

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warnw("grant backend circuit state changed", "from", from, "to", to)
	})

	grantStore := broadcastredis.NewGrantStore(redisClient, breaker, log)
	publisher := broadcastredis.NewPublisher(redisClient, log)

	messager := services.NewMessager(publisher, collector, cfg.Messaging.PublishTimeout, log)
	teamGranter := services.NewTeamGranter(grantStore, collector, cfg.Messaging.GrantTTL, cfg.Messaging.GrantTimeout, log)
	streamGranter := services.NewStreamGranter(grantStore, collector, cfg.Messaging.GrantTTL, cfg.Messaging.GrantTimeout, log)

	workQueue, err := queue.New(ctx, cfg, collector, log)
	if err != nil {
		// follow-up jobs are best-effort; run without a queue
		log.Warnw("work queue unavailable, continuing without it", "error", err)
		workQueue = nil
	}
	if workQueue != nil {
		defer workQueue.Close()
	}

	teamRepo := redisrepo.NewRedisTeamRepository(redisClient)
	streamRepo := redisrepo.NewRedisStreamRepository(redisClient)
	userRepo := redisrepo.NewRedisUserRepository(redisClient)

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	teamService := services.NewTeamService(teamRepo, userRepo, teamGranter, messager, workQueue, log)
	streamService := services.NewStreamService(streamRepo, teamRepo, streamGranter, messager, log)
	sessionService := services.NewSessionService(userRepo, grantStore, authService,
		cfg.Messaging.GrantTTL, cfg.Messaging.GrantTimeout, log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	healthHandler := monitoring.NewHealthHandler(redisClient)
	healthHandler.SetupRoutes(router)

	sessionHandler := httphandlers.NewSessionHandler(sessionService)
	sessionHandler.SetupRoutes(router)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	api.Use(middleware.ErrorHandlerMiddleware(log))
	{
		httphandlers.NewTeamHandler(teamService).SetupRoutes(api)
		httphandlers.NewStreamHandler(streamService).SetupRoutes(api)
	}

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Broadcaster: websocket subscribe side on its own listener.
	broadcaster := server.NewWebSocketServer(redisClient, grantStore, authService, server.Config{
		PingInterval:      cfg.Broadcaster.PingInterval,
		PongTimeout:       cfg.Broadcaster.PongTimeout,
		WriteTimeout:      cfg.Broadcaster.WriteTimeout,
		MessagesPerSecond: cfg.Broadcaster.MessagesPerSecond,
		Burst:             cfg.Broadcaster.Burst,
	}, collector, log)

	broadcastMux := http.NewServeMux()
	broadcastMux.HandleFunc("/ws", broadcaster.HandleWebSocket)
	broadcastSrv := &http.Server{
		Addr:    cfg.Broadcaster.Address,
		Handler: broadcastMux,
	}

	apiSrv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 2)
	go func() {
		log.Infof("Starting teamstream API server on %s", cfg.Server.Address)
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	go func() {
		log.Infof("Starting teamstream broadcaster on %s", cfg.Broadcaster.Address)
		if err := broadcastSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	broadcaster.Shutdown()
	if err := broadcastSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during broadcaster shutdown", "error", err)
	}
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during API server shutdown", "error", err)
		if closeErr := apiSrv.Close(); closeErr != nil {
			log.Errorw("error force closing API server", "error", closeErr)
		}
	} else {
		log.Info("API server shutdown gracefully")
	}
}
