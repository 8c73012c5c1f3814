package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamgate/internal/core/services"
	httphandlers "streamgate/internal/handlers/http"
	"streamgate/internal/infrastructure/geoip"
	"streamgate/internal/infrastructure/heartbeat"
	"streamgate/internal/infrastructure/middleware"
	"streamgate/internal/infrastructure/monitoring"
	repositories "streamgate/internal/infrastructure/repositories"
	"streamgate/pkg/config"
	"streamgate/pkg/distributed"
	"streamgate/pkg/logger"
	"streamgate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/streamgate/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "streamgate",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Stores
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	sessionRepo := repoFactory.CreateSessionRepository()
	deviceRepo := repoFactory.CreateDeviceRepository()
	subscriptionStore := repositories.NewSubscriptionStore(cfg)
	videoCatalog := repositories.NewVideoCatalog(cfg)

	collector := monitoring.NewPrometheusCollector()

	// Core services
	signer, err := services.NewSigner(cfg.DRM.SigningSecret)
	if err != nil {
		log.Fatalw("failed to create signer", "error", err)
	}
	tokenService, err := services.NewTokenService(cfg.DRM.SigningSecret, cfg.DRM.TokenTTL)
	if err != nil {
		log.Fatalw("failed to create token service", "error", err)
	}
	signedURLService, err := services.NewSignedURLService(signer, cfg.DRM.PlaybackBaseURL, collector)
	if err != nil {
		log.Fatalw("failed to create signed URL service", "error", err)
	}

	geoResolver := geoip.NewHTTPResolver(
		cfg.Geolocation.Endpoint,
		cfg.Geolocation.Timeout,
		cfg.Geolocation.CacheTTL,
		log,
	)

	validator := services.NewAccessValidator(
		services.ValidatorConfig{
			EnableGeoblocking:   cfg.DRM.EnableGeoblocking,
			GeoFailClosed:       cfg.DRM.GeoFailClosed,
			EnableDeviceBinding: cfg.DRM.EnableDeviceBinding,
			DeviceBindingCap:    cfg.DRM.DeviceBindingCap,
		},
		tokenService,
		subscriptionStore,
		videoCatalog,
		geoResolver,
		deviceRepo,
		sessionRepo,
		collector,
		log,
	)

	sessionService := services.NewSessionService(
		sessionRepo,
		cfg.DRM.IdleTimeout,
		cfg.DRM.ReservationGrace,
		collector,
		log,
	)
	accessService := services.NewAccessService(tokenService, validator)
	deviceService := services.NewDeviceService(deviceRepo, cfg.DRM.DeviceBindingCap)

	// Sweep, serialized across instances when Redis is available
	var lockManager *distributed.LockManager
	if client := repoFactory.RedisClient(); client != nil {
		lockManager = distributed.NewLockManager(client, "streamgate:lock:")
	}
	sweeper := services.NewSweeper(sessionService, cfg.DRM.SweepInterval, lockManager, log)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	// Health checks
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddSessionRegistryCheck(sessionRepo, 30*time.Second, 2*time.Second)
	if client := repoFactory.RedisClient(); client != nil {
		healthChecker.AddRedisCheck(client, 30*time.Second, 2*time.Second)
	}

	// Heartbeat websocket channel
	wsServer := heartbeat.NewWebSocketServer(sessionService, log)

	// HTTP surface
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	accessHandler := httphandlers.NewAccessHandler(accessService, sessionService, signedURLService, cfg.DRM.SignedURLTTL)
	sessionHandler := httphandlers.NewSessionHandler(sessionService)
	deviceHandler := httphandlers.NewDeviceHandler(deviceService)
	internalHandler := httphandlers.NewInternalHandler(subscriptionStore, videoCatalog)

	accessHandler.SetupRoutes(router)
	sessionHandler.SetupRoutes(router)
	deviceHandler.SetupRoutes(router)
	internalHandler.SetupRoutes(router)

	router.GET("/ws/heartbeat", gin.WrapF(wsServer.HandleWebSocket))

	router.GET("/health", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status.Status,
			"timestamp": status.Timestamp,
			"checks":    status.Checks,
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("starting streamgate API server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down streamgate API server...")
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer provider", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}

	log.Info("streamgate API server stopped")
}
