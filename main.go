package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/sitesage/gateway/internal/api"
	"github.com/sitesage/gateway/internal/client"
	"github.com/sitesage/gateway/internal/config"
	"github.com/sitesage/gateway/internal/db"
	"github.com/sitesage/gateway/internal/middleware"
	"github.com/sitesage/gateway/internal/proxy"
	"github.com/sitesage/gateway/internal/service"
)

func main() {
	// Initialize configuration
	config.LoadEnvFile()
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize statistics (optional: requires MySQL)
	var statsService *service.Stats
	if db.Enabled() {
		log.Println("Initializing database...")
		dbConn, err := db.InitDB()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		log.Println("Database initialized successfully")

		statsService = service.NewStats(dbConn)
		if err := statsService.Start(); err != nil {
			log.Fatalf("Failed to start stats service: %v", err)
		}
	} else {
		log.Println("MYSQL_HOST not set, usage statistics disabled")
	}

	// Backend client used for the gateway's own calls (health probe,
	// lighthouse long-poll)
	apiClient := client.New(cfg.BackendAPIURL,
		client.WithInternalKey(cfg.InternalAPIKey),
		client.WithCacheTTL(cfg.CacheTTL),
	)

	// Initialize Gin router
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Add middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, "/health")
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.RateLimit())
	r.Use(middleware.RouteGuard())
	if statsService != nil {
		r.Use(middleware.Stats(statsService))
	}

	// Health check endpoint
	r.GET("/health", api.HealthHandler(apiClient, cfg.PublicAPIURL))

	// BFF proxy: the browser's only path to the backend
	bff := proxy.New(cfg.BackendAPIURL, cfg.InternalAPIKey)
	r.Any("/api/proxy/*path", bff.Handler())

	// Gateway-owned endpoints
	r.GET("/api/reports/:id/lighthouse", api.LighthouseWaitHandler(cfg.BackendAPIURL, cfg.InternalAPIKey))
	r.GET("/api/session/redirect", api.RedirectHandler())

	// Admin endpoints
	admin := r.Group("/api", middleware.AdminRequired(cfg.AdminUser, cfg.AdminPasswordHash))
	{
		admin.GET("/statistics", api.StatisticsHandler(statsService))
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting gateway on port %s (backend: %s)", cfg.Port, cfg.BackendAPIURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create shutdown context
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Shutdown server gracefully
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Flush and stop the stats service
	if statsService != nil {
		if err := statsService.Stop(); err != nil {
			log.Printf("Failed to stop stats service: %v", err)
		}
	}

	log.Println("Server exited")
}
