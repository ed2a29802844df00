package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/routewatch/backend/internal/config"
	"github.com/routewatch/backend/internal/delivery/http"
	"github.com/routewatch/backend/internal/repository/memory"
	"github.com/routewatch/backend/internal/repository/postgres"
	"github.com/routewatch/backend/internal/repository/sqlite"
	"github.com/routewatch/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	log.Printf("Update interval %v, history retention %d days (cleanup is an external concern)",
		cfg.UpdateInterval, cfg.HistoryRetentionDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeStore := openStore(ctx, cfg)
	defer closeStore()

	// Dependency Injection: Services
	routeSvc := service.NewRouteService(cfg.OSRMBaseURL)
	trafficSvc := service.NewTrafficService(cfg.TrafficAPIURL, cfg.TrafficAPIKey)
	tracker := service.NewChangeTracker(repo)
	monitor := service.NewMonitor(
		routeSvc,
		trafficSvc,
		service.NewNameMatcher(),
		service.NewEstimator(),
		tracker,
		repo,
	)

	if cfg.RoutesFile != "" {
		if err := monitor.LoadRoutesFile(ctx, cfg.RoutesFile); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	// Background update loop
	go monitor.Run(ctx, cfg.UpdateInterval)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Traffic Route Monitor v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, monitor, routeSvc, repo)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	monitor.WaitBackground()
	log.Println("Server exited gracefully")
}

// openStore picks the persistence backend: PostgreSQL when DATABASE_URL is
// set, SQLite when SQLITE_PATH is set, in-memory otherwise. A backend that
// fails to come up is logged and skipped rather than fatal.
func openStore(ctx context.Context, cfg *config.Config) (service.MonitorRepository, func()) {
	if cfg.DatabaseURL != "" {
		setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(setupCtx, cfg.DatabaseURL)
		if err == nil {
			store := postgres.NewStore(pool)
			// pgxpool.New does not connect; ping before running DDL.
			if err = store.Health(setupCtx); err == nil {
				err = store.EnsureSchema(setupCtx)
			}
			if err == nil {
				log.Println("Connected to PostgreSQL")
				return store, pool.Close
			}
			pool.Close()
		}
		log.Printf("Warning: Could not use PostgreSQL: %v", err)
	}

	if cfg.SQLitePath != "" {
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err == nil {
			if err = store.Health(ctx); err == nil {
				err = store.EnsureSchema(ctx)
			}
			if err == nil {
				log.Printf("Connected to SQLite database: %s", cfg.SQLitePath)
				return store, func() { store.Close() }
			}
			store.Close()
		}
		log.Printf("Warning: Could not use SQLite: %v", err)
	}

	log.Println("No database configured, running with in-memory store")
	return memory.NewStore(), func() {}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"status": "error",
	})
}
