package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/railquery/railquery_core/internal/api"
	"github.com/railquery/railquery_core/internal/cache"
	"github.com/railquery/railquery_core/internal/config"
	"github.com/railquery/railquery_core/internal/db"
	"github.com/railquery/railquery_core/internal/engine"
	"github.com/railquery/railquery_core/internal/interpreter"
	"github.com/railquery/railquery_core/internal/middleware"
	"github.com/railquery/railquery_core/internal/query"
	"github.com/railquery/railquery_core/internal/session"
	"github.com/railquery/railquery_core/internal/source"
	"github.com/railquery/railquery_core/internal/transfer"
)

const chatRateLimitPerMinute = 30

func main() {
	log.Println("Starting RailQuery API server...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	checks := map[string]api.HealthChecker{}

	// Segment cache is optional; without Redis every fetch goes to
	// the provider.
	var segmentCache *cache.Cache
	if cfg.Redis.Enabled {
		segmentCache, err = cache.New(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer segmentCache.Close()
		checks["redis"] = segmentCache.HealthCheck
		log.Println("✓ Redis connection established")
	}

	var src *source.Client
	if segmentCache != nil {
		src = source.NewClient(cfg.Provider, segmentCache, cache.SegmentsKey)
	} else {
		src = source.NewClient(cfg.Provider, nil, nil)
	}

	// The curated hub table can live in Postgres; the built-in table
	// covers everything else.
	var hubSource transfer.HubSource = transfer.StaticHubSource{}
	if cfg.Database.Enabled {
		pool, err := db.NewPool(context.Background(), cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		hubSource = db.NewHubStore(pool)
		checks["database"] = func(ctx context.Context) error {
			return db.HealthCheck(ctx, pool)
		}
		log.Println("✓ Database connection established")
	}

	var interp interpreter.Interpreter
	if cfg.Interpreter.Enabled() {
		interp = interpreter.NewClient(cfg.Interpreter)
		log.Println("✓ Interpretation service configured")
	} else {
		log.Println("No interpreter API key, natural-language parsing uses local rules only")
	}

	eng := engine.New(
		query.NewNormalizer(interp),
		src,
		transfer.NewRouter(src, hubSource),
		session.NewStore(cfg.Session.PageSize, cfg.Session.IdleTTL),
		interp,
	)

	app := fiber.New(fiber.Config{
		AppName:      "RailQuery API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	if segmentCache != nil {
		app.Use("/v2/chat", middleware.RateLimit(segmentCache.Client(), chatRateLimitPerMinute))
	}

	api.NewHandler(eng, checks).Register(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", cfg.APIPort)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("💬 Chat endpoint: POST http://localhost%s/v2/chat", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
