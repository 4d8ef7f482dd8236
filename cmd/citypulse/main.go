package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/vashkevichs/citypulse/internal/aggregate"
	httpapi "github.com/vashkevichs/citypulse/internal/api/http"
	"github.com/vashkevichs/citypulse/internal/config"
	"github.com/vashkevichs/citypulse/internal/geocode"
	"github.com/vashkevichs/citypulse/internal/news"
	"github.com/vashkevichs/citypulse/internal/scheduler"
	"github.com/vashkevichs/citypulse/internal/store"
	"github.com/vashkevichs/citypulse/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Persistent stores for recent searches and favorites.
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	// Region lookups go through a bounded memoizing cache. Google reverse
	// geocoding is used when a key is configured, OpenWeatherMap otherwise.
	var reverse geocode.RegionProvider
	if cfg.GoogleAPIKey != "" {
		reverse = geocode.NewGoogleReverse(cfg.GoogleAPIKey)
	} else {
		reverse = geocode.NewOpenWeatherReverse(httpClient, cfg.OpenWeatherAPIKey)
	}
	regionCache := geocode.NewRegionCache(reverse, cfg.RegionCacheTTL, cfg.RegionCacheMax)

	resolver := geocode.NewResolver(httpClient, cfg.OpenWeatherAPIKey)
	weatherClient := weather.NewClient(httpClient, cfg.OpenWeatherAPIKey)
	headlines := news.NewFetcher(httpClient, cfg.NewsLanguage)

	// Core service orchestrating resolution and aggregation.
	service := aggregate.NewService(resolver, regionCache, weatherClient, headlines, st, cfg.HTTPTimeout)

	// Scheduler keeping the region cache bounded.
	sched := scheduler.New(regionCache, cfg.CacheSweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "citypulse",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(httpapi.RequestID())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "citypulse",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, st)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
