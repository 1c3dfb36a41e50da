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

	httpapi "github.com/weatherwise/weatherwise/internal/api/http"
	"github.com/weatherwise/weatherwise/internal/auth"
	"github.com/weatherwise/weatherwise/internal/config"
	"github.com/weatherwise/weatherwise/internal/favorites"
	"github.com/weatherwise/weatherwise/internal/observability"
	"github.com/weatherwise/weatherwise/internal/recents"
	"github.com/weatherwise/weatherwise/internal/scheduler"
	"github.com/weatherwise/weatherwise/internal/session"
	"github.com/weatherwise/weatherwise/internal/storage"
	"github.com/weatherwise/weatherwise/internal/upstream"
	"github.com/weatherwise/weatherwise/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	// Profile state: the persistent key-value store behind session,
	// favorites and recents.
	kv, err := storage.NewFileStore(cfg.StatePath)
	if err != nil {
		log.Fatalf("failed to open profile state: %v", err)
	}

	clientID, err := kv.ClientID()
	if err != nil {
		log.Fatalf("failed to initialize client id: %v", err)
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	sessions := session.NewStore(kv)

	// The auth manager talks to the upstream API through the bare client so
	// its own calls never re-enter the 401 refresh path.
	base := upstream.NewBase(httpClient, cfg.APIBaseURL, clientID)
	authManager := auth.NewManager(base, sessions)
	authManager.OnLogout(func() {
		observability.Info("auth: session expired, profile logged out")
	})

	// Everything else goes through the authenticated wrapper.
	apiClient := upstream.NewClient(base, authManager)

	weatherClient := weather.NewClient(apiClient, cfg.WeatherAPIKey)
	cache := weather.NewSnapshotCache(cfg.CacheMaxAge)
	weatherService := weather.NewService(weatherClient, cache)

	favoritesRegistry := favorites.NewRegistry(kv)
	recentsRegistry := recents.NewRegistry(kv)

	favoritesRegistry.Subscribe(func(favs []string) {
		observability.Debug("favorites updated", "count", len(favs))
	})

	// Background refresh of favorites weather.
	sched := scheduler.New(favoritesRegistry, weatherService, cfg.FetchInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weatherwise",
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

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatherwise",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Auth:            authManager,
		Sessions:        sessions,
		Weather:         weatherService,
		Favorites:       favoritesRegistry,
		Recents:         recentsRegistry,
		DefaultLocation: cfg.DefaultLocation,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			observability.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		observability.Error("error during shutdown", "error", err)
	}
}
