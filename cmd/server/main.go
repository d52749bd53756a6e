package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syonosuke743/portfolio/internal/config"
	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/modules/adventure"
	"github.com/syonosuke743/portfolio/internal/modules/auth"
	"github.com/syonosuke743/portfolio/internal/modules/health"
	"github.com/syonosuke743/portfolio/pkg/maps"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	pool := connectDB(cfg)
	defer pool.Close()

	places := maps.NewCachedClient(
		maps.NewGoogleClient(cfg.GoogleMapsAPIKey,
			maps.WithBaseURL(cfg.MapsBaseURL),
			maps.WithTimeout(cfg.MapsTimeout),
			maps.WithRateLimit(cfg.MapsRateLimit, cfg.MapsRateBurst),
			maps.WithRecentPlaces(maps.NewRecentPlaces(cfg.RecentPlacesCapacity)),
		),
		cfg.RouteCacheTTL,
	)

	var verifier auth.IdentityVerifier
	if cfg.GoogleClientID != "" {
		verifier = auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}
	authSvc := auth.NewService(auth.NewRepository(pool), verifier, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	adventureSvc := adventure.NewService(adventure.NewRepository(pool), places, maps.NewTimeSeededRandomizer())
	requireAuth := auth.Middleware(cfg.JWTSecret)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	health.NewHandler(pool).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	auth.NewHandler(authSvc).RegisterRoutes(api.Group("/auth"), requireAuth)
	adventure.NewHandler(adventureSvc).RegisterRoutes(api.Group("/adventures", requireAuth))

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.ServerPort).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("shutting down server")

	// Adventure creation runs detached from the request context; give
	// in-flight pipelines time to finish before the pool closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func connectDB(cfg *config.Config) *pgxpool.Pool {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to parse DATABASE_URL")
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBMaxConns
	}
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create connection pool")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	logging.Info().Msg("connected to database")
	return pool
}
