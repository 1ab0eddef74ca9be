package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wah4pc/interop/internal/config"
	"github.com/wah4pc/interop/internal/domain/translate"
	"github.com/wah4pc/interop/internal/platform/decision"
	"github.com/wah4pc/interop/internal/platform/fhir"
	"github.com/wah4pc/interop/internal/platform/metrics"
	"github.com/wah4pc/interop/internal/platform/middleware"
	"github.com/wah4pc/interop/internal/platform/registry"
	"github.com/wah4pc/interop/internal/platform/router"
	"github.com/wah4pc/interop/internal/platform/toolbox"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "interop-server",
		Short: "Healthcare data translation and routing gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(registryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" && os.Getenv("LOG_JSON") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() && cfg.AIAPIEndpoint == "" {
		logger.Warn().Msg("AI_API_ENDPOINT is not set; every translation will fail at the decision stage")
	}

	// Facility registry, loaded once and shared read-only.
	reg := registry.Load(cfg.RegistryFile, logger)

	// Pipeline components
	m := metrics.New()
	catalog := toolbox.NewCatalog()
	validator := fhir.NewValidator(logger)
	decider := decision.NewClient(decision.Config{
		Endpoint: cfg.AIAPIEndpoint,
		APIKey:   cfg.AIAPIKey,
		Model:    cfg.AIModelName,
		Timeout:  cfg.AITimeout(),
	}, logger)
	forwarder := router.New(reg, cfg.ForwardTimeout(), logger)

	svc := translate.NewService(decider, catalog, validator, forwarder, m, logger)
	handler := translate.NewHandler(svc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	// Health check and metrics stay outside the admission controls.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":     "ok",
			"version":    "0.1.0",
			"facilities": reg.Len(),
			"tools":      catalog.Names(),
		})
	})
	e.GET("/metrics", m.Handler())

	// API group with admission controls
	api := e.Group("/api")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.BodyLimit(cfg.BodyLimit))
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout()))

	handler.RegisterRoutes(api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the facility registry",
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the registry file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			records, warnings, err := registry.Check(file)
			if err != nil {
				return fmt.Errorf("registry check failed: %w", err)
			}

			fmt.Printf("%d facilities in %s\n", len(records), file)
			for _, w := range warnings {
				fmt.Printf("warning: %s\n", w)
			}
			if len(warnings) == 0 {
				fmt.Println("no warnings")
			}
			return nil
		},
	}
	checkCmd.Flags().String("file", "facility_registry.json", "Path to the registry file")
	cmd.AddCommand(checkCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered facilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			records, _, err := registry.Check(file)
			if err != nil {
				return fmt.Errorf("listing registry failed: %w", err)
			}

			fmt.Printf("%-14s %-32s %-10s %s\n", "ID", "NAME", "TYPE", "ENDPOINT")
			fmt.Println("-------------- -------------------------------- ---------- ----------------------------------------")
			for _, rec := range records {
				endpoint := rec.APIEndpoint
				if endpoint == "" {
					endpoint = "(none)"
				}
				fmt.Printf("%-14s %-32s %-10s %s\n", rec.FacilityID, rec.FacilityName, rec.Type, endpoint)
			}
			return nil
		},
	}
	listCmd.Flags().String("file", "facility_registry.json", "Path to the registry file")
	cmd.AddCommand(listCmd)

	return cmd
}
