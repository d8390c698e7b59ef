package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/config"
	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/generator"
	"github.com/AndrewDonelson/campaign-studio/internal/handlers"
	"github.com/AndrewDonelson/campaign-studio/internal/middleware"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
	"github.com/AndrewDonelson/campaign-studio/internal/services/ai"
	"github.com/AndrewDonelson/campaign-studio/internal/utils"
	"github.com/AndrewDonelson/campaign-studio/internal/worker"
	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen"
	"github.com/AndrewDonelson/campaign-studio/pkg/logger"
)

func main() {
	fmt.Println("Campaign Studio")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	httpLogger := logger.New(cfg.Environment, cfg.LogLevel)
	log.Info().Str("environment", cfg.Environment).Int("port", cfg.ServerPort).Bool("dev_mode", cfg.AIDevMode).Msg("Starting")

	if err := utils.EnsureDataDirectories(cfg.StoragePath); err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage directories")
	}

	// Initialize database
	if err := database.InitDB(cfg.DBPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	if err := database.SeedLanguages(database.DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed languages")
	}
	if err := database.SeedDemoBriefs(database.DB); err != nil {
		log.Warn().Err(err).Msg("Failed to seed demo briefs")
	}

	runRepo := database.NewRunRepository(database.DB)
	if n, err := runRepo.FailInterrupted("Generation interrupted by server restart"); err != nil {
		log.Warn().Err(err).Msg("Failed to reset interrupted runs")
	} else if n > 0 {
		log.Warn().Int64("runs", n).Msg("Marked interrupted runs as failed")
	}

	if !cfg.AIDevMode && !cfg.HasAPIKey() {
		log.Warn().Msg("OPENAI_API_KEY is not set; generation requests will be rejected")
	}

	// Image and text model clients
	var imageAPI imagegen.API
	if !cfg.AIDevMode && cfg.HasAPIKey() {
		imageAPI = imagegen.NewOpenAIClient(imagegen.ClientConfig{
			APIKey:            cfg.OpenAIAPIKey,
			BaseURL:           cfg.OpenAIBaseURL,
			Model:             cfg.ImageModel,
			RequestsPerMinute: cfg.OpenAIRequestsPerMinute,
		})
	}

	providers := []ai.Provider{ai.MockProvider{}}
	if !cfg.AIDevMode {
		providers = []ai.Provider{ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:            cfg.OpenAIAPIKey,
			BaseURL:           cfg.OpenAIBaseURL,
			Model:             cfg.TranslationModel,
			RequestsPerMinute: cfg.OpenAIRequestsPerMinute,
		})}
	}
	translator := ai.NewTranslationService(providers...)
	log.Info().Strs("providers", translator.AvailableProviders()).Msg("Translation providers ready")

	// Create progress broadcaster for live updates
	broadcaster := services.NewProgressBroadcaster()

	gen := generator.New(database.DB, imageAPI, translator, broadcaster, generator.Config{
		MediaRoot:    cfg.StoragePath,
		DevMode:      cfg.AIDevMode,
		UseOutpaint:  cfg.UseOutpaintMethod,
		CostPerAsset: cfg.CostPerAssetUSD,
	})

	// Create and start the run worker
	runWorker := worker.NewWorker(runRepo, database.NewBriefRepository(database.DB), broadcaster, gen, cfg.WorkerPollInterval)
	go runWorker.Start()
	log.Info().Dur("poll_interval", cfg.WorkerPollInterval).Msg("Run worker started")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(httpLogger))
	// CORS answers preflights before the limiter sees them
	router.Use(middleware.CORS())
	router.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())

	handlers.New(database.DB, gen, broadcaster, cfg).Register(router, cfg.StoragePath)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	runWorker.Stop()

	log.Info().Msg("Shutdown complete")
}
