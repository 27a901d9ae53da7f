package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reelforge/internal/adapter/memrepo"
	"reelforge/internal/adapter/repo"
	"reelforge/internal/db"
	"reelforge/internal/domain"
	"reelforge/internal/engine"
	"reelforge/internal/executor"
	httpapi "reelforge/internal/http"
	"reelforge/internal/http/handlers"
	"reelforge/internal/infra"
	"reelforge/internal/media"
	imageprovider "reelforge/internal/providers/image"
	"reelforge/internal/providers/script"
	"reelforge/internal/providers/speech"
	"reelforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	var (
		jobs   domain.JobRepository
		ledger domain.Ledger
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("api: schema migration failed")
		}
		jobs = repo.NewJobRepository(pool)
		ledger = repo.NewLedger(pool)
	} else {
		logger.Warn().Msg("api: DATABASE_URL not set, using in-memory repositories")
		jobs = memrepo.NewJobRepository()
		ledger = memrepo.NewLedger()
	}

	ffmpeg := media.NewFFmpeg()
	if err := ffmpeg.CheckDependencies(); err != nil {
		logger.Warn().Err(err).Msg("api: reel assembly unavailable")
	}

	eng := engine.New(engine.Options{
		Script: script.NewClient(script.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}),
		Speech: speech.NewClient(speech.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAITTSModel,
			Voice:   cfg.OpenAITTSVoice,
			BaseURL: cfg.OpenAIBaseURL,
		}),
		Images: imageprovider.NewClient(imageprovider.Options{
			Token:   cfg.HuggingFaceToken,
			Model:   cfg.HFImageModel,
			BaseURL: cfg.HFBaseURL,
		}),
		Prober:    ffmpeg,
		Assembler: ffmpeg,
		Store:     store,
		Logger:    logger,
	})

	var starter handlers.JobStarter
	if cfg.EnableInlineExecutor {
		starter = executor.New(jobs, ledger, eng, cfg.JobCost, logger)
	} else {
		logger.Info().Msg("api: inline execution disabled, queued jobs are left for the worker")
	}

	app := &handlers.App{
		Jobs:         jobs,
		Ledger:       ledger,
		Store:        store,
		Starter:      starter,
		Packs:        handlers.DefaultCreditPacks,
		MockPayments: cfg.EnableMockPayments,
		Logger:       logger,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(app, logger),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api: listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}
