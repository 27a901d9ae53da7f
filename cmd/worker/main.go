package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"reelforge/internal/adapter/repo"
	"reelforge/internal/db"
	"reelforge/internal/domain"
	"reelforge/internal/engine"
	"reelforge/internal/executor"
	"reelforge/internal/infra"
	"reelforge/internal/media"
	imageprovider "reelforge/internal/providers/image"
	"reelforge/internal/providers/script"
	"reelforge/internal/providers/speech"
	"reelforge/internal/storage"
)

// creditRetryDelay is how long a job whose debit was rejected stays parked
// before the worker offers it to the ledger again. Parked jobs remain queued;
// the delay keeps the loop from hammering the ledger with a head-of-queue job
// that cannot pay while later jobs wait behind it.
const creditRetryDelay = 30 * time.Second

type jobWorker struct {
	ctx          context.Context
	jobs         domain.JobRepository
	exec         *executor.Executor
	pollInterval time.Duration
	logger       zerolog.Logger
	parked       map[string]time.Time
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("worker: DATABASE_URL is required; queued jobs live in the database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("worker: schema migration failed")
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	ffmpeg := media.NewFFmpeg()
	if err := ffmpeg.CheckDependencies(); err != nil {
		logger.Fatal().Err(err).Msg("worker: missing media dependencies")
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

	jobs := repo.NewJobRepository(pool)
	worker := &jobWorker{
		ctx:          ctx,
		jobs:         jobs,
		exec:         executor.New(jobs, repo.NewLedger(pool), eng, cfg.JobCost, logger),
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	if w.parked == nil {
		w.parked = make(map[string]time.Time)
	}
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.jobs.NextQueued(w.ctx, w.parkedIDs())
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to fetch job")
			}
			w.sleep()
			continue
		}

		w.logger.Info().Str("job_id", job.ID).Str("input_type", string(job.InputType)).Msg("worker: picked job")
		if err := w.exec.Execute(w.ctx, job); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
			if errors.Is(err, domain.ErrInsufficientCredits) {
				// The job stays queued; park it so the jobs behind it get a
				// turn instead of starving.
				w.parked[job.ID] = time.Now().Add(creditRetryDelay)
			}
			w.sleep()
		}
	}
}

// parkedIDs lists jobs still inside their retry delay, dropping expired ones.
func (w *jobWorker) parkedIDs() []string {
	now := time.Now()
	var ids []string
	for id, until := range w.parked {
		if now.After(until) {
			delete(w.parked, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (w *jobWorker) sleep() {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-w.ctx.Done():
	case <-timer.C:
	}
}
