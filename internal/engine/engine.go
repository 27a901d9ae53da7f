// Package engine implements the three-stage generation pipeline: analyze the
// input into reel scripts, generate narration and images per reel, and
// assemble one video artifact per reel. A stage failure aborts all subsequent
// stages for the job.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/media"
	"reelforge/internal/providers"
	"reelforge/internal/retry"
	"reelforge/internal/storage"
)

// ScriptClient is the content/script provider capability: it takes a
// natural-language instruction and returns the provider's raw text output,
// possibly wrapped in decorative fencing.
type ScriptClient interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// SpeechClient is the narration provider capability.
type SpeechClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ImageClient is the image provider capability.
type ImageClient interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

const (
	// scriptAttempts bounds the script-generation call when the provider
	// returns malformed or unparsable output.
	scriptAttempts = 2
	// imageAttempts bounds each image render against transient provider
	// overload.
	imageAttempts = 3
	// imageBackoffBase is multiplied by the attempt index between image
	// render attempts.
	imageBackoffBase = 5 * time.Second

	videoHeight = 1536
	videoFPS    = 30
)

// Options wires the engine's injected capabilities.
type Options struct {
	Script    ScriptClient
	Speech    SpeechClient
	Images    ImageClient
	Prober    media.Prober
	Assembler media.Assembler
	Store     *storage.FileStore
	Logger    zerolog.Logger
	// Sleep overrides the retry wait; tests inject a no-op.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine runs the generation pipeline for one job at a time. It holds no
// per-job state and is safe to share across concurrently executing jobs.
type Engine struct {
	script    ScriptClient
	speech    SpeechClient
	images    ImageClient
	prober    media.Prober
	assembler media.Assembler
	store     *storage.FileStore
	logger    zerolog.Logger

	scriptRetry retry.Policy
	imageRetry  retry.Policy
}

// Input describes one job to run. OutputDir is the job-exclusive namespace
// inside the file store; every artifact key is rooted there.
type Input struct {
	JobID     string
	UserID    string
	InputType domain.JobInputType
	Config    domain.JobConfig
	OutputDir string
}

// New constructs an Engine.
func New(opts Options) *Engine {
	return &Engine{
		script:    opts.Script,
		speech:    opts.Speech,
		images:    opts.Images,
		prober:    opts.Prober,
		assembler: opts.Assembler,
		store:     opts.Store,
		logger:    opts.Logger,
		scriptRetry: retry.Policy{
			MaxAttempts: scriptAttempts,
			Backoff:     retry.None(),
			Retryable:   isMalformedScript,
			Sleep:       opts.Sleep,
		},
		imageRetry: retry.Policy{
			MaxAttempts: imageAttempts,
			Backoff:     retry.Linear(imageBackoffBase),
			Retryable:   providers.IsTemporary,
			Sleep:       opts.Sleep,
		},
	}
}

// Run executes the pipeline. Failures surface as *domain.Failure; the single
// intentional swallow is skipping reels with empty narration in stage two.
func (e *Engine) Run(ctx context.Context, in Input) (*domain.PipelineResult, error) {
	sourceText, err := e.normalizeInput(ctx, in)
	if err != nil {
		return nil, err
	}

	analysis, err := e.analyzeContent(ctx, sourceText)
	if err != nil {
		return nil, err
	}

	scripts, err := e.generateScripts(ctx, analysis)
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("job_id", in.JobID).
		Int("reels", len(scripts)).
		Msg("engine: scripts generated")

	result, err := e.generateAssets(ctx, in, scripts)
	if err != nil {
		return nil, err
	}

	if err := e.assembleReels(ctx, in, result); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("job_id", in.JobID).
		Int("videos", len(result.Videos())).
		Msg("engine: job finished")
	return result, nil
}
