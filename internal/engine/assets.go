package engine

import (
	"context"
	"fmt"
	"path"
	"strings"

	"reelforge/internal/domain"
)

type visualPlan struct {
	Images []domain.ImagePrompt `json:"images"`
}

// generateAssets synthesizes narration audio and renders the planned images
// for every reel with non-empty narration. Reels with empty narration are
// silently skipped; this is the pipeline's only intentional swallow.
func (e *Engine) generateAssets(ctx context.Context, in Input, scripts []domain.ReelScript) (*domain.PipelineResult, error) {
	result := &domain.PipelineResult{}
	for idx, script := range scripts {
		reel := domain.ReelResult{Index: idx + 1, Script: script}
		if strings.TrimSpace(script.Narration) == "" {
			reel.Skipped = true
			e.logger.Info().
				Str("job_id", in.JobID).
				Int("reel", reel.Index).
				Msg("engine: reel has no narration, skipping")
			result.Reels = append(result.Reels, reel)
			continue
		}

		audioKey, err := e.synthesizeNarration(ctx, in, reel.Index, script.Narration)
		if err != nil {
			return nil, err
		}
		reel.AudioKey = audioKey

		plan, err := e.planVisuals(ctx, script)
		if err != nil {
			return nil, err
		}

		imageKeys, err := e.renderImages(ctx, in, reel.Index, plan)
		if err != nil {
			return nil, err
		}
		reel.ImageKeys = imageKeys

		result.Reels = append(result.Reels, reel)
	}
	return result, nil
}

// synthesizeNarration is a single attempt; any non-success response is an
// immediate system fault with no retry.
func (e *Engine) synthesizeNarration(ctx context.Context, in Input, reelIndex int, narration string) (string, error) {
	audio, err := e.speech.Synthesize(ctx, narration)
	if err != nil {
		return "", domain.SystemFailureWrap(err, "narration synthesis failed for reel %d", reelIndex)
	}
	key := path.Join(in.OutputDir, fmt.Sprintf("reels/%02d/narration.mp3", reelIndex))
	saved, err := e.store.Write(ctx, key, audio)
	if err != nil {
		return "", domain.SystemFailureWrap(err, "persist narration for reel %d", reelIndex)
	}
	return saved, nil
}

// planVisuals requests the structured visual plan for one reel.
func (e *Engine) planVisuals(ctx context.Context, script domain.ReelScript) (*visualPlan, error) {
	raw, err := e.script.Complete(ctx, visualPlanInstruction(script))
	if err != nil {
		return nil, domain.SystemFailureWrap(err, "visual planning failed")
	}
	plan, parseErr := parsePayload[visualPlan](raw)
	if parseErr != nil {
		return nil, domain.SystemFailureWrap(parseErr, "invalid visual plan output")
	}
	if len(plan.Images) == 0 {
		return nil, domain.SystemFailure("visual plan contains no images")
	}
	return &plan, nil
}

// renderImages renders each planned image under the reel's namespace. The
// retry policy only covers transient provider responses; every other
// non-success status, and budget exhaustion, fails the stage.
func (e *Engine) renderImages(ctx context.Context, in Input, reelIndex int, plan *visualPlan) ([]string, error) {
	var keys []string
	for i, prompt := range plan.Images {
		var data []byte
		err := e.imageRetry.Do(ctx, func(ctx context.Context) error {
			rendered, renderErr := e.images.Render(ctx, prompt.Prompt)
			if renderErr != nil {
				return renderErr
			}
			data = rendered
			return nil
		})
		if err != nil {
			return nil, domain.SystemFailureWrap(err, "image rendering failed for reel %d image %d", reelIndex, i+1)
		}
		key := path.Join(in.OutputDir, fmt.Sprintf("reels/%02d/images/image_%02d.png", reelIndex, i+1))
		saved, err := e.store.Write(ctx, key, data)
		if err != nil {
			return nil, domain.SystemFailureWrap(err, "persist image for reel %d", reelIndex)
		}
		keys = append(keys, saved)
	}
	return keys, nil
}

func visualPlanInstruction(script domain.ReelScript) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a visual director for educational short videos.\n\n")
	sb.WriteString("VISUAL STYLE:\n")
	sb.WriteString("- Illustrated, semi-realistic explainer style\n")
	sb.WriteString("- Clean digital illustration\n")
	sb.WriteString("- NO photorealism, NO text, NO logos\n\n")
	sb.WriteString("ASPECT RATIO: 9:16\n\n")
	sb.WriteString("OUTPUT JSON ONLY:\n")
	sb.WriteString(`{"images":[{"image_id":1,"description":"...","prompt":"..."}]}`)
	sb.WriteString("\n\n")
	fmt.Fprintf(sb, "REEL TITLE:\n%s\n\n", script.Title)
	fmt.Fprintf(sb, "NARRATION:\n%s\n", script.Narration)
	return sb.String()
}
