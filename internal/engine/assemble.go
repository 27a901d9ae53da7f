package engine

import (
	"context"
	"fmt"
	"path"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/media"
)

// assembleReels muxes each reel that produced at least one image into a
// single video artifact: an even time-slice of the narration's duration
// across the ordered image set, with the narration as audio track.
func (e *Engine) assembleReels(ctx context.Context, in Input, result *domain.PipelineResult) error {
	for i := range result.Reels {
		reel := &result.Reels[i]
		if reel.Skipped || len(reel.ImageKeys) == 0 {
			continue
		}

		audioPath, err := e.store.AbsPath(reel.AudioKey)
		if err != nil {
			return domain.SystemFailureWrap(err, "resolve narration for reel %d", reel.Index)
		}
		duration, err := e.prober.Duration(ctx, audioPath)
		if err != nil {
			return domain.SystemFailureWrap(err, "probe narration for reel %d", reel.Index)
		}

		imagePaths := make([]string, 0, len(reel.ImageKeys))
		for _, key := range reel.ImageKeys {
			p, err := e.store.AbsPath(key)
			if err != nil {
				return domain.SystemFailureWrap(err, "resolve image for reel %d", reel.Index)
			}
			imagePaths = append(imagePaths, p)
		}

		videoKey := path.Join(in.OutputDir, fmt.Sprintf("reels/%02d/reel.mp4", reel.Index))
		outputPath, err := e.store.AbsPath(videoKey)
		if err != nil {
			return domain.SystemFailureWrap(err, "resolve output for reel %d", reel.Index)
		}

		spec := media.AssembleSpec{
			ImagePaths: imagePaths,
			AudioPath:  audioPath,
			OutputPath: outputPath,
			PerImage:   duration / time.Duration(len(imagePaths)),
			FPS:        videoFPS,
			Height:     videoHeight,
		}
		if err := e.assembler.Assemble(ctx, spec); err != nil {
			return domain.SystemFailureWrap(err, "assemble reel %d", reel.Index)
		}
		reel.VideoKey = videoKey

		e.logger.Info().
			Str("job_id", in.JobID).
			Int("reel", reel.Index).
			Int("images", len(imagePaths)).
			Dur("narration", duration).
			Msg("engine: reel assembled")
	}
	return nil
}
