// Package media wraps the ffmpeg/ffprobe binaries for narration probing and
// reel assembly.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Prober measures the duration of an audio track.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// AssembleSpec describes one reel assembly: ordered still images shown for
// equal slices of the narration, muxed with the narration track.
type AssembleSpec struct {
	ImagePaths []string
	AudioPath  string
	OutputPath string
	PerImage   time.Duration
	FPS        int
	Height     int
}

// Assembler muxes images and narration into a single video artifact.
type Assembler interface {
	Assemble(ctx context.Context, spec AssembleSpec) error
}

// FFmpeg implements Prober and Assembler by shelling out to ffprobe/ffmpeg.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg resolves binary paths, defaulting to PATH lookup at run time.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// CheckDependencies verifies both binaries are installed.
func (f *FFmpeg) CheckDependencies() error {
	if _, err := exec.LookPath(f.ffmpeg()); err != nil {
		return fmt.Errorf("missing dependency: ffmpeg is not installed or not on PATH")
	}
	if _, err := exec.LookPath(f.ffprobe()); err != nil {
		return fmt.Errorf("missing dependency: ffprobe is not installed or not on PATH")
	}
	return nil
}

// Duration returns the total duration of the audio file at path.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := exec.CommandContext(ctx, f.ffprobe(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Assemble writes a concat list next to the output file and muxes the slices
// with the narration track.
func (f *FFmpeg) Assemble(ctx context.Context, spec AssembleSpec) error {
	if len(spec.ImagePaths) == 0 {
		return fmt.Errorf("assemble: no images")
	}
	if err := os.MkdirAll(filepath.Dir(spec.OutputPath), 0o755); err != nil {
		return fmt.Errorf("assemble: ensure output directory: %w", err)
	}
	listPath := spec.OutputPath + ".concat.txt"
	if err := os.WriteFile(listPath, []byte(ConcatList(spec.ImagePaths, spec.PerImage)), 0o644); err != nil {
		return fmt.Errorf("assemble: write concat list: %w", err)
	}
	defer os.Remove(listPath)

	cmd := exec.CommandContext(ctx, f.ffmpeg(), AssembleArgs(listPath, spec)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg assemble %s: %w: %s", spec.OutputPath, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ConcatList renders a concat demuxer script showing each image for the same
// slice of the narration. The final image is repeated without a duration so
// the demuxer holds it until the audio ends.
func ConcatList(imagePaths []string, perImage time.Duration) string {
	var b strings.Builder
	for _, path := range imagePaths {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(path))
		fmt.Fprintf(&b, "duration %.3f\n", perImage.Seconds())
	}
	if len(imagePaths) > 0 {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(imagePaths[len(imagePaths)-1]))
	}
	return b.String()
}

// AssembleArgs builds the ffmpeg invocation for a concat-list assembly.
func AssembleArgs(listPath string, spec AssembleSpec) []string {
	fps := spec.FPS
	if fps <= 0 {
		fps = 30
	}
	height := spec.Height
	if height <= 0 {
		height = 1536
	}
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", spec.AudioPath,
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		spec.OutputPath,
	}
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func (f *FFmpeg) ffmpeg() string {
	if f.FFmpegPath != "" {
		return f.FFmpegPath
	}
	return "ffmpeg"
}

func (f *FFmpeg) ffprobe() string {
	if f.FFprobePath != "" {
		return f.FFprobePath
	}
	return "ffprobe"
}
