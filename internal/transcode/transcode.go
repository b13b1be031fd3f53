// Package transcode normalizes uploaded walkaround videos with an external
// ffmpeg invocation. Browsers produce a zoo of codecs and containers
// (webm/vp9, mov/hevc, mp4 with exotic codec params); the analysis endpoint is
// fed one canonical format instead.
package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/Tamerlan12345/vision/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Normalization targets: a universally compatible H.264/AAC MP4.
const (
	// VideoCRF balances quality against upload size for AI analysis.
	VideoCRF = 22

	// VideoPreset trades encode speed for compression efficiency.
	VideoPreset = "fast"

	// AudioBitrate is the AAC target bitrate.
	AudioBitrate = "128k"

	// OutputMIMEType is the MIME type of every normalized video.
	OutputMIMEType = "video/mp4"
)

// Normalizer converts a video file into the canonical analysis format.
// It exists as an interface so the job pipeline can be tested without ffmpeg.
type Normalizer interface {
	// Normalize transcodes inputPath into a temporary MP4 file and returns
	// its path with a cleanup func that removes it. cleanup must be called.
	Normalize(ctx context.Context, inputPath string) (outputPath string, cleanup func(), err error)
}

// FFmpeg is the production Normalizer, shelling out to the ffmpeg binary.
type FFmpeg struct{}

var _ Normalizer = FFmpeg{}

// CheckFFmpegAvailable checks if ffmpeg is available in the system PATH.
// Called at startup so a missing binary fails fast instead of failing the
// first job.
func CheckFFmpegAvailable() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: video normalization will be unavailable")
	}
	log.Debug().Str("path", path).Msg("ffmpeg found")
	return nil
}

// Normalize transcodes inputPath to a temporary H.264/AAC MP4 file.
// On failure the captured ffmpeg output becomes the error detail.
func (FFmpeg) Normalize(ctx context.Context, inputPath string) (string, func(), error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	tempFile, err := os.CreateTemp("", "vision-video-*.mp4")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	outputPath := tempFile.Name()
	tempFile.Close()

	cleanup := func() {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", outputPath).Msg("Failed to remove normalized temp file")
		}
	}

	args := buildFFmpegArgs(inputPath, outputPath)

	log.Debug().Strs("args", args).Msg("Running ffmpeg normalization")

	start := time.Now()
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if err != nil {
		cleanup()
		log.Error().
			Err(err).
			Str("input_path", inputPath).
			Str("ffmpeg_output", string(output)).
			Dur("duration", elapsed).
			Msg("ffmpeg normalization failed")
		metrics.New().
			Metric("VideoTranscodeMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
			Count("VideoTranscodeErrors").
			Flush()
		return "", nil, fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to stat normalized file: %w", err)
	}

	metrics.New().
		Metric("VideoTranscodeMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("VideoOutputBytes", float64(info.Size()), metrics.UnitBytes).
		Count("VideoTranscodes").
		Flush()

	log.Info().
		Str("input_path", inputPath).
		Str("output_path", outputPath).
		Int64("output_size_bytes", info.Size()).
		Dur("transcode_time", elapsed).
		Msg("Video normalization complete")

	return outputPath, cleanup, nil
}

// buildFFmpegArgs constructs the normalization command line.
func buildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", VideoPreset,
		"-crf", strconv.Itoa(VideoCRF),
		"-c:a", "aac",
		"-b:a", AudioBitrate,
		"-y", outputPath,
	}
}
