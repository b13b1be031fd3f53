package inspect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/Tamerlan12345/vision/internal/mediautil"
	"github.com/Tamerlan12345/vision/internal/store"
	"github.com/Tamerlan12345/vision/internal/transcode"
	"github.com/rs/zerolog/log"
)

// Pipeline stages, persisted to the job record before each stage starts so a
// crash mid-pipeline leaves an accurate last-known stage for diagnostics.
const (
	StageSetup         = "setup"
	StageFileSystem    = "file_system"
	StageConverting    = "converting"
	StageAnalyzing     = "analyzing"
	StageSavingResults = "saving_results"
	StageCleanup       = "cleanup"
)

// process runs the linear job pipeline: fetch blob, parse MIME, write scratch
// file, transcode, analyze, persist result. Any failure is terminal for the
// job; there are no retries.
func (o *Orchestrator) process(ctx context.Context, jobID string) {
	logger := log.With().Str("job", jobID).Logger()
	currentStage := StageSetup

	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil || job == nil {
		logger.Error().Err(err).Msg("Worker could not load its own job record")
		return
	}

	setStage := func(stage string) error {
		currentStage = stage
		job.Status = store.StatusProcessing
		job.Stage = stage
		job.UpdatedAt = time.Now().UTC()
		return o.jobs.PutJob(ctx, job)
	}

	fail := func(err error) {
		logger.Error().Err(err).Str("stage", currentStage).Msg("Video inspection job failed")
		job.Status = store.StatusError
		job.Stage = currentStage
		job.ErrorMessage = fmt.Sprintf("Ошибка на этапе '%s': %s", currentStage,
			apperr.ClientMessage(err, "Произошла внутренняя ошибка при обработке видео."))
		job.UpdatedAt = time.Now().UTC()
		if putErr := o.jobs.PutJob(ctx, job); putErr != nil {
			logger.Error().Err(putErr).Msg("Failed to persist job error status")
		}
	}

	logger.Info().Msg("Starting background video processing")

	if err := setStage(StageSetup); err != nil {
		fail(fmt.Errorf("persist processing status: %w", err))
		return
	}

	data, err := o.blobs.Get(ctx, store.NamespaceVideos, jobID)
	if err != nil {
		fail(fmt.Errorf("fetch video blob: %w", err))
		return
	}
	if data == nil {
		fail(fmt.Errorf("video data not found in blob store for job %s", jobID))
		return
	}
	logger.Debug().Int("bytes", len(data)).Msg("Retrieved video from blob store")

	dataURL := string(data)
	mimeType, err := mediautil.ParseVideoMIME(dataURL)
	if err != nil {
		fail(fmt.Errorf("parse video data URL: %w", err))
		return
	}
	_, pureBase64 := mediautil.SplitDataURL(dataURL)
	logger.Debug().Str("mime_type", mimeType).Msg("Parsed video MIME type")

	if err := setStage(StageFileSystem); err != nil {
		fail(fmt.Errorf("persist stage: %w", err))
		return
	}

	raw, err := base64.StdEncoding.DecodeString(pureBase64)
	if err != nil {
		fail(fmt.Errorf("decode video base64: %w", err))
		return
	}

	inputFile, err := os.CreateTemp("", "vision-input-*")
	if err != nil {
		fail(fmt.Errorf("create scratch file: %w", err))
		return
	}
	inputPath := inputFile.Name()
	// Cleanup always runs, even after an error, and never masks it.
	defer func() {
		currentStage = StageCleanup
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", inputPath).Msg("Failed to remove scratch input file")
		}
	}()

	if _, err := inputFile.Write(raw); err != nil {
		inputFile.Close()
		fail(fmt.Errorf("write scratch file: %w", err))
		return
	}
	inputFile.Close()
	logger.Debug().Str("path", inputPath).Msg("Wrote scratch input file")

	if err := setStage(StageConverting); err != nil {
		fail(fmt.Errorf("persist stage: %w", err))
		return
	}

	outputPath, cleanupOutput, err := o.normalizer.Normalize(ctx, inputPath)
	if err != nil {
		fail(apperr.Wrap(apperr.KindUnknown,
			"Не удалось обработать видеофайл.",
			"normalize video", err))
		return
	}
	defer cleanupOutput()

	converted, err := os.ReadFile(outputPath)
	if err != nil {
		fail(fmt.Errorf("read normalized video: %w", err))
		return
	}

	if err := setStage(StageAnalyzing); err != nil {
		fail(fmt.Errorf("persist stage: %w", err))
		return
	}

	result, err := o.analyzer.AnalyzeVideo(ctx, base64.StdEncoding.EncodeToString(converted), transcode.OutputMIMEType)
	if err != nil {
		fail(err)
		return
	}

	if err := setStage(StageSavingResults); err != nil {
		fail(fmt.Errorf("persist stage: %w", err))
		return
	}

	resultDoc, err := json.Marshal(Result{
		Status:    store.StatusComplete,
		Analysis:  result,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		fail(fmt.Errorf("marshal result: %w", err))
		return
	}
	if err := o.blobs.Put(ctx, store.NamespaceResults, jobID, resultDoc); err != nil {
		fail(fmt.Errorf("store result: %w", err))
		return
	}

	// Result and status live in separate namespaces; both must end terminal
	// and consistent, result first so a completed status never points at a
	// missing result.
	job.Status = store.StatusComplete
	job.Stage = ""
	job.UpdatedAt = time.Now().UTC()
	if err := o.jobs.PutJob(ctx, job); err != nil {
		fail(fmt.Errorf("persist complete status: %w", err))
		return
	}

	logger.Info().
		Bool("acceptable", result.QualityAssessment.IsAcceptable).
		Int("damages", len(result.Damages)).
		Msg("Video inspection job completed")
}
