// Package inspect decouples the slow video pipeline (transcode + AI analysis)
// from the HTTP request cycle. Submit persists the upload and fires a
// background worker; clients poll GetStatus until a terminal state and then
// fetch the stored result once.
package inspect

import (
	"context"
	"sync"
	"time"

	"github.com/Tamerlan12345/vision/internal/analysis"
	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/Tamerlan12345/vision/internal/store"
	"github.com/Tamerlan12345/vision/internal/transcode"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VideoAnalyzer is the slice of the analysis client the worker needs.
type VideoAnalyzer interface {
	AnalyzeVideo(ctx context.Context, base64Video, mimeType string) (*analysis.VideoAnalysis, error)
}

// Result is the terminal payload persisted under the job ID in the results
// namespace. Stored separately from the job record so status polling stays
// cheap.
type Result struct {
	Status    store.Status            `json:"status"`
	Analysis  *analysis.VideoAnalysis `json:"analysis"`
	Timestamp time.Time               `json:"timestamp"`
}

// Orchestrator owns the async video inspection lifecycle. Each submitted job
// gets a fresh UUID, so two jobs never contend on store keys, and the worker
// goroutine is the sole writer of a job's status after submission.
type Orchestrator struct {
	blobs      store.BlobStore
	jobs       store.JobStore
	analyzer   VideoAnalyzer
	normalizer transcode.Normalizer

	wg sync.WaitGroup
}

// New creates an orchestrator over the given stores, analyzer, and normalizer.
func New(blobs store.BlobStore, jobs store.JobStore, analyzer VideoAnalyzer, normalizer transcode.Normalizer) *Orchestrator {
	return &Orchestrator{
		blobs:      blobs,
		jobs:       jobs,
		analyzer:   analyzer,
		normalizer: normalizer,
	}
}

// Submit validates and persists an uploaded video data URL, records a pending
// job, and launches the background worker. It returns the job ID immediately;
// the caller never blocks on processing.
func (o *Orchestrator) Submit(ctx context.Context, videoDataURL string) (string, error) {
	if videoDataURL == "" {
		return "", apperr.New(apperr.KindInvalidInput,
			"No video data provided.",
			"empty video upload")
	}

	jobID := uuid.NewString()

	if err := o.blobs.Put(ctx, store.NamespaceVideos, jobID, []byte(videoDataURL)); err != nil {
		return "", apperr.Wrap(apperr.KindUnknown,
			"Failed to start video processing job.",
			"store uploaded video", err)
	}

	now := time.Now().UTC()
	job := &store.Job{
		ID:        jobID,
		Status:    store.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.jobs.PutJob(ctx, job); err != nil {
		return "", apperr.Wrap(apperr.KindUnknown,
			"Failed to start video processing job.",
			"record pending job", err)
	}

	// Fire and forget. The worker runs on a detached context so canceling
	// the upload request does not kill the job it just accepted.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.process(context.Background(), jobID)
	}()

	log.Info().Str("job", jobID).Msg("Video inspection job started")
	return jobID, nil
}

// GetStatus returns the job record for jobID. Read-only: the worker owns all
// mutation after submission.
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (*store.Job, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperr.New(apperr.KindNotFound,
			"Job not found.",
			"no job record for id "+jobID)
	}
	return job, nil
}

// GetResult returns the stored terminal result for a completed job.
func (o *Orchestrator) GetResult(ctx context.Context, jobID string) ([]byte, error) {
	data, err := o.blobs.Get(ctx, store.NamespaceResults, jobID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, apperr.New(apperr.KindNotFound,
			"Job not found.",
			"no result blob for id "+jobID)
	}
	return data, nil
}

// Wait blocks until all in-flight workers finish. Used during graceful
// shutdown so accepted jobs are not abandoned mid-pipeline.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
