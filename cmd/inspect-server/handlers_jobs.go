package main

import (
	"net/http"

	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/Tamerlan12345/vision/internal/store"
)

type uploadVideoRequest struct {
	Video string `json:"video"`
}

// handleUploadVideo accepts a walkaround video and starts the async
// inspection job. The 202 response carries only the job ID; clients poll
// check-status for progress.
func handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req uploadVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, apperr.Wrap(apperr.KindInvalidInput, "No video data provided.", "decoding upload request", err), "No video data provided.")
		return
	}

	jobID, err := orchestrator.Submit(r.Context(), req.Video)
	if err != nil {
		respondError(w, r, err, "Failed to start video processing job.")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// handleCheckStatus reports job progress. Once the job is complete the stored
// result document is returned instead of the bookkeeping record, so the final
// poll already carries the analysis.
func handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		respondError(w, r, apperr.New(apperr.KindInvalidInput, "jobId is required.", "missing jobId query parameter"), "jobId is required.")
		return
	}

	job, err := orchestrator.GetStatus(r.Context(), jobID)
	if err != nil {
		respondError(w, r, err, "Failed to check job status.")
		return
	}

	if job.Status == store.StatusComplete {
		result, err := orchestrator.GetResult(r.Context(), jobID)
		if err != nil {
			respondError(w, r, err, "Failed to check job status.")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(result)
		return
	}

	respondJSON(w, http.StatusOK, job)
}
