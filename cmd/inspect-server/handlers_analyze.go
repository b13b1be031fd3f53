package main

import (
	"net/http"

	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/Tamerlan12345/vision/internal/mediautil"
)

type analyzeRequest struct {
	// Photos maps a free-form camera angle label to a base64 data URL.
	Photos map[string]string `json:"photos"`

	// Prompt optionally overrides the built-in damage analysis prompt.
	Prompt string `json:"prompt,omitempty"`

	// MinConfidence optionally overrides the configured finding threshold.
	MinConfidence *int `json:"minConfidence,omitempty"`
}

type analyzeVideoRequest struct {
	Video string `json:"video"`
}

// handleAnalyze runs the photo batch analysis synchronously and returns the
// per-angle findings map.
func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, apperr.Wrap(apperr.KindInvalidInput, "Invalid request body.", "decoding analyze request", err), "Invalid request body.")
		return
	}

	minConfidence := cfg.MinConfidence
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}

	results, err := analysisClient.AnalyzeImages(r.Context(), req.Photos, req.Prompt, minConfidence)
	if err != nil {
		respondError(w, r, err, "Произошла внутренняя ошибка при анализе фотографий.")
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// handleAnalyzeVideo is the synchronous single-shot video analysis. The
// client waits for the model; there is no job record. Large or slow videos
// belong on the async upload endpoint instead.
func handleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req analyzeVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, apperr.Wrap(apperr.KindInvalidInput, "Invalid request body.", "decoding analyze-video request", err), "Invalid request body.")
		return
	}
	if req.Video == "" {
		respondError(w, r, apperr.New(apperr.KindInvalidInput, "No video provided.", "empty video field"), "No video provided.")
		return
	}

	mimeType, err := mediautil.ParseVideoMIME(req.Video)
	if err != nil {
		respondError(w, r, apperr.Wrap(apperr.KindInvalidInput, "No video provided.", "parsing video data URL", err), "No video provided.")
		return
	}
	_, payload := mediautil.SplitDataURL(req.Video)

	result, err := analysisClient.AnalyzeVideo(r.Context(), payload, mimeType)
	if err != nil {
		respondError(w, r, err, "Произошла внутренняя ошибка сервера. Пожалуйста, попробуйте позже.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"analysis": result})
}
