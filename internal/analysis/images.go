package analysis

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/Tamerlan12345/vision/internal/assets"
	"github.com/Tamerlan12345/vision/internal/jsonutil"
	"github.com/Tamerlan12345/vision/internal/mediautil"
	"github.com/Tamerlan12345/vision/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// AnalyzeImages sends each labeled photo to the model and returns damage
// findings per label.
//
// Labels are processed in sorted order so finding IDs are deterministic: they
// are assigned sequentially across the whole batch, starting at 1. A failed or
// unparseable call for one label records an empty result for that label and
// the batch continues; one bad image never aborts the rest.
//
// minConfidence filters findings below the threshold (inclusive: a finding at
// exactly the threshold is kept). Pass 0 to use the configured default.
func (c *Client) AnalyzeImages(ctx context.Context, photosByLabel map[string]string, prompt string, minConfidence int) (map[string][]DamageFinding, error) {
	if len(photosByLabel) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput,
			"No photos provided for analysis.",
			"empty photo batch")
	}
	if prompt == "" {
		prompt = assets.RenderImageDamagePrompt(c.language)
	}
	if minConfidence <= 0 {
		minConfidence = c.minConfidence
	}

	labels := make([]string, 0, len(photosByLabel))
	for label := range photosByLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	log.Info().
		Int("photos", len(labels)).
		Int("min_confidence", minConfidence).
		Str("model", c.model).
		Msg("Starting photo batch analysis")

	results := make(map[string][]DamageFinding, len(labels))
	nextID := 1

	for _, label := range labels {
		payload := photosByLabel[label]
		if payload == "" {
			log.Warn().Str("label", label).Msg("Skipping empty photo payload")
			continue
		}

		findings := c.analyzeOneImage(ctx, label, payload, prompt)

		kept := findings[:0]
		for _, f := range findings {
			if f.Confidence >= minConfidence {
				f.ID = nextID
				nextID++
				kept = append(kept, f)
			}
		}
		results[label] = append([]DamageFinding{}, kept...)
	}

	log.Info().
		Int("labels", len(results)).
		Int("findings", nextID-1).
		Msg("Photo batch analysis complete")

	return results, nil
}

// analyzeOneImage runs a single generate-content call for one labeled photo.
// All failures are absorbed into an empty findings slice; the caller decides
// what a partial batch means.
func (c *Client) analyzeOneImage(ctx context.Context, label, payload, prompt string) []DamageFinding {
	mimeType, pureBase64 := mediautil.SplitDataURL(payload)
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	raw, err := base64.StdEncoding.DecodeString(pureBase64)
	if err != nil {
		log.Warn().Err(err).Str("label", label).Msg("Photo payload is not valid base64, recording empty result")
		return nil
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: raw}},
		},
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, cfg)
	elapsed := time.Since(start)

	m := metrics.New().
		Dimension("Operation", "analyze_images").
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Str("label", label).Dur("duration", elapsed).
			Msg("Photo analysis call failed, recording empty result")
		return nil
	}
	if resp == nil || resp.Text() == "" {
		log.Warn().Str("label", label).Msg("No candidates in photo analysis response, recording empty result")
		return nil
	}

	findings, err := jsonutil.ParseJSON[[]DamageFinding](resp.Text())
	if err != nil {
		log.Error().Err(err).
			Str("label", label).
			Str("response", jsonutil.Preview(resp.Text(), 200)).
			Msg("Failed to parse photo analysis response, recording empty result")
		return nil
	}

	log.Debug().
		Str("label", label).
		Int("findings", len(findings)).
		Dur("duration", elapsed).
		Msg("Photo analyzed")

	return findings
}
