package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/Tamerlan12345/vision/internal/assets"
	"github.com/Tamerlan12345/vision/internal/jsonutil"
	"github.com/Tamerlan12345/vision/internal/metrics"
	"github.com/rs/zerolog/log"
)

// --- REST request/response types ---

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inline_data,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback json.RawMessage   `json:"promptFeedback,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

// AnalyzeVideo sends a walkaround video inline to the model and returns the
// quality assessment plus damage findings.
//
// The video arrives as pure base64 (no data URL prefix) with its MIME type.
// Failure modes are classified per the API contract: a non-2xx status, an
// empty candidates list (safety filters), or a reply that is not valid JSON.
//
// Damages attached to a rejected quality assessment are untrusted and
// discarded: the prompt instructs the model to return an empty array in that
// case, but nothing enforces it upstream.
func (c *Client) AnalyzeVideo(ctx context.Context, base64Video, mimeType string) (*VideoAnalysis, error) {
	if base64Video == "" {
		return nil, apperr.New(apperr.KindInvalidInput,
			"No video provided.",
			"empty video payload")
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: assets.RenderVideoQualityPrompt(c.language)},
				{InlineData: &geminiBlobData{MIMEType: mimeType, Data: base64Video}},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMIMEType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	log.Info().
		Str("mime_type", mimeType).
		Int("video_base64_bytes", len(base64Video)).
		Str("model", c.model).
		Msg("Sending video to Gemini for analysis")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateContentURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	m := metrics.New().
		Dimension("Operation", "analyze_video").
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	defer m.Flush()

	if err != nil {
		m.Count("GeminiApiErrors")
		return nil, apperr.Wrap(apperr.KindUpstream,
			"Не удалось получить ответ от модели ИИ.",
			"video analysis request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		m.Count("GeminiApiErrors")
		return nil, apperr.Wrap(apperr.KindUpstream,
			"Не удалось получить ответ от модели ИИ.",
			"read video analysis response", err)
	}

	if resp.StatusCode != http.StatusOK {
		m.Count("GeminiApiErrors")
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", jsonutil.Preview(string(respBody), 500)).
			Dur("duration", elapsed).
			Msg("Gemini API returned non-2xx for video analysis")
		return nil, apperr.New(apperr.KindUpstream,
			"Не удалось получить ответ от модели ИИ.",
			fmt.Sprintf("Gemini API error (status: %d): %s", resp.StatusCode, respBody))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedResponse,
			"Не удалось разобрать ответ модели ИИ.",
			fmt.Sprintf("response envelope is not valid JSON: %s", jsonutil.Preview(string(respBody), 100)), err)
	}

	if len(parsed.Candidates) == 0 {
		feedback := "no feedback available"
		if len(parsed.PromptFeedback) > 0 {
			feedback = string(parsed.PromptFeedback)
		}
		log.Warn().Str("feedback", feedback).Msg("Gemini returned no candidates for video analysis")
		return nil, apperr.New(apperr.KindNoContent,
			"Модель не вернула результат. Возможно, сработали фильтры безопасности.",
			fmt.Sprintf("model returned no candidates; feedback: %s", feedback))
	}

	var text string
	for _, part := range parsed.Candidates[0].Content.Parts {
		text += part.Text
	}

	result, err := jsonutil.ParseJSON[VideoAnalysis](text)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedResponse,
			"Не удалось разобрать ответ модели ИИ.",
			fmt.Sprintf("candidate text is not valid JSON: %s", jsonutil.Preview(text, 100)), err)
	}

	if !result.QualityAssessment.IsAcceptable && len(result.Damages) > 0 {
		log.Warn().
			Int("discarded", len(result.Damages)).
			Msg("Model attached damages to a rejected quality assessment, discarding them")
		result.Damages = nil
	}
	if result.Damages == nil {
		result.Damages = []DamageFinding{}
	}

	log.Info().
		Bool("acceptable", result.QualityAssessment.IsAcceptable).
		Int("damages", len(result.Damages)).
		Dur("duration", elapsed).
		Msg("Video analysis complete")

	return &result, nil
}
