// Package config resolves all runtime settings once at startup. Handlers and
// clients receive an injected Config instead of reading environment state
// themselves.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Store backend selectors for VISION_STORE.
const (
	StoreFS  = "fs"
	StoreAWS = "aws"
)

// DefaultMinConfidence is the finding confidence threshold applied when the
// caller does not supply one. Findings below it are dropped (inclusive filter).
const DefaultMinConfidence = 65

// Config holds the resolved runtime configuration for the inspection server.
type Config struct {
	// APIKey is the Gemini API credential (GEMINI_API_KEY).
	APIKey string

	// Model is the generate-content model for image and video analysis.
	Model string

	// LiveModel is the bidirectional streaming model for live inspections.
	LiveModel string

	// LiveEndpoint is the websocket URL of the vendor's duplex endpoint,
	// without the key query parameter. Overridable for tests.
	LiveEndpoint string

	// AnalysisEndpoint is the REST base URL for generate-content calls.
	// Overridable for tests.
	AnalysisEndpoint string

	// ReportLanguage is the language for all user-facing strings the model
	// produces (damage descriptions, quality reasons). Default: Russian.
	ReportLanguage string

	// VoiceName selects the prebuilt voice for live audio responses.
	VoiceName string

	// MinConfidence is the default finding confidence threshold.
	MinConfidence int

	// StoreBackend selects job/blob persistence: "fs" (default) or "aws".
	StoreBackend string

	// DataDir is the root directory for the filesystem store backend.
	DataDir string

	// S3Bucket is the blob bucket for the AWS backend.
	S3Bucket string

	// DynamoTable is the job table for the AWS backend.
	DynamoTable string
}

// Load reads configuration from the environment and applies defaults.
// A missing API key is a config error: the server must refuse to start
// rather than fail on the first analysis request.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:           os.Getenv("GEMINI_API_KEY"),
		Model:            envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		LiveModel:        envOr("GEMINI_LIVE_MODEL", "models/gemini-2.0-flash-exp"),
		LiveEndpoint:     envOr("GEMINI_LIVE_ENDPOINT", "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent"),
		AnalysisEndpoint: envOr("GEMINI_API_ENDPOINT", "https://generativelanguage.googleapis.com"),
		ReportLanguage:   envOr("VISION_REPORT_LANGUAGE", "Russian"),
		VoiceName:        envOr("VISION_LIVE_VOICE", "Kore"),
		MinConfidence:    DefaultMinConfidence,
		StoreBackend:     envOr("VISION_STORE", StoreFS),
		DataDir:          envOr("VISION_DATA_DIR", "./data"),
		S3Bucket:         os.Getenv("VISION_S3_BUCKET"),
		DynamoTable:      os.Getenv("VISION_DYNAMO_TABLE"),
	}

	if v := os.Getenv("VISION_MIN_CONFIDENCE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return nil, fmt.Errorf("invalid VISION_MIN_CONFIDENCE %q: must be an integer 0-100", v)
		}
		cfg.MinConfidence = n
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	switch cfg.StoreBackend {
	case StoreFS:
	case StoreAWS:
		if cfg.S3Bucket == "" || cfg.DynamoTable == "" {
			return nil, fmt.Errorf("VISION_STORE=aws requires VISION_S3_BUCKET and VISION_DYNAMO_TABLE")
		}
	default:
		return nil, fmt.Errorf("unknown VISION_STORE backend %q", cfg.StoreBackend)
	}

	log.Debug().
		Str("model", cfg.Model).
		Str("store", cfg.StoreBackend).
		Str("report_language", cfg.ReportLanguage).
		Msg("Configuration loaded")

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
