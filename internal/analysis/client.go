// Package analysis turns batches of inspection media into structured damage
// findings via the Gemini generate-content API.
//
// Image batches go through the official Go SDK (google.golang.org/genai).
// Video analysis uses a direct REST call instead: the job pipeline needs the
// raw HTTP status, response body, and promptFeedback block for its error
// reporting, and the SDK does not expose all of those on failure.
package analysis

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Tamerlan12345/vision/internal/apperr"
	"google.golang.org/genai"
)

// Options configures a Client. All fields except APIKey have defaults.
type Options struct {
	// APIKey is the Gemini API credential.
	APIKey string

	// Model is the generate-content model name.
	Model string

	// Endpoint is the API host, without a version path. Overridable for tests.
	Endpoint string

	// Language is the target language for user-facing strings in findings.
	Language string

	// MinConfidence is the default confidence threshold for image findings.
	MinConfidence int

	// HTTPClient is used for REST calls. Defaults to a client with a timeout
	// sized for inline-video requests.
	HTTPClient *http.Client
}

const defaultEndpoint = "https://generativelanguage.googleapis.com"

// Client is a stateless analysis client. Each call is one request/response
// exchange with the remote model; the client holds only configuration.
type Client struct {
	genai         *genai.Client
	httpClient    *http.Client
	apiKey        string
	model         string
	endpoint      string
	language      string
	minConfidence int
}

// NewClient creates an analysis client. The API key is injected here, at
// startup; nothing in this package reads the process environment.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, apperr.New(apperr.KindConfig,
			"Server configuration error: API key is missing.",
			"analysis client created without an API key")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.Language == "" {
		opts.Language = "Russian"
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 65
	}
	if opts.HTTPClient == nil {
		// Inline video payloads make for slow round trips.
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: opts.Endpoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		genai:         sdk,
		httpClient:    opts.HTTPClient,
		apiKey:        opts.APIKey,
		model:         opts.Model,
		endpoint:      opts.Endpoint,
		language:      opts.Language,
		minConfidence: opts.MinConfidence,
	}, nil
}

// generateContentURL builds the REST URL for a generate-content call.
func (c *Client) generateContentURL() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
}
