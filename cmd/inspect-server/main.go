package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Tamerlan12345/vision/internal/analysis"
	"github.com/Tamerlan12345/vision/internal/assets"
	"github.com/Tamerlan12345/vision/internal/config"
	"github.com/Tamerlan12345/vision/internal/inspect"
	"github.com/Tamerlan12345/vision/internal/live"
	"github.com/Tamerlan12345/vision/internal/logging"
	"github.com/Tamerlan12345/vision/internal/transcode"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	portFlag  int
	modelFlag string
)

// Shared server state, assembled once in runMain before the mux starts
// serving. Handlers only read these.
var (
	cfg            *config.Config
	analysisClient *analysis.Client
	orchestrator   *inspect.Orchestrator
)

var rootCmd = &cobra.Command{
	Use:   "inspect-server",
	Short: "Vehicle damage inspection backend",
	Long: `Inspect Server exposes the car inspection API: photo batch analysis,
asynchronous walkaround-video inspection jobs, and a live voice inspection
relay. All analysis is delegated to the Gemini API.

Examples:
  inspect-server
  inspect-server --port 9090
  inspect-server --model gemini-2.5-pro`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model for photo and video analysis (overrides GEMINI_MODEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}

	ctx := context.Background()

	analysisClient, err = analysis.NewClient(ctx, analysis.Options{
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		Endpoint:      cfg.AnalysisEndpoint,
		Language:      cfg.ReportLanguage,
		MinConfidence: cfg.MinConfidence,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analysis client")
	}

	blobs, jobs, err := newStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize stores")
	}

	if err := transcode.CheckFFmpegAvailable(); err != nil {
		// Photo analysis and live inspection still work; video jobs will
		// fail at the converting stage.
		log.Warn().Err(err).Msg("ffmpeg not available, video jobs will fail")
	}

	orchestrator = inspect.New(blobs, jobs, analysisClient, transcode.FFmpeg{})

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/analyze", handleAnalyze)
	mux.HandleFunc("/api/analyze-video", handleAnalyzeVideo)
	mux.HandleFunc("/api/upload-video", handleUploadVideo)
	mux.HandleFunc("/api/check-status", handleCheckStatus)
	mux.HandleFunc("/api/live-inspection", handleLiveInspection)

	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 120 * time.Second,
		// Long enough for a synchronous video analysis round trip.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: stop accepting, then let in-flight video jobs
	// finish so no job is stranded in processing.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Str("model", cfg.Model).Str("store", cfg.StoreBackend).Msg("Starting inspection server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	orchestrator.Wait()
	log.Info().Msg("All background jobs finished")
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// newLiveConfig binds the server configuration to a per-connection bridge.
func newLiveConfig() live.Config {
	return live.Config{
		APIKey:       cfg.APIKey,
		Endpoint:     cfg.LiveEndpoint,
		Model:        cfg.LiveModel,
		VoiceName:    cfg.VoiceName,
		SystemScript: assets.LiveSystemScript,
	}
}
