/**
 * Entry point for the docverify HTTP server
 *
 * Hosts synchronous extraction, async job submission and the
 * verification endpoints. The async path only enqueues; extraction
 * itself runs in the worker process.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/veridoc/docverify/internal/config"
	"github.com/veridoc/docverify/internal/detect"
	"github.com/veridoc/docverify/internal/extract"
	"github.com/veridoc/docverify/internal/logging"
	"github.com/veridoc/docverify/internal/parse"
	"github.com/veridoc/docverify/internal/queue"
	"github.com/veridoc/docverify/internal/recognize"
	"github.com/veridoc/docverify/internal/server"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	logger := logging.NewLogger("docverify-server")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	extractor := buildPipeline(cfg)

	enqueuer, err := queue.NewEnqueuer(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		logger.Error("Failed to connect queue client", "error", err)
		os.Exit(1)
	}
	defer enqueuer.Close()

	jobs, err := queue.NewJobStore(cfg.RedisURL, time.Duration(cfg.JobTTLSec)*time.Second)
	if err != nil {
		logger.Error("Failed to connect job store", "error", err)
		os.Exit(1)
	}
	defer jobs.Close()

	srv := server.New(cfg, extractor, enqueuer, jobs, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", "signal", sig)
	case err := <-errCh:
		logger.Error("HTTP server stopped", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// buildPipeline wires the extraction stages from configuration.
func buildPipeline(cfg *config.Config) *extract.Service {
	detector := detect.NewTesseractDetector(detect.Config{
		Languages:       cfg.TesseractLanguages,
		MinConfidence:   cfg.MinDetectConfidence,
		LineTolerancePx: cfg.LineTolerancePx,
	})
	recognizer := recognize.NewTesseractRecognizer(recognize.Config{
		Languages: cfg.TesseractLanguages,
	})
	client := parse.NewModelClient(cfg.ModelBaseURL, cfg.ModelName, cfg.ModelAPIKey)
	parser := parse.NewParser(client)

	return extract.NewService(detector, recognizer, parser, extract.Config{
		RecognizeConcurrency: cfg.RecognizeConcurrency,
		LineTolerancePx:      cfg.LineTolerancePx,
	})
}
