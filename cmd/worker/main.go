/**
 * Entry point for the docverify extraction worker
 *
 * Consumes queued extraction jobs, runs the OCR and parsing pipeline,
 * and publishes job state to Redis for pollers.
 */

package main

import (
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
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	logger := logging.NewLogger("docverify-worker")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

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
	extractor := extract.NewService(detector, recognizer, parser, extract.Config{
		RecognizeConcurrency: cfg.RecognizeConcurrency,
		LineTolerancePx:      cfg.LineTolerancePx,
	})

	jobs, err := queue.NewJobStore(cfg.RedisURL, time.Duration(cfg.JobTTLSec)*time.Second)
	if err != nil {
		logger.Error("Failed to connect job store", "error", err)
		os.Exit(1)
	}
	defer jobs.Close()

	consumer, err := queue.NewConsumer(queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		ProcessingTimeout: time.Duration(cfg.ProcessingTimeoutSec) * time.Second,
	}, extractor, jobs, logger)
	if err != nil {
		logger.Error("Failed to build consumer", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Worker started",
			"queue", cfg.QueueName,
			"concurrency", cfg.WorkerConcurrency)
		errCh <- consumer.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", "signal", sig)
		consumer.Shutdown()
	case err := <-errCh:
		if err != nil {
			logger.Error("Worker stopped", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("Worker stopped")
}
