/**
 * Asynq consumer running queued extraction jobs
 */

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/veridoc/docverify/internal/document"
	pipeerrors "github.com/veridoc/docverify/internal/errors"
	"github.com/veridoc/docverify/internal/extract"
	"github.com/veridoc/docverify/internal/logging"
)

// Extractor runs the extraction pipeline with progress reporting.
type Extractor interface {
	ExtractWithProgress(ctx context.Context, imageBytes []byte, schema []string, progress extract.ProgressFunc) (document.ExtractedRecord, error)
}

// ConsumerConfig controls the asynq worker server.
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	ProcessingTimeout time.Duration
}

// Consumer pulls extraction tasks off the queue and runs them.
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	extractor Extractor
	jobs      *JobStore
	timeout   time.Duration
	logger    *logging.Logger
}

// NewConsumer builds the worker server for the configured queue.
func NewConsumer(cfg ConsumerConfig, extractor Extractor, jobs *JobStore, logger *logging.Logger) (*Consumer, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	timeout := cfg.ProcessingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			cfg.QueueName: 1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return time.Duration(n*n) * 30 * time.Second
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", "type", task.Type(), "error", err)
		}),
	})

	c := &Consumer{
		server:    server,
		mux:       asynq.NewServeMux(),
		extractor: extractor,
		jobs:      jobs,
		timeout:   timeout,
		logger:    logger,
	}
	c.mux.HandleFunc(TypeExtractDocument, c.handleExtract)
	return c, nil
}

// Run blocks serving tasks until Shutdown is called.
func (c *Consumer) Run() error {
	return c.server.Run(c.mux)
}

// Shutdown stops the worker server, waiting for in-flight tasks.
func (c *Consumer) Shutdown() {
	c.server.Shutdown()
}

func (c *Consumer) handleExtract(ctx context.Context, task *asynq.Task) error {
	var payload ExtractTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads can never succeed on retry.
		c.logger.Error("Invalid task payload", "error", err)
		return fmt.Errorf("invalid task payload: %v: %w", err, asynq.SkipRetry)
	}

	c.logger.Info("Processing extraction job",
		"job_id", payload.JobID,
		"filename", payload.Filename,
		"size", len(payload.FileBuffer))

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	progress := func(stage string, percent int) {
		if err := c.jobs.SetProgress(runCtx, payload.JobID, stage, percent); err != nil {
			c.logger.Warn("Failed to update job progress", "job_id", payload.JobID, "error", err)
		}
	}

	record, err := c.extractor.ExtractWithProgress(runCtx, payload.FileBuffer, payload.Schema, progress)
	if err != nil {
		perr := classifyFailure(payload.JobID, c.timeout, err)
		if ferr := c.jobs.Fail(context.WithoutCancel(runCtx), payload.JobID, string(perr.Code), perr.Message, perr.ToMap()); ferr != nil {
			c.logger.Error("Failed to mark job failed", "job_id", payload.JobID, "error", ferr)
		}
		if perr.Code == pipeerrors.ErrorDecodeFailed {
			// Undecodable input does not get better on retry.
			return fmt.Errorf("decode failed: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := c.jobs.Complete(runCtx, payload.JobID, record); err != nil {
		c.logger.Error("Failed to store job result", "job_id", payload.JobID, "error", err)
		return err
	}

	c.logger.Info("Extraction job completed",
		"job_id", payload.JobID,
		"quality", record.Quality())
	return nil
}

// classifyFailure maps an extraction error to a structured pipeline
// error for job metadata. Pipeline errors pass through; a deadline hit
// becomes a processing timeout; anything else is an OCR-stage failure.
func classifyFailure(jobID string, timeout time.Duration, err error) *pipeerrors.PipelineError {
	var perr *pipeerrors.PipelineError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pipeerrors.NewProcessingTimeoutError(jobID, timeout, err)
	}
	return pipeerrors.NewOCRFailedError(jobID, "recognition", err)
}
