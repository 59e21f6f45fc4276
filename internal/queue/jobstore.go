/**
 * Redis-backed job tracking for async extractions
 *
 * Job state is the progress side channel for callers that poll instead of
 * blocking on an extraction. Entries are session-scoped: they expire on a
 * TTL and nothing here is a persistence layer for extraction results.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veridoc/docverify/internal/document"
)

// JobStatus is the lifecycle state of an async extraction job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is the tracked state of one async extraction.
type Job struct {
	ID        string                   `json:"id"`
	Status    JobStatus                `json:"status"`
	Stage     string                   `json:"stage,omitempty"`
	Progress  int                      `json:"progress"` // 0-100
	Filename  string                   `json:"filename,omitempty"`
	Result    document.ExtractedRecord `json:"result,omitempty"`
	ErrorCode string                   `json:"error_code,omitempty"`
	Error     string                   `json:"error,omitempty"`
	// ErrorDetails carries the structured metadata of a pipeline error.
	ErrorDetails map[string]interface{} `json:"error_details,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// JobStore tracks job state in Redis with a TTL.
type JobStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJobStore connects to Redis and returns a job store.
func NewJobStore(redisURL string, ttl time.Duration) (*JobStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JobStore{client: client, ttl: ttl}, nil
}

// Close releases the Redis connection.
func (s *JobStore) Close() error {
	return s.client.Close()
}

func (s *JobStore) key(jobID string) string {
	return "docverify:job:" + jobID
}

// Create registers a pending job.
func (s *JobStore) Create(ctx context.Context, jobID, filename string) error {
	now := time.Now().UTC()
	return s.put(ctx, &Job{
		ID:        jobID,
		Status:    JobPending,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// SetProgress marks the job processing at the given stage and percentage.
func (s *JobStore) SetProgress(ctx context.Context, jobID, stage string, percent int) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = JobProcessing
	job.Stage = stage
	job.Progress = percent
	job.UpdatedAt = time.Now().UTC()
	return s.put(ctx, job)
}

// Complete stores the finished record and marks the job completed.
func (s *JobStore) Complete(ctx context.Context, jobID string, record document.ExtractedRecord) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = JobCompleted
	job.Stage = "complete"
	job.Progress = 100
	job.Result = record
	job.UpdatedAt = time.Now().UTC()
	return s.put(ctx, job)
}

// Fail marks the job failed with an error code, message and optional
// structured details.
func (s *JobStore) Fail(ctx context.Context, jobID, errorCode, message string, details map[string]interface{}) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = JobFailed
	job.ErrorCode = errorCode
	job.Error = message
	job.ErrorDetails = details
	job.UpdatedAt = time.Now().UTC()
	return s.put(ctx, job)
}

// Get fetches the tracked state of one job. Returns ErrJobNotFound for
// unknown or expired job IDs.
func (s *JobStore) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Result()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

func (s *JobStore) put(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, s.key(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}
	return nil
}

// ErrJobNotFound is returned for unknown or expired job IDs.
var ErrJobNotFound = fmt.Errorf("job not found")
