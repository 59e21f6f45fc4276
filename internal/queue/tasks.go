/**
 * Task definitions and enqueue client for async extraction jobs
 */

package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeExtractDocument is the task type for an async extraction.
const TypeExtractDocument = "extract-document"

// ExtractTaskPayload carries one queued extraction job.
type ExtractTaskPayload struct {
	JobID       string    `json:"job_id"`
	Filename    string    `json:"filename"`
	Schema      []string  `json:"schema,omitempty"`
	FileBuffer  []byte    `json:"file_buffer"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// UnmarshalJSON accepts the file buffer as either a base64 string or a
// JSON byte array, so payloads from non-Go producers decode too.
func (p *ExtractTaskPayload) UnmarshalJSON(data []byte) error {
	type alias struct {
		JobID       string          `json:"job_id"`
		Filename    string          `json:"filename"`
		Schema      []string        `json:"schema,omitempty"`
		FileBuffer  json.RawMessage `json:"file_buffer"`
		SubmittedAt time.Time       `json:"submitted_at"`
	}

	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	p.JobID = a.JobID
	p.Filename = a.Filename
	p.Schema = a.Schema
	p.SubmittedAt = a.SubmittedAt
	p.FileBuffer = nil

	if len(a.FileBuffer) == 0 || string(a.FileBuffer) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(a.FileBuffer, &s); err == nil {
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("failed to decode file buffer: %w", err)
		}
		p.FileBuffer = decoded
		return nil
	}

	var ints []int
	if err := json.Unmarshal(a.FileBuffer, &ints); err != nil {
		return fmt.Errorf("unsupported file buffer encoding: %w", err)
	}
	buf := make([]byte, len(ints))
	for i, v := range ints {
		buf[i] = byte(v)
	}
	p.FileBuffer = buf
	return nil
}

// NewExtractTask builds the asynq task for one extraction payload.
func NewExtractTask(payload *ExtractTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TypeExtractDocument, data), nil
}

// Enqueuer submits extraction tasks to the queue.
type Enqueuer struct {
	client *asynq.Client
	queue  string
}

// NewEnqueuer connects an asynq client against the given Redis URL.
func NewEnqueuer(redisURL, queueName string) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Enqueuer{
		client: asynq.NewClient(opt),
		queue:  queueName,
	}, nil
}

// EnqueueExtract queues one extraction job.
func (e *Enqueuer) EnqueueExtract(ctx context.Context, payload *ExtractTaskPayload) error {
	task, err := NewExtractTask(payload)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queue),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue extraction job %s: %w", payload.JobID, err)
	}
	return nil
}

// Close releases the asynq client.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
