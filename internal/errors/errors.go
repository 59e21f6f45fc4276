package errors

import (
	"errors"
	"fmt"
	"time"
)

/**
 * Custom error types for the extraction pipeline
 *
 * Only the decode failure is a hard error for callers; every other anomaly
 * is absorbed into the data model as a degraded result.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorDecodeFailed ErrorCode = "DECODE_FAILED"

	// Processing errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorOCRFailed         ErrorCode = "OCR_FAILED"

	// Infrastructure errors
	ErrorQueueFailed   ErrorCode = "QUEUE_FAILED"
	ErrorAPICallFailed ErrorCode = "API_CALL_FAILED"
)

// PipelineError represents a structured pipeline error
type PipelineError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// IsDecodeFailure reports whether err is the unrecoverable input error,
// the only failure callers must surface differently from a low-quality
// result.
func IsDecodeFailure(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == ErrorDecodeFailed
	}
	return false
}

// Factory functions for common errors

func NewDecodeFailedError(jobID string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorDecodeFailed,
		Message:   "Image bytes could not be decoded",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewOCRFailedError(jobID string, stage string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed at stage: %s", stage),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"ocr_stage": stage,
		},
		Cause: cause,
	}
}

func NewAPICallFailedError(endpoint string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorAPICallFailed,
		Message:   fmt.Sprintf("Model endpoint call failed: %s", endpoint),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"endpoint": endpoint,
		},
		Cause: cause,
	}
}

func NewQueueFailedError(jobID string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorQueueFailed,
		Message:   "Failed to enqueue or track extraction job",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for job status metadata
func (e *PipelineError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
