/**
 * HTTP handlers for the extraction and verification endpoints
 */

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veridoc/docverify/internal/document"
	pipeerrors "github.com/veridoc/docverify/internal/errors"
	"github.com/veridoc/docverify/internal/extract"
	"github.com/veridoc/docverify/internal/logging"
	"github.com/veridoc/docverify/internal/queue"
	"github.com/veridoc/docverify/internal/verify"
)

// Extractor runs the extraction pipeline for synchronous requests.
type Extractor interface {
	ExtractWithProgress(ctx context.Context, imageBytes []byte, schema []string, progress extract.ProgressFunc) (document.ExtractedRecord, error)
}

// Handler implements the API endpoints.
type Handler struct {
	extractor     Extractor
	engine        *verify.Engine
	enqueuer      *queue.Enqueuer
	jobs          *queue.JobStore
	maxUploadSize int64
	logger        *logging.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type extractResponse struct {
	Filename string                   `json:"filename"`
	Data     document.ExtractedRecord `json:"data"`
}

type asyncExtractResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type verifyFieldRequest struct {
	FieldName     string `json:"field_name"`
	ExtractedText string `json:"extracted_text"`
	UserInput     string `json:"user_input"`
}

type verifyFullRequest struct {
	ExtractedData map[string]string `json:"extracted_data"`
	UserInputData map[string]string `json:"user_input_data"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "docverify",
	})
}

// Extract runs the pipeline synchronously on an uploaded image.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	imageBytes, filename, schema, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	record, err := h.extractor.ExtractWithProgress(r.Context(), imageBytes, schema, nil)
	if err != nil {
		if pipeerrors.IsDecodeFailure(err) {
			h.respondError(w, http.StatusBadRequest, "uploaded file is not a decodable image", string(pipeerrors.ErrorDecodeFailed))
			return
		}
		h.logger.Error("Extraction failed", "filename", filename, "error", err)
		h.respondError(w, http.StatusInternalServerError, "extraction failed", "")
		return
	}

	h.respondJSON(w, http.StatusOK, extractResponse{
		Filename: filename,
		Data:     record,
	})
}

// ExtractAsync enqueues an extraction job and returns its ID for polling.
func (h *Handler) ExtractAsync(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil || h.jobs == nil {
		h.respondError(w, http.StatusServiceUnavailable, "async extraction is not configured", "")
		return
	}

	imageBytes, filename, schema, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	jobID := uuid.New().String()
	if err := h.jobs.Create(r.Context(), jobID, filename); err != nil {
		qerr := pipeerrors.NewQueueFailedError(jobID, err)
		h.logger.Error("Failed to create job record", "job_id", jobID, "error", qerr)
		h.respondError(w, http.StatusInternalServerError, "failed to create job", string(qerr.Code))
		return
	}

	payload := &queue.ExtractTaskPayload{
		JobID:       jobID,
		Filename:    filename,
		Schema:      schema,
		FileBuffer:  imageBytes,
		SubmittedAt: time.Now().UTC(),
	}
	if err := h.enqueuer.EnqueueExtract(r.Context(), payload); err != nil {
		qerr := pipeerrors.NewQueueFailedError(jobID, err)
		h.logger.Error("Failed to enqueue job", "job_id", jobID, "error", qerr)
		h.respondError(w, http.StatusInternalServerError, "failed to enqueue job", string(qerr.Code))
		return
	}

	h.logger.Info("Extraction job enqueued", "job_id", jobID, "filename", filename)
	h.respondJSON(w, http.StatusAccepted, asyncExtractResponse{
		JobID:  jobID,
		Status: string(queue.JobPending),
	})
}

// JobStatus returns the tracked state of an async extraction.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.respondError(w, http.StatusServiceUnavailable, "async extraction is not configured", "")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			h.respondError(w, http.StatusNotFound, "job not found", "")
			return
		}
		h.logger.Error("Failed to fetch job", "job_id", jobID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to fetch job", "")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// VerifyField scores a single extracted value against user input.
func (h *Handler) VerifyField(w http.ResponseWriter, r *http.Request) {
	var req verifyFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if req.FieldName == "" {
		h.respondError(w, http.StatusBadRequest, "field_name is required", "")
		return
	}

	result := h.engine.Verify(req.FieldName, req.ExtractedText, req.UserInput)
	h.respondJSON(w, http.StatusOK, result)
}

// VerifyFull scores every extracted field against the user's corrections
// and returns the per-field results with an aggregate score.
func (h *Handler) VerifyFull(w http.ResponseWriter, r *http.Request) {
	var req verifyFullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}

	// Union of both key sets: a field the user filled in that was never
	// extracted is verified against the empty original and comes back
	// MISMATCH.
	pairs := make(map[string]verify.FieldPair, len(req.ExtractedData))
	for field, extracted := range req.ExtractedData {
		pairs[field] = verify.FieldPair{
			Original:  extracted,
			UserValue: req.UserInputData[field],
		}
	}
	for field, userValue := range req.UserInputData {
		if _, ok := pairs[field]; !ok {
			pairs[field] = verify.FieldPair{UserValue: userValue}
		}
	}

	report := h.engine.VerifyAll(pairs)
	h.respondJSON(w, http.StatusOK, report)
}

// readUpload pulls the image bytes and optional schema out of a multipart
// request. On failure it writes the error response and returns ok=false.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (imageBytes []byte, filename string, schema []string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form or upload too large", "")
		return nil, "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing file upload field 'file'", "")
		return nil, "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read uploaded file", "")
		return nil, "", nil, false
	}
	if len(data) == 0 {
		h.respondError(w, http.StatusBadRequest, "uploaded file is empty", "")
		return nil, "", nil, false
	}

	return data, header.Filename, parseSchemaParam(r.FormValue("fields")), true
}

// parseSchemaParam splits a comma-separated field list. An empty value
// means the caller wants the default schema.
func parseSchemaParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	schema := make([]string, 0, len(parts))
	for _, p := range parts {
		if field := strings.TrimSpace(p); field != "" {
			schema = append(schema, field)
		}
	}
	return schema
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	h.respondJSON(w, status, errorResponse{Error: message, Code: code})
}
