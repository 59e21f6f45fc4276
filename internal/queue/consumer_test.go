package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pipeerrors "github.com/veridoc/docverify/internal/errors"
)

func TestClassifyFailure(t *testing.T) {
	decodeErr := pipeerrors.NewDecodeFailedError("job-1", errors.New("bad bytes"))

	tests := []struct {
		name     string
		err      error
		wantCode pipeerrors.ErrorCode
	}{
		{
			// Structured errors from the pipeline keep their own code.
			name:     "pipeline error passes through",
			err:      decodeErr,
			wantCode: pipeerrors.ErrorDecodeFailed,
		},
		{
			name:     "wrapped pipeline error passes through",
			err:      fmt.Errorf("extraction: %w", decodeErr),
			wantCode: pipeerrors.ErrorDecodeFailed,
		},
		{
			name:     "deadline becomes processing timeout",
			err:      fmt.Errorf("recognize: %w", context.DeadlineExceeded),
			wantCode: pipeerrors.ErrorProcessingTimeout,
		},
		{
			name:     "plain error becomes OCR failure",
			err:      errors.New("segfault in engine"),
			wantCode: pipeerrors.ErrorOCRFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := classifyFailure("job-1", 5*time.Minute, tt.err)
			if perr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", perr.Code, tt.wantCode)
			}
			// The map feeds job metadata; the code must survive into it.
			if m := perr.ToMap(); m["error_code"] != string(tt.wantCode) {
				t.Errorf("mapped error_code = %v, want %s", m["error_code"], tt.wantCode)
			}
		})
	}
}
