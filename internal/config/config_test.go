package config

import (
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Ensure a clean environment for the keys under test.
	keys := []string{
		"LISTEN_ADDR", "MAX_UPLOAD_SIZE", "REDIS_URL", "QUEUE_NAME",
		"MODEL_BASE_URL", "MODEL_NAME", "TESSERACT_LANGUAGES",
		"MIN_DETECT_CONFIDENCE", "MATCH_THRESHOLD", "PARTIAL_THRESHOLD",
		"WORKER_CONCURRENCY", "PROCESSING_TIMEOUT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.QueueName != "docverify:jobs" {
		t.Errorf("QueueName = %q, want docverify:jobs", cfg.QueueName)
	}
	if cfg.ModelName != "phi3" {
		t.Errorf("ModelName = %q, want phi3", cfg.ModelName)
	}
	if cfg.MatchThreshold != 90 || cfg.PartialThreshold != 60 {
		t.Errorf("thresholds = %.0f/%.0f, want 90/60", cfg.MatchThreshold, cfg.PartialThreshold)
	}
	if cfg.MinDetectConfidence != 0.30 {
		t.Errorf("MinDetectConfidence = %f, want 0.30", cfg.MinDetectConfidence)
	}
	if cfg.LineTolerancePx != 20 {
		t.Errorf("LineTolerancePx = %d, want 20", cfg.LineTolerancePx)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("MATCH_THRESHOLD", "95")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("TESSERACT_LANGUAGES", "eng+deu")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.MatchThreshold != 95 {
		t.Errorf("MatchThreshold = %.0f, want 95", cfg.MatchThreshold)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Errorf("WorkerConcurrency = %d, want 8", cfg.WorkerConcurrency)
	}
	if cfg.TesseractLanguages != "eng+deu" {
		t.Errorf("TesseractLanguages = %q, want eng+deu", cfg.TesseractLanguages)
	}
}

func TestLoadConfigMalformedNumberFallsBack(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want default 4", cfg.WorkerConcurrency)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ListenAddr:           ":8080",
			MaxUploadSize:        20971520,
			RedisURL:             "redis://localhost:6379",
			QueueName:            "docverify:jobs",
			JobTTLSec:            3600,
			ModelBaseURL:         "http://localhost:11434/v1",
			ModelName:            "phi3",
			TesseractLanguages:   "eng",
			MinDetectConfidence:  0.30,
			LineTolerancePx:      20,
			MatchThreshold:       90,
			PartialThreshold:     60,
			WorkerConcurrency:    4,
			RecognizeConcurrency: 4,
			ProcessingTimeoutSec: 300,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid baseline", func(c *Config) {}, false},
		{"missing redis url", func(c *Config) { c.RedisURL = "" }, true},
		{"missing model base url", func(c *Config) { c.ModelBaseURL = "" }, true},
		{"zero worker concurrency", func(c *Config) { c.WorkerConcurrency = 0 }, true},
		{"excessive worker concurrency", func(c *Config) { c.WorkerConcurrency = 500 }, true},
		{"detect confidence above one", func(c *Config) { c.MinDetectConfidence = 1.5 }, true},
		{"partial above match", func(c *Config) { c.PartialThreshold = 95 }, true},
		{"match above hundred", func(c *Config) { c.MatchThreshold = 150 }, true},
		{"upload size too small", func(c *Config) { c.MaxUploadSize = 100 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate returned nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate returned error: %v", err)
			}
		})
	}
}
