package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DiagnosisTimeout != 90*time.Second {
		t.Errorf("expected default diagnosis timeout 90s, got %v", cfg.DiagnosisTimeout)
	}
	if !cfg.StreamEnabled {
		t.Error("streaming should default to enabled")
	}
	if cfg.PredictionHistoryLimit != 20 {
		t.Errorf("expected prediction history limit 20, got %d", cfg.PredictionHistoryLimit)
	}
	if cfg.ActivityLogLimit != 50 {
		t.Errorf("expected activity log limit 50, got %d", cfg.ActivityLogLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DIAGNOSIS_TIMEOUT", "30s")
	t.Setenv("STREAM_ENABLED", "false")
	t.Setenv("LLM_PROVIDER", "openai")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port override, got %s", cfg.Port)
	}
	if cfg.DiagnosisTimeout != 30*time.Second {
		t.Errorf("expected timeout override, got %v", cfg.DiagnosisTimeout)
	}
	if cfg.StreamEnabled {
		t.Error("expected streaming disabled")
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("expected provider override, got %s", cfg.LLMProvider)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DIAGNOSIS_TIMEOUT", "very long")
	t.Setenv("PREDICTION_HISTORY_LIMIT", "many")
	t.Setenv("STREAM_ENABLED", "maybe")

	cfg := Load()

	if cfg.DiagnosisTimeout != 90*time.Second {
		t.Errorf("malformed duration should fall back, got %v", cfg.DiagnosisTimeout)
	}
	if cfg.PredictionHistoryLimit != 20 {
		t.Errorf("malformed int should fall back, got %d", cfg.PredictionHistoryLimit)
	}
	if !cfg.StreamEnabled {
		t.Error("malformed bool should fall back to enabled")
	}
}

func TestLanguageName(t *testing.T) {
	cases := map[string]string{
		"en":   "English",
		"HI":   "Hindi",
		" sw ": "Swahili",
		"tlh":  "tlh",
		"":     "",
	}
	for code, want := range cases {
		if got := LanguageName(code); got != want {
			t.Errorf("LanguageName(%q) = %q, want %q", code, got, want)
		}
	}
}
