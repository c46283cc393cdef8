package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("OUTPUT_DIR", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("GEMINI_IMAGE_MODEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.UploadDir != "./uploads" || cfg.OutputDir != "./outputs" {
		t.Fatalf("dirs mismatch: upload=%q output=%q", cfg.UploadDir, cfg.OutputDir)
	}
	if cfg.GeminiImageModel != "gemini-2.5-flash-image-preview" {
		t.Fatalf("GeminiImageModel = %q", cfg.GeminiImageModel)
	}
	if cfg.MaxUploadBytes != 16<<20 {
		t.Fatalf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 16<<20)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.HTTPWriteTimeout != 180*time.Second {
		t.Fatalf("HTTPWriteTimeout = %s", cfg.HTTPWriteTimeout)
	}
}

func TestLoadConfigDoesNotRequireKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if err := cfg.RequireGemini(); err == nil {
		t.Fatalf("RequireGemini succeeded without a key")
	}
}

func TestLoadConfigReadsKeyAndOrigins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  test-key ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "test-key" {
		t.Fatalf("GeminiAPIKey = %q, want %q", cfg.GeminiAPIKey, "test-key")
	}
	if err := cfg.RequireGemini(); err != nil {
		t.Fatalf("RequireGemini returned error: %v", err)
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoadConfigRejectsNonPositiveUploadLimit(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig accepted MAX_UPLOAD_MB=0")
	}
}
