package config

import (
	"strings"
	"testing"
)

const goodSecret = "Abcdefghij0123456789!abcdefghij#"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BLOGD_SESSION_SECRET", goodSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "./data/blogd.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("default env should be development")
	}
	if cfg.EventRetentionDays != 90 {
		t.Errorf("EventRetentionDays = %d", cfg.EventRetentionDays)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("BLOGD_SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without session secret")
	}
}

func TestLoadShortSecret(t *testing.T) {
	t.Setenv("BLOGD_SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded with short secret")
	}
	if !strings.Contains(err.Error(), "at least 32 bytes") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadWeakSecret(t *testing.T) {
	t.Setenv("BLOGD_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a known weak secret")
	}
}

func TestLoadBadRetention(t *testing.T) {
	t.Setenv("BLOGD_SESSION_SECRET", goodSecret)
	t.Setenv("BLOGD_EVENT_RETENTION_DAYS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted zero retention")
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"alllowercaseletters", false},
		{"lowerUPPER", false},
		{"lowerUPPER123", true},
		{"lower-UPPER-123!", true},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v; want %v", tt.secret, got, tt.want)
		}
	}
}
