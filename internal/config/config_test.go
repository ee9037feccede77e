package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen.Port != 8080 {
		t.Errorf("Listen.Port = %d, want 8080", cfg.Listen.Port)
	}
	if cfg.GenAI.TimeoutSec != 30 {
		t.Errorf("GenAI.TimeoutSec = %d, want 30", cfg.GenAI.TimeoutSec)
	}
	if cfg.Conversation.MaxHistory != 10 {
		t.Errorf("Conversation.MaxHistory = %d, want 10", cfg.Conversation.MaxHistory)
	}
	if len(cfg.Knowledge.FAQ) == 0 {
		t.Error("default FAQ table is empty")
	}
	if len(cfg.Knowledge.Intents) == 0 {
		t.Error("default intent table is empty")
	}
	if _, ok := cfg.Knowledge.Intents["greeting"]; !ok {
		t.Error("default intents missing 'greeting'")
	}
}

func TestLoad_SparseFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
listen:
  port: 9090
log_level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Knowledge tables must survive a sparse file.
	if len(cfg.Knowledge.FAQ) == 0 {
		t.Error("FAQ table lost on sparse load")
	}
	if cfg.Conversation.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.Conversation.RetentionDays)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BANTER_TEST_KEY", "sk-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
genai:
  api_key: ${BANTER_TEST_KEY}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GenAI.APIKey != "sk-secret" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.GenAI.APIKey)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
