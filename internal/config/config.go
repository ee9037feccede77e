// Package config handles banter configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/banter/config.yaml, /etc/banter/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "banter", "config.yaml"))
	}

	paths = append(paths, "/etc/banter/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all banter configuration.
type Config struct {
	Listen       ListenConfig       `yaml:"listen"`
	GenAI        GenAIConfig        `yaml:"genai"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Conversation ConversationConfig `yaml:"conversation"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	DataDir      string             `yaml:"data_dir"`
	LogLevel     string             `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// GenAIConfig defines the generative response backend. The endpoint is
// any OpenAI-compatible chat completions API (OpenRouter, Ollama, etc.).
// An empty APIKey disables generative responses entirely; the pipeline
// degrades to enhanced rule-based responses.
type GenAIConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"` // Default 30
	MaxTokens  int    `yaml:"max_tokens"`  // Default 300
}

// AlertsConfig defines the optional MQTT alert publisher. When enabled,
// high-priority insights and optimization suggestions are published to
// the broker so operators can watch agent health from anywhere.
type AlertsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Broker     string `yaml:"broker"` // e.g. mqtt://broker:1883 or mqtts://...
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DeviceName string `yaml:"device_name"` // Topic segment, default "banter"
}

// ConversationConfig bounds per-user conversation state.
type ConversationConfig struct {
	// MaxHistory is the number of prior turns kept in the per-user
	// context window. Default 10.
	MaxHistory int `yaml:"max_history"`
	// RetentionDays is how long raw turn records are kept before
	// cleanup. Default 30.
	RetentionDays int `yaml:"retention_days"`
}

// KnowledgeConfig allows overriding the built-in curated knowledge. Any
// empty table falls back to the compiled-in defaults (see defaults.go).
type KnowledgeConfig struct {
	// FAQ maps normalized questions to canned answers.
	FAQ map[string]string `yaml:"faq"`
	// KeyTerms maps high-value substrings to answers, checked after
	// exact and fuzzy FAQ matching.
	KeyTerms map[string]string `yaml:"key_terms"`
	// Intents maps intent names to their seed keyword/example sets.
	Intents map[string][]string `yaml:"intents"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyFallbacks()

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyFallbacks()
	return cfg
}

// applyFallbacks fills zero values after unmarshal so a sparse YAML
// file never leaves the system without its curated knowledge tables.
func (c *Config) applyFallbacks() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
	if c.GenAI.BaseURL == "" {
		c.GenAI.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.GenAI.Model == "" {
		c.GenAI.Model = "meta-llama/llama-3.2-3b-instruct:free"
	}
	if c.GenAI.TimeoutSec <= 0 {
		c.GenAI.TimeoutSec = 30
	}
	if c.GenAI.MaxTokens <= 0 {
		c.GenAI.MaxTokens = 300
	}
	if c.Alerts.DeviceName == "" {
		c.Alerts.DeviceName = "banter"
	}
	if c.Conversation.MaxHistory <= 0 {
		c.Conversation.MaxHistory = 10
	}
	if c.Conversation.RetentionDays <= 0 {
		c.Conversation.RetentionDays = 30
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if len(c.Knowledge.FAQ) == 0 {
		c.Knowledge.FAQ = DefaultFAQ()
	}
	if len(c.Knowledge.KeyTerms) == 0 {
		c.Knowledge.KeyTerms = DefaultKeyTerms()
	}
	if len(c.Knowledge.Intents) == 0 {
		c.Knowledge.Intents = DefaultIntents()
	}
}
