package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("DISPATCHER_BATCH_SIZE", "")
	t.Setenv("DISPATCHER_POLL_INTERVAL", "")
	t.Setenv("CLASSIFIER_PROVIDER", "")
	t.Setenv("CLASSIFIER_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dispatcher.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %s", cfg.Dispatcher.PollInterval)
	}
	if cfg.Dispatcher.BatchSize != 10 || cfg.Dispatcher.Concurrency != 10 {
		t.Errorf("batch = %d concurrency = %d", cfg.Dispatcher.BatchSize, cfg.Dispatcher.Concurrency)
	}
	if cfg.Classifier.Timeout != 30*time.Second {
		t.Errorf("classifier timeout = %s", cfg.Classifier.Timeout)
	}
	if cfg.Classifier.Provider != ProviderOllama {
		t.Errorf("provider = %q", cfg.Classifier.Provider)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"250ms", 250 * time.Millisecond},
		{"7", 7 * time.Second},
		{"soon", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.value)
		if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != tt.want {
			t.Errorf("getEnvAsDuration(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Auth:       AuthConfig{JWTSecret: "s"},
			Classifier: ClassifierConfig{Provider: ProviderOllama, Timeout: time.Second, RatePerSecond: 1, Burst: 1},
			Dispatcher: DispatcherConfig{PollInterval: time.Second, BatchSize: 10, Concurrency: 2},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero batch", func(c *Config) { c.Dispatcher.BatchSize = 0 }, "DISPATCHER_BATCH_SIZE"},
		{"zero interval", func(c *Config) { c.Dispatcher.PollInterval = 0 }, "DISPATCHER_POLL_INTERVAL"},
		{"zero timeout", func(c *Config) { c.Classifier.Timeout = 0 }, "CLASSIFIER_TIMEOUT"},
		{"unknown provider", func(c *Config) { c.Classifier.Provider = "gpt" }, "CLASSIFIER_PROVIDER"},
		{"anthropic without key", func(c *Config) { c.Classifier.Provider = ProviderAnthropic }, "ANTHROPIC_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
