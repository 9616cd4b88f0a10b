package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultRequiresProject(t *testing.T) {
	config := Default()
	err := config.Validate()
	if err == nil || !strings.Contains(err.Error(), "speech config") {
		t.Fatalf("Expected speech config error, got %v", err)
	}

	config.Speech.Project = "demo"
	config.Generative.Project = "demo"
	if err := config.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	config := Default()
	err := config.ApplyEnv(envMap(map[string]string{
		"PORT":                     "9090",
		"GOOGLE_CLOUD_PROJECT":     "brk-prj",
		"SPEECH_END_TIMEOUT":       "1.5",
		"SESSION_SHUTDOWN_TIMEOUT": "500ms",
		"AUDIO_QUEUE_MAX_DEPTH":    "0",
		"RAG_DATASTORES":           "projects/p/ds/a, projects/p/ds/b,,",
		"STORAGE_ENABLED":          "false",
		"STORAGE_DIR":              "/data/objects",
		"LOG_FORMAT":               "console",
		"JWT_SECRET":               "s3cret",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", config.Server.Port)
	}
	if config.Speech.Project != "brk-prj" || config.Generative.Project != "brk-prj" {
		t.Errorf("Project not applied to both sections: %+v", config)
	}
	if config.Speech.EndTimeout != 1500*time.Millisecond {
		t.Errorf("EndTimeout = %s, want 1.5s", config.Speech.EndTimeout)
	}
	if config.Relay.ShutdownTimeout != 500*time.Millisecond {
		t.Errorf("ShutdownTimeout = %s, want 500ms", config.Relay.ShutdownTimeout)
	}
	if config.Relay.QueueMaxDepth != 0 {
		t.Errorf("QueueMaxDepth = %d, want 0", config.Relay.QueueMaxDepth)
	}
	if len(config.Generative.Datastores) != 2 || config.Generative.Datastores[1] != "projects/p/ds/b" {
		t.Errorf("Unexpected datastores %v", config.Generative.Datastores)
	}
	if config.Storage.Enabled {
		t.Error("Expected storage to be disabled")
	}
	if config.Storage.Dir != "/data/objects" {
		t.Errorf("Storage dir = %q, want /data/objects", config.Storage.Dir)
	}
	if !config.Auth.Enabled() {
		t.Error("Expected auth to be enabled")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestApplyEnvInvalidValues(t *testing.T) {
	config := Default()
	err := config.ApplyEnv(envMap(map[string]string{
		"PORT":               "eighty",
		"SPEECH_END_TIMEOUT": "soon",
		"STORAGE_ENABLED":    "maybe",
	}))
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, key := range []string{"PORT", "SPEECH_END_TIMEOUT", "STORAGE_ENABLED"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Expected error to mention %s, got %v", key, err)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Speech.Project = "p"
		c.Generative.Project = "p"
		return c
	}

	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 70000 }, "port must be between"},
		{"unknown stt provider", func(c *Config) { c.Speech.Provider = "whisper" }, "provider must be one of [google, mock]"},
		{"mock stt without project", func(c *Config) { c.Speech.Provider = ProviderMock; c.Speech.Project = "" }, ""},
		{"negative queue depth", func(c *Config) { c.Relay.QueueMaxDepth = -1 }, "queue_max_depth"},
		{"zero poll interval", func(c *Config) { c.Relay.PollInterval = 0 }, "poll_interval"},
		{"gemini with api key only", func(c *Config) { c.Generative.Project = ""; c.Generative.APIKey = "k" }, ""},
		{"gemini without credentials", func(c *Config) { c.Generative.Project = "" }, "api_key or project"},
		{"disabled storage ignores provider", func(c *Config) { c.Storage.Enabled = false; c.Storage.Provider = "s3" }, ""},
		{"unknown storage provider", func(c *Config) { c.Storage.Provider = "s3" }, "provider must be one of [gcs, memory]"},
		{"memory storage with dir", func(c *Config) { c.Storage.Provider = ProviderMemory; c.Storage.Dir = "/data" }, ""},
		{"gcs storage with dir", func(c *Config) { c.Storage.Dir = "/data" }, "dir is only used by the memory provider"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "trace" }, "level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  port: 8181
speech:
  provider: mock
  language: id-ID
  end_timeout: 2s
relay:
  queue_max_depth: 50
generative:
  provider: mock
storage:
  provider: memory
  dir: /srv/corpus
logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9191")

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Server.Port != 9191 {
		t.Errorf("Expected environment to override file port, got %d", config.Server.Port)
	}
	if config.Speech.Language != "id-ID" || config.Speech.EndTimeout != 2*time.Second {
		t.Errorf("Unexpected speech config %+v", config.Speech)
	}
	if config.Speech.Model != "latest_long" {
		t.Errorf("Expected default model to survive, got %s", config.Speech.Model)
	}
	if config.Relay.QueueMaxDepth != 50 {
		t.Errorf("QueueMaxDepth = %d, want 50", config.Relay.QueueMaxDepth)
	}
	if config.Storage.Provider != ProviderMemory || config.Storage.Dir != "/srv/corpus" {
		t.Errorf("Unexpected storage config %+v", config.Storage)
	}

	rec := config.Speech.Recognition()
	if len(rec.LanguageCodes) != 1 || rec.LanguageCodes[0] != "id-ID" || !rec.WordTimeOffsets || rec.MaxAlternatives != 1 {
		t.Errorf("Unexpected recognition config %+v", rec)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}
