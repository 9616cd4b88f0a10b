package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

// Provider names
const (
	ProviderGoogle = "google"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
	ProviderGCS    = "gcs"
	ProviderMemory = "memory"
)

// Config represents the complete service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Speech     SpeechConfig     `yaml:"speech"`
	Relay      RelayConfig      `yaml:"relay"`
	Auth       AuthConfig       `yaml:"auth"`
	Generative GenerativeConfig `yaml:"generative"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SpeechConfig contains speech recognition configuration
type SpeechConfig struct {
	Provider       string        `yaml:"provider"`
	Project        string        `yaml:"project"`
	Location       string        `yaml:"location"`
	Model          string        `yaml:"model"`
	Language       string        `yaml:"language"`
	StartTimeout   time.Duration `yaml:"start_timeout"`
	EndTimeout     time.Duration `yaml:"end_timeout"`
	InterimResults bool          `yaml:"interim_results"`
}

// RelayConfig contains per-session relay configuration
type RelayConfig struct {
	QueueMaxDepth   int           `yaml:"queue_max_depth"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig contains bearer token configuration. An empty secret disables
// authentication on the transcription socket.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// GenerativeConfig contains generative model configuration
type GenerativeConfig struct {
	Provider       string   `yaml:"provider"`
	APIKey         string   `yaml:"api_key"`
	Project        string   `yaml:"project"`
	Location       string   `yaml:"location"`
	Model          string   `yaml:"model"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxAttempts    int      `yaml:"max_attempts"`
	Datastores     []string `yaml:"datastores"`
}

// StorageConfig contains object storage configuration
type StorageConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	// Dir seeds the memory provider, one subdirectory per bucket
	Dir string `yaml:"dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Speech: SpeechConfig{
			Provider:       ProviderGoogle,
			Location:       "global",
			Model:          "latest_long",
			Language:       "en-US",
			StartTimeout:   30 * time.Second,
			EndTimeout:     3 * time.Second,
			InterimResults: true,
		},
		Relay: RelayConfig{
			QueueMaxDepth:   500,
			PollInterval:    100 * time.Millisecond,
			ShutdownTimeout: 2 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Generative: GenerativeConfig{
			Provider:       ProviderGemini,
			Location:       "global",
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 120,
			MaxAttempts:    3,
		},
		Storage: StorageConfig{
			Enabled:  true,
			Provider: ProviderGCS,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// (or CONFIG_FILE), a .env file and the process environment, in that order
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.intVar("PORT", &c.Server.Port)

	if project, ok := lookup("GOOGLE_CLOUD_PROJECT"); ok {
		c.Speech.Project = project
		c.Generative.Project = project
	}
	e.stringVar("STT_PROVIDER", &c.Speech.Provider)
	e.stringVar("SPEECH_LOCATION", &c.Speech.Location)
	e.stringVar("SPEECH_MODEL", &c.Speech.Model)
	e.stringVar("SPEECH_LANGUAGE", &c.Speech.Language)
	e.durationVar("SPEECH_START_TIMEOUT", &c.Speech.StartTimeout)
	e.durationVar("SPEECH_END_TIMEOUT", &c.Speech.EndTimeout)

	e.intVar("AUDIO_QUEUE_MAX_DEPTH", &c.Relay.QueueMaxDepth)
	e.durationVar("AUDIO_POLL_INTERVAL", &c.Relay.PollInterval)
	e.durationVar("SESSION_SHUTDOWN_TIMEOUT", &c.Relay.ShutdownTimeout)

	e.stringVar("JWT_SECRET", &c.Auth.JWTSecret)

	e.stringVar("LLM_PROVIDER", &c.Generative.Provider)
	e.stringVar("GEMINI_API_KEY", &c.Generative.APIKey)
	e.stringVar("GENAI_MODEL", &c.Generative.Model)
	e.stringVar("GENAI_LOCATION", &c.Generative.Location)
	if raw, ok := lookup("RAG_DATASTORES"); ok {
		c.Generative.Datastores = splitList(raw)
	}

	e.boolVar("STORAGE_ENABLED", &c.Storage.Enabled)
	e.stringVar("STORAGE_PROVIDER", &c.Storage.Provider)
	e.stringVar("STORAGE_DIR", &c.Storage.Dir)

	e.stringVar("LOG_LEVEL", &c.Logging.Level)
	e.stringVar("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(e.errs...)
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech config: %w", err)
	}

	if err := c.Relay.Validate(); err != nil {
		return fmt.Errorf("relay config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Generative.Validate(); err != nil {
		return fmt.Errorf("generative config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", s.ShutdownTimeout)
	}
	return nil
}

// Validate validates speech configuration
func (s *SpeechConfig) Validate() error {
	switch s.Provider {
	case ProviderGoogle:
		if s.Project == "" {
			return fmt.Errorf("project is required for the %s provider", ProviderGoogle)
		}
		if s.Location == "" {
			return fmt.Errorf("location cannot be empty")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("provider must be one of [google, mock], got '%s'", s.Provider)
	}

	if s.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if s.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if s.StartTimeout <= 0 || s.EndTimeout <= 0 {
		return fmt.Errorf("start_timeout and end_timeout must be positive")
	}
	return nil
}

// Validate validates relay configuration
func (r *RelayConfig) Validate() error {
	if r.QueueMaxDepth < 0 {
		return fmt.Errorf("queue_max_depth cannot be negative, got %d", r.QueueMaxDepth)
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", r.PollInterval)
	}
	if r.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", r.ShutdownTimeout)
	}
	return nil
}

// Validate validates auth configuration
func (a *AuthConfig) Validate() error {
	if a.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", a.TokenTTL)
	}
	return nil
}

// Enabled reports whether bearer tokens are required
func (a *AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// Validate validates generative configuration
func (g *GenerativeConfig) Validate() error {
	switch g.Provider {
	case ProviderGemini:
		if g.APIKey == "" && g.Project == "" {
			return fmt.Errorf("api_key or project is required for the %s provider", ProviderGemini)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("provider must be one of [gemini, mock], got '%s'", g.Provider)
	}

	if g.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if g.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", g.TimeoutSeconds)
	}
	if g.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", g.MaxAttempts)
	}
	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Provider != ProviderGCS && s.Provider != ProviderMemory {
		return fmt.Errorf("provider must be one of [gcs, memory], got '%s'", s.Provider)
	}
	if s.Dir != "" && s.Provider != ProviderMemory {
		return fmt.Errorf("dir is only used by the memory provider, got provider '%s'", s.Provider)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'console', got '%s'", l.Format)
	}
	return nil
}

// Recognition returns the streaming recognition settings for every session
func (s *SpeechConfig) Recognition() repositories.RecognitionConfig {
	return repositories.RecognitionConfig{
		LanguageCodes:        []string{s.Language},
		Model:                s.Model,
		InterimResults:       s.InterimResults,
		VoiceActivityEvents:  true,
		SpeechStartTimeout:   s.StartTimeout,
		SpeechEndTimeout:     s.EndTimeout,
		AutomaticPunctuation: true,
		ProfanityFilter:      false,
		WordTimeOffsets:      true,
		WordConfidence:       true,
		MaxAlternatives:      1,
	}
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return
	}
	*dst = n
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return
	}
	*dst = b
}

// durationVar accepts Go durations ("3s") and bare seconds ("3")
func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return
	}
	*dst = d
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
