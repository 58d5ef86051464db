package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Models   ModelsConfig   `yaml:"models"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Runtime version information
	Version string `yaml:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Per-client request rate limit; zero disables limiting.
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	RequestBurst      float64 `yaml:"request_burst"`
}

// APIConfig holds completion-provider settings.
type APIConfig struct {
	// Active provider: anthropic, gemini, ollama (default: anthropic)
	Provider string `yaml:"provider"`

	// Separate keys for each provider
	AnthropicKey string `yaml:"anthropic_key,omitempty"`
	GeminiKey    string `yaml:"gemini_key,omitempty"`
	OllamaKey    string `yaml:"ollama_key,omitempty"` // Optional, for remote Ollama servers

	// Base URL overrides
	AnthropicBaseURL string `yaml:"anthropic_base_url,omitempty"`
	OllamaBaseURL    string `yaml:"ollama_base_url,omitempty"`

	Retry RetryConfig `yaml:"retry"`

	// Circuit breaker on the completion client
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
}

// RetryConfig holds retry settings for completion calls.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// PhaseModel pins the model and temperature for one pipeline phase.
type PhaseModel struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int32   `yaml:"max_tokens"`
}

// ModelsConfig holds per-phase model settings.
type ModelsConfig struct {
	Intent PhaseModel `yaml:"intent"`
	Plan   PhaseModel `yaml:"plan"`
	Edit   PhaseModel `yaml:"edit"`
}

// PipelineConfig holds orchestration tunables.
type PipelineConfig struct {
	// Build/fix retry loop: total attempts = MaxRetries+1
	MaxRetries int `yaml:"max_retries"`

	// Per-edit-type caps on files touched in one request
	FileCaps FileCaps `yaml:"file_caps"`

	// Relevance threshold below which files are excluded from context
	RelevanceThreshold float64 `yaml:"relevance_threshold"`

	// Maximum files returned by context retrieval
	MaxContextFiles int `yaml:"max_context_files"`

	// Per-phase timeout (0 disables)
	PhaseTimeout time.Duration `yaml:"phase_timeout"`

	// Fixed delay between build/fix attempts
	AttemptDelay time.Duration `yaml:"attempt_delay"`
}

// FileCaps bounds how many files a single edit request may touch.
type FileCaps struct {
	Update   int `yaml:"update"`
	Fix      int `yaml:"fix"`
	Enhance  int `yaml:"enhance"`
	Refactor int `yaml:"refactor"`
	Default  int `yaml:"default"`
}

// SessionConfig holds conversation-state settings.
type SessionConfig struct {
	MessageCap         int           `yaml:"message_cap"`
	EditCap            int           `yaml:"edit_cap"`
	TTL                time.Duration `yaml:"ttl"`
	DuplicateThreshold float64       `yaml:"duplicate_threshold"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir,omitempty"`
}

// ActiveKey returns the API key for the active provider.
func (c *APIConfig) ActiveKey() string {
	switch c.Provider {
	case "gemini":
		return c.GeminiKey
	case "ollama":
		// Ollama key is optional (local server doesn't need it)
		return c.OllamaKey
	default:
		return c.AnthropicKey
	}
}

// CapFor returns the file cap for an edit type name.
func (f FileCaps) CapFor(editType string) int {
	switch editType {
	case "UPDATE":
		return f.Update
	case "FIX":
		return f.Fix
	case "ENHANCE":
		return f.Enhance
	case "REFACTOR":
		return f.Refactor
	default:
		return f.Default
	}
}
