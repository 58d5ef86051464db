package config

import "time"

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8787",
			ShutdownTimeout:   10 * time.Second,
			RequestsPerMinute: 30,
			RequestBurst:      5,
		},
		API: APIConfig{
			Provider:         "anthropic",
			OllamaBaseURL:    "http://localhost:11434",
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
			Retry: RetryConfig{
				MaxRetries:  3,
				RetryDelay:  1 * time.Second,
				MaxDelay:    30 * time.Second,
				HTTPTimeout: 120 * time.Second,
			},
		},
		Models: ModelsConfig{
			// Temperatures pinned low: classification and planning demand
			// JSON-only output and parse success matters more than variety.
			Intent: PhaseModel{Model: "claude-sonnet-4-20250514", Temperature: 0.1, MaxTokens: 2048},
			Plan:   PhaseModel{Model: "claude-sonnet-4-20250514", Temperature: 0.2, MaxTokens: 4096},
			Edit:   PhaseModel{Model: "claude-sonnet-4-20250514", Temperature: 0.2, MaxTokens: 8192},
		},
		Pipeline: PipelineConfig{
			MaxRetries: 2,
			FileCaps: FileCaps{
				Update:   1,
				Fix:      1,
				Enhance:  2,
				Refactor: 3,
				Default:  1,
			},
			RelevanceThreshold: 0.1,
			MaxContextFiles:    5,
			PhaseTimeout:       2 * time.Minute,
			AttemptDelay:       500 * time.Millisecond,
		},
		Session: SessionConfig{
			MessageCap:         50,
			EditCap:            20,
			TTL:                2 * time.Hour,
			DuplicateThreshold: 0.8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
