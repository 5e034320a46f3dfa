package types

import "time"

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout is the per-call HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// CriticConfig holds settings for the note critique stage.
type CriticConfig struct {
	AIConfig `yaml:",inline"`

	// MaxRecentThoughts caps how many thought-log entries are included in
	// each critique prompt (default 5).
	MaxRecentThoughts int `json:"max_recent_thoughts" yaml:"max_recent_thoughts"`
}

// StoreConfig holds settings for the mission store.
type StoreConfig struct {
	// DataDir is the base directory for mission data (contains missions.db).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Config groups all stage configurations.
type Config struct {
	Critic CriticConfig `json:"critic" yaml:"critic"`
	Store  StoreConfig  `json:"store" yaml:"store"`
}
