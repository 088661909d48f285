package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models taskpilot.yml.
type Config struct {
	LLM struct {
		Provider  string `yaml:"provider"`
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		MaxTokens int    `yaml:"max_tokens"`
		// Per-call timeout in seconds.
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Retry struct {
		MaxAttempts     int `yaml:"max_attempts"`
		BaseDelaySecond int `yaml:"base_delay_seconds"`
		MaxDelaySecond  int `yaml:"max_delay_seconds"`
	} `yaml:"retry"`
	Temperatures struct {
		Feedback   float64 `yaml:"feedback"`
		Planning   float64 `yaml:"planning"`
		Classifier float64 `yaml:"classifier"`
	} `yaml:"temperatures"`
	Workers struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"workers"`
	// AutoPlan triggers plan generation when the inbox classifier
	// creates a new project.
	AutoPlan bool `yaml:"auto_plan"`
}

// Load reads and validates config from the workspace, applying the
// defaults for anything left unset.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskpilot.yml")
}

// FromYAML parses and validates config from raw YAML bytes. Unset fields
// fall back to defaults before validation.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4"
	cfg.LLM.MaxTokens = 1500
	cfg.LLM.TimeoutSeconds = 30
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelaySecond = 2
	cfg.Retry.MaxDelaySecond = 10
	cfg.Temperatures.Feedback = 0.2
	cfg.Temperatures.Planning = 0.5
	cfg.Temperatures.Classifier = 0.3
	cfg.Workers.Count = 4
	cfg.Workers.QueueSize = 64
	cfg.AutoPlan = true
	return &cfg
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.LLM.Provider == "" {
		c.LLM.Provider = d.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = d.LLM.MaxTokens
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = d.LLM.TimeoutSeconds
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.BaseDelaySecond == 0 {
		c.Retry.BaseDelaySecond = d.Retry.BaseDelaySecond
	}
	if c.Retry.MaxDelaySecond == 0 {
		c.Retry.MaxDelaySecond = d.Retry.MaxDelaySecond
	}
	if c.Temperatures.Feedback == 0 {
		c.Temperatures.Feedback = d.Temperatures.Feedback
	}
	if c.Temperatures.Planning == 0 {
		c.Temperatures.Planning = d.Temperatures.Planning
	}
	if c.Temperatures.Classifier == 0 {
		c.Temperatures.Classifier = d.Temperatures.Classifier
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = d.Workers.Count
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = d.Workers.QueueSize
	}
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "gemini", "fake":
	default:
		return fmt.Errorf("config.llm.provider must be one of openai, anthropic, gemini (got %q)", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("config.llm.max_tokens must be positive")
	}
	if c.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("config.llm.timeout_seconds must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config.retry.max_attempts must be at least 1")
	}
	if c.Retry.BaseDelaySecond < 1 || c.Retry.MaxDelaySecond < c.Retry.BaseDelaySecond {
		return fmt.Errorf("config.retry delays invalid: base=%d max=%d", c.Retry.BaseDelaySecond, c.Retry.MaxDelaySecond)
	}
	if c.Temperatures.Planning < c.Temperatures.Feedback {
		return fmt.Errorf("config.temperatures.planning must not be lower than feedback")
	}
	if c.Workers.Count < 1 {
		return fmt.Errorf("config.workers.count must be at least 1")
	}
	return nil
}

// Timeout returns the per-call model timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// GenerateDefault returns the default config YAML for `tp config init`.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `llm:
  provider: openai            # openai | anthropic | gemini
  api_key: ""                 # or TASKPILOT_LLM_API_KEY
  model: gpt-4
  max_tokens: 1500
  timeout_seconds: 30

retry:
  max_attempts: 3
  base_delay_seconds: 2
  max_delay_seconds: 10

temperatures:
  feedback: 0.2
  planning: 0.5
  classifier: 0.3

workers:
  count: 4
  queue_size: 64

auto_plan: true
`
