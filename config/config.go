package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agenttask/journal"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/memory"
	"github.com/hupe1980/agenttask/session"
)

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Memory backends.
const (
	MemoryChromem = "chromem"
	MemoryKeyword = "keyword"
)

// Journal backends.
const (
	JournalFile   = "file"
	JournalSQLite = "sqlite"
	JournalMemory = "memory"
)

// Config is the complete agenttask configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Model         ModelConfig         `yaml:"model"`
	Agent         AgentConfig         `yaml:"agent"`
	CodeExecution CodeExecutionConfig `yaml:"code_execution"`
	Memory        MemoryConfig        `yaml:"memory"`
	Knowledge     KnowledgeConfig     `yaml:"knowledge"`
	Journal       JournalConfig       `yaml:"journal"`
	Notify        NotifyConfig        `yaml:"notify"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ServerConfig holds the HTTP trigger surface settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// ModelConfig selects the chat model.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Stream      bool    `yaml:"stream"`
}

// AgentConfig holds per-agent limits.
type AgentConfig struct {
	MaxToolResponseLength int    `yaml:"max_tool_response_length"`
	MaxModelCalls         int    `yaml:"max_model_calls"`
	MemorySubdir          string `yaml:"memory_subdir"`

	// DefaultTimeout applies to requests that do not name a timeout.
	DefaultTimeout    time.Duration `yaml:"-"`
	DefaultTimeoutRaw string        `yaml:"default_timeout"`
}

// CodeExecutionConfig configures the interactive session and its idle
// detection.
type CodeExecutionConfig struct {
	Shell             string `yaml:"shell"`
	WorkDir           string `yaml:"work_dir"`
	IdleWithOutput    int    `yaml:"idle_with_output"`
	IdleWithoutOutput int    `yaml:"idle_without_output"`

	PollInterval    time.Duration `yaml:"-"`
	PollIntervalRaw string        `yaml:"poll_interval"`
}

// MemoryConfig configures long-term memory.
type MemoryConfig struct {
	Backend string `yaml:"backend"`
	// Dir holds one sub-directory per namespace. Empty keeps memory in
	// process.
	Dir               string `yaml:"dir"`
	EmbeddingModel    string `yaml:"embedding_model"`
	EmbeddingAPIKey   string `yaml:"embedding_api_key"`
	EmbeddingBaseURL  string `yaml:"embedding_base_url"`
	EmbeddingCache    int    `yaml:"embedding_cache"`
	CompressDocuments bool   `yaml:"compress_documents"`
}

// KnowledgeConfig configures the knowledge providers.
type KnowledgeConfig struct {
	Perplexity PerplexityConfig `yaml:"perplexity"`
	DuckDuckGo DuckDuckGoConfig `yaml:"duckduckgo"`

	ProviderTimeout    time.Duration `yaml:"-"`
	ProviderTimeoutRaw string        `yaml:"provider_timeout"`
}

// PerplexityConfig holds Perplexity credentials. An empty key disables it.
type PerplexityConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// DuckDuckGoConfig switches the DuckDuckGo scraper.
type DuckDuckGoConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxResults int  `yaml:"max_results"`
}

// JournalConfig selects where task lifecycle entries are written.
type JournalConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	Path    string `yaml:"path"`
}

// NotifyConfig configures the webhook notifier. An empty URL disables
// notifications.
type NotifyConfig struct {
	WebhookURL string            `yaml:"webhook_url"`
	Headers    map[string]string `yaml:"headers"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration that runs locally without credentials
// beyond the model's.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Model: ModelConfig{
			Provider: ProviderOpenAI,
			Name:     "gpt-4o",
		},
		Agent: AgentConfig{
			MaxToolResponseLength: 3000,
			MaxModelCalls:         100,
			MemorySubdir:          memory.DefaultNamespace,
			DefaultTimeout:        600 * time.Second,
		},
		CodeExecution: CodeExecutionConfig{
			Shell:             "/bin/bash",
			PollInterval:      session.DefaultPollInterval,
			IdleWithOutput:    session.DefaultIdleWithOutput,
			IdleWithoutOutput: session.DefaultIdleWithoutOutput,
		},
		Memory: MemoryConfig{
			Backend:        MemoryKeyword,
			EmbeddingModel: memory.DefaultEmbeddingModel,
			EmbeddingCache: 1024,
		},
		Knowledge: KnowledgeConfig{
			DuckDuckGo:      DuckDuckGoConfig{Enabled: true, MaxResults: 5},
			ProviderTimeout: 60 * time.Second,
		},
		Journal: JournalConfig{Backend: JournalFile, Dir: journal.DefaultDir},
		Notify:  NotifyConfig{Timeout: 10 * time.Second},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Load reads a configuration file from the given path on top of Default.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or "" when
// unset.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("model.provider must be %s or %s, got %q", ProviderOpenAI, ProviderAnthropic, c.Model.Provider)
	}
	if c.Model.Name == "" {
		return errors.New("model.name is required")
	}

	if c.Agent.MaxModelCalls < 0 {
		return errors.New("agent.max_model_calls must not be negative")
	}
	if c.Agent.DefaultTimeout <= 0 {
		return errors.New("agent.default_timeout must be positive")
	}

	if c.CodeExecution.Shell == "" {
		return errors.New("code_execution.shell is required")
	}
	if c.CodeExecution.PollInterval <= 0 {
		return errors.New("code_execution.poll_interval must be positive")
	}
	if c.CodeExecution.IdleWithOutput <= 0 || c.CodeExecution.IdleWithoutOutput <= 0 {
		return errors.New("code_execution idle thresholds must be positive")
	}

	switch c.Memory.Backend {
	case MemoryKeyword:
	case MemoryChromem:
		if c.Memory.EmbeddingModel == "" {
			return errors.New("memory.embedding_model is required for the chromem backend")
		}
	default:
		return fmt.Errorf("memory.backend must be %s or %s, got %q", MemoryChromem, MemoryKeyword, c.Memory.Backend)
	}

	switch c.Journal.Backend {
	case JournalFile, JournalMemory:
	case JournalSQLite:
		if c.Journal.Path == "" {
			return errors.New("journal.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("journal.backend must be %s, %s or %s, got %q", JournalFile, JournalSQLite, JournalMemory, c.Journal.Backend)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
// Unset strings keep the defaults.
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"agent.default_timeout", cfg.Agent.DefaultTimeoutRaw, &cfg.Agent.DefaultTimeout},
		{"code_execution.poll_interval", cfg.CodeExecution.PollIntervalRaw, &cfg.CodeExecution.PollInterval},
		{"knowledge.provider_timeout", cfg.Knowledge.ProviderTimeoutRaw, &cfg.Knowledge.ProviderTimeout},
		{"notify.timeout", cfg.Notify.TimeoutRaw, &cfg.Notify.Timeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
