// Package config loads GIPL Assistant settings from defaults, an optional
// YAML file, a .env file and GIPL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gipl/gipl-assistant/internal"
)

// ErrMissingCredential is returned when the completion provider needs an API
// key and the configured environment variable is unset or empty.
var ErrMissingCredential = errors.New("missing API credential")

type Config struct {
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" yaml:"knowledge"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type AssistantConfig struct {
	// Name appears in the greeting and in the system prompt.
	Name string `mapstructure:"name" yaml:"name"`
	// Greetings are matched exactly after lowercasing the message.
	Greetings []string `mapstructure:"greetings" yaml:"greetings"`
}

type KnowledgeConfig struct {
	Documents []string `mapstructure:"documents" yaml:"documents"`
	URLs      []string `mapstructure:"urls" yaml:"urls"`
	// PDFEngine is "native" (pure Go) or "mupdf".
	PDFEngine        string        `mapstructure:"pdf_engine" yaml:"pdf_engine"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency" yaml:"fetch_concurrency"`
	UserAgent        string        `mapstructure:"user_agent" yaml:"user_agent"`
	// Snapshot, when set, is loaded instead of extracting the sources.
	Snapshot string `mapstructure:"snapshot" yaml:"snapshot,omitempty"`
	Watch    bool   `mapstructure:"watch" yaml:"watch"`
	// Refresh is a cron schedule ("@every 6h", "0 3 * * *") for rebuilding
	// the blob from all sources. Empty disables it.
	Refresh   string     `mapstructure:"refresh" yaml:"refresh,omitempty"`
	Overrides []Override `mapstructure:"overrides" yaml:"overrides"`
}

// Override swaps the knowledge blob for one document when the message
// mentions any of the keywords.
type Override struct {
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
	Document string   `mapstructure:"document" yaml:"document"`
}

type LLMConfig struct {
	// Provider is one of "groq", "openai", "gemini" or "mock".
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	// BaseURL overrides the provider endpoint; empty uses the provider's own.
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv by Load and never written out.
	APIKey string `mapstructure:"-" yaml:"-"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// MaxSessions caps live chat sessions; the least recently used one is
	// evicted first. Zero means no cap.
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`
	// SessionTTL evicts sessions idle for longer. Zero keeps them forever.
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the settings the assistant ships with.
func Default() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Name:      "GIPL Assistant",
			Greetings: []string{"hi", "hi!", "hello", "hello!", "hey", "hi there!", "greetings"},
		},
		Knowledge: KnowledgeConfig{
			Documents: []string{
				"BoardofDirectors_20240925.pdf",
				"CSRPolicytoBoardofDirectors.pdf",
				"ShriMaheshGohel.pdf",
			},
			URLs: []string{
				"https://gipl.in",
				"https://gipl.in/Detail/AwardList",
			},
			PDFEngine:        "native",
			FetchTimeout:     30 * time.Second,
			FetchConcurrency: 1,
			UserAgent:        "gipl-assistant/1.0",
			Overrides: []Override{
				{Keywords: []string{"ceo", "mahesh gohel"}, Document: "ShriMaheshGohel.pdf"},
			},
		},
		LLM: LLMConfig{
			Provider:  "groq",
			Model:     "llama3-8b-8192",
			APIKeyEnv: "GROQ_API_KEY",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
			MaxSessions:    10000,
			SessionTTL:     24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A .env file in the working directory
// is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Example: GIPL_LLM_MODEL, GIPL_SERVER_ADDR
	v.SetEnvPrefix("GIPL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = strings.TrimSpace(os.Getenv(cfg.LLM.APIKeyEnv))
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("assistant.name", d.Assistant.Name)
	v.SetDefault("assistant.greetings", d.Assistant.Greetings)

	v.SetDefault("knowledge.documents", d.Knowledge.Documents)
	v.SetDefault("knowledge.urls", d.Knowledge.URLs)
	v.SetDefault("knowledge.pdf_engine", d.Knowledge.PDFEngine)
	v.SetDefault("knowledge.fetch_timeout", d.Knowledge.FetchTimeout)
	v.SetDefault("knowledge.fetch_concurrency", d.Knowledge.FetchConcurrency)
	v.SetDefault("knowledge.user_agent", d.Knowledge.UserAgent)
	v.SetDefault("knowledge.snapshot", d.Knowledge.Snapshot)
	v.SetDefault("knowledge.watch", d.Knowledge.Watch)
	v.SetDefault("knowledge.refresh", d.Knowledge.Refresh)
	overrides := make([]map[string]any, 0, len(d.Knowledge.Overrides))
	for _, o := range d.Knowledge.Overrides {
		overrides = append(overrides, map[string]any{"keywords": o.Keywords, "document": o.Document})
	}
	v.SetDefault("knowledge.overrides", overrides)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key_env", d.LLM.APIKeyEnv)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate checks the settings needed before anything starts. A missing
// credential is reported as ErrMissingCredential.
func (c *Config) Validate() error {
	if c.Assistant.Name == "" {
		return errors.New("assistant.name is required")
	}
	if len(c.Knowledge.Documents) == 0 && len(c.Knowledge.URLs) == 0 && c.Knowledge.Snapshot == "" {
		return errors.New("knowledge: no documents, urls or snapshot configured")
	}
	switch c.Knowledge.PDFEngine {
	case "native", "mupdf":
	default:
		return fmt.Errorf("knowledge.pdf_engine: unknown engine %q", c.Knowledge.PDFEngine)
	}
	for i, o := range c.Knowledge.Overrides {
		if len(o.Keywords) == 0 || o.Document == "" {
			return fmt.Errorf("knowledge.overrides[%d]: keywords and document are required", i)
		}
	}
	switch c.LLM.Provider {
	case "mock":
		return nil
	case "groq", "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingCredential, c.LLM.APIKeyEnv)
	}
	return nil
}

// Sources returns the configured document sources, local documents first,
// in configuration order.
func (c *Config) Sources() []internal.Source {
	out := make([]internal.Source, 0, len(c.Knowledge.Documents)+len(c.Knowledge.URLs))
	for _, p := range c.Knowledge.Documents {
		out = append(out, internal.LocalSource(p))
	}
	for _, u := range c.Knowledge.URLs {
		out = append(out, internal.RemoteSource(u))
	}
	return out
}

// WriteExample writes the configuration as YAML to path.
func (c *Config) WriteExample(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
