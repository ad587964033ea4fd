// Package config loads service configuration from a file and the
// environment.
//
// Settings come from a JSON config file (config.json by default),
// overridable per key by RESEARCH_* environment variables, e.g.
// RESEARCH_LLM_API_KEY or RESEARCH_STORE_BACKEND.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Store    StoreConfig    `mapstructure:"store"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig selects the chat model provider.
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // openai, anthropic, google, mock
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"` // provider default when empty
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case "openai", "anthropic", "google":
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("llm.api_key required for provider %q", c.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("llm.provider must be one of openai, anthropic, google, mock")
	}
	return nil
}

// SearchConfig selects the web search provider.
type SearchConfig struct {
	Provider string        `mapstructure:"provider"` // tavily, brave, serper
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (c SearchConfig) Validate() error {
	switch c.Provider {
	case "tavily", "brave", "serper":
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("search.api_key required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("search.provider must be one of tavily, brave, serper")
	}
	return nil
}

// FetchConfig tunes full-page content extraction.
type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// StoreConfig selects the checkpoint store backend.
type StoreConfig struct {
	Backend       string        `mapstructure:"backend"` // memory, sqlite, postgres, redis
	SQLitePath    string        `mapstructure:"sqlite_path"`
	PostgresDSN   string        `mapstructure:"postgres_dsn"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
}

func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "", "memory":
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("store.sqlite_path required for sqlite backend")
		}
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("store.postgres_dsn required for postgres backend")
		}
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("store.redis_addr required for redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be one of memory, sqlite, postgres, redis")
	}
	return nil
}

// MemoryConfig selects the long-term memory backend.
type MemoryConfig struct {
	Backend     string `mapstructure:"backend"` // inmemory, pgvector
	PostgresDSN string `mapstructure:"postgres_dsn"`
	OpenAIKey   string `mapstructure:"openai_api_key"`
}

func (c MemoryConfig) Validate() error {
	switch c.Backend {
	case "", "inmemory":
	case "pgvector":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("memory.postgres_dsn required for pgvector backend")
		}
	default:
		return fmt.Errorf("memory.backend must be one of inmemory, pgvector")
	}
	return nil
}

// WorkflowConfig tunes research run execution.
type WorkflowConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	ChunkSize     int           `mapstructure:"chunk_size"`
	ChunkDelay    time.Duration `mapstructure:"chunk_delay"`
	NodeTimeout   time.Duration `mapstructure:"node_timeout"`
}

// LogConfig tunes observability output.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// Load reads configuration from the given file path, or from config.json
// in the usual locations when path is empty. Environment variables with
// the RESEARCH_ prefix override file values; a missing config file is
// fine as long as defaults and the environment cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.max_chars", 8000)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.sqlite_path", "research.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("memory.backend", "inmemory")
	v.SetDefault("memory.postgres_dsn", "")
	v.SetDefault("memory.openai_api_key", "")
	v.SetDefault("workflow.max_iterations", 5)
	v.SetDefault("workflow.chunk_size", 10)
	v.SetDefault("workflow.chunk_delay", 10*time.Millisecond)
	v.SetDefault("log.json", false)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if c.Workflow.MaxIterations < 0 {
		return fmt.Errorf("workflow.max_iterations must be non-negative")
	}
	return nil
}
