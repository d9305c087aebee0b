package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	LockTTLMs int    `toml:"lock_ttl_ms"`
}

type MergeConfig struct {
	Threshold      float64 `toml:"threshold"`
	Workers        int     `toml:"workers"`
	MaxInFlight    int     `toml:"max_in_flight"`
	MaxAttempts    int     `toml:"max_attempts"`
	BackoffBaseMs  int     `toml:"backoff_base_ms"`
	BackoffMaxMs   int     `toml:"backoff_max_ms"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	// Locker is "memory" (in-process) or "redis".
	Locker      string `toml:"locker"`
	LockPollMs  int    `toml:"lock_poll_ms"`
	NeighborTop int    `toml:"neighbor_top"`
}

func (m MergeConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func (m MergeConfig) BackoffBase() time.Duration {
	return time.Duration(m.BackoffBaseMs) * time.Millisecond
}

func (m MergeConfig) BackoffMax() time.Duration {
	return time.Duration(m.BackoffMaxMs) * time.Millisecond
}

func (m MergeConfig) LockPoll() time.Duration {
	return time.Duration(m.LockPollMs) * time.Millisecond
}

// Prompts hold the generative instructions. System is sent as the system
// message. Merge is filled by replacing {{cluster_type}}, {{threshold}} and
// {{recipes}}; other text, including '%', is sent verbatim.
type Prompts struct {
	System string `toml:"system"`
	Merge  string `toml:"merge"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Memgraph MemgraphConfig `toml:"memgraph"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Merge    MergeConfig    `toml:"merge"`
	Prompts  Prompts        `toml:"prompts"`
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "recipemerge.db?_busy_timeout=5000&_journal_mode=WAL",
			MaxOpenConns: 10,
		},
		Redis: RedisConfig{
			LockTTLMs: 600000,
		},
		Merge: MergeConfig{
			Threshold:      0.9,
			Workers:        4,
			MaxInFlight:    4,
			MaxAttempts:    3,
			BackoffBaseMs:  1000,
			BackoffMaxMs:   30000,
			TimeoutSeconds: 90,
			Locker:         "memory",
			LockPollMs:     100,
			NeighborTop:    10,
		},
		Prompts: Prompts{
			System: DefaultSystemPrompt,
			Merge:  DefaultMergePrompt,
		},
		Log: LogConfig{
			Mode: "dev",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a TOML file over the defaults and then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.Model, "LLM_MODEL")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.LLM.BaseURL, "LLM_BASE_URL")
	set(&c.Database.Driver, "DATABASE_DRIVER")
	set(&c.Database.DSN, "DATABASE_DSN")
	set(&c.Memgraph.URI, "MEMGRAPH_URI")
	set(&c.Memgraph.User, "MEMGRAPH_USER")
	set(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Log.Mode, "LOG_MODE")
	set(&c.Server.Addr, "SERVER_ADDR")

	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			c.Server.Addr = ":" + v
		}
	}
	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "openai":
			set(&c.LLM.APIKey, "OPENAI_API_KEY")
		case "claude":
			set(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
		case "gemini":
			set(&c.LLM.APIKey, "GEMINI_API_KEY")
		}
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	switch strings.ToLower(c.Merge.Locker) {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported merge locker: %q", c.Merge.Locker)
	}
	if c.Merge.Locker == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("merge.locker is redis but redis.addr is empty")
	}
	if c.Prompts.Merge != "" && !strings.Contains(c.Prompts.Merge, PlaceholderRecipes) {
		return fmt.Errorf("prompts.merge must contain %s", PlaceholderRecipes)
	}
	if c.Merge.MaxAttempts < 1 {
		return fmt.Errorf("merge.max_attempts must be at least 1, got %d", c.Merge.MaxAttempts)
	}
	if c.Merge.Workers < 1 || c.Merge.MaxInFlight < 1 {
		return fmt.Errorf("merge.workers and merge.max_in_flight must be positive")
	}
	if c.Merge.TimeoutSeconds < 1 {
		return fmt.Errorf("merge.timeout_seconds must be positive, got %d", c.Merge.TimeoutSeconds)
	}
	return nil
}
