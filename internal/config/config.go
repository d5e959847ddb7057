// Package config loads scribe settings.
//
// Values are layered, later sources winning:
//
//  1. Built-in defaults ([Default])
//  2. The TOML file (~/.config/scribe/config.toml, or --config)
//  3. A .env file in the working directory (never overrides the environment)
//  4. Environment variables (SCRIBE_*, OPENAI_API_KEY, ANTHROPIC_API_KEY)
//
// Command-line flags are applied on top by the CLI.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/matzehuels/scribetree/pkg/cache"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/llm"
	"github.com/matzehuels/scribetree/pkg/store"
)

const appName = "scribe"

// =============================================================================
// Types
// =============================================================================

// Config is the complete scribe configuration.
type Config struct {
	LogLevel string `toml:"log_level" env:"SCRIBE_LOG_LEVEL"`
	LLM      LLM    `toml:"llm"`
	Cache    Cache  `toml:"cache"`
	Store    Store  `toml:"store"`
	Server   Server `toml:"server"`
	Layout   Layout `toml:"layout"`
}

// LLM selects the model provider.
type LLM struct {
	Provider     string        `toml:"provider" env:"SCRIBE_PROVIDER"`
	Model        string        `toml:"model" env:"SCRIBE_MODEL"`
	BaseURL      string        `toml:"base_url" env:"SCRIBE_BASE_URL"`
	OpenAIKey    string        `toml:"openai_api_key" env:"OPENAI_API_KEY"`
	AnthropicKey string        `toml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	MaxTokens    int           `toml:"max_tokens" env:"SCRIBE_MAX_TOKENS"`
	Timeout      time.Duration `toml:"timeout" env:"SCRIBE_TIMEOUT"`
	Attempts     int           `toml:"attempts" env:"SCRIBE_ATTEMPTS"`
}

// Cache selects where finished notes are cached.
type Cache struct {
	// Backend is "file", "redis" or "none".
	Backend  string `toml:"backend" env:"SCRIBE_CACHE"`
	Dir      string `toml:"dir" env:"SCRIBE_CACHE_DIR"`
	RedisURL string `toml:"redis_url" env:"SCRIBE_REDIS_URL"`
	// Prefix namespaces cache keys, e.g. per deployment on a shared Redis.
	Prefix string `toml:"prefix" env:"SCRIBE_CACHE_PREFIX"`
}

// Store selects where generated documents are kept.
type Store struct {
	// Backend is "sqlite", "mongo" or "memory".
	Backend       string `toml:"backend" env:"SCRIBE_STORE"`
	Path          string `toml:"path" env:"SCRIBE_DB_PATH"`
	MongoURI      string `toml:"mongo_uri" env:"SCRIBE_MONGO_URI"`
	MongoDatabase string `toml:"mongo_database" env:"SCRIBE_MONGO_DATABASE"`
}

// Server configures `scribe serve`.
type Server struct {
	Addr            string        `toml:"addr" env:"SCRIBE_ADDR"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SCRIBE_SHUTDOWN_TIMEOUT"`
	AllowOrigins    []string      `toml:"allow_origins" env:"SCRIBE_ALLOW_ORIGINS" envSeparator:","`
}

// Layout holds the default layout parameters.
type Layout struct {
	Gap            float64 `toml:"gap" env:"SCRIBE_LAYOUT_GAP"`
	SmallIncrement float64 `toml:"small_increment" env:"SCRIBE_LAYOUT_SMALL_INCREMENT"`
	LargeIncrement float64 `toml:"large_increment" env:"SCRIBE_LAYOUT_LARGE_INCREMENT"`
	MaxDepth       int     `toml:"max_depth" env:"SCRIBE_LAYOUT_MAX_DEPTH"`
	Direction      string  `toml:"direction" env:"SCRIBE_LAYOUT_DIRECTION"`
}

// Backend names.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"

	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// =============================================================================
// Defaults
// =============================================================================

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		LLM: LLM{
			Provider:  llm.ProviderOpenAI,
			MaxTokens: llm.DefaultMaxTokens,
			Timeout:   5 * time.Minute,
			Attempts:  3,
		},
		Cache: Cache{
			Backend:  CacheFile,
			RedisURL: "redis://localhost:6379/0",
		},
		Store: Store{
			Backend:       StoreSQLite,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: appName,
		},
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Layout: Layout{
			Gap:            layout.DefaultGap,
			SmallIncrement: layout.DefaultSmallIncrement,
			LargeIncrement: layout.DefaultLargeIncrement,
			MaxDepth:       64,
			Direction:      string(layout.TopToBottom),
		},
	}
}

// DefaultPath returns the config file location (~/.config/scribe/config.toml).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DataDir returns the data directory (~/.local/share/scribe).
func DataDir() (string, error) {
	if home := os.Getenv("XDG_DATA_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// =============================================================================
// Loading
// =============================================================================

// LoadOptions locates the configuration sources.
type LoadOptions struct {
	// Path is an explicit config file. It must exist when set; otherwise
	// the default location is used if present.
	Path string
	// EnvFile is a dotenv file. Empty means ".env" if it exists.
	EnvFile string
}

// Load builds the configuration from every source and validates it.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path, _ = DefaultPath()
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			if explicit || !stderrors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
		if _, err := os.Stat(envFile); err != nil {
			envFile = ""
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return err
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks backend names and layout parameters.
func (c Config) Validate() error {
	if !slices.Contains([]string{llm.ProviderOpenAI, llm.ProviderAnthropic}, c.LLM.Provider) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown provider %q (want openai or anthropic)", c.LLM.Provider)
	}
	if !slices.Contains([]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if !slices.Contains([]string{StoreSQLite, StoreMongo, StoreMemory}, c.Store.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q (want sqlite, mongo or memory)", c.Store.Backend)
	}
	if c.Layout.MaxDepth < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "layout max_depth must be positive")
	}
	if _, err := layout.ParseDirection(c.Layout.Direction); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Derived Settings
// =============================================================================

// APIKey returns the key of the selected provider.
func (c Config) APIKey() string {
	if c.LLM.Provider == llm.ProviderAnthropic {
		return c.LLM.AnthropicKey
	}
	return c.LLM.OpenAIKey
}

// LLMConfig returns the provider configuration.
func (c Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:  c.LLM.Provider,
		Model:     c.LLM.Model,
		APIKey:    c.APIKey(),
		BaseURL:   c.LLM.BaseURL,
		MaxTokens: c.LLM.MaxTokens,
		Timeout:   c.LLM.Timeout,
		Attempts:  c.LLM.Attempts,
	}
}

// LayoutOptions returns the layout parameters.
func (c Config) LayoutOptions() layout.Options {
	return layout.Options{
		Gap:            c.Layout.Gap,
		SmallIncrement: c.Layout.SmallIncrement,
		LargeIncrement: c.Layout.LargeIncrement,
		MaxDepth:       c.Layout.MaxDepth,
	}
}

// StoreConfig returns the document store configuration. An empty SQLite
// path resolves to scribe.db in [DataDir].
func (c Config) StoreConfig() (store.Config, error) {
	path := c.Store.Path
	if c.Store.Backend == StoreSQLite && path == "" {
		dir, err := DataDir()
		if err != nil {
			return store.Config{}, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return store.Config{}, err
		}
		path = filepath.Join(dir, "scribe.db")
	}
	return store.Config{
		Backend:  c.Store.Backend,
		Path:     path,
		URI:      c.Store.MongoURI,
		Database: c.Store.MongoDatabase,
	}, nil
}

// Keyer returns the cache keyer, scoped by Cache.Prefix when one is set.
func (c Config) Keyer() cache.Keyer {
	if c.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Cache.Prefix)
}

// CacheDir returns the file cache directory.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return cache.DefaultDir()
}
