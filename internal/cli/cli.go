// Package cli implements the scribe command-line interface.
//
// Commands turn lecture transcripts into hierarchical notes, lay the notes
// out as node graphs, browse and export them, and serve the same pipeline
// over HTTP and MCP. Settings come from internal/config; flags given on the
// command line win over every other source.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/internal/config"
	"github.com/matzehuels/scribetree/pkg/buildinfo"
	"github.com/matzehuels/scribetree/pkg/cache"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/llm"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// =============================================================================
// Constants
// =============================================================================

// appName is the binary name used in help text and hints.
const appName = "scribe"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	envFile    string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Scribe turns lecture transcripts into explorable note trees",
		Long:         `Scribe streams a lecture transcript through a language model and grows a tree of key points while the model is still writing. Notes can be laid out as node graphs, browsed in the terminal, exported and served over HTTP or MCP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.config/scribe/config.toml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file (default: ./.env if present)")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.expandCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.arrangeCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.docsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// config loads the layered configuration once per process.
func (c *CLI) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(config.LoadOptions{Path: c.configPath, EnvFile: c.envFile})
	if err != nil {
		return config.Config{}, err
	}
	// --verbose has already lowered the level; only the default defers to the file.
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil && c.Logger.GetLevel() == log.InfoLevel {
		c.Logger.SetLevel(lvl)
	}
	c.cfg = &cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerFlags are the model and cache overrides shared by generating commands.
type runnerFlags struct {
	provider string
	model    string
	noCache  bool
}

func (f *runnerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "model provider: openai, anthropic")
	cmd.Flags().StringVar(&f.model, "model", "", "model name (default: provider default)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, f runnerFlags) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if f.provider != "" {
		cfg.LLM.Provider = strings.ToLower(f.provider)
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	provider, err := llm.New(cfg.LLMConfig())
	if err != nil {
		return nil, err
	}
	if f.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	ch, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(provider, ch, cfg.Keyer(), c.Logger)
	runner.MaxTokens = cfg.LLM.MaxTokens
	return runner, nil
}

// newCache opens the configured cache backend. A file cache that cannot be
// created degrades to no caching.
func newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	default:
		dir, err := cfg.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// openStore opens the configured document store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	sc, err := cfg.StoreConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, sc)
}

// =============================================================================
// Inputs
// =============================================================================

// loadNote reads a note from a JSON file ("-" for stdin) or, when ref is not
// a file, from the document store. Files may hold a bare note or a stored
// document.
func (c *CLI) loadNote(ctx context.Context, ref string) (notes.LectureNote, *store.Document, error) {
	if data, err := readRef(ref); err == nil {
		n, err := decodeNote(data)
		return n, nil, err
	} else if !os.IsNotExist(err) {
		return notes.LectureNote{}, nil, err
	}

	st, err := c.openStore(ctx)
	if err != nil {
		return notes.LectureNote{}, nil, err
	}
	defer st.Close()
	doc, err := st.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, errors.ErrCodeDocumentNotFound) {
			return notes.LectureNote{}, nil, fmt.Errorf("%s is neither a file nor a stored document", ref)
		}
		return notes.LectureNote{}, nil, err
	}
	return doc.Note, doc, nil
}

func readRef(ref string) ([]byte, error) {
	if ref == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(ref)
}

// decodeNote accepts a note, a stored document or a streamed fragment.
func decodeNote(data []byte) (notes.LectureNote, error) {
	var doc struct {
		Note *notes.LectureNote `json:"note"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Note != nil {
		return *doc.Note, nil
	}
	n, ok := notes.DecodePartial(string(data))
	if !ok {
		return notes.LectureNote{}, errors.New(errors.ErrCodeInvalidNote, "input is not a notes JSON object")
	}
	return n, nil
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
