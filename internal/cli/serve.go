package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/internal/config"
	"github.com/matzehuels/scribetree/internal/server"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/observability"
	"github.com/matzehuels/scribetree/pkg/pipeline"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		rf      runnerFlags
		addr    string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the scribe HTTP API.

POST /api/notes streams snapshots of the growing note tree as server-sent
events. Documents are kept in the configured store, finished notes in the
configured cache, and Prometheus metrics are exposed at /metrics.

Without an API key the server still answers the layout, arrange and
document endpoints; generation returns 503.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if len(origins) > 0 {
				cfg.Server.AllowOrigins = origins
			}
			return c.runServe(cmd.Context(), cfg, rf)
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: from config, :8080)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS origin to allow (repeatable, * for any)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config, rf runnerFlags) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewPrometheus(reg)
	observability.SetPipelineHooks(metrics)
	observability.SetCacheHooks(metrics)
	observability.SetHTTPHooks(metrics)
	defer observability.Reset()

	runner, err := c.serverRunner(ctx, rf)
	if err != nil {
		return err
	}
	if runner != nil {
		defer runner.Close()
	}

	st, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	srv := server.New(server.Options{
		Runner:       runner,
		Store:        st,
		Logger:       c.Logger,
		Metrics:      metrics,
		Gatherer:     reg,
		Layout:       cfg.LayoutOptions(),
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	printSuccess("Listening on %s", StyleLink.Render(listenURL(cfg.Server.Addr)))
	printDetail("store: %s · cache: %s", cfg.Store.Backend, cfg.Cache.Backend)
	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

// serverRunner builds the runner, or returns nil when no API key is set so
// the server can still serve everything but generation.
func (c *CLI) serverRunner(ctx context.Context, rf runnerFlags) (*pipeline.Runner, error) {
	runner, err := c.newRunner(ctx, rf)
	if errors.Is(err, errors.ErrCodeUnauthorized) {
		printWarning("%s; generation is disabled", errors.UserMessage(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	return runner, nil
}

func listenURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
