package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/httpapi"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/mcp"
	"github.com/Aman-CERP/choralmind/internal/watcher"
)

type serveOptions struct {
	noWatch bool
	addr    string
}

func newServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve hymn search over HTTP or MCP",
		Long: `Serve the published indexes of every language.

While serving, each language's index pointer is watched and a newly
published generation is loaded without a restart. Use --no-watch to
keep the generations loaded at startup.`,
	}
	cmd.PersistentFlags().BoolVar(&opts.noWatch, "no-watch", false, "Do not reload indexes when a new generation is published")

	cmd.AddCommand(newServeHTTPCmd(g, opts))
	cmd.AddCommand(newServeMCPCmd(g, opts))

	return cmd
}

func newServeHTTPCmd(g *globalOptions, opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the JSON HTTP API",
		Example: `  choralmind serve http
  choralmind serve http --addr 0.0.0.0:9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			addr := cfg.Server.HTTPAddr
			if opts.addr != "" {
				addr = opts.addr
			}
			return runServer(cmd.Context(), cfg, opts, func(ctx context.Context, rt *runtime) error {
				return httpapi.NewServer(addr, rt.hymnal).Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func newServeMCPCmd(g *globalOptions, opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve hymn tools to an MCP client over stdio",
		Long: `Serve search_hymns, find_hymn, get_hymn and index_status as MCP tools.

Stdout carries the protocol, so logs go to the log file only.`,
		Example: `  # Claude Desktop / any MCP client configuration
  {"command": "choralmind", "args": ["serve", "mcp", "--dir", "/path/to/hymnal"]}`,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			g.quiet = true
			return g.startLogging()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, opts, func(ctx context.Context, rt *runtime) error {
				srv, err := mcp.NewServer(rt.hymnal, mcp.WithManifests(rt.engine))
				if err != nil {
					return err
				}
				return srv.Serve(ctx, cfg.Server.Transport)
			})
		},
	}
	return cmd
}

// runServer opens the runtime, runs serve and, unless disabled, the index
// watcher alongside it. Whichever stops first stops the other.
func runServer(ctx context.Context, cfg *config.Config, opts *serveOptions, serve func(context.Context, *runtime) error) error {
	rt, err := openRuntime(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if !opts.noWatch {
		w, err := watcher.New(cfg.DataDir, hymn.Languages(), watcher.DefaultOptions())
		if err != nil {
			return err
		}
		slog.Info("index_watch_started", slog.String("type", w.WatcherType()))
		g.Go(func() error {
			return watcher.ReloadOnPublish(gctx, w, rt.engine)
		})
	}

	g.Go(func() error {
		defer cancel()
		return serve(gctx, rt)
	})

	return g.Wait()
}
