package cli

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mfeltner/lattice/internal/server"
	"github.com/mfeltner/lattice/pkg/archive"
	"github.com/mfeltner/lattice/pkg/cache"
	"github.com/mfeltner/lattice/pkg/grouping"
	"github.com/mfeltner/lattice/pkg/layout"
	"github.com/mfeltner/lattice/pkg/solver/graphviz"
	"github.com/mfeltner/lattice/pkg/source"
	"github.com/mfeltner/lattice/pkg/view"
)

// newServeCmd creates the serve command running the layout server.
func newServeCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout server",
		Long: `Run the HTTP layout server.

The server accepts snapshots over the API or polls a configured
endpoint, maintains one continuously laid-out view, and streams every
committed layout to connected clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")

	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	logger := loggerFromContext(ctx)

	placements, err := newPlacementCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer placements.Close()

	store, err := newArchiveStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close(context.Background())
	}

	engine := layout.NewEngine(graphviz.New(), placements, logger)
	engine.SetSolveTimeout(cfg.SolveTimeout())

	v := view.New(engine, grouping.Mode(cfg.Grouping), logger)
	if err := v.SetViewMode(ctx, view.Mode(cfg.View)); err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Addr:    cfg.Listen,
		View:    v,
		Archive: store,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Source.URL != "" {
		poller, err := source.NewPoll(ctx, source.PollOptions{
			URL:      cfg.Source.URL,
			Interval: cfg.PollInterval(),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		defer poller.Close()

		g.Go(func() error {
			return feedView(ctx, v, store, poller, logger)
		})
	}

	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	return g.Wait()
}

// feedView applies every polled snapshot to the view and archives it.
func feedView(ctx context.Context, v *view.View, store archive.Store, src source.Source, logger *log.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-src.Snapshots():
			if !ok {
				return nil
			}
			if store != nil {
				if _, err := store.Put(ctx, snap); err != nil {
					logger.Warn("archiving snapshot failed", "error", err)
				}
			}
			if err := v.ApplySnapshot(ctx, snap); err != nil {
				logger.Warn("applying snapshot failed", "error", err)
			}
		}
	}
}

func newPlacementCache(ctx context.Context, cfg Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Cache.Redis)
	case "none":
		return cache.NewNullCache(), nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

func newArchiveStore(ctx context.Context, cfg Config) (archive.Store, error) {
	switch cfg.Archive.Backend {
	case "mongo":
		return archive.NewMongoStore(ctx, cfg.Archive.Mongo)
	case "memory":
		return archive.NewMemoryStore(), nil
	default:
		return nil, nil
	}
}
