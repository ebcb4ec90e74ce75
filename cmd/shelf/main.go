package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Shelf/internal/catalog"
	"Shelf/internal/config"
	"Shelf/internal/favorites"
	"Shelf/internal/kvstore"
	"Shelf/internal/remote"
	"Shelf/internal/searches"
	"Shelf/internal/shelf"
	"Shelf/internal/state"
	"Shelf/pkg/kit"
)

const service = "shelf"

func main() {
	if code := start(os.Args[1:], os.LookupEnv); code != 0 {
		os.Exit(code)
	}
}

// start returns the process exit code. All cleanup in run has finished by
// the time it returns.
func start(args []string, lookupEnv func(string) (string, bool)) int {
	cfg, err := config.Load(args, lookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("shelf stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	backend, err := kvstore.Open(ctx, cfg.Storage.Backend())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("close storage", zap.Error(err))
		}
	}()
	log.Info("storage opened", zap.String("driver", cfg.Storage.Driver), zap.String("namespace", cfg.Storage.Namespace))

	kv := kvstore.New(backend,
		kvstore.WithNamespace(cfg.Storage.Namespace),
		kvstore.WithLogger(log.Named("kvstore")),
		kvstore.WithRegistry(reg),
	)

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	recent := searches.Open(ctx, kv)

	c := state.New(ctx, state.Deps{
		Repo:      catalog.NewRepository(kv, catalog.WithLogger(log.Named("catalog"))),
		Favorites: favorites.Open(ctx, kv),
		Searches:  recent,
		Source:    client,
		Log:       log.Named("state"),
	})
	defer c.Close()

	if cfg.FetchOnStart {
		go func() {
			if _, _, err := c.Fetch(ctx); err != nil {
				log.Warn("initial fetch failed, catalog served from storage", zap.Error(err))
			}
		}()
	}

	s := &shelf.Server{
		State:    c,
		Searches: recent,
		Remote:   client,
		Store:    kv,
		Log:      log,
	}

	h := shelf.NewHandler(s, shelf.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	return kit.RunHTTPServer(ctx, cfg.HTTPAddr, h, log)
}
