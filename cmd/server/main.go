package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/fearless-draft/internal/catalog"
	"github.com/DoyleJ11/fearless-draft/internal/config"
	"github.com/DoyleJ11/fearless-draft/internal/events"
	"github.com/DoyleJ11/fearless-draft/internal/httpapi"
	"github.com/DoyleJ11/fearless-draft/internal/hub"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
	"github.com/DoyleJ11/fearless-draft/internal/logging"
	"github.com/DoyleJ11/fearless-draft/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: redis first for restores, postgres as the durable copy.
	var (
		stores  store.Multi
		loaders store.Chain
		history store.EventLog
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		rs := store.NewRedis(rdb, cfg.RedisTTL)
		stores = append(stores, rs)
		loaders = append(loaders, rs)
		history = rs
		log.Info("redis store enabled", zap.String("addr", opts.Addr))
	}
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		stores = append(stores, pg)
		loaders = append(loaders, pg)
		history = pg
		log.Info("postgres store enabled")
	}

	var publisher lobby.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		ncfg := events.DefaultConfig()
		ncfg.URL = cfg.NATSURL
		np, err := events.NewNATSPublisher(ncfg, log)
		if err != nil {
			return err
		}
		defer np.Close()
		publisher = np
		log.Info("nats publisher enabled", zap.String("url", cfg.NATSURL))
	}

	var provider catalog.Provider
	if len(cfg.Items) > 0 {
		provider = catalog.NewStatic(cfg.Items...)
	} else {
		provider = catalog.NewDDragon(cfg.DDragonBaseURL, log)
	}
	lobbyOpts := lobby.Options{
		Logger:    log,
		Clock:     clockwork.NewRealClock(),
		Publisher: publisher,
	}
	if len(stores) > 0 {
		lobbyOpts.Store = stores
	}
	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	items, err := provider.ListItems(loadCtx)
	cancel()
	if err != nil {
		log.Warn("catalog unavailable, item ids will not be validated", zap.Error(err))
	} else {
		index := catalog.NewIndex(items)
		lobbyOpts.Items = index
		log.Info("catalog loaded", zap.Int("items", index.Len()))
	}

	hubOpts := hub.Options{Logger: log, Lobby: lobbyOpts}
	if len(loaders) > 0 {
		hubOpts.Loader = loaders
	}
	h := hub.NewHub(ctx, hubOpts)

	deps := httpapi.Deps{
		Hub:         h,
		Catalog:     provider,
		Events:      history,
		Defaults:    cfg.Series,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	}
	if len(stores) > 0 {
		deps.Store = stores
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		default:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
