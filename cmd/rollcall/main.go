// Command rollcall runs one attendance check-in station.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rollcall/internal/adapters/http/api"
	"github.com/okian/rollcall/internal/adapters/http/swagger"
	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/adapters/source"
	service "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/internal/domain/suppress"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Get().With(logger.String("station", cfg.StationID))
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Init(metrics.WithStation(cfg.StationID))

	if err := run(ctx, cfg, os.Stdin, log); err != nil {
		log.Error(ctx, "station exited", logger.Error(err))
		os.Exit(1)
	}
}

// run serves the station until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, stdin io.Reader, log logger.Logger) error {
	app, err := assemble(ctx, cfg, stdin, log)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.station.Start(ctx); err != nil {
		return fmt.Errorf("start station: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("station", cfg.StationID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down station")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Stop the station first so /outcomes streams end and Shutdown can drain.
		stopErr := app.station.Stop(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		return stopErr
	})

	err = g.Wait()
	log.Info(context.Background(), "station stopped")
	return err
}

// components is a fully wired station ready to start.
type components struct {
	station *service.Station
	handler http.Handler
	closers []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// assemble opens the backends named by cfg and wires the station and its routes.
func assemble(ctx context.Context, cfg *config.Config, stdin io.Reader, log logger.Logger) (*components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := &components{}
	fail := func(err error) (*components, error) {
		c.close()
		return nil, err
	}

	store, err := repository.Open(ctx, repository.Config{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		SeedFile:    cfg.SeedFile,
		Migrate:     cfg.StoreMigrate,
		Location:    loc,
		Logger:      log.Named("store"),
	})
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}
	c.closers = append(c.closers, store.Close)

	opts := []service.Option{
		service.WithStationID(cfg.StationID),
		service.WithLocation(loc),
		service.WithCodePrefix(cfg.CodePrefix),
		service.WithScanWindows(cfg.MinScanInterval(), cfg.DebounceWindow()),
		service.WithQueueSize(cfg.QueueSize),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithRequiredRoles(cfg.RequiredRoles()...),
		service.WithFixedContext(cfg.FixedClassID, cfg.FixedEventID),
		service.WithLogger(log.Named("station")),
	}

	cacheOpts := []suppress.Option{
		suppress.WithTTL(cfg.SuppressionTTL()),
		suppress.WithLogger(log.Named("suppress")),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err))
		}
		if cfg.SuppressionBackend == config.BackendRedis {
			cache, err := suppress.NewRedis(rdb, append(cacheOpts, suppress.WithKeyPrefix("rollcall:suppress:"+cfg.StationID))...)
			if err != nil {
				return fail(err)
			}
			opts = append(opts, service.WithCache(cache))
		}
		opts = append(opts, service.WithNotifier(notify.NewRedisPublisher(rdb, cfg.StationID)))
	}
	if cfg.SuppressionBackend != config.BackendRedis {
		opts = append(opts, service.WithCache(suppress.NewMemory(cacheOpts...)))
	}

	if cfg.AMQPURL != "" {
		pub, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fail(err)
		}
		c.closers = append(c.closers, func() { _ = pub.Close() })
		opts = append(opts, service.WithNotifier(pub))
	}

	if cfg.ScanInput == config.InputStdin {
		opts = append(opts, service.WithSource(source.NewLine(stdin, source.WithLogger(log.Named("source")))))
	}

	c.station = service.New(store, opts...)

	var apiOpts []api.Option
	apiOpts = append(apiOpts, api.WithRateLimit(cfg.RateLimitPerMin), api.WithLogger(log.Named("api")))
	if cfg.AuthSigningKey != "" {
		apiOpts = append(apiOpts, api.WithAuthenticator(api.NewAuthenticator(cfg.AuthSigningKey, cfg.AuthIssuer)))
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(c.station, c.station, apiOpts...).Register(ctx, mux)
	c.handler = mux

	return c, nil
}
