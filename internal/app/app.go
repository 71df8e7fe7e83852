package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/thinkbank-worker/internal/clients/redis"
	"github.com/yungbote/thinkbank-worker/internal/data/db"
	"github.com/yungbote/thinkbank-worker/internal/data/repos"
	"github.com/yungbote/thinkbank-worker/internal/jobs/worker"
	"github.com/yungbote/thinkbank-worker/internal/observability"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

// Options selects which parts of the process New wires. Postgres is always
// connected.
type Options struct {
	Migrate bool
	Queue   bool
	// Worker implies Queue and adds the object store, model clients and
	// pipeline.
	Worker bool
}

type App struct {
	Log     *logger.Logger
	Cfg     Config
	Metrics *observability.Metrics

	Postgres *db.PostgresService
	Repos    repos.Set
	Queue    redis.TaskQueue

	Worker   *worker.Worker
	Requeuer *worker.Requeuer

	closers []func() error
}

func New(ctx context.Context, cfg Config, log *logger.Logger, opts Options) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	pg, err := db.NewPostgresService(db.Config{
		DSN:          cfg.PostgresDSN,
		Host:         cfg.PostgresHost,
		Port:         cfg.PostgresPort,
		User:         cfg.PostgresUser,
		Password:     cfg.PostgresPassword,
		Name:         cfg.PostgresName,
		SSLMode:      cfg.PostgresSSLMode,
		MaxOpenConns: cfg.PostgresMaxOpenConns,
		MaxIdleConns: cfg.PostgresMaxIdleConns,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.Postgres = pg
	a.closers = append(a.closers, pg.Close)

	if opts.Migrate {
		if err := pg.AutoMigrateAll(); err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	a.Repos = repos.New(pg.DB(), log)

	if opts.Queue || opts.Worker {
		q, err := redis.NewTaskQueue(redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Queue:    cfg.QueueName,
		}, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init task queue: %w", err)
		}
		a.Queue = q
		a.closers = append(a.closers, q.Close)
		a.Requeuer = worker.NewRequeuer(log, a.Repos.Assets, a.Repos.Tasks, q)
	}

	if opts.Worker {
		if err := a.wireWorker(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) wireWorker(ctx context.Context) error {
	a.Metrics = observability.NewMetrics()

	store, err := wireStore(ctx, a.Cfg, a.Log)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	caps, closers, err := wireCapabilities(ctx, a.Cfg, a.Log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closers...)

	pl, err := wirePipeline(a.Cfg, caps, a.Log)
	if err != nil {
		return err
	}

	w, err := worker.New(worker.Config{
		WorkerID:     a.Cfg.WorkerID,
		PopTimeout:   a.Cfg.PopTimeout,
		ErrorBackoff: a.Cfg.ErrorBackoff,
		ClaimLease:   a.Cfg.ClaimLease,
		AssetTimeout: a.Cfg.AssetTimeout,
		TempDir:      a.Cfg.TempDir,

		ReconcileInterval: a.Cfg.ReconcileInterval,
	}, worker.Deps{
		Log:      a.Log,
		Assets:   a.Repos.Assets,
		Tasks:    a.Repos.Tasks,
		Queue:    a.Queue,
		Store:    store,
		Pipeline: pl,
		Metrics:  a.Metrics,
	})
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}
	a.Worker = w
	return nil
}

// Run recovers stranded assets, then consumes the queue, re-enqueues assets
// whose claim lease ran out, and serves the ops listener when configured,
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Worker == nil {
		return errors.New("app not wired for running the worker")
	}
	if _, err := a.Worker.Recover(ctx); err != nil {
		return fmt.Errorf("startup recovery: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Worker.Run(gctx) })
	g.Go(func() error { return a.Worker.RunReconciler(gctx) })
	if a.Cfg.OpsAddr != "" {
		srv := a.opsServer()
		g.Go(func() error { return srv.Run(gctx, a.Cfg.OpsAddr) })
	}
	return g.Wait()
}

// Close releases every connection concurrently.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var g errgroup.Group
	for _, c := range a.closers {
		c := c
		g.Go(func() error {
			if err := c(); err != nil {
				a.Log.Warn("Close failed", "error", err)
				return err
			}
			return nil
		})
	}
	a.closers = nil
	return g.Wait()
}
