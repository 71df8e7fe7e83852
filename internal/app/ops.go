package app

import (
	"context"

	apphttp "github.com/yungbote/thinkbank-worker/internal/http"
	"github.com/yungbote/thinkbank-worker/internal/http/handlers"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
)

func (a *App) opsServer() *apphttp.Server {
	checks := map[string]handlers.Check{
		"postgres": a.Postgres.Ping,
	}
	if a.Queue != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Queue.Ping(ctx) }
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:           a.Log.With("component", "OpsServer"),
		HealthHandler: handlers.NewHealthHandler(checks),
		Metrics:       a.Metrics.Handler(),
	})
}

// Status is a point-in-time view of the backlog.
type Status struct {
	ByStatus    map[string]int64
	QueueName   string
	QueueLength int64
}

func (a *App) Status(ctx context.Context) (Status, error) {
	counts, err := a.Repos.Assets.CountByStatus(dbctx.Of(ctx))
	if err != nil {
		return Status{}, err
	}
	st := Status{ByStatus: counts}
	if a.Queue != nil {
		n, err := a.Queue.Len(ctx)
		if err != nil {
			return Status{}, err
		}
		st.QueueName = a.Queue.Name()
		st.QueueLength = n
	}
	return st, nil
}
