package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 2 * time.Minute

// Jobs runs the background work: draining the offline queue, keeping
// watched challenges cached and pruning rate limiter state.
type Jobs struct {
	engine *cron.Cron
	app    *App
}

func NewJobs(app *App) *Jobs {
	return &Jobs{
		engine: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		app:    app,
	}
}

func (j *Jobs) Register() error {
	cfg := j.app.Cfg

	if cfg.OfflineQueue {
		if _, err := j.engine.AddFunc(cfg.SyncSchedule, j.sync); err != nil {
			return err
		}
	}
	if len(cfg.WatchChallenges) > 0 {
		if _, err := j.engine.AddFunc(cfg.RefreshSchedule, j.refresh); err != nil {
			return err
		}
	}
	if _, err := j.engine.AddFunc("@every 5m", j.cleanup); err != nil {
		return err
	}
	return nil
}

func (j *Jobs) Start() {
	slog.Info("background jobs starting", "jobs", len(j.engine.Entries()))
	j.engine.Start()
}

// Stop waits for running jobs to finish.
func (j *Jobs) Stop() {
	<-j.engine.Stop().Done()
}

func (j *Jobs) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := j.app.EventService.Sync(ctx)
	if err != nil {
		slog.Error("offline sync failed", "error", err)
		return
	}
	if res.Sent > 0 || res.Dropped > 0 {
		slog.Info("offline sync finished", "sent", res.Sent, "dropped", res.Dropped, "remaining", res.Remaining)
	}
}

func (j *Jobs) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	j.app.EventService.Refresh(ctx, j.app.Cfg.WatchChallenges)
}

func (j *Jobs) cleanup() {
	if n := j.app.Limiter.Cleanup(); n > 0 {
		slog.Debug("rate limiter pruned", "entries", n)
	}
}
