package tasks

import (
	"context"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type controllerPruner interface {
	PruneIdle(cutoff time.Time) int
}

type limiterPruner interface {
	Prune() int
}

// Cleanup drops expired sessions together with the note lists and rate
// limit buckets that outlived them.
type Cleanup struct {
	Sessions    sessionPurger
	Controllers controllerPruner
	Limiter     limiterPruner
	// IdleAfter is how long an unused note list is kept; normally the
	// session lifetime.
	IdleAfter time.Duration
	Logger    *zap.Logger

	now func() time.Time
}

func (c *Cleanup) Run(ctx context.Context) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	start := now()

	purged, err := c.Sessions.PurgeExpired(ctx)
	if err != nil {
		c.Logger.Error("purge expired sessions", zap.Error(err))
	}
	pruned := c.Controllers.PruneIdle(start.Add(-c.IdleAfter))
	var buckets int
	if c.Limiter != nil {
		buckets = c.Limiter.Prune()
	}

	c.Logger.Info("session cleanup",
		zap.Int64("sessions", purged),
		zap.Int("controllers", pruned),
		zap.Int("buckets", buckets),
		zap.Duration(logger.FieldDuration, now().Sub(start)))
}

// Start schedules c on a cron expression and starts the scheduler. The caller stops it.
func Start(schedule string, c *Cleanup) (*cron.Cron, error) {
	sched := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := sched.AddFunc(schedule, func() { c.Run(context.Background()) }); err != nil {
		return nil, errors.Wrapf(err, "schedule session cleanup %q", schedule)
	}
	sched.Start()
	return sched, nil
}
