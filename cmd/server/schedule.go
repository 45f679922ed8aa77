package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"fuelprice/internal/acquire"
	"fuelprice/internal/store"
)

type runner interface {
	Run(ctx context.Context) (acquire.Report, error)
}

// newScheduler registers the daily sweep. The returned cron is not started.
func newScheduler(ctx context.Context, spec string, loc *time.Location, r runner, timeout time.Duration, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLogger(cronLogger{log: log}),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: log})),
	)
	_, err := c.AddFunc(spec, func() { scheduledSweep(ctx, r, timeout, log) })
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return c, nil
}

func scheduledSweep(ctx context.Context, r runner, timeout time.Duration, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rep, err := r.Run(ctx)
	fields := logrus.Fields{"run_id": rep.RunID, "accepted": rep.Accepted, "total": rep.Total}
	switch {
	case errors.Is(err, store.ErrInsufficientCoverage):
		log.WithFields(fields).WithError(err).Warn("scheduled sweep rejected, previous prices kept")
	case err != nil:
		log.WithFields(fields).WithError(err).Error("scheduled sweep failed")
	case rep.Skipped:
		log.Info("scheduled sweep skipped, prices already fresh")
	default:
		log.WithFields(fields).WithField("coverage", rep.Coverage).Info("scheduled sweep committed")
	}
}

type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) fields(keysAndValues []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(l.fields(keysAndValues)).Debugf("cron: %s", msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithFields(l.fields(keysAndValues)).WithError(err).Errorf("cron: %s", msg)
}
