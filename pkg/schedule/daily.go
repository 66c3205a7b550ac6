// Package schedule runs a job once a day at a fixed local time.
package schedule

import (
	"context"
	"time"

	"autored/pkg/config"
	"autored/pkg/logger"
)

// Job is one scheduled run
type Job func(ctx context.Context) error

// Daily fires at HH:MM every day in the given location
type Daily struct {
	hour   int
	minute int
	loc    *time.Location
	log    logger.Logger

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// ParseClock parses a 24h "HH:MM" time of day
func ParseClock(s string) (hour, minute int, err error) {
	return config.ParseClock(s)
}

// NewDaily creates a schedule for clock ("HH:MM") in local time
func NewDaily(clock string, log logger.Logger) (*Daily, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Daily{
		hour:   hour,
		minute: minute,
		loc:    time.Local,
		log:    log.WithField("component", "schedule"),
		now:    time.Now,
		after:  time.After,
	}, nil
}

// Next returns the first occurrence of the clock time strictly after now
func (d *Daily) Next(now time.Time) time.Time {
	now = now.In(d.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// Run calls job at every occurrence until ctx is cancelled. A failed job is
// logged and the schedule continues.
func (d *Daily) Run(ctx context.Context, job Job) error {
	for {
		next := d.Next(d.now())
		d.log.InfoWithFields("next run scheduled", map[string]interface{}{
			"at": next.Format(time.RFC3339),
			"in": next.Sub(d.now()).Round(time.Second).String(),
		})

		select {
		case <-ctx.Done():
			d.log.Info("scheduler stopped")
			return ctx.Err()
		case <-d.after(next.Sub(d.now())):
		}

		if err := job(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.WithError(err).Error("scheduled run failed")
		}
	}
}
