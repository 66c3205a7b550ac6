// Package pipeline ties content generation to publishing: one cycle produces
// a post and publishes it, and the run mode decides how often cycles happen.
package pipeline

import (
	"context"
	"fmt"

	"autored/pkg/config"
	"autored/pkg/content"
	errs "autored/pkg/errors"
	"autored/pkg/history"
	"autored/pkg/logger"
	"autored/pkg/schedule"
	"autored/pkg/xhs"
)

// ImageGenerator renders the images of one post
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, count int) ([]string, error)
}

// PostClient publishes posts over a browser session it owns
type PostClient interface {
	Publish(ctx context.Context, req xhs.Request) error
	Close() error
}

// ClientFactory opens a fresh client for one cycle
type ClientFactory func(cfg *config.Config) (PostClient, error)

// Scheduler repeats a job until its context ends
type Scheduler interface {
	Run(ctx context.Context, job schedule.Job) error
}

// Runner executes cycles
type Runner struct {
	cfg       *config.Config
	text      content.TextProducer
	images    ImageGenerator
	newClient ClientFactory
	journal   *history.Journal
	notifier  xhs.Notifier
	log       logger.Logger

	newScheduler func(clock string, log logger.Logger) (Scheduler, error)
}

// NewRunner creates a runner. journal and notifier may be nil.
func NewRunner(cfg *config.Config, text content.TextProducer, images ImageGenerator, newClient ClientFactory, journal *history.Journal, notifier xhs.Notifier, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Runner{
		cfg:       cfg,
		text:      text,
		images:    images,
		newClient: newClient,
		journal:   journal,
		notifier:  notifier,
		log:       log.WithField("component", "pipeline"),
		newScheduler: func(clock string, log logger.Logger) (Scheduler, error) {
			return schedule.NewDaily(clock, log)
		},
	}
}

// Run executes cycles for mode: test and dev run once (dev with a visible
// browser), daily runs at the configured time until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, mode string) error {
	logger.LogComponentStart("pipeline", map[string]interface{}{
		"mode":   mode,
		"images": r.cfg.Schedule.ImageCount,
	})

	switch mode {
	case config.ModeTest:
		return r.RunCycle(ctx)
	case config.ModeDev:
		cfg := *r.cfg
		cfg.Browser.Headless = false
		r.cfg = &cfg
		return r.RunCycle(ctx)
	case config.ModeDaily:
		s, err := r.newScheduler(r.cfg.Schedule.Time, r.log)
		if err != nil {
			return err
		}
		err = s.Run(ctx, r.RunCycle)
		logger.LogComponentStop("pipeline", "schedule ended")
		return err
	default:
		return fmt.Errorf("unknown run mode %q", mode)
	}
}

// RunCycle produces one post and publishes it through a fresh client. The
// attempt is journaled and the outcome sent to the desktop.
func (r *Runner) RunCycle(ctx context.Context) error {
	rec := r.begin()
	err := r.cycle(ctx, rec)
	r.finish(rec, err)

	if err != nil {
		r.log.WithError(err).ErrorWithFields("cycle failed", map[string]interface{}{
			"error_type": string(errs.TypeOf(err)),
		})
		r.notify("autored: publish failed", err.Error())
		return err
	}
	r.notify("autored: post published", rec.Title)
	return nil
}

func (r *Runner) cycle(ctx context.Context, rec *history.Record) error {
	element, err := r.text.Element(ctx)
	if err != nil {
		return err
	}
	rec.Title = element.Title
	r.log.InfoWithFields("post text ready", map[string]interface{}{
		"title": element.Title,
	})

	paths, err := r.images.Generate(ctx, element.ImagePrompt, r.cfg.Schedule.ImageCount)
	if err != nil {
		return err
	}
	rec.Media = paths

	client, err := r.newClient(r.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			r.log.WithError(err).Warn("failed to close browser")
		}
	}()

	return client.Publish(ctx, xhs.Request{
		Media: paths,
		Title: element.Title,
		Body:  element.Copy,
	})
}

func (r *Runner) begin() *history.Record {
	if r.journal == nil {
		return &history.Record{}
	}
	rec, err := r.journal.Begin(history.SourceGenerated, "", nil)
	if err != nil {
		r.log.WithError(err).Warn("could not record publish attempt")
		return &history.Record{}
	}
	return rec
}

func (r *Runner) finish(rec *history.Record, result error) {
	if r.journal == nil || rec.ID == "" {
		return
	}
	if err := r.journal.Finish(rec, result); err != nil {
		r.log.WithError(err).Warn("could not record publish outcome")
	}
}

func (r *Runner) notify(title, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(title, message); err != nil {
		r.log.WithError(err).Debug("desktop notification failed")
	}
}
