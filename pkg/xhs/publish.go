package xhs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"autored/pkg/browser"
	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/logger"
	"autored/pkg/retry"
)

// Publish steps, numbered as reported in PublishStep errors
const (
	StepOpenCreator = iota + 1
	StepCompose
	StepUploadEntry
	StepAttachMedia
	StepTitle
	StepBody
	StepSubmit
)

var stepNames = map[int]string{
	StepOpenCreator: "open creator page",
	StepCompose:     "open composer",
	StepUploadEntry: "open media upload",
	StepAttachMedia: "attach media",
	StepTitle:       "fill title",
	StepBody:        "fill body",
	StepSubmit:      "submit",
}

// maxTitleRunes is the creator studio title limit
const maxTitleRunes = 20

// Request is one post: media files in order, a title and a body
type Request struct {
	Media []string
	Title string
	Body  string
}

// Validate checks the request without touching the browser
func (r Request) Validate() error {
	if len(r.Media) == 0 {
		return errs.InvalidRequest("at least one media file is required")
	}
	for _, path := range r.Media {
		info, err := os.Stat(path)
		if err != nil {
			return errs.InvalidRequest(fmt.Sprintf("media file %s: %v", path, err))
		}
		if !info.Mode().IsRegular() {
			return errs.InvalidRequest(fmt.Sprintf("media file %s is not a regular file", path))
		}
	}
	if strings.TrimSpace(r.Title) == "" {
		return errs.InvalidRequest("title must not be empty")
	}
	return nil
}

// Publisher submits posts through the creator studio UI. Steps run strictly
// in order; the first unmet wait aborts the post and nothing is retried.
type Publisher struct {
	session  browser.Session
	login    *Authenticator
	platform config.PlatformConfig
	waits    config.BrowserConfig
	log      logger.Logger

	// sleep is the fixed settle wait used when no thumbnail selector is set
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPublisher creates a publisher that logs in through login when needed
func NewPublisher(session browser.Session, login *Authenticator, cfg *config.Config, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Publisher{
		session:  session,
		login:    login,
		platform: cfg.Platform,
		waits:    cfg.Browser,
		log:      log.WithField("component", "publisher"),
		sleep:    retry.Wait,
	}
}

// Publish posts req. Failures carry the step they happened at.
func (p *Publisher) Publish(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(req.Title); n > maxTitleRunes {
		p.log.WarnWithFields("title longer than the studio allows, it may be truncated", map[string]interface{}{
			"runes": n,
			"limit": maxTitleRunes,
		})
	}

	if err := p.login.EnsureAuthenticated(ctx); err != nil {
		return err
	}

	sel := p.platform.Selectors

	logger.LogStep(p.log, StepOpenCreator, stepNames[StepOpenCreator])
	if err := p.session.Navigate(ctx, p.platform.PublishURL); err != nil {
		return stepError(StepOpenCreator, err)
	}

	logger.LogStep(p.log, StepCompose, stepNames[StepCompose])
	if err := p.waitAndClick(ctx, StepCompose, sel.Compose); err != nil {
		return err
	}

	if sel.UploadEntry != "" {
		logger.LogStep(p.log, StepUploadEntry, stepNames[StepUploadEntry])
		if err := p.waitAndClick(ctx, StepUploadEntry, sel.UploadEntry); err != nil {
			return err
		}
	}

	logger.LogStep(p.log, StepAttachMedia, stepNames[StepAttachMedia])
	for i, path := range req.Media {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if err := p.session.SetFileInput(ctx, sel.FileInput, path); err != nil {
			return stepError(StepAttachMedia, err)
		}
		if err := p.settle(ctx, i+1); err != nil {
			return stepError(StepAttachMedia, err)
		}
		p.log.InfoWithFields("media attached", map[string]interface{}{
			"index": i,
			"path":  path,
		})
	}

	logger.LogStep(p.log, StepTitle, stepNames[StepTitle])
	if err := p.waitAndFill(ctx, StepTitle, sel.Title, req.Title); err != nil {
		return err
	}

	logger.LogStep(p.log, StepBody, stepNames[StepBody])
	if err := p.waitAndFill(ctx, StepBody, sel.Body, req.Body); err != nil {
		return err
	}

	logger.LogStep(p.log, StepSubmit, stepNames[StepSubmit])
	if err := p.waitAndClick(ctx, StepSubmit, sel.Submit); err != nil {
		return err
	}
	if err := p.session.WaitFor(ctx, sel.Success, p.waits.ConfirmTimeout); err != nil {
		return stepError(StepSubmit, err)
	}

	p.log.InfoWithFields("post published", map[string]interface{}{
		"title": req.Title,
		"media": len(req.Media),
	})
	return nil
}

// settle lets the upload of the n-th file render before the next action
func (p *Publisher) settle(ctx context.Context, n int) error {
	if thumb := p.platform.Selectors.Thumbnail; thumb != "" {
		return p.session.WaitCount(ctx, thumb, n, p.waits.SettleTimeout)
	}
	return p.sleep(ctx, p.waits.SettleWait)
}

func (p *Publisher) waitAndClick(ctx context.Context, step int, selector string) error {
	if err := p.session.WaitFor(ctx, selector, p.waits.StepTimeout); err != nil {
		return stepError(step, err)
	}
	if err := p.session.Click(ctx, selector); err != nil {
		return stepError(step, err)
	}
	return nil
}

func (p *Publisher) waitAndFill(ctx context.Context, step int, selector, value string) error {
	if err := p.session.WaitFor(ctx, selector, p.waits.StepTimeout); err != nil {
		return stepError(step, err)
	}
	if err := p.session.Fill(ctx, selector, value); err != nil {
		return stepError(step, err)
	}
	return nil
}

func stepError(step int, err error) error {
	if browser.IsTimeout(err) {
		return errs.PublishStepTimeout(step, stepNames[step], err)
	}
	return errs.PublishStep(step, stepNames[step], err)
}
