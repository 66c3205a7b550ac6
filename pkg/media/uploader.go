package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/history"
	"autored/pkg/logger"
	"autored/pkg/retry"
	"autored/pkg/ui"
	"autored/pkg/xhs"
)

// ChannelDownloader fetches the newest videos of a channel
type ChannelDownloader interface {
	DownloadChannel(ctx context.Context, channelURL string, limit int) error
}

// Publisher posts one request to the creator studio
type Publisher interface {
	Publish(ctx context.Context, req xhs.Request) error
}

// Asker is the console interaction the assisted mode needs
type Asker interface {
	Choose(question string, choices []string, def string) (string, error)
	WaitEnter(message string) error
}

// Summary counts what one pass did
type Summary struct {
	Channels        int
	ChannelFailures int
	Found           int
	Uploaded        int
	Failed          int
	HandedOff       int
	Skipped         int
}

// Uploader moves downloaded videos onto the platform, either through the
// browser publisher or by handing them to a person.
type Uploader struct {
	cfg        config.DownloadConfig
	uploadURL  string
	downloader ChannelDownloader
	library    *Library
	publisher  Publisher
	journal    *history.Journal
	log        logger.Logger
	out        io.Writer

	sleep func(ctx context.Context, d time.Duration) error
}

// NewUploader creates an uploader. A nil publisher means every video is
// handed off for a manual upload.
func NewUploader(cfg *config.Config, downloader ChannelDownloader, publisher Publisher, journal *history.Journal, log logger.Logger) *Uploader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Uploader{
		cfg:        cfg.Download,
		uploadURL:  cfg.Platform.UploadURL,
		downloader: downloader,
		library:    NewLibrary(cfg.Download.Directory),
		publisher:  publisher,
		journal:    journal,
		log:        log.WithField("component", "uploader"),
		out:        os.Stdout,
		sleep:      retry.Wait,
	}
}

// SetOutput redirects the hand-off text
func (u *Uploader) SetOutput(w io.Writer) {
	u.out = w
}

// Download fetches every configured channel. A failing channel is logged
// and skipped.
func (u *Uploader) Download(ctx context.Context) (Summary, error) {
	var s Summary
	for _, channel := range u.cfg.Channels {
		s.Channels++
		if err := u.downloader.DownloadChannel(ctx, channel, u.cfg.Limit); err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			s.ChannelFailures++
			u.log.WithError(err).WarnWithFields("skipping channel", map[string]interface{}{
				"channel": channel,
			})
		}
	}
	return s, nil
}

// Run downloads every channel and then processes what arrived
func (u *Uploader) Run(ctx context.Context) (Summary, error) {
	s, err := u.Download(ctx)
	if err != nil {
		return s, err
	}
	p, err := u.Process(ctx)
	p.Channels = s.Channels
	p.ChannelFailures = s.ChannelFailures
	return p, err
}

// Process handles every new video. Published or handed-off videos are
// archived; a failed upload stays in place for the next pass.
func (u *Uploader) Process(ctx context.Context) (Summary, error) {
	var s Summary
	videos, err := u.library.New()
	if err != nil {
		return s, err
	}
	s.Found = len(videos)
	if len(videos) == 0 {
		u.log.Info("no new videos")
		return s, nil
	}

	for i, v := range videos {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		if u.publisher == nil {
			u.handOff(v)
			if err := u.archive(v); err != nil {
				return s, err
			}
			s.HandedOff++
			continue
		}

		if err := u.publish(ctx, v); err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			s.Failed++
			if sessionFailure(err) {
				return s, err
			}
			u.log.WithError(err).ErrorWithFields("video upload failed", map[string]interface{}{
				"file": v.Filename,
			})
			continue
		}
		if err := u.archive(v); err != nil {
			return s, err
		}
		s.Uploaded++

		if i < len(videos)-1 && u.cfg.UploadDelay > 0 {
			u.log.InfoWithFields("waiting before next upload", map[string]interface{}{
				"delay": u.cfg.UploadDelay.String(),
			})
			if err := u.sleep(ctx, u.cfg.UploadDelay); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}

// Assist walks through the new videos asking y (uploaded by hand), n (skip)
// or s (stop) for each.
func (u *Uploader) Assist(ctx context.Context, asker Asker) (Summary, error) {
	var s Summary
	videos, err := u.library.New()
	if err != nil {
		return s, err
	}
	s.Found = len(videos)

	for i, v := range videos {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		fmt.Fprintf(u.out, "\n%s %d/%d\n", ui.Cyan("Video"), i+1, len(videos))
		u.handOff(v)

		answer, err := asker.Choose("Upload this video now?", []string{"y", "n", "s"}, "")
		if err != nil {
			return s, err
		}
		switch answer {
		case "s":
			return s, nil
		case "n":
			s.Skipped++
			continue
		}

		fmt.Fprintf(u.out, "Open %s and upload the file above.\n", ui.Magenta(u.uploadURL))
		if err := asker.WaitEnter("Press Enter once the post is published... "); err != nil {
			return s, err
		}
		rec := u.begin(v)
		if err := u.archive(v); err != nil {
			u.finish(rec, err)
			return s, err
		}
		u.finish(rec, nil)
		s.HandedOff++
	}
	return s, nil
}

func (u *Uploader) publish(ctx context.Context, v Video) error {
	title := v.Title()
	req := xhs.Request{
		Media: []string{v.Path},
		Title: title,
		Body:  Caption(title, u.cfg.Hashtags),
	}
	rec := u.begin(v)
	err := u.publisher.Publish(ctx, req)
	u.finish(rec, err)
	return err
}

// sessionFailure reports errors that will repeat for every remaining video
func sessionFailure(err error) bool {
	switch errs.TypeOf(err) {
	case errs.ErrorTypeLoginTimeout, errs.ErrorTypeLoginRequired, errs.ErrorTypeCredentialIO:
		return true
	default:
		return false
	}
}

// handOff prints what a person needs to post the video by hand
func (u *Uploader) handOff(v Video) {
	title := v.Title()
	fmt.Fprintf(u.out, "%s %s\n", ui.Dim("file:     "), v.Path)
	if v.Thumbnail != "" {
		fmt.Fprintf(u.out, "%s %s\n", ui.Dim("thumbnail:"), v.Thumbnail)
	}
	fmt.Fprintf(u.out, "%s %s\n", ui.Dim("title:    "), ui.Yellow(title))
	fmt.Fprintln(u.out, ui.Box(Caption(title, u.cfg.Hashtags)))
}

func (u *Uploader) archive(v Video) error {
	if err := u.library.MarkUploaded(v); err != nil {
		return err
	}
	u.log.InfoWithFields("video archived", map[string]interface{}{
		"file":    v.Filename,
		"archive": filepath.Join(u.library.Dir(), UploadedDir),
	})
	return nil
}

func (u *Uploader) begin(v Video) *history.Record {
	if u.journal == nil {
		return nil
	}
	rec, err := u.journal.Begin(history.SourceVideo, v.Title(), []string{v.Path})
	if err != nil {
		u.log.WithError(err).Warn("could not record publish attempt")
		return nil
	}
	return rec
}

func (u *Uploader) finish(rec *history.Record, result error) {
	if rec == nil {
		return
	}
	if err := u.journal.Finish(rec, result); err != nil {
		u.log.WithError(err).Warn("could not record publish outcome")
	}
}

// VideoConfig adapts cfg for video posts: the studio is opened on the video
// upload page, which has no separate upload entry to click.
func VideoConfig(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Platform.UploadURL != "" {
		c.Platform.PublishURL = c.Platform.UploadURL
	}
	c.Platform.Selectors.UploadEntry = ""
	return &c
}
