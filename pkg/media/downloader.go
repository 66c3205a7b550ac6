package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/logger"
)

// ArchiveFile records the ids yt-dlp has already fetched
const ArchiveFile = "downloaded.txt"

var (
	progressLine    = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	destinationLine = regexp.MustCompile(`^\[(?:download|Merger)\] (?:Destination: |Merging formats into ")(.+?)"?$`)
)

// Observer follows channel downloads, e.g. to draw progress
type Observer interface {
	ChannelStarted(channel string)
	ChannelProgress(channel string, percent float64, file string)
	ChannelFinished(channel string, err error)
}

// ParseProgress extracts the percentage from a yt-dlp progress line
func ParseProgress(line string) (float64, bool) {
	m := progressLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// ParseDestination extracts the output file from a yt-dlp destination or
// merge line
func ParseDestination(line string) (string, bool) {
	m := destinationLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return filepath.Base(m[1]), true
}

// Runner executes a command, writing its combined output to out
type Runner func(ctx context.Context, name string, args []string, out io.Writer) error

func execRunner(ctx context.Context, name string, args []string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// Downloader fetches channel videos with yt-dlp
type Downloader struct {
	cfg config.DownloadConfig
	log logger.Logger
	run Runner

	observer Observer
}

// NewDownloader creates a downloader writing into cfg.Directory
func NewDownloader(cfg config.DownloadConfig, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		cfg: cfg,
		log: log.WithField("component", "downloader"),
		run: execRunner,
	}
}

// SetObserver reports progress of later downloads to o
func (d *Downloader) SetObserver(o Observer) {
	d.observer = o
}

// Command returns the program and arguments for one channel download
func (d *Downloader) Command(channelURL string, limit int) (string, []string) {
	args := []string{
		"-f", d.cfg.Format,
		"-o", filepath.Join(d.cfg.Directory, "%(title)s.%(ext)s"),
		"--download-archive", filepath.Join(d.cfg.Directory, ArchiveFile),
		"--write-thumbnail",
		"--limit-rate", d.cfg.RateLimit,
		"--retries", "3",
		"--fragment-retries", "3",
		"--playlist-items", fmt.Sprintf("1-%d", limit),
		"--newline",
		channelURL,
	}

	tool := d.cfg.Tool
	if tool == "" {
		tool = "yt-dlp"
	}
	if d.cfg.CondaEnv == "" {
		return tool, args
	}
	return "conda", append([]string{"run", "--no-capture-output", "-n", d.cfg.CondaEnv, tool}, args...)
}

// DownloadChannel fetches the newest limit videos of channelURL. Output is
// streamed to the debug log line by line.
func (d *Downloader) DownloadChannel(ctx context.Context, channelURL string, limit int) error {
	if limit <= 0 {
		limit = d.cfg.Limit
	}
	if err := os.MkdirAll(d.cfg.Directory, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeDownload, err, "create download directory")
	}

	name, args := d.Command(channelURL, limit)
	d.log.InfoWithFields("downloading channel", map[string]interface{}{
		"channel": channelURL,
		"limit":   limit,
		"command": name + " " + strings.Join(args, " "),
	})

	if d.observer != nil {
		d.observer.ChannelStarted(channelURL)
	}

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.follow(channelURL, pr)
		io.Copy(io.Discard, pr)
	}()

	err := d.run(ctx, name, args, pw)
	pw.Close()
	<-done

	if d.observer != nil {
		d.observer.ChannelFinished(channelURL, err)
	}

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.log.WithError(err).WarnWithFields("channel download failed", map[string]interface{}{
			"channel": channelURL,
		})
		return errs.Wrap(errs.ErrorTypeDownload, err, "yt-dlp "+channelURL)
	}
	d.log.InfoWithFields("channel download finished", map[string]interface{}{"channel": channelURL})
	return nil
}

// follow logs every output line and forwards progress to the observer
func (d *Downloader) follow(channelURL string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var file string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		d.log.Debug(line)
		if d.observer == nil {
			continue
		}
		if f, ok := ParseDestination(line); ok {
			file = f
			d.observer.ChannelProgress(channelURL, 0, file)
		} else if pct, ok := ParseProgress(line); ok {
			d.observer.ChannelProgress(channelURL, pct, file)
		}
	}
}
