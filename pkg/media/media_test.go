package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/history"
	"autored/pkg/logger"
	"autored/pkg/ui"
	"autored/pkg/xhs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My_Video_Title.mp4", "My Video Title"},
		{"Song_Name_[Official_Video].mkv", "Song Name"},
		{"Artist_-_Song_(Live_Performance).webm", "Artist - Song"},
		{"video.with.dots.and_underscores.mp4", "video with dots and underscores"},
		{"[MV] Title [4K].mp4", "Title"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.in))
		})
	}
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "Song\n\n#live #jpop", Caption("Song", "#live #jpop"))
	assert.Equal(t, "Song", Caption("Song", "  "))
}

func TestFindNewVideos(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"b.mp4", "b.webp", "b.png",
		"a.MKV",
		"c.mov", "c.jpg",
		"notes.txt", "downloaded.txt", "d.m4a",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "uploaded"), 0755))
	touch(t, filepath.Join(dir, "uploaded"), "old.mp4")

	videos, err := FindNewVideos(dir)
	require.NoError(t, err)
	require.Len(t, videos, 3)

	assert.Equal(t, "a.MKV", videos[0].Filename)
	assert.Empty(t, videos[0].Thumbnail)
	assert.Equal(t, "b.mp4", videos[1].Filename)
	assert.Equal(t, filepath.Join(dir, "b.png"), videos[1].Thumbnail, ".png is tried before .webp")
	assert.Equal(t, filepath.Join(dir, "c.jpg"), videos[2].Thumbnail)
	assert.Equal(t, filepath.Join(dir, "c.mov"), videos[2].Path)
}

func TestFindNewVideosMissingDir(t *testing.T) {
	videos, err := FindNewVideos(filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, err)
	assert.Empty(t, videos)
}

func TestMarkUploaded(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.mp4", "a.jpg", "b.mp4")
	lib := NewLibrary(dir)

	videos, err := lib.New()
	require.NoError(t, err)
	require.NoError(t, lib.MarkUploaded(videos[0]))

	for _, name := range []string{"a.mp4", "a.jpg"} {
		_, err := os.Stat(filepath.Join(dir, UploadedDir, name))
		assert.NoError(t, err, name)
		_, err = os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), name)
	}

	left, err := lib.New()
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b.mp4", left[0].Filename)
}

func TestDownloaderCommand(t *testing.T) {
	cfg := config.DefaultConfig().Download
	cfg.Directory = "dl"
	d := NewDownloader(cfg, logger.NewNopLogger())

	name, args := d.Command("https://example.com/@chan", 2)
	assert.Equal(t, "yt-dlp", name)
	assert.Equal(t, []string{
		"-f", cfg.Format,
		"-o", filepath.Join("dl", "%(title)s.%(ext)s"),
		"--download-archive", filepath.Join("dl", "downloaded.txt"),
		"--write-thumbnail",
		"--limit-rate", "10M",
		"--retries", "3",
		"--fragment-retries", "3",
		"--playlist-items", "1-2",
		"--newline",
		"https://example.com/@chan",
	}, args)

	cfg.CondaEnv = "media"
	name, wrapped := NewDownloader(cfg, logger.NewNopLogger()).Command("https://example.com/@chan", 2)
	assert.Equal(t, "conda", name)
	assert.Equal(t, []string{"run", "--no-capture-output", "-n", "media", "yt-dlp"}, wrapped[:5])
	assert.Equal(t, args, wrapped[5:])
}

func TestDownloadChannelStreamsOutput(t *testing.T) {
	cfg := config.DefaultConfig().Download
	cfg.Directory = filepath.Join(t.TempDir(), "downloads")
	tl := logger.NewTestLogger()
	d := NewDownloader(cfg, tl)

	var gotArgs []string
	d.run = func(ctx context.Context, name string, args []string, out io.Writer) error {
		gotArgs = args
		fmt.Fprint(out, "[youtube] fetching\n\n[download] 100%\n")
		return nil
	}

	require.NoError(t, d.DownloadChannel(context.Background(), "https://example.com/@chan", 0))
	assert.Contains(t, gotArgs, "1-3", "zero limit falls back to the configured one")
	assert.True(t, tl.HasMessage("[youtube] fetching"))
	assert.True(t, tl.HasMessage("[download] 100%"))
	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 2)

	_, err := os.Stat(cfg.Directory)
	assert.NoError(t, err)
}

func TestDownloadChannelFailure(t *testing.T) {
	cfg := config.DefaultConfig().Download
	cfg.Directory = t.TempDir()
	d := NewDownloader(cfg, logger.NewNopLogger())
	d.run = func(ctx context.Context, name string, args []string, out io.Writer) error {
		return errors.New("exit status 1")
	}

	err := d.DownloadChannel(context.Background(), "https://example.com/@chan", 1)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeDownload))
}

type fakeDownloader struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeDownloader) DownloadChannel(ctx context.Context, channelURL string, limit int) error {
	f.calls = append(f.calls, channelURL)
	if f.fail[channelURL] {
		return errs.New(errs.ErrorTypeDownload, "boom")
	}
	return nil
}

type fakePublisher struct {
	fail     map[string]error
	requests []xhs.Request
}

func (f *fakePublisher) Publish(ctx context.Context, req xhs.Request) error {
	f.requests = append(f.requests, req)
	return f.fail[req.Title]
}

type scriptedAsker struct {
	answers []string
	enters  int
}

func (a *scriptedAsker) Choose(question string, choices []string, def string) (string, error) {
	if len(a.answers) == 0 {
		return "", io.EOF
	}
	answer := a.answers[0]
	a.answers = a.answers[1:]
	return answer, nil
}

func (a *scriptedAsker) WaitEnter(message string) error {
	a.enters++
	return nil
}

func newTestUploader(t *testing.T, publisher Publisher) (*Uploader, string, *[]time.Duration) {
	t.Helper()
	ui.SetColor(false)
	cfg := config.DefaultConfig()
	cfg.Download.Directory = t.TempDir()
	cfg.Download.Hashtags = "#live"
	cfg.Download.UploadDelay = time.Minute

	journal := history.NewJournal(filepath.Join(t.TempDir(), "history.json"), logger.NewNopLogger())
	u := NewUploader(cfg, &fakeDownloader{}, publisher, journal, logger.NewNopLogger())
	u.SetOutput(io.Discard)

	sleeps := &[]time.Duration{}
	u.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return u, cfg.Download.Directory, sleeps
}

func TestDownloadSkipsFailingChannel(t *testing.T) {
	u, _, _ := newTestUploader(t, nil)
	dl := &fakeDownloader{fail: map[string]bool{"bad": true}}
	u.downloader = dl
	u.cfg.Channels = []string{"bad", "good"}

	s, err := u.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bad", "good"}, dl.calls)
	assert.Equal(t, 2, s.Channels)
	assert.Equal(t, 1, s.ChannelFailures)
}

func TestProcessPublishesAndArchives(t *testing.T) {
	pub := &fakePublisher{fail: map[string]error{"Second": errors.New("studio down")}}
	u, dir, sleeps := newTestUploader(t, pub)
	touch(t, dir, "First_[MV].mp4", "First_[MV].jpg", "Second.mp4", "Third.webm")

	s, err := u.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Found: 3, Uploaded: 2, Failed: 1}, s)

	require.Len(t, pub.requests, 3)
	assert.Equal(t, xhs.Request{
		Media: []string{filepath.Join(dir, "First_[MV].mp4")},
		Title: "First",
		Body:  "First\n\n#live",
	}, pub.requests[0])

	// the failed one stays for the next pass
	left, err := FindNewVideos(dir)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Second.mp4", left[0].Filename)

	// one wait after the first success; none after the last video
	assert.Equal(t, []time.Duration{time.Minute}, *sleeps)

	records, err := u.journal.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, history.StatusPublished, records[0].Status)
	assert.Equal(t, history.StatusFailed, records[1].Status)
	assert.Equal(t, history.SourceVideo, records[2].Source)
}

func TestProcessStopsOnLoginFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrorType
	}{
		{"login timeout", errs.LoginTimeout("waiting for QR scan", errors.New("deadline")), errs.ErrorTypeLoginTimeout},
		{"login required", errs.LoginRequired("run autored login"), errs.ErrorTypeLoginRequired},
		{"credential write", errs.CredentialIO("save cookies", errors.New("read-only")), errs.ErrorTypeCredentialIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{fail: map[string]error{"a": tt.err, "b": tt.err, "c": tt.err}}
			u, dir, sleeps := newTestUploader(t, pub)
			touch(t, dir, "a.mp4", "b.mp4", "c.mp4")

			s, err := u.Process(context.Background())
			require.Error(t, err)
			assert.True(t, errs.IsType(err, tt.want))
			assert.Len(t, pub.requests, 1, "later videos are not attempted")
			assert.Equal(t, Summary{Found: 3, Failed: 1}, s)
			assert.Empty(t, *sleeps)

			left, err := FindNewVideos(dir)
			require.NoError(t, err)
			assert.Len(t, left, 3)
		})
	}
}

func TestProcessHandsOffWithoutPublisher(t *testing.T) {
	u, dir, sleeps := newTestUploader(t, nil)
	var out bytes.Buffer
	u.SetOutput(&out)
	touch(t, dir, "Song_(Live).mp4")

	s, err := u.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.HandedOff)
	assert.Empty(t, *sleeps)
	assert.Contains(t, out.String(), "Song")
	assert.Contains(t, out.String(), "#live")

	_, err = os.Stat(filepath.Join(dir, UploadedDir, "Song_(Live).mp4"))
	assert.NoError(t, err)
}

func TestProcessNothingNew(t *testing.T) {
	pub := &fakePublisher{}
	u, _, _ := newTestUploader(t, pub)

	s, err := u.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Found)
	assert.Empty(t, pub.requests)
}

func TestAssist(t *testing.T) {
	u, dir, _ := newTestUploader(t, nil)
	var out bytes.Buffer
	u.SetOutput(&out)
	touch(t, dir, "a.mp4", "b.mp4", "c.mp4", "d.mp4")
	asker := &scriptedAsker{answers: []string{"y", "n", "s"}}

	s, err := u.Assist(context.Background(), asker)
	require.NoError(t, err)
	assert.Equal(t, Summary{Found: 4, HandedOff: 1, Skipped: 1}, s)
	assert.Equal(t, 1, asker.enters)
	assert.True(t, strings.Contains(out.String(), u.uploadURL))

	left, err := FindNewVideos(dir)
	require.NoError(t, err)
	assert.Len(t, left, 3, "only the confirmed video is archived")

	records, err := u.journal.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Title)
}

func TestVideoConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	v := VideoConfig(cfg)

	assert.Equal(t, cfg.Platform.UploadURL, v.Platform.PublishURL)
	assert.Empty(t, v.Platform.Selectors.UploadEntry)
	assert.Equal(t, "text=Upload Images", cfg.Platform.Selectors.UploadEntry, "source config untouched")
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line string
		pct  float64
		ok   bool
	}{
		{"[download]  45.3% of ~  12.34MiB at  1.20MiB/s ETA 00:08", 45.3, true},
		{"[download] 100% of   12.34MiB in 00:00:10", 100, true},
		{"[download] Destination: downloads/Song.mp4", 0, false},
		{"[youtube] abc: Downloading webpage", 0, false},
	}

	for _, tt := range tests {
		pct, ok := ParseProgress(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.InDelta(t, tt.pct, pct, 0.001, tt.line)
	}
}

func TestParseDestination(t *testing.T) {
	file, ok := ParseDestination("[download] Destination: downloads/Song [Live].f137.mp4")
	assert.True(t, ok)
	assert.Equal(t, "Song [Live].f137.mp4", file)

	file, ok = ParseDestination(`[Merger] Merging formats into "downloads/Song.mp4"`)
	assert.True(t, ok)
	assert.Equal(t, "Song.mp4", file)

	_, ok = ParseDestination("[download]  10.0% of 1MiB")
	assert.False(t, ok)
}

type progressEvent struct {
	kind    string
	percent float64
	file    string
	err     error
}

type recordingObserver struct {
	events []progressEvent
}

func (o *recordingObserver) ChannelStarted(channel string) {
	o.events = append(o.events, progressEvent{kind: "start"})
}

func (o *recordingObserver) ChannelProgress(channel string, percent float64, file string) {
	o.events = append(o.events, progressEvent{kind: "progress", percent: percent, file: file})
}

func (o *recordingObserver) ChannelFinished(channel string, err error) {
	o.events = append(o.events, progressEvent{kind: "finish", err: err})
}

func TestDownloadChannelReportsProgress(t *testing.T) {
	cfg := config.DefaultConfig().Download
	cfg.Directory = t.TempDir()
	d := NewDownloader(cfg, logger.NewNopLogger())
	obs := &recordingObserver{}
	d.SetObserver(obs)
	d.run = func(ctx context.Context, name string, args []string, out io.Writer) error {
		fmt.Fprintln(out, "[download] Destination: dl/Song.mp4")
		fmt.Fprintln(out, "[download]  50.0% of 2MiB")
		fmt.Fprintln(out, "[download] 100% of 2MiB")
		return nil
	}

	require.NoError(t, d.DownloadChannel(context.Background(), "chan", 1))
	assert.Equal(t, []progressEvent{
		{kind: "start"},
		{kind: "progress", percent: 0, file: "Song.mp4"},
		{kind: "progress", percent: 50, file: "Song.mp4"},
		{kind: "progress", percent: 100, file: "Song.mp4"},
		{kind: "finish"},
	}, obs.events)
}
