package main

import (
	"context"
	"fmt"
	"os"

	"autored/pkg/media"
	"autored/pkg/ui"
	"autored/pkg/ui/tui"
	"autored/pkg/xhs"

	"github.com/spf13/cobra"
)

var (
	videosManual       bool
	videosInteractive  bool
	videosSkipDownload bool
	videosTUI          bool
)

// videosCmd represents the videos command
var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Download channel videos and post them",
	Long: `Download the newest videos of every configured channel with yt-dlp and
post them to the creator studio.

By default each video is uploaded through the browser, with
download.upload_delay between uploads. With --manual the caption and file
are printed for a manual upload instead. --interactive walks through the
downloaded videos one by one and asks whether each was posted.

Handled videos are moved to <download dir>/uploaded.`,
	Example: `  # Download and upload automatically
  autored videos

  # Only walk through what is already downloaded
  autored videos --interactive`,
	Args: cobra.NoArgs,
	Run:  runVideos,
}

func init() {
	rootCmd.AddCommand(videosCmd)

	videosCmd.Flags().BoolVar(&videosManual, "manual", false, "print the captions instead of uploading")
	videosCmd.Flags().BoolVar(&videosInteractive, "interactive", false, "confirm every video by hand, no download")
	videosCmd.Flags().BoolVar(&videosSkipDownload, "skip-download", false, "only process videos already downloaded")
	videosCmd.Flags().BoolVar(&videosTUI, "tui", false, "show a live dashboard while channels download")
	videosCmd.MarkFlagsMutuallyExclusive("manual", "interactive")
}

func runVideos(cmd *cobra.Command, args []string) {
	cfg, log := loadConfig(cmd, nil)
	downloader := media.NewDownloader(cfg.Download, log)
	journal := openJournal(cfg, log)

	ctx, cancel := signalContext()
	defer cancel()

	if videosInteractive {
		if !ui.IsInteractive() {
			ui.PrintError("--interactive needs a terminal")
			os.Exit(1)
		}
		u := media.NewUploader(cfg, downloader, nil, journal, log)
		summary, err := u.Assist(ctx, ui.NewPrompter(os.Stdin, os.Stdout))
		if err != nil {
			fail("Assistant stopped", err)
		}
		printVideoSummary(summary)
		return
	}

	var (
		publisher media.Publisher
		client    *xhs.Client
	)
	if !videosManual {
		videoCfg := media.VideoConfig(cfg)
		client = xhs.NewClient(videoCfg, openStore(videoCfg), log)
		client.SetNotifier(newNotifier(cfg))
		publisher = client
	}

	u := media.NewUploader(cfg, downloader, publisher, journal, log)
	var (
		summary media.Summary
		err     error
	)
	switch {
	case videosSkipDownload:
		summary, err = u.Process(ctx)
	case videosTUI && ui.IsInteractive():
		summary, err = downloadWithDashboard(ctx, cancel, downloader, u)
		if err == nil {
			var processed media.Summary
			processed, err = u.Process(ctx)
			processed.Channels, processed.ChannelFailures = summary.Channels, summary.ChannelFailures
			summary = processed
		}
	default:
		summary, err = u.Run(ctx)
	}
	if client != nil {
		closeBrowser(client, log)
	}
	if err != nil {
		fail("Video run failed", err)
	}
	printVideoSummary(summary)
}

// downloadWithDashboard runs the channel downloads behind the live dashboard.
// Quitting the dashboard cancels ctx.
func downloadWithDashboard(ctx context.Context, cancel context.CancelFunc, downloader *media.Downloader, u *media.Uploader) (media.Summary, error) {
	dash := tui.NewTUI(os.Stdout, cancel)
	downloader.SetObserver(dash)
	defer downloader.SetObserver(nil)

	var (
		summary media.Summary
		err     error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		summary, err = u.Download(ctx)
		dash.Finish()
	}()

	if runErr := dash.Start(); runErr != nil {
		cancel()
		<-done
		return summary, runErr
	}
	<-done
	return summary, err
}

func printVideoSummary(s media.Summary) {
	if s.Channels > 0 {
		ui.PrintInfo("Channels", fmt.Sprintf("%d (%d failed)", s.Channels, s.ChannelFailures))
	}
	ui.PrintInfo("New videos", itoa(s.Found))
	ui.PrintInfo("Uploaded", itoa(s.Uploaded))
	ui.PrintInfo("Handed off", itoa(s.HandedOff))
	if s.Skipped > 0 {
		ui.PrintInfo("Skipped", itoa(s.Skipped))
	}
	if s.Failed > 0 {
		ui.PrintWarning(fmt.Sprintf("%d upload(s) failed, the files stay in place for the next run", s.Failed))
	}
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
