package main

import (
	"context"
	"errors"

	"autored/pkg/config"
	"autored/pkg/content"
	"autored/pkg/logger"
	"autored/pkg/pipeline"
	"autored/pkg/storage"
	"autored/pkg/ui"
	"autored/pkg/xhs"

	"github.com/spf13/cobra"
)

var (
	runMode      string
	runImages    int
	scheduleTime string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a post and publish it",
	Long: `Generate post text and images and publish them to the creator studio.

Modes:
  test   one cycle with a headless browser
  dev    one cycle with a visible browser
  daily  one cycle every day at schedule.time until interrupted

The mode defaults to the MODE environment variable.`,
	Example: `  # One post, browser visible
  autored run --mode dev

  # Publish three images every day at 18:30
  autored run --mode daily --schedule-time 18:30 --images 3`,
	Args: cobra.NoArgs,
	Run:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "run mode (test, dev, daily)")
	runCmd.Flags().IntVar(&runImages, "images", 0, "images per post (1-6)")
	runCmd.Flags().StringVar(&scheduleTime, "schedule-time", "", "daily run time, HH:MM")
}

func runPipeline(cmd *cobra.Command, args []string) {
	cfg, log := loadConfig(cmd, map[string]interface{}{
		"mode":          runMode,
		"images":        runImages,
		"schedule-time": scheduleTime,
	})

	ui.PrintBanner()
	ui.PrintInfo("Mode", cfg.Schedule.Mode)
	ui.PrintInfo("Images", itoa(cfg.Schedule.ImageCount))

	text, backend, err := content.New(cfg.Generation, log)
	if err != nil {
		fail("Failed to set up content generation", err)
	}
	store, err := storage.NewManager(cfg.Generation.OutputDir)
	if err != nil {
		fail("Failed to prepare image directory", err)
	}
	images := content.NewImageGenerator(backend, store, cfg.Generation.Concurrency, log)
	notifier := newNotifier(cfg)

	factory := func(c *config.Config) (pipeline.PostClient, error) {
		client := xhs.NewClient(c, openStore(c), log)
		client.SetNotifier(notifier)
		return client, nil
	}

	runner := pipeline.NewRunner(cfg, text, images, factory, openJournal(cfg, log), notifier, log)

	ctx, cancel := signalContext()
	defer cancel()

	err = runner.Run(ctx, cfg.Schedule.Mode)
	switch {
	case err == nil:
		ui.PrintSuccess("Post published")
	case errors.Is(err, context.Canceled):
		logger.LogComponentStop("autored", "interrupted")
		ui.PrintWarning("Stopped")
	default:
		fail("Run failed", err)
	}
}
