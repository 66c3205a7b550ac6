package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"autored/pkg/auth"
	"autored/pkg/config"
	"autored/pkg/history"
	"autored/pkg/logger"
	"autored/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Build information, set with -ldflags
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	cookiesPath   string
	headless      bool
	noColor       bool
	notifications bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autored",
	Short: "Generate and publish Xiaohongshu posts on autopilot",
	Long: `autored produces posts (AI-written text and AI-rendered images, or videos
pulled from YouTube channels) and publishes them through the Xiaohongshu
creator studio in a real browser.

The creator studio session is kept in a cookie store, so the QR code only
has to be scanned when the saved session has expired.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", logger.Version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .autored.yaml or ~/.config/autored/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cookiesPath, "cookies", "", "session cookie file")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "run the browser without a window")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")

	rootCmd.SetVersionTemplate(`autored {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags with extra command flags, loads the
// configuration and initializes the global logger. Failures exit.
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, logger.Logger) {
	flags := map[string]interface{}{
		"log-level": logLevel,
		"cookies":   cookiesPath,
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	return cfg, logger.GetLogger()
}

func openStore(cfg *config.Config) auth.CookieStore {
	store, err := auth.NewStore(cfg.Credentials)
	if err != nil {
		ui.PrintError("Failed to open credential store", err.Error())
		os.Exit(1)
	}
	return store
}

func openJournal(cfg *config.Config, log logger.Logger) *history.Journal {
	if cfg.History.Path == "" {
		return nil
	}
	return history.NewJournal(cfg.History.Path, log)
}

func newNotifier(cfg *config.Config) *ui.Notifier {
	return ui.NewNotifier(notifications && cfg.Schedule.Notify)
}

// signalContext is cancelled on Ctrl-C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// closeBrowser shuts a client down, logging instead of failing
func closeBrowser(c io.Closer, log logger.Logger) {
	if err := c.Close(); err != nil {
		log.WithError(err).Warn("failed to close browser")
	}
}

func fail(title string, err error) {
	logger.GetLogger().WithError(err).Error(title)
	ui.PrintError(title, err.Error())
	os.Exit(1)
}
