package main

import (
	"fmt"
	"os"

	"autored/pkg/config"
	"autored/pkg/logger"
	"autored/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage autored configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (AUTORED_*, plus MODE, SCHEDULE_TIME and the API keys)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Write a configuration file with every option set to its default.

The file is created as '.autored.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	Run:  runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. API keys and tokens
are masked.`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = ".autored.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to write configuration", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Configuration written to " + path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, _ := loadConfig(cmd, nil)

	masked := *cfg
	masked.Generation.GoogleAPIKey = mask(cfg.Generation.GoogleAPIKey)
	masked.Generation.CloudflareToken = mask(cfg.Generation.CloudflareToken)

	data, err := yaml.Marshal(&masked)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}
	fmt.Print(string(data))
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// versionCmd prints the build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("autored %s (commit: %s, built: %s)\n", logger.Version, gitCommit, buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
