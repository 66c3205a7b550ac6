package main

import (
	"fmt"
	"time"

	"autored/pkg/auth"
	"autored/pkg/ui"

	"github.com/spf13/cobra"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect or remove the saved creator studio session",
	Long: `Inspect or remove the saved creator studio session.

Sessions are stored in one of three backends (credentials.backend):
  - file       plain JSON cookie file (default)
  - encrypted  AES-GCM encrypted cookie file, key kept in the system keychain
  - keyring    the system keychain itself

Never share the cookie file: it grants full access to the account.`,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved session",
	Args:  cobra.NoArgs,
	Run:   runAuthStatus,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the saved session",
	Args:  cobra.NoArgs,
	Run:   runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(logoutCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	cfg, _ := loadConfig(cmd, nil)
	store := openStore(cfg)

	ui.PrintInfo("Backend", cfg.Credentials.Backend)
	ui.PrintInfo("Location", store.Location())

	cookies, err := store.Load()
	if err != nil {
		fail("Failed to read session", err)
	}
	if len(cookies) == 0 {
		ui.PrintWarning("No saved session, run 'autored login'")
		return
	}

	ui.PrintInfo("Cookies", itoa(len(cookies)))
	if expiry, ok := auth.EarliestExpiry(cookies); ok {
		left := time.Until(expiry)
		if left <= 0 {
			ui.PrintWarning("Session expired " + expiry.Format(time.RFC3339))
		} else {
			ui.PrintInfo("Expires", fmt.Sprintf("%s (in %s)", expiry.Format(time.RFC3339), left.Round(time.Minute)))
		}
	}
	for _, c := range auth.Sanitize(cookies) {
		fmt.Printf("  %s %s=%s\n", ui.Dim(c.Domain), c.Name, c.Value)
	}
}

func runLogout(cmd *cobra.Command, args []string) {
	cfg, _ := loadConfig(cmd, nil)
	store := openStore(cfg)
	if err := store.Clear(); err != nil {
		fail("Failed to delete session", err)
	}
	ui.PrintSuccess("Session removed from " + store.Location())
}
