package main

import (
	"os"

	"autored/pkg/auth"
	"autored/pkg/ui"
	"autored/pkg/xhs"

	"github.com/spf13/cobra"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the creator studio and save the session",
	Long: `Open the creator studio in a visible browser. A saved session is reused
when it is still valid; otherwise the QR code login is opened and the
session is saved once the code has been scanned.`,
	Args: cobra.NoArgs,
	Run:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	cfg, log := loadConfig(cmd, nil)
	cfg.Browser.Headless = false

	store := openStore(cfg)
	auth.ShowLoginGuide(os.Stdout, store, cfg.Browser.LongTimeout.String())

	client := xhs.NewClient(cfg, store, log)
	client.SetNotifier(newNotifier(cfg))
	defer closeBrowser(client, log)

	ctx, cancel := signalContext()
	defer cancel()

	if err := client.Login(ctx); err != nil {
		closeBrowser(client, log)
		fail("Login failed", err)
	}
	ui.PrintSuccess("Logged in, session saved to " + store.Location())
}
