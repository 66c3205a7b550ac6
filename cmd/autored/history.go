package main

import (
	"os"

	"autored/pkg/history"
	"autored/pkg/ui"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent publish attempts",
	Args:  cobra.NoArgs,
	Run:   runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of records to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, log := loadConfig(cmd, nil)
	journal := openJournal(cfg, log)
	if journal == nil {
		ui.PrintWarning("History is disabled (history.path is empty)")
		return
	}

	records, err := journal.Last(historyLimit)
	if err != nil {
		fail("Failed to read history", err)
	}
	history.Render(os.Stdout, records)
}
