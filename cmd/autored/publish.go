package main

import (
	"autored/pkg/history"
	"autored/pkg/ui"
	"autored/pkg/xhs"

	"github.com/spf13/cobra"
)

var (
	publishImages []string
	publishTitle  string
	publishBody   string
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish local images as one post",
	Example: `  autored publish --image a.png --image b.png --title "Weekend" --body "Sunny #ootd"`,
	Args:  cobra.NoArgs,
	Run:   runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringArrayVarP(&publishImages, "image", "i", nil, "image to attach, in order (repeatable)")
	publishCmd.Flags().StringVarP(&publishTitle, "title", "t", "", "post title")
	publishCmd.Flags().StringVarP(&publishBody, "body", "b", "", "post body")
	publishCmd.MarkFlagRequired("image")
	publishCmd.MarkFlagRequired("title")
}

func runPublish(cmd *cobra.Command, args []string) {
	cfg, log := loadConfig(cmd, nil)

	req := xhs.Request{Media: publishImages, Title: publishTitle, Body: publishBody}
	if err := req.Validate(); err != nil {
		fail("Invalid post", err)
	}

	client := xhs.NewClient(cfg, openStore(cfg), log)
	client.SetNotifier(newNotifier(cfg))
	defer closeBrowser(client, log)

	ctx, cancel := signalContext()
	defer cancel()

	journal := openJournal(cfg, log)
	var rec *history.Record
	if journal != nil {
		var err error
		if rec, err = journal.Begin(history.SourceManual, req.Title, req.Media); err != nil {
			log.WithError(err).Warn("could not record publish attempt")
		}
	}

	err := client.Publish(ctx, req)
	if rec != nil {
		if ferr := journal.Finish(rec, err); ferr != nil {
			log.WithError(ferr).Warn("could not record publish outcome")
		}
	}
	if err != nil {
		closeBrowser(client, log)
		fail("Publish failed", err)
	}
	ui.PrintSuccess("Post published")
}
