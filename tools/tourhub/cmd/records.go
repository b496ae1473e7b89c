package cmd

import (
	"errors"
	"fmt"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List download records and their local state.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := appClient.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			console.Info("No downloads registered. Add one with 'tourhub add'.")
			return nil
		}
		out := cmd.OutOrStdout()
		for _, item := range items {
			fmt.Fprintf(out, "%s  %s  %s\n", console.Bold.Sprint(item.ID), statusLabel(item.LocalState), titleOf(item.DownloadRecord))
			if item.Description != "" {
				fmt.Fprintf(out, "    %s\n", item.Description)
			}
			if item.IndexHTMLPath != "" {
				fmt.Fprintf(out, "    %s\n", console.Gray.Sprint(item.IndexHTMLPath))
			}
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [download-url]",
	Short: "Register a download record.",
	Long: `Registers a download record on the server. Without a URL, the
records listed in --from-file (or the configured links file) are added.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	var links []tourhub.NewDownload
	if len(args) == 1 {
		image, _ := cmd.Flags().GetString("image")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		links = []tourhub.NewDownload{{DownloadURL: args[0], ImageURL: image, Title: title, Description: description}}
	} else {
		path, _ := cmd.Flags().GetString("from-file")
		if path == "" {
			path = cfg.LinksFile
		}
		if path == "" {
			return fmt.Errorf("no download URL given and no links file configured")
		}
		var err error
		if links, err = readLinksFile(path); err != nil {
			return err
		}
	}

	failed := 0
	for _, in := range links {
		rec, err := appClient.AddURL(cmd.Context(), in)
		if err != nil {
			failed++
			reportRPCError(fmt.Sprintf("Could not add '%s'", in.DownloadURL), err)
			continue
		}
		console.Success("Added %s (%s)", rec.ID, titleOf(rec))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records could not be added", failed, len(links))
	}
	return nil
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>...",
	Aliases: []string{"rm"},
	Short:   "Remove download records and their local content.",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := appClient.Refresh(cmd.Context()); err != nil {
			return err
		}
		failed := 0
		for _, id := range args {
			if err := appClient.RemoveURL(cmd.Context(), id); err != nil {
				failed++
				reportRPCError(fmt.Sprintf("Could not remove %s", id), err)
				continue
			}
			console.Success("Removed %s", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d records could not be removed", failed, len(args))
		}
		return nil
	},
}

// reportRPCError prints a failed call, listing invalid fields one per line.
func reportRPCError(prefix string, err error) {
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) && len(rpcErr.FieldErrors) > 0 {
		console.Error("%s: %s", prefix, rpcErr.Message)
		for field, msg := range rpcErr.FieldErrors {
			console.Error("  %s %s", field, msg)
		}
		return
	}
	console.Error("%s: %v", prefix, err)
}

func init() {
	addCmd.Flags().String("image", "", "Preview image URL")
	addCmd.Flags().String("title", "", "Title of the record")
	addCmd.Flags().String("description", "", "Description of the record")
	addCmd.Flags().String("from-file", "", "Add every record listed in this file (overrides config)")
}
