package cmd

import (
	"context"
	"errors"
	"fmt"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/client"
	"github.com/perpetuallyhorni/tourhub/pkg/pool"
	"github.com/perpetuallyhorni/tourhub/tools/tourhub/internal/cli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// extractCheckpoint is the progress at which archives start extracting.
const extractCheckpoint = 85

var downloadCmd = &cobra.Command{
	Use:     "download [id...]",
	Aliases: []string{"dl"},
	Short:   "Download and extract tours.",
	Long: `Downloads the given records and extracts tour archives into the
scratch directory. With --all, every record that is not yet downloaded
is processed. A record that is already downloaded is fetched again and
its extracted tour is replaced.`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if len(args) == 0 && !all {
		return fmt.Errorf("no records given. pass ids or --all")
	}

	items, err := appClient.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	targets, err := selectTargets(items, args, all)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		console.Info("Nothing to download.")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	console.Info("Downloading %d record(s) with %d worker(s)...", len(targets), cfg.Workers)
	workerPool := pool.New(ctx, cfg.Workers, len(targets))
	for _, item := range targets {
		rec := item.DownloadRecord
		workerPool.Submit(func(ctx context.Context) error {
			err := processRecord(ctx, rec)
			if errors.Is(err, tourhub.ErrDiskSpace) {
				cancel()
			}
			return err
		})
	}
	err = workerPool.Stop()
	console.StopRenderer()

	if errors.Is(err, tourhub.ErrDiskSpace) {
		return fmt.Errorf("halted: %w", tourhub.ErrDiskSpace)
	}
	if err != nil {
		return fmt.Errorf("some downloads failed")
	}
	return nil
}

// selectTargets picks the records named by ids, or every record not yet
// downloaded when all is set.
func selectTargets(items []client.Item, ids []string, all bool) ([]client.Item, error) {
	if all {
		var targets []client.Item
		for _, item := range items {
			if !item.IsDownloaded && !item.Status.Busy() {
				targets = append(targets, item)
			}
		}
		return targets, nil
	}

	byID := make(map[string]client.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	targets := make([]client.Item, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("download %q: %w", id, tourhub.ErrNotFound)
		}
		targets = append(targets, item)
	}
	return targets, nil
}

// processRecord downloads one record, reporting progress on its own task line.
// A record that downloaded but failed to extract is not an error.
func processRecord(ctx context.Context, rec tourhub.DownloadRecord) error {
	taskID := rec.ID
	console.AddTask(taskID, "Queued", cli.OpTransfer)
	progressCb := func(current, total int, msg string) {
		if current >= extractCheckpoint {
			console.SetTaskType(taskID, cli.OpExtract)
		}
		console.UpdateTask(taskID, fmt.Sprintf("%3d%% %s", current*100/max(total, 1), msg))
	}

	st, err := appClient.Download(ctx, rec, progressCb)
	console.RemoveTask(taskID)

	switch {
	case errors.Is(err, tourhub.ErrDiskSpace):
		console.Error("Disk space error downloading %s. Halting.", rec.ID)
		return err
	case errors.Is(err, tourhub.ErrExtraction):
		console.Warn("%s downloaded but could not be extracted: %v", rec.ID, err)
		logger.Warn("extraction failed", zap.String("id", rec.ID), zap.Error(err))
		return nil
	case err != nil:
		console.Error("Failed to download %s: %v", rec.ID, err)
		logger.Error("download failed", zap.String("id", rec.ID), zap.Error(err))
		return err
	case st.Hosted:
		console.Success("Opened %s in the browser", titleOf(rec))
	case st.IndexHTMLPath != "":
		console.Success("Downloaded %s, tour ready at %s", titleOf(rec), st.IndexHTMLPath)
	default:
		console.Success("Downloaded %s to %s", titleOf(rec), st.LocalPath)
	}
	return nil
}

func init() {
	downloadCmd.Flags().BoolP("all", "a", false, "Download every record that is not downloaded yet")
}
