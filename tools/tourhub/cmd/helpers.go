package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/client"
	"github.com/perpetuallyhorni/tourhub/pkg/logging"
	cliconfig "github.com/perpetuallyhorni/tourhub/tools/tourhub/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// applyFlagOverrides applies command-line flag overrides to the configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *cliconfig.Config) {
	if cmd.Flag("server").Changed {
		cfg.Client.ServerURL, _ = cmd.Flags().GetString("server")
	}
	if cmd.Flag("actor").Changed {
		cfg.Actor, _ = cmd.Flags().GetString("actor")
	}
	if cmd.Flag("scratch").Changed {
		cfg.Client.ScratchDir, _ = cmd.Flags().GetString("scratch")
	}
	if cmd.Flag("bind").Changed {
		cfg.Client.BindAddress, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flag("hosted").Changed {
		cfg.Client.Hosted, _ = cmd.Flags().GetBool("hosted")
	}
	if cmd.Flag("retries").Changed {
		if val, _ := cmd.Flags().GetInt("retries"); val >= 0 {
			cfg.Client.Retries = val
		}
	}
	if cmd.Flag("workers").Changed {
		if val, _ := cmd.Flags().GetInt("workers"); val > 0 {
			cfg.Workers = val
		}
	}
	if cmd.Flag("debug").Changed {
		if val, _ := cmd.Flags().GetBool("debug"); val {
			cfg.LogLevel = "debug"
		}
	}
}

// setupFileLogger opens the application log in the XDG state directory.
func setupFileLogger(clean, debug bool, cfg *cliconfig.Config) (*zap.Logger, io.Closer, error) {
	logPath, err := xdg.StateFile(filepath.Join(cliconfig.AppName, "app.log"))
	if err != nil {
		return nil, nil, fmt.Errorf("could not get log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
		return nil, nil, fmt.Errorf("could not create log directory: %w", err)
	}
	f, err := logging.OpenFile(logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file: %w", err)
	}

	var writer io.Writer = f
	if clean {
		writer = logging.NewRedactingWriter(f, cfg.Client.ScratchDir)
	}
	opts := logging.Options{Level: cfg.LogLevel}
	if debug {
		opts.Mirror = os.Stderr
	}
	return logging.New(writer, opts).With(zap.Int("pid", os.Getpid())), f, nil
}

// readLinks parses a links file. Each line holds a download URL, an image
// URL and an optional title; blank lines and lines starting with # are skipped.
func readLinks(r io.Reader) ([]tourhub.NewDownload, error) {
	var links []tourhub.NewDownload
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected \"<download url> <image url> [title]\"", lineNo)
		}
		links = append(links, tourhub.NewDownload{
			DownloadURL: fields[0],
			ImageURL:    fields[1],
			Title:       strings.Join(fields[2:], " "),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading links: %w", err)
	}
	return links, nil
}

// readLinksFile parses the links file at path.
func readLinksFile(path string) ([]tourhub.NewDownload, error) {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("could not open links file '%s': %w", path, err)
	}
	defer func() { _ = file.Close() }()
	return readLinks(file)
}

// statusLabel renders a record's local status for listings.
func statusLabel(st client.LocalState) string {
	switch st.Status {
	case client.StatusDownloaded:
		if st.Hosted {
			return console.Cyan.Sprint("hosted")
		}
		return console.Lime.Sprint(st.Status.String())
	case client.StatusDownloading, client.StatusExtracting:
		return console.Yellow.Sprintf("%s %d%%", st.Status, st.Progress)
	case client.StatusFailed:
		return console.Orange.Sprint(st.Status.String())
	default:
		return console.Gray.Sprint(st.Status.String())
	}
}

// titleOf returns a record's title, falling back to its download URL.
func titleOf(rec tourhub.DownloadRecord) string {
	if rec.Title != "" {
		return rec.Title
	}
	return rec.DownloadURL
}
