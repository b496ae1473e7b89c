package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/perpetuallyhorni/tourhub/pkg/client"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/perpetuallyhorni/tourhub/tools/tourhub/internal/cli"
	cliconfig "github.com/perpetuallyhorni/tourhub/tools/tourhub/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rpcTimeout bounds a single call to the server.
const rpcTimeout = 30 * time.Second

var (
	cfg        *cliconfig.Config
	appClient  *client.Client
	console    *cli.Console
	logFile    io.Closer
	flagConfig string
	flagQuiet  bool
)

var logger = zap.NewNop()

// version is set at build time with -ldflags "-X .../cmd.version=v1.2.3".
var version = "dev"

// Commands that need neither the file logger nor a client.
var lightweightCommands = []string{"completion", "edit", "help"}

// Commands that log but talk to no server.
var serverlessCommands = []string{"serve"}

var rootCmd = &cobra.Command{
	Use:   "tourhub",
	Short: "Serve and browse downloadable virtual tours.",
	Long: `tourhub serves a catalogue of downloadable virtual tours and drives
the client side: downloading, extracting and viewing tour archives,
liking and commenting on posts, and the command-center actions.

For example:
  tourhub serve
  tourhub list
  tourhub download --all
  tourhub open <id>`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if inCommand(cmd, lightweightCommands) {
			return nil
		}

		cleanLogs, _ := cmd.Flags().GetBool("clean-logs")
		debug, _ := cmd.Flags().GetBool("debug")
		var err error
		logger, logFile, err = setupFileLogger(cleanLogs, debug, cfg)
		if err != nil {
			return fmt.Errorf("failed to set up file logger: %w", err)
		}
		if inCommand(cmd, serverlessCommands) {
			return nil
		}

		appClient, err = newAppClient(cfg)
		if err != nil {
			return fmt.Errorf("error creating client: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if appClient != nil {
			err = appClient.Close()
		}
		_ = logger.Sync()
		if logFile != nil {
			_ = logFile.Close()
		}
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// inCommand reports whether cmd or one of its parents is named in names.
func inCommand(cmd *cobra.Command, names []string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if slices.Contains(names, c.Name()) {
			return true
		}
	}
	return false
}

// newAppClient builds the download client talking to the configured server.
func newAppClient(cfg *cliconfig.Config) (*client.Client, error) {
	endpoint := strings.TrimRight(cfg.Client.ServerURL, "/") + rpc.DefaultPath
	rpcClient := rpc.NewClient(endpoint, &http.Client{Timeout: rpcTimeout}).WithActor(cfg.Actor)
	return client.New(&cfg.Client, rpcClient, nil, logger)
}

func init() {
	console = cli.New(false)

	cobra.OnInitialize(func() {
		if flagQuiet {
			console = cli.New(true)
		}

		var err error
		cfg, err = cliconfig.Load(flagConfig)
		if err != nil {
			console.Error("Error loading config: %v", err)
			os.Exit(1)
		}
		applyFlagOverrides(rootCmd, cfg)
	})

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode, no console output except for errors")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug info to stderr and log file")
	rootCmd.PersistentFlags().Bool("clean-logs", false, "Redact share-link ids and scratch paths from log files")

	rootCmd.PersistentFlags().String("server", "", "Base URL of the tourhub server (overrides config)")
	rootCmd.PersistentFlags().String("actor", "", "User id to act as (overrides config)")
	rootCmd.PersistentFlags().StringP("scratch", "d", "", "Directory for downloads and extracted tours (overrides config)")
	rootCmd.PersistentFlags().String("bind", "", "Outbound IP address or interface for transfers (overrides config)")
	rootCmd.PersistentFlags().Bool("hosted", false, "Open links in the browser instead of downloading them (overrides config)")
	rootCmd.PersistentFlags().Int("retries", 0, "Extra attempts for failed transfers (overrides config)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Number of concurrent downloads (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd, addCmd, removeCmd)
	rootCmd.AddCommand(downloadCmd, deleteCmd, openCmd, treeCmd)
	rootCmd.AddCommand(likeCmd, unlikeCmd, commentCmd, interactionsCmd)
	rootCmd.AddCommand(centerCmd, pingCmd)
	rootCmd.AddCommand(editCmd)
}

// Execute executes the root command. Interrupts cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
