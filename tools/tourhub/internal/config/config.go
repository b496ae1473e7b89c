package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/perpetuallyhorni/tourhub/pkg/config"
)

// AppName names the CLI's directories.
const AppName = config.AppName

// EnvPrefix marks environment variables that override the config file.
// A double underscore separates sections: TOURHUB_SERVER__LISTEN sets server.listen.
const EnvPrefix = "TOURHUB_"

// Config extends the core config with CLI-specific options.
type Config struct {
	config.Config `koanf:",squash"`
	Actor         string `koanf:"actor"`
	Workers       int    `koanf:"workers"`
	LinksFile     string `koanf:"links_file"`
	Editor        string `koanf:"editor"`
}

// Default returns the default CLI configuration.
func Default() *Config {
	return &Config{
		Config:    *config.Default(),
		Workers:   runtime.NumCPU(),
		LinksFile: filepath.Join(xdg.DataHome, AppName, "links.txt"),
	}
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(AppName, "config.yaml"))
	if err != nil {
		return "", fmt.Errorf("failed to get default config path: %w", err)
	}
	return path, nil
}

// Load reads the configuration at path, creating a commented default file
// when it does not exist. Values from a .env file in the working directory
// and TOURHUB_ environment variables override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()
	cfgPath := path
	if cfgPath == "" {
		var err error
		if cfgPath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := createDefaultConfig(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(cfgPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// envKey maps TOURHUB_CLIENT__SCRATCH_DIR to client.scratch_dir.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func createDefaultConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	content := fmt.Sprintf(`# tourhub configuration file.
# Environment variables prefixed with TOURHUB_ override these values,
# e.g. TOURHUB_SERVER__LISTEN or TOURHUB_CLIENT__SCRATCH_DIR.

# One of "debug", "info", "warn", "error".
log_level: "%s"
# User id sent with every request. Empty acts as the anonymous user.
actor: "%s"
# Concurrent downloads for 'tourhub download --all'.
workers: %d
# File with one "<download url> <image url> [title]" entry per line, used by 'tourhub add --from-file'.
links_file: "%s"
# Editor for the 'edit' command. If empty, $EDITOR or a common editor is used.
editor: "%s"

server:
  # Address 'tourhub serve' listens on.
  listen: "%s"
  # Record store: "memory" or "sqlite".
  store: "%s"
  # Seed demo download records on start.
  seed: %t
  # CORS origins allowed to call the API. Empty allows all.
  allowed_origins: []
  # Multiplier for the simulated command-center latency. 0 disables it.
  simulated_latency_scale: %g
  # Time allowed for in-flight requests on shutdown.
  shutdown_grace: "%s"

client:
  # Base URL of the tourhub server.
  server_url: "%s"
  # Where payloads are downloaded and archives extracted.
  scratch_dir: "%s"
  # Payloads smaller than this many bytes are inspected for error pages.
  min_payload_bytes: %d
  # Deadline for a single transfer.
  transfer_timeout: "%s"
  # Extra attempts when a transfer fails.
  retries: %d
  # Pause between transfer attempts.
  retry_delay: "%s"
  # Minimum gap between consecutive transfers. "0" disables it.
  download_interval: "%s"
  # Hand links to the system browser instead of downloading them.
  hosted: %t
  # Outbound IP address or interface for transfers. A comma-separated list rotates.
  bind_address: "%s"
  # Free bytes required in the scratch directory before a transfer starts.
  min_free_bytes: %d
`, cfg.LogLevel, cfg.Actor, cfg.Workers, cfg.LinksFile, cfg.Editor,
		cfg.Server.Listen, cfg.Server.Store, cfg.Server.Seed, cfg.Server.LatencyScale, cfg.Server.ShutdownGrace,
		cfg.Client.ServerURL, cfg.Client.ScratchDir, cfg.Client.MinPayloadBytes, cfg.Client.TransferTimeout,
		cfg.Client.Retries, cfg.Client.RetryDelay, cfg.Client.DownloadInterval, cfg.Client.Hosted,
		cfg.Client.BindAddress, cfg.Client.MinFreeBytes)
	content = strings.ReplaceAll(content, "\\", "/")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write default config file: %w", err)
	}
	return nil
}
