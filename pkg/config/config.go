package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// AppName names the application's directories.
const AppName = "tourhub"

// Config struct holds the core, application-agnostic configuration.
type Config struct {
	Server ServerConfig `koanf:"server"` // Settings for the RPC server.
	Client ClientConfig `koanf:"client"` // Settings for the download client.
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `koanf:"log_level"`
}

// ServerConfig configures the RPC facade.
type ServerConfig struct {
	Listen         string   `koanf:"listen"`                  // Address the server listens on.
	Store          string   `koanf:"store"`                   // Record store backend ("memory", "sqlite").
	Seed           bool     `koanf:"seed"`                    // Seed demo download records on start.
	AllowedOrigins []string `koanf:"allowed_origins"`         // CORS origins; empty allows all.
	LatencyScale   float64  `koanf:"simulated_latency_scale"` // Multiplier for simulated command-center latency, 0 disables.
	ShutdownGrace  string   `koanf:"shutdown_grace"`          // Time allowed for in-flight requests on shutdown.
}

// ClientConfig configures the download client.
type ClientConfig struct {
	ServerURL        string `koanf:"server_url"`        // Base URL of the RPC server.
	ScratchDir       string `koanf:"scratch_dir"`       // Directory for downloads and extracted archives.
	MinPayloadBytes  int64  `koanf:"min_payload_bytes"` // Payloads smaller than this are inspected for error pages.
	TransferTimeout  string `koanf:"transfer_timeout"`  // Deadline for a single download, e.g. "5m".
	Retries          int    `koanf:"retries"`           // Extra transfer attempts on failure.
	RetryDelay       string `koanf:"retry_delay"`       // Pause between transfer attempts.
	DownloadInterval string `koanf:"download_interval"` // Minimum gap between consecutive transfers, "0" disables.
	Hosted           bool   `koanf:"hosted"`            // Hand downloads to the system opener instead of fetching locally.
	BindAddress      string `koanf:"bind_address"`      // Outbound IP or interface for transfers.
	MinFreeBytes     uint64 `koanf:"min_free_bytes"`    // Free space required before a transfer starts.
}

// Default returns the default core configuration.
func Default() *Config {
	scratch := filepath.Join(xdg.CacheHome, AppName)
	if xdg.CacheHome == "" {
		// Fallback for systems without a resolvable cache directory.
		scratch = filepath.Join(".cache", AppName)
	}

	return &Config{
		Server: ServerConfig{
			Listen:        "127.0.0.1:8081",
			Store:         "memory",
			Seed:          true,
			LatencyScale:  1,
			ShutdownGrace: "5s",
		},
		Client: ClientConfig{
			ServerURL:        "http://127.0.0.1:8081",
			ScratchDir:       scratch,
			MinPayloadBytes:  100,
			TransferTimeout:  "5m",
			Retries:          0,
			RetryDelay:       "2s",
			DownloadInterval: "0",
			MinFreeBytes:     64 << 20,
		},
		LogLevel: "info",
	}
}

// Duration parses a duration setting, returning def when it is empty or invalid.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return def
	}
	return d
}
