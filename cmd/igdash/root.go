package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"igdash/pkg/config"
	"igdash/pkg/instagram"
	"igdash/pkg/logger"
	"igdash/pkg/ratelimit"
	"igdash/pkg/store/badgerstore"
	"igdash/pkg/syncer"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dataDir    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igdash",
	Short: "Sync Instagram account metrics into a local dashboard store",
	Long: `igdash pulls profile, post and audience metrics from the Instagram
Graph API into a local document store, staying inside the provider's
hourly call budget.

Features:
  - Quick profile refresh and full post-by-post insight sync
  - Rolling-window rate budget persisted across runs
  - Per-media insight metric negotiation across media types
  - Secure access token storage using the system keychain
  - Local BadgerDB store with merge-style document updates`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igdash.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for the local store and rate-limit state")

	rootCmd.SetVersionTemplate(`igdash {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// app bundles the wired components a command needs.
type app struct {
	cfg    *config.Config
	store  *badgerstore.Store
	client *instagram.Client
	syncer *syncer.Syncer
}

// loadConfig resolves configuration from flags, environment and file.
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if dataDir != "" {
		flags["data-dir"] = dataDir
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	logger.Initialize(&cfg.Logging)
	return cfg, nil
}

// newApp wires config, store, rate tracker, API client and syncer.
// Callers must Close the returned app.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dir, err := cfg.DataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := badgerstore.Open(filepath.Join(dir, "db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	stateStore, err := ratelimit.NewFileStateStore(filepath.Join(dir, "rate_limit.json"))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open rate-limit state: %w", err)
	}
	tracker := ratelimit.NewTracker(stateStore, cfg.RateLimit.MaxCalls, cfg.RateLimit.Window)

	log := logger.GetLogger()
	client := instagram.NewClient(cfg.API.BaseURL, cfg.API.Timeout, st, tracker, log)

	return &app{
		cfg:    cfg,
		store:  st,
		client: client,
		syncer: syncer.New(client, st, &cfg.Sync, log),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to close store")
	}
}
