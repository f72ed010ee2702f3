package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/feeds/internal/app"
	"github.com/pders01/feeds/internal/config"
	"github.com/pders01/feeds/internal/debuglog"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	quiet      bool
	addr       string
	dbPath     string
	seedPath   string
	offline    bool
	logLevel   string

	configOutPath   string
	snapshotOutPath string
)

var rootCmd = &cobra.Command{
	Use:           "feeds",
	Short:         "News aggregation server with public and private RSS feeds",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API (default)",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "feeds %s\n", Version)
		fmt.Fprintln(out, "RSS news aggregator")
		fmt.Fprintln(out, "github.com/pders01/feeds")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configOutPath
		if path == "" {
			home, _ := os.UserHomeDir()
			path = filepath.Join(home, ".config", "feeds", "config.toml")
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			return fmt.Errorf("generating config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the live public feed for offline mode",
	RunE:  runSnapshot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, off)")

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&quiet, "quiet", false, "skip startup banner")
		c.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
		c.Flags().StringVar(&dbPath, "db", "", "bolt database path; enables the bolt driver")
		c.Flags().StringVar(&seedPath, "seed", "", "seed data document")
		c.Flags().BoolVar(&offline, "offline", false, "serve the public feed from the snapshot")
	}

	configGenCmd.Flags().StringVarP(&configOutPath, "out", "o", "", "output path (default ~/.config/feeds/config.toml)")
	snapshotCmd.Flags().StringVarP(&snapshotOutPath, "out", "o", "snapshot.toml", "output path")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(serveCmd, versionCmd, configCmd, snapshotCmd)
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if flags.Changed("db") {
		cfg.Database.Driver = "bolt"
		cfg.Database.Path = dbPath
	}
	if flags.Changed("seed") {
		cfg.SeedPath = seedPath
	}
	if flags.Changed("offline") {
		cfg.Feed.Offline = offline
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer debuglog.Close()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if !quiet {
		showBanner(cmd.OutOrStdout(), a)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer debuglog.Close()

	cfg.Feed.Offline = false
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.CaptureSnapshot(cmd.Context(), snapshotOutPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Captured %d items to %s\n", len(result.Items), snapshotOutPath)
	for _, se := range result.SourceErrors {
		fmt.Fprintf(out, "  skipped %s: %s\n", se.SourceID, se.Message)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
