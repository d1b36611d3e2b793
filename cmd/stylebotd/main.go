// Package main provides the stylebot background daemon. It serves the
// extension's requests over native messaging and keeps the context menu and
// browser action in step with the browser's tabs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/stylebot/pkg/config"
	"github.com/entrhq/stylebot/pkg/logging"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	OptionsPath string
	StylesPath  string
	LogDir      string
	Debug       bool
	Browser     bool
	Headless    bool
	ShowVersion bool

	// set records the flags given explicitly, which override the config file
	set map[string]bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		// stdout belongs to the native messaging channel
		fmt.Fprintf(os.Stderr, "stylebotd v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "Shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "stylebotd: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.OptionsPath, "options", "", "Options file (default ~/.stylebot/options.json)")
	flag.StringVar(&cli.StylesPath, "styles", "", "Styles file (default ~/.stylebot/styles.yaml)")
	flag.StringVar(&cli.LogDir, "log-dir", "", "Log directory (default ~/.stylebot/logs)")
	flag.BoolVar(&cli.Debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cli.Browser, "browser", false, "Drive a Playwright browser as the tab source")
	flag.BoolVar(&cli.Headless, "headless", true, "Run the Playwright browser headless")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "stylebotd - stylebot background daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: stylebotd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Serve the extension over native messaging\n")
		fmt.Fprintf(os.Stderr, "  stylebotd\n\n")
		fmt.Fprintf(os.Stderr, "  # Watch a visible browser with debug logging\n")
		fmt.Fprintf(os.Stderr, "  stylebotd -browser -headless=false -debug\n\n")
	}

	flag.Parse()

	cli.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		cli.set[f.Name] = true
	})
	return cli
}

// loadConfig reads the config file when given and applies explicit flags
// on top of it.
func loadConfig(cli *CLIConfig) (*config.Daemon, error) {
	cfg := config.DefaultDaemon()
	if cli.ConfigFile != "" {
		loaded, err := config.LoadDaemonFile(cli.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cli.set["options"] {
		cfg.OptionsPath = cli.OptionsPath
	}
	if cli.set["styles"] {
		cfg.StylesPath = cli.StylesPath
	}
	if cli.set["log-dir"] {
		cfg.Logging.Dir = cli.LogDir
	}
	if cli.set["debug"] {
		cfg.Logging.Debug = cli.Debug
	}
	if cli.set["browser"] {
		cfg.Browser.Enabled = cli.Browser
	}
	if cli.set["headless"] {
		cfg.Browser.Headless = cli.Headless
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run wires the daemon and blocks until input ends or ctx is cancelled.
func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.Configure(cfg.Logging.Dir); err != nil {
		return err
	}
	logging.SetDebug(cfg.Logging.Debug)
	defer logging.Close()

	d, err := newDaemon(cfg, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	return d.run(ctx)
}
