// Package main is the entry point for the gwguard admission service.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/avgwguard/internal/config"
	"github.com/vyrodovalexey/avgwguard/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	cfg := loadAndValidateConfig(flags.configPath)

	logger := initLogger(cfg, flags)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting gwguard",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	app := initApplication(cfg, logger)

	if fatal := runService(app, flags.configPath, logger); fatal {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GWGUARD_CONFIG_PATH", "config.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GWGUARD_LOG_LEVEL", ""),
		"Log level override (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("gwguard version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", commit)
}

// loadAndValidateConfig loads and validates the configuration. Errors
// here predate the logger, so they go straight to stderr.
func loadAndValidateConfig(configPath string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// initLogger initializes the logger from the configuration, with the
// command line level override taking precedence.
func initLogger(cfg *config.Config, flags cliFlags) observability.Logger {
	logCfg := observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
