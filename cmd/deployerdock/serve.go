package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"deployerdock/internal/config"
	"deployerdock/internal/history"
	"deployerdock/internal/pipeline"
	"deployerdock/internal/server"
	"deployerdock/internal/site"
	"deployerdock/internal/slug"
	"deployerdock/pkg/fileutil"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logFile    string
	dbPath     string
	host       string
	port       int
	testMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deployment server",
	Long: `Start the HTTP server that accepts deploy requests and serves deployed sites.

POST /api/deploy with {"url": ..., "base_path": ...} triggers a deployment;
deployed sites are served at http://<slug>.<public-host>:<port>/.`,
	RunE: runServe,
}

func init() {
	// Flags for serve command
	serveCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("DEPLOYERDOCK_CONFIG_FILE", ""), "Path to deployerdock.yaml configuration file")
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("DEPLOYERDOCK_LOG_FILE", "./deployerdock.log"), "Path to log file")
	serveCmd.Flags().StringVar(&dbPath, "db", getEnvOrDefault("DEPLOYERDOCK_DB_PATH", "./deployments.db"), "Path to SQLite history database")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("DEPLOYERDOCK_HOST", ""), "Address to bind to (all interfaces if empty)")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("DEPLOYERDOCK_PORT", 0), "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("DEPLOYERDOCK_TEST_MODE") == "1", "Enable test mode (no history, no rate limits)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Set up logging
	logger, logFileHandle, err := setupLogging(logFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting deployerdock")

	// Load configuration; a missing config file means defaults.
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}
	if host == "" {
		host = cfg.Host
	}

	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("Failed to create working directories", "error", err)
		return fmt.Errorf("failed to create working directories: %w", err)
	}

	// Registry starts empty on every boot; sites live until restart.
	sites := site.NewRegistry()

	pipe := pipeline.New(
		cfg.ScratchRoot,
		cfg.DeploymentsRoot,
		slug.New(),
		sites,
		pipeline.NewGitFetcher(),
		pipeline.NewCommandBuilder(cfg.BuildCommands, time.Duration(cfg.BuildTimeout)*time.Second),
		logger,
	)

	// Initialize history database
	var hist *history.History
	if !testMode {
		logger.Info("Initializing history database", "db", dbPath)
		hist, err = history.NewHistory(dbPath)
		if err != nil {
			logger.Error("Failed to initialize history database", "error", err)
			return fmt.Errorf("failed to initialize history database: %w", err)
		}
		defer hist.Close()
	}

	srv := server.NewServer(cfg, sites, pipe, hist, logger, testMode)

	logger.Info("Starting HTTP server",
		"host", host,
		"port", cfg.Port,
		"base_hostnames", cfg.BaseHostnames,
		"deployments_root", cfg.DeploymentsRoot,
		"scratch_root", cfg.ScratchRoot)
	logger.Info("Deployed sites will be served on subdomains",
		"pattern", fmt.Sprintf("http://<slug>.%s:%d/", cfg.PublicHost, cfg.Port))

	if err := srv.Start(host, cfg.Port); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = fileutil.FindConfigOptional("deployerdock.yaml")
	}
	if path == "" {
		logger.Info("No configuration file found, using defaults")
		return config.Default(), nil
	}

	logger.Info("Loading configuration", "config", path)
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := slog.New(handler)

	return logger, file, nil
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
