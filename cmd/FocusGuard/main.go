package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/api"
	"github.com/BTreeMap/FocusGuard/internal/lockfile"
	"github.com/BTreeMap/FocusGuard/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FocusGuard state data
	DefaultStateDir = "/var/lib/focusguard"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "focusguard.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Guard the state directory against a second instance
	if *flags.storeDriver == "sqlite" {
		lock, err := lockfile.Acquire(filepath.Dir(*flags.storeDSN))
		if err != nil {
			slog.Error("Failed to lock state directory", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	// Start the service
	slog.Info("Bootstrapping FocusGuard with configured modules")
	slog.Debug("Final configuration",
		"store_driver", *flags.storeDriver, "dsn_set", *flags.storeDSN != "",
		"api_addr", *flags.apiAddr, "drain_interval", *flags.drainInterval)
	if err := api.Run(api.Config{
		StoreDriver:   *flags.storeDriver,
		StoreDSN:      *flags.storeDSN,
		Addr:          *flags.apiAddr,
		DrainInterval: *flags.drainInterval,
	}); err != nil {
		slog.Error("FocusGuard failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FocusGuard exited successfully")
}

// Config holds environment configuration
type Config struct {
	StoreDriver   string
	StoreDSN      string
	StateDir      string
	APIAddr       string
	DrainInterval time.Duration
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	storeDriver   *string
	storeDSN      *string
	apiAddr       *string
	drainInterval *time.Duration
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StoreDriver:   os.Getenv("FOCUSGUARD_STORE_DRIVER"),
		StoreDSN:      os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("FOCUSGUARD_STATE_DIR"),
		APIAddr:       os.Getenv("API_ADDR"),
		DrainInterval: util.ParseDurationEnv("FOCUSGUARD_DRAIN_INTERVAL", 0),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FOCUSGUARD_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.StoreDSN == "" {
		config.StoreDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.StoreDSN)
	}
	if config.StoreDriver == "" {
		config.StoreDriver = detectStoreDriver(config.StoreDSN)
	}

	slog.Debug("environment variables loaded",
		"FOCUSGUARD_STORE_DRIVER", config.StoreDriver,
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"FOCUSGUARD_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr)

	return config
}

// detectStoreDriver infers the storage backend from the DSN shape.
func detectStoreDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for FocusGuard data (overrides $FOCUSGUARD_STATE_DIR)"),
		storeDriver:   flag.String("store-driver", config.StoreDriver, "storage backend: sqlite or postgres (overrides $FOCUSGUARD_STORE_DRIVER)"),
		storeDSN:      flag.String("db-dsn", config.StoreDSN, "database DSN for the store (overrides $DATABASE_URL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		drainInterval: flag.Duration("drain-interval", config.DrainInterval, "scheduler drain cadence (overrides $FOCUSGUARD_DRAIN_INTERVAL)"),
	}

	flag.Parse()

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.storeDSN == config.StoreDSN && config.StoreDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.storeDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated db-dsn based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.storeDriver != "sqlite" {
		return nil
	}
	stateDir := filepath.Dir(*flags.storeDSN)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	slog.Debug("State directory verified/created", "state_dir", stateDir)
	return nil
}
