package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"callbook/internal/api"
	"callbook/internal/booking"
	"callbook/internal/callstatus"
	"callbook/internal/civiltime"
	"callbook/internal/client"
	"callbook/internal/lockfile"
	"callbook/internal/scheduler"
	"callbook/internal/store"
	"callbook/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CallBook state data
	DefaultStateDir = "/var/lib/callbook"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "callbook.db"
	// DefaultTimezone is the campaign civil zone used by the call-scheduling flow
	DefaultTimezone = "Europe/London"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Guard the state directory so two instances never share one token store
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	slog.Info("Bootstrapping CallBook with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"timezone", *flags.timezone,
		"session_ttl", config.SessionTTL)

	if err := run(flags, config); err != nil {
		slog.Error("CallBook failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("CallBook exited successfully")
}

// run wires the modules together and serves until the listener fails.
func run(flags Flags, config Config) error {
	tokenStore, err := store.New(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer tokenStore.Close()

	backend, err := client.NewClient(
		client.WithBaseURL(*flags.backendURL),
		client.WithCredentials(*flags.username, *flags.password),
		client.WithTokenStore(tokenStore),
	)
	if err != nil {
		return err
	}

	fixedPolicy, err := civiltime.FixedZone(*flags.timezone)
	if err != nil {
		return err
	}

	status := callstatus.NewService(backend)
	manager := booking.NewManager(backend, status, fixedPolicy,
		booking.WithSessionTTL(config.SessionTTL))

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(manager, backend, sched, apiOpts...)
	return server.Run(context.Background())
}

// Config holds environment configuration
type Config struct {
	BackendURL  string
	Username    string
	Password    string
	DatabaseURL string
	StateDir    string
	APIAddr     string
	Timezone    string
	SessionTTL  time.Duration
}

// Flags holds command line flag values
type Flags struct {
	stateDir   *string
	dbDSN      *string
	backendURL *string
	username   *string
	password   *string
	apiAddr    *string
	timezone   *string
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
		BackendURL:  os.Getenv("CALLBOOK_BACKEND_URL"),
		Username:    os.Getenv("CALLBOOK_USERNAME"),
		Password:    os.Getenv("CALLBOOK_PASSWORD"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("CALLBOOK_STATE_DIR"),
		APIAddr:     os.Getenv("API_ADDR"),
		Timezone:    os.Getenv("CALLBOOK_TIMEZONE"),
		SessionTTL:  util.ParseDurationEnv("SESSION_TTL", booking.DefaultSessionTTL),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CALLBOOK_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("CALLBOOK_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	if config.Timezone == "" {
		config.Timezone = DefaultTimezone
		slog.Debug("No CALLBOOK_TIMEZONE set, using default", "default_timezone", config.Timezone)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"CALLBOOK_BACKEND_URL_SET", config.BackendURL != "",
		"CALLBOOK_USERNAME_SET", config.Username != "",
		"CALLBOOK_PASSWORD_SET", config.Password != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CALLBOOK_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"CALLBOOK_TIMEZONE", config.Timezone,
		"SESSION_TTL", config.SessionTTL)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for CallBook data (overrides $CALLBOOK_STATE_DIR)"),
		dbDSN:      flag.String("db-dsn", config.DatabaseURL, "database DSN for the token store (overrides $DATABASE_URL)"),
		backendURL: flag.String("backend-url", config.BackendURL, "scheduling backend base URL (overrides $CALLBOOK_BACKEND_URL)"),
		username:   flag.String("username", config.Username, "backend login username (overrides $CALLBOOK_USERNAME)"),
		password:   flag.String("password", config.Password, "backend login password (overrides $CALLBOOK_PASSWORD)"),
		apiAddr:    flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		timezone:   flag.String("timezone", config.Timezone, "IANA zone for call-scheduling civil times (overrides $CALLBOOK_TIMEZONE)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"backendURL_set", *flags.backendURL != "",
		"usernameSet", *flags.username != "",
		"passwordSet", *flags.password != "",
		"apiAddr", *flags.apiAddr,
		"timezone", *flags.timezone)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}
