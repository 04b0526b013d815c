package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/NextMind/NextCoach/internal/api"
	"github.com/NextMind/NextCoach/internal/coaching"
	"github.com/NextMind/NextCoach/internal/lockfile"
	"github.com/NextMind/NextCoach/internal/notify"
	"github.com/NextMind/NextCoach/internal/recommend"
	"github.com/NextMind/NextCoach/internal/store"
	"github.com/NextMind/NextCoach/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for NextCoach state data
	DefaultStateDir = "/var/lib/nextcoach"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "nextcoach.db"
	// DefaultLogLevel is used when neither LOG_LEVEL nor -log-level is set
	DefaultLogLevel = "info"
)

func main() {
	config := loadEnvironmentConfig()

	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		os.Exit(2)
	}
	initializeLogger(flags.logLevel, config.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, flags); err != nil {
		slog.Error("NextCoach failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("NextCoach exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir           string
	DatabaseURL        string
	APIAddr            string
	CatalogFile        string
	CoachRecipient     string
	LogLevel           string
	LogJSON            bool
	RateLimitPerMinute int
	OutboxPollInterval time.Duration
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	TwilioChannel      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       string
	dbDSN          string
	apiAddr        string
	catalog        string
	coachRecipient string
	rateLimit      int
	logLevel       string
}

// initializeLogger sets up structured logging at the requested level
func initializeLogger(level string, jsonOutput bool) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:           os.Getenv("NEXTCOACH_STATE_DIR"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		APIAddr:            os.Getenv("API_ADDR"),
		CatalogFile:        os.Getenv("CATALOG_FILE"),
		CoachRecipient:     os.Getenv("COACH_RECIPIENT"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		LogJSON:            util.ParseBoolEnv("LOG_JSON", false),
		RateLimitPerMinute: util.ParseIntEnv("RATE_LIMIT_PER_MINUTE", api.DefaultRateLimitPerMinute),
		OutboxPollInterval: util.ParseDurationEnv("OUTBOX_POLL_INTERVAL", store.DefaultOutboxPollInterval),
		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:   os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioChannel:      os.Getenv("TWILIO_CHANNEL"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No NEXTCOACH_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}

	slog.Debug("environment variables loaded",
		"NEXTCOACH_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"API_ADDR", config.APIAddr,
		"CATALOG_FILE", config.CatalogFile,
		"COACH_RECIPIENT_SET", config.CoachRecipient != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults.
// An empty -db-dsn resolves to the SQLite file inside the final state directory.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	var flags Flags
	fs.StringVar(&flags.stateDir, "state-dir", config.StateDir, "state directory for NextCoach data (overrides $NEXTCOACH_STATE_DIR)")
	fs.StringVar(&flags.dbDSN, "db-dsn", config.DatabaseURL, "PostgreSQL DSN or SQLite path (overrides $DATABASE_URL)")
	fs.StringVar(&flags.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&flags.catalog, "catalog", config.CatalogFile, "YAML exercise and resource catalog (overrides $CATALOG_FILE)")
	fs.StringVar(&flags.coachRecipient, "coach-recipient", config.CoachRecipient, "phone number reports are sent to (overrides $COACH_RECIPIENT)")
	fs.IntVar(&flags.rateLimit, "rate-limit", config.RateLimitPerMinute, "per-IP requests per minute, 0 disables (overrides $RATE_LIMIT_PER_MINUTE)")
	fs.StringVar(&flags.logLevel, "log-level", config.LogLevel, "debug, info, warn or error (overrides $LOG_LEVEL)")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}
	if strings.TrimSpace(flags.dbDSN) == "" {
		flags.dbDSN = filepath.Join(flags.stateDir, DefaultDBFileName)
	}

	slog.Debug("flags parsed",
		"stateDir", flags.stateDir,
		"dbDSN_type", store.DetectDSNType(flags.dbDSN),
		"apiAddr", flags.apiAddr,
		"catalog", flags.catalog,
		"rateLimit", flags.rateLimit,
		"logLevel", flags.logLevel)
	return flags, nil
}

// run wires the modules together and blocks until ctx is cancelled.
func run(ctx context.Context, config Config, flags Flags) error {
	lock, err := lockfile.Acquire(flags.stateDir, flags.apiAddr)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := store.Open(flags.dbDSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	catalog, err := loadCatalog(flags.catalog)
	if err != nil {
		return err
	}
	svc := coaching.NewService(st, buildServiceOptions(flags, catalog)...)
	if n, err := svc.SeedExercises(); err != nil {
		return fmt.Errorf("failed to seed exercises: %w", err)
	} else if n > 0 {
		slog.Info("Seeded exercise library", "count", n)
	}

	sender := buildSender(config)
	slog.Info("Bootstrapping NextCoach", "addr", flags.apiAddr, "state_dir", flags.stateDir)
	return api.Run(ctx, svc, st, sender, buildAPIOptions(config, flags)...)
}

// loadCatalog reads the YAML catalog, or returns the built-in one when path is empty.
func loadCatalog(path string) (*recommend.Catalog, error) {
	if path == "" {
		return recommend.DefaultCatalog(), nil
	}
	catalog, err := recommend.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	slog.Info("Loaded exercise catalog", "path", path, "exercises", len(catalog.Exercises()), "resources", len(catalog.Resources()))
	return catalog, nil
}

// buildServiceOptions constructs coaching service options
func buildServiceOptions(flags Flags, catalog *recommend.Catalog) []coaching.Option {
	opts := []coaching.Option{coaching.WithPolicy(recommend.NewPolicy(catalog))}
	if flags.coachRecipient != "" {
		opts = append(opts, coaching.WithCoachRecipient(flags.coachRecipient))
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(config Config, flags Flags) []api.Option {
	return []api.Option{
		api.WithAddr(flags.apiAddr),
		api.WithRateLimit(flags.rateLimit),
		api.WithOutboxPollInterval(config.OutboxPollInterval),
	}
}

// buildSender returns a Twilio sender when credentials are configured, and a
// logging sender otherwise.
func buildSender(config Config) notify.Sender {
	if config.TwilioAccountSID == "" || config.TwilioAuthToken == "" {
		slog.Info("Twilio not configured, coach reports will only be logged")
		return notify.LogSender{}
	}
	opts := []notify.Option{
		notify.WithAccountSID(config.TwilioAccountSID),
		notify.WithAuthToken(config.TwilioAuthToken),
		notify.WithFrom(config.TwilioFromNumber),
	}
	if config.TwilioChannel != "" {
		opts = append(opts, notify.WithChannel(notify.Channel(strings.ToLower(config.TwilioChannel))))
	}
	sender, err := notify.NewTwilioSender(opts...)
	if err != nil {
		slog.Warn("Twilio sender unavailable, falling back to logging", "error", err)
		return notify.LogSender{}
	}
	return sender
}
