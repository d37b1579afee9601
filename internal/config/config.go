// Package config loads anote configuration from flags, environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// Environment variables read by Load
const (
	EnvDataDir    = "ANOTE_DATA_DIR"
	EnvDBPath     = "ANOTE_DB_PATH"
	EnvBackupDir  = "ANOTE_BACKUP_DIR"
	EnvBackupKeep = "ANOTE_BACKUP_KEEP"
	EnvLockWait   = "ANOTE_LOCK_WAIT"
	EnvLogLevel   = "ANOTE_LOG_LEVEL"
	EnvLogFormat  = "ANOTE_LOG_FORMAT"
)

const (
	dbFileName    = "anote.db"
	backupDirName = "backups"
)

// Config holds the resolved configuration of one binary.
type Config struct {
	DataDir     string
	DBPath      string
	BackupDir   string
	BackupKeep  int
	LockWait    time.Duration
	Log         LogConfig
	ShowVersion bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Defaults are the per-binary fallbacks used when neither a flag nor the
// environment sets a value.
type Defaults struct {
	LockWait   time.Duration
	BackupKeep int
}

// Load resolves configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file (never overrides the environment).
// 4. Defaults (lowest priority).
func Load(name string, args []string, defaults Defaults) (*Config, error) {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	dataDir := flagSet.String("data-dir", "", "Directory holding the database and backups")
	dbPath := flagSet.String("db", "", "Database file (default: <data-dir>/anote.db)")
	backupDir := flagSet.String("backup-dir", "", "Snapshot directory (default: <data-dir>/backups)")
	backupKeep := flagSet.String("backup-keep", "", "Number of snapshots to keep, 0 keeps all")
	lockWait := flagSet.String("lock-wait", "", "How long a writer waits for the file lock")
	logLevel := flagSet.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flagSet.String("log-format", "", "Log format (text, json)")
	envFile := flagSet.String("env-file", ".env", "Path to .env file")
	showVersion := flagSet.Bool("version", false, "Print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	cfg := &Config{
		DataDir:   getConfigValue(*dataDir, EnvDataDir, defaultDataDir()),
		DBPath:    getConfigValue(*dbPath, EnvDBPath, ""),
		BackupDir: getConfigValue(*backupDir, EnvBackupDir, ""),
		Log: LogConfig{
			Level:  getConfigValue(*logLevel, EnvLogLevel, "info"),
			Format: getConfigValue(*logFormat, EnvLogFormat, "text"),
		},
		ShowVersion: *showVersion,
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, dbFileName)
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(filepath.Dir(cfg.DBPath), backupDirName)
	}

	keepStr := getConfigValue(*backupKeep, EnvBackupKeep, strconv.Itoa(defaults.BackupKeep))
	keep, err := strconv.Atoi(keepStr)
	if err != nil {
		return nil, fmt.Errorf("invalid backup keep %q: %w", keepStr, err)
	}
	cfg.BackupKeep = keep

	waitStr := getConfigValue(*lockWait, EnvLockWait, defaults.LockWait.String())
	wait, err := time.ParseDuration(waitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid lock wait %q: %w", waitStr, err)
	}
	cfg.LockWait = wait

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("database path cannot be empty")
	}
	if c.LockWait <= 0 {
		return fmt.Errorf("lock wait must be positive, got %s", c.LockWait)
	}
	if c.BackupKeep < 0 {
		return fmt.Errorf("backup keep must not be negative, got %d", c.BackupKeep)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}
	return nil
}

// EnsureDirs creates the database and backup directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{filepath.Dir(c.DBPath), c.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// defaultDataDir is ~/.anote, shared by the app, the server and the bridge
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".anote")
}

// getConfigValue returns a value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}
