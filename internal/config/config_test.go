package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = Defaults{LockWait: 5 * time.Second, BackupKeep: 10}

// clearEnv unsets every variable Load reads for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDataDir, EnvDBPath, EnvBackupDir, EnvBackupKeep, EnvLockWait, EnvLogLevel, EnvLogFormat} {
		t.Setenv(key, "")
	}
}

func noEnvFile(t *testing.T) string {
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load("anote", []string{"--data-dir", dir, noEnvFile(t)}, testDefaults)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "anote.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.BackupDir)
	assert.Equal(t, 5*time.Second, cfg.LockWait)
	assert.Equal(t, 10, cfg.BackupKeep)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.ShowVersion)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvDBPath, filepath.Join(dir, "custom.db"))
	t.Setenv(EnvLockWait, "2s")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvBackupKeep, "0")

	cfg, err := Load("anote-bridge", []string{noEnvFile(t)}, testDefaults)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.BackupDir, "backups sit next to the database")
	assert.Equal(t, 2*time.Second, cfg.LockWait)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0, cfg.BackupKeep)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLockWait, "2s")

	cfg, err := Load("anote", []string{
		"--log-level=error", "--lock-wait=750ms", "--log-format", "json", "--version", noEnvFile(t),
	}, testDefaults)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 750*time.Millisecond, cfg.LockWait)
	assert.True(t, cfg.ShowVersion)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ANOTE_BACKUP_KEEP=3\nANOTE_LOG_FORMAT=json\n"), 0o600))

	// the environment still wins over the file
	t.Setenv(EnvLogFormat, "text")
	os.Unsetenv(EnvBackupKeep)
	t.Cleanup(func() { os.Unsetenv(EnvBackupKeep) })

	cfg, err := Load("anote", []string{"--data-dir", dir, "--env-file", envFile}, testDefaults)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.BackupKeep)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--frobnicate"}},
		{"bad duration", []string{"--lock-wait", "soon"}},
		{"zero duration", []string{"--lock-wait", "0s"}},
		{"bad keep", []string{"--backup-keep", "many"}},
		{"negative keep", []string{"--backup-keep=-1"}},
		{"bad level", []string{"--log-level", "loud"}},
		{"bad format", []string{"--log-format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			args := append([]string{"--data-dir", t.TempDir(), noEnvFile(t)}, tt.args...)
			_, err := Load("anote", args, testDefaults)
			assert.Error(t, err)
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DBPath:    filepath.Join(dir, "data", "anote.db"),
		BackupDir: filepath.Join(dir, "data", "backups"),
	}
	require.NoError(t, cfg.EnsureDirs())

	for _, p := range []string{filepath.Join(dir, "data"), cfg.BackupDir} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
