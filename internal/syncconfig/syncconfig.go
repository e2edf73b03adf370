// Package syncconfig loads the device settings used by the sync engine and
// the CLI.
//
// Priority for every key: command line flag > CHECKIN_* env (a .env file in
// the working directory counts as env) > ~/.config/checkin/config.json >
// default.
package syncconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "CHECKIN"
	configName     = "config"
	configType     = "json"
	dotEnvFile     = ".env"
	defaultTimeout = 30 * time.Second
	defaultRefresh = 30 * time.Second
)

// Config keys
const (
	KeyDataDir        = "data_dir"
	KeyRequestTimeout = "request_timeout"
	KeyAutoCheckin    = "auto_checkin"
	KeySound          = "sound"
	KeySyncInterval   = "sync_interval"
	KeyDebug          = "debug"
)

// Config holds the resolved settings.
type Config struct {
	DataDir        string
	RequestTimeout time.Duration
	AutoCheckin    bool
	Sound          bool
	SyncInterval   time.Duration
	Debug          bool
}

// ConfigDir returns ~/.config/checkin, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "checkin")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// defaultDataDir is ~/.local/share/checkin
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".checkin"
	}
	return filepath.Join(home, ".local", "share", "checkin")
}

// newViper builds a viper instance with defaults, env binding and the
// config file (if any) loaded.
func newViper() (*viper.Viper, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotEnvFile, err)
	}

	v := viper.New()
	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeyRequestTimeout, defaultTimeout)
	v.SetDefault(KeyAutoCheckin, false)
	v.SetDefault(KeySound, true)
	v.SetDefault(KeySyncInterval, defaultRefresh)
	v.SetDefault(KeyDebug, false)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	v.AddConfigPath(dir)
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load resolves the settings. flags may be nil; flags named after a key
// (with dashes for underscores) override every other source when set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	if flags != nil {
		for _, key := range []string{KeyDataDir, KeyRequestTimeout, KeyAutoCheckin, KeySound, KeySyncInterval, KeyDebug} {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{
		DataDir:        v.GetString(KeyDataDir),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		AutoCheckin:    v.GetBool(KeyAutoCheckin),
		Sound:          v.GetBool(KeySound),
		SyncInterval:   v.GetDuration(KeySyncInterval),
		Debug:          v.GetBool(KeyDebug),
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaultRefresh
	}
	return cfg, nil
}

// Set stores key=value in config.json, keeping the other stored keys.
func Set(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// A bare instance so env and defaults are not written to the file
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, configName+"."+configType))
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	v.Set(key, value)
	return v.WriteConfig()
}

// IsKey reports whether key is a known setting
func IsKey(key string) bool {
	switch key {
	case KeyDataDir, KeyRequestTimeout, KeyAutoCheckin, KeySound, KeySyncInterval, KeyDebug:
		return true
	}
	return false
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
