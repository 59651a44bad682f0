// Package config resolves runtime settings from flags, COURSETRACK_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abhisek/coursetrack/internal/validation"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "COURSETRACK"

// Config holds all runtime settings.
type Config struct {
	APIURL         string        `mapstructure:"api_url" validate:"required,url"`
	APIToken       string        `mapstructure:"api_token"`
	DBPath         string        `mapstructure:"db"`
	LogFile        string        `mapstructure:"log_file"`
	LogMode        string        `mapstructure:"log_mode" validate:"oneof=dev prod"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ReportTimeout  time.Duration `mapstructure:"report_timeout" validate:"gt=0"`
	RetryAttempts  int           `mapstructure:"retry_attempts" validate:"min=1,max=10"`
	DevServerAddr  string        `mapstructure:"devserver_addr" validate:"required"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"api-url":  "api_url",
	"token":    "api_token",
	"db":       "db",
	"log-file": "log_file",
	"addr":     "devserver_addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("api_token", "")
	v.SetDefault("db", "")
	v.SetDefault("log_file", "")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("report_timeout", 5*time.Second)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("devserver_addr", "localhost:8080")
}

// Load resolves the configuration. Flags that were set win over the
// environment, which wins over defaults. envFile is loaded first when set;
// otherwise a .env in the working directory is loaded if present. Loaded
// files never override variables already in the environment.
func Load(flags *pflag.FlagSet, envFile string) (Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat .env: %w", err)
	}
	return nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultLogPath resolves the log file path:
// 1. $XDG_STATE_HOME/coursetrack/coursetrack.log
// 2. ~/.local/state/coursetrack/coursetrack.log
func DefaultLogPath() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "coursetrack", "coursetrack.log"), nil
}
