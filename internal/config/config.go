package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coursekit/internal/structures"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultTimezone = "Australia/Melbourne"
	DefaultLogLevel = "info"

	envPrefix = "COURSEKIT"
)

// Load reads the config file (if any), then lets COURSEKIT_* variables override it.
// A .env file in the working directory is loaded into the environment first.
func Load() (structures.Config, error) {
	cfgPath, err := Path()
	if err != nil {
		return structures.Config{}, err
	}
	return LoadFrom(cfgPath)
}

func LoadFrom(cfgPath string) (structures.Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return structures.Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", "full")
	for _, key := range []string{"sheet_id", "credentials_path", "github_token_file", "log_file"} {
		v.SetDefault(key, "")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(cfgPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return structures.Config{}, fmt.Errorf("read %s: %w", cfgPath, err)
	}

	var cfg structures.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return structures.Config{}, err
	}
	return cfg, nil
}

func Save(cfg structures.Config) error {
	cfgPath, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfgPath, cfg)
}

func SaveTo(cfgPath string, cfg structures.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, data, 0600)
}

func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "coursekit", "config.json"), nil
}

// TokenPath is where init stores a pasted GitHub token.
func TokenPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "coursekit", "gh-token.txt"), nil
}
