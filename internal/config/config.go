package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// DotEnvFile is loaded from the working directory before environment
// overrides are applied. Variables already set in the environment win.
const DotEnvFile = ".env"

// Load reads and merges configuration.
// Resolution order: defaults → user config (~/.config/chatwidget/chatwidget.jsonc)
// → overridePath (if non-empty) → environment variables.
func Load(overridePath string) (*Config, error) {
	cfg := DefaultConfig()

	if userPath := UserConfigPath(); userPath != "" {
		if userMap, err := loadJSONC(userPath); err == nil {
			if err := mergeIntoConfig(&cfg, userMap); err != nil {
				return nil, fmt.Errorf("merging user config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if overridePath != "" {
		overrideMap, err := loadJSONC(overridePath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", overridePath, err)
		}
		if err := mergeIntoConfig(&cfg, overrideMap); err != nil {
			return nil, fmt.Errorf("merging config %s: %w", overridePath, err)
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UserConfigPath returns the user-level config file path, or "" when the
// user config directory cannot be determined.
func UserConfigPath() string {
	userDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(userDir, "chatwidget", "chatwidget.jsonc")
}

// Validate checks values that would otherwise fail later at use.
func (c *Config) Validate() error {
	if !c.Storage.Backend.Valid() {
		return fmt.Errorf("invalid storage.backend %q (want file, sqlite or memory)", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key must not be empty")
	}
	if c.Endpoint.URL == "" {
		return fmt.Errorf("endpoint.url must not be empty")
	}
	u, err := url.Parse(c.Endpoint.URL)
	if err != nil {
		return fmt.Errorf("invalid endpoint.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint.url %q: scheme must be http or https", c.Endpoint.URL)
	}
	return nil
}

// loadJSONC reads a JSONC file and returns it as a map.
func loadJSONC(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jsonData := jsonc.ToJSON(data)
	var m map[string]any
	if err := json.Unmarshal(jsonData, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// mergeIntoConfig marshals the config to a map, deep-merges src over it,
// then unmarshals back to the Config struct.
func mergeIntoConfig(cfg *Config, src map[string]any) error {
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var dst map[string]any
	if err := json.Unmarshal(cfgBytes, &dst); err != nil {
		return err
	}

	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}

	merged, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, cfg)
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		slog.Debug("loaded environment file", "path", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHATWIDGET_ENDPOINT"); v != "" {
		cfg.Endpoint.URL = v
	}
	if v := os.Getenv("CHATWIDGET_USER_ID"); v != "" {
		cfg.Endpoint.UserID = v
	}
	if v := os.Getenv("CHATWIDGET_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = StorageBackend(v)
	}
	if v := os.Getenv("CHATWIDGET_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
}
