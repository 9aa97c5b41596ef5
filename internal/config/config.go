// Package config handles the configuration directory, API endpoint and
// request timeout.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasker"

	// ConfigFile is the optional settings file inside the config directory.
	ConfigFile = "config.yaml"

	// DefaultAPIURL is the task service base URL used when none is configured.
	DefaultAPIURL = "http://localhost:8000"

	// DefaultTimeout bounds each request to the task service.
	DefaultTimeout = 10 * time.Second
)

// Environment variables consulted by Load.
const (
	EnvAPIURL  = "TASKER_API_URL"
	EnvTimeout = "TASKER_TIMEOUT"
	EnvDebug   = "TASKER_DEBUG"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the base URL of the task service.
	APIURL string

	// Timeout bounds each request to the task service.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// fileSettings is the shape of config.yaml.
type fileSettings struct {
	APIURL  string `yaml:"api_url"`
	Timeout string `yaml:"timeout"`
	Debug   bool   `yaml:"debug"`
}

// New creates a new Config with the default or specified config directory
// and default settings. It reads nothing from disk or the environment.
// If configDir is empty, uses XDG_CONFIG_HOME/tasker or $HOME/.config/tasker.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:     dir,
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
	}, nil
}

// Load creates a Config and layers settings over the defaults, lowest
// precedence first: config.yaml in the config directory, a .env file in the
// working directory, then the process environment.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}

	return cfg, nil
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.SettingsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", ConfigFile, err)
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}
	if fs.APIURL != "" {
		c.APIURL = fs.APIURL
	}
	if fs.Timeout != "" {
		d, err := time.ParseDuration(fs.Timeout)
		if err != nil {
			return fmt.Errorf("invalid %s: timeout: %w", ConfigFile, err)
		}
		c.Timeout = d
	}
	if fs.Debug {
		c.Debug = true
	}
	return nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api url %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api url %q: scheme must be http or https", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api url %q: missing host", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}
