// Package config builds the relay's process configuration.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, a .env file merged under the process environment, then
// explicitly set command line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/notionrelay/notionrelay/internal/notion"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the listening port when none is configured.
const DefaultPort = 5000

// DefaultMaxBodyBytes caps inbound request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Config is the process configuration. It is immutable once the server starts.
type Config struct {
	HTTP          string        `yaml:"http"` // listen address, takes precedence over Port
	Port          int           `yaml:"port"`
	LogLevel      string        `yaml:"log_level"`
	NotionToken   string        `yaml:"notion_token"`
	NotionVersion string        `yaml:"notion_version"`
	NotionBaseURL string        `yaml:"notion_base_url"`
	NotionTimeout time.Duration `yaml:"notion_timeout"`
	LogBodyLimit  int           `yaml:"log_body_limit"` // negative logs whole bodies
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	StrictOrder   bool          `yaml:"strict_order"`
	RateLimit     int           `yaml:"rate_limit"` // requests per minute per client IP, 0 disables
	GeoDB         string        `yaml:"geo_db"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:          DefaultPort,
		LogLevel:      "info",
		NotionVersion: notion.APIVersion,
		NotionBaseURL: notion.BaseURL,
		NotionTimeout: notion.DefaultTimeout,
		LogBodyLimit:  notion.DefaultLogBodyLimit,
		MaxBodyBytes:  DefaultMaxBodyBytes,
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the -config flag
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv reads a .env file. A missing file yields an empty map.
func LoadDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return env, nil
}

// Lookup resolves an environment variable.
type Lookup func(key string) (string, bool)

// EnvLookup returns a Lookup that prefers the process environment and falls
// back to dotenv.
func EnvLookup(dotenv map[string]string) Lookup {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// ApplyEnv overlays environment variables onto c. Empty values are ignored.
func (c *Config) ApplyEnv(lookup Lookup) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("NOTION_TOKEN"); ok {
		c.NotionToken = v
	}
	if v, ok := get("NOTION_VERSION"); ok {
		c.NotionVersion = v
	}
	if v, ok := get("NOTION_API_BASE"); ok {
		c.NotionBaseURL = v
	}
	if v, ok := get("HTTP"); ok {
		c.HTTP = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("GEO_DB"); ok {
		c.GeoDB = v
	}
	if v, ok := get("PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = p
	}
	if v, ok := get("STRICT_ORDER"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STRICT_ORDER %q: %w", v, err)
		}
		c.StrictOrder = b
	}
	if v, ok := get("RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT %q: %w", v, err)
		}
		c.RateLimit = n
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.HTTP == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.HTTP != "" {
		if _, _, err := net.SplitHostPort(c.HTTP); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", c.HTTP, err)
		}
	}
	if c.NotionTimeout <= 0 {
		return fmt.Errorf("notion timeout must be positive, got %s", c.NotionTimeout)
	}
	u, err := url.Parse(c.NotionBaseURL)
	if err != nil {
		return fmt.Errorf("invalid notion base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid notion base URL %q: need http(s)://host", c.NotionBaseURL)
	}
	if c.NotionVersion == "" {
		return errors.New("notion version is required")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max body bytes must not be negative, got %d", c.MaxBodyBytes)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit)
	}
	return nil
}

// Addr returns the address to listen on.
func (c *Config) Addr() string {
	if c.HTTP != "" {
		return c.HTTP
	}
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}

// Notion returns the client configuration.
func (c *Config) Notion() notion.Config {
	return notion.Config{
		Token:        c.NotionToken,
		Version:      c.NotionVersion,
		BaseURL:      c.NotionBaseURL,
		Timeout:      c.NotionTimeout,
		LogBodyLimit: c.LogBodyLimit,
	}
}

// ParseLogLevel maps a level name to its slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}
