// Package config provides application configuration management with support for
// environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Server ServerConfig
	Store  StoreConfig
	Lists  ListsConfig
	Codec  CodecConfig
	Auth   AuthConfig
	Client ClientConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string // CORS origins for the web part clients
	WriteRPS       float64  // rate limit for site request submissions, per caller
	WriteBurst     int
}

// StoreConfig holds list store configuration.
type StoreConfig struct {
	Driver   string // badger or sqlite
	Path     string
	PageSize int // single-page row cap for paged queries
}

// ListsConfig names the lists the provisioning workflow reads and writes.
type ListsConfig struct {
	Sites         string
	Divisions     string
	SiteTemplates string
	Blacklist     string
	// HideColumn is the marker column excluded from listings when equal to "Hidden".
	HideColumn string
	// WebAppURL is the absolute URL prefix for relative site paths.
	WebAppURL string
}

// CodecConfig holds field codec behavior configuration.
type CodecConfig struct {
	// Strict rejects tagged payloads missing their expected sub-key instead of
	// treating them as empty.
	Strict bool
}

// AuthConfig holds identity token configuration.
type AuthConfig struct {
	// TokenKey is the PASETO v4 symmetric key as 64 hex characters (32 bytes).
	TokenKey      string
	TokenDuration time.Duration
}

// ClientConfig holds settings for the form client (sitectl and tests).
type ClientConfig struct {
	// APIBaseURL selects API mode when set; empty means direct store mode.
	APIBaseURL string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("siteprov", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins")
	writeRPS := fs.String("write-rps", "", "Site request submissions per second per caller (default: 1)")
	writeBurst := fs.String("write-burst", "", "Site request submission burst (default: 5)")

	storeDriver := fs.String("store-driver", "", "List store driver: badger or sqlite (default: badger)")
	storePath := fs.String("store-path", "", "List store data path")
	pageSize := fs.String("page-size", "", "List query page size (default: 100)")

	sitesList := fs.String("sites-list", "", "Sites list name (default: Sites)")
	divisionsList := fs.String("divisions-list", "", "Divisions list name (default: Divisions)")
	templatesList := fs.String("site-templates-list", "", "Site templates list name (default: SiteTemplates)")
	blacklistList := fs.String("blacklist-list", "", "Blacklisted words list name (default: BlacklistedWords)")
	hideColumn := fs.String("hide-column", "", "Hide-from-listing column name (default: EUMHideFromSiteList)")
	webAppURL := fs.String("web-app-url", "", "Absolute URL prefix for relative site paths")

	codecStrict := fs.String("codec-strict", "", "Reject malformed tagged field payloads (default: false)")

	tokenKey := fs.String("token-key", "", "PASETO v4 symmetric key (64 hex chars)")
	tokenDuration := fs.String("token-duration", "", "Identity token lifetime (default: 12h)")

	apiBaseURL := fs.String("api-base-url", "", "Provisioning API base URL for clients (empty = direct store mode)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitCSV(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "")),
			WriteBurst:     getIntConfigValue(*writeBurst, "WRITE_BURST", 5),
		},
		Store: StoreConfig{
			Driver:   getConfigValue(*storeDriver, "STORE_DRIVER", "badger"),
			Path:     getConfigValue(*storePath, "STORE_PATH", "./data"),
			PageSize: getIntConfigValue(*pageSize, "LIST_PAGE_SIZE", 100),
		},
		Lists: ListsConfig{
			Sites:         getConfigValue(*sitesList, "SITES_LIST", "Sites"),
			Divisions:     getConfigValue(*divisionsList, "DIVISIONS_LIST", "Divisions"),
			SiteTemplates: getConfigValue(*templatesList, "SITE_TEMPLATES_LIST", "SiteTemplates"),
			Blacklist:     getConfigValue(*blacklistList, "BLACKLIST_LIST", "BlacklistedWords"),
			HideColumn:    getConfigValue(*hideColumn, "HIDE_COLUMN", "EUMHideFromSiteList"),
			WebAppURL:     getConfigValue(*webAppURL, "WEB_APP_URL", ""),
		},
		Codec: CodecConfig{
			Strict: getBoolConfigValue(*codecStrict, "CODEC_STRICT", false),
		},
		Auth: AuthConfig{
			TokenKey: getConfigValue(*tokenKey, "TOKEN_KEY", ""),
		},
		Client: ClientConfig{
			APIBaseURL: getConfigValue(*apiBaseURL, "API_BASE_URL", ""),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "WRITE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Auth.TokenDuration, err = getDurationConfigValue(*tokenDuration, "TOKEN_DURATION", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Server.WriteRPS, err = getFloatConfigValue(*writeRPS, "WRITE_RPS", 1); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "badger", "sqlite":
	default:
		return fmt.Errorf("invalid store driver %q (want badger or sqlite)", c.Store.Driver)
	}

	if c.Store.PageSize <= 0 {
		return errors.New("list page size must be positive")
	}

	if c.Lists.Sites == "" {
		return errors.New("sites list name must not be empty")
	}

	return nil
}

// getConfigValue returns the first non-empty value: flag, env var, default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) (float64, error) {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: %w", raw, envKey, err)
	}
	return parsed, nil
}

func getDurationConfigValue(flagValue, envKey string, defaultValue time.Duration) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q for %s: %w", raw, envKey, err)
	}
	return parsed, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// loadEnvFile loads KEY=VALUE pairs from a file into the process environment.
// Existing environment variables are not overwritten.
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
