package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BrowserChrome   = "chrome"
	BrowserHeadless = "headless"
)

// Config holds all settings of a run, read once at startup.
type Config struct {
	Account     string
	Password    string
	Browser     string
	BrowserPath string
	Resource    string
	BaseURL     string

	PageStart int
	PageCount int

	Workers     int
	MaxRetries  int
	RetryBase   time.Duration
	HTTPTimeout time.Duration

	LoginTimeout    time.Duration
	OutputDir       string
	ExportExercises bool
	ProxyAddr       string
	UserAgent       string

	HistoryPath string
	LogLevel    slog.Level
	LogFile     string

	TelegramToken  string
	TelegramChatID int64
	PushgatewayURL string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine: variables may come straight from the environment.
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Account:     os.Getenv("PORTAL_ACCOUNT"),
		Password:    os.Getenv("PORTAL_PASSWORD"),
		Browser:     strings.ToLower(withDefault(os.Getenv("BROWSER"), BrowserChrome)),
		BrowserPath: os.Getenv("BROWSER_PATH"),
		Resource:    withDefault(os.Getenv("RESOURCE"), "理地工電生"),
		BaseURL:     strings.TrimRight(withDefault(os.Getenv("BASE_URL"), "https://united-cal.math.ncu.edu.tw"), "/"),

		OutputDir:      resolvePath(withDefault(os.Getenv("OUTPUT_DIR"), ".")),
		ProxyAddr:      os.Getenv("PROXY"),
		UserAgent:      os.Getenv("USER_AGENT"),
		HistoryPath:    resolvePath(withDefault(os.Getenv("HISTORY_PATH"), "data/history.db")),
		LogFile:        os.Getenv("LOG_FILE"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}
	if _, set := os.LookupEnv("LOG_FILE"); !set {
		cfg.LogFile = "download.log"
	}

	var err error
	if cfg.PageStart, err = getEnvInt("PAGE_START", 0); err != nil {
		return nil, err
	}
	if cfg.PageCount, err = getEnvInt("PAGE_COUNT", 6); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvInt("WORKERS", 5); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getEnvInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBase, err = getEnvDuration("RETRY_BASE", time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.LoginTimeout, err = getEnvDuration("LOGIN_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ExportExercises, err = getEnvBool("EXPORT_EXERCISES", false); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLevel(withDefault(os.Getenv("LOG_LEVEL"), "info")); err != nil {
		return nil, err
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	if c.Browser != BrowserChrome && c.Browser != BrowserHeadless {
		return fmt.Errorf("BROWSER must be %q or %q, got %q", BrowserChrome, BrowserHeadless, c.Browser)
	}
	if c.Browser == BrowserHeadless && (c.Account == "" || c.Password == "") {
		return fmt.Errorf("PORTAL_ACCOUNT and PORTAL_PASSWORD are required for headless login")
	}
	if strings.TrimSpace(c.Resource) == "" {
		return fmt.Errorf("RESOURCE is empty")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BASE_URL is not an absolute URL: %q", c.BaseURL)
	}
	if c.PageStart < 0 || c.PageCount < 0 {
		return fmt.Errorf("page range must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	if c.RetryBase <= 0 || c.HTTPTimeout <= 0 || c.LoginTimeout <= 0 {
		return fmt.Errorf("durations must be positive")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

func (c *Config) Headless() bool {
	return c.Browser == BrowserHeadless
}

func (c *Config) LoginURL() string {
	return c.BaseURL + "/login"
}

// ListingURL is the paginated exam history endpoint, without the page index.
func (c *Config) ListingURL() string {
	return c.BaseURL + "/files/science/history/" + c.Resource
}

func (c *Config) PageURL(page int) string {
	return fmt.Sprintf("%s/%d", c.ListingURL(), page)
}

func (c *Config) ExercisesURL() string {
	return c.BaseURL + "/files/science/exercise/" + c.Resource
}

// ResourceDir is the root of everything written for the configured resource.
func (c *Config) ResourceDir() string {
	return filepath.Join(c.OutputDir, c.Resource)
}

func withDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

func resolvePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	if cwd, err := os.Getwd(); err == nil {
		return filepath.Clean(filepath.Join(cwd, p))
	}

	return p
}
