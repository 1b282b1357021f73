package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Scrape  ScrapeConfig
	Browser BrowserConfig
	Paths   PathsConfig
	Logging LoggingConfig
}

type ScrapeConfig struct {
	Postcode    string
	UseCookies  bool
	SaveCookies bool
	DelayMin    time.Duration
	DelayMax    time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgent      string
	HomeURL        string
}

type PathsConfig struct {
	DataDir        string
	ScreenshotsDir string
	CookieFile     string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load resolves configuration in increasing order of precedence: built-in
// defaults, the optional JSON defaults file at path, then environment
// variables. Flag overrides are applied by the callers in cmd.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			Postcode:    "SE1 1",
			UseCookies:  true,
			SaveCookies: true,
			DelayMin:    2 * time.Second,
			DelayMax:    4 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:       false,
			Timeout:        30 * time.Second,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			AcceptLanguage: "en-GB,en;q=0.9",
			TimezoneID:     "Europe/London",
			Locale:         "en-GB",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			HomeURL:        "https://www.amazon.co.uk",
		},
		Paths: PathsConfig{
			DataDir:        "data",
			ScreenshotsDir: "screenshots",
			CookieFile:     "config/cookies.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// fileConfig mirrors the on-disk defaults file. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it names.
type fileConfig struct {
	Postcode    *string  `json:"postcode"`
	Headless    *bool    `json:"headless"`
	UseCookies  *bool    `json:"use_cookies"`
	SaveCookies *bool    `json:"save_cookies"`
	TimeoutMS   *int     `json:"timeout_ms"`
	DelayMinSec *float64 `json:"delay_min_s"`
	DelayMaxSec *float64 `json:"delay_max_s"`
	DataDir     *string  `json:"data_dir"`
	Screenshots *string  `json:"screenshots_dir"`
	CookieFile  *string  `json:"cookie_file"`
	LogLevel    *string  `json:"log_level"`
	LogFormat   *string  `json:"log_format"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("invalid JSON in config file %s: %w", path, err)
	}

	if fc.Postcode != nil {
		c.Scrape.Postcode = *fc.Postcode
	}
	if fc.Headless != nil {
		c.Browser.Headless = *fc.Headless
	}
	if fc.UseCookies != nil {
		c.Scrape.UseCookies = *fc.UseCookies
	}
	if fc.SaveCookies != nil {
		c.Scrape.SaveCookies = *fc.SaveCookies
	}
	if fc.TimeoutMS != nil {
		c.Browser.Timeout = time.Duration(*fc.TimeoutMS) * time.Millisecond
	}
	if fc.DelayMinSec != nil {
		c.Scrape.DelayMin = time.Duration(*fc.DelayMinSec * float64(time.Second))
	}
	if fc.DelayMaxSec != nil {
		c.Scrape.DelayMax = time.Duration(*fc.DelayMaxSec * float64(time.Second))
	}
	if fc.DataDir != nil {
		c.Paths.DataDir = *fc.DataDir
	}
	if fc.Screenshots != nil {
		c.Paths.ScreenshotsDir = *fc.Screenshots
	}
	if fc.CookieFile != nil {
		c.Paths.CookieFile = *fc.CookieFile
	}
	if fc.LogLevel != nil {
		c.Logging.Level = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		c.Logging.Format = *fc.LogFormat
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Scrape.Postcode = getEnvOrDefault("SCRAPER_POSTCODE", c.Scrape.Postcode)
	c.Scrape.UseCookies = getBoolOrDefault("SCRAPER_USE_COOKIES", c.Scrape.UseCookies)
	c.Scrape.SaveCookies = getBoolOrDefault("SCRAPER_SAVE_COOKIES", c.Scrape.SaveCookies)
	c.Scrape.DelayMin = getDurationOrDefault("SCRAPER_DELAY_MIN", c.Scrape.DelayMin)
	c.Scrape.DelayMax = getDurationOrDefault("SCRAPER_DELAY_MAX", c.Scrape.DelayMax)

	c.Browser.Headless = getBoolOrDefault("BROWSER_HEADLESS", c.Browser.Headless)
	c.Browser.Timeout = getDurationOrDefault("BROWSER_TIMEOUT", c.Browser.Timeout)
	c.Browser.ViewportWidth = getIntOrDefault("BROWSER_VIEWPORT_WIDTH", c.Browser.ViewportWidth)
	c.Browser.ViewportHeight = getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", c.Browser.ViewportHeight)
	c.Browser.AcceptLanguage = getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", c.Browser.AcceptLanguage)
	c.Browser.TimezoneID = getEnvOrDefault("BROWSER_TIMEZONE", c.Browser.TimezoneID)
	c.Browser.Locale = getEnvOrDefault("BROWSER_LOCALE", c.Browser.Locale)
	c.Browser.UserAgent = getEnvOrDefault("BROWSER_USER_AGENT", c.Browser.UserAgent)
	c.Browser.HomeURL = getEnvOrDefault("SCRAPER_HOME_URL", c.Browser.HomeURL)

	c.Paths.DataDir = getEnvOrDefault("SCRAPER_DATA_DIR", c.Paths.DataDir)
	c.Paths.ScreenshotsDir = getEnvOrDefault("SCRAPER_SCREENSHOTS_DIR", c.Paths.ScreenshotsDir)
	c.Paths.CookieFile = getEnvOrDefault("SCRAPER_COOKIE_FILE", c.Paths.CookieFile)

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)
}

func (c *Config) Validate() error {
	if c.Scrape.Postcode == "" {
		return fmt.Errorf("postcode must not be empty")
	}

	if c.Scrape.DelayMin < 0 || c.Scrape.DelayMax < 0 {
		return fmt.Errorf("delay range must not be negative")
	}

	if c.Scrape.DelayMin > c.Scrape.DelayMax {
		return fmt.Errorf("SCRAPER_DELAY_MIN cannot be greater than SCRAPER_DELAY_MAX")
	}

	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("browser timeout must be positive")
	}

	return nil
}

// EnsureDirectories creates the output directories the scraper writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ScreenshotsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
