package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mwhitaker/amazon-uk-scraper/internal/browser"
	"github.com/mwhitaker/amazon-uk-scraper/internal/config"
	"github.com/mwhitaker/amazon-uk-scraper/internal/extractor"
	"github.com/mwhitaker/amazon-uk-scraper/internal/location"
	"github.com/mwhitaker/amazon-uk-scraper/internal/models"
	"github.com/mwhitaker/amazon-uk-scraper/internal/ratelimit"
	"github.com/mwhitaker/amazon-uk-scraper/internal/report"
	"github.com/mwhitaker/amazon-uk-scraper/internal/scraper"
)

func main() {
	var (
		url        = flag.String("url", "", "Amazon UK product URL (or bare ASIN) to scrape")
		postcode   = flag.String("postcode", "", "UK postcode for the delivery location (default: from config)")
		headless   = flag.Bool("headless", false, "Run the browser in headless mode")
		noCookies  = flag.Bool("no-cookies", false, "Disable cookie loading and saving")
		output     = flag.String("output", "", "Custom output filename for the JSON result")
		configPath = flag.String("config", "config/config.json", "Path to the JSON defaults file")
	)
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "Usage: scraper -url <amazon.co.uk product URL> [-postcode \"SE1 1\"] [-headless] [-no-cookies] [-output result.json]")
		os.Exit(2)
	}

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags beat both the env and the defaults file.
	if *postcode != "" {
		cfg.Scrape.Postcode = *postcode
	}
	if *headless {
		cfg.Browser.Headless = true
	}
	if *noCookies {
		cfg.Scrape.UseCookies = false
		cfg.Scrape.SaveCookies = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to prepare directories", "error", err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("        AMAZON UK PRODUCT SCRAPER")
	fmt.Println(strings.Repeat("=", 60))

	logger.Info("starting scrape",
		"url", *url,
		"postcode", cfg.Scrape.Postcode,
		"headless", cfg.Browser.Headless,
		"use_cookies", cfg.Scrape.UseCookies,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	rec, err := run(ctx, cfg, *url, *output, logger)
	if err != nil {
		logger.Error("scraping failed", "error", err)
		os.Exit(1)
	}

	if rec.Status == models.StatusFailed {
		logger.Error("scraping failed", "error", rec.Error)
		logger.Info("check the screenshots folder for debugging information")
		os.Exit(1)
	}

	if rec.SubscribeSavePrice == "" {
		logger.Warn("Subscribe & Save price was not found; the product may not offer a subscription, or the location was not applied")
	}

	logger.Info("scraping completed")
}

func run(ctx context.Context, cfg *config.Config, url, output string, logger *slog.Logger) (models.ProductRecord, error) {
	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ScreenshotsDir: cfg.Paths.ScreenshotsDir,
		CookieFile:     cfg.Paths.CookieFile,
		UseCookies:     cfg.Scrape.UseCookies,
		SaveCookies:    cfg.Scrape.SaveCookies,
	})
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("error closing browser", "error", err)
		}
	}()

	pacer := ratelimit.NewPacer(cfg.Scrape.DelayMin, cfg.Scrape.DelayMax)
	setter := location.NewSetter(b, pacer, cfg.Browser.HomeURL, logger)
	ex := extractor.New(logger)
	s := scraper.NewAmazonUKScraper(b, setter, ex, pacer, cfg.Scrape.Postcode, logger)
	defer s.Close()

	rec := s.Run(ctx, url)

	report.DisplayTable(os.Stdout, rec)

	reporter := report.NewReporter(cfg.Paths.DataDir, logger)
	if _, err := reporter.SaveJSON(rec, output); err != nil {
		return rec, fmt.Errorf("%w: %v", scraper.ErrPersistence, err)
	}

	return rec, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
